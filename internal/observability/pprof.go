package observability

import (
	"context"
	"errors"
	"net/http"
	"net/http/pprof"
	"time"

	"github.com/riskibarqy/fpl-predictor/internal/config"
	"github.com/riskibarqy/fpl-predictor/internal/platform/logging"
)

// namedProfiles are served explicitly so the simulator's goroutine and mutex
// contention can be pulled without going through the index page.
var namedProfiles = []string{"goroutine", "heap", "allocs", "block", "mutex", "threadcreate"}

// PprofServer is the debug listener. A nil *PprofServer is valid and does
// nothing, which is what StartPprofServer returns when pprof is disabled.
type PprofServer struct {
	srv    *http.Server
	logger *logging.Logger
}

func newPprofMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /debug/pprof/", pprof.Index)
	mux.HandleFunc("GET /debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("GET /debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("GET /debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("POST /debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("GET /debug/pprof/trace", pprof.Trace)
	for _, name := range namedProfiles {
		mux.Handle("GET /debug/pprof/"+name, pprof.Handler(name))
	}
	return mux
}

func StartPprofServer(cfg config.Config, logger *logging.Logger) (*PprofServer, error) {
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.Named("pprof")

	if !cfg.PprofEnabled {
		logger.Debug("pprof disabled")
		return nil, nil
	}
	if cfg.PprofAddr == "" {
		return nil, errors.New("PPROF_ADDR cannot be empty when pprof is enabled")
	}

	p := &PprofServer{
		srv: &http.Server{
			Addr:              cfg.PprofAddr,
			Handler:           newPprofMux(),
			ReadHeaderTimeout: 5 * time.Second,
		},
		logger: logger,
	}

	go func() {
		logger.Info("pprof server starting", "addr", cfg.PprofAddr)
		if err := p.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("pprof server failed", "error", err)
		}
	}()

	return p, nil
}

// Shutdown stops the listener, waiting at most timeout for in-flight
// profiles. CPU profiles block for their full duration, so callers should
// expect a timeout error while one is being captured.
func (p *PprofServer) Shutdown(timeout time.Duration) error {
	if p == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := p.srv.Shutdown(ctx); err != nil {
		return err
	}
	p.logger.Info("pprof server stopped")
	return nil
}
