package httpapi

import (
	"crypto/subtle"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/riskibarqy/fpl-predictor/internal/platform/logging"
	"github.com/riskibarqy/fpl-predictor/internal/usecase"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	internalTokenHeader = "X-Internal-Token"
	requestIDHeader     = "X-Request-ID"
	maxRequestIDLen     = 128
)

// RequireInternalToken guards operator endpoints such as a snapshot refresh.
// An empty configured token disables the endpoint entirely.
func RequireInternalToken(token string, next http.Handler) http.Handler {
	want := []byte(strings.TrimSpace(token))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, span := startSpan(r.Context(), "httpapi.RequireInternalToken")
		defer span.End()

		var err error
		switch got := []byte(strings.TrimSpace(r.Header.Get(internalTokenHeader))); {
		case len(want) == 0:
			err = fmt.Errorf("%w: internal token is not configured", usecase.ErrDependencyUnavailable)
		case subtle.ConstantTimeCompare(got, want) != 1:
			err = fmt.Errorf("%w: invalid internal token", usecase.ErrUnauthorized)
		}
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// responseRecorder captures what the handler wrote for the access log.
type responseRecorder struct {
	http.ResponseWriter
	status  int
	written int
}

func (rr *responseRecorder) WriteHeader(status int) {
	if rr.status == 0 {
		rr.status = status
	}
	rr.ResponseWriter.WriteHeader(status)
}

func (rr *responseRecorder) Write(b []byte) (int, error) {
	if rr.status == 0 {
		rr.status = http.StatusOK
	}
	n, err := rr.ResponseWriter.Write(b)
	rr.written += n
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (rr *responseRecorder) Unwrap() http.ResponseWriter { return rr.ResponseWriter }

// requestID keeps a caller supplied id when it is sane and mints a UUID
// otherwise.
func requestID(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get(requestIDHeader)); v != "" && len(v) <= maxRequestIDLen {
		return v
	}
	return uuid.NewString()
}

// RequestLogging writes one access log line per request and echoes the
// request id. 5xx responses log at error and 4xx at warn.
func RequestLogging(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		reqID := requestID(r)
		w.Header().Set(requestIDHeader, reqID)

		rr := &responseRecorder{ResponseWriter: w}
		next.ServeHTTP(rr, r)
		if rr.status == 0 {
			rr.status = http.StatusOK
		}

		log := logger.InfoContext
		switch {
		case rr.status >= http.StatusInternalServerError:
			log = logger.ErrorContext
		case rr.status >= http.StatusBadRequest:
			log = logger.WarnContext
		}
		log(r.Context(), "http request",
			"request_id", reqID,
			"method", r.Method,
			"path", r.URL.Path,
			"status", rr.status,
			"bytes", rr.written,
			"client_ip", clientIP(r),
			"duration", time.Since(started),
		)
	})
}

func RequestTracing(next http.Handler) http.Handler {
	return otelhttp.NewHandler(next, "fpl-predictor-http",
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return r.Method + " " + r.URL.Path
		}),
		otelhttp.WithFilter(func(r *http.Request) bool {
			return shouldTraceRequest(r.URL.Path)
		}),
	)
}

// corsPolicy answers which Allow-Origin value, if any, a request origin gets.
type corsPolicy struct {
	wildcard bool
	origins  map[string]struct{}
}

func newCORSPolicy(allowed []string) corsPolicy {
	p := corsPolicy{origins: make(map[string]struct{}, len(allowed))}
	for _, o := range allowed {
		switch o = strings.TrimSpace(o); o {
		case "":
		case "*":
			p.wildcard = true
		default:
			p.origins[strings.TrimSuffix(o, "/")] = struct{}{}
		}
	}
	return p
}

func (p corsPolicy) allowOrigin(origin string) (string, bool) {
	if p.wildcard {
		return "*", true
	}
	_, ok := p.origins[origin]
	return origin, ok
}

func CORS(allowedOrigins []string, next http.Handler) http.Handler {
	policy := newCORSPolicy(allowedOrigins)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := strings.TrimSpace(r.Header.Get("Origin"))
		if origin == "" {
			next.ServeHTTP(w, r)
			return
		}

		if value, ok := policy.allowOrigin(origin); ok {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", value)
			if value != "*" {
				h.Add("Vary", "Origin")
			}
			h.Set("Access-Control-Allow-Methods", "GET,POST,OPTIONS")
			h.Set("Access-Control-Allow-Headers", strings.Join([]string{"Content-Type", "Accept", internalTokenHeader, requestIDHeader}, ","))
			h.Set("Access-Control-Expose-Headers", requestIDHeader)
			h.Set("Access-Control-Max-Age", "600")
		}

		// Preflights never reach the mux, allowed or not.
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP takes the first hop of X-Forwarded-For, then X-Real-IP, then the
// socket address.
func clientIP(r *http.Request) string {
	candidates := []string{r.Header.Get("X-Forwarded-For"), r.Header.Get("X-Real-IP"), r.RemoteAddr}
	for _, c := range candidates {
		first, _, _ := strings.Cut(c, ",")
		first = strings.TrimSpace(first)
		if host, _, err := net.SplitHostPort(first); err == nil {
			first = host
		}
		if ip := net.ParseIP(first); ip != nil {
			return ip.String()
		}
	}
	return ""
}
