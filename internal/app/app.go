package app

import (
	"fmt"
	"net/http"
	"time"

	"github.com/riskibarqy/fpl-predictor/external/fplapi"
	"github.com/riskibarqy/fpl-predictor/internal/config"
	"github.com/riskibarqy/fpl-predictor/internal/interfaces/httpapi"
	"github.com/riskibarqy/fpl-predictor/internal/interfaces/mcpserver"
	"github.com/riskibarqy/fpl-predictor/internal/platform/logging"
	"github.com/riskibarqy/fpl-predictor/internal/platform/resilience"
	"github.com/riskibarqy/fpl-predictor/internal/usecase"
)

func NewHTTPServer(cfg config.Config, services *Services, logger *logging.Logger) (*http.Server, error) {
	if cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	handler := httpapi.NewHandler(
		services.Snapshots,
		services.Predictions,
		services.Distributions,
		services.Simulations,
		services.FreeAgents,
		logger,
	)
	router := httpapi.NewRouter(handler, logger, httpapi.RouterConfig{
		SwaggerEnabled:     cfg.SwaggerEnabled,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		InternalToken:      cfg.InternalToken,
	})

	return &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
	}, nil
}

// NewMCPServer exposes the prediction tools over streamable HTTP at
// cfg.MCPPath.
func NewMCPServer(cfg config.Config, services *Services, logger *logging.Logger) (*http.Server, error) {
	if cfg.MCPAddr == "" {
		return nil, fmt.Errorf("mcp server addr cannot be empty")
	}

	server := mcpserver.New(
		services.Snapshots,
		services.Predictions,
		services.Distributions,
		services.Simulations,
		services.FreeAgents,
		logger,
		mcpserver.Options{
			Name:    cfg.ServiceName,
			Version: cfg.ServiceVersion,
			APIKey:  cfg.MCPAPIKey,
		},
	)

	// Streamable sessions stay open, so no write timeout.
	return &http.Server{
		Addr:              cfg.MCPAddr,
		Handler:           server.Handler(cfg.MCPPath),
		ReadHeaderTimeout: 5 * time.Second,
	}, nil
}

// NewFPLClient builds the upstream client from the FPL_API_* settings.
func NewFPLClient(cfg config.Config, logger *logging.Logger) *fplapi.Client {
	return fplapi.NewClient(fplapi.ClientConfig{
		BaseURL:      cfg.FPLAPIBaseURL,
		UserAgent:    cfg.FPLAPIUserAgent,
		Timeout:      cfg.FPLAPITimeout,
		MaxRetries:   cfg.FPLAPIMaxRetries,
		RetryBackoff: cfg.FPLAPIRetryBackoff,
		Logger:       logger,
		CircuitBreaker: resilience.CircuitBreakerConfig{
			Enabled:          cfg.FPLAPICircuitEnabled,
			FailureThreshold: cfg.FPLAPICircuitFailureCount,
			OpenTimeout:      cfg.FPLAPICircuitOpenTimeout,
			HalfOpenMaxReq:   cfg.FPLAPICircuitHalfOpenMaxReq,
		},
	})
}

// NewImportService writes what source returns into store.
func NewImportService(source usecase.FPLSource, store *Store, logger *logging.Logger) *usecase.ImportService {
	return usecase.NewImportService(source, store.Teams, store.Players, store.Fixtures, logger)
}
