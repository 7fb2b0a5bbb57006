package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/riskibarqy/fpl-predictor/internal/app"
	"github.com/riskibarqy/fpl-predictor/internal/config"
	"github.com/riskibarqy/fpl-predictor/internal/observability"
	"github.com/riskibarqy/fpl-predictor/internal/platform/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if cfg.ServiceName == "fpl-predictor-api" {
		cfg.ServiceName = "fpl-predictor-mcp"
	}

	logger := app.NewLogger(cfg)
	logger, shutdownTracing, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		logger.Error("init uptrace", "error", err)
		os.Exit(1)
	}
	logging.SetDefault(logger)
	defer func() {
		_ = logger.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("open store", "error", err, "driver", cfg.StoreDriver)
		os.Exit(1)
	}
	defer func() {
		_ = store.Close()
	}()

	services := app.NewServices(cfg, store, logger)
	services.WarmUp(ctx, logger)
	go services.RunRefresher(ctx, cfg.SnapshotRefreshInterval, logger)

	srv, err := app.NewMCPServer(cfg, services, logger)
	if err != nil {
		logger.Error("build mcp server", "error", err)
		os.Exit(1)
	}
	if cfg.MCPAPIKey == "" {
		logger.Warn("mcp server has no api key configured", "addr", cfg.MCPAddr)
	}

	go func() {
		logger.Info("mcp server starting", "addr", cfg.MCPAddr, "path", cfg.MCPPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("mcp server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("shutdown uptrace", "error", err)
	}

	logger.Info("mcp server stopped")
}
