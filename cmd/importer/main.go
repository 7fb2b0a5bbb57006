package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/bytedance/sonic"
	"github.com/riskibarqy/fpl-predictor/internal/app"
	"github.com/riskibarqy/fpl-predictor/internal/config"
	"github.com/riskibarqy/fpl-predictor/internal/observability"
	"github.com/riskibarqy/fpl-predictor/internal/platform/logging"
	"github.com/riskibarqy/fpl-predictor/internal/usecase"
)

func main() {
	var (
		players     = flag.String("players", "", "comma-separated player ids to fetch history for (default: all)")
		skipHistory = flag.Bool("skip-history", false, "import teams, players and fixtures only")
		workers     = flag.Int("workers", 0, "concurrent history fetches (default: IMPORT_WORKERS)")
		seed        = flag.Bool("seed", false, "write the synthetic season into an empty store instead of calling the FPL API")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	if cfg.ServiceName == "fpl-predictor-api" {
		cfg.ServiceName = "fpl-predictor-importer"
	}

	logger := app.NewLogger(cfg)
	logger, shutdownTracing, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		logger.Error("init uptrace", "error", err)
		os.Exit(1)
	}
	logging.SetDefault(logger)

	code := run(cfg, logger, options{
		players:     *players,
		skipHistory: *skipHistory,
		workers:     *workers,
		seed:        *seed,
	})
	if err := shutdownTracing(context.Background()); err != nil {
		logger.Warn("shutdown uptrace", "error", err)
	}
	_ = logger.Sync()
	os.Exit(code)
}

type options struct {
	players     string
	skipHistory bool
	workers     int
	seed        bool
}

func run(cfg config.Config, logger *logging.Logger, opts options) int {
	ids, err := parseIDs(opts.players)
	if err != nil {
		logger.Error("invalid -players", "error", err)
		return 2
	}
	workers := opts.workers
	if workers <= 0 {
		workers = cfg.ImportWorkers
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := app.OpenStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("open store", "error", err, "driver", cfg.StoreDriver)
		return 1
	}
	defer func() {
		_ = store.Close()
	}()
	if !store.Persistent() {
		logger.Warn("importing into the memory store, data is lost on exit", "driver", store.Driver)
	}

	if opts.seed {
		if _, err := app.SeedIfEmpty(ctx, store, logger); err != nil {
			logger.Error("seed store", "error", err)
			return 1
		}
		return 0
	}

	importer := app.NewImportService(app.NewFPLClient(cfg, logger), store, logger)
	result, err := importer.Import(ctx, usecase.ImportInput{
		PlayerIDs:   ids,
		SkipHistory: opts.skipHistory,
		MaxWorkers:  workers,
	})
	if err != nil {
		logger.Error("import failed", "error", err)
		return 1
	}

	out, err := sonic.ConfigStd.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Error("encode import result", "error", err)
		return 1
	}
	fmt.Println(string(out))

	if result.FailedCount > 0 {
		return 3
	}
	return 0
}

func parseIDs(raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	var out []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			return nil, fmt.Errorf("invalid player id %q", part)
		}
		out = append(out, id)
	}
	return out, nil
}
