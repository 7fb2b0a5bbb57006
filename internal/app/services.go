package app

import (
	"context"
	"time"

	"github.com/riskibarqy/fpl-predictor/internal/config"
	"github.com/riskibarqy/fpl-predictor/internal/domain/fixture"
	"github.com/riskibarqy/fpl-predictor/internal/domain/player"
	"github.com/riskibarqy/fpl-predictor/internal/domain/standing"
	"github.com/riskibarqy/fpl-predictor/internal/domain/team"
	repocache "github.com/riskibarqy/fpl-predictor/internal/infrastructure/repository/cache"
	basecache "github.com/riskibarqy/fpl-predictor/internal/platform/cache"
	idgen "github.com/riskibarqy/fpl-predictor/internal/platform/id"
	"github.com/riskibarqy/fpl-predictor/internal/platform/logging"
	"github.com/riskibarqy/fpl-predictor/internal/usecase"
)

// Services holds the usecase layer shared by the HTTP and MCP surfaces.
type Services struct {
	Snapshots     *usecase.SnapshotService
	Predictions   *usecase.PredictionService
	Distributions *usecase.DistributionService
	Simulations   *usecase.SimulationService
	FreeAgents    *usecase.FreeAgentService
}

// NewServices builds the usecase layer over store. With CACHE_ENABLED the
// read repositories are wrapped in a TTL cache that every full refresh
// drops first, so a manual refresh always reads the store.
func NewServices(cfg config.Config, store *Store, logger *logging.Logger) *Services {
	if logger == nil {
		logger = logging.Default()
	}

	var (
		teams     team.Repository    = store.Teams
		players   player.Repository  = store.Players
		fixtures  fixture.Repository = store.Fixtures
		standings standing.Provider  = store.Standings
		readCache *basecache.Store
	)
	if cfg.CacheEnabled {
		readCache = basecache.NewStore(cfg.CacheTTL)
		teams = repocache.NewTeamRepository(store.Teams, readCache)
		players = repocache.NewPlayerRepository(store.Players, readCache)
		fixtures = repocache.NewFixtureRepository(store.Fixtures, readCache)
		standings = repocache.NewStandingsRepository(store.Standings, readCache)
	}

	ids := idgen.NewUUIDGenerator()
	snapshots := usecase.NewSnapshotService(teams, players, fixtures, standings, cfg.Engine, ids, logger)
	if readCache != nil {
		snapshots.BeforeRefresh(func(ctx context.Context) {
			dropped := repocache.Invalidate(ctx, readCache)
			logger.DebugContext(ctx, "repository cache invalidated", "entries", dropped)
		})
	}
	distributions := usecase.NewDistributionService(snapshots, basecache.NewStore(0), logger)

	return &Services{
		Snapshots:     snapshots,
		Predictions:   usecase.NewPredictionService(snapshots, logger),
		Distributions: distributions,
		Simulations:   usecase.NewSimulationService(snapshots, distributions, ids, logger),
		FreeAgents:    usecase.NewFreeAgentService(snapshots, distributions, logger),
	}
}

// WarmUp builds the first snapshot. A failure is logged and the process keeps
// serving: health reports "starting" and reads return 503 until a refresh
// succeeds.
func (s *Services) WarmUp(ctx context.Context, logger *logging.Logger) bool {
	if logger == nil {
		logger = logging.Default()
	}
	info, err := s.Snapshots.Refresh(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "initial snapshot failed", "error", err)
		return false
	}
	logger.InfoContext(ctx, "initial snapshot ready", "version", info.Version, "players", info.Players)
	return true
}

// RunRefresher rebuilds the snapshot every interval until ctx is done. A
// failed rebuild keeps the previous snapshot.
func (s *Services) RunRefresher(ctx context.Context, interval time.Duration, logger *logging.Logger) {
	if interval <= 0 {
		return
	}
	if logger == nil {
		logger = logging.Default()
	}
	logger = logger.Named("refresher")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Snapshots.Refresh(ctx); err != nil {
				logger.WarnContext(ctx, "scheduled snapshot refresh failed", "error", err)
			}
		}
	}
}
