package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/riskibarqy/fpl-predictor/internal/config"
	"github.com/riskibarqy/fpl-predictor/internal/domain/fixture"
	"github.com/riskibarqy/fpl-predictor/internal/domain/player"
	"github.com/riskibarqy/fpl-predictor/internal/domain/standing"
	"github.com/riskibarqy/fpl-predictor/internal/domain/team"
	"github.com/riskibarqy/fpl-predictor/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/fpl-predictor/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/fpl-predictor/internal/infrastructure/repository/sqlite"
	"github.com/riskibarqy/fpl-predictor/internal/platform/logging"
)

// Store is the set of repositories one STORE_DRIVER provides. The team
// repository doubles as the standings provider.
type Store struct {
	Driver    string
	Teams     TeamStore
	Players   PlayerStore
	Fixtures  FixtureStore
	Standings standing.Provider

	db *sqlx.DB
}

type TeamStore interface {
	team.Repository
	team.Writer
}

type PlayerStore interface {
	player.Repository
	player.Writer
}

type FixtureStore interface {
	fixture.Repository
	fixture.Writer
}

// OpenStore connects the configured driver. The memory driver is filled
// with the synthetic seed season.
func OpenStore(ctx context.Context, cfg config.Config, logger *logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.Default()
	}

	switch cfg.StoreDriver {
	case config.StorePostgres:
		db, err := postgres.Open(ctx, postgres.Options{
			URL:                         cfg.DBURL,
			MaxOpenConns:                cfg.DBMaxOpenConns,
			MaxIdleConns:                cfg.DBMaxOpenConns,
			DisablePreparedBinaryResult: cfg.DBDisablePreparedBinary,
		})
		if err != nil {
			return nil, err
		}
		s := postgres.NewStore(db)
		logger.Info("store opened", "driver", cfg.StoreDriver)
		return &Store{
			Driver:    cfg.StoreDriver,
			Teams:     s.Teams(),
			Players:   s.Players(),
			Fixtures:  s.Fixtures(),
			Standings: s.Teams(),
			db:        db,
		}, nil

	case config.StoreSQLite:
		s, db, err := sqlite.NewStore(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		logger.Info("store opened", "driver", cfg.StoreDriver, "path", cfg.SQLitePath)
		return &Store{
			Driver:    cfg.StoreDriver,
			Teams:     s.Teams(),
			Players:   s.Players(),
			Fixtures:  s.Fixtures(),
			Standings: s.Teams(),
			db:        db,
		}, nil

	case config.StoreMemory, "":
		teams := memory.NewTeamRepository(memory.SeedTeams())
		logger.Info("store opened", "driver", config.StoreMemory, "seeded", true)
		return &Store{
			Driver:    config.StoreMemory,
			Teams:     teams,
			Players:   memory.NewPlayerRepository(memory.SeedPlayers(), memory.SeedMatchRecords()),
			Fixtures:  memory.NewFixtureRepository(memory.SeedFixtures()),
			Standings: teams,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}

// Persistent reports whether writes outlive the process.
func (s *Store) Persistent() bool {
	return s.db != nil
}

func (s *Store) Ping(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}
