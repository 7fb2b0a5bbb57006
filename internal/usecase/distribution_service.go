package usecase

import (
	"context"
	"fmt"

	"github.com/riskibarqy/fpl-predictor/internal/domain/distribution"
	"github.com/riskibarqy/fpl-predictor/internal/domain/prediction"
	"github.com/riskibarqy/fpl-predictor/internal/engine"
	"github.com/riskibarqy/fpl-predictor/internal/platform/cache"
	"github.com/riskibarqy/fpl-predictor/internal/platform/logging"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel/attribute"
)

// PlayerDistribution pairs a distribution with the fixture it was built for.
type PlayerDistribution struct {
	PlayerID     int64                          `json:"player_id"`
	Fixture      *prediction.Fixture            `json:"fixture,omitempty"`
	Distribution distribution.ScoreDistribution `json:"distribution"`
}

// DistributionService memoises score distributions per snapshot version.
// Two fixtures against teams of the same tier and venue share one entry.
type DistributionService struct {
	snapshots *SnapshotService
	memo      *cache.Store
	logger    *logging.Logger
}

func NewDistributionService(snapshots *SnapshotService, memo *cache.Store, logger *logging.Logger) *DistributionService {
	if logger == nil {
		logger = logging.Default()
	}
	if memo == nil {
		memo = cache.NewStore(0)
	}
	s := &DistributionService{snapshots: snapshots, memo: memo, logger: logger.Named("distribution")}
	snapshots.OnSwap(s.dropVersion)
	return s
}

// Distribution returns one player's score distribution. A nil fixture means
// the scheduled fixture, falling back to the unconditional distribution.
func (s *DistributionService) Distribution(ctx context.Context, playerID int64, fx *prediction.FixtureContext) (PlayerDistribution, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.DistributionService.Distribution", attribute.Int64("player.id", playerID))
	defer span.End()

	if playerID <= 0 {
		return PlayerDistribution{}, fmt.Errorf("%w: player id must be > 0", ErrInvalidInput)
	}
	if fx != nil && fx.OpponentTeamID <= 0 {
		return PlayerDistribution{}, fmt.Errorf("%w: opponent team id must be > 0", ErrInvalidInput)
	}
	st, err := s.snapshots.load()
	if err != nil {
		return PlayerDistribution{}, err
	}
	return s.build(ctx, st, playerID, st.fixtureFor(playerID, fx, nil))
}

// Distributions builds a batch concurrently, keyed by player id.
func (s *DistributionService) Distributions(ctx context.Context, playerIDs []int64, overrides map[int64]prediction.FixtureContext) (map[int64]PlayerDistribution, error) {
	st, err := s.snapshots.load()
	if err != nil {
		return nil, err
	}
	return s.buildMany(ctx, st, playerIDs, overrides)
}

func (s *DistributionService) buildMany(ctx context.Context, st *snapshotState, playerIDs []int64, overrides map[int64]prediction.FixtureContext) (map[int64]PlayerDistribution, error) {
	p := pool.NewWithResults[PlayerDistribution]().WithErrors().WithContext(ctx).WithMaxGoroutines(fanOutWorkers)
	for _, id := range playerIDs {
		p.Go(func(ctx context.Context) (PlayerDistribution, error) {
			return s.build(ctx, st, id, st.fixtureFor(id, nil, overrides))
		})
	}
	results, err := p.Wait()
	if err != nil {
		return nil, err
	}

	out := make(map[int64]PlayerDistribution, len(results))
	for _, r := range results {
		out[r.PlayerID] = r
	}
	return out, nil
}

func (s *DistributionService) build(ctx context.Context, st *snapshotState, playerID int64, fx *prediction.FixtureContext) (PlayerDistribution, error) {
	if _, ok := st.snap.Player(playerID); !ok {
		return PlayerDistribution{}, fmt.Errorf("%w: player=%d", ErrNotFound, playerID)
	}

	key := cache.Key(st.snap.Version(), "dist", playerID, "any")
	var resolved *prediction.Fixture
	if fx != nil {
		fixture, _, _ := st.snap.ResolveFixture(*fx)
		resolved = &fixture
		key = cache.Key(st.snap.Version(), "dist", playerID, fixture.OpponentTier.Key(), venue(fx.IsHome))
	}

	d, err := cache.Load(ctx, s.memo, key, func(context.Context) (distribution.ScoreDistribution, error) {
		return st.snap.Distribution(playerID, fx)
	})
	if err != nil {
		return PlayerDistribution{}, fmt.Errorf("distribution player=%d: %w", playerID, classifyEngineError(err))
	}
	if d.Fallback {
		s.logger.DebugContext(ctx, "thin history, using fallback distribution", "player_id", playerID, "samples", d.SampleSize)
	}
	return PlayerDistribution{PlayerID: playerID, Fixture: resolved, Distribution: d}, nil
}

func (s *DistributionService) dropVersion(ctx context.Context, previous, _ *engine.Snapshot) {
	if previous == nil {
		return
	}
	removed := s.memo.DeletePrefix(ctx, previous.Version()+":")
	s.logger.DebugContext(ctx, "dropped memoised distributions", "version", previous.Version(), "entries", removed)
}

func venue(isHome bool) string {
	if isHome {
		return "home"
	}
	return "away"
}
