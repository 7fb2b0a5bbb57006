package usecase

import (
	"context"
	"fmt"
	"sort"

	"github.com/riskibarqy/fpl-predictor/internal/domain/prediction"
	"github.com/riskibarqy/fpl-predictor/internal/engine"
	"github.com/riskibarqy/fpl-predictor/internal/platform/logging"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel/attribute"
)

const (
	minSquadSize  = 11
	maxSquadSize  = 15
	fanOutWorkers = 8
)

// SquadRequest asks for predictions of a whole squad. Fixtures overrides the
// scheduled fixture per player id.
type SquadRequest struct {
	PlayerIDs []int64
	Fixtures  map[int64]prediction.FixtureContext
}

type PredictionService struct {
	snapshots *SnapshotService
	logger    *logging.Logger
}

func NewPredictionService(snapshots *SnapshotService, logger *logging.Logger) *PredictionService {
	if logger == nil {
		logger = logging.Default()
	}
	return &PredictionService{snapshots: snapshots, logger: logger.Named("prediction")}
}

// PredictPlayer forecasts one player. A nil fixture means the player's next
// scheduled fixture; with none scheduled the blank prediction is returned.
func (s *PredictionService) PredictPlayer(ctx context.Context, playerID int64, fx *prediction.FixtureContext) (prediction.Prediction, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PredictionService.PredictPlayer", attribute.Int64("player.id", playerID))
	defer span.End()

	if playerID <= 0 {
		return prediction.Prediction{}, fmt.Errorf("%w: player id must be > 0", ErrInvalidInput)
	}
	if fx != nil && fx.OpponentTeamID <= 0 {
		return prediction.Prediction{}, fmt.Errorf("%w: opponent team id must be > 0", ErrInvalidInput)
	}

	st, err := s.snapshots.load()
	if err != nil {
		return prediction.Prediction{}, err
	}
	fixture := st.fixtureFor(playerID, fx, nil)

	pred, err := st.snap.Predict(playerID, fixture)
	if err != nil {
		return prediction.Prediction{}, fmt.Errorf("predict player=%d: %w", playerID, classifyEngineError(err))
	}
	if fixture == nil {
		s.logger.DebugContext(ctx, "no fixture for player, returning blank prediction", "player_id", playerID)
	}
	return pred, nil
}

// PredictSquad predicts every member concurrently and picks the optimal
// eleven from the results.
func (s *PredictionService) PredictSquad(ctx context.Context, req SquadRequest) (prediction.SquadPrediction, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.PredictionService.PredictSquad", attribute.Int("squad.size", len(req.PlayerIDs)))
	defer span.End()

	if err := validateSquadIDs(req.PlayerIDs); err != nil {
		return prediction.SquadPrediction{}, err
	}
	st, err := s.snapshots.load()
	if err != nil {
		return prediction.SquadPrediction{}, err
	}

	type indexed struct {
		idx  int
		pred prediction.Prediction
	}
	p := pool.NewWithResults[indexed]().WithErrors().WithContext(ctx).WithMaxGoroutines(fanOutWorkers)
	for i, id := range req.PlayerIDs {
		p.Go(func(context.Context) (indexed, error) {
			pred, err := st.snap.Predict(id, st.fixtureFor(id, nil, req.Fixtures))
			if err != nil {
				return indexed{}, fmt.Errorf("predict player=%d: %w", id, classifyEngineError(err))
			}
			return indexed{idx: i, pred: pred}, nil
		})
	}
	results, err := p.Wait()
	if err != nil {
		return prediction.SquadPrediction{}, err
	}
	sort.Slice(results, func(i, j int) bool { return results[i].idx < results[j].idx })

	preds := make([]prediction.Prediction, 0, len(results))
	for _, r := range results {
		preds = append(preds, r.pred)
	}
	squad, err := engine.OptimalLineup(preds, st.snap.Config().Bounds)
	if err != nil {
		return prediction.SquadPrediction{}, fmt.Errorf("optimal lineup: %w", classifyEngineError(err))
	}
	return squad, nil
}

// fixtureFor picks, in order: the explicit fixture, the per-player override,
// then the scheduled fixture of the player's team.
func (st *snapshotState) fixtureFor(playerID int64, explicit *prediction.FixtureContext, overrides map[int64]prediction.FixtureContext) *prediction.FixtureContext {
	if explicit != nil {
		fx := *explicit
		return &fx
	}
	if fx, ok := overrides[playerID]; ok {
		return &fx
	}
	p, ok := st.snap.Player(playerID)
	if !ok {
		return nil
	}
	if fx, ok := st.next[p.TeamID]; ok {
		return &fx
	}
	return nil
}

func validateSquadIDs(ids []int64) error {
	if len(ids) < minSquadSize || len(ids) > maxSquadSize {
		return fmt.Errorf("%w: squad must have %d to %d players, got %d", ErrInvalidInput, minSquadSize, maxSquadSize, len(ids))
	}
	seen := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if id <= 0 {
			return fmt.Errorf("%w: player id must be > 0", ErrInvalidInput)
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate player id %d", ErrInvalidInput, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}
