package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/riskibarqy/fpl-predictor/internal/domain/lineup"
	"github.com/riskibarqy/fpl-predictor/internal/domain/prediction"
	"github.com/riskibarqy/fpl-predictor/internal/engine"
	idgen "github.com/riskibarqy/fpl-predictor/internal/platform/id"
	"github.com/riskibarqy/fpl-predictor/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

// SimulationRequest asks for a Monte Carlo lineup check. Trials <= 0 uses the
// configured default; Formation pins every trial when set.
type SimulationRequest struct {
	PlayerIDs []int64
	Fixtures  map[int64]prediction.FixtureContext
	Trials    int
	Formation string
}

type SimulationService struct {
	snapshots     *SnapshotService
	distributions *DistributionService
	idGen         idgen.Generator
	logger        *logging.Logger
	now           func() time.Time
}

func NewSimulationService(
	snapshots *SnapshotService,
	distributions *DistributionService,
	idGen idgen.Generator,
	logger *logging.Logger,
) *SimulationService {
	if logger == nil {
		logger = logging.Default()
	}
	if idGen == nil {
		idGen = idgen.NewUUIDGenerator()
	}
	return &SimulationService{
		snapshots:     snapshots,
		distributions: distributions,
		idGen:         idGen,
		logger:        logger.Named("simulation"),
		now:           time.Now,
	}
}

// SimulateLineup samples the squad's outcomes and recommends an eleven,
// a captain and a vice-captain. A cancelled context returns the trials that
// finished with Cancelled set.
func (s *SimulationService) SimulateLineup(ctx context.Context, req SimulationRequest) (_ lineup.Recommendation, err error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SimulationService.SimulateLineup",
		attribute.Int("squad.size", len(req.PlayerIDs)),
		attribute.Int("simulation.trials", req.Trials),
	)
	defer endSpan(span, &err)

	if err := validateSquadIDs(req.PlayerIDs); err != nil {
		return lineup.Recommendation{}, err
	}
	if req.Trials < 0 {
		return lineup.Recommendation{}, fmt.Errorf("%w: trials must be >= 0", ErrInvalidInput)
	}
	st, err := s.snapshots.load()
	if err != nil {
		return lineup.Recommendation{}, err
	}

	entries := make([]engine.SimulationEntry, 0, len(req.PlayerIDs))
	for _, id := range req.PlayerIDs {
		member, ok := st.snap.Member(id)
		if !ok {
			return lineup.Recommendation{}, fmt.Errorf("%w: player=%d", ErrNotFound, id)
		}
		entry := engine.SimulationEntry{Member: member}
		if form, ok := st.snap.Form(id); ok {
			entry.Form = &form
		}
		entries = append(entries, entry)
	}

	dists, err := s.distributions.buildMany(ctx, st, req.PlayerIDs, req.Fixtures)
	if err != nil {
		return lineup.Recommendation{}, err
	}
	for i := range entries {
		if d, ok := dists[entries[i].Member.PlayerID]; ok {
			entries[i].Distribution = &d.Distribution
		}
	}

	runID, err := s.idGen.NewID()
	if err != nil {
		return lineup.Recommendation{}, fmt.Errorf("generate run id: %w", err)
	}

	started := s.now()
	rec, err := engine.NewSimulator(st.snap.Config()).Run(ctx, engine.SimulationInput{
		RunID:     runID,
		Squad:     entries,
		Trials:    req.Trials,
		Formation: req.Formation,
	})
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			s.logger.WarnContext(ctx, "simulation cancelled before any trial", "run_id", runID)
			return lineup.Recommendation{}, err
		}
		return lineup.Recommendation{}, fmt.Errorf("simulate lineup: %w", classifyEngineError(err))
	}

	logFn := s.logger.InfoContext
	if rec.Cancelled || rec.TrialsDiscarded > 0 {
		logFn = s.logger.WarnContext
	}
	logFn(ctx, "simulation completed",
		"run_id", runID,
		"snapshot_version", st.snap.Version(),
		"trials_requested", rec.TrialsRequested,
		"trials_run", rec.TrialsRun,
		"trials_discarded", rec.TrialsDiscarded,
		"cancelled", rec.Cancelled,
		"formation", rec.Formation,
		"duration", s.now().Sub(started),
	)
	span.SetAttributes(
		attribute.String("simulation.run_id", runID),
		attribute.Int("simulation.trials_run", rec.TrialsRun),
	)
	return rec, nil
}
