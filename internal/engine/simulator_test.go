package engine

import (
	"context"
	"errors"
	"math"
	"sync/atomic"
	"testing"

	"github.com/riskibarqy/fpl-predictor/internal/domain/distribution"
	"github.com/riskibarqy/fpl-predictor/internal/domain/lineup"
	"github.com/riskibarqy/fpl-predictor/internal/domain/player"
)

func pointSquad(scores map[player.Position][]int) []SimulationEntry {
	var out []SimulationEntry
	id := int64(1)
	for _, pos := range player.OrderedPositions {
		for _, s := range scores[pos] {
			d := distribution.Point(s)
			out = append(out, SimulationEntry{
				Member:       lineup.SquadMember{PlayerID: id, Position: pos},
				Distribution: &d,
			})
			id++
		}
	}
	return out
}

func spreadSquad(t *testing.T) []SimulationEntry {
	t.Helper()
	squad := pointSquad(map[player.Position][]int{
		player.PositionGoalkeeper: {0, 0},
		player.PositionDefender:   {0, 0, 0, 0, 0},
		player.PositionMidfielder: {0, 0, 0, 0, 0},
		player.PositionForward:    {0, 0, 0},
	})
	for i := range squad {
		d, err := distribution.New(map[int]float64{1: 0.3, 2: 0.3, 5: 0.2, 10 + i%4: 0.2})
		if err != nil {
			t.Fatalf("build distribution: %v", err)
		}
		squad[i].Distribution = &d
	}
	return squad
}

func simulatorConfig() Config {
	cfg := DefaultConfig()
	cfg.SimulationSeed = 42
	cfg.SimulationWorkers = 4
	return cfg
}

func TestSimulatorDegenerateTrialMatchesOptimizer(t *testing.T) {
	t.Parallel()

	squad := pointSquad(map[player.Position][]int{
		player.PositionGoalkeeper: {6, 2},
		player.PositionDefender:   {7, 5, 4, 3, 1},
		player.PositionMidfielder: {9, 8, 4, 2, 1},
		player.PositionForward:    {10, 6, 3},
	})
	sim := NewSimulator(simulatorConfig())

	rec, err := sim.Run(t.Context(), SimulationInput{Squad: squad, Trials: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.TrialsRun != 1 || rec.TrialsDiscarded != 0 {
		t.Fatalf("unexpected trial counts: run=%d discarded=%d", rec.TrialsRun, rec.TrialsDiscarded)
	}
	if rec.Formation != "4-3-3" {
		t.Fatalf("unexpected formation: got=%s want=%s", rec.Formation, "4-3-3")
	}
	if rec.ExpectedPoints != 75 || rec.StdDev != 0 {
		t.Fatalf("unexpected total: got=%v std=%v want=%v", rec.ExpectedPoints, rec.StdDev, 75.0)
	}
	if rec.CaptainID != 13 {
		t.Fatalf("the top scorer must captain: got=%d want=%d", rec.CaptainID, 13)
	}

	preds := squadPredictions(map[player.Position][]float64{
		player.PositionGoalkeeper: {6, 2},
		player.PositionDefender:   {7, 5, 4, 3, 1},
		player.PositionMidfielder: {9, 8, 4, 2, 1},
		player.PositionForward:    {10, 6, 3},
	})
	optimal, err := OptimalLineup(preds, lineup.DefaultBounds())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := make(map[int64]bool, len(optimal.Starting))
	for _, p := range optimal.Starting {
		want[p.PlayerID] = true
	}
	if len(rec.StartingXI) != len(want) {
		t.Fatalf("unexpected XI size: got=%d want=%d", len(rec.StartingXI), len(want))
	}
	for _, id := range rec.StartingXI {
		if !want[id] {
			t.Fatalf("player %d is not in the optimal eleven", id)
		}
	}
}

func TestSimulatorRatesAreConsistent(t *testing.T) {
	t.Parallel()

	sim := NewSimulator(simulatorConfig())
	rec, err := sim.Run(t.Context(), SimulationInput{Squad: spreadSquad(t), Trials: 500})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.TrialsRun != 500 {
		t.Fatalf("unexpected trials run: got=%d want=%d", rec.TrialsRun, 500)
	}

	selected, captained := 0.0, 0.0
	for _, p := range rec.Players {
		if p.SelectionRate < 0 || p.SelectionRate > 1 || p.CaptainRate < 0 || p.CaptainRate > 1 {
			t.Fatalf("rate out of range: %+v", p)
		}
		selected += p.SelectionRate
		captained += p.CaptainRate
	}
	if math.Abs(selected-11) > 1e-9 {
		t.Fatalf("every trial must field exactly eleven: got=%v", selected)
	}
	if math.Abs(captained-1) > 1e-9 {
		t.Fatalf("every trial must have one captain: got=%v", captained)
	}
	for i := 1; i < len(rec.Players); i++ {
		if rec.Players[i].SelectionRate > rec.Players[i-1].SelectionRate {
			t.Fatalf("players must be ranked by selection rate")
		}
	}
	if rec.CaptainID == rec.ViceCaptainID {
		t.Fatalf("captain and vice-captain must differ")
	}
	if rec.Interval80.Low > rec.ExpectedPoints || rec.Interval80.High < rec.ExpectedPoints {
		t.Fatalf("mean outside the 80%% interval: %+v", rec)
	}

	counts := make(map[player.Position]int)
	byID := make(map[int64]player.Position)
	for _, p := range rec.Players {
		byID[p.PlayerID] = p.Position
	}
	for _, id := range rec.StartingXI {
		counts[byID[id]]++
	}
	bounds := lineup.DefaultBounds()
	for _, pos := range player.OrderedPositions {
		if !bounds.For(pos).Allows(counts[pos]) {
			t.Fatalf("recommended XI breaks %s bounds: %v", pos, counts)
		}
	}
}

func TestSimulatorSeededRunsAreReproducible(t *testing.T) {
	t.Parallel()

	sim := NewSimulator(simulatorConfig())
	first, err := sim.Run(t.Context(), SimulationInput{Squad: spreadSquad(t), Trials: 200})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := sim.Run(t.Context(), SimulationInput{Squad: spreadSquad(t), Trials: 200})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.ExpectedPoints != second.ExpectedPoints || first.CaptainID != second.CaptainID {
		t.Fatalf("seeded runs differ: first=%v second=%v", first.ExpectedPoints, second.ExpectedPoints)
	}
}

func TestSimulatorFormationConstraint(t *testing.T) {
	t.Parallel()

	sim := NewSimulator(simulatorConfig())
	rec, err := sim.Run(t.Context(), SimulationInput{Squad: spreadSquad(t), Trials: 50, Formation: "5-4-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Formation != "5-4-1" {
		t.Fatalf("unexpected formation: got=%s want=%s", rec.Formation, "5-4-1")
	}

	_, err = sim.Run(t.Context(), SimulationInput{Squad: spreadSquad(t), Trials: 50, Formation: "2-5-3"})
	if !errors.Is(err, lineup.ErrInvalidFormation) {
		t.Fatalf("unexpected error: got=%v want=%v", err, lineup.ErrInvalidFormation)
	}
}

func TestSimulatorRejectsSmallSquads(t *testing.T) {
	t.Parallel()

	sim := NewSimulator(simulatorConfig())
	squad := spreadSquad(t)[:10]
	if _, err := sim.Run(t.Context(), SimulationInput{Squad: squad}); !errors.Is(err, lineup.ErrInsufficientPlayers) {
		t.Fatalf("unexpected error: got=%v want=%v", err, lineup.ErrInsufficientPlayers)
	}

	noKeeper := spreadSquad(t)[2:]
	if _, err := sim.Run(t.Context(), SimulationInput{Squad: noKeeper}); !errors.Is(err, lineup.ErrInsufficientPlayers) {
		t.Fatalf("unexpected error: got=%v want=%v", err, lineup.ErrInsufficientPlayers)
	}
}

func TestSimulatorCapsTrialBudget(t *testing.T) {
	t.Parallel()

	cfg := simulatorConfig()
	cfg.MaxTrials = 40
	cfg.DefaultTrials = 20
	sim := NewSimulator(cfg)

	rec, err := sim.Run(t.Context(), SimulationInput{Squad: spreadSquad(t), Trials: 1000})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.TrialsRequested != 40 || rec.TrialsRun != 40 {
		t.Fatalf("unexpected budget: requested=%d run=%d", rec.TrialsRequested, rec.TrialsRun)
	}

	rec, err = sim.Run(t.Context(), SimulationInput{Squad: spreadSquad(t)})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.TrialsRun != 20 {
		t.Fatalf("unexpected default budget: got=%d want=%d", rec.TrialsRun, 20)
	}
}

func TestSimulatorCancelledBeforeStart(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	sim := NewSimulator(simulatorConfig())
	if _, err := sim.Run(ctx, SimulationInput{Squad: spreadSquad(t), Trials: 100}); !errors.Is(err, context.Canceled) {
		t.Fatalf("unexpected error: got=%v want=%v", err, context.Canceled)
	}
}

// expiringContext reports cancellation once Err has been asked more than
// budget times.
type expiringContext struct {
	context.Context
	budget int64
	calls  atomic.Int64
}

func (c *expiringContext) Err() error {
	if c.calls.Add(1) > c.budget {
		return context.Canceled
	}
	return nil
}

func TestSimulatorCancelAfterLastTrialIsComplete(t *testing.T) {
	t.Parallel()

	cfg := simulatorConfig()
	cfg.SimulationWorkers = 1
	const trials = 40
	// Every trial checks Err once, so the context expires only after the
	// last one has run.
	ctx := &expiringContext{Context: t.Context(), budget: trials}

	rec, err := NewSimulator(cfg).Run(ctx, SimulationInput{Squad: spreadSquad(t), Trials: trials})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Cancelled {
		t.Fatalf("a run with every trial finished must not be partial: run=%d", rec.TrialsRun)
	}
	if rec.TrialsRun != trials {
		t.Fatalf("got=%d want=%d", rec.TrialsRun, trials)
	}
}

func TestSimulatorCancelMidRunIsPartial(t *testing.T) {
	t.Parallel()

	cfg := simulatorConfig()
	cfg.SimulationWorkers = 1
	ctx := &expiringContext{Context: t.Context(), budget: 15}

	rec, err := NewSimulator(cfg).Run(ctx, SimulationInput{Squad: spreadSquad(t), Trials: 40})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !rec.Cancelled || rec.TrialsRun != 15 {
		t.Fatalf("got cancelled=%v run=%d want cancelled=true run=15", rec.Cancelled, rec.TrialsRun)
	}
}

func TestSimulatorFallsBackWithoutDistribution(t *testing.T) {
	t.Parallel()

	squad := spreadSquad(t)
	squad[0].Distribution = nil

	sim := NewSimulator(simulatorConfig())
	rec, err := sim.Run(t.Context(), SimulationInput{Squad: squad, Trials: 10})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, p := range rec.Players {
		if p.PlayerID == squad[0].Member.PlayerID && p.ExpectedPoints != fallbackTrialScore {
			t.Fatalf("unexpected fallback expectation: got=%v want=%v", p.ExpectedPoints, float64(fallbackTrialScore))
		}
	}
}
