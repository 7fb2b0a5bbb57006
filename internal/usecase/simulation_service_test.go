package usecase

import (
	"errors"
	"testing"

	"github.com/riskibarqy/fpl-predictor/internal/platform/cache"
	idgen "github.com/riskibarqy/fpl-predictor/internal/platform/id"
	"github.com/riskibarqy/fpl-predictor/internal/platform/logging"
)

func newSimulationService(t *testing.T) *SimulationService {
	t.Helper()
	snapshots := newSeededSnapshots(t)
	dists := NewDistributionService(snapshots, cache.NewStore(0), logging.NewNop())
	return NewSimulationService(snapshots, dists, &idgen.Sequence{Prefix: "run-"}, logging.NewNop())
}

func TestSimulationService_SimulateLineup(t *testing.T) {
	t.Parallel()

	svc := newSimulationService(t)
	rec, err := svc.SimulateLineup(t.Context(), SimulationRequest{PlayerIDs: clubOneSquad, Trials: 200})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.RunID != "run-1" {
		t.Fatalf("unexpected run id: got=%s want=%s", rec.RunID, "run-1")
	}
	if rec.TrialsRun != 200 || rec.TrialsDiscarded != 0 || rec.Cancelled {
		t.Fatalf("unexpected trial counts: %+v", rec)
	}
	if len(rec.StartingXI) != 11 || len(rec.Players) != 15 {
		t.Fatalf("unexpected shape: xi=%d players=%d", len(rec.StartingXI), len(rec.Players))
	}
	if rec.CaptainID == 0 || rec.CaptainID == rec.ViceCaptainID {
		t.Fatalf("unexpected captaincy: captain=%d vice=%d", rec.CaptainID, rec.ViceCaptainID)
	}
	for _, p := range rec.Players {
		if p.Name == "" {
			t.Fatalf("members must carry names: %+v", p)
		}
	}

	again, err := svc.SimulateLineup(t.Context(), SimulationRequest{PlayerIDs: clubOneSquad, Trials: 200})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if again.ExpectedPoints != rec.ExpectedPoints || again.RunID == rec.RunID {
		t.Fatalf("seeded runs must agree on outcome but not on id: first=%v second=%v", rec.ExpectedPoints, again.ExpectedPoints)
	}
}

func TestSimulationService_Formation(t *testing.T) {
	t.Parallel()

	svc := newSimulationService(t)
	rec, err := svc.SimulateLineup(t.Context(), SimulationRequest{PlayerIDs: clubOneSquad, Trials: 50, Formation: "5-3-2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Formation != "5-3-2" {
		t.Fatalf("unexpected formation: got=%s want=%s", rec.Formation, "5-3-2")
	}

	_, err = svc.SimulateLineup(t.Context(), SimulationRequest{PlayerIDs: clubOneSquad, Formation: "6-3-1"})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unexpected error: got=%v want=%v", err, ErrInvalidInput)
	}
}

func TestSimulationService_Errors(t *testing.T) {
	t.Parallel()

	svc := newSimulationService(t)
	withUnknown := append(append([]int64(nil), clubOneSquad[:14]...), 9999)

	tests := []struct {
		name string
		req  SimulationRequest
		want error
	}{
		{name: "unknown player", req: SimulationRequest{PlayerIDs: withUnknown}, want: ErrNotFound},
		{name: "negative trials", req: SimulationRequest{PlayerIDs: clubOneSquad, Trials: -1}, want: ErrInvalidInput},
		{name: "short squad", req: SimulationRequest{PlayerIDs: clubOneSquad[:5]}, want: ErrInvalidInput},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := svc.SimulateLineup(t.Context(), tc.req); !errors.Is(err, tc.want) {
				t.Fatalf("unexpected error: got=%v want=%v", err, tc.want)
			}
		})
	}
}
