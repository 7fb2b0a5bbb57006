package usecase

import (
	"errors"
	"testing"

	"github.com/riskibarqy/fpl-predictor/internal/domain/player"
	"github.com/riskibarqy/fpl-predictor/internal/platform/logging"
)

func newFreeAgentService(t *testing.T) *FreeAgentService {
	t.Helper()
	snapshots := newSeededSnapshots(t)
	return NewFreeAgentService(snapshots, NewDistributionService(snapshots, nil, logging.NewNop()), logging.NewNop())
}

func TestFreeAgentService_RankExcludesOwned(t *testing.T) {
	t.Parallel()

	svc := newFreeAgentService(t)
	ranked, err := svc.Rank(t.Context(), FreeAgentQuery{Owned: clubOneSquad})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ranked) != 300-len(clubOneSquad) {
		t.Fatalf("unexpected pool size: got=%d want=%d", len(ranked), 300-len(clubOneSquad))
	}
	for i, fa := range ranked {
		if fa.TeamID == 1 {
			t.Fatalf("owned player %d leaked into the pool", fa.PlayerID)
		}
		if fa.OverallRank != i+1 {
			t.Fatalf("unexpected rank: got=%d want=%d", fa.OverallRank, i+1)
		}
		if i > 0 && fa.ExpectedPoints > ranked[i-1].ExpectedPoints {
			t.Fatalf("pool must be ordered by expected points")
		}
	}
}

func TestFreeAgentService_PositionFilterAndTopN(t *testing.T) {
	t.Parallel()

	svc := newFreeAgentService(t)
	ranked, err := svc.Rank(t.Context(), FreeAgentQuery{Position: player.PositionGoalkeeper, TopN: 3})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(ranked) != 3 {
		t.Fatalf("unexpected size: got=%d want=%d", len(ranked), 3)
	}
	for _, fa := range ranked {
		if fa.Position != player.PositionGoalkeeper {
			t.Fatalf("unexpected position: %s", fa.Position)
		}
	}

	if _, err := svc.Rank(t.Context(), FreeAgentQuery{Position: "WING"}); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unexpected error: got=%v want=%v", err, ErrInvalidInput)
	}
}

func TestFreeAgentService_BestByPositionAndDifferentials(t *testing.T) {
	t.Parallel()

	svc := newFreeAgentService(t)
	best, err := svc.BestByPosition(t.Context(), nil, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, pos := range player.OrderedPositions {
		if len(best[pos]) != 5 {
			t.Fatalf("unexpected %s count: got=%d want=%d", pos, len(best[pos]), 5)
		}
	}

	diffs, err := svc.Differentials(t.Context(), nil, 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(diffs) != 10 {
		t.Fatalf("unexpected differentials size: got=%d want=%d", len(diffs), 10)
	}
	for i := 1; i < len(diffs); i++ {
		if diffs[i].Upside > diffs[i-1].Upside {
			t.Fatalf("differentials must be ordered by upside")
		}
	}

	if _, err := svc.Differentials(t.Context(), nil, 0); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("unexpected error: got=%v want=%v", err, ErrInvalidInput)
	}
}
