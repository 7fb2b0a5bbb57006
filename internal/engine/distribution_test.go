package engine

import (
	"math"
	"testing"

	"github.com/riskibarqy/fpl-predictor/internal/domain/distribution"
	"github.com/riskibarqy/fpl-predictor/internal/domain/player"
	"github.com/riskibarqy/fpl-predictor/internal/domain/prediction"
)

func newBuilder() *DistributionBuilder {
	cfg := DefaultConfig()
	return NewDistributionBuilder(cfg, NewClassifier(cfg.Tiers, standings(), nil, cfg.MinMinutes))
}

func TestBuildDistributionIsNormalised(t *testing.T) {
	t.Parallel()

	b := newBuilder()
	p := newPlayer(1, 1, player.PositionMidfielder, series(repeat(90, 12), []int{2, 6, 3, 2, 9, 2, 1, 5, 2, 13, 3, 2})...)

	d, err := b.Build(p, &DistributionContext{OpponentTier: b.cfg.Tiers.ForPosition(3), IsHome: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Fallback {
		t.Fatalf("twelve samples must not fall back")
	}
	if math.Abs(d.TotalMass()-1) > distribution.MassTolerance {
		t.Fatalf("mass must sum to one: got=%v", d.TotalMass())
	}
	for i, m := range d.Masses {
		if m.Score < 0 || m.Score > b.cfg.MaxScore {
			t.Fatalf("score out of range: %d", m.Score)
		}
		if i > 0 && m.Score <= d.Masses[i-1].Score {
			t.Fatalf("scores must ascend")
		}
	}
	if d.Quality <= 0 || d.Quality > 1 {
		t.Fatalf("quality out of range: %v", d.Quality)
	}
	if d.SampleSize != 12 {
		t.Fatalf("unexpected sample size: got=%d want=%d", d.SampleSize, 12)
	}
	if d.CI50.Low > d.CI80.Low || d.CI80.Low > d.CI95.Low || d.CI50.High < d.CI50.Low {
		t.Fatalf("intervals must nest: %+v %+v %+v", d.CI50, d.CI80, d.CI95)
	}
}

func TestBuildDistributionDampensOutliers(t *testing.T) {
	t.Parallel()

	b := newBuilder()
	p := newPlayer(1, 1, player.PositionDefender, series(repeat(90, 8), []int{2, 2, 2, 2, 2, 2, 2, 20})...)

	d, err := b.Build(p, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Outliers != 1 {
		t.Fatalf("unexpected outlier count: got=%d want=%d", d.Outliers, 1)
	}
	naive := (2.0*7 + 20) / 8
	if d.Mean >= naive {
		t.Fatalf("outlier must be dampened: mean=%v naive=%v", d.Mean, naive)
	}
	if d.Probability(20) > 0.01 {
		t.Fatalf("the raw outlier keeps too much mass: %v", d.Probability(20))
	}
}

func TestBuildDistributionFallback(t *testing.T) {
	t.Parallel()

	b := newBuilder()

	tests := []struct {
		name   string
		points []int
		centre float64
	}{
		{name: "no games", points: nil, centre: 3},
		{name: "two games", points: []int{4, 5}, centre: 4},
		{name: "low scorer", points: []int{1, 2}, centre: 1},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p := newPlayer(1, 1, player.PositionForward, series(repeat(90, len(tc.points)), tc.points)...)
			d, err := b.Build(p, nil)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !d.Fallback || d.Quality != fallbackQuality {
				t.Fatalf("expected fallback: %+v", d)
			}
			if math.Abs(d.TotalMass()-1) > distribution.MassTolerance {
				t.Fatalf("mass must sum to one: got=%v", d.TotalMass())
			}
			if d.CI80.Low != math.Max(tc.centre-2, 0) || d.CI80.High != tc.centre+3 {
				t.Fatalf("unexpected CI80: got=%+v centre=%v", d.CI80, tc.centre)
			}
			if d.Masses[0].Score < 0 {
				t.Fatalf("negative score in fallback")
			}
		})
	}
}

func TestBuildDistributionIgnoresCameos(t *testing.T) {
	t.Parallel()

	b := newBuilder()
	// Two full games and a five-minute cameo: the cameo is not a sample, so
	// two samples fall back to the template centred on 8.
	p := newPlayer(1, 1, player.PositionMidfielder, series([]int{90, 90, 5}, []int{8, 8, 1})...)

	d, err := b.Build(p, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !d.Fallback {
		t.Fatalf("cameo must not lift the sample over the fallback threshold: %+v", d)
	}
	if d.CI80.Low != 6 || d.CI80.High != 11 {
		t.Fatalf("fallback must centre on full games only: got=%+v want=6..11", d.CI80)
	}
}

func TestBuildDistributionVenueShift(t *testing.T) {
	t.Parallel()

	b := newBuilder()
	p := newPlayer(1, 1, player.PositionMidfielder, series(repeat(90, 10), repeat(5, 10))...)

	home, err := b.Build(p, &DistributionContext{IsHome: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	away, err := b.Build(p, &DistributionContext{IsHome: false})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if home.Mean <= away.Mean {
		t.Fatalf("home mean must exceed away mean without matching games: home=%v away=%v", home.Mean, away.Mean)
	}
}

func TestDistributionQuality(t *testing.T) {
	t.Parallel()

	steady := make([]float64, 15)
	for i := range steady {
		steady[i] = 5
	}
	if got := distributionQuality(steady, 0); got != 1 {
		t.Fatalf("large steady sample: got=%v want=%v", got, 1.0)
	}
	if got := distributionQuality([]float64{0, 0, 0}, 0); math.Abs(got-(0.3+0.15+0.2)) > 1e-9 {
		t.Fatalf("zero-mean sample: got=%v", got)
	}
}

func TestSnapshotDistributionUsesOpponentTier(t *testing.T) {
	t.Parallel()

	snap := mustSnapshot(t, DefaultConfig(), newPlayer(1, 1, player.PositionForward, series(repeat(90, 6), []int{2, 8, 2, 8, 2, 8})...))
	d, err := snap.Distribution(1, &prediction.FixtureContext{OpponentTeamID: 7, IsHome: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(d.TotalMass()-1) > distribution.MassTolerance {
		t.Fatalf("mass must sum to one: got=%v", d.TotalMass())
	}
	if _, err := snap.Distribution(2, nil); err == nil {
		t.Fatalf("expected error for unknown player")
	}
}
