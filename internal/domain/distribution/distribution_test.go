package distribution

import (
	"errors"
	"math"
	"testing"
)

func TestNewDerivesStatisticsFromMass(t *testing.T) {
	t.Parallel()

	d, err := New(map[int]float64{1: 0.25, 2: 0.5, 6: 0.25})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if math.Abs(d.Mean-2.75) > 1e-9 {
		t.Fatalf("unexpected mean: got=%v want=2.75", d.Mean)
	}
	if d.Mode != 2 {
		t.Fatalf("unexpected mode: got=%v want=2", d.Mode)
	}
	if d.Median != 2 {
		t.Fatalf("unexpected median: got=%v want=2", d.Median)
	}
	wantStd := math.Sqrt(0.25*math.Pow(1-2.75, 2) + 0.5*math.Pow(2-2.75, 2) + 0.25*math.Pow(6-2.75, 2))
	if math.Abs(d.StdDev-wantStd) > 1e-9 {
		t.Fatalf("unexpected std dev: got=%v want=%v", d.StdDev, wantStd)
	}
	if d.CI95.Low != 1 || d.CI95.High != 6 {
		t.Fatalf("unexpected ci95: got=%+v", d.CI95)
	}
	for i := 1; i < len(d.Masses); i++ {
		if d.Masses[i-1].Score >= d.Masses[i].Score {
			t.Fatalf("masses are not ascending: %+v", d.Masses)
		}
	}
}

func TestNewRejectsInvalidMass(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		probs map[int]float64
	}{
		{name: "empty", probs: map[int]float64{}},
		{name: "short of one", probs: map[int]float64{1: 0.5, 2: 0.4}},
		{name: "negative", probs: map[int]float64{1: 1.5, 2: -0.5}},
		{name: "nan", probs: map[int]float64{1: math.NaN()}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if _, err := New(tc.probs); !errors.Is(err, ErrInvalidDistribution) {
				t.Fatalf("unexpected error: got=%v want=%v", err, ErrInvalidDistribution)
			}
		})
	}
}

func TestSampleInverseCDF(t *testing.T) {
	t.Parallel()

	d, err := New(map[int]float64{0: 0.2, 3: 0.3, 8: 0.5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	tests := []struct {
		u    float64
		want int
	}{
		{u: 0, want: 0},
		{u: 0.19, want: 0},
		{u: 0.1999, want: 0},
		{u: 0.21, want: 3},
		{u: 0.49, want: 3},
		{u: 0.51, want: 8},
		{u: 0.999999, want: 8},
	}
	for _, tc := range tests {
		got, err := d.Sample(tc.u)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != tc.want {
			t.Fatalf("unexpected sample for u=%v: got=%d want=%d", tc.u, got, tc.want)
		}
	}

	if _, err := d.Sample(1); !errors.Is(err, ErrInvalidDistribution) {
		t.Fatalf("unexpected error for u=1: got=%v want=%v", err, ErrInvalidDistribution)
	}
	if _, err := (ScoreDistribution{}).Sample(0.5); !errors.Is(err, ErrInvalidDistribution) {
		t.Fatalf("unexpected error for empty distribution: got=%v", err)
	}
}

func TestPointDistribution(t *testing.T) {
	t.Parallel()

	d := Point(7)
	if d.Mean != 7 || d.StdDev != 0 || d.Upside(0.9) != 7 || d.Downside(0.1) != 7 {
		t.Fatalf("unexpected point distribution: %+v", d)
	}
	if got := d.Probability(7); got != 1 {
		t.Fatalf("unexpected probability: got=%v want=1", got)
	}
	if got := d.RangeProbability(0, 6); got != 0 {
		t.Fatalf("unexpected range probability: got=%v want=0", got)
	}
}
