package distribution

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// MassTolerance bounds how far total mass may drift from 1.
const MassTolerance = 1e-6

var ErrInvalidDistribution = errors.New("invalid score distribution")

// Mass is the probability of one integer score.
type Mass struct {
	Score       int     `json:"score"`
	Probability float64 `json:"probability"`
}

// Interval is an inclusive score range.
type Interval struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

// ScoreDistribution is a discrete probability mass over integer scores.
// Masses are ascending by score and sum to 1; the summary statistics are
// derived from them at construction. Treat the value as read-only.
type ScoreDistribution struct {
	Masses []Mass   `json:"probabilities"`
	Mean   float64  `json:"mean"`
	Median float64  `json:"median"`
	Mode   float64  `json:"mode"`
	StdDev float64  `json:"std_dev"`
	MAD    float64  `json:"mad"`
	CI50   Interval `json:"ci_50"`
	CI80   Interval `json:"ci_80"`
	CI95   Interval `json:"ci_95"`

	Quality    float64 `json:"quality"`
	SampleSize int     `json:"sample_size"`
	Outliers   int     `json:"outliers"`
	Fallback   bool    `json:"fallback"`

	cumulative []float64
}

// New validates probs and derives every summary statistic from it.
func New(probs map[int]float64) (ScoreDistribution, error) {
	if len(probs) == 0 {
		return ScoreDistribution{}, fmt.Errorf("%w: no mass", ErrInvalidDistribution)
	}

	masses := make([]Mass, 0, len(probs))
	total := 0.0
	for score, p := range probs {
		if math.IsNaN(p) || math.IsInf(p, 0) || p < 0 {
			return ScoreDistribution{}, fmt.Errorf("%w: score %d has probability %v", ErrInvalidDistribution, score, p)
		}
		if p == 0 {
			continue
		}
		masses = append(masses, Mass{Score: score, Probability: p})
		total += p
	}
	if math.Abs(total-1) > MassTolerance {
		return ScoreDistribution{}, fmt.Errorf("%w: mass sums to %.9f", ErrInvalidDistribution, total)
	}
	sort.Slice(masses, func(i, j int) bool { return masses[i].Score < masses[j].Score })

	d := ScoreDistribution{Masses: masses}
	d.cumulative = make([]float64, len(masses))
	running := 0.0
	for i, m := range masses {
		running += m.Probability
		d.cumulative[i] = running
	}
	// Pin the last bucket so inverse-CDF lookups never fall off the end.
	d.cumulative[len(d.cumulative)-1] = 1

	mean := 0.0
	modeIdx := 0
	for i, m := range masses {
		mean += float64(m.Score) * m.Probability
		if m.Probability > masses[modeIdx].Probability {
			modeIdx = i
		}
	}
	variance := 0.0
	for _, m := range masses {
		diff := float64(m.Score) - mean
		variance += m.Probability * diff * diff
	}

	d.Mean = mean
	d.StdDev = math.Sqrt(variance)
	d.Mode = float64(masses[modeIdx].Score)
	d.Median = d.Percentile(0.5)
	d.CI50 = d.interval(0.50)
	d.CI80 = d.interval(0.80)
	d.CI95 = d.interval(0.95)
	return d, nil
}

// Point is a degenerate distribution with all mass on one score.
func Point(score int) ScoreDistribution {
	d, _ := New(map[int]float64{score: 1})
	d.SampleSize = 1
	return d
}

// Probability returns the mass at score.
func (d ScoreDistribution) Probability(score int) float64 {
	idx := sort.Search(len(d.Masses), func(i int) bool { return d.Masses[i].Score >= score })
	if idx < len(d.Masses) && d.Masses[idx].Score == score {
		return d.Masses[idx].Probability
	}
	return 0
}

// RangeProbability sums mass over [low, high].
func (d ScoreDistribution) RangeProbability(low, high int) float64 {
	total := 0.0
	for _, m := range d.Masses {
		if m.Score >= low && m.Score <= high {
			total += m.Probability
		}
	}
	return total
}

// TotalMass sums the probability of every score.
func (d ScoreDistribution) TotalMass() float64 {
	total := 0.0
	for _, m := range d.Masses {
		total += m.Probability
	}
	return total
}

// Percentile returns the smallest score whose cumulative mass reaches p.
func (d ScoreDistribution) Percentile(p float64) float64 {
	if len(d.Masses) == 0 {
		return 0
	}
	return float64(d.Masses[d.search(p)].Score)
}

func (d ScoreDistribution) Upside(p float64) float64 {
	return d.Percentile(p)
}

func (d ScoreDistribution) Downside(p float64) float64 {
	return d.Percentile(p)
}

// Sample maps a uniform draw u in [0,1) to a score by inverse CDF.
func (d ScoreDistribution) Sample(u float64) (int, error) {
	if len(d.Masses) == 0 {
		return 0, fmt.Errorf("%w: cannot sample an empty distribution", ErrInvalidDistribution)
	}
	if math.IsNaN(u) || u < 0 || u >= 1 {
		return 0, fmt.Errorf("%w: uniform draw %v outside [0,1)", ErrInvalidDistribution, u)
	}
	return d.Masses[d.search(u)].Score, nil
}

func (d ScoreDistribution) search(p float64) int {
	cumulative := d.cumulative
	if len(cumulative) != len(d.Masses) {
		cumulative = make([]float64, len(d.Masses))
		running := 0.0
		for i, m := range d.Masses {
			running += m.Probability
			cumulative[i] = running
		}
	}
	idx := sort.SearchFloat64s(cumulative, p)
	if idx >= len(d.Masses) {
		idx = len(d.Masses) - 1
	}
	return idx
}

func (d ScoreDistribution) interval(confidence float64) Interval {
	lower := (1 - confidence) / 2
	return Interval{
		Low:  d.Percentile(lower),
		High: d.Percentile(1 - lower),
	}
}
