// Package stats holds the small robust-statistics helpers shared by the
// prediction engine. Every helper returns a neutral value on empty or
// degenerate input instead of dividing by zero.
package stats

import (
	"math"
	"sort"
)

// MADScale converts a raw median absolute deviation into a consistent
// estimator of the standard deviation for normally distributed data.
const MADScale = 1.4826

func Sum(values []float64) float64 {
	total := 0.0
	for _, v := range values {
		total += v
	}
	return total
}

func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	return Sum(values) / float64(len(values))
}

func Median(values []float64) float64 {
	n := len(values)
	if n == 0 {
		return 0
	}
	sorted := sortedCopy(values)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// WeightedMedian returns the smallest value whose cumulative normalised
// weight reaches one half.
func WeightedMedian(values, weights []float64) float64 {
	if len(values) == 0 || len(values) != len(weights) {
		return 0
	}
	type pair struct{ v, w float64 }
	pairs := make([]pair, len(values))
	total := 0.0
	for i, v := range values {
		pairs[i] = pair{v: v, w: weights[i]}
		total += weights[i]
	}
	if total <= 0 {
		return Median(values)
	}
	sort.SliceStable(pairs, func(i, j int) bool {
		if pairs[i].v == pairs[j].v {
			return pairs[i].w < pairs[j].w
		}
		return pairs[i].v < pairs[j].v
	})
	cumulative := 0.0
	for _, p := range pairs {
		cumulative += p.w / total
		if cumulative >= 0.5 {
			return p.v
		}
	}
	return pairs[len(pairs)-1].v
}

// MAD is the scaled median absolute deviation around center.
func MAD(values []float64, center float64) float64 {
	if len(values) == 0 {
		return 0
	}
	deviations := make([]float64, len(values))
	for i, v := range values {
		deviations[i] = math.Abs(v - center)
	}
	return Median(deviations) * MADScale
}

// StdDev is the population standard deviation.
func StdDev(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	mean := Mean(values)
	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(values)))
}

// SampleStdDev uses the n-1 denominator and is 0 for fewer than two values.
func SampleStdDev(values []float64) float64 {
	if len(values) < 2 {
		return 0
	}
	mean := Mean(values)
	variance := 0.0
	for _, v := range values {
		d := v - mean
		variance += d * d
	}
	return math.Sqrt(variance / float64(len(values)-1))
}

func CoefficientOfVariation(values []float64) float64 {
	mean := Mean(values)
	if mean <= 0 {
		return 0
	}
	return StdDev(values) / mean
}

func Per90(total float64, minutes int) float64 {
	if minutes <= 0 {
		return 0
	}
	return total * 90 / float64(minutes)
}

func Blend(specific, overall, specificWeight float64) float64 {
	w := Clamp(specificWeight, 0, 1)
	return w*specific + (1-w)*overall
}

// ShrinkTowardMean pulls value toward mean by (1-n/horizon)*(1-regression)
// while n is below horizon.
func ShrinkTowardMean(value, mean float64, n, horizon int, regression float64) float64 {
	if horizon <= 0 || n >= horizon {
		return value
	}
	if n < 0 {
		n = 0
	}
	amount := (1 - float64(n)/float64(horizon)) * (1 - regression)
	return value + (mean-value)*amount
}

// Percentile reads the p-th fraction of an ascending slice by nearest rank
// (index int(p*n), clamped).
func Percentile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	idx := int(p * float64(n))
	if idx < 0 {
		idx = 0
	}
	if idx >= n {
		idx = n - 1
	}
	return sorted[idx]
}

func Clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func sortedCopy(values []float64) []float64 {
	out := make([]float64, len(values))
	copy(out, values)
	sort.Float64s(out)
	return out
}
