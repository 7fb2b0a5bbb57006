package engine

import (
	"math"
	"sort"

	"github.com/riskibarqy/fpl-predictor/internal/domain/distribution"
	"github.com/riskibarqy/fpl-predictor/internal/domain/player"
	"github.com/riskibarqy/fpl-predictor/internal/domain/tier"
	"github.com/riskibarqy/fpl-predictor/internal/platform/stats"
)

const (
	recencyDecay       = 0.9
	sameVenueWeight    = 1.3
	sameTierWeight     = 1.5
	fullMatchWeight    = 1.2
	fullMatchMinutes   = 60
	minContextGames    = 2
	contextSaturation  = 5.0
	homeShift          = 0.3
	awayShift          = -0.2
	minMAD             = 0.5
	highScoreBandwidth = 1.5
	highScoreCutoff    = 10.0
	minKernelMass      = 0.001
	fallbackQuality    = 0.2
	defaultCentre      = 3
)

// fallbackTemplate spreads mass around a centre score when the sample is too
// small to smooth.
var fallbackTemplate = []struct {
	offset int
	mass   float64
}{
	{-2, 0.10}, {-1, 0.20}, {0, 0.30}, {1, 0.20},
	{2, 0.10}, {3, 0.05}, {4, 0.03}, {5, 0.02},
}

// DistributionContext is the fixture a distribution is conditioned on. A
// nil context builds the unconditional distribution.
type DistributionContext struct {
	OpponentTier tier.Tier
	IsHome       bool
}

// DistributionBuilder produces smoothed score distributions from history.
type DistributionBuilder struct {
	cfg        Config
	classifier *Classifier
}

func NewDistributionBuilder(cfg Config, classifier *Classifier) *DistributionBuilder {
	return &DistributionBuilder{cfg: cfg, classifier: classifier}
}

type observation struct {
	points  float64
	weight  float64
	home    bool
	tierKey string
	minutes int
}

// Build weights every appearance by recency and similarity to the fixture,
// dampens outliers, shifts for venue and opponent, then applies a Gaussian
// kernel over 0..MaxScore.
func (b *DistributionBuilder) Build(p player.Player, ctx *DistributionContext) (distribution.ScoreDistribution, error) {
	obs := b.observations(p, ctx)
	if len(obs) < b.cfg.MinDistributionSamples {
		values := make([]float64, len(obs))
		for i, o := range obs {
			values[i] = o.points
		}
		return fallbackDistribution(values)
	}

	shift := b.contextShift(obs, ctx)

	values := make([]float64, len(obs))
	weights := make([]float64, len(obs))
	for i, o := range obs {
		values[i] = o.points
		weights[i] = o.weight
	}
	normalise(weights)

	median := stats.WeightedMedian(values, weights)
	mad := max(stats.MAD(values, median), minMAD)
	threshold := b.cfg.OutlierThreshold

	adjusted := make([]float64, len(values))
	outliers := 0
	for i, v := range values {
		adjusted[i] = v
		dist := math.Abs(v-median) / mad
		if dist <= threshold {
			continue
		}
		outliers++
		weights[i] *= stats.Clamp(math.Exp(-b.cfg.OutlierDampingRate*(dist-threshold)), 0.1, 1)
		boundary := median + threshold*mad
		if v < median {
			boundary = max(median-threshold*mad, 0)
		}
		adjusted[i] = boundary*b.cfg.OutlierPullRatio + v*(1-b.cfg.OutlierPullRatio)
	}
	normalise(weights)

	mass := b.kernel(adjusted, weights, shift)
	if len(mass) == 0 {
		return fallbackDistribution(values)
	}

	d, err := distribution.New(mass)
	if err != nil {
		return distribution.ScoreDistribution{}, err
	}
	d.SampleSize = len(values)
	d.Outliers = outliers
	d.Quality = distributionQuality(values, outliers)
	return d, nil
}

// observations lists counted appearances most recent first with their base
// weight.
func (b *DistributionBuilder) observations(p player.Player, ctx *DistributionContext) []observation {
	played := make([]player.MatchRecord, 0, len(p.History))
	for _, rec := range p.History {
		if rec.Counts(b.cfg.MinMinutes) {
			played = append(played, rec)
		}
	}
	sort.SliceStable(played, func(i, j int) bool { return played[i].Gameweek > played[j].Gameweek })

	out := make([]observation, len(played))
	for i, rec := range played {
		o := observation{
			points:  float64(rec.TotalPoints),
			weight:  math.Pow(recencyDecay, float64(i)),
			home:    rec.WasHome,
			tierKey: b.classifier.TierOrMidTable(rec.OpponentTeamID).Key(),
			minutes: rec.Minutes,
		}
		if ctx != nil {
			if o.home == ctx.IsHome {
				o.weight *= sameVenueWeight
			}
			if !ctx.OpponentTier.IsZero() && o.tierKey == ctx.OpponentTier.Key() {
				o.weight *= sameTierWeight
			}
		}
		if o.minutes >= fullMatchMinutes {
			o.weight *= fullMatchWeight
		}
		out[i] = o
	}
	return out
}

// contextShift moves the centre toward what the player scores in matching
// fixtures, or applies a flat venue effect when those are too rare.
func (b *DistributionBuilder) contextShift(obs []observation, ctx *DistributionContext) float64 {
	if ctx == nil {
		return 0
	}
	var all, matching []float64
	for _, o := range obs {
		all = append(all, o.points)
		if o.home == ctx.IsHome && !ctx.OpponentTier.IsZero() && o.tierKey == ctx.OpponentTier.Key() {
			matching = append(matching, o.points)
		}
	}
	if len(matching) < minContextGames {
		if ctx.IsHome {
			return homeShift
		}
		return awayShift
	}
	confidence := min(float64(len(matching))/contextSaturation, 1)
	return (stats.Mean(matching) - stats.Mean(all)) * confidence
}

func (b *DistributionBuilder) kernel(values, weights []float64, shift float64) map[int]float64 {
	raw := make([]float64, b.cfg.MaxScore+1)
	total := 0.0
	for i, v := range values {
		centre := v + shift
		bandwidth := b.cfg.KernelBandwidth
		if centre > highScoreCutoff {
			bandwidth *= highScoreBandwidth
		}
		for score := range raw {
			d := (float64(score) - centre) / bandwidth
			contribution := weights[i] * math.Exp(-0.5*d*d)
			raw[score] += contribution
			total += contribution
		}
	}
	if total <= 0 {
		return nil
	}

	mass := make(map[int]float64, len(raw))
	kept := 0.0
	for score, v := range raw {
		p := v / total
		if p < minKernelMass {
			continue
		}
		mass[score] = p
		kept += p
	}
	if kept <= 0 {
		return nil
	}
	for score := range mass {
		mass[score] /= kept
	}
	return mass
}

func normalise(weights []float64) {
	total := stats.Sum(weights)
	if total <= 0 {
		return
	}
	for i := range weights {
		weights[i] /= total
	}
}

func distributionQuality(values []float64, outliers int) float64 {
	n := len(values)
	var size float64
	switch {
	case n >= 15:
		size = 0.5
	case n >= 10:
		size = 0.4
	case n >= 5:
		size = 0.3
	default:
		size = float64(n) * 0.1
	}

	cv := 1.0
	if mean := stats.Mean(values); mean > 0 {
		cv = stats.StdDev(values) / mean
	}
	outlierRatio := 0.0
	if n > 0 {
		outlierRatio = float64(outliers) / float64(n)
	}
	return min(size+max(0, 0.3-cv*0.15)+max(0, 0.2-outlierRatio*0.5), 1)
}

// fallbackDistribution centres a fixed template on the sample average.
func fallbackDistribution(values []float64) (distribution.ScoreDistribution, error) {
	centre := defaultCentre
	if len(values) > 0 {
		centre = max(int(stats.Mean(values)), 0)
	}

	mass := make(map[int]float64, len(fallbackTemplate))
	for _, t := range fallbackTemplate {
		mass[max(centre+t.offset, 0)] += t.mass
	}
	d, err := distribution.New(mass)
	if err != nil {
		return distribution.ScoreDistribution{}, err
	}

	c := float64(centre)
	d.CI50 = distribution.Interval{Low: max(c-1, 0), High: c + 1}
	d.CI80 = distribution.Interval{Low: max(c-2, 0), High: c + 3}
	d.CI95 = distribution.Interval{Low: max(c-3, 0), High: c + 5}
	d.Quality = fallbackQuality
	d.SampleSize = len(values)
	d.Fallback = true
	return d, nil
}
