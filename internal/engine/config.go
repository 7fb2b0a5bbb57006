package engine

import (
	"fmt"
	"runtime"

	"github.com/riskibarqy/fpl-predictor/internal/domain/lineup"
	"github.com/riskibarqy/fpl-predictor/internal/domain/scoring"
	"github.com/riskibarqy/fpl-predictor/internal/domain/tier"
)

// Config carries every tunable of the prediction pipeline. The numeric
// defaults are empirical and safe to override.
type Config struct {
	// Aggregation.
	MinMinutes           int
	CleanSheetMinutes    int
	TierSaturationGames  int
	TierWeight           float64
	RecentGames          int
	FormWeight           float64
	ShrinkageHorizon     int
	RegressionFactor     float64
	PositionMeanMinGames int
	RotationWindow       int
	RecentGameweekHigh   int
	RecentGameweekMid    int

	// Form.
	FormAlpha      float64
	FormMinGames   int
	FormMaxWindow  int
	TrendThreshold float64

	// Distribution.
	OutlierThreshold       float64
	KernelBandwidth        float64
	MinDistributionSamples int
	OutlierPullRatio       float64
	OutlierDampingRate     float64
	MaxScore               int

	// Simulation.
	DefaultTrials     int
	MaxTrials         int
	SimulationWorkers int
	// SimulationSeed fixes the PRNG streams when non-zero.
	SimulationSeed uint64

	Tiers  tier.Set
	Bounds lineup.Bounds
	Rules  scoring.Rules
}

func DefaultConfig() Config {
	workers := runtime.NumCPU()
	if workers < 1 {
		workers = 1
	}
	return Config{
		MinMinutes:           10,
		CleanSheetMinutes:    60,
		TierSaturationGames:  5,
		TierWeight:           0.6,
		RecentGames:          5,
		FormWeight:           0.4,
		ShrinkageHorizon:     15,
		RegressionFactor:     0.7,
		PositionMeanMinGames: 3,
		RotationWindow:       10,
		RecentGameweekHigh:   18,
		RecentGameweekMid:    15,

		FormAlpha:      0.3,
		FormMinGames:   3,
		FormMaxWindow:  15,
		TrendThreshold: 0.25,

		OutlierThreshold:       2.5,
		KernelBandwidth:        1.0,
		MinDistributionSamples: 3,
		OutlierPullRatio:       0.7,
		OutlierDampingRate:     0.3,
		MaxScore:               20,

		DefaultTrials:     1000,
		MaxTrials:         20000,
		SimulationWorkers: workers,

		Tiers:  tier.DefaultSet(),
		Bounds: lineup.DefaultBounds(),
		Rules:  scoring.DefaultRules(),
	}
}

// Validate rejects configurations that indicate a setup bug.
func (c Config) Validate() error {
	if c.MinMinutes < 0 {
		return fmt.Errorf("min minutes must be >= 0")
	}
	if c.CleanSheetMinutes <= 0 {
		return fmt.Errorf("clean sheet minutes must be > 0")
	}
	if c.TierSaturationGames <= 0 || c.RecentGames <= 0 || c.ShrinkageHorizon <= 0 || c.RotationWindow <= 0 {
		return fmt.Errorf("game count windows must be > 0")
	}
	for name, w := range map[string]float64{
		"tier weight":        c.TierWeight,
		"form weight":        c.FormWeight,
		"regression factor":  c.RegressionFactor,
		"outlier pull ratio": c.OutlierPullRatio,
		"form alpha":         c.FormAlpha,
	} {
		if w < 0 || w > 1 {
			return fmt.Errorf("%s must be within 0..1", name)
		}
	}
	if c.FormAlpha == 0 {
		return fmt.Errorf("form alpha must be > 0")
	}
	if c.FormMinGames <= 0 || c.FormMaxWindow < c.FormMinGames {
		return fmt.Errorf("form window must satisfy 0 < min games <= max window")
	}
	if c.OutlierThreshold <= 0 || c.KernelBandwidth <= 0 || c.OutlierDampingRate < 0 {
		return fmt.Errorf("distribution smoothing parameters must be > 0")
	}
	if c.MinDistributionSamples <= 0 || c.MaxScore <= 0 {
		return fmt.Errorf("distribution sample and score limits must be > 0")
	}
	if c.DefaultTrials <= 0 || c.MaxTrials < c.DefaultTrials {
		return fmt.Errorf("trial budget must satisfy 0 < default <= max")
	}
	if c.SimulationWorkers <= 0 {
		return fmt.Errorf("simulation workers must be > 0")
	}
	if c.Tiers.Len() == 0 {
		return fmt.Errorf("%w: tier set is empty", tier.ErrInvalidTierSet)
	}
	if err := c.Bounds.Validate(); err != nil {
		return err
	}
	if err := c.Rules.Validate(); err != nil {
		return err
	}
	return nil
}
