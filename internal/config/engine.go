package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/riskibarqy/fpl-predictor/internal/domain/tier"
	"github.com/riskibarqy/fpl-predictor/internal/engine"
)

// loadEngine overlays ENGINE_* variables on engine.DefaultConfig and
// validates the result, so a broken tier table or trial budget stops startup.
func loadEngine() (engine.Config, error) {
	cfg := engine.DefaultConfig()

	ints := []struct {
		key string
		dst *int
	}{
		{"ENGINE_MIN_MINUTES", &cfg.MinMinutes},
		{"ENGINE_CLEAN_SHEET_MINUTES", &cfg.CleanSheetMinutes},
		{"ENGINE_TIER_SATURATION_GAMES", &cfg.TierSaturationGames},
		{"ENGINE_RECENT_GAMES", &cfg.RecentGames},
		{"ENGINE_SHRINKAGE_HORIZON", &cfg.ShrinkageHorizon},
		{"ENGINE_POSITION_MEAN_MIN_GAMES", &cfg.PositionMeanMinGames},
		{"ENGINE_ROTATION_WINDOW", &cfg.RotationWindow},
		{"ENGINE_RECENT_GAMEWEEK_HIGH", &cfg.RecentGameweekHigh},
		{"ENGINE_RECENT_GAMEWEEK_MID", &cfg.RecentGameweekMid},
		{"ENGINE_FORM_MIN_GAMES", &cfg.FormMinGames},
		{"ENGINE_FORM_MAX_WINDOW", &cfg.FormMaxWindow},
		{"ENGINE_MIN_DISTRIBUTION_SAMPLES", &cfg.MinDistributionSamples},
		{"ENGINE_MAX_SCORE", &cfg.MaxScore},
		{"ENGINE_DEFAULT_TRIALS", &cfg.DefaultTrials},
		{"ENGINE_MAX_TRIALS", &cfg.MaxTrials},
		{"ENGINE_SIMULATION_WORKERS", &cfg.SimulationWorkers},
	}
	for _, item := range ints {
		value, err := getEnvAsInt(item.key, *item.dst)
		if err != nil {
			return engine.Config{}, fmt.Errorf("parse %s: %w", item.key, err)
		}
		*item.dst = value
	}

	floats := []struct {
		key string
		dst *float64
	}{
		{"ENGINE_TIER_WEIGHT", &cfg.TierWeight},
		{"ENGINE_FORM_WEIGHT", &cfg.FormWeight},
		{"ENGINE_REGRESSION_FACTOR", &cfg.RegressionFactor},
		{"ENGINE_FORM_ALPHA", &cfg.FormAlpha},
		{"ENGINE_TREND_THRESHOLD", &cfg.TrendThreshold},
		{"ENGINE_OUTLIER_THRESHOLD", &cfg.OutlierThreshold},
		{"ENGINE_KERNEL_BANDWIDTH", &cfg.KernelBandwidth},
		{"ENGINE_OUTLIER_PULL_RATIO", &cfg.OutlierPullRatio},
		{"ENGINE_OUTLIER_DAMPING_RATE", &cfg.OutlierDampingRate},
	}
	for _, item := range floats {
		value, err := getEnvAsFloat(item.key, *item.dst)
		if err != nil {
			return engine.Config{}, fmt.Errorf("parse %s: %w", item.key, err)
		}
		*item.dst = value
	}

	if raw := strings.TrimSpace(getEnv("ENGINE_SIMULATION_SEED", "")); raw != "" {
		seed, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return engine.Config{}, fmt.Errorf("parse ENGINE_SIMULATION_SEED: %w", err)
		}
		cfg.SimulationSeed = seed
	}

	leagueSize, err := getEnvAsInt("ENGINE_LEAGUE_SIZE", cfg.Tiers.LeagueSize())
	if err != nil {
		return engine.Config{}, fmt.Errorf("parse ENGINE_LEAGUE_SIZE: %w", err)
	}
	if raw := strings.TrimSpace(getEnv("ENGINE_TIERS", "")); raw != "" {
		tiers, err := tier.ParseSet(raw, leagueSize)
		if err != nil {
			return engine.Config{}, fmt.Errorf("parse ENGINE_TIERS: %w", err)
		}
		cfg.Tiers = tiers
	} else if leagueSize != cfg.Tiers.LeagueSize() {
		return engine.Config{}, fmt.Errorf("ENGINE_TIERS is required when ENGINE_LEAGUE_SIZE=%d", leagueSize)
	}

	if err := cfg.Validate(); err != nil {
		return engine.Config{}, fmt.Errorf("invalid engine config: %w", err)
	}
	return cfg, nil
}
