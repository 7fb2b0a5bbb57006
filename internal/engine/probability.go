package engine

import (
	"fmt"

	"github.com/riskibarqy/fpl-predictor/internal/domain/player"
	"github.com/riskibarqy/fpl-predictor/internal/domain/prediction"
	"github.com/riskibarqy/fpl-predictor/internal/domain/tier"
)

// Modeling constants. The ceilings are deliberate caps on sparse-sample
// rates, not numerical guards.
const (
	expectedMinutesShare = 70.0 / 90.0
	homeGoalFactor       = 1.1
	awayGoalFactor       = 0.9
	homeAssistFactor     = 1.08
	awayAssistFactor     = 0.92
	minPlayForAttack     = 0.1
	rotationPenalty      = 0.3
	cleanSheetCeiling    = 0.65
	fullMatchCeiling     = 0.95
	midfieldCleanSheet   = 0.7
	defaultGoalsPerTeam  = 1.4
	bonusCeiling         = 2.5
	yellowCeiling        = 0.4
	redCeiling           = 0.05
	rareEventCeiling     = 0.03
	penaltySaveCeiling   = 0.1
)

// ProbabilityModel turns aggregates and fixture context into event
// probabilities.
type ProbabilityModel struct {
	aggregator *Aggregator
	means      PositionMeans
	league     LeagueAverages
}

func NewProbabilityModel(aggregator *Aggregator, means PositionMeans, league LeagueAverages) *ProbabilityModel {
	return &ProbabilityModel{aggregator: aggregator, means: means, league: league}
}

// FixtureInput is the resolved opponent context for one prediction.
type FixtureInput struct {
	OpponentTier tier.Tier
	Strength     Strength
	IsHome       bool
}

// Calculate returns a validated probability set. Players without any
// qualifying appearance get position defaults.
func (m *ProbabilityModel) Calculate(p player.Player, agg PlayerAggregate, fx FixtureInput) (prediction.EventProbabilitySet, error) {
	var set prediction.EventProbabilitySet
	if agg.Overall.Games == 0 {
		set = fallbackProbabilities(p)
	} else {
		set = m.calculate(p, agg, fx)
	}
	if err := set.Validate(); err != nil {
		return prediction.EventProbabilitySet{}, fmt.Errorf("player %d: %w", p.ID, err)
	}
	return set, nil
}

func (m *ProbabilityModel) calculate(p player.Player, agg PlayerAggregate, fx FixtureInput) prediction.EventProbabilitySet {
	var set prediction.EventProbabilitySet
	set.Play60Plus, set.Play1To59, set.DoesNotPlay = playingTime(p, agg)

	weighted := func(stat Stat) float64 {
		return m.aggregator.WeightedStat(agg, fx.OpponentTier, stat, m.means.Get(p.Position, stat))
	}

	if set.PlayProbability() > minPlayForAttack {
		defense := fx.Strength.Defense
		if defense <= 0 {
			defense = 1
		}
		goalFactor, assistFactor := awayGoalFactor, awayAssistFactor
		if fx.IsHome {
			goalFactor, assistFactor = homeGoalFactor, homeAssistFactor
		}
		set.ExpectedGoals = nonNegative(weighted(StatGoalsPer90) * expectedMinutesShare / defense * goalFactor)
		set.ExpectedAssists = nonNegative(weighted(StatAssistsPer90) * expectedMinutesShare / defense * assistFactor)
	}

	switch p.Position {
	case player.PositionGoalkeeper, player.PositionDefender:
		set.CleanSheet = m.cleanSheet(agg, fx, weighted(StatCleanSheetRate))
		set.ExpectedConceded = m.goalsPerTeam() * positiveOrOne(fx.Strength.Attack)
	case player.PositionMidfielder:
		set.CleanSheet = m.cleanSheet(agg, fx, weighted(StatCleanSheetRate)) * midfieldCleanSheet
	}

	if p.Position == player.PositionGoalkeeper {
		set.ExpectedSaves = nonNegative(weighted(StatSavesPer90) * expectedMinutesShare * positiveOrOne(fx.Strength.Attack))
		set.PenaltySave = 0.01
		if agg.Overall.PenaltiesSaved > 0 {
			set.PenaltySave = min(0.02+0.005*float64(agg.Overall.PenaltiesSaved), penaltySaveCeiling)
		}
	}

	set.ExpectedBonus = expectedBonus(agg, set, p.Position)
	set.YellowCard = min(agg.Overall.YellowRate, yellowCeiling)
	set.RedCard = rareRate(agg.Overall.RedCards, agg.Overall.Games, redCeiling)
	set.OwnGoal = rareRate(agg.Overall.OwnGoals, agg.Overall.Games, rareEventCeiling)
	set.PenaltyMiss = rareRate(agg.Overall.PenaltiesMissed, agg.Overall.Games, rareEventCeiling)
	return set
}

// playingTime buckets average minutes, then discounts for rotation and any
// published availability.
func playingTime(p player.Player, agg PlayerAggregate) (float64, float64, float64) {
	avg := agg.Overall.AvgMinutes
	var full, partial float64
	switch {
	case avg >= 75:
		full, partial = 0.85, 0.10
	case avg >= 60:
		full, partial = 0.70, 0.20
	case avg >= 45:
		full, partial = 0.50, 0.30
	case avg >= 30:
		full, partial = 0.30, 0.40
	case avg >= 15:
		full, partial = 0.15, 0.45
	default:
		full, partial = 0.05, 0.35
	}

	full *= 1 - agg.RotationRisk*rotationPenalty
	if chance, ok := p.AvailabilityFactor(); ok {
		full *= chance
		partial *= chance
	}
	return full, partial, max(0, 1-full-partial)
}

func (m *ProbabilityModel) cleanSheet(agg PlayerAggregate, fx FixtureInput, rate float64) float64 {
	prob := min(rate/positiveOrOne(fx.Strength.Attack), cleanSheetCeiling)
	reach := 0.5
	if agg.Overall.Games > 0 {
		reach = min(float64(agg.Overall.TotalMinutes)/(float64(agg.Overall.Games)*90), fullMatchCeiling)
	}
	return nonNegative(prob * reach)
}

func (m *ProbabilityModel) goalsPerTeam() float64 {
	if m.league.GoalsPerGame > 0 {
		return m.league.GoalsPerGame
	}
	return defaultGoalsPerTeam
}

func expectedBonus(agg PlayerAggregate, set prediction.EventProbabilitySet, pos player.Position) float64 {
	factor := 1.0
	if set.ExpectedGoals > 0.3 {
		factor += set.ExpectedGoals * 0.5
	}
	if set.ExpectedAssists > 0.3 {
		factor += set.ExpectedAssists * 0.3
	}
	if (pos == player.PositionGoalkeeper || pos == player.PositionDefender) && set.CleanSheet > 0.3 {
		factor += set.CleanSheet * 0.2
	}
	return min(agg.Overall.AvgBonus*factor, bonusCeiling)
}

func rareRate(count, games int, ceiling float64) float64 {
	if games == 0 {
		return 0.01
	}
	if count > 0 {
		return min(float64(count)/float64(games), ceiling)
	}
	return 0.005
}

// fallbackProbabilities are league-default rates for players with no
// qualifying appearances.
func fallbackProbabilities(p player.Player) prediction.EventProbabilitySet {
	set := prediction.EventProbabilitySet{
		Play60Plus:    0.3,
		Play1To59:     0.2,
		DoesNotPlay:   0.5,
		YellowCard:    0.15,
		RedCard:       0.01,
		OwnGoal:       0.01,
		PenaltyMiss:   0.01,
		ExpectedBonus: 0.3,
	}
	if chance, ok := p.AvailabilityFactor(); ok {
		set.Play60Plus = chance * 0.7
		set.Play1To59 = chance * 0.3
		set.DoesNotPlay = 1 - chance
	}

	switch p.Position {
	case player.PositionGoalkeeper:
		set.CleanSheet = 0.25
		set.ExpectedSaves = 3.0
		set.PenaltySave = 0.01
		set.ExpectedConceded = defaultGoalsPerTeam
	case player.PositionDefender:
		set.ExpectedGoals = 0.05
		set.ExpectedAssists = 0.08
		set.CleanSheet = 0.25
		set.ExpectedConceded = defaultGoalsPerTeam
	case player.PositionMidfielder:
		set.ExpectedGoals = 0.12
		set.ExpectedAssists = 0.12
		set.CleanSheet = 0.15
	case player.PositionForward:
		set.ExpectedGoals = 0.25
		set.ExpectedAssists = 0.1
	}
	return set
}

func nonNegative(v float64) float64 {
	return max(v, 0)
}

func positiveOrOne(v float64) float64 {
	if v <= 0 {
		return 1
	}
	return v
}
