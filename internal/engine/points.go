package engine

import (
	"fmt"

	"github.com/riskibarqy/fpl-predictor/internal/domain/player"
	"github.com/riskibarqy/fpl-predictor/internal/domain/prediction"
	"github.com/riskibarqy/fpl-predictor/internal/domain/scoring"
)

const (
	WarningNoFixture     = "No fixture data available"
	WarningHighRisk      = "High risk of not playing"
	WarningRotation      = "Some rotation risk"
	WarningLowData       = "Low data quality"
	noHistoryConfidence  = 0.3
	injuryDoubtThreshold = 50
)

// PointsCalculator converts event probabilities into expected points.
type PointsCalculator struct {
	rules scoring.Rules
}

func NewPointsCalculator(rules scoring.Rules) *PointsCalculator {
	return &PointsCalculator{rules: rules}
}

// Breakdown prices every event for pos. Negative events contribute
// negative points.
func (c *PointsCalculator) Breakdown(pos player.Position, probs prediction.EventProbabilitySet) prediction.PointsBreakdown {
	values := c.rules.For(pos)
	b := prediction.PointsBreakdown{
		Playing:      probs.Play60Plus*c.rules.MinutesFull + probs.Play1To59*c.rules.MinutesShort,
		Goals:        probs.ExpectedGoals * values.Goal,
		Assists:      probs.ExpectedAssists * c.rules.Assist,
		CleanSheet:   probs.CleanSheet * values.CleanSheet,
		PenaltySaves: probs.PenaltySave * c.rules.PenaltySave,
		Bonus:        probs.ExpectedBonus,
		YellowCards:  probs.YellowCard * c.rules.YellowCard,
		RedCards:     probs.RedCard * c.rules.RedCard,
		OwnGoals:     probs.OwnGoal * c.rules.OwnGoal,
		PenaltyMiss:  probs.PenaltyMiss * c.rules.PenaltyMiss,
	}
	if values.SavesCount {
		b.Saves = probs.ExpectedSaves / c.rules.SavesPerPoint
	}
	if values.ConcededPenalty != 0 {
		b.Conceded = probs.ExpectedConceded / c.rules.ConcededPerPoint * values.ConcededPenalty * probs.Play60Plus
	}
	return b
}

// predictionWarnings flags the risks a manager should see next to a number.
func predictionWarnings(p player.Player, probs prediction.EventProbabilitySet, agg PlayerAggregate) []string {
	var warnings []string
	switch {
	case probs.DoesNotPlay > 0.5:
		warnings = append(warnings, WarningHighRisk)
	case probs.DoesNotPlay > 0.3:
		warnings = append(warnings, WarningRotation)
	}
	if p.News != "" {
		warnings = append(warnings, "News: "+p.News)
	}
	if p.ChanceOfPlaying != nil && *p.ChanceOfPlaying < injuryDoubtThreshold {
		warnings = append(warnings, fmt.Sprintf("Injury doubt: %d%% chance of playing", *p.ChanceOfPlaying))
	}
	if agg.QualityLabel == QualityLow {
		warnings = append(warnings, WarningLowData)
	}
	return warnings
}

func unknownOpponentWarning(teamID int64) string {
	return fmt.Sprintf("Unknown opponent %d, assuming a mid-table side", teamID)
}

// blankPrediction is returned when no fixture is known.
func blankPrediction(p player.Player, agg PlayerAggregate) prediction.Prediction {
	return prediction.Prediction{
		PlayerID:    p.ID,
		PlayerName:  p.DisplayName(),
		TeamID:      p.TeamID,
		Position:    p.Position,
		SampleSize:  agg.Overall.Games,
		DataQuality: agg.QualityLabel,
		FormTrend:   string(TrendStable),
		Warnings:    []string{WarningNoFixture},
	}
}

func confidenceFor(agg PlayerAggregate) float64 {
	if agg.Overall.Games == 0 {
		return noHistoryConfidence
	}
	return agg.DataQuality
}
