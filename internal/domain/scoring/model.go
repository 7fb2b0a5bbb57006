package scoring

import (
	"errors"
	"fmt"

	"github.com/riskibarqy/fpl-predictor/internal/domain/player"
)

var ErrInvalidRules = errors.New("invalid scoring rules")

// PositionValues holds the position-dependent point values.
type PositionValues struct {
	Goal       float64 `json:"goal"`
	CleanSheet float64 `json:"clean_sheet"`
	// ConcededPenalty applies per ConcededPerPoint goals conceded; zero
	// disables the penalty for the position.
	ConcededPenalty float64 `json:"conceded_penalty"`
	// SavesCount enables the save-to-point conversion.
	SavesCount bool `json:"saves_count"`
}

// Rules is the league's point-value table.
type Rules struct {
	MinutesShort     float64 `json:"minutes_short"`
	MinutesFull      float64 `json:"minutes_full"`
	Assist           float64 `json:"assist"`
	SavesPerPoint    float64 `json:"saves_per_point"`
	PenaltySave      float64 `json:"penalty_save"`
	PenaltyMiss      float64 `json:"penalty_miss"`
	ConcededPerPoint float64 `json:"conceded_per_point"`
	YellowCard       float64 `json:"yellow_card"`
	RedCard          float64 `json:"red_card"`
	OwnGoal          float64 `json:"own_goal"`

	Positions map[player.Position]PositionValues `json:"positions"`
}

func DefaultRules() Rules {
	return Rules{
		MinutesShort:     1,
		MinutesFull:      2,
		Assist:           3,
		SavesPerPoint:    3,
		PenaltySave:      5,
		PenaltyMiss:      -2,
		ConcededPerPoint: 2,
		YellowCard:       -1,
		RedCard:          -3,
		OwnGoal:          -2,
		Positions: map[player.Position]PositionValues{
			player.PositionGoalkeeper: {Goal: 6, CleanSheet: 4, ConcededPenalty: -1, SavesCount: true},
			player.PositionDefender:   {Goal: 6, CleanSheet: 4, ConcededPenalty: -1},
			player.PositionMidfielder: {Goal: 5, CleanSheet: 1},
			player.PositionForward:    {Goal: 4},
		},
	}
}

// Validate fails when a position is missing or a divisor is not positive.
func (r Rules) Validate() error {
	for pos := range player.AllPositions {
		if _, ok := r.Positions[pos]; !ok {
			return fmt.Errorf("%w: position %s has no point values", ErrInvalidRules, pos)
		}
	}
	if r.SavesPerPoint <= 0 {
		return fmt.Errorf("%w: saves per point must be > 0", ErrInvalidRules)
	}
	if r.ConcededPerPoint <= 0 {
		return fmt.Errorf("%w: conceded goals per point must be > 0", ErrInvalidRules)
	}
	return nil
}

func (r Rules) For(pos player.Position) PositionValues {
	return r.Positions[pos]
}
