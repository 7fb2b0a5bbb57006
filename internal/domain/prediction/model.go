package prediction

import (
	"errors"
	"fmt"
	"math"
	"reflect"

	"github.com/go-playground/validator/v10"

	"github.com/riskibarqy/fpl-predictor/internal/domain/player"
	"github.com/riskibarqy/fpl-predictor/internal/domain/tier"
)

var ErrInvalidProbability = errors.New("invalid event probability set")

// bucketTolerance absorbs float rounding when the minute buckets are summed.
const bucketTolerance = 1e-9

var validate = validator.New()

// EventProbabilitySet holds per-fixture probabilities and expected counts for
// every scoring event. Fields tagged lte=1 are probabilities; the rest are
// expected counts per match.
type EventProbabilitySet struct {
	Play60Plus  float64 `json:"play_60_plus" validate:"gte=0,lte=1"`
	Play1To59   float64 `json:"play_1_59" validate:"gte=0,lte=1"`
	DoesNotPlay float64 `json:"does_not_play" validate:"gte=0,lte=1"`

	ExpectedGoals    float64 `json:"expected_goals" validate:"gte=0"`
	ExpectedAssists  float64 `json:"expected_assists" validate:"gte=0"`
	CleanSheet       float64 `json:"clean_sheet" validate:"gte=0,lte=1"`
	ExpectedConceded float64 `json:"expected_conceded" validate:"gte=0"`
	ExpectedSaves    float64 `json:"expected_saves" validate:"gte=0"`
	PenaltySave      float64 `json:"penalty_save" validate:"gte=0,lte=1"`
	ExpectedBonus    float64 `json:"expected_bonus" validate:"gte=0"`
	YellowCard       float64 `json:"yellow_card" validate:"gte=0,lte=1"`
	RedCard          float64 `json:"red_card" validate:"gte=0,lte=1"`
	OwnGoal          float64 `json:"own_goal" validate:"gte=0,lte=1"`
	PenaltyMiss      float64 `json:"penalty_miss" validate:"gte=0,lte=1"`
}

// PlayProbability is the chance of any minutes.
func (s EventProbabilitySet) PlayProbability() float64 {
	return s.Play60Plus + s.Play1To59
}

func (s EventProbabilitySet) Validate() error {
	value := reflect.ValueOf(s)
	for i := 0; i < value.NumField(); i++ {
		f := value.Field(i).Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: %s is not finite", ErrInvalidProbability, value.Type().Field(i).Name)
		}
	}
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProbability, err)
	}
	if sum := s.Play60Plus + s.Play1To59 + s.DoesNotPlay; sum > 1+bucketTolerance {
		return fmt.Errorf("%w: minute buckets sum to %.6f", ErrInvalidProbability, sum)
	}
	return nil
}

// PointsBreakdown splits expected points per scoring event.
type PointsBreakdown struct {
	Playing      float64 `json:"playing"`
	Goals        float64 `json:"goals"`
	Assists      float64 `json:"assists"`
	CleanSheet   float64 `json:"clean_sheet"`
	Saves        float64 `json:"saves"`
	PenaltySaves float64 `json:"penalty_saves"`
	Conceded     float64 `json:"conceded"`
	Bonus        float64 `json:"bonus"`
	YellowCards  float64 `json:"yellow_cards"`
	RedCards     float64 `json:"red_cards"`
	OwnGoals     float64 `json:"own_goals"`
	PenaltyMiss  float64 `json:"penalty_miss"`
}

// Component is one named line of a breakdown.
type Component struct {
	Name   string  `json:"name"`
	Points float64 `json:"points"`
}

func (b PointsBreakdown) Components() []Component {
	return []Component{
		{Name: "playing", Points: b.Playing},
		{Name: "goals", Points: b.Goals},
		{Name: "assists", Points: b.Assists},
		{Name: "clean_sheet", Points: b.CleanSheet},
		{Name: "saves", Points: b.Saves},
		{Name: "penalty_saves", Points: b.PenaltySaves},
		{Name: "conceded", Points: b.Conceded},
		{Name: "bonus", Points: b.Bonus},
		{Name: "yellow_cards", Points: b.YellowCards},
		{Name: "red_cards", Points: b.RedCards},
		{Name: "own_goals", Points: b.OwnGoals},
		{Name: "penalty_miss", Points: b.PenaltyMiss},
	}
}

// Total is the sum of every component.
func (b PointsBreakdown) Total() float64 {
	total := 0.0
	for _, c := range b.Components() {
		total += c.Points
	}
	return total
}

// FixtureContext is what the caller knows about the next match.
type FixtureContext struct {
	OpponentTeamID int64 `json:"opponent_team_id" validate:"gt=0"`
	IsHome         bool  `json:"is_home"`
}

// Fixture is the resolved opponent description attached to a prediction.
type Fixture struct {
	OpponentTeamID   int64     `json:"opponent_team_id"`
	OpponentName     string    `json:"opponent_name"`
	OpponentShort    string    `json:"opponent_short"`
	OpponentPosition int       `json:"opponent_position"`
	OpponentTier     tier.Tier `json:"opponent_tier"`
	IsHome           bool      `json:"is_home"`
	Difficulty       float64   `json:"difficulty"`
}

// Prediction is the expected-points forecast for one player and fixture.
// Fixture is nil when no fixture was supplied. FormAdjustedPoints rescales
// ExpectedPoints by recent form.
type Prediction struct {
	PlayerID           int64               `json:"player_id"`
	PlayerName         string              `json:"player_name"`
	TeamID             int64               `json:"team_id"`
	Position           player.Position     `json:"position"`
	Fixture            *Fixture            `json:"fixture,omitempty"`
	Probabilities      EventProbabilitySet `json:"probabilities"`
	Breakdown          PointsBreakdown     `json:"breakdown"`
	ExpectedPoints     float64             `json:"expected_points"`
	FormAdjustedPoints float64             `json:"form_adjusted_points"`
	FormTrend          string              `json:"form_trend"`
	Confidence         float64             `json:"confidence"`
	SampleSize         int                 `json:"sample_size"`
	DataQuality        string              `json:"data_quality"`
	Warnings           []string            `json:"warnings"`
}

// SquadPrediction aggregates a whole squad.
type SquadPrediction struct {
	Predictions []Prediction `json:"predictions"`
	Starting    []Prediction `json:"starting"`
	Bench       []Prediction `json:"bench"`
	Formation   string       `json:"formation"`
	// TotalExpected sums the starting eleven only.
	TotalExpected float64 `json:"total_expected"`
}
