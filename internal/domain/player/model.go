package player

import (
	"fmt"
	"strings"
)

// Position represents the four fantasy position categories.
type Position string

const (
	PositionGoalkeeper Position = "GK"
	PositionDefender   Position = "DEF"
	PositionMidfielder Position = "MID"
	PositionForward    Position = "FWD"
)

var AllPositions = map[Position]struct{}{
	PositionGoalkeeper: {},
	PositionDefender:   {},
	PositionMidfielder: {},
	PositionForward:    {},
}

// OrderedPositions lists positions in lineup order.
var OrderedPositions = []Position{
	PositionGoalkeeper,
	PositionDefender,
	PositionMidfielder,
	PositionForward,
}

// PositionFromElementType maps the upstream element_type code (1-4).
func PositionFromElementType(code int) (Position, bool) {
	switch code {
	case 1:
		return PositionGoalkeeper, true
	case 2:
		return PositionDefender, true
	case 3:
		return PositionMidfielder, true
	case 4:
		return PositionForward, true
	default:
		return "", false
	}
}

// ParsePosition accepts position names in any case.
func ParsePosition(raw string) (Position, bool) {
	pos := Position(strings.ToUpper(strings.TrimSpace(raw)))
	if pos == "GKP" {
		pos = PositionGoalkeeper
	}
	_, ok := AllPositions[pos]
	return pos, ok
}

// ElementType is the inverse of PositionFromElementType.
func (p Position) ElementType() int {
	switch p {
	case PositionGoalkeeper:
		return 1
	case PositionDefender:
		return 2
	case PositionMidfielder:
		return 3
	case PositionForward:
		return 4
	default:
		return 0
	}
}

// Player is a selectable athlete together with its match history.
type Player struct {
	ID       int64
	TeamID   int64
	Name     string
	WebName  string
	Position Position
	// ChanceOfPlaying is the official availability percentage; nil means no
	// flag has been published.
	ChanceOfPlaying *int
	News            string
	TotalPoints     int
	PointsPerGame   float64
	Form            float64
	History         []MatchRecord
}

func (p Player) Validate() error {
	if p.ID <= 0 {
		return fmt.Errorf("player id is required")
	}
	if p.TeamID <= 0 {
		return fmt.Errorf("player team id is required")
	}
	if strings.TrimSpace(p.Name) == "" && strings.TrimSpace(p.WebName) == "" {
		return fmt.Errorf("player name is required")
	}
	if _, ok := AllPositions[p.Position]; !ok {
		return fmt.Errorf("invalid player position: %s", p.Position)
	}
	if p.ChanceOfPlaying != nil && (*p.ChanceOfPlaying < 0 || *p.ChanceOfPlaying > 100) {
		return fmt.Errorf("chance of playing must be within 0..100: %d", *p.ChanceOfPlaying)
	}

	return nil
}

// DisplayName prefers the short web name.
func (p Player) DisplayName() string {
	if strings.TrimSpace(p.WebName) != "" {
		return p.WebName
	}
	return p.Name
}

// AvailabilityFactor returns the chance of playing as a fraction and whether
// one was published.
func (p Player) AvailabilityFactor() (float64, bool) {
	if p.ChanceOfPlaying == nil {
		return 0, false
	}
	return float64(*p.ChanceOfPlaying) / 100, true
}

// MatchRecord is one player's participation in one past match.
type MatchRecord struct {
	PlayerID        int64
	Gameweek        int
	OpponentTeamID  int64
	WasHome         bool
	Minutes         int
	Goals           int
	Assists         int
	CleanSheet      bool
	GoalsConceded   int
	Saves           int
	PenaltiesSaved  int
	PenaltiesMissed int
	YellowCards     int
	RedCards        int
	OwnGoals        int
	Bonus           int
	BPS             int
	TotalPoints     int
}

func (r MatchRecord) Validate() error {
	if r.Gameweek <= 0 {
		return fmt.Errorf("match record gameweek must be > 0")
	}
	if r.Minutes < 0 || r.Minutes > 130 {
		return fmt.Errorf("match record minutes out of range: %d", r.Minutes)
	}
	if r.Goals < 0 || r.Assists < 0 || r.Saves < 0 || r.GoalsConceded < 0 {
		return fmt.Errorf("match record counters must be >= 0")
	}
	return nil
}

// Counts reports whether the appearance lasted long enough to be a scoring
// sample. Cameos under minMinutes are ignored, and so is a missed match even
// when minMinutes is zero.
func (r MatchRecord) Counts(minMinutes int) bool {
	return r.Minutes > 0 && r.Minutes >= minMinutes
}
