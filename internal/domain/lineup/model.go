package lineup

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/riskibarqy/fpl-predictor/internal/domain/distribution"
	"github.com/riskibarqy/fpl-predictor/internal/domain/player"
)

var (
	ErrInvalidFormation    = errors.New("invalid formation")
	ErrInsufficientPlayers = errors.New("not enough players for a valid lineup")
)

// Range is an inclusive per-position count constraint.
type Range struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

func (r Range) Allows(n int) bool {
	return n >= r.Min && n <= r.Max
}

// Bounds describes a legal starting eleven.
type Bounds struct {
	Goalkeepers Range `json:"goalkeepers"`
	Defenders   Range `json:"defenders"`
	Midfielders Range `json:"midfielders"`
	Forwards    Range `json:"forwards"`
	Size        int   `json:"size"`
}

func DefaultBounds() Bounds {
	return Bounds{
		Goalkeepers: Range{Min: 1, Max: 1},
		Defenders:   Range{Min: 3, Max: 5},
		Midfielders: Range{Min: 2, Max: 5},
		Forwards:    Range{Min: 1, Max: 3},
		Size:        11,
	}
}

func (b Bounds) For(pos player.Position) Range {
	switch pos {
	case player.PositionGoalkeeper:
		return b.Goalkeepers
	case player.PositionDefender:
		return b.Defenders
	case player.PositionMidfielder:
		return b.Midfielders
	case player.PositionForward:
		return b.Forwards
	default:
		return Range{}
	}
}

// Validate fails when no lineup could ever satisfy the bounds.
func (b Bounds) Validate() error {
	if b.Size <= 0 {
		return fmt.Errorf("%w: lineup size must be > 0", ErrInvalidFormation)
	}
	minSum, maxSum := 0, 0
	for _, pos := range player.OrderedPositions {
		r := b.For(pos)
		if r.Min < 0 || r.Max < r.Min {
			return fmt.Errorf("%w: %s range %d-%d", ErrInvalidFormation, pos, r.Min, r.Max)
		}
		minSum += r.Min
		maxSum += r.Max
	}
	if minSum > b.Size {
		return fmt.Errorf("%w: position minimums need %d players, lineup has %d", ErrInvalidFormation, minSum, b.Size)
	}
	if maxSum < b.Size {
		return fmt.Errorf("%w: position maximums allow %d players, lineup needs %d", ErrInvalidFormation, maxSum, b.Size)
	}
	return nil
}

// Formation is a concrete per-position count.
type Formation struct {
	Goalkeepers int `json:"goalkeepers"`
	Defenders   int `json:"defenders"`
	Midfielders int `json:"midfielders"`
	Forwards    int `json:"forwards"`
}

func (f Formation) Count(pos player.Position) int {
	switch pos {
	case player.PositionGoalkeeper:
		return f.Goalkeepers
	case player.PositionDefender:
		return f.Defenders
	case player.PositionMidfielder:
		return f.Midfielders
	case player.PositionForward:
		return f.Forwards
	default:
		return 0
	}
}

func (f Formation) Total() int {
	return f.Goalkeepers + f.Defenders + f.Midfielders + f.Forwards
}

// String renders outfield counts as "D-M-F".
func (f Formation) String() string {
	return fmt.Sprintf("%d-%d-%d", f.Defenders, f.Midfielders, f.Forwards)
}

// Allows reports whether f is a legal shape under b.
func (b Bounds) Allows(f Formation) bool {
	return f.Total() == b.Size &&
		b.Goalkeepers.Allows(f.Goalkeepers) &&
		b.Defenders.Allows(f.Defenders) &&
		b.Midfielders.Allows(f.Midfielders) &&
		b.Forwards.Allows(f.Forwards)
}

// Formations enumerates every legal shape, ordered by defenders then midfielders.
func (b Bounds) Formations() []Formation {
	var out []Formation
	for g := b.Goalkeepers.Min; g <= b.Goalkeepers.Max; g++ {
		for d := b.Defenders.Min; d <= b.Defenders.Max; d++ {
			for m := b.Midfielders.Min; m <= b.Midfielders.Max; m++ {
				f := b.Size - g - d - m
				if b.Forwards.Allows(f) {
					out = append(out, Formation{Goalkeepers: g, Defenders: d, Midfielders: m, Forwards: f})
				}
			}
		}
	}
	return out
}

// ParseFormation reads "D-M-F" and checks it against b. The goalkeeper count
// is the minimum the bounds allow.
func (b Bounds) ParseFormation(raw string) (Formation, error) {
	parts := strings.Split(strings.TrimSpace(raw), "-")
	if len(parts) != 3 {
		return Formation{}, fmt.Errorf("%w: %q is not D-M-F", ErrInvalidFormation, raw)
	}
	counts := make([]int, 3)
	for i, part := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return Formation{}, fmt.Errorf("%w: %q: %v", ErrInvalidFormation, raw, err)
		}
		counts[i] = n
	}
	f := Formation{
		Goalkeepers: b.Goalkeepers.Min,
		Defenders:   counts[0],
		Midfielders: counts[1],
		Forwards:    counts[2],
	}
	if !b.Allows(f) {
		return Formation{}, fmt.Errorf("%w: %s is outside the lineup bounds", ErrInvalidFormation, f)
	}
	return f, nil
}

// SquadMember is the minimal identity the lineup solvers need.
type SquadMember struct {
	PlayerID int64           `json:"player_id"`
	Name     string          `json:"name"`
	TeamID   int64           `json:"team_id"`
	Position player.Position `json:"position"`
}

// PlayerRate is one squad member's outcome across a simulation run.
type PlayerRate struct {
	SquadMember
	SelectionRate  float64               `json:"selection_rate"`
	CaptainRate    float64               `json:"captain_rate"`
	ExpectedPoints float64               `json:"expected_points"`
	CI80           distribution.Interval `json:"ci_80"`
	FormTrend      string                `json:"form_trend,omitempty"`
	FormEWMA       float64               `json:"form_ewma"`
}

// Recommendation is the ephemeral output of one Monte Carlo run.
type Recommendation struct {
	RunID           string                `json:"run_id"`
	Players         []PlayerRate          `json:"players"`
	StartingXI      []int64               `json:"starting_xi"`
	Formation       string                `json:"formation"`
	CaptainID       int64                 `json:"captain_id"`
	ViceCaptainID   int64                 `json:"vice_captain_id"`
	ExpectedPoints  float64               `json:"expected_points"`
	StdDev          float64               `json:"std_dev"`
	Interval80      distribution.Interval `json:"interval_80"`
	TrialsRequested int                   `json:"trials_requested"`
	TrialsRun       int                   `json:"trials_run"`
	TrialsDiscarded int                   `json:"trials_discarded"`
	SquadSize       int                   `json:"squad_size"`
	Cancelled       bool                  `json:"cancelled"`
}
