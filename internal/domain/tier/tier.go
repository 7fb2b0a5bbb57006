package tier

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// DefaultLeagueSize is the number of table positions in the league.
const DefaultLeagueSize = 20

var ErrInvalidTierSet = errors.New("invalid tier set")

// Tier is an inclusive range of league positions.
type Tier struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Name  string `json:"name"`
}

func (t Tier) Contains(position int) bool {
	return position >= t.Start && position <= t.End
}

// IsZero reports the sentinel returned for unknown teams.
func (t Tier) IsZero() bool {
	return t.Start == 0 && t.End == 0
}

// Key is a stable identifier such as "9-12".
func (t Tier) Key() string {
	return strconv.Itoa(t.Start) + "-" + strconv.Itoa(t.End)
}

func (t Tier) String() string {
	if t.Name == "" {
		return t.Key()
	}
	return t.Name + " (" + t.Key() + ")"
}

// Set is an ordered list of disjoint tiers covering 1..LeagueSize.
type Set struct {
	tiers      []Tier
	leagueSize int
}

func DefaultTiers() []Tier {
	return []Tier{
		{Start: 1, End: 4, Name: "Top 4"},
		{Start: 5, End: 8, Name: "Upper Mid"},
		{Start: 9, End: 12, Name: "Mid Table"},
		{Start: 13, End: 16, Name: "Lower Mid"},
		{Start: 17, End: 20, Name: "Relegation"},
	}
}

// DefaultSet panics only if DefaultTiers is edited into an invalid shape.
func DefaultSet() Set {
	set, err := NewSet(DefaultTiers(), DefaultLeagueSize)
	if err != nil {
		panic(err)
	}
	return set
}

// NewSet validates that tiers partition 1..leagueSize with no gaps or overlaps.
func NewSet(tiers []Tier, leagueSize int) (Set, error) {
	if leagueSize <= 0 {
		return Set{}, fmt.Errorf("%w: league size must be > 0", ErrInvalidTierSet)
	}
	if len(tiers) == 0 {
		return Set{}, fmt.Errorf("%w: at least one tier is required", ErrInvalidTierSet)
	}

	sorted := make([]Tier, len(tiers))
	copy(sorted, tiers)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	next := 1
	for _, t := range sorted {
		if t.Start > t.End {
			return Set{}, fmt.Errorf("%w: tier %s starts after it ends", ErrInvalidTierSet, t.Key())
		}
		switch {
		case t.Start < next:
			return Set{}, fmt.Errorf("%w: tier %s overlaps position %d", ErrInvalidTierSet, t.Key(), t.Start)
		case t.Start > next:
			return Set{}, fmt.Errorf("%w: positions %d-%d are not covered", ErrInvalidTierSet, next, t.Start-1)
		}
		next = t.End + 1
	}
	if next-1 != leagueSize {
		return Set{}, fmt.Errorf("%w: tiers cover 1-%d, want 1-%d", ErrInvalidTierSet, next-1, leagueSize)
	}

	return Set{tiers: sorted, leagueSize: leagueSize}, nil
}

// ParseSet reads "1-4:Top 4,5-8:Upper Mid,..." style definitions.
func ParseSet(raw string, leagueSize int) (Set, error) {
	parts := strings.Split(raw, ",")
	tiers := make([]Tier, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		rangePart, name, _ := strings.Cut(part, ":")
		startRaw, endRaw, ok := strings.Cut(rangePart, "-")
		if !ok {
			return Set{}, fmt.Errorf("%w: malformed tier %q", ErrInvalidTierSet, part)
		}
		start, err := strconv.Atoi(strings.TrimSpace(startRaw))
		if err != nil {
			return Set{}, fmt.Errorf("%w: parse tier start %q: %v", ErrInvalidTierSet, part, err)
		}
		end, err := strconv.Atoi(strings.TrimSpace(endRaw))
		if err != nil {
			return Set{}, fmt.Errorf("%w: parse tier end %q: %v", ErrInvalidTierSet, part, err)
		}
		tiers = append(tiers, Tier{Start: start, End: end, Name: strings.TrimSpace(name)})
	}
	return NewSet(tiers, leagueSize)
}

func (s Set) LeagueSize() int {
	return s.leagueSize
}

func (s Set) Len() int {
	return len(s.tiers)
}

func (s Set) Tiers() []Tier {
	out := make([]Tier, len(s.tiers))
	copy(out, s.tiers)
	return out
}

// ForPosition returns the containing tier. Positions below 1 clamp to the
// first tier and positions past the league size clamp to the last.
func (s Set) ForPosition(position int) Tier {
	if len(s.tiers) == 0 {
		return Tier{}
	}
	if position < 1 {
		return s.tiers[0]
	}
	if position > s.leagueSize {
		return s.tiers[len(s.tiers)-1]
	}
	idx := sort.Search(len(s.tiers), func(i int) bool { return s.tiers[i].End >= position })
	return s.tiers[idx]
}

// MidTable is the tier holding the middle of the table.
func (s Set) MidTable() Tier {
	return s.ForPosition((s.leagueSize + 1) / 2)
}

// Index returns the position of t in the set, or -1.
func (s Set) Index(t Tier) int {
	for i, candidate := range s.tiers {
		if candidate.Start == t.Start && candidate.End == t.End {
			return i
		}
	}
	return -1
}
