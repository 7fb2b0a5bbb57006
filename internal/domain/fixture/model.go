package fixture

import (
	"fmt"
	"sort"
	"time"

	"github.com/riskibarqy/fpl-predictor/internal/domain/prediction"
)

// Fixture is one scheduled or played league match.
type Fixture struct {
	ID         int64
	Gameweek   int
	HomeTeamID int64
	AwayTeamID int64
	KickoffAt  *time.Time
	Finished   bool
	HomeScore  *int
	AwayScore  *int
}

func (f Fixture) Validate() error {
	if f.ID <= 0 {
		return fmt.Errorf("fixture id is required")
	}
	if f.HomeTeamID <= 0 || f.AwayTeamID <= 0 {
		return fmt.Errorf("fixture %d needs both team ids", f.ID)
	}
	if f.HomeTeamID == f.AwayTeamID {
		return fmt.Errorf("fixture %d has the same team on both sides", f.ID)
	}
	return nil
}

// ContextFor returns the fixture from teamID's point of view.
func (f Fixture) ContextFor(teamID int64) (prediction.FixtureContext, bool) {
	switch teamID {
	case f.HomeTeamID:
		return prediction.FixtureContext{OpponentTeamID: f.AwayTeamID, IsHome: true}, true
	case f.AwayTeamID:
		return prediction.FixtureContext{OpponentTeamID: f.HomeTeamID, IsHome: false}, true
	default:
		return prediction.FixtureContext{}, false
	}
}

// NextByTeam maps every team to its earliest unfinished fixture. Blank
// gameweeks simply leave a team out.
func NextByTeam(fixtures []Fixture) map[int64]prediction.FixtureContext {
	pending := make([]Fixture, 0, len(fixtures))
	for _, f := range fixtures {
		if !f.Finished && f.Gameweek > 0 {
			pending = append(pending, f)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		if pending[i].Gameweek != pending[j].Gameweek {
			return pending[i].Gameweek < pending[j].Gameweek
		}
		return pending[i].ID < pending[j].ID
	})

	out := make(map[int64]prediction.FixtureContext)
	for _, f := range pending {
		for _, teamID := range []int64{f.HomeTeamID, f.AwayTeamID} {
			if _, ok := out[teamID]; ok {
				continue
			}
			if ctx, ok := f.ContextFor(teamID); ok {
				out[teamID] = ctx
			}
		}
	}
	return out
}
