package memory

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/riskibarqy/fpl-predictor/internal/domain/fixture"
	"github.com/riskibarqy/fpl-predictor/internal/domain/player"
	"github.com/riskibarqy/fpl-predictor/internal/domain/team"
)

const (
	// SeedPlayedGameweeks is how many gameweeks of the demo season are final.
	SeedPlayedGameweeks = 12
	seedGameweeks       = 16
	seedRandomKey       = 2025
)

var seedClubs = []struct {
	name  string
	short string
}{
	{"Liverpool", "LIV"},
	{"Arsenal", "ARS"},
	{"Manchester City", "MCI"},
	{"Chelsea", "CHE"},
	{"Newcastle", "NEW"},
	{"Aston Villa", "AVL"},
	{"Nottingham Forest", "NFO"},
	{"Brighton", "BHA"},
	{"Bournemouth", "BOU"},
	{"Brentford", "BRE"},
	{"Fulham", "FUL"},
	{"Crystal Palace", "CRY"},
	{"Everton", "EVE"},
	{"West Ham", "WHU"},
	{"Manchester Utd", "MUN"},
	{"Wolves", "WOL"},
	{"Tottenham", "TOT"},
	{"Leicester", "LEI"},
	{"Ipswich", "IPS"},
	{"Southampton", "SOU"},
}

// squadShape lists how many players of each position a seeded club carries;
// the first starters of each position play most minutes.
var squadShape = []struct {
	position player.Position
	count    int
	starters int
}{
	{player.PositionGoalkeeper, 2, 1},
	{player.PositionDefender, 5, 4},
	{player.PositionMidfielder, 5, 4},
	{player.PositionForward, 3, 2},
}

// SeedTeams returns a twenty-club league in final-table order.
func SeedTeams() []team.Team {
	out := make([]team.Team, 0, len(seedClubs))
	for i, c := range seedClubs {
		out = append(out, team.Team{
			ID:        int64(i + 1),
			Name:      c.name,
			ShortName: c.short,
			Position:  i + 1,
			Strength:  5 - i/5,
		})
	}
	return out
}

// SeedFixtures builds a single round-robin slice of the season with the
// circle method. Fixtures up to SeedPlayedGameweeks are finished.
func SeedFixtures() []fixture.Fixture {
	teams := len(seedClubs)
	rotation := make([]int64, teams)
	for i := range rotation {
		rotation[i] = int64(i + 1)
	}

	kickoff := time.Date(2025, 8, 16, 14, 0, 0, 0, time.UTC)
	rng := rand.New(rand.NewPCG(seedRandomKey, 1))
	var out []fixture.Fixture
	id := int64(1)
	for gw := 1; gw <= seedGameweeks; gw++ {
		for i := 0; i < teams/2; i++ {
			home, away := rotation[i], rotation[teams-1-i]
			if gw%2 == 0 {
				home, away = away, home
			}
			at := kickoff.AddDate(0, 0, 7*(gw-1))
			f := fixture.Fixture{ID: id, Gameweek: gw, HomeTeamID: home, AwayTeamID: away, KickoffAt: &at}
			if gw <= SeedPlayedGameweeks {
				hs, as := seedScore(rng, home), seedScore(rng, away)
				f.Finished = true
				f.HomeScore, f.AwayScore = &hs, &as
			}
			out = append(out, f)
			id++
		}
		last := rotation[teams-1]
		copy(rotation[2:], rotation[1:teams-1])
		rotation[1] = last
	}
	return out
}

// seedScore favours stronger (lower id) clubs.
func seedScore(rng *rand.Rand, teamID int64) int {
	attack := 2.2 - float64(teamID)*0.06
	goals := 0
	for i := 0; i < 5; i++ {
		if rng.Float64() < attack/5 {
			goals++
		}
	}
	return goals
}

// SeedPlayers returns fifteen players per club. IDs are teamID*100+slot.
func SeedPlayers() []player.Player {
	var out []player.Player
	for _, t := range SeedTeams() {
		slot := 1
		for _, shape := range squadShape {
			for n := 1; n <= shape.count; n++ {
				p := player.Player{
					ID:       t.ID*100 + int64(slot),
					TeamID:   t.ID,
					Name:     fmt.Sprintf("%s %s %d", t.Name, shape.position, n),
					WebName:  fmt.Sprintf("%s-%s%d", t.ShortName, shape.position, n),
					Position: shape.position,
				}
				if slot == 15 && t.ID%4 == 0 {
					chance := 25
					p.ChanceOfPlaying = &chance
					p.News = "Hamstring injury - 25% chance of playing"
				}
				out = append(out, p)
				slot++
			}
		}
	}
	return out
}

// SeedMatchRecords derives per-player records from the finished seed
// fixtures so that team goals and player goals agree.
func SeedMatchRecords() []player.MatchRecord {
	byTeam := make(map[int64][]player.Player)
	for _, p := range SeedPlayers() {
		byTeam[p.TeamID] = append(byTeam[p.TeamID], p)
	}

	rng := rand.New(rand.NewPCG(seedRandomKey, 2))
	var out []player.MatchRecord
	for _, f := range SeedFixtures() {
		if !f.Finished {
			continue
		}
		out = append(out, seedTeamRecords(rng, f, f.HomeTeamID, byTeam[f.HomeTeamID], *f.HomeScore, *f.AwayScore, true)...)
		out = append(out, seedTeamRecords(rng, f, f.AwayTeamID, byTeam[f.AwayTeamID], *f.AwayScore, *f.HomeScore, false)...)
	}
	return out
}

func seedTeamRecords(rng *rand.Rand, f fixture.Fixture, teamID int64, squad []player.Player, scored, conceded int, home bool) []player.MatchRecord {
	opponent := f.AwayTeamID
	if !home {
		opponent = f.HomeTeamID
	}

	records := make([]player.MatchRecord, len(squad))
	var attackers []int
	seen := make(map[player.Position]int)
	for i, p := range squad {
		seen[p.Position]++
		rec := player.MatchRecord{
			PlayerID:       p.ID,
			Gameweek:       f.Gameweek,
			OpponentTeamID: opponent,
			WasHome:        home,
		}
		if seen[p.Position] <= startersFor(p.Position) {
			rec.Minutes = 90
			if rng.Float64() < 0.15 {
				rec.Minutes = 60 + rng.IntN(25)
			}
		} else if rng.Float64() < 0.3 {
			rec.Minutes = 5 + rng.IntN(30)
		}
		if rec.Minutes > 0 && p.Position != player.PositionGoalkeeper {
			attackers = append(attackers, i)
		}
		if rec.Minutes > 0 {
			rec.GoalsConceded = conceded
			rec.CleanSheet = conceded == 0 && rec.Minutes >= 60
			if rng.Float64() < 0.12 {
				rec.YellowCards = 1
			}
			if p.Position == player.PositionGoalkeeper {
				rec.Saves = rng.IntN(6)
			}
		}
		records[i] = rec
	}

	for g := 0; g < scored && len(attackers) > 0; g++ {
		scorer := attackers[weightedPick(rng, squad, attackers)]
		records[scorer].Goals++
		if rng.Float64() < 0.7 {
			assister := attackers[rng.IntN(len(attackers))]
			if assister != scorer {
				records[assister].Assists++
			}
		}
	}

	for i := range records {
		records[i].TotalPoints = seedPoints(squad[i].Position, records[i])
		if records[i].TotalPoints >= 8 {
			records[i].Bonus = 3
			records[i].TotalPoints += 3
		}
	}
	return records
}

func startersFor(pos player.Position) int {
	for _, s := range squadShape {
		if s.position == pos {
			return s.starters
		}
	}
	return 0
}

// weightedPick favours forwards, then midfielders, when choosing a scorer.
func weightedPick(rng *rand.Rand, squad []player.Player, candidates []int) int {
	weights := map[player.Position]float64{
		player.PositionForward:    5,
		player.PositionMidfielder: 3,
		player.PositionDefender:   1,
	}
	total := 0.0
	for _, idx := range candidates {
		total += weights[squad[idx].Position]
	}
	u := rng.Float64() * total
	for i, idx := range candidates {
		u -= weights[squad[idx].Position]
		if u <= 0 {
			return i
		}
	}
	return len(candidates) - 1
}

func seedPoints(pos player.Position, r player.MatchRecord) int {
	if r.Minutes == 0 {
		return 0
	}
	pts := 1
	if r.Minutes >= 60 {
		pts = 2
	}
	switch pos {
	case player.PositionGoalkeeper, player.PositionDefender:
		pts += 6*r.Goals - r.GoalsConceded/2 + r.Saves/3
		if r.CleanSheet {
			pts += 4
		}
	case player.PositionMidfielder:
		pts += 5 * r.Goals
		if r.CleanSheet {
			pts++
		}
	default:
		pts += 4 * r.Goals
	}
	return pts + 3*r.Assists - r.YellowCards
}
