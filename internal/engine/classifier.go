package engine

import (
	"sort"

	"github.com/riskibarqy/fpl-predictor/internal/domain/player"
	"github.com/riskibarqy/fpl-predictor/internal/domain/tier"
)

// maxGoalsPerMatch caps reconstructed team scores so one freak result does
// not dominate a tier average.
const maxGoalsPerMatch = 5

// unknownPosition is assumed for teams missing from the table.
const unknownPosition = 10

// TeamRecord accumulates match results reconstructed from player history.
type TeamRecord struct {
	Games        int `json:"games"`
	GoalsFor     int `json:"goals_for"`
	GoalsAgainst int `json:"goals_against"`
	CleanSheets  int `json:"clean_sheets"`
}

func (r TeamRecord) GoalsPerGame() float64 {
	if r.Games == 0 {
		return 0
	}
	return float64(r.GoalsFor) / float64(r.Games)
}

func (r TeamRecord) ConcededPerGame() float64 {
	if r.Games == 0 {
		return 0
	}
	return float64(r.GoalsAgainst) / float64(r.Games)
}

func (r TeamRecord) CleanSheetRate() float64 {
	if r.Games == 0 {
		return 0
	}
	return float64(r.CleanSheets) / float64(r.Games)
}

func (r *TeamRecord) add(m teamMatch) {
	r.Games++
	r.GoalsFor += m.goalsFor
	r.GoalsAgainst += m.goalsAgainst
	if m.cleanSheet {
		r.CleanSheets++
	}
}

// TeamAggregate is a team's record overall and against each opponent tier.
type TeamAggregate struct {
	TeamID  int64                 `json:"team_id"`
	Overall TeamRecord            `json:"overall"`
	ByTier  map[string]TeamRecord `json:"by_tier"`
}

// LeagueAverages are means over teams with at least one reconstructed match.
type LeagueAverages struct {
	GoalsPerGame    float64 `json:"goals_per_game"`
	ConcededPerGame float64 `json:"conceded_per_game"`
	CleanSheetRate  float64 `json:"clean_sheet_rate"`
}

// Strength expresses a tier relative to the league. Values above 1 mean a
// stronger attack, a tighter defence, or more clean sheets than average.
type Strength struct {
	Attack           float64 `json:"attack"`
	Defense          float64 `json:"defense"`
	CleanSheetFactor float64 `json:"clean_sheet_factor"`
}

// NeutralStrength is used when a tier has no data.
var NeutralStrength = Strength{Attack: 1, Defense: 1, CleanSheetFactor: 1}

type teamMatch struct {
	gameweek     int
	opponent     int64
	goalsFor     int
	goalsAgainst int
	cleanSheet   bool
}

// Classifier maps teams to tiers and tiers to strength indices.
type Classifier struct {
	tiers     tier.Set
	positions map[int64]int
	teams     map[int64]TeamAggregate
	league    LeagueAverages
	strength  map[string]Strength
}

// NewClassifier reconstructs team results from the players' history and
// derives tier strengths against the league average.
func NewClassifier(tiers tier.Set, positions map[int64]int, players []player.Player, minMinutes int) *Classifier {
	c := &Classifier{
		tiers:     tiers,
		positions: make(map[int64]int, len(positions)),
		teams:     make(map[int64]TeamAggregate),
		strength:  make(map[string]Strength, tiers.Len()),
	}
	for id, pos := range positions {
		if pos > 0 {
			c.positions[id] = pos
		}
	}

	byTeam := make(map[int64][]player.Player)
	for _, p := range players {
		byTeam[p.TeamID] = append(byTeam[p.TeamID], p)
	}
	for teamID := range c.positions {
		if _, ok := byTeam[teamID]; !ok {
			byTeam[teamID] = nil
		}
	}
	for teamID, squad := range byTeam {
		c.teams[teamID] = c.aggregateTeam(teamID, squad, minMinutes)
	}

	c.league = c.leagueAverages()
	for _, t := range tiers.Tiers() {
		c.strength[t.Key()] = c.tierStrength(t)
	}
	return c
}

func (c *Classifier) aggregateTeam(teamID int64, squad []player.Player, minMinutes int) TeamAggregate {
	byGameweek := make(map[int]*teamMatch)
	for _, p := range squad {
		for _, rec := range p.History {
			if rec.Minutes < minMinutes || rec.Minutes <= 0 {
				continue
			}
			m, ok := byGameweek[rec.Gameweek]
			if !ok {
				m = &teamMatch{gameweek: rec.Gameweek, opponent: rec.OpponentTeamID}
				byGameweek[rec.Gameweek] = m
			}
			m.goalsFor += rec.Goals
			if rec.GoalsConceded > m.goalsAgainst {
				m.goalsAgainst = rec.GoalsConceded
			}
			if rec.CleanSheet {
				m.cleanSheet = true
			}
		}
	}

	gameweeks := make([]int, 0, len(byGameweek))
	for gw := range byGameweek {
		gameweeks = append(gameweeks, gw)
	}
	sort.Ints(gameweeks)

	agg := TeamAggregate{TeamID: teamID, ByTier: make(map[string]TeamRecord)}
	for _, gw := range gameweeks {
		m := *byGameweek[gw]
		m.goalsFor = min(m.goalsFor, maxGoalsPerMatch)
		m.goalsAgainst = min(m.goalsAgainst, maxGoalsPerMatch)
		agg.Overall.add(m)

		key := c.TierOrMidTable(m.opponent).Key()
		rec := agg.ByTier[key]
		rec.add(m)
		agg.ByTier[key] = rec
	}
	return agg
}

func (c *Classifier) leagueAverages() LeagueAverages {
	var out LeagueAverages
	count := 0
	for _, agg := range c.teams {
		if agg.Overall.Games == 0 {
			continue
		}
		out.GoalsPerGame += agg.Overall.GoalsPerGame()
		out.ConcededPerGame += agg.Overall.ConcededPerGame()
		out.CleanSheetRate += agg.Overall.CleanSheetRate()
		count++
	}
	if count == 0 {
		return LeagueAverages{}
	}
	n := float64(count)
	return LeagueAverages{
		GoalsPerGame:    out.GoalsPerGame / n,
		ConcededPerGame: out.ConcededPerGame / n,
		CleanSheetRate:  out.CleanSheetRate / n,
	}
}

// tierStrength compares the teams sitting in t against the league.
func (c *Classifier) tierStrength(t tier.Tier) Strength {
	var gpg, cpg, csr float64
	count := 0
	for teamID, pos := range c.positions {
		if !t.Contains(pos) {
			continue
		}
		agg, ok := c.teams[teamID]
		if !ok || agg.Overall.Games == 0 {
			continue
		}
		gpg += agg.Overall.GoalsPerGame()
		cpg += agg.Overall.ConcededPerGame()
		csr += agg.Overall.CleanSheetRate()
		count++
	}
	if count == 0 {
		return NeutralStrength
	}
	n := float64(count)
	gpg, cpg, csr = gpg/n, cpg/n, csr/n

	return Strength{
		Attack:           ratioOrOne(gpg, c.league.GoalsPerGame),
		Defense:          ratioOrOne(c.league.ConcededPerGame, cpg),
		CleanSheetFactor: ratioOrOne(csr, c.league.CleanSheetRate),
	}
}

func ratioOrOne(num, den float64) float64 {
	if den <= 0 || num <= 0 {
		return 1
	}
	return num / den
}

// Tiers exposes the configured tier set.
func (c *Classifier) Tiers() tier.Set {
	return c.tiers
}

// Position returns the table position and whether the team is known.
func (c *Classifier) Position(teamID int64) (int, bool) {
	pos, ok := c.positions[teamID]
	return pos, ok
}

// TierOf returns the team's tier; unknown teams yield the zero Tier and false.
func (c *Classifier) TierOf(teamID int64) (tier.Tier, bool) {
	pos, ok := c.positions[teamID]
	if !ok {
		return tier.Tier{}, false
	}
	return c.tiers.ForPosition(pos), true
}

// TierOrMidTable substitutes the mid-table tier for unknown teams.
func (c *Classifier) TierOrMidTable(teamID int64) tier.Tier {
	if t, ok := c.TierOf(teamID); ok {
		return t
	}
	return c.tiers.MidTable()
}

// Difficulty rates an opponent on 0..1 where 1 is the league leader.
func (c *Classifier) Difficulty(teamID int64) float64 {
	size := c.tiers.LeagueSize()
	if size <= 0 {
		return 0.5
	}
	pos, ok := c.positions[teamID]
	if !ok {
		pos = unknownPosition
	}
	return float64(size+1-pos) / float64(size)
}

// Strength returns the tier's strength index; unknown tiers are neutral.
func (c *Classifier) Strength(t tier.Tier) Strength {
	if s, ok := c.strength[t.Key()]; ok {
		return s
	}
	return NeutralStrength
}

func (c *Classifier) Team(teamID int64) (TeamAggregate, bool) {
	agg, ok := c.teams[teamID]
	return agg, ok
}

func (c *Classifier) League() LeagueAverages {
	return c.league
}

// TierSummary describes one tier for display.
type TierSummary struct {
	Tier     tier.Tier `json:"tier"`
	TeamIDs  []int64   `json:"team_ids"`
	Strength Strength  `json:"strength"`
}

// Summary lists every tier with its member teams, ordered by table position.
func (c *Classifier) Summary() []TierSummary {
	out := make([]TierSummary, 0, c.tiers.Len())
	for _, t := range c.tiers.Tiers() {
		var members []int64
		for id, pos := range c.positions {
			if t.Contains(pos) {
				members = append(members, id)
			}
		}
		sort.Slice(members, func(i, j int) bool {
			return c.positions[members[i]] < c.positions[members[j]]
		})
		out = append(out, TierSummary{Tier: t, TeamIDs: members, Strength: c.Strength(t)})
	}
	return out
}
