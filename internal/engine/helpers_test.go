package engine

import (
	"fmt"
	"testing"

	"github.com/riskibarqy/fpl-predictor/internal/domain/player"
	"github.com/riskibarqy/fpl-predictor/internal/domain/team"
)

// leagueTeams returns twenty teams where team id equals table position.
func leagueTeams() []team.Team {
	teams := make([]team.Team, 0, 20)
	for i := int64(1); i <= 20; i++ {
		teams = append(teams, team.Team{
			ID:        i,
			Name:      fmt.Sprintf("Team %d", i),
			ShortName: fmt.Sprintf("T%02d", i),
			Position:  int(i),
			Strength:  int(21 - i),
		})
	}
	return teams
}

func standings() map[int64]int {
	out := make(map[int64]int, 20)
	for i := int64(1); i <= 20; i++ {
		out[i] = int(i)
	}
	return out
}

func newPlayer(id, teamID int64, pos player.Position, history ...player.MatchRecord) player.Player {
	for i := range history {
		history[i].PlayerID = id
	}
	return player.Player{
		ID:       id,
		TeamID:   teamID,
		Name:     fmt.Sprintf("Player %d", id),
		WebName:  fmt.Sprintf("P%d", id),
		Position: pos,
		History:  history,
	}
}

// played is a compact match record with just the fields most tests care
// about. Opponent ids cycle through the league.
func played(gameweek, minutes, points int) player.MatchRecord {
	return player.MatchRecord{
		Gameweek:       gameweek,
		OpponentTeamID: int64((gameweek-1)%19 + 2),
		WasHome:        gameweek%2 == 0,
		Minutes:        minutes,
		TotalPoints:    points,
	}
}

// series builds one record per gameweek from parallel minutes and points.
func series(minutes, points []int) []player.MatchRecord {
	out := make([]player.MatchRecord, len(minutes))
	for i := range minutes {
		out[i] = played(i+1, minutes[i], points[i])
	}
	return out
}

func repeat(v, n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func intPtr(v int) *int {
	return &v
}

func mustSnapshot(t *testing.T, cfg Config, players ...player.Player) *Snapshot {
	t.Helper()
	snap, err := NewSnapshot(cfg, SnapshotInput{
		Version:   "test",
		Teams:     leagueTeams(),
		Players:   players,
		Standings: standings(),
	})
	if err != nil {
		t.Fatalf("build snapshot: %v", err)
	}
	return snap
}

// regularSquad is a fifteen-man squad of regular starters with distinct
// scoring levels.
func regularSquad() []player.Player {
	shape := []struct {
		pos   player.Position
		count int
	}{
		{player.PositionGoalkeeper, 2},
		{player.PositionDefender, 5},
		{player.PositionMidfielder, 5},
		{player.PositionForward, 3},
	}
	var out []player.Player
	id := int64(1)
	for _, s := range shape {
		for i := 0; i < s.count; i++ {
			points := make([]int, 10)
			for gw := range points {
				points[gw] = 1 + int(id)%7 + gw%3
			}
			out = append(out, newPlayer(id, int64(1+id%20), s.pos, series(repeat(90, 10), points)...))
			id++
		}
	}
	return out
}
