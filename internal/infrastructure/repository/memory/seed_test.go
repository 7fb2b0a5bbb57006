package memory

import (
	"testing"

	"github.com/riskibarqy/fpl-predictor/internal/domain/fixture"
	"github.com/riskibarqy/fpl-predictor/internal/domain/player"
)

func TestSeedIsConsistent(t *testing.T) {
	t.Parallel()

	teams := SeedTeams()
	if len(teams) != 20 {
		t.Fatalf("unexpected team count: got=%d want=%d", len(teams), 20)
	}
	for _, tm := range teams {
		if err := tm.Validate(); err != nil {
			t.Fatalf("invalid seed team %d: %v", tm.ID, err)
		}
	}

	players := SeedPlayers()
	if len(players) != 20*15 {
		t.Fatalf("unexpected player count: got=%d want=%d", len(players), 300)
	}
	for _, p := range players {
		if err := p.Validate(); err != nil {
			t.Fatalf("invalid seed player %d: %v", p.ID, err)
		}
	}

	fixtures := SeedFixtures()
	perGameweek := make(map[int]map[int64]bool)
	for _, f := range fixtures {
		if err := f.Validate(); err != nil {
			t.Fatalf("invalid seed fixture %d: %v", f.ID, err)
		}
		if perGameweek[f.Gameweek] == nil {
			perGameweek[f.Gameweek] = make(map[int64]bool)
		}
		for _, id := range []int64{f.HomeTeamID, f.AwayTeamID} {
			if perGameweek[f.Gameweek][id] {
				t.Fatalf("team %d plays twice in gameweek %d", id, f.Gameweek)
			}
			perGameweek[f.Gameweek][id] = true
		}
	}
	if next := fixture.NextByTeam(fixtures); len(next) != 20 {
		t.Fatalf("every team needs a scheduled fixture: got=%d", len(next))
	}

	goals := make(map[[2]int64]int)
	for _, r := range SeedMatchRecords() {
		if err := r.Validate(); err != nil {
			t.Fatalf("invalid seed record: %v", err)
		}
		goals[[2]int64{int64(r.Gameweek), r.PlayerID / 100}] += r.Goals
	}
	for _, f := range fixtures {
		if !f.Finished {
			continue
		}
		if got := goals[[2]int64{int64(f.Gameweek), f.HomeTeamID}]; got != *f.HomeScore {
			t.Fatalf("home goals disagree in fixture %d: got=%d want=%d", f.ID, got, *f.HomeScore)
		}
	}
}

func TestPlayerRepositoryReplaceMatchRecords(t *testing.T) {
	t.Parallel()

	repo := NewPlayerRepository([]player.Player{{ID: 1, TeamID: 1, Name: "A", Position: player.PositionForward}}, []player.MatchRecord{
		{PlayerID: 1, Gameweek: 2, Minutes: 90},
		{PlayerID: 1, Gameweek: 1, Minutes: 90},
	})

	records, err := repo.ListMatchRecords(t.Context(), []int64{1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(records) != 2 || records[0].Gameweek != 1 {
		t.Fatalf("records must be ordered by gameweek: %+v", records)
	}

	if err := repo.ReplaceMatchRecords(t.Context(), 1, []player.MatchRecord{{Gameweek: 5, Minutes: 30}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	records, _ = repo.ListMatchRecords(t.Context(), []int64{1})
	if len(records) != 1 || records[0].PlayerID != 1 || records[0].Gameweek != 5 {
		t.Fatalf("unexpected replaced records: %+v", records)
	}
}
