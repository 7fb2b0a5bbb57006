package fixture

import "testing"

func TestNextByTeam(t *testing.T) {
	t.Parallel()

	fixtures := []Fixture{
		{ID: 1, Gameweek: 1, HomeTeamID: 1, AwayTeamID: 2, Finished: true},
		{ID: 3, Gameweek: 3, HomeTeamID: 1, AwayTeamID: 3},
		{ID: 2, Gameweek: 2, HomeTeamID: 3, AwayTeamID: 1},
	}
	next := NextByTeam(fixtures)

	got, ok := next[1]
	if !ok {
		t.Fatalf("expected a fixture for team 1")
	}
	if got.OpponentTeamID != 3 || got.IsHome {
		t.Fatalf("unexpected next fixture for team 1: %+v", got)
	}
	if _, ok := next[2]; ok {
		t.Fatalf("team 2 only has a finished fixture, got=%+v", next[2])
	}
	if home := next[3]; !home.IsHome || home.OpponentTeamID != 1 {
		t.Fatalf("unexpected next fixture for team 3: %+v", home)
	}
}

func TestFixtureValidate(t *testing.T) {
	t.Parallel()

	if err := (Fixture{ID: 1, HomeTeamID: 2, AwayTeamID: 2}).Validate(); err == nil {
		t.Fatalf("expected error for identical teams")
	}
	if err := (Fixture{ID: 1, HomeTeamID: 2, AwayTeamID: 3}).Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
