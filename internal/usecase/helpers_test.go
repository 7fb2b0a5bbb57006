package usecase

import (
	"testing"

	"github.com/riskibarqy/fpl-predictor/internal/engine"
	"github.com/riskibarqy/fpl-predictor/internal/infrastructure/repository/memory"
	idgen "github.com/riskibarqy/fpl-predictor/internal/platform/id"
	"github.com/riskibarqy/fpl-predictor/internal/platform/logging"
)

// Seeded club 1 squad: keepers 101-102, defenders 103-107, midfielders
// 108-112, forwards 113-115.
var clubOneSquad = []int64{101, 102, 103, 104, 105, 106, 107, 108, 109, 110, 111, 112, 113, 114, 115}

func testEngineConfig() engine.Config {
	cfg := engine.DefaultConfig()
	cfg.SimulationSeed = 7
	cfg.SimulationWorkers = 2
	cfg.DefaultTrials = 100
	return cfg
}

func newSeededSnapshots(t *testing.T) *SnapshotService {
	t.Helper()

	teams := memory.NewTeamRepository(memory.SeedTeams())
	players := memory.NewPlayerRepository(memory.SeedPlayers(), memory.SeedMatchRecords())
	fixtures := memory.NewFixtureRepository(memory.SeedFixtures())

	svc := NewSnapshotService(teams, players, fixtures, teams, testEngineConfig(), &idgen.Sequence{Prefix: "v"}, logging.NewNop())
	if _, err := svc.Refresh(t.Context()); err != nil {
		t.Fatalf("refresh seeded snapshot: %v", err)
	}
	return svc
}
