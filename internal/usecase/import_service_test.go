package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/riskibarqy/fpl-predictor/internal/domain/fixture"
	"github.com/riskibarqy/fpl-predictor/internal/domain/player"
	"github.com/riskibarqy/fpl-predictor/internal/infrastructure/repository/memory"
	idgen "github.com/riskibarqy/fpl-predictor/internal/platform/id"
	"github.com/riskibarqy/fpl-predictor/internal/platform/logging"
)

type fakeFPLSource struct {
	bootstrap    ExternalBootstrap
	bootstrapErr error
	fixtures     []fixture.Fixture
	fixturesErr  error
	history      map[int64][]player.MatchRecord
	historyErr   map[int64]error

	mu        sync.Mutex
	requested []int64
}

func (f *fakeFPLSource) Bootstrap(context.Context) (ExternalBootstrap, error) {
	return f.bootstrap, f.bootstrapErr
}

func (f *fakeFPLSource) Fixtures(context.Context) ([]fixture.Fixture, error) {
	return f.fixtures, f.fixturesErr
}

func (f *fakeFPLSource) PlayerHistory(_ context.Context, playerID int64) ([]player.MatchRecord, error) {
	f.mu.Lock()
	f.requested = append(f.requested, playerID)
	f.mu.Unlock()
	if err := f.historyErr[playerID]; err != nil {
		return nil, err
	}
	return f.history[playerID], nil
}

func seededSource() *fakeFPLSource {
	history := make(map[int64][]player.MatchRecord)
	for _, rec := range memory.SeedMatchRecords() {
		history[rec.PlayerID] = append(history[rec.PlayerID], rec)
	}
	return &fakeFPLSource{
		bootstrap: ExternalBootstrap{Teams: memory.SeedTeams(), Players: memory.SeedPlayers(), Skipped: 2},
		fixtures:  memory.SeedFixtures(),
		history:   history,
	}
}

func TestImportServiceFeedsSnapshot(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	source := seededSource()
	teams := memory.NewTeamRepository(nil)
	players := memory.NewPlayerRepository(nil, nil)
	fixtures := memory.NewFixtureRepository(nil)

	svc := NewImportService(source, teams, players, fixtures, logging.NewNop())
	result, err := svc.Import(ctx, ImportInput{MaxWorkers: 3})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.Teams != 20 || result.Players != 300 || result.SkippedPlayers != 2 {
		t.Fatalf("unexpected counts: %+v", result)
	}
	if result.SuccessCount != 300 || result.FailedCount != 0 || result.WorkerCount != 3 {
		t.Fatalf("unexpected history counts: %+v", result)
	}
	if result.Records != len(memory.SeedMatchRecords()) {
		t.Fatalf("got=%d records want=%d", result.Records, len(memory.SeedMatchRecords()))
	}

	snapshots := NewSnapshotService(teams, players, fixtures, teams, testEngineConfig(), &idgen.Sequence{Prefix: "v"}, logging.NewNop())
	info, err := snapshots.Refresh(ctx)
	if err != nil {
		t.Fatalf("refresh after import: %v", err)
	}
	if info.Players != 300 || info.ScheduledTeams != 20 {
		t.Fatalf("unexpected snapshot after import: %+v", info)
	}
}

func TestImportServicePartialFailures(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	source := seededSource()
	source.fixturesErr = errors.New("fixtures endpoint down")
	source.historyErr = map[int64]error{
		205: errors.New("status=500"),
		101: errors.New("status=404"),
	}
	source.history[102] = append(source.history[102], player.MatchRecord{PlayerID: 102, Gameweek: 0, OpponentTeamID: 3})

	players := memory.NewPlayerRepository(nil, nil)
	svc := NewImportService(source, memory.NewTeamRepository(nil), players, memory.NewFixtureRepository(nil), logging.NewNop())
	result, err := svc.Import(ctx, ImportInput{PlayerIDs: []int64{205, 102, 101}})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.Fixtures != 0 {
		t.Fatalf("fixtures should be skipped, got=%d", result.Fixtures)
	}
	if result.FailedCount != 2 || result.SuccessCount != 1 || result.DroppedRecords != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Failures[0].PlayerID != 101 || result.Failures[1].PlayerID != 205 {
		t.Fatalf("failures not sorted: %+v", result.Failures)
	}
	if len(source.requested) != 3 {
		t.Fatalf("got=%d history requests want=3", len(source.requested))
	}

	stored, err := players.ListMatchRecords(ctx, []int64{102})
	if err != nil {
		t.Fatalf("list records: %v", err)
	}
	if len(stored) != len(source.history[102])-1 {
		t.Fatalf("got=%d stored records want=%d", len(stored), len(source.history[102])-1)
	}
}

func TestImportServiceBootstrapFailure(t *testing.T) {
	t.Parallel()

	source := &fakeFPLSource{bootstrapErr: ErrDependencyUnavailable}
	svc := NewImportService(source, memory.NewTeamRepository(nil), memory.NewPlayerRepository(nil, nil), memory.NewFixtureRepository(nil), logging.NewNop())
	if _, err := svc.Import(t.Context(), ImportInput{}); !errors.Is(err, ErrDependencyUnavailable) {
		t.Fatalf("got=%v want=%v", err, ErrDependencyUnavailable)
	}
}

func TestImportServiceSkipHistory(t *testing.T) {
	t.Parallel()

	source := seededSource()
	svc := NewImportService(source, memory.NewTeamRepository(nil), memory.NewPlayerRepository(nil, nil), memory.NewFixtureRepository(nil), logging.NewNop())
	result, err := svc.Import(t.Context(), ImportInput{SkipHistory: true})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(source.requested) != 0 || result.Records != 0 {
		t.Fatalf("history was fetched: requests=%d records=%d", len(source.requested), result.Records)
	}
}
