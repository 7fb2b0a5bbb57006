package usecase

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/riskibarqy/fpl-predictor/internal/domain/fixture"
	"github.com/riskibarqy/fpl-predictor/internal/domain/player"
	"github.com/riskibarqy/fpl-predictor/internal/domain/prediction"
	"github.com/riskibarqy/fpl-predictor/internal/domain/standing"
	"github.com/riskibarqy/fpl-predictor/internal/domain/team"
	"github.com/riskibarqy/fpl-predictor/internal/engine"
	idgen "github.com/riskibarqy/fpl-predictor/internal/platform/id"
	"github.com/riskibarqy/fpl-predictor/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

// SnapshotInfo describes the snapshot currently being served.
type SnapshotInfo struct {
	Version        string               `json:"version"`
	BuiltAt        time.Time            `json:"built_at"`
	Players        int                  `json:"players"`
	Dropped        int                  `json:"dropped"`
	ScheduledTeams int                  `json:"scheduled_teams"`
	Tiers          []engine.TierSummary `json:"tiers"`
}

type snapshotState struct {
	snap *engine.Snapshot
	// next maps team id to the team's next unfinished fixture.
	next map[int64]prediction.FixtureContext
}

// SnapshotSwapHook runs after a new snapshot replaces the previous one.
// previous is nil on the first load.
type SnapshotSwapHook func(ctx context.Context, previous, current *engine.Snapshot)

// SnapshotService owns the immutable engine snapshot. Readers never block on
// a rebuild; the new snapshot is swapped in atomically once complete.
type SnapshotService struct {
	teamRepo    team.Repository
	playerRepo  player.Repository
	fixtureRepo fixture.Repository
	standings   standing.Provider
	cfg         engine.Config
	idGen       idgen.Generator
	logger      *logging.Logger
	now         func() time.Time

	state     atomic.Pointer[snapshotState]
	refreshMu sync.Mutex
	hooksMu   sync.RWMutex
	hooks     []SnapshotSwapHook
	before    []func(ctx context.Context)
}

// NewSnapshotService wires the loader. fixtureRepo and standings may be nil:
// without fixtures every prediction needs an explicit opponent, without
// standings team positions come from the stored table or team strength.
func NewSnapshotService(
	teamRepo team.Repository,
	playerRepo player.Repository,
	fixtureRepo fixture.Repository,
	standings standing.Provider,
	cfg engine.Config,
	idGen idgen.Generator,
	logger *logging.Logger,
) *SnapshotService {
	if logger == nil {
		logger = logging.Default()
	}
	if idGen == nil {
		idGen = idgen.NewUUIDGenerator()
	}

	return &SnapshotService{
		teamRepo:    teamRepo,
		playerRepo:  playerRepo,
		fixtureRepo: fixtureRepo,
		standings:   standings,
		cfg:         cfg,
		idGen:       idGen,
		logger:      logger.Named("snapshot"),
		now:         time.Now,
	}
}

// OnSwap registers a hook, typically a cache purge keyed on the old version.
func (s *SnapshotService) OnSwap(hook SnapshotSwapHook) {
	if hook == nil {
		return
	}
	s.hooksMu.Lock()
	s.hooks = append(s.hooks, hook)
	s.hooksMu.Unlock()
}

// BeforeRefresh registers a hook run at the start of every full Refresh,
// such as dropping cached repository reads.
func (s *SnapshotService) BeforeRefresh(hook func(ctx context.Context)) {
	if hook == nil {
		return
	}
	s.hooksMu.Lock()
	s.before = append(s.before, hook)
	s.hooksMu.Unlock()
}

// Current returns the snapshot being served.
func (s *SnapshotService) Current() (*engine.Snapshot, error) {
	st, err := s.load()
	if err != nil {
		return nil, err
	}
	return st.snap, nil
}

// load pins one state so a request sees a consistent snapshot and fixture
// schedule even if a refresh lands mid-request.
func (s *SnapshotService) load() (*snapshotState, error) {
	st := s.state.Load()
	if st == nil || st.snap == nil {
		return nil, fmt.Errorf("%w: snapshot not loaded", ErrDependencyUnavailable)
	}
	return st, nil
}

// NextFixture returns the scheduled fixture of teamID, if any.
func (s *SnapshotService) NextFixture(teamID int64) (prediction.FixtureContext, bool) {
	st := s.state.Load()
	if st == nil {
		return prediction.FixtureContext{}, false
	}
	fx, ok := st.next[teamID]
	return fx, ok
}

func (s *SnapshotService) Info() (SnapshotInfo, error) {
	st, err := s.load()
	if err != nil {
		return SnapshotInfo{}, err
	}
	return describeSnapshot(st), nil
}

// Refresh reloads teams, players, match records, standings and fixtures and
// swaps in a freshly built snapshot.
func (s *SnapshotService) Refresh(ctx context.Context) (_ SnapshotInfo, err error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SnapshotService.Refresh")
	defer endSpan(span, &err)

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	started := s.now()
	s.hooksMu.RLock()
	before := append(([]func(context.Context))(nil), s.before...)
	s.hooksMu.RUnlock()
	for _, hook := range before {
		hook(ctx)
	}

	teams, err := s.teamRepo.List(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "list teams failed", "error", err)
		return SnapshotInfo{}, fmt.Errorf("list teams: %w", err)
	}
	players, err := s.playerRepo.List(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "list players failed", "error", err)
		return SnapshotInfo{}, fmt.Errorf("list players: %w", err)
	}
	playerIDs := make([]int64, 0, len(players))
	for _, p := range players {
		playerIDs = append(playerIDs, p.ID)
	}
	records, err := s.playerRepo.ListMatchRecords(ctx, playerIDs)
	if err != nil {
		s.logger.ErrorContext(ctx, "list match records failed", "error", err)
		return SnapshotInfo{}, fmt.Errorf("list match records: %w", err)
	}

	positions := s.loadStandings(ctx)
	next := s.loadFixtures(ctx)

	version, err := s.idGen.NewID()
	if err != nil {
		return SnapshotInfo{}, fmt.Errorf("generate snapshot version: %w", err)
	}

	snap, err := engine.NewSnapshot(s.cfg, engine.SnapshotInput{
		Version:   version,
		Teams:     teams,
		Players:   players,
		Records:   records,
		Standings: positions,
	})
	if err != nil {
		return SnapshotInfo{}, fmt.Errorf("build snapshot: %w", err)
	}

	st := &snapshotState{snap: snap, next: next}
	s.swap(ctx, st)

	if snap.Dropped() > 0 {
		s.logger.WarnContext(ctx, "snapshot dropped invalid rows", "version", version, "dropped", snap.Dropped())
	}
	s.logger.InfoContext(ctx, "snapshot built",
		"version", version,
		"teams", len(teams),
		"players", snap.PlayerCount(),
		"records", len(records),
		"scheduled_teams", len(next),
		"duration", s.now().Sub(started),
	)
	span.SetAttributes(
		attribute.String("snapshot.version", version),
		attribute.Int("snapshot.players", snap.PlayerCount()),
	)

	return describeSnapshot(st), nil
}

// RefreshStandings rebuilds only the tier assignment from the standings
// provider, keeping the loaded players and fixtures.
func (s *SnapshotService) RefreshStandings(ctx context.Context) (_ SnapshotInfo, err error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.SnapshotService.RefreshStandings")
	defer endSpan(span, &err)

	if s.standings == nil {
		return SnapshotInfo{}, fmt.Errorf("%w: no standings provider configured", ErrDependencyUnavailable)
	}

	s.refreshMu.Lock()
	defer s.refreshMu.Unlock()

	current, err := s.load()
	if err != nil {
		return SnapshotInfo{}, err
	}

	positions, err := s.standings.Positions(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "load standings failed", "error", err)
		return SnapshotInfo{}, fmt.Errorf("load standings: %w", err)
	}
	version, err := s.idGen.NewID()
	if err != nil {
		return SnapshotInfo{}, fmt.Errorf("generate snapshot version: %w", err)
	}
	snap, err := current.snap.WithStandings(positions, version)
	if err != nil {
		return SnapshotInfo{}, fmt.Errorf("rebuild snapshot: %w", err)
	}

	st := &snapshotState{snap: snap, next: current.next}
	s.swap(ctx, st)
	s.logger.InfoContext(ctx, "standings refreshed", "version", version, "teams", len(positions))

	return describeSnapshot(st), nil
}

func (s *SnapshotService) swap(ctx context.Context, next *snapshotState) {
	previous := s.state.Swap(next)

	var prevSnap *engine.Snapshot
	if previous != nil {
		prevSnap = previous.snap
	}
	s.hooksMu.RLock()
	hooks := append([]SnapshotSwapHook(nil), s.hooks...)
	s.hooksMu.RUnlock()
	for _, hook := range hooks {
		hook(ctx, prevSnap, next.snap)
	}
}

// loadStandings degrades to nil so the snapshot derives positions itself.
func (s *SnapshotService) loadStandings(ctx context.Context) map[int64]int {
	if s.standings == nil {
		return nil
	}
	positions, err := s.standings.Positions(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "standings unavailable, using stored positions", "error", err)
		return nil
	}
	return positions
}

func (s *SnapshotService) loadFixtures(ctx context.Context) map[int64]prediction.FixtureContext {
	if s.fixtureRepo == nil {
		return map[int64]prediction.FixtureContext{}
	}
	fixtures, err := s.fixtureRepo.List(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "fixtures unavailable, predictions need explicit opponents", "error", err)
		return map[int64]prediction.FixtureContext{}
	}

	valid := fixtures[:0:0]
	for _, f := range fixtures {
		if err := f.Validate(); err != nil {
			s.logger.WarnContext(ctx, "skip invalid fixture", "fixture_id", f.ID, "error", err)
			continue
		}
		valid = append(valid, f)
	}
	return fixture.NextByTeam(valid)
}

func describeSnapshot(st *snapshotState) SnapshotInfo {
	return SnapshotInfo{
		Version:        st.snap.Version(),
		BuiltAt:        st.snap.BuiltAt(),
		Players:        st.snap.PlayerCount(),
		Dropped:        st.snap.Dropped(),
		ScheduledTeams: len(st.next),
		Tiers:          st.snap.Classifier().Summary(),
	}
}
