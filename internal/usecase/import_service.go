package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/riskibarqy/fpl-predictor/internal/domain/fixture"
	"github.com/riskibarqy/fpl-predictor/internal/domain/player"
	"github.com/riskibarqy/fpl-predictor/internal/domain/team"
	"github.com/riskibarqy/fpl-predictor/internal/platform/logging"
	"go.opentelemetry.io/otel/attribute"
)

const defaultImportWorkers = 4

// ExternalBootstrap is the league-wide snapshot served by the upstream API.
type ExternalBootstrap struct {
	Teams   []team.Team
	Players []player.Player
	// Skipped counts upstream elements that are not players.
	Skipped int
}

// FPLSource is the upstream fantasy API.
type FPLSource interface {
	Bootstrap(ctx context.Context) (ExternalBootstrap, error)
	PlayerHistory(ctx context.Context, playerID int64) ([]player.MatchRecord, error)
	Fixtures(ctx context.Context) ([]fixture.Fixture, error)
}

type ImportInput struct {
	// PlayerIDs limits history fetches; empty means every imported player.
	PlayerIDs   []int64
	SkipHistory bool
	MaxWorkers  int
}

type ImportResult struct {
	Teams          int             `json:"teams"`
	Players        int             `json:"players"`
	SkippedPlayers int             `json:"skipped_players"`
	Fixtures       int             `json:"fixtures"`
	Records        int             `json:"records"`
	DroppedRecords int             `json:"dropped_records"`
	SuccessCount   int             `json:"success_count"`
	FailedCount    int             `json:"failed_count"`
	WorkerCount    int             `json:"worker_count"`
	DurationMs     int64           `json:"duration_ms"`
	Failures       []ImportFailure `json:"failures,omitempty"`
}

type ImportFailure struct {
	PlayerID int64  `json:"player_id"`
	Message  string `json:"message"`
}

// ImportService copies the upstream API into the configured store.
type ImportService struct {
	source   FPLSource
	teams    team.Writer
	players  player.Writer
	fixtures fixture.Writer
	logger   *logging.Logger
}

func NewImportService(source FPLSource, teams team.Writer, players player.Writer, fixtures fixture.Writer, logger *logging.Logger) *ImportService {
	if logger == nil {
		logger = logging.Default()
	}
	return &ImportService{
		source:   source,
		teams:    teams,
		players:  players,
		fixtures: fixtures,
		logger:   logger.Named("import"),
	}
}

// Import writes teams, players, fixtures and per-player match history.
// Teams and players must succeed; a fixture or single history failure is
// logged and reported without aborting the run.
func (s *ImportService) Import(ctx context.Context, input ImportInput) (_ ImportResult, err error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.ImportService.Import")
	defer endSpan(span, &err)

	started := time.Now()
	bootstrap, err := s.source.Bootstrap(ctx)
	if err != nil {
		s.logger.ErrorContext(ctx, "fetch bootstrap failed", "error", err)
		return ImportResult{}, fmt.Errorf("fetch bootstrap: %w", err)
	}
	if err := s.teams.UpsertTeams(ctx, bootstrap.Teams); err != nil {
		return ImportResult{}, fmt.Errorf("upsert teams: %w", err)
	}
	if err := s.players.UpsertPlayers(ctx, bootstrap.Players); err != nil {
		return ImportResult{}, fmt.Errorf("upsert players: %w", err)
	}

	result := ImportResult{
		Teams:          len(bootstrap.Teams),
		Players:        len(bootstrap.Players),
		SkippedPlayers: bootstrap.Skipped,
	}
	result.Fixtures = s.importFixtures(ctx)

	if !input.SkipHistory {
		ids := input.PlayerIDs
		if len(ids) == 0 {
			ids = make([]int64, 0, len(bootstrap.Players))
			for _, p := range bootstrap.Players {
				ids = append(ids, p.ID)
			}
		}
		if err := s.importHistory(ctx, ids, input.MaxWorkers, &result); err != nil {
			return result, err
		}
	}

	result.DurationMs = time.Since(started).Milliseconds()
	s.logger.InfoContext(ctx, "import completed",
		"teams", result.Teams,
		"players", result.Players,
		"fixtures", result.Fixtures,
		"records", result.Records,
		"failed", result.FailedCount,
		"duration_ms", result.DurationMs,
	)
	span.SetAttributes(
		attribute.Int("import.players", result.Players),
		attribute.Int("import.failed", result.FailedCount),
	)
	return result, nil
}

func (s *ImportService) importFixtures(ctx context.Context) int {
	fixtures, err := s.source.Fixtures(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "fetch fixtures failed, keeping stored schedule", "error", err)
		return 0
	}

	valid := make([]fixture.Fixture, 0, len(fixtures))
	for _, f := range fixtures {
		if err := f.Validate(); err != nil {
			s.logger.WarnContext(ctx, "skip invalid fixture", "fixture_id", f.ID, "error", err)
			continue
		}
		valid = append(valid, f)
	}
	if err := s.fixtures.UpsertFixtures(ctx, valid); err != nil {
		s.logger.WarnContext(ctx, "store fixtures failed", "error", err)
		return 0
	}
	return len(valid)
}

func (s *ImportService) importHistory(ctx context.Context, playerIDs []int64, maxWorkers int, result *ImportResult) error {
	workerCount := maxWorkers
	if workerCount <= 0 {
		workerCount = defaultImportWorkers
	}
	result.WorkerCount = workerCount

	pool, err := ants.NewPool(workerCount)
	if err != nil {
		return fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	failures := make(chan ImportFailure, len(playerIDs))
	var records, dropped, succeeded atomic.Int32
	var workers sync.WaitGroup
	for _, id := range playerIDs {
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			stored, skipped, err := s.importPlayerHistory(ctx, id)
			if err != nil {
				failures <- ImportFailure{PlayerID: id, Message: err.Error()}
				return
			}
			records.Add(int32(stored))
			dropped.Add(int32(skipped))
			succeeded.Add(1)
		}); err != nil {
			workers.Done()
			return fmt.Errorf("submit history task to worker pool: %w", err)
		}
	}
	workers.Wait()
	close(failures)

	for f := range failures {
		result.Failures = append(result.Failures, f)
	}
	sort.Slice(result.Failures, func(i, j int) bool { return result.Failures[i].PlayerID < result.Failures[j].PlayerID })

	result.Records = int(records.Load())
	result.DroppedRecords = int(dropped.Load())
	result.SuccessCount = int(succeeded.Load())
	result.FailedCount = len(result.Failures)

	if err := ctx.Err(); err != nil {
		return err
	}
	if result.FailedCount > 0 {
		s.logger.WarnContext(ctx, "some player histories failed to import", "failed", result.FailedCount, "first_error", result.Failures[0].Message)
	}
	return nil
}

// importPlayerHistory stores the valid rows and returns how many were kept
// and dropped.
func (s *ImportService) importPlayerHistory(ctx context.Context, playerID int64) (int, int, error) {
	if err := ctx.Err(); err != nil {
		return 0, 0, err
	}
	history, err := s.source.PlayerHistory(ctx, playerID)
	if err != nil {
		return 0, 0, fmt.Errorf("fetch history: %w", err)
	}

	valid := make([]player.MatchRecord, 0, len(history))
	var invalid []error
	for _, rec := range history {
		if err := rec.Validate(); err != nil {
			invalid = append(invalid, err)
			continue
		}
		valid = append(valid, rec)
	}
	if len(invalid) > 0 {
		s.logger.DebugContext(ctx, "dropped invalid match records", "player_id", playerID, "count", len(invalid), "error", errors.Join(invalid...))
	}

	if err := s.players.ReplaceMatchRecords(ctx, playerID, valid); err != nil {
		return 0, 0, fmt.Errorf("store history: %w", err)
	}
	return len(valid), len(invalid), nil
}
