package app

import (
	"context"
	"fmt"

	"github.com/riskibarqy/fpl-predictor/internal/domain/player"
	"github.com/riskibarqy/fpl-predictor/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/fpl-predictor/internal/platform/logging"
)

// SeedIfEmpty writes the synthetic season into a store that has no teams
// yet, so a fresh sqlite or postgres database can serve predictions without
// reaching the FPL API. It reports whether anything was written.
func SeedIfEmpty(ctx context.Context, store *Store, logger *logging.Logger) (bool, error) {
	if logger == nil {
		logger = logging.Default()
	}

	existing, err := store.Teams.List(ctx)
	if err != nil {
		return false, fmt.Errorf("count teams for seed: %w", err)
	}
	if len(existing) > 0 {
		logger.InfoContext(ctx, "store already populated, seed skipped", "teams", len(existing))
		return false, nil
	}

	teams := memory.SeedTeams()
	if err := store.Teams.UpsertTeams(ctx, teams); err != nil {
		return false, fmt.Errorf("seed teams: %w", err)
	}
	players := memory.SeedPlayers()
	if err := store.Players.UpsertPlayers(ctx, players); err != nil {
		return false, fmt.Errorf("seed players: %w", err)
	}
	if err := store.Fixtures.UpsertFixtures(ctx, memory.SeedFixtures()); err != nil {
		return false, fmt.Errorf("seed fixtures: %w", err)
	}

	records := memory.SeedMatchRecords()
	byPlayer := make(map[int64][]player.MatchRecord, len(players))
	for _, r := range records {
		byPlayer[r.PlayerID] = append(byPlayer[r.PlayerID], r)
	}
	for _, p := range players {
		if err := store.Players.ReplaceMatchRecords(ctx, p.ID, byPlayer[p.ID]); err != nil {
			return false, fmt.Errorf("seed match records player=%d: %w", p.ID, err)
		}
	}

	logger.InfoContext(ctx, "store seeded",
		"driver", store.Driver,
		"teams", len(teams),
		"players", len(players),
		"records", len(records),
	)
	return true, nil
}
