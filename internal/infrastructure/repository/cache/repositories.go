// Package cache decorates read repositories with a TTL cache. Writes are not
// cached; call Invalidate after an import so the next snapshot sees them.
package cache

import (
	"context"
	"slices"
	"strconv"
	"strings"

	"github.com/riskibarqy/fpl-predictor/internal/domain/fixture"
	"github.com/riskibarqy/fpl-predictor/internal/domain/player"
	"github.com/riskibarqy/fpl-predictor/internal/domain/standing"
	"github.com/riskibarqy/fpl-predictor/internal/domain/team"
	basecache "github.com/riskibarqy/fpl-predictor/internal/platform/cache"
)

const keyPrefix = "repo:"

// Invalidate drops every cached repository read.
func Invalidate(ctx context.Context, store *basecache.Store) int {
	return store.DeletePrefix(ctx, keyPrefix)
}

type TeamRepository struct {
	next  team.Repository
	cache *basecache.Store
}

func NewTeamRepository(next team.Repository, cache *basecache.Store) *TeamRepository {
	return &TeamRepository{next: next, cache: cache}
}

func (r *TeamRepository) List(ctx context.Context) ([]team.Team, error) {
	items, err := basecache.Load(ctx, r.cache, keyPrefix+"team:list", r.next.List)
	if err != nil {
		return nil, err
	}
	return slices.Clone(items), nil
}

// StandingsRepository caches a standings provider such as the team store.
type StandingsRepository struct {
	next  standing.Provider
	cache *basecache.Store
}

func NewStandingsRepository(next standing.Provider, cache *basecache.Store) *StandingsRepository {
	return &StandingsRepository{next: next, cache: cache}
}

func (r *StandingsRepository) Positions(ctx context.Context) (map[int64]int, error) {
	positions, err := basecache.Load(ctx, r.cache, keyPrefix+"team:positions", r.next.Positions)
	if err != nil {
		return nil, err
	}
	out := make(map[int64]int, len(positions))
	for id, pos := range positions {
		out[id] = pos
	}
	return out, nil
}

type PlayerRepository struct {
	next  player.Repository
	cache *basecache.Store
}

func NewPlayerRepository(next player.Repository, cache *basecache.Store) *PlayerRepository {
	return &PlayerRepository{next: next, cache: cache}
}

func (r *PlayerRepository) List(ctx context.Context) ([]player.Player, error) {
	items, err := basecache.Load(ctx, r.cache, keyPrefix+"player:list", r.next.List)
	if err != nil {
		return nil, err
	}
	return slices.Clone(items), nil
}

func (r *PlayerRepository) GetByIDs(ctx context.Context, playerIDs []int64) ([]player.Player, error) {
	key := keyPrefix + "player:ids:" + joinIDs(playerIDs)
	items, err := basecache.Load(ctx, r.cache, key, func(ctx context.Context) ([]player.Player, error) {
		return r.next.GetByIDs(ctx, playerIDs)
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(items), nil
}

func (r *PlayerRepository) ListMatchRecords(ctx context.Context, playerIDs []int64) ([]player.MatchRecord, error) {
	key := keyPrefix + "player:records:" + joinIDs(sortedIDs(playerIDs))
	items, err := basecache.Load(ctx, r.cache, key, func(ctx context.Context) ([]player.MatchRecord, error) {
		return r.next.ListMatchRecords(ctx, playerIDs)
	})
	if err != nil {
		return nil, err
	}
	return slices.Clone(items), nil
}

type FixtureRepository struct {
	next  fixture.Repository
	cache *basecache.Store
}

func NewFixtureRepository(next fixture.Repository, cache *basecache.Store) *FixtureRepository {
	return &FixtureRepository{next: next, cache: cache}
}

func (r *FixtureRepository) List(ctx context.Context) ([]fixture.Fixture, error) {
	items, err := basecache.Load(ctx, r.cache, keyPrefix+"fixture:list", r.next.List)
	if err != nil {
		return nil, err
	}
	return slices.Clone(items), nil
}

// joinIDs keeps the requested order since GetByIDs results follow it.
func joinIDs(ids []int64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return strings.Join(parts, ",")
}

func sortedIDs(ids []int64) []int64 {
	out := slices.Clone(ids)
	slices.Sort(out)
	return out
}
