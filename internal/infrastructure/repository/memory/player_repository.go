package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/riskibarqy/fpl-predictor/internal/domain/player"
)

type PlayerRepository struct {
	mu      sync.RWMutex
	players map[int64]player.Player
	records map[int64][]player.MatchRecord
}

// NewPlayerRepository indexes players and lifts any embedded History into
// the record store.
func NewPlayerRepository(players []player.Player, records []player.MatchRecord) *PlayerRepository {
	r := &PlayerRepository{
		players: make(map[int64]player.Player, len(players)),
		records: make(map[int64][]player.MatchRecord),
	}
	for _, p := range players {
		r.records[p.ID] = append(r.records[p.ID], p.History...)
		p.History = nil
		r.players[p.ID] = p
	}
	for _, rec := range records {
		r.records[rec.PlayerID] = append(r.records[rec.PlayerID], rec)
	}
	for id := range r.records {
		sortRecords(r.records[id])
	}
	return r
}

func (r *PlayerRepository) List(_ context.Context) ([]player.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]player.Player, 0, len(r.players))
	for _, p := range r.players {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// GetByIDs keeps the requested order and skips unknown ids.
func (r *PlayerRepository) GetByIDs(_ context.Context, playerIDs []int64) ([]player.Player, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]player.Player, 0, len(playerIDs))
	for _, id := range playerIDs {
		p, ok := r.players[id]
		if !ok {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *PlayerRepository) ListMatchRecords(_ context.Context, playerIDs []int64) ([]player.MatchRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := append([]int64(nil), playerIDs...)
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	var out []player.MatchRecord
	for _, id := range ids {
		out = append(out, r.records[id]...)
	}
	return out, nil
}

func (r *PlayerRepository) UpsertPlayers(_ context.Context, players []player.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range players {
		if p.ID <= 0 {
			continue
		}
		p.History = nil
		r.players[p.ID] = p
	}
	return nil
}

func (r *PlayerRepository) ReplaceMatchRecords(_ context.Context, playerID int64, records []player.MatchRecord) error {
	rows := make([]player.MatchRecord, 0, len(records))
	for _, rec := range records {
		rec.PlayerID = playerID
		rows = append(rows, rec)
	}
	sortRecords(rows)

	r.mu.Lock()
	r.records[playerID] = rows
	r.mu.Unlock()
	return nil
}

func sortRecords(rows []player.MatchRecord) {
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Gameweek < rows[j].Gameweek })
}
