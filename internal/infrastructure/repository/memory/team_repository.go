package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/riskibarqy/fpl-predictor/internal/domain/team"
)

type TeamRepository struct {
	mu    sync.RWMutex
	teams map[int64]team.Team
}

func NewTeamRepository(teams []team.Team) *TeamRepository {
	r := &TeamRepository{teams: make(map[int64]team.Team, len(teams))}
	for _, t := range teams {
		r.teams[t.ID] = t
	}
	return r
}

// List returns teams ordered by id.
func (r *TeamRepository) List(_ context.Context) ([]team.Team, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]team.Team, 0, len(r.teams))
	for _, t := range r.teams {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *TeamRepository) UpsertTeams(_ context.Context, items []team.Team) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range items {
		if item.ID <= 0 {
			continue
		}
		r.teams[item.ID] = item
	}
	return nil
}

// Positions serves the stored table, skipping teams without a position.
func (r *TeamRepository) Positions(_ context.Context) (map[int64]int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[int64]int, len(r.teams))
	for id, t := range r.teams {
		if t.Position > 0 {
			out[id] = t.Position
		}
	}
	return out, nil
}
