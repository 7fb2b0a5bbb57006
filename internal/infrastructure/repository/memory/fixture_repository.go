package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/riskibarqy/fpl-predictor/internal/domain/fixture"
)

type FixtureRepository struct {
	mu       sync.RWMutex
	fixtures map[int64]fixture.Fixture
}

func NewFixtureRepository(fixtures []fixture.Fixture) *FixtureRepository {
	r := &FixtureRepository{fixtures: make(map[int64]fixture.Fixture, len(fixtures))}
	for _, f := range fixtures {
		r.fixtures[f.ID] = f
	}
	return r
}

// List returns fixtures ordered by gameweek, then id.
func (r *FixtureRepository) List(_ context.Context) ([]fixture.Fixture, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]fixture.Fixture, 0, len(r.fixtures))
	for _, f := range r.fixtures {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Gameweek != out[j].Gameweek {
			return out[i].Gameweek < out[j].Gameweek
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *FixtureRepository) UpsertFixtures(_ context.Context, fixtures []fixture.Fixture) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, f := range fixtures {
		if f.ID <= 0 {
			continue
		}
		r.fixtures[f.ID] = f
	}
	return nil
}
