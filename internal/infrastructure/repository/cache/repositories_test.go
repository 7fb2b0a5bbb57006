package cache

import (
	"errors"
	"testing"

	"github.com/riskibarqy/fpl-predictor/internal/domain/player"
	"github.com/riskibarqy/fpl-predictor/internal/domain/team"
	playermock "github.com/riskibarqy/fpl-predictor/internal/mocks/domain/player"
	teammock "github.com/riskibarqy/fpl-predictor/internal/mocks/domain/team"
	basecache "github.com/riskibarqy/fpl-predictor/internal/platform/cache"
	"github.com/stretchr/testify/mock"
)

func TestTeamRepositoryCachesList(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	next := teammock.NewRepository(t)
	next.On("List", mock.Anything).Return([]team.Team{{ID: 1, Name: "Arsenal"}}, nil).Once()

	store := basecache.NewStore(0)
	repo := NewTeamRepository(next, store)
	for i := 0; i < 3; i++ {
		items, err := repo.List(ctx)
		if err != nil {
			t.Fatalf("list teams: %v", err)
		}
		if len(items) != 1 || items[0].ID != 1 {
			t.Fatalf("unexpected teams: %+v", items)
		}
		items[0].Name = "mutated"
	}

	items, _ := repo.List(ctx)
	if items[0].Name != "Arsenal" {
		t.Fatalf("cached slice leaked a mutation: got=%q", items[0].Name)
	}
}

func TestPlayerRepositoryInvalidate(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	next := playermock.NewRepository(t)
	records := []player.MatchRecord{{PlayerID: 7, Gameweek: 1}}
	next.On("ListMatchRecords", mock.Anything, []int64{9, 7}).Return(records, nil).Once()
	next.On("ListMatchRecords", mock.Anything, []int64{7, 9}).Return(records, nil).Once()

	store := basecache.NewStore(0)
	repo := NewPlayerRepository(next, store)

	if _, err := repo.ListMatchRecords(ctx, []int64{9, 7}); err != nil {
		t.Fatalf("first load: %v", err)
	}
	// Same ids in another order share the entry.
	if _, err := repo.ListMatchRecords(ctx, []int64{7, 9}); err != nil {
		t.Fatalf("cached load: %v", err)
	}

	if removed := Invalidate(ctx, store); removed != 1 {
		t.Fatalf("unexpected invalidated entries: got=%d want=1", removed)
	}
	if _, err := repo.ListMatchRecords(ctx, []int64{7, 9}); err != nil {
		t.Fatalf("reload: %v", err)
	}
}

func TestPlayerRepositoryDoesNotCacheErrors(t *testing.T) {
	t.Parallel()

	ctx := t.Context()
	next := playermock.NewRepository(t)
	next.On("List", mock.Anything).Return(nil, errors.New("db down")).Once()
	next.On("List", mock.Anything).Return([]player.Player{{ID: 1}}, nil).Once()

	repo := NewPlayerRepository(next, basecache.NewStore(0))
	if _, err := repo.List(ctx); err == nil {
		t.Fatalf("expected error on first call")
	}
	items, err := repo.List(ctx)
	if err != nil || len(items) != 1 {
		t.Fatalf("unexpected retry result: items=%+v err=%v", items, err)
	}
}
