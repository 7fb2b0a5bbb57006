package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLoadSharesConcurrentCalls(t *testing.T) {
	t.Parallel()

	store := NewStore(time.Minute)
	var calls atomic.Int32

	loader := func(context.Context) (float64, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return 4.5, nil
	}

	const workers = 32
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)
	errCh := make(chan error, workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			v, err := Load(t.Context(), store, "v1:player:7", loader)
			if err != nil {
				errCh <- err
				return
			}
			if v != 4.5 {
				errCh <- errUnexpectedValue
			}
		}()
	}

	close(start)
	wg.Wait()
	close(errCh)
	for err := range errCh {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("loader calls: got=%d want=%d", got, 1)
	}
}

func TestGetOrLoadDoesNotCacheErrors(t *testing.T) {
	t.Parallel()

	store := NewStore(0)
	var calls atomic.Int32
	loader := func(context.Context) (any, error) {
		if calls.Add(1) == 1 {
			return nil, errors.New("upstream down")
		}
		return "ok", nil
	}

	if _, err := store.GetOrLoad(t.Context(), "k", loader); err == nil {
		t.Fatalf("expected first load to fail")
	}
	v, err := store.GetOrLoad(t.Context(), "k", loader)
	if err != nil || v != "ok" {
		t.Fatalf("unexpected second load: v=%v err=%v", v, err)
	}
	if _, err := store.GetOrLoad(t.Context(), "k", loader); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("loader calls: got=%d want=%d", got, 2)
	}
}

func TestStoreExpiry(t *testing.T) {
	t.Parallel()

	now := time.Date(2025, 8, 15, 19, 0, 0, 0, time.UTC)
	store := NewStore(time.Minute)
	store.now = func() time.Time { return now }

	store.Set(t.Context(), "a", 1)
	store.Set(t.Context(), "b", 2)
	if _, ok := store.Get(t.Context(), "a"); !ok {
		t.Fatalf("fresh entry must be readable")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := store.Get(t.Context(), "a"); ok {
		t.Fatalf("expired entry must be a miss")
	}
	if removed := store.Purge(t.Context()); removed != 1 {
		t.Fatalf("purge: got=%d want=%d", removed, 1)
	}
	if store.Len() != 0 {
		t.Fatalf("store must be empty: got=%d", store.Len())
	}
}

func TestDeletePrefix(t *testing.T) {
	t.Parallel()

	store := NewStore(0)
	store.Set(t.Context(), Key("v1", "dist", 1), 1)
	store.Set(t.Context(), Key("v1", "dist", 2), 2)
	store.Set(t.Context(), Key("v2", "dist", 1), 3)

	if removed := store.DeletePrefix(t.Context(), "v1:"); removed != 2 {
		t.Fatalf("removed: got=%d want=%d", removed, 2)
	}
	if _, ok := store.Get(t.Context(), "v2:dist:1"); !ok {
		t.Fatalf("other versions must survive")
	}
}

func TestLoadReplacesMistypedValue(t *testing.T) {
	t.Parallel()

	store := NewStore(0)
	store.Set(t.Context(), "k", "not an int")

	got, err := Load(t.Context(), store, "k", func(context.Context) (int, error) {
		return 9, nil
	})
	if err != nil || got != 9 {
		t.Fatalf("unexpected load: got=%d err=%v", got, err)
	}
}

var errUnexpectedValue = errors.New("unexpected loaded value")
