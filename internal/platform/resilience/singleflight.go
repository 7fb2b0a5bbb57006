package resilience

import (
	"fmt"
	"sync"
)

// SingleFlight collapses concurrent calls for the same key into one. The
// zero value is ready to use.
type SingleFlight struct {
	mu    sync.Mutex
	calls map[string]*flight
}

type flight struct {
	done chan struct{}
	val  any
	err  error
	dups int
}

// Do runs fn once per key at a time; callers arriving while it runs share
// its result and get shared=true. A panic in fn becomes an error for every
// waiter.
func (g *SingleFlight) Do(key string, fn func() (any, error)) (v any, err error, shared bool) {
	g.mu.Lock()
	if g.calls == nil {
		g.calls = make(map[string]*flight)
	}
	if f, ok := g.calls[key]; ok {
		f.dups++
		g.mu.Unlock()
		<-f.done
		return f.val, f.err, true
	}
	f := &flight{done: make(chan struct{})}
	g.calls[key] = f
	g.mu.Unlock()

	g.run(key, f, fn)
	return f.val, f.err, f.dups > 0
}

// Forget lets the next Do for key start a fresh call.
func (g *SingleFlight) Forget(key string) {
	g.mu.Lock()
	delete(g.calls, key)
	g.mu.Unlock()
}

func (g *SingleFlight) run(key string, f *flight, fn func() (any, error)) {
	defer func() {
		if r := recover(); r != nil {
			f.val, f.err = nil, fmt.Errorf("singleflight %s panicked: %v", key, r)
		}
		g.mu.Lock()
		if g.calls[key] == f {
			delete(g.calls, key)
		}
		g.mu.Unlock()
		close(f.done)
	}()
	f.val, f.err = fn()
}

// Share is a typed wrapper over Do.
func Share[T any](g *SingleFlight, key string, fn func() (T, error)) (T, error) {
	v, err, _ := g.Do(key, func() (any, error) {
		return fn()
	})
	if err != nil {
		var zero T
		return zero, err
	}
	out, _ := v.(T)
	return out, nil
}
