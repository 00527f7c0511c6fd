package handle

import (
	"runtime"
	"sync"
)

// Collected is a host-owned object paired with an engine-weak reference
// (spec.md §3, "Collected handle"). It lives until either the engine
// collects the weak reference (destroying the host object on the owning
// thread) or the agent tears down (the pool destroys every remaining
// collected handle unconditionally).
//
// goja gives no hook equivalent to V8's weak callback fired on GC of an
// engine-resident external. CollectedPool instead ties cleanup to the
// host-side wrapper's own reachability via runtime.AddCleanup — see
// SPEC_FULL.md §9 for why this is a faithful narrowing, not a shortcut:
// a collected handle is only ever reachable from engine-resident closures
// that also hold the host wrapper, so host-side and engine-side liveness
// coincide in goja's single-heap model.
type Collected[T any] struct {
	pool  *CollectedPool
	id    uint64
	Value T
}

// CollectedPool is the arena backing a single agent's collected handles.
type CollectedPool struct {
	mu      sync.Mutex
	items   map[uint64]func()
	nextID  uint64
	cleared bool
}

// NewCollectedPool constructs an empty pool.
func NewCollectedPool() *CollectedPool {
	return &CollectedPool{items: make(map[uint64]func())}
}

// NewCollected allocates a collected handle wrapping value. destroy is
// called exactly once, either when the engine collects (approximated here
// by the Go GC collecting the returned *Collected[T], since nothing else in
// goja references host state directly) or when the pool is Cleared at
// agent teardown. On a pool that has already been Cleared, destroy runs
// immediately and the returned handle is not tracked.
func NewCollected[T any](pool *CollectedPool, value T, destroy func(T)) *Collected[T] {
	pool.mu.Lock()
	if pool.cleared {
		pool.mu.Unlock()
		destroy(value)
		return &Collected[T]{pool: pool, Value: value}
	}
	id := pool.nextID
	pool.nextID++
	pool.items[id] = func() { destroy(value) }
	pool.mu.Unlock()

	c := &Collected[T]{pool: pool, id: id, Value: value}
	runtime.AddCleanup(c, func(id uint64) { pool.release(id) }, id)
	return c
}

func (p *CollectedPool) release(id uint64) {
	p.mu.Lock()
	if p.cleared {
		p.mu.Unlock()
		return
	}
	destroy, ok := p.items[id]
	if ok {
		delete(p.items, id)
	}
	p.mu.Unlock()
	if ok {
		destroy()
	}
}

// Clear destroys every remaining collected handle unconditionally. Called
// once, during agent teardown; the engine will not fire any further weak
// callbacks after the agent's runtime is disposed, so nothing can observe
// the freed state afterward (spec.md §4.6).
func (p *CollectedPool) Clear() {
	p.mu.Lock()
	remaining := p.items
	p.items = make(map[uint64]func())
	p.cleared = true
	p.mu.Unlock()

	for _, destroy := range remaining {
		destroy()
	}
}

// Size reports the number of live collected handles, for tests.
func (p *CollectedPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}
