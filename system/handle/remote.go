// Package handle implements the remote-handle system and the collected
// handle pool: cross-thread-safe references into an agent's engine heap,
// and engine-weak host-owned objects with arena-style cleanup.
//
// Grounded on original_source/packages/isolated_v8/handle/include/remote.cc
// (reset-dispatch posts a task to the owning agent's foreground runner
// rather than freeing the persistent directly) and
// .../collected_handle.cc (pool cleared unconditionally at agent teardown).
package handle

import (
	"runtime"
	"sync"

	"github.com/r3e-network/jsagent/system/scheduler"
)

// ResetFunc releases the engine-side persistent reference. It must only run
// while the owning agent's engine lock is held; Registry guarantees this by
// always invoking it from inside a handle-priority task on the owning
// foreground runner.
type ResetFunc func()

// Remote is a pair of (persistent reference into the engine heap, back
// pointer to its reset dispatch), shared across any number of host-side
// owners (spec.md §3, "Remote handle"). Remote is safe to hold from any
// goroutine; only Deref requires the caller to already hold the owning
// agent's lock (proved by a scheduler.StopToken-carrying task, or by the
// realm scope — see system/agent).
type Remote[T any] struct {
	id       uint64
	registry *Registry
	value    T
	mu       sync.Mutex
	released bool
}

// newRemote is called by Registry.New; not exported because a Remote must
// always be linked into a registry at construction.
func newRemote[T any](id uint64, registry *Registry, value T) *Remote[T] {
	r := &Remote[T]{id: id, registry: registry, value: value}
	// Backstop: if the host ever loses its last reference without calling
	// Release explicitly, the finalizer still posts the reset-task. This is
	// the Go analog of a C++ shared_ptr's destructor running the reset
	// dispatch — see SPEC_FULL.md §9 on why a host-side liveness signal is
	// how this module observes "last owner dropped".
	runtime.AddCleanup(r, func(id uint64) { registry.expire(id) }, id)
	return r
}

// Deref returns the underlying engine value. Caller must hold the owning
// agent's engine lock (see system/agent.LockWitness).
func (r *Remote[T]) Deref() T {
	return r.value
}

// ID uniquely identifies this handle within its registry, for diagnostics.
func (r *Remote[T]) ID() uint64 { return r.id }

// Release drops this handle's ownership explicitly. Idempotent. Prefer
// calling this over relying on the finalizer backstop: the finalizer only
// runs at the mercy of the garbage collector, which can be arbitrarily
// delayed, while Release lets the registry shrink immediately.
func (r *Remote[T]) Release() {
	r.mu.Lock()
	if r.released {
		r.mu.Unlock()
		return
	}
	r.released = true
	r.mu.Unlock()
	r.registry.expire(r.id)
}

// Registry is the per-agent intrusive list of remote handles (spec.md
// §4.5). Every live Remote is registered in exactly one Registry.
type Registry struct {
	mu     sync.Mutex
	live   map[uint64]ResetFunc
	nextID uint64
	runner *scheduler.ForegroundRunner
	closed bool
}

// NewRegistry constructs a registry whose reset-dispatch tasks are posted to
// runner, the owning agent's foreground runner.
func NewRegistry(runner *scheduler.ForegroundRunner) *Registry {
	return &Registry{
		live:   make(map[uint64]ResetFunc),
		runner: runner,
	}
}

// New links a fresh remote handle into the registry under the caller's lock
// (the caller must already hold the owning agent's engine lock) and returns
// it along with its reset func, which the caller installs as value's own
// teardown (e.g. dropping a goja.Value reference).
func New[T any](reg *Registry, value T, reset ResetFunc) *Remote[T] {
	reg.mu.Lock()
	id := reg.nextID
	reg.nextID++
	reg.live[id] = reset
	reg.mu.Unlock()

	return newRemote(id, reg, value)
}

// expire is the reset-dispatch: it posts a handle-priority task onto the
// owning foreground runner which resets the persistent and detaches from
// the registry. If the registry has already torn down (agent dying), the
// reset is skipped — the engine will never observe the persistent again
// because agent teardown already cleared it (spec.md §4.5).
func (reg *Registry) expire(id uint64) {
	reg.mu.Lock()
	if reg.closed {
		reg.mu.Unlock()
		return
	}
	reset, ok := reg.live[id]
	reg.mu.Unlock()
	if !ok {
		return
	}

	reg.runner.ScheduleHandleTask(func(scheduler.StopToken) {
		reg.mu.Lock()
		if _, stillLive := reg.live[id]; !stillLive {
			reg.mu.Unlock()
			return
		}
		delete(reg.live, id)
		reg.mu.Unlock()
		reset()
	})
}

// Size reports the number of live handles, for tests and admin
// introspection (spec.md §8 scenario 4's "registry size" test hook).
func (reg *Registry) Size() int {
	reg.mu.Lock()
	defer reg.mu.Unlock()
	return len(reg.live)
}

// Teardown walks the registry under the engine lock and resets every
// persistent still live, then marks the registry closed so later expiries
// from in-flight finalizers are dropped rather than posted to a defunct
// scheduler.
func (reg *Registry) Teardown() {
	reg.mu.Lock()
	remaining := reg.live
	reg.live = make(map[uint64]ResetFunc)
	reg.closed = true
	reg.mu.Unlock()

	for _, reset := range remaining {
		reset()
	}
}
