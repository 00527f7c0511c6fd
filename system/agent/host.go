package agent

import (
	"sync"
	"sync/atomic"

	"github.com/dop251/goja"

	"github.com/r3e-network/jsagent/system/handle"
	"github.com/r3e-network/jsagent/system/scheduler"
)

// Host owns a single engine instance and everything that must outlive an
// individual script execution within it (spec.md §4.8): the goja runtime,
// the collected-handle pool (autorelease pool), the remote-handle registry,
// the foreground runner, a weak specifier map for module link callbacks, a
// lazily-created scratch realm, an atomic handle count, a clock, and the
// pending deterministic RNG seed.
//
// Construction mirrors system/tee/script_engine.go's goja.New() call, but a
// Host owns exactly one runtime for its whole lifetime rather than minting
// one per execution, matching the multi-script-per-agent contract of
// spec.md §2.
type Host struct {
	runtime  *goja.Runtime
	Pool     *handle.CollectedPool
	Registry *handle.Registry
	runner   *scheduler.ForegroundRunner

	specMu      sync.Mutex
	specifiers  map[*goja.Program]string

	scratchOnce sync.Once
	scratch     *Realm

	handleCount atomic.Int64

	clock Clock

	seedMu    sync.Mutex
	giveSeed  bool
	seed      []byte
}

// NewHost constructs a Host around a fresh goja runtime, bound to runner for
// all foreground scheduling. clock supplies CurrentClockTimeMilliseconds.
func NewHost(runner *scheduler.ForegroundRunner, clock Clock) *Host {
	rt := goja.New()
	h := &Host{
		runtime:    rt,
		Pool:       handle.NewCollectedPool(),
		runner:     runner,
		specifiers: make(map[*goja.Program]string),
		clock:      clock,
	}
	h.Registry = handle.NewRegistry(runner)
	// install self-pointer in engine slot 0 (spec.md §4.8 construction
	// sequence): goja has no isolate-data slots, so the host is reachable
	// from engine-resident code via a bound global instead.
	_ = rt.Set("__host", h)
	return h
}

// MakeContext latches the "give seed" flag before constructing a fresh
// Realm, then unlatches it: only the first realm built after a seed is set
// consumes it (spec.md §4.8).
func (h *Host) MakeContext(lock LockWitness) *Realm {
	h.seedMu.Lock()
	h.giveSeed = true
	h.seedMu.Unlock()

	r := newRealm(lock, h)

	h.seedMu.Lock()
	h.giveSeed = false
	h.seedMu.Unlock()

	return r
}

// ScratchContext returns a cached realm used for compiling work when no
// user-constructed realm is active, creating it lazily on first use.
func (h *Host) ScratchContext(lock LockWitness) *Realm {
	h.scratchOnce.Do(func() {
		h.scratch = newRealm(lock, h)
	})
	return h.scratch
}

// SetRandomSeed stashes a deterministic seed to be consumed by the next
// MakeContext call, matching spec.md's "pending RNG seed" + "should give
// seed" pair. Safe to call from any goroutine; actual consumption only
// happens while the engine lock is held, per SPEC_FULL.md §9's race
// resolution.
func (h *Host) SetRandomSeed(seed []byte) {
	h.seedMu.Lock()
	h.seed = seed
	h.seedMu.Unlock()
}

// TakeRandomSeed returns and clears the pending seed if the give-seed latch
// is set; otherwise it returns nil. Must be called while holding the
// engine lock (LockWitness proves this at the call site).
func (h *Host) TakeRandomSeed(LockWitness) []byte {
	h.seedMu.Lock()
	defer h.seedMu.Unlock()
	if !h.giveSeed {
		return nil
	}
	seed := h.seed
	h.seed = nil
	return seed
}

// TaskRunner returns the priority-specialized view the engine asks the
// platform delegate for.
func (h *Host) TaskRunner(priority scheduler.Priority) scheduler.TaskRunnerView {
	return h.runner.TaskRunnerFor(priority)
}

// QueueDepth reports the host's foreground queue depth by priority band,
// for the admin surface and the cluster janitor's metrics sweep.
func (h *Host) QueueDepth() [3]int {
	return h.runner.QueueDepth()
}

// AutoreleasePool exposes the collected-handle pool for agent-owned wrapper
// objects that should be released in lockstep with the engine's own
// garbage collection (spec.md §4.6).
func (h *Host) AutoreleasePool() *handle.CollectedPool { return h.Pool }

// MakeRemoteHandleLock returns a witness permitting creation of remote
// handles under lock. The witness is just lock itself narrowed to the
// capability the caller needs — Go's type system gives this for free
// without a weak-ref indirection (see SPEC_FULL.md §9).
func (h *Host) MakeRemoteHandleLock(lock LockWitness) LockWitness { return lock }

// NoteSpecifier records the origin name a compiled module was given, for
// later lookup by link callbacks that only receive the module object
// itself as referrer (spec.md §4.11).
func (h *Host) NoteSpecifier(prog *goja.Program, name string) {
	if name == "" {
		return
	}
	h.specMu.Lock()
	h.specifiers[prog] = name
	h.specMu.Unlock()
}

// SpecifierFor looks up a previously recorded module origin name.
func (h *Host) SpecifierFor(prog *goja.Program) (string, bool) {
	h.specMu.Lock()
	defer h.specMu.Unlock()
	name, ok := h.specifiers[prog]
	return name, ok
}

// Runtime exposes the underlying goja runtime for packages (system/module,
// system/transfer) that must call into it directly under a held lock.
func (h *Host) Runtime() *goja.Runtime { return h.runtime }

// Clock returns the agent's clock.
func (h *Host) Clock() Clock { return h.clock }

// addHandle / removeHandle back the atomic handle count that Handle uses to
// decide when the host should be torn down.
func (h *Host) addHandle() int64      { return h.handleCount.Add(1) }
func (h *Host) removeHandle() int64   { return h.handleCount.Add(-1) }
func (h *Host) HandleCount() int64    { return h.handleCount.Load() }

// Destroy runs the teardown sequence from spec.md §4.8: terminate the
// scheduler, finalize the task queue, clear the remote handle registry and
// autorelease pool. Called once the last Handle has been released.
func (h *Host) Destroy() {
	h.runner.Finalize()
	h.Registry.Teardown()
	h.Pool.Clear()
}
