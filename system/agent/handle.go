package agent

import (
	"sync"

	"github.com/r3e-network/jsagent/system/scheduler"
)

// Handle is a refcounted, severable reference to a Host (spec.md §4.9). The
// ownership count lives on the Host itself, shared by every Handle that
// points at it; the host is destroyed when the count reaches zero, unless a
// cluster-level operation severs the handle first, in which case Schedule
// becomes a permanent no-op without waiting for the count.
type Handle struct {
	mu      sync.Mutex
	host    *Host
	severed bool
}

// NewHandle wraps host in a fresh handle, incrementing its shared refcount.
func NewHandle(host *Host) *Handle {
	host.addHandle()
	return &Handle{host: host}
}

// Clone increments the host's shared refcount and returns a new Handle
// pointing at the same host. A severed handle clones into another severed,
// inert handle.
func (h *Handle) Clone() *Handle {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.severed {
		return &Handle{severed: true}
	}
	h.host.addHandle()
	return &Handle{host: h.host}
}

// Release decrements the host's shared refcount, destroying the host once
// it reaches zero. Calling Release on an already-fully-released handle is a
// caller bug, as in the original's shared_ptr-based ownership.
func (h *Handle) Release() {
	h.mu.Lock()
	severed := h.severed
	host := h.host
	h.severed = true
	h.mu.Unlock()
	if severed {
		return
	}
	if host.removeHandle() == 0 {
		host.Destroy()
	}
}

// Sever forcibly nulls this handle's reference to the host without waiting
// for the refcount to reach zero. Subsequent Schedule calls no-op. Used by
// cluster-level forced teardown (spec.md §4.9).
func (h *Handle) Sever() {
	h.mu.Lock()
	h.severed = true
	h.host = nil
	h.mu.Unlock()
}

// Severed reports whether this handle has been permanently disconnected
// from its host, either via explicit Sever or a completed Release.
func (h *Handle) Severed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.severed
}

// alive returns the host if this handle has not been severed.
func (h *Handle) alive() *Host {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.severed {
		return nil
	}
	return h.host
}

// Schedule posts a client task that, once run on the runner's consumer
// goroutine (the engine lock; there is no separate mutex), begins a clock
// tick, constructs a lock witness, and invokes task with it
// and args. No-op if the handle has been severed.
func Schedule[A any](h *Handle, args A, task func(LockWitness, A)) {
	host := h.alive()
	if host == nil {
		return
	}
	host.runner.ScheduleClientTask(func(scheduler.StopToken) {
		host.clock.BeginTick()
		witness := LockWitness{host: host}
		task(witness, args)
	})
}

// ScheduleAsync posts task onto a non-foreground worker layer (spec.md
// §4.9's async variant), also handing it a StopToken for cooperative
// cancellation. It does not take the engine lock and must not touch the
// goja runtime directly.
func ScheduleAsync[A any](h *Handle, runner *scheduler.WorkerRunner, args A, task func(scheduler.StopToken, A)) {
	if h.alive() == nil {
		return
	}
	runner.Spawn(func(tok scheduler.StopToken) { task(tok, args) })
}
