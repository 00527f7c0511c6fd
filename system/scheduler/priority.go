// Package scheduler implements the task queue, foreground runner, and the
// worker-thread scheduler primitive (layers/runners/handles) that drives a
// single agent's engine and a cluster's background job pool.
//
// Grounded on original_source/packages/isolated_v8/scheduler.cc (the
// layer/runner/container/link graph) and
// original_source/packages/js/v8/platform/{task_queue,foreground_runner}.cc
// (priority FIFO + delayed heap + consumer loop), translated from C++20
// coroutine/intrusive-list idioms to goroutines, channels, and a
// slice-backed registry guarded by a mutex.
package scheduler

// Priority is the task priority band. Higher-priority tasks preempt
// lower-priority ones; within a band, FIFO order holds.
type Priority int

const (
	// PriorityHigh is "user-blocking": synchronous host calls, remote-handle
	// resets during teardown.
	PriorityHigh Priority = iota
	// PriorityMedium is "user-visible": ordinary client-scheduled work.
	PriorityMedium
	// PriorityLow is "best-effort": background bookkeeping.
	PriorityLow
)

const numPriorities = 3

func (p Priority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityMedium:
		return "medium"
	case PriorityLow:
		return "low"
	default:
		return "unknown"
	}
}

// Nestability controls whether a task may run while the runner is already
// executing another task. A non-nestable task enqueued mid-task waits until
// the outer task returns; this lets engine-internal reentrant work (nestable)
// proceed while host-level work (non-nestable) runs to completion.
type Nestability int

const (
	// NonNestable tasks never run inside another task on the same runner.
	NonNestable Nestability = iota
	// Nestable tasks may run even while the runner is mid-task.
	Nestable
)
