package scheduler

import (
	"context"
	"sync"
	"time"
)

// ForegroundRunner is the single-consumer binding of a TaskQueue to one
// dedicated goroutine, driving exactly one agent's engine (spec.md §4.3).
type ForegroundRunner struct {
	queue *TaskQueue

	mu          sync.Mutex
	running     bool
	cancel      context.CancelFunc
	consumerGID uint64 // goroutine id of the active consumer loop, 0 if idle
}

// NewForegroundRunner constructs an idle runner over a fresh queue.
func NewForegroundRunner() *ForegroundRunner {
	return &ForegroundRunner{queue: NewTaskQueue()}
}

// ScheduleClientTask pushes run at user-visible priority, non-nestable,
// spawning the consumer goroutine if it isn't already running.
func (r *ForegroundRunner) ScheduleClientTask(run func(StopToken)) {
	r.queue.Push(PriorityMedium, NonNestable, run)
	r.ensureConsumer()
}

// ScheduleHandleTask pushes run at user-blocking priority, nestable. If the
// caller is already executing on this runner's consumer goroutine, run
// executes inline instead of round-tripping through the queue.
func (r *ForegroundRunner) ScheduleHandleTask(run func(StopToken)) {
	r.mu.Lock()
	inline := r.running && r.consumerGID == goroutineID()
	r.mu.Unlock()

	if inline {
		run(StopToken{})
		return
	}
	r.queue.Push(PriorityHigh, Nestable, run)
	r.ensureConsumer()
}

// ScheduleDelayedTask pushes run to become eligible at or after timeout.
func (r *ForegroundRunner) ScheduleDelayedTask(timeout time.Time, priority Priority, nestability Nestability, run func(StopToken)) {
	r.queue.PushDelayed(timeout, priority, nestability, run)
	r.ensureConsumer()
}

// Terminate requests a stop on the consumer goroutine and returns without
// joining it.
func (r *ForegroundRunner) Terminate() {
	r.mu.Lock()
	if r.cancel != nil {
		r.cancel()
	}
	r.mu.Unlock()
}

// Finalize finalizes the underlying queue: user-blocking tasks drain with a
// non-cancellable stop token, everything else is discarded.
func (r *ForegroundRunner) Finalize() {
	r.Terminate()
	r.queue.Finalize()
}

// QueueDepth reports the underlying queue's per-priority eligible task
// counts, for metrics and admin introspection.
func (r *ForegroundRunner) QueueDepth() [numPriorities]int {
	return r.queue.Depth()
}

// TaskRunnerFor returns a view of this runner specialized to priority, the
// shape the engine asks for when it wants to post its own tasks (spec.md
// §4.3's task_runner_for).
func (r *ForegroundRunner) TaskRunnerFor(priority Priority) TaskRunnerView {
	return TaskRunnerView{runner: r, priority: priority}
}

func (r *ForegroundRunner) ensureConsumer() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	r.running = true
	go r.consume(ctx)
}

// consume is the runner's dedicated consumer goroutine: wait for work,
// flush delayed tasks, pop one, drop any "lock" bookkeeping, run it, repeat.
func (r *ForegroundRunner) consume(ctx context.Context) {
	gid := goroutineID()
	r.mu.Lock()
	r.consumerGID = gid
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.consumerGID = 0
		r.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		r.queue.waitForWork(ctx)
		if r.queue.Closed() {
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}

		task, ok := r.queue.Pop()
		if !ok {
			continue
		}

		r.queue.SetRunning(true)
		func() {
			defer r.queue.SetRunning(false)
			task.Run(StopToken{ctx: ctx})
		}()
	}
}

// TaskRunnerView is a priority-bound handle onto a ForegroundRunner, handed
// to the engine when it asks the platform delegate for a task runner.
type TaskRunnerView struct {
	runner   *ForegroundRunner
	priority Priority
}

// Post schedules run at this view's priority, non-nestable (matching the
// client-task path — engine-posted work never preempts mid-task execution).
func (v TaskRunnerView) Post(run func(StopToken)) {
	v.runner.queue.Push(v.priority, NonNestable, run)
	v.runner.ensureConsumer()
}

// PostDelayed schedules run to become eligible at timeout.
func (v TaskRunnerView) PostDelayed(timeout time.Time, run func(StopToken)) {
	v.runner.ScheduleDelayedTask(timeout, v.priority, NonNestable, run)
}
