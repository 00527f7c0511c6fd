package scheduler

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScheduleClientTaskRuns(t *testing.T) {
	r := NewForegroundRunner()
	done := make(chan struct{})
	r.ScheduleClientTask(func(StopToken) { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("client task never ran")
	}
}

func TestScheduleHandleTaskInlineWhenReentrant(t *testing.T) {
	r := NewForegroundRunner()
	var sawInline bool
	outerDone := make(chan struct{})

	r.ScheduleClientTask(func(StopToken) {
		before := atomic.Bool{}
		before.Store(false)
		r.ScheduleHandleTask(func(StopToken) {
			sawInline = true
		})
		close(outerDone)
	})

	select {
	case <-outerDone:
	case <-time.After(time.Second):
		t.Fatal("outer task never ran")
	}
	// the inner task must already have run inline by the time the outer one finished
	assert.True(t, sawInline)
}

func TestScheduleHandleTaskFromOutsideQueues(t *testing.T) {
	r := NewForegroundRunner()
	done := make(chan struct{})
	r.ScheduleHandleTask(func(StopToken) { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("handle task never ran")
	}
}

func TestTasksPostedInSequenceRunInOrder(t *testing.T) {
	r := NewForegroundRunner()
	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	wg.Add(5)
	for i := 0; i < 5; i++ {
		i := i
		r.ScheduleClientTask(func(StopToken) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			wg.Done()
		})
	}
	wg.Wait()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestTerminateStopsConsumer(t *testing.T) {
	r := NewForegroundRunner()
	started := make(chan struct{})
	blocked := make(chan StopToken, 1)
	r.ScheduleClientTask(func(tok StopToken) {
		close(started)
		for !tok.Done() {
			time.Sleep(time.Millisecond)
		}
		blocked <- tok
	})
	<-started
	r.Terminate()

	select {
	case tok := <-blocked:
		assert.True(t, tok.Done())
	case <-time.After(time.Second):
		t.Fatal("task never observed stop")
	}
}

func TestFinalizeRunsUserBlockingTasks(t *testing.T) {
	r := NewForegroundRunner()
	done := make(chan struct{})
	r.ScheduleHandleTask(func(StopToken) { close(done) })
	// give the scheduled task a moment to actually get consumed before we finalize
	time.Sleep(10 * time.Millisecond)
	r.Finalize()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("finalize did not drain handle-priority task")
	}
}

func TestLayerCascadesStop(t *testing.T) {
	root := NewLayer()
	child := root.NewChild()
	runner := child.NewRunner()

	var stopped atomic.Bool
	wait := make(chan struct{})
	runner.Spawn(func(tok StopToken) {
		for !tok.Done() {
			time.Sleep(time.Millisecond)
		}
		stopped.Store(true)
		close(wait)
	})

	root.RequestStop()
	select {
	case <-wait:
	case <-time.After(time.Second):
		t.Fatal("worker never observed cascaded stop")
	}
	assert.True(t, stopped.Load())
}

func TestWorkerRunnerCloseThreadsWaitsForDrain(t *testing.T) {
	r := &WorkerRunner{}
	var finished atomic.Bool
	r.Spawn(func(tok StopToken) {
		<-tok.ctx.Done()
		time.Sleep(5 * time.Millisecond)
		finished.Store(true)
	})
	r.CloseThreads()
	require.True(t, finished.Load())
}
