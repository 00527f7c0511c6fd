package handle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r3e-network/jsagent/system/scheduler"
)

func TestNewRemoteDerefReturnsValue(t *testing.T) {
	runner := scheduler.NewForegroundRunner()
	reg := NewRegistry(runner)

	r := New(reg, 42, func() {})
	assert.Equal(t, 42, r.Deref())
	assert.Equal(t, 1, reg.Size())
}

func TestReleaseRunsResetOnOwningRunner(t *testing.T) {
	runner := scheduler.NewForegroundRunner()
	reg := NewRegistry(runner)

	reset := make(chan struct{})
	r := New(reg, "value", func() { close(reset) })
	r.Release()

	select {
	case <-reset:
	case <-time.After(time.Second):
		t.Fatal("reset never ran")
	}

	deadline := time.Now().Add(time.Second)
	for reg.Size() != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	assert.Equal(t, 0, reg.Size())
}

func TestReleaseIsIdempotent(t *testing.T) {
	runner := scheduler.NewForegroundRunner()
	reg := NewRegistry(runner)

	var resetCount int
	reset := make(chan struct{}, 2)
	r := New(reg, 1, func() {
		resetCount++
		reset <- struct{}{}
	})

	r.Release()
	r.Release()

	select {
	case <-reset:
	case <-time.After(time.Second):
		t.Fatal("reset never ran")
	}
	// second release must not enqueue a second reset; give it a moment then check.
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, resetCount)
}

func TestTeardownResetsRemainingHandles(t *testing.T) {
	runner := scheduler.NewForegroundRunner()
	reg := NewRegistry(runner)

	var resetCount int
	New(reg, 1, func() { resetCount++ })
	New(reg, 2, func() { resetCount++ })
	require.Equal(t, 2, reg.Size())

	reg.Teardown()
	assert.Equal(t, 2, resetCount)
	assert.Equal(t, 0, reg.Size())

	// expiries arriving after teardown must be no-ops, not panics.
	reg.expire(0)
}

func TestReleaseAfterTeardownDoesNotBlock(t *testing.T) {
	runner := scheduler.NewForegroundRunner()
	reg := NewRegistry(runner)
	r := New(reg, "x", func() {})
	reg.Teardown()

	done := make(chan struct{})
	go func() {
		r.Release()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("release after teardown must not block")
	}
}
