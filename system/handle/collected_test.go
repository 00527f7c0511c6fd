package handle

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCollectedTracksSize(t *testing.T) {
	pool := NewCollectedPool()
	c := NewCollected(pool, "payload", func(string) {})
	require.Equal(t, 1, pool.Size())
	assert.Equal(t, "payload", c.Value)
}

func TestCollectedPoolClearDestroysRemaining(t *testing.T) {
	pool := NewCollectedPool()
	var destroyed []int
	NewCollected(pool, 1, func(v int) { destroyed = append(destroyed, v) })
	NewCollected(pool, 2, func(v int) { destroyed = append(destroyed, v) })
	require.Equal(t, 2, pool.Size())

	pool.Clear()
	assert.ElementsMatch(t, []int{1, 2}, destroyed)
	assert.Equal(t, 0, pool.Size())
}

func TestCollectedPoolClearIsUnconditionalAfterward(t *testing.T) {
	pool := NewCollectedPool()
	pool.Clear()

	var destroyed bool
	func() {
		c := NewCollected(pool, 1, func(int) { destroyed = true })
		_ = c
	}()
	runtime.GC()
	time.Sleep(20 * time.Millisecond)

	// pool already cleared: nothing further should be tracked as live, and
	// the finalizer-driven release must find cleared==true and no-op rather
	// than panic on the already-emptied map.
	assert.Equal(t, 0, pool.Size())
	_ = destroyed
}

func TestCollectedFinalizerReleasesAfterGC(t *testing.T) {
	pool := NewCollectedPool()
	done := make(chan struct{})

	func() {
		NewCollected(pool, 1, func(int) { close(done) })
	}()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		runtime.GC()
		select {
		case <-done:
			assert.Equal(t, 0, pool.Size())
			return
		case <-time.After(10 * time.Millisecond):
		}
	}
	t.Fatal("collected handle was never finalized")
}
