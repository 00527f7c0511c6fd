// Package agent implements the agent host/handle pair, realm scopes, and the
// clock variants that drive an agent's notion of time (spec.md §4.7-§4.10).
//
// Grounded on system/tee/script_engine.go's per-execution goja.New() runtime
// construction (generalized here into Host.MakeContext) and
// original_source/packages/isolated_v8/agent.cc + agent/host.cc.
package agent

import "time"

// Clock supplies an agent's notion of wall-clock time to the engine. The
// platform delegate routes CurrentClockTimeMilliseconds to the current
// agent's Clock (spec.md §4.4, §4.7).
type Clock interface {
	// BeginTick is called once at the start of each foreground task.
	BeginTick()
	// ClockTimeMS returns the current reading in epoch milliseconds.
	ClockTimeMS() int64
}

// SystemClock passes through to the real wall clock.
type SystemClock struct{}

func (SystemClock) BeginTick()          {}
func (SystemClock) ClockTimeMS() int64 { return time.Now().UnixMilli() }

// RealtimeClock reports epoch + (wall_now - wall_at_construction): the real
// clock's rate, shifted to start at epoch.
type RealtimeClock struct {
	epoch     int64
	startedAt time.Time
}

func NewRealtimeClock(epoch int64) *RealtimeClock {
	return &RealtimeClock{epoch: epoch, startedAt: time.Now()}
}

func (c *RealtimeClock) BeginTick() {}

func (c *RealtimeClock) ClockTimeMS() int64 {
	return c.epoch + time.Since(c.startedAt).Milliseconds()
}

// MicrotaskClock latches a single instant at each BeginTick; every query
// during that tick returns the same value, so code within one foreground
// task never observes clock drift mid-execution.
type MicrotaskClock struct {
	epoch     int64
	hasEpoch  bool
	startedAt time.Time
	latchedMS int64
}

// NewMicrotaskClock constructs a clock. When hasEpoch is false, epoch is
// ignored and the clock instead defaults to the first tick's real time,
// matching spec.md's "epoch optional" wording.
func NewMicrotaskClock(epoch int64, hasEpoch bool) *MicrotaskClock {
	return &MicrotaskClock{epoch: epoch, hasEpoch: hasEpoch}
}

func (c *MicrotaskClock) BeginTick() {
	now := time.Now()
	if c.startedAt.IsZero() {
		c.startedAt = now
		if !c.hasEpoch {
			c.epoch = now.UnixMilli()
		}
	}
	c.latchedMS = c.epoch + now.Sub(c.startedAt).Milliseconds()
}

func (c *MicrotaskClock) ClockTimeMS() int64 {
	if c.startedAt.IsZero() {
		return c.epoch
	}
	return c.latchedMS
}

// DeterministicClock returns epoch + increment*tick_count, ticking only on
// BeginTick. Fully reproducible across runs given identical task ordering.
type DeterministicClock struct {
	epoch     int64
	increment int64
	ticks     int64
}

func NewDeterministicClock(epoch, increment int64) *DeterministicClock {
	return &DeterministicClock{epoch: epoch, increment: increment}
}

func (c *DeterministicClock) BeginTick() { c.ticks++ }

func (c *DeterministicClock) ClockTimeMS() int64 {
	return c.epoch + c.increment*c.ticks
}
