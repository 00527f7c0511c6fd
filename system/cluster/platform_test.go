package cluster

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r3e-network/jsagent/system/agent"
	"github.com/r3e-network/jsagent/system/scheduler"
)

func TestWorkerCountIsPositive(t *testing.T) {
	assert.Greater(t, WorkerCount(), 0)
}

func TestPostWorkerTaskRunsFn(t *testing.T) {
	p := NewPlatform()
	defer p.Shutdown()

	done := make(chan struct{})
	err := p.PostWorkerTask(context.Background(), func(scheduler.StopToken) { close(done) })
	require.NoError(t, err)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker task did not run")
	}
}

func TestTryPostWorkerTaskThrottlesWhenExhausted(t *testing.T) {
	p := NewPlatform(WithRateLimit(0, 1))
	defer p.Shutdown()

	require.NoError(t, p.TryPostWorkerTask(func(scheduler.StopToken) {}))
	err := p.TryPostWorkerTask(func(scheduler.StopToken) {})
	assert.ErrorIs(t, err, ErrWorkerTaskThrottled)
}

func TestRandomWithoutSeedUsesCryptoRand(t *testing.T) {
	p := NewPlatform()
	a, err := p.Random("agent-1", 16)
	require.NoError(t, err)
	b, err := p.Random("agent-1", 16)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestRandomWithSeedIsDeterministic(t *testing.T) {
	p := NewPlatform()
	p.SetAgentSeed("agent-1", []byte("a fixed seed value"))

	a, err := p.Random("agent-1", 16)
	require.NoError(t, err)
	b, err := p.Random("agent-1", 16)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestRegisterAgentRoutesClockAndRunner(t *testing.T) {
	p := NewPlatform()
	runner := scheduler.NewForegroundRunner()
	host := agent.NewHost(runner, agent.NewDeterministicClock(100, 10))
	p.RegisterAgent("agent-1", host)

	ms, ok := p.ClockTimeMS("agent-1")
	require.True(t, ok)
	assert.Equal(t, int64(100), ms)

	_, ok = p.ForegroundRunnerFor("agent-1")
	assert.True(t, ok)

	p.UnregisterAgent("agent-1")
	_, ok = p.ClockTimeMS("agent-1")
	assert.False(t, ok)
}
