// Package cluster hosts the process-wide platform delegate every agent in
// a cluster shares (spec.md §4.4), plus the optional cross-process
// coordination and housekeeping built on top of it: a Redis pub/sub
// notifier and a cron-driven janitor.
package cluster

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"
	"sync"

	"golang.org/x/crypto/hkdf"
	"golang.org/x/time/rate"

	"github.com/shirou/gopsutil/v3/cpu"

	"github.com/r3e-network/jsagent/system/agent"
	"github.com/r3e-network/jsagent/system/scheduler"
)

// ErrWorkerTaskThrottled is returned by Platform.TryPostWorkerTask when the
// rate limiter has no tokens available. PostWorkerTask blocks instead.
var ErrWorkerTaskThrottled = errors.New("cluster: worker task throttled")

// Platform is the Go analogue of the original's v8::Platform: one
// process-wide object every agent's foreground runner defers to for
// worker-thread dispatch, entropy, and (optionally) wall-clock routing.
// Grounded on original_source/packages/isolated_v8/platform/platform.cc.
type Platform struct {
	workerPool *scheduler.WorkerRunner
	limiter    *rate.Limiter

	mu    sync.RWMutex
	hosts map[string]*agent.Host
	seeds map[string][]byte
}

// Option configures a Platform at construction time.
type Option func(*platformConfig)

type platformConfig struct {
	workerPool  *scheduler.WorkerRunner
	ratePerSec  float64
	burst       int
}

// WithWorkerPool supplies the WorkerRunner backing PostWorkerTask. If
// omitted, NewPlatform creates its own unparented runner.
func WithWorkerPool(pool *scheduler.WorkerRunner) Option {
	return func(c *platformConfig) { c.workerPool = pool }
}

// WithRateLimit overrides the default worker-task rate limit.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *platformConfig) { c.ratePerSec = perSecond; c.burst = burst }
}

// NewPlatform constructs a Platform. Defaults to 64 worker tasks/sec with a
// burst of 128, generous enough that ordinary agent workloads never feel
// it and only a genuine job storm gets throttled.
func NewPlatform(opts ...Option) *Platform {
	cfg := platformConfig{ratePerSec: 64, burst: 128}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.workerPool == nil {
		cfg.workerPool = &scheduler.WorkerRunner{}
	}
	return &Platform{
		workerPool: cfg.workerPool,
		limiter:    rate.NewLimiter(rate.Limit(cfg.ratePerSec), cfg.burst),
		hosts:      make(map[string]*agent.Host),
		seeds:      make(map[string][]byte),
	}
}

// WorkerCount reports the number of logical CPUs available to this
// process, via gopsutil so it reflects cgroup/container limits rather
// than the host machine's raw core count where the platform supports
// that distinction.
func WorkerCount() int {
	counts, err := cpu.Counts(true)
	if err != nil || counts <= 0 {
		return 1
	}
	return counts
}

// RegisterAgent associates agentID with host, so ForegroundRunnerFor and
// ClockTimeMS can route to it.
func (p *Platform) RegisterAgent(agentID string, host *agent.Host) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hosts[agentID] = host
}

// UnregisterAgent removes agentID's routing entry and any latched seed.
func (p *Platform) UnregisterAgent(agentID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.hosts, agentID)
	delete(p.seeds, agentID)
}

// ForegroundRunnerFor returns the medium-priority task runner view for
// agentID's foreground runner, mirroring v8::Platform::GetForegroundTaskRunner.
func (p *Platform) ForegroundRunnerFor(agentID string) (scheduler.TaskRunnerView, bool) {
	p.mu.RLock()
	host, ok := p.hosts[agentID]
	p.mu.RUnlock()
	if !ok {
		return scheduler.TaskRunnerView{}, false
	}
	return host.TaskRunner(scheduler.PriorityMedium), true
}

// PostWorkerTask runs fn on the shared worker pool, blocking on the rate
// limiter until a token is available or ctx is cancelled.
func (p *Platform) PostWorkerTask(ctx context.Context, fn func(scheduler.StopToken)) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	p.workerPool.Spawn(fn)
	return nil
}

// TryPostWorkerTask is the non-blocking form: it fails fast with
// ErrWorkerTaskThrottled instead of waiting for a token.
func (p *Platform) TryPostWorkerTask(fn func(scheduler.StopToken)) error {
	if !p.limiter.Allow() {
		return ErrWorkerTaskThrottled
	}
	p.workerPool.Spawn(fn)
	return nil
}

// Shutdown closes the shared worker pool, waiting for every in-flight
// worker task to finish.
func (p *Platform) Shutdown() {
	p.workerPool.CloseThreads()
}

// SetAgentSeed latches a deterministic entropy seed for agentID. Random
// calls for that agent thereafter derive their output from the seed via
// HKDF instead of crypto/rand, the Go analogue of the original's
// "repeats the user-supplied double seed" behavior (platform.cc,
// fill_random_bytes).
func (p *Platform) SetAgentSeed(agentID string, seed []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seeds[agentID] = seed
}

// Random fills n bytes of entropy for agentID: HKDF-derived from a latched
// seed if SetAgentSeed was called, else read straight from crypto/rand.
func (p *Platform) Random(agentID string, n int) ([]byte, error) {
	p.mu.RLock()
	seed, hasSeed := p.seeds[agentID]
	p.mu.RUnlock()

	out := make([]byte, n)
	if !hasSeed {
		if _, err := io.ReadFull(rand.Reader, out); err != nil {
			return nil, err
		}
		return out, nil
	}

	reader := hkdf.New(sha256.New, seed, nil, []byte("jsagent-entropy"))
	if _, err := io.ReadFull(reader, out); err != nil {
		return nil, err
	}
	return out, nil
}

// ClockTimeMS returns agentID's current clock reading, routed to the
// agent's own Clock (v8::Platform::CurrentClockTimeMilliseconds delegates
// to agent::host::get_current()->clock_time_ms() in the original).
func (p *Platform) ClockTimeMS(agentID string) (int64, bool) {
	p.mu.RLock()
	host, ok := p.hosts[agentID]
	p.mu.RUnlock()
	if !ok {
		return 0, false
	}
	return host.Clock().ClockTimeMS(), true
}

// LiveAgentCount reports how many agents are currently registered.
func (p *Platform) LiveAgentCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.hosts)
}
