package cluster

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/r3e-network/jsagent/system/agent"
	"github.com/r3e-network/jsagent/system/metrics"
	"github.com/r3e-network/jsagent/system/scheduler"
)

// Descriptor identifies a process-wide cluster instance, for metrics
// labeling and the Redis coordination channel name.
type Descriptor struct {
	ID          string
	WorkerCount int
	CreatedAt   time.Time
}

// Cluster owns one Platform and every agent.Handle created through it, and
// is the entry point spec.md §6's external interface names:
//
//	type Cluster interface { CreateAgent(ctx, behavior) (*agent.Handle, error) }
type Cluster struct {
	Descriptor Descriptor

	platform *Platform
	metrics  *metrics.Metrics
	notifier *RedisNotifier

	mu     sync.Mutex
	agents map[string]*entry
}

type entry struct {
	handle *agent.Handle
	host   *agent.Host
}

// Behavior configures an agent created through a Cluster (spec.md §3's
// `{ clock, random_seed? }` Behavior parameters record).
type Behavior struct {
	Clock      agent.Clock
	RandomSeed []byte
}

// New constructs a Cluster with its own Platform configured by opts. The
// Descriptor records the process's available CPU count as WorkerCount;
// no option changes that value.
func New(id string, m *metrics.Metrics, notifier *RedisNotifier, opts ...Option) *Cluster {
	return &Cluster{
		Descriptor: Descriptor{ID: id, WorkerCount: WorkerCount(), CreatedAt: time.Now().UTC()},
		platform:   NewPlatform(opts...),
		metrics:    m,
		notifier:   notifier,
		agents:     make(map[string]*entry),
	}
}

// Platform exposes the cluster's shared platform delegate.
func (c *Cluster) Platform() *Platform { return c.platform }

// CreateAgent constructs a new agent.Host/Handle pair, registers it with
// the platform for task routing, and (if configured) announces its
// creation on the Redis coordination channel.
func (c *Cluster) CreateAgent(ctx context.Context, behavior Behavior) (*agent.Handle, error) {
	clock := behavior.Clock
	if clock == nil {
		clock = agent.SystemClock{}
	}

	runner := scheduler.NewForegroundRunner()
	host := agent.NewHost(runner, clock)
	if len(behavior.RandomSeed) > 0 {
		host.SetRandomSeed(behavior.RandomSeed)
	}
	h := agent.NewHandle(host)

	agentID := uuid.New().String()
	c.platform.RegisterAgent(agentID, host)

	c.mu.Lock()
	c.agents[agentID] = &entry{handle: h, host: host}
	count := len(c.agents)
	c.mu.Unlock()

	if c.metrics != nil {
		c.metrics.SetLiveAgents(c.Descriptor.ID, count)
	}
	if c.notifier != nil {
		c.notifier.Publish(ctx, Event{ClusterID: c.Descriptor.ID, AgentID: agentID, Kind: EventAgentCreated})
	}

	return h, nil
}

// DisposeAgent releases agentID's handle, unregisters it from the
// platform, and announces its disposal.
func (c *Cluster) DisposeAgent(ctx context.Context, agentID string) error {
	c.mu.Lock()
	e, ok := c.agents[agentID]
	if ok {
		delete(c.agents, agentID)
	}
	count := len(c.agents)
	c.mu.Unlock()

	if !ok {
		return fmt.Errorf("cluster: unknown agent %s", agentID)
	}

	e.handle.Release()
	c.platform.UnregisterAgent(agentID)

	if c.metrics != nil {
		c.metrics.SetLiveAgents(c.Descriptor.ID, count)
	}
	if c.notifier != nil {
		c.notifier.Publish(ctx, Event{ClusterID: c.Descriptor.ID, AgentID: agentID, Kind: EventAgentDisposed})
	}
	return nil
}

// AgentIDs returns the currently-registered agent ids, for the admin
// surface and the janitor sweep.
func (c *Cluster) AgentIDs() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.agents))
	for id := range c.agents {
		ids = append(ids, id)
	}
	return ids
}

// QueueDepth reports agentID's foreground queue depth by priority, or
// false if agentID is unknown.
func (c *Cluster) QueueDepth(agentID string) ([3]int, bool) {
	c.mu.Lock()
	e, ok := c.agents[agentID]
	c.mu.Unlock()
	if !ok {
		return [3]int{}, false
	}
	depth := e.host.QueueDepth()
	return depth, true
}

// pruneSevered removes any agent whose handle has already severed itself
// (agent torn down from elsewhere) from the bookkeeping map — the
// Janitor's sweep target.
func (c *Cluster) pruneSevered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	pruned := 0
	for id, e := range c.agents {
		if e.handle.Severed() {
			delete(c.agents, id)
			c.platform.UnregisterAgent(id)
			pruned++
		}
	}
	return pruned
}

func (c *Cluster) liveAgentCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.agents)
}
