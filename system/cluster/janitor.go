package cluster

import (
	"github.com/robfig/cron/v3"

	"github.com/r3e-network/jsagent/pkg/logger"
)

// DefaultSweepSchedule runs the janitor every 30 seconds.
const DefaultSweepSchedule = "@every 30s"

// Janitor periodically reports a cluster's live-agent count and per-agent
// queue depths to metrics and prunes any agent whose handle has already severed itself, so a
// forced teardown elsewhere doesn't leave a stale bookkeeping entry behind
// (spec.md §4.19).
type Janitor struct {
	cluster  *Cluster
	cron     *cron.Cron
	schedule string
	log      *logger.Logger
}

// NewJanitor constructs a Janitor for cluster, sweeping on schedule (a
// robfig/cron/v3 spec string; DefaultSweepSchedule if empty).
func NewJanitor(c *Cluster, schedule string, log *logger.Logger) *Janitor {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	if log == nil {
		log = logger.NewDefault("cluster.janitor")
	}
	return &Janitor{cluster: c, cron: cron.New(), schedule: schedule, log: log}
}

// Start schedules the sweep and begins running it in the background.
// Returns an error if the schedule string is malformed.
func (j *Janitor) Start() error {
	_, err := j.cron.AddFunc(j.schedule, j.sweep)
	if err != nil {
		return err
	}
	j.cron.Start()
	return nil
}

// Stop halts the janitor, waiting for any in-flight sweep to finish.
func (j *Janitor) Stop() {
	<-j.cron.Stop().Done()
}

// sweep runs one pass: reports live-agent/queue-depth metrics, then prunes
// severed handles.
func (j *Janitor) sweep() {
	pruned := j.cluster.pruneSevered()
	count := j.cluster.liveAgentCount()

	if j.cluster.metrics != nil {
		j.cluster.metrics.SetLiveAgents(j.cluster.Descriptor.ID, count)
		for _, agentID := range j.cluster.AgentIDs() {
			depth, ok := j.cluster.QueueDepth(agentID)
			if !ok {
				continue
			}
			j.cluster.metrics.SetQueueDepth(j.cluster.Descriptor.ID, agentID, "high", depth[0])
			j.cluster.metrics.SetQueueDepth(j.cluster.Descriptor.ID, agentID, "medium", depth[1])
			j.cluster.metrics.SetQueueDepth(j.cluster.Descriptor.ID, agentID, "low", depth[2])
		}
	}

	if pruned > 0 {
		j.log.WithField("pruned", pruned).Info("cluster: janitor pruned severed agent handles")
	}
}
