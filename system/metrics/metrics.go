// Package metrics collects Prometheus series describing scheduler and
// transfer activity, for the admin surface's /metrics endpoint and for
// operators running several clusters side by side.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every collector this module registers. Grounded on the
// teacher's infrastructure/metrics package: a struct of *Vec collectors
// built once via NewWithRegistry, so tests can pass a throwaway registry
// instead of clobbering prometheus.DefaultRegisterer.
type Metrics struct {
	TasksTotal     *prometheus.CounterVec
	TaskDuration   *prometheus.HistogramVec
	QueueDepth     *prometheus.GaugeVec
	LiveAgents     *prometheus.GaugeVec
	TransferErrors *prometheus.CounterVec
}

// New registers collectors against prometheus.DefaultRegisterer.
func New(clusterID string) *Metrics {
	return NewWithRegistry(clusterID, prometheus.DefaultRegisterer)
}

// NewWithRegistry registers collectors against registerer, or skips
// registration entirely if registerer is nil (tests constructing a bare
// Metrics to pass values around without a live registry).
func NewWithRegistry(clusterID string, registerer prometheus.Registerer) *Metrics {
	m := &Metrics{
		TasksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jsagent_tasks_total",
				Help: "Total number of scheduler tasks run, by priority and outcome.",
			},
			[]string{"cluster", "priority", "outcome"},
		),
		TaskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "jsagent_task_duration_seconds",
				Help:    "Scheduler task execution duration in seconds, by priority.",
				Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"cluster", "priority"},
		),
		QueueDepth: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "jsagent_queue_depth",
				Help: "Current number of queued tasks, by priority band.",
			},
			[]string{"cluster", "agent", "priority"},
		),
		LiveAgents: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "jsagent_live_agents",
				Help: "Current number of live agent handles in a cluster.",
			},
			[]string{"cluster"},
		),
		TransferErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "jsagent_transfer_errors_total",
				Help: "Total number of value-transfer rejections, by tag and error kind.",
			},
			[]string{"cluster", "tag", "kind"},
		),
	}

	if registerer != nil {
		registerer.MustRegister(
			m.TasksTotal,
			m.TaskDuration,
			m.QueueDepth,
			m.LiveAgents,
			m.TransferErrors,
		)
	}

	return m
}

// RecordTask observes one completed scheduler task.
func (m *Metrics) RecordTask(cluster, priority, outcome string, seconds float64) {
	m.TasksTotal.WithLabelValues(cluster, priority, outcome).Inc()
	m.TaskDuration.WithLabelValues(cluster, priority).Observe(seconds)
}

// SetQueueDepth reports the current queue length for one agent/priority pair.
func (m *Metrics) SetQueueDepth(cluster, agent, priority string, depth int) {
	m.QueueDepth.WithLabelValues(cluster, agent, priority).Set(float64(depth))
}

// SetLiveAgents reports the current live-agent-handle count for a cluster.
func (m *Metrics) SetLiveAgents(cluster string, count int) {
	m.LiveAgents.WithLabelValues(cluster).Set(float64(count))
}

// RecordTransferError records one rejected transfer.
func (m *Metrics) RecordTransferError(cluster, tag, kind string) {
	m.TransferErrors.WithLabelValues(cluster, tag, kind).Inc()
}

var (
	global   *Metrics
	globalMu sync.Mutex
)

// Init initializes (once) and returns the process-wide Metrics instance.
func Init(clusterID string) *Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()
	if global == nil {
		global = New(clusterID)
	}
	return global
}

// Global returns the process-wide Metrics instance, initializing a default
// one if Init was never called.
func Global() *Metrics {
	globalMu.Lock()
	defer globalMu.Unlock()
	if global == nil {
		global = New("default")
	}
	return global
}
