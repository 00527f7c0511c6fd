package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWithRegistryRegistersAllCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry("test-cluster", reg)
	require.NotNil(t, m)

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestRecordTaskIncrementsCounterAndObservesDuration(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry("test-cluster", reg)

	m.RecordTask("test-cluster", "high", "succeeded", 0.01)
	m.RecordTask("test-cluster", "high", "succeeded", 0.02)

	count := testutil.ToFloat64(m.TasksTotal.WithLabelValues("test-cluster", "high", "succeeded"))
	assert.Equal(t, float64(2), count)
}

func TestSetQueueDepthAndLiveAgents(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry("test-cluster", reg)

	m.SetQueueDepth("test-cluster", "agent-1", "medium", 7)
	m.SetLiveAgents("test-cluster", 3)

	assert.Equal(t, float64(7), testutil.ToFloat64(m.QueueDepth.WithLabelValues("test-cluster", "agent-1", "medium")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.LiveAgents.WithLabelValues("test-cluster")))
}

func TestRecordTransferErrorIncrementsCounter(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry("test-cluster", reg)

	m.RecordTransferError("test-cluster", "number", "type")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.TransferErrors.WithLabelValues("test-cluster", "number", "type")))
}

func TestGlobalInitializesOnce(t *testing.T) {
	global = nil
	first := Global()
	second := Global()
	assert.Same(t, first, second)
}
