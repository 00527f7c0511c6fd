package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreCreateAssignsID(t *testing.T) {
	s := NewMemoryStore()
	exec, err := s.CreateExecution(context.Background(), Execution{AgentID: "a1", Specifier: "./main.js"})
	require.NoError(t, err)
	assert.NotEmpty(t, exec.ID)
	assert.False(t, exec.StartedAt.IsZero())
}

func TestMemoryStoreUpdatePreservesStartedAt(t *testing.T) {
	s := NewMemoryStore()
	created, err := s.CreateExecution(context.Background(), Execution{AgentID: "a1"})
	require.NoError(t, err)

	created.Status = StatusSucceeded
	created.CompletedAt = time.Now().UTC()
	updated, err := s.UpdateExecution(context.Background(), created)
	require.NoError(t, err)
	assert.Equal(t, created.StartedAt, updated.StartedAt)
	assert.Equal(t, StatusSucceeded, updated.Status)
}

func TestMemoryStoreUpdateUnknownIDErrors(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.UpdateExecution(context.Background(), Execution{ID: "missing"})
	assert.Error(t, err)
}

func TestMemoryStoreGetUnknownIDErrors(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.GetExecution(context.Background(), "missing")
	assert.Error(t, err)
}

func TestMemoryStoreListOrdersByStartedAtDescendingAndLimits(t *testing.T) {
	s := NewMemoryStore()
	base := time.Now().UTC()
	for i := 0; i < 5; i++ {
		_, err := s.CreateExecution(context.Background(), Execution{
			AgentID:   "a1",
			StartedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}
	_, err := s.CreateExecution(context.Background(), Execution{AgentID: "other"})
	require.NoError(t, err)

	list, err := s.ListExecutions(context.Background(), "a1", 3)
	require.NoError(t, err)
	require.Len(t, list, 3)
	for i := 0; i < len(list)-1; i++ {
		assert.True(t, list[i].StartedAt.After(list[i+1].StartedAt) || list[i].StartedAt.Equal(list[i+1].StartedAt))
	}
}
