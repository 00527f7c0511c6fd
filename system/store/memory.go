package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore implements Store in process memory. Grounded on the
// teacher's MemoryScriptStore; useful for tests and single-process
// deployments that don't need executions to survive a restart.
type MemoryStore struct {
	mu    sync.RWMutex
	execs map[string]Execution
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{execs: make(map[string]Execution)}
}

func (s *MemoryStore) CreateExecution(ctx context.Context, exec Execution) (Execution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if exec.ID == "" {
		exec.ID = uuid.New().String()
	}
	if exec.StartedAt.IsZero() {
		exec.StartedAt = time.Now().UTC()
	}
	s.execs[exec.ID] = exec
	return exec, nil
}

func (s *MemoryStore) UpdateExecution(ctx context.Context, exec Execution) (Execution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.execs[exec.ID]
	if !ok {
		return Execution{}, fmt.Errorf("execution not found: %s", exec.ID)
	}
	exec.StartedAt = existing.StartedAt
	s.execs[exec.ID] = exec
	return exec, nil
}

func (s *MemoryStore) GetExecution(ctx context.Context, id string) (Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	exec, ok := s.execs[id]
	if !ok {
		return Execution{}, fmt.Errorf("execution not found: %s", id)
	}
	return exec, nil
}

func (s *MemoryStore) ListExecutions(ctx context.Context, agentID string, limit int) ([]Execution, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []Execution
	for _, exec := range s.execs {
		if exec.AgentID == agentID {
			result = append(result, exec)
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].StartedAt.After(result[j].StartedAt)
	})

	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}

var _ Store = (*MemoryStore)(nil)
