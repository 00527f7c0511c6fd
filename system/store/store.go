// Package store persists a record of each agent task execution for audit
// and operator visibility (spec.md §4.15). It has no bearing on engine
// semantics: an agent runs identically whether or not a Store is wired in.
package store

import (
	"context"
	"time"
)

// Status describes the terminal outcome of an execution record.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Execution is the persisted record of one scheduled task run inside an
// agent: a module evaluation, a timer callback, a microtask drain — any
// unit of work the admin surface or an operator might want a history of.
// Grounded on the teacher's ScriptRun, narrowed to this module's domain
// (no blockchain action results; Actions/ActionResults dropped).
type Execution struct {
	ID          string         `json:"id"`
	AgentID     string         `json:"agent_id"`
	Specifier   string         `json:"specifier"`
	Input       map[string]any `json:"input,omitempty"`
	Output      map[string]any `json:"output,omitempty"`
	Logs        []string       `json:"logs,omitempty"`
	Error       string         `json:"error,omitempty"`
	Status      Status         `json:"status"`
	StartedAt   time.Time      `json:"started_at"`
	CompletedAt time.Time      `json:"completed_at"`
	Duration    time.Duration  `json:"duration"`
}

// Store is the persistence interface for execution records. Mirrors the
// teacher's ScriptStore, trimmed to the execution-history half of that
// interface (script definition CRUD has no counterpart here — agents are
// not named, stored scripts, they're transient module graphs).
type Store interface {
	CreateExecution(ctx context.Context, exec Execution) (Execution, error)
	UpdateExecution(ctx context.Context, exec Execution) (Execution, error)
	GetExecution(ctx context.Context, id string) (Execution, error)
	ListExecutions(ctx context.Context, agentID string, limit int) ([]Execution, error)
}
