package store

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	sqlxDB := sqlx.NewDb(db, "postgres")
	return NewPostgresStore(sqlxDB), mock
}

func TestPostgresCreateExecutionInsertsRow(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO executions")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	exec, err := s.CreateExecution(context.Background(), Execution{
		AgentID:   "agent-1",
		Specifier: "./main.js",
		Status:    StatusRunning,
	})
	require.NoError(t, err)
	require.NotEmpty(t, exec.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresUpdateExecutionReportsNotFound(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE executions")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err := s.UpdateExecution(context.Background(), Execution{ID: "missing", Status: StatusFailed})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresGetExecutionScansRow(t *testing.T) {
	s, mock := newMockStore(t)

	now := time.Now().UTC().Truncate(time.Second)
	rows := sqlmock.NewRows([]string{
		"id", "agent_id", "specifier", "input", "output", "logs", "error",
		"status", "started_at", "completed_at", "duration_ns",
	}).AddRow(
		"exec-1", "agent-1", "./main.js", []byte(`{"x":1}`), []byte(`{"y":2}`),
		`{"line one","line two"}`, nil, "succeeded", now, now, int64(time.Second),
	)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM executions WHERE id = $1")).
		WithArgs("exec-1").
		WillReturnRows(rows)

	exec, err := s.GetExecution(context.Background(), "exec-1")
	require.NoError(t, err)
	require.Equal(t, "agent-1", exec.AgentID)
	require.Equal(t, StatusSucceeded, exec.Status)
	require.Equal(t, time.Second, exec.Duration)
}

func TestPostgresListExecutionsAppliesDefaultLimit(t *testing.T) {
	s, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{
		"id", "agent_id", "specifier", "input", "output", "logs", "error",
		"status", "started_at", "completed_at", "duration_ns",
	})

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM executions WHERE agent_id = $1 ORDER BY started_at DESC LIMIT $2")).
		WithArgs("agent-1", 100).
		WillReturnRows(rows)

	list, err := s.ListExecutions(context.Background(), "agent-1", 0)
	require.NoError(t, err)
	require.Empty(t, list)
	require.NoError(t, mock.ExpectationsWereMet())
}
