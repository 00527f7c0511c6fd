package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// PostgresStore persists executions to Postgres via sqlx, grounded on the
// teacher's audit-store package (jmoiron/sqlx + lib/pq + golang-migrate
// schema versioning). Unlike MemoryStore, records survive a process
// restart, which is the point of an audit trail.
type PostgresStore struct {
	db *sqlx.DB
}

// OpenPostgresStore connects to dsn, runs pending migrations embedded in
// this package, and returns a ready Store.
func OpenPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: connect postgres: %w", err)
	}
	if err := migrateUp(db.DB); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// NewPostgresStore wraps an already-open, already-migrated *sqlx.DB —
// useful for tests that hand in a go-sqlmock connection, which can't run
// the migrate driver's lock/version bookkeeping against a mock.
func NewPostgresStore(db *sqlx.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func migrateUp(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return err
	}
	source, err := iofs.New(migrationFS, "migrations")
	if err != nil {
		return err
	}
	m, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

type executionRow struct {
	ID          string         `db:"id"`
	AgentID     string         `db:"agent_id"`
	Specifier   string         `db:"specifier"`
	Input       []byte         `db:"input"`
	Output      []byte         `db:"output"`
	Logs        pq.StringArray `db:"logs"`
	Error       sql.NullString `db:"error"`
	Status      string         `db:"status"`
	StartedAt   time.Time      `db:"started_at"`
	CompletedAt sql.NullTime   `db:"completed_at"`
	DurationNS  int64          `db:"duration_ns"`
}

func rowFromExecution(exec Execution) (executionRow, error) {
	input, err := json.Marshal(exec.Input)
	if err != nil {
		return executionRow{}, err
	}
	output, err := json.Marshal(exec.Output)
	if err != nil {
		return executionRow{}, err
	}
	row := executionRow{
		ID:         exec.ID,
		AgentID:    exec.AgentID,
		Specifier:  exec.Specifier,
		Input:      input,
		Output:     output,
		Logs:       pq.StringArray(exec.Logs),
		Status:     string(exec.Status),
		StartedAt:  exec.StartedAt,
		DurationNS: int64(exec.Duration),
	}
	if exec.Error != "" {
		row.Error = sql.NullString{String: exec.Error, Valid: true}
	}
	if !exec.CompletedAt.IsZero() {
		row.CompletedAt = sql.NullTime{Time: exec.CompletedAt, Valid: true}
	}
	return row, nil
}

func (row executionRow) toExecution() (Execution, error) {
	var input, output map[string]any
	if len(row.Input) > 0 {
		if err := json.Unmarshal(row.Input, &input); err != nil {
			return Execution{}, err
		}
	}
	if len(row.Output) > 0 {
		if err := json.Unmarshal(row.Output, &output); err != nil {
			return Execution{}, err
		}
	}
	exec := Execution{
		ID:        row.ID,
		AgentID:   row.AgentID,
		Specifier: row.Specifier,
		Input:     input,
		Output:    output,
		Logs:      []string(row.Logs),
		Status:    Status(row.Status),
		StartedAt: row.StartedAt,
		Duration:  time.Duration(row.DurationNS),
	}
	if row.Error.Valid {
		exec.Error = row.Error.String
	}
	if row.CompletedAt.Valid {
		exec.CompletedAt = row.CompletedAt.Time
	}
	return exec, nil
}

func (s *PostgresStore) CreateExecution(ctx context.Context, exec Execution) (Execution, error) {
	if exec.ID == "" {
		exec.ID = uuid.New().String()
	}
	if exec.StartedAt.IsZero() {
		exec.StartedAt = time.Now().UTC()
	}
	row, err := rowFromExecution(exec)
	if err != nil {
		return Execution{}, err
	}
	_, err = s.db.NamedExecContext(ctx, `
		INSERT INTO executions (id, agent_id, specifier, input, output, logs, error, status, started_at, completed_at, duration_ns)
		VALUES (:id, :agent_id, :specifier, :input, :output, :logs, :error, :status, :started_at, :completed_at, :duration_ns)
	`, row)
	if err != nil {
		return Execution{}, fmt.Errorf("store: create execution: %w", err)
	}
	return exec, nil
}

func (s *PostgresStore) UpdateExecution(ctx context.Context, exec Execution) (Execution, error) {
	row, err := rowFromExecution(exec)
	if err != nil {
		return Execution{}, err
	}
	res, err := s.db.NamedExecContext(ctx, `
		UPDATE executions
		SET output = :output, logs = :logs, error = :error, status = :status, completed_at = :completed_at, duration_ns = :duration_ns
		WHERE id = :id
	`, row)
	if err != nil {
		return Execution{}, fmt.Errorf("store: update execution: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return Execution{}, err
	}
	if affected == 0 {
		return Execution{}, fmt.Errorf("execution not found: %s", exec.ID)
	}
	return exec, nil
}

func (s *PostgresStore) GetExecution(ctx context.Context, id string) (Execution, error) {
	var row executionRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM executions WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Execution{}, fmt.Errorf("execution not found: %s", id)
	}
	if err != nil {
		return Execution{}, fmt.Errorf("store: get execution: %w", err)
	}
	return row.toExecution()
}

func (s *PostgresStore) ListExecutions(ctx context.Context, agentID string, limit int) ([]Execution, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []executionRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT * FROM executions WHERE agent_id = $1 ORDER BY started_at DESC LIMIT $2
	`, agentID, limit)
	if err != nil {
		return nil, fmt.Errorf("store: list executions: %w", err)
	}
	out := make([]Execution, 0, len(rows))
	for _, row := range rows {
		exec, err := row.toExecution()
		if err != nil {
			return nil, err
		}
		out = append(out, exec)
	}
	return out, nil
}

var _ Store = (*PostgresStore)(nil)
