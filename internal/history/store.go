// Package history keeps a SQLite record of every task attempt and run so
// retries and flaky tasks stay visible after the bounded execution log has
// rotated them out.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Attempt is one execution of one task.
type Attempt struct {
	ID           int64
	RunID        string
	TaskID       string
	TaskTitle    string
	AgentType    string
	Iteration    int
	Success      bool
	ErrorMessage string
	FailureKind  string
	Duration     time.Duration
	RecordedAt   time.Time
}

// Run is one invocation of the execution loop.
type Run struct {
	ID         string
	TasksFile  string
	StartedAt  time.Time
	FinishedAt time.Time
	Iterations int
	Completed  int
	Failed     int
	StopReason string
}

// TaskCount aggregates attempts for one task.
type TaskCount struct {
	TaskID      string
	TaskTitle   string
	Attempts    int
	Successes   int
	Failures    int
	LastAttempt time.Time
}

// Store wraps the history database.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open opens or creates the database at dbPath and applies migrations.
func Open(dbPath string) (*Store, error) {
	if dbPath != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == MemoryPath {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	s := &Store{db: db, dbPath: dbPath}
	if err := s.applyMigrations(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return s, nil
}

// execWithRetry retries statements that fail with "database is locked",
// doubling the delay each attempt.
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Path returns the database path.
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// StartRun inserts a run row.
func (s *Store) StartRun(ctx context.Context, run Run) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, tasks_file, started_at) VALUES (?, ?, ?)`,
		run.ID, run.TasksFile, run.StartedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun stores the outcome of a run started with StartRun.
func (s *Store) FinishRun(ctx context.Context, run Run) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET finished_at = ?, iterations = ?, completed = ?, failed = ?, stop_reason = ? WHERE id = ?`,
		run.FinishedAt.UnixMilli(), run.Iterations, run.Completed, run.Failed, run.StopReason, run.ID)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update run: unknown run %s", run.ID)
	}
	return nil
}

// RecordAttempt inserts an attempt and sets its ID.
func (s *Store) RecordAttempt(ctx context.Context, a *Attempt) error {
	if a.RecordedAt.IsZero() {
		a.RecordedAt = time.Now()
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO attempts
		(run_id, task_id, task_title, agent_type, iteration, success, error_message, failure_kind, duration_ms, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.RunID, a.TaskID, a.TaskTitle, a.AgentType, a.Iteration, a.Success,
		a.ErrorMessage, a.FailureKind, a.Duration.Milliseconds(), a.RecordedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	a.ID = id
	return nil
}

const attemptColumns = `id, run_id, task_id, task_title, agent_type, iteration, success, error_message, failure_kind, duration_ms, recorded_at`

// RecentAttempts returns the newest attempts first. limit < 1 returns all.
func (s *Store) RecentAttempts(ctx context.Context, limit int) ([]Attempt, error) {
	query := `SELECT ` + attemptColumns + ` FROM attempts ORDER BY recorded_at DESC, id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	return s.queryAttempts(ctx, query, args...)
}

// TaskAttempts returns a task's attempts, newest first.
func (s *Store) TaskAttempts(ctx context.Context, taskID string) ([]Attempt, error) {
	return s.queryAttempts(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE task_id = ? ORDER BY recorded_at DESC, id DESC`, taskID)
}

// RunAttempts returns the attempts of one run in execution order.
func (s *Store) RunAttempts(ctx context.Context, runID string) ([]Attempt, error) {
	return s.queryAttempts(ctx,
		`SELECT `+attemptColumns+` FROM attempts WHERE run_id = ? ORDER BY id ASC`, runID)
}

func (s *Store) queryAttempts(ctx context.Context, query string, args ...any) ([]Attempt, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		var (
			a                          Attempt
			agent, errMsg, failureKind sql.NullString
			durationMs, recordedMs     int64
		)
		err := rows.Scan(&a.ID, &a.RunID, &a.TaskID, &a.TaskTitle, &agent, &a.Iteration,
			&a.Success, &errMsg, &failureKind, &durationMs, &recordedMs)
		if err != nil {
			return nil, fmt.Errorf("scan attempt row: %w", err)
		}
		a.AgentType = agent.String
		a.ErrorMessage = errMsg.String
		a.FailureKind = failureKind.String
		a.Duration = time.Duration(durationMs) * time.Millisecond
		a.RecordedAt = time.UnixMilli(recordedMs)
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempt rows: %w", err)
	}
	return out, nil
}

// AttemptCounts aggregates attempts per task, most attempted first.
func (s *Store) AttemptCounts(ctx context.Context) ([]TaskCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT task_id, MAX(task_title), COUNT(*),
		       SUM(CASE WHEN success THEN 1 ELSE 0 END),
		       SUM(CASE WHEN success THEN 0 ELSE 1 END),
		       MAX(recorded_at)
		FROM attempts
		GROUP BY task_id
		ORDER BY COUNT(*) DESC, task_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query attempt counts: %w", err)
	}
	defer rows.Close()

	var out []TaskCount
	for rows.Next() {
		var (
			c      TaskCount
			lastMs int64
		)
		if err := rows.Scan(&c.TaskID, &c.TaskTitle, &c.Attempts, &c.Successes, &c.Failures, &lastMs); err != nil {
			return nil, fmt.Errorf("scan attempt count: %w", err)
		}
		c.LastAttempt = time.UnixMilli(lastMs)
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempt counts: %w", err)
	}
	return out, nil
}

// Runs returns the newest runs first. limit < 1 returns all.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT id, tasks_file, started_at, finished_at, iterations, completed, failed, stop_reason
		FROM runs ORDER BY started_at DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var (
			r          Run
			startedMs  int64
			finishedMs sql.NullInt64
			reason     sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.TasksFile, &startedMs, &finishedMs, &r.Iterations, &r.Completed, &r.Failed, &reason); err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		r.StartedAt = time.UnixMilli(startedMs)
		if finishedMs.Valid {
			r.FinishedAt = time.UnixMilli(finishedMs.Int64)
		}
		r.StopReason = reason.String
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}
	return out, nil
}
