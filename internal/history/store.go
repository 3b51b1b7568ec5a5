// Package history records completed runs in a SQLite database so earlier
// results can be listed and compared without re-scanning.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/harrison/minrow/internal/models"
	_ "github.com/mattn/go-sqlite3"
)

// ErrRunNotFound is returned when a run id is not in the store.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded pipeline run.
type Run struct {
	ID         string
	Root       string
	StartedAt  time.Time
	Duration   time.Duration
	Discovered int
	Processed  int
	Succeeded  int
	Failed     int
}

// Failure is one dropped file of a recorded run.
type Failure struct {
	Path    string
	Stage   string
	Message string
}

// Store manages the SQLite database holding run history
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open opens or creates the history database at dbPath and applies pending
// migrations. ":memory:" opens a private in-memory database.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection would otherwise see its own empty database
		db.SetMaxOpenConns(1)
	}

	// busy_timeout goes first so the remaining pragmas wait on locks
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	store := &Store{
		db:     db,
		dbPath: dbPath,
	}
	if err := store.ApplyMigrations(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	return store, nil
}

// execWithRetry executes a statement with exponential backoff on lock errors.
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

// Path returns the database location.
func (s *Store) Path() string {
	return s.dbPath
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RecordRun stores a finished run with its records and failures in one
// transaction.
func (s *Store) RecordRun(ctx context.Context, summary *models.RunSummary) error {
	if summary == nil {
		return fmt.Errorf("run summary cannot be nil")
	}
	if summary.RunID == "" {
		return fmt.Errorf("run summary has no run id")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `INSERT INTO runs
		(id, root, started_at, duration_ms, discovered, processed, succeeded, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		summary.RunID,
		summary.Root,
		summary.StartedAt.UTC(),
		summary.Duration.Milliseconds(),
		summary.Discovered,
		summary.Processed,
		summary.Succeeded(),
		summary.Failed(),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	for i, record := range summary.Records {
		values, err := json.Marshal(record.Values)
		if err != nil {
			return fmt.Errorf("marshal row values: %w", err)
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO run_results
			(run_id, position, identifier, row_index, row_values, path)
			VALUES (?, ?, ?, ?, ?, ?)`,
			summary.RunID, i, record.Identifier, record.RowIndex, string(values), record.Path,
		)
		if err != nil {
			return fmt.Errorf("insert result %s: %w", record.Identifier, err)
		}
	}

	for i, failure := range summary.Failures {
		message := ""
		if failure.Err != nil {
			message = failure.Err.Error()
		}
		_, err = tx.ExecContext(ctx, `INSERT INTO run_failures
			(run_id, position, path, stage, message)
			VALUES (?, ?, ?, ?, ?)`,
			summary.RunID, i, failure.Path, failure.Stage, message,
		)
		if err != nil {
			return fmt.Errorf("insert failure %s: %w", failure.Path, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit run: %w", err)
	}
	return nil
}

const runColumns = `id, root, started_at, duration_ms, discovered, processed, succeeded, failed`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	run := &Run{}
	var durationMs int64
	if err := row.Scan(
		&run.ID,
		&run.Root,
		&run.StartedAt,
		&durationMs,
		&run.Discovered,
		&run.Processed,
		&run.Succeeded,
		&run.Failed,
	); err != nil {
		return nil, err
	}
	run.Duration = time.Duration(durationMs) * time.Millisecond
	return run, nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC`
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

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun returns a single run by id or ErrRunNotFound.
func (s *Store) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("query run: %w", err)
	}
	return run, nil
}

// GetRunResults returns the records of a run in their original output order.
func (s *Store) GetRunResults(ctx context.Context, runID string) ([]models.ResultRecord, error) {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT identifier, row_index, row_values, path
		FROM run_results
		WHERE run_id = ?
		ORDER BY position ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var records []models.ResultRecord
	for rows.Next() {
		var record models.ResultRecord
		var values string
		var path sql.NullString
		if err := rows.Scan(&record.Identifier, &record.RowIndex, &values, &path); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		if err := json.Unmarshal([]byte(values), &record.Values); err != nil {
			return nil, fmt.Errorf("unmarshal row values: %w", err)
		}
		record.Path = path.String
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return records, nil
}

// GetRunFailures returns the dropped files of a run in discovery order.
func (s *Store) GetRunFailures(ctx context.Context, runID string) ([]Failure, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path, stage, message
		FROM run_failures
		WHERE run_id = ?
		ORDER BY position ASC`, runID)
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	defer rows.Close()

	var failures []Failure
	for rows.Next() {
		var f Failure
		if err := rows.Scan(&f.Path, &f.Stage, &f.Message); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		failures = append(failures, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate failures: %w", err)
	}
	return failures, nil
}
