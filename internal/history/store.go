package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"storyboard/internal/config"
)

// OutcomeSucceeded marks an attempt that produced its result. Failed attempts
// use the services.Outcome* labels.
const OutcomeSucceeded = "succeeded"

// Attempt is one row operation run.
type Attempt struct {
	ID           int64     `json:"id"`
	Project      string    `json:"project"`
	BatchID      string    `json:"batchId,omitempty"`
	RowID        int       `json:"rowId"`
	Kind         string    `json:"kind"`
	Prompt       string    `json:"prompt,omitempty"`
	Outcome      string    `json:"outcome"`
	ErrorMessage string    `json:"error,omitempty"`
	AssetCount   int       `json:"assetCount"`
	StartedAt    time.Time `json:"startedAt"`
	FinishedAt   time.Time `json:"finishedAt"`
}

// Duration is the wall time of the attempt.
func (a Attempt) Duration() time.Duration {
	if a.FinishedAt.Before(a.StartedAt) {
		return 0
	}
	return a.FinishedAt.Sub(a.StartedAt)
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Project string
	RowID   int
	BatchID string
	Limit   int
}

// Store manages attempt persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database in the configured
// state directory and applies migrations.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(cfg.HistoryPath())
}

// OpenPath opens the database at path.
func OpenPath(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database location.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts a finished attempt and returns its ID.
func (s *Store) Record(ctx context.Context, a Attempt) (int64, error) {
	if strings.TrimSpace(a.Kind) == "" || strings.TrimSpace(a.Outcome) == "" {
		return 0, errors.New("record attempt: kind and outcome are required")
	}
	started := a.StartedAt
	if started.IsZero() {
		started = time.Now()
	}
	finished := a.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO attempts (
            project, batch_id, row_id, kind, prompt, outcome,
            error_message, asset_count, started_at, finished_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.Project,
		a.BatchID,
		a.RowID,
		a.Kind,
		nullableString(a.Prompt),
		a.Outcome,
		nullableString(a.ErrorMessage),
		a.AssetCount,
		formatTime(started),
		formatTime(finished),
	)
	if err != nil {
		return 0, fmt.Errorf("insert attempt: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

// List returns attempts matching f, newest first.
func (s *Store) List(ctx context.Context, f Filter) ([]Attempt, error) {
	var (
		clauses []string
		args    []any
	)
	if f.Project != "" {
		clauses = append(clauses, "project = ?")
		args = append(args, f.Project)
	}
	if f.RowID > 0 {
		clauses = append(clauses, "row_id = ?")
		args = append(args, f.RowID)
	}
	if f.BatchID != "" {
		clauses = append(clauses, "batch_id = ?")
		args = append(args, f.BatchID)
	}
	query := `SELECT ` + attemptColumns + ` FROM attempts`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY id DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	defer rows.Close()

	var out []Attempt
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attempts: %w", err)
	}
	return out, nil
}

// OutcomeCounts tallies attempts per outcome for a project ("" for all).
func (s *Store) OutcomeCounts(ctx context.Context, project string) (map[string]int, error) {
	query := `SELECT outcome, COUNT(1) FROM attempts`
	var args []any
	if project != "" {
		query += ` WHERE project = ?`
		args = append(args, project)
	}
	query += ` GROUP BY outcome`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("count outcomes: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var (
			outcome string
			count   int
		)
		if err := rows.Scan(&outcome, &count); err != nil {
			return nil, fmt.Errorf("scan outcome count: %w", err)
		}
		counts[outcome] = count
	}
	return counts, rows.Err()
}
