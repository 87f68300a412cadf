package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"dirsync/internal/database/migrations"
	"dirsync/internal/dirsync"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteDatabase implements dirsync.Database using SQLite.
type SQLiteDatabase struct {
	db *sql.DB
}

// NewSQLiteDatabase opens the database at path and applies pending migrations.
// path can be a file path or ":memory:" for an in-memory database.
func NewSQLiteDatabase(path string) (*SQLiteDatabase, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}
	if err := prepareSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("preparing %s: %w", path, err)
	}
	return &SQLiteDatabase{db: db}, nil
}

// prepareSchema migrates a new or outdated database. A database written by a
// newer release, or left dirty by a failed migration, is refused.
func prepareSchema(db *sql.DB) error {
	err := migrations.CheckDBMigrationStatus(db)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, migrations.ErrNoSchema), errors.Is(err, migrations.ErrSchemaBehind):
		return migrations.MigrateUp(db)
	default:
		return err
	}
}

// OpenConnection opens and configures a SQLite connection.
// path can be a file path or ":memory:" for an in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Each connection to ":memory:" is a separate database; SQLite allows one writer anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

func (s *SQLiteDatabase) CreateRun(run *dirsync.SyncRun) error {
	_, err := s.db.Exec(`
		INSERT INTO sync_runs (id, left_root, right_root, mode, status, started_at, planned, applied, failed)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.LeftRoot, run.RightRoot, string(run.Mode), string(run.Status),
		formatTime(run.StartedAt), run.Planned, run.Applied, run.Failed)
	if err != nil {
		return fmt.Errorf("inserting run %s: %w", run.ID, err)
	}
	return nil
}

func (s *SQLiteDatabase) RecordAction(runID string, result *dirsync.ActionResult) error {
	var errText sql.NullString
	if result.Err != nil {
		errText = sql.NullString{String: result.Err.Error(), Valid: true}
	}
	a := result.Action
	_, err := s.db.Exec(`
		INSERT INTO sync_actions (run_id, kind, relative_path, source, destination, error, applied_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		runID, string(a.Kind), a.RelativePath, a.Source, a.Destination, errText, formatTime(result.AppliedAt))
	if err != nil {
		return fmt.Errorf("inserting action for run %s: %w", runID, err)
	}
	return nil
}

func (s *SQLiteDatabase) FinishRun(run *dirsync.SyncRun) error {
	res, err := s.db.Exec(`
		UPDATE sync_runs
		SET status = ?, finished_at = ?, applied = ?, failed = ?
		WHERE id = ?`,
		string(run.Status), formatTime(run.FinishedAt), run.Applied, run.Failed, run.ID)
	if err != nil {
		return fmt.Errorf("updating run %s: %w", run.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating run %s: %w", run.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("run not found: %s", run.ID)
	}
	return nil
}

func (s *SQLiteDatabase) ListRuns(limit int) ([]*dirsync.SyncRun, error) {
	if limit <= 0 {
		limit = -1 // no limit
	}
	rows, err := s.db.Query(`
		SELECT id, left_root, right_root, mode, status, started_at, finished_at, planned, applied, failed
		FROM sync_runs
		ORDER BY started_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []*dirsync.SyncRun
	for rows.Next() {
		var (
			run          dirsync.SyncRun
			mode, status string
			startedAt    string
			finishedAt   sql.NullString
		)
		if err := rows.Scan(&run.ID, &run.LeftRoot, &run.RightRoot, &mode, &status,
			&startedAt, &finishedAt, &run.Planned, &run.Applied, &run.Failed); err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		run.Mode = dirsync.CompareMode(mode)
		run.Status = dirsync.RunStatus(status)
		if run.StartedAt, err = parseTime(startedAt); err != nil {
			return nil, fmt.Errorf("run %s: %w", run.ID, err)
		}
		if finishedAt.Valid {
			if run.FinishedAt, err = parseTime(finishedAt.String); err != nil {
				return nil, fmt.Errorf("run %s: %w", run.ID, err)
			}
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating runs: %w", err)
	}
	return runs, nil
}

// ListActions returns the recorded actions of a run in the order they were applied.
// An unknown run has no actions.
func (s *SQLiteDatabase) ListActions(runID string) ([]*dirsync.ActionResult, error) {
	rows, err := s.db.Query(`
		SELECT kind, relative_path, source, destination, error, applied_at
		FROM sync_actions
		WHERE run_id = ?
		ORDER BY id`, runID)
	if err != nil {
		return nil, fmt.Errorf("querying actions for run %s: %w", runID, err)
	}
	defer rows.Close()

	var results []*dirsync.ActionResult
	for rows.Next() {
		var (
			result    dirsync.ActionResult
			kind      string
			errText   sql.NullString
			appliedAt string
		)
		a := &result.Action
		if err := rows.Scan(&kind, &a.RelativePath, &a.Source, &a.Destination, &errText, &appliedAt); err != nil {
			return nil, fmt.Errorf("scanning action: %w", err)
		}
		a.Kind = dirsync.ActionKind(kind)
		if errText.Valid {
			result.Err = errors.New(errText.String)
		}
		if result.AppliedAt, err = parseTime(appliedAt); err != nil {
			return nil, fmt.Errorf("action of run %s: %w", runID, err)
		}
		results = append(results, &result)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating actions: %w", err)
	}
	return results, nil
}

// Clear drops all recorded history by reverting the schema and applying it again.
func (s *SQLiteDatabase) Clear() error {
	if err := migrations.MigrateDown(s.db); err != nil {
		return fmt.Errorf("dropping history: %w", err)
	}
	if err := migrations.MigrateUp(s.db); err != nil {
		return fmt.Errorf("recreating history: %w", err)
	}
	return nil
}

func (s *SQLiteDatabase) Close() error {
	return s.db.Close()
}

// Timestamps are stored as UTC RFC 3339 text so that lexical order matches time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
	}
	return t, nil
}

var _ dirsync.Database = (*SQLiteDatabase)(nil)
