package database

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"dirsync/internal/database/migrations"
	"dirsync/internal/dirsync"
)

// newTestDB creates a new in-memory database with schema applied.
func newTestDB(t *testing.T) *SQLiteDatabase {
	t.Helper()

	db, err := NewSQLiteDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func newRun(id string, started time.Time) *dirsync.SyncRun {
	return &dirsync.SyncRun{
		ID:        id,
		LeftRoot:  "/left",
		RightRoot: "/right",
		Mode:      dirsync.ModeTimestamp,
		Status:    dirsync.StatusRunning,
		StartedAt: started,
		Planned:   2,
	}
}

func TestSQLiteDatabase_RunLifecycle(t *testing.T) {
	t.Run("created run is listed as running", func(t *testing.T) {
		db := newTestDB(t)
		started := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)

		if err := db.CreateRun(newRun("run-1", started)); err != nil {
			t.Fatalf("CreateRun() error = %v", err)
		}

		runs, err := db.ListRuns(10)
		if err != nil {
			t.Fatalf("ListRuns() error = %v", err)
		}
		if len(runs) != 1 {
			t.Fatalf("len(ListRuns()) = %d, want 1", len(runs))
		}
		got := runs[0]
		if got.Status != dirsync.StatusRunning {
			t.Errorf("Status = %q, want %q", got.Status, dirsync.StatusRunning)
		}
		if !got.StartedAt.Equal(started) {
			t.Errorf("StartedAt = %v, want %v", got.StartedAt, started)
		}
		if !got.FinishedAt.IsZero() {
			t.Errorf("FinishedAt = %v, want zero", got.FinishedAt)
		}
		if got.Planned != 2 {
			t.Errorf("Planned = %d, want 2", got.Planned)
		}
	})

	t.Run("finished run stores status and counts", func(t *testing.T) {
		db := newTestDB(t)
		started := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
		run := newRun("run-1", started)
		if err := db.CreateRun(run); err != nil {
			t.Fatalf("CreateRun() error = %v", err)
		}

		run.Status = dirsync.StatusCompletedWithFailures
		run.Applied = 1
		run.Failed = 1
		run.FinishedAt = started.Add(3 * time.Second)
		if err := db.FinishRun(run); err != nil {
			t.Fatalf("FinishRun() error = %v", err)
		}

		runs, err := db.ListRuns(1)
		if err != nil {
			t.Fatalf("ListRuns() error = %v", err)
		}
		got := runs[0]
		if got.Status != dirsync.StatusCompletedWithFailures {
			t.Errorf("Status = %q, want %q", got.Status, dirsync.StatusCompletedWithFailures)
		}
		if got.Applied != 1 || got.Failed != 1 {
			t.Errorf("Applied/Failed = %d/%d, want 1/1", got.Applied, got.Failed)
		}
		if !got.FinishedAt.Equal(run.FinishedAt) {
			t.Errorf("FinishedAt = %v, want %v", got.FinishedAt, run.FinishedAt)
		}
	})

	t.Run("finishing an unknown run fails", func(t *testing.T) {
		db := newTestDB(t)
		if err := db.FinishRun(newRun("missing", time.Now())); err == nil {
			t.Error("FinishRun() error = nil, want error")
		}
	})
}

func TestSQLiteDatabase_RecordAction(t *testing.T) {
	db := newTestDB(t)
	at := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	if err := db.CreateRun(newRun("run-1", at)); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	action := dirsync.Action{
		Kind:         dirsync.ActionCopy,
		RelativePath: "a.txt",
		Source:       filepath.Join("/left", "a.txt"),
		Destination:  filepath.Join("/right", "a.txt"),
		TargetRoot:   "/right",
	}
	if err := db.RecordAction("run-1", &dirsync.ActionResult{Action: action, AppliedAt: at}); err != nil {
		t.Fatalf("RecordAction() error = %v", err)
	}
	failed := &dirsync.ActionResult{Action: action, Err: errors.New("permission denied"), AppliedAt: at}
	if err := db.RecordAction("run-1", failed); err != nil {
		t.Fatalf("RecordAction() error = %v", err)
	}

	results, err := db.ListActions("run-1")
	if err != nil {
		t.Fatalf("ListActions() error = %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("len(ListActions()) = %d, want 2", len(results))
	}
	if results[0].Err != nil || results[0].Action.Kind != dirsync.ActionCopy || results[0].Action.Destination != action.Destination {
		t.Errorf("ListActions()[0] = %+v, want the applied copy", results[0])
	}
	if results[1].Err == nil || results[1].Err.Error() != "permission denied" {
		t.Errorf("ListActions()[1].Err = %v, want permission denied", results[1].Err)
	}
	if !results[1].AppliedAt.Equal(at) {
		t.Errorf("AppliedAt = %v, want %v", results[1].AppliedAt, at)
	}

	t.Run("rejects actions for unknown runs", func(t *testing.T) {
		if err := db.RecordAction("missing", &dirsync.ActionResult{Action: action, AppliedAt: at}); err == nil {
			t.Error("RecordAction() error = nil, want error")
		}
	})
}

func TestSQLiteDatabase_ListRuns(t *testing.T) {
	db := newTestDB(t)
	base := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	for i, id := range []string{"first", "second", "third"} {
		if err := db.CreateRun(newRun(id, base.Add(time.Duration(i)*time.Minute))); err != nil {
			t.Fatalf("CreateRun(%s) error = %v", id, err)
		}
	}

	t.Run("returns newest first", func(t *testing.T) {
		runs, err := db.ListRuns(0)
		if err != nil {
			t.Fatalf("ListRuns() error = %v", err)
		}
		want := []string{"third", "second", "first"}
		if len(runs) != len(want) {
			t.Fatalf("len(ListRuns()) = %d, want %d", len(runs), len(want))
		}
		for i, id := range want {
			if runs[i].ID != id {
				t.Errorf("runs[%d].ID = %q, want %q", i, runs[i].ID, id)
			}
		}
	})

	t.Run("honors the limit", func(t *testing.T) {
		runs, err := db.ListRuns(2)
		if err != nil {
			t.Fatalf("ListRuns() error = %v", err)
		}
		if len(runs) != 2 {
			t.Fatalf("len(ListRuns(2)) = %d, want 2", len(runs))
		}
		if runs[0].ID != "third" {
			t.Errorf("runs[0].ID = %q, want third", runs[0].ID)
		}
	})
}

func TestSQLiteDatabase_Clear(t *testing.T) {
	db := newTestDB(t)
	at := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
	if err := db.CreateRun(newRun("run-1", at)); err != nil {
		t.Fatalf("CreateRun() error = %v", err)
	}

	if err := db.Clear(); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	runs, err := db.ListRuns(0)
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(runs) != 0 {
		t.Errorf("ListRuns() = %v, want none", runs)
	}
	if err := db.CreateRun(newRun("run-2", at)); err != nil {
		t.Errorf("CreateRun() after Clear() error = %v", err)
	}
}

func TestNewSQLiteDatabase_Schema(t *testing.T) {
	t.Run("reopens an up-to-date database", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), HistoryFileName)
		first, err := NewSQLiteDatabase(path)
		if err != nil {
			t.Fatalf("NewSQLiteDatabase() error = %v", err)
		}
		first.Close()

		second, err := NewSQLiteDatabase(path)
		if err != nil {
			t.Fatalf("reopening error = %v", err)
		}
		second.Close()
	})

	t.Run("refuses a database from a newer release", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), HistoryFileName)
		db, err := NewSQLiteDatabase(path)
		if err != nil {
			t.Fatalf("NewSQLiteDatabase() error = %v", err)
		}
		if _, err := db.db.Exec("UPDATE schema_migrations SET version = 99"); err != nil {
			t.Fatalf("bumping version: %v", err)
		}
		db.Close()

		if _, err := NewSQLiteDatabase(path); !errors.Is(err, migrations.ErrSchemaAhead) {
			t.Errorf("NewSQLiteDatabase() error = %v, want ErrSchemaAhead", err)
		}
	})
}
