package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"dirsync/internal/config"
	"dirsync/internal/dirsync"
	"dirsync/internal/testutil"
)

func newTestApp(t *testing.T, modify func(*config.Config)) *SyncApp {
	t.Helper()
	cfg := config.NewConfig(t.TempDir())
	if modify != nil {
		modify(cfg)
	}
	a, err := NewSyncApp(cfg, Options{Stderr: &bytes.Buffer{}})
	if err != nil {
		t.Fatalf("NewSyncApp() error = %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestSyncApp_PlanOptions(t *testing.T) {
	a := newTestApp(t, func(c *config.Config) { c.Sync.ConflictPolicy = "skip" })

	t.Run("empty flag keeps config policy", func(t *testing.T) {
		opts, err := a.PlanOptions(true, "")
		if err != nil {
			t.Fatalf("PlanOptions() error = %v", err)
		}
		if opts.Mode != dirsync.ModeHash || opts.ConflictPolicy != dirsync.ConflictSkip {
			t.Errorf("PlanOptions() = %+v", opts)
		}
	})

	t.Run("flag overrides config", func(t *testing.T) {
		opts, err := a.PlanOptions(false, "newer")
		if err != nil {
			t.Fatalf("PlanOptions() error = %v", err)
		}
		if opts.Mode != dirsync.ModeTimestamp || opts.ConflictPolicy != dirsync.ConflictNewer {
			t.Errorf("PlanOptions() = %+v", opts)
		}
	})

	t.Run("rejects unknown policy", func(t *testing.T) {
		if _, err := a.PlanOptions(true, "dice"); err == nil {
			t.Error("PlanOptions() error = nil, want error")
		}
	})
}

func TestSyncApp_Sync(t *testing.T) {
	t.Run("applies, journals and records history", func(t *testing.T) {
		a := newTestApp(t, nil)
		left, right := t.TempDir(), t.TempDir()
		testutil.WriteFile(t, left, "a.txt", "a", testutil.BaseTime)

		opts, _ := a.PlanOptions(false, "")
		summary, err := a.Sync(context.Background(), left, right, opts, nil, nil)
		if err != nil {
			t.Fatalf("Sync() error = %v", err)
		}
		if summary.Status != dirsync.StatusCompleted {
			t.Fatalf("Status = %q, want %q", summary.Status, dirsync.StatusCompleted)
		}
		if !testutil.Exists(t, right, dirsync.DefaultJournalFile) {
			t.Error("journal not written to target root")
		}

		runs, err := a.History(5)
		if err != nil {
			t.Fatalf("History() error = %v", err)
		}
		if len(runs) != 1 || runs[0].ID != summary.RunID {
			t.Errorf("History() = %v, want the run %s", runs, summary.RunID)
		}
		actions, err := a.RunActions(summary.RunID)
		if err != nil {
			t.Fatalf("RunActions() error = %v", err)
		}
		if len(actions) != 1 || actions[0].Action.RelativePath != "a.txt" {
			t.Errorf("RunActions() = %v, want the a.txt copy", actions)
		}

		again, err := a.Sync(context.Background(), left, right, opts, nil, nil)
		if err != nil {
			t.Fatalf("second Sync() error = %v", err)
		}
		if again.Status != dirsync.StatusNothingToDo {
			t.Errorf("second Status = %q, want %q", again.Status, dirsync.StatusNothingToDo)
		}

		if err := a.ClearHistory(); err != nil {
			t.Fatalf("ClearHistory() error = %v", err)
		}
		if runs, err := a.History(5); err != nil || len(runs) != 0 {
			t.Errorf("History() after clear = %v, %v, want none", runs, err)
		}
	})

	t.Run("empty journal file disables journaling", func(t *testing.T) {
		a := newTestApp(t, func(c *config.Config) { c.Sync.JournalFile = "" })
		left, right := t.TempDir(), t.TempDir()
		testutil.WriteFile(t, left, "a.txt", "a", testutil.BaseTime)

		opts, _ := a.PlanOptions(false, "")
		if _, err := a.Sync(context.Background(), left, right, opts, nil, nil); err != nil {
			t.Fatalf("Sync() error = %v", err)
		}
		if testutil.Exists(t, right, dirsync.DefaultJournalFile) {
			t.Error("journal written although disabled")
		}
	})

	t.Run("writes the process log", func(t *testing.T) {
		base := t.TempDir()
		a := newTestApp(t, func(c *config.Config) { c.LogDir = filepath.Join(base, "logs") })
		left, right := t.TempDir(), t.TempDir()
		testutil.WriteFile(t, left, "a.txt", "a", testutil.BaseTime)

		opts, _ := a.PlanOptions(false, "")
		if _, err := a.Sync(context.Background(), left, right, opts, nil, nil); err != nil {
			t.Fatalf("Sync() error = %v", err)
		}
		if _, err := os.Stat(filepath.Join(base, "logs", LogFileName)); err != nil {
			t.Errorf("log file missing: %v", err)
		}
	})
}

func TestNewSyncApp_InvalidConfig(t *testing.T) {
	cfg := config.NewConfig(t.TempDir())
	cfg.Database.Type = "postgres"
	if _, err := NewSyncApp(cfg, Options{Stderr: &bytes.Buffer{}}); err == nil {
		t.Error("NewSyncApp() error = nil, want error")
	}
}
