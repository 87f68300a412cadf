package dirsync_test

import (
	"path/filepath"
	"testing"
	"time"

	"dirsync/internal/dirsync"
	"dirsync/internal/testutil"
)

func TestFormatJournalLine(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.FixedZone("CET", 3600))
	action := dirsync.Action{Kind: dirsync.ActionUpdate, Source: "/a/x.txt", Destination: "/b/x.txt"}

	got := dirsync.FormatJournalLine(action, at)
	want := "2024-03-01T11:00:00Z | UPDATE | /a/x.txt -> /b/x.txt"
	if got != want {
		t.Errorf("FormatJournalLine() = %q, want %q", got, want)
	}
}

func TestFileJournal_Record(t *testing.T) {
	t.Run("uses the configured name inside the target root", func(t *testing.T) {
		t.Parallel()
		root := testutil.TempDir(t)
		j := dirsync.NewFileJournal(testutil.NewFilesystem(), "custom.log")
		action := dirsync.Action{
			Kind:        dirsync.ActionCopy,
			Source:      "/src/a",
			Destination: filepath.Join(root, "a"),
			TargetRoot:  root,
		}

		at := testutil.FixedClock().Now()
		if err := j.Record(action, at); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
		if err := j.Record(action, at); err != nil {
			t.Fatalf("Record() error = %v", err)
		}

		line := dirsync.FormatJournalLine(action, at) + "\n"
		if got := testutil.ReadFile(t, root, "custom.log"); got != line+line {
			t.Errorf("journal = %q, want two lines", got)
		}
	})

	t.Run("empty name selects the default", func(t *testing.T) {
		t.Parallel()
		j := dirsync.NewFileJournal(testutil.NewFilesystem(), "")
		if j.Name() != dirsync.DefaultJournalFile {
			t.Errorf("Name() = %q, want %q", j.Name(), dirsync.DefaultJournalFile)
		}
	})

	t.Run("reports write failures", func(t *testing.T) {
		t.Parallel()
		missing := filepath.Join(testutil.TempDir(t), "missing-root")
		j := dirsync.NewFileJournal(testutil.NewFilesystem(), "")
		action := dirsync.Action{Kind: dirsync.ActionCopy, TargetRoot: missing}
		if err := j.Record(action, time.Now()); err == nil {
			t.Error("Record() error = nil, want error")
		}
	})
}
