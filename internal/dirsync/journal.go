package dirsync

import (
	"fmt"
	"path/filepath"
	"time"
)

// DefaultJournalFile is the name of the per-tree action journal.
const DefaultJournalFile = ".dirsync.log"

// Journal records applied actions for the user to inspect later.
// Failures are reported to the caller, who must not abort the sync because of them.
type Journal interface {
	Record(action Action, at time.Time) error
}

// FormatJournalLine renders one journal line:
// "<RFC3339 UTC timestamp> | <KIND> | <source> -> <destination>".
func FormatJournalLine(action Action, at time.Time) string {
	return fmt.Sprintf("%s | %s | %s -> %s",
		at.UTC().Format(time.RFC3339), action.Kind.Label(), action.Source, action.Destination)
}

// FileJournal appends to a journal file at the root of the tree that received the action.
type FileJournal struct {
	fsmgr FilesystemManager
	name  string
}

// NewFileJournal creates a FileJournal writing to name inside each target root.
// An empty name selects DefaultJournalFile.
func NewFileJournal(fsmgr FilesystemManager, name string) *FileJournal {
	if name == "" {
		name = DefaultJournalFile
	}
	return &FileJournal{fsmgr: fsmgr, name: name}
}

// Name returns the journal file name used inside each root.
func (j *FileJournal) Name() string {
	return j.name
}

func (j *FileJournal) Record(action Action, at time.Time) error {
	path := filepath.Join(action.TargetRoot, j.name)
	if err := j.fsmgr.AppendLine(path, FormatJournalLine(action, at)); err != nil {
		return fmt.Errorf("appending to journal %s: %w", path, err)
	}
	return nil
}

// NopJournal discards every record.
type NopJournal struct{}

func (NopJournal) Record(Action, time.Time) error { return nil }

var _ Journal = (*FileJournal)(nil)
