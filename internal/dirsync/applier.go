package dirsync

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
)

// BackupPath returns where the current contents of destination are moved
// before an overwrite: <dir>/.backup/<base>.bak.
func BackupPath(destination string) string {
	return filepath.Join(filepath.Dir(destination), BackupDirName, filepath.Base(destination)+BackupSuffix)
}

// Applier executes single actions against live storage.
type Applier struct {
	fsmgr   FilesystemManager
	journal Journal
	clock   Clock
	logger  Logger
}

// NewApplier creates an Applier. A nil journal disables journaling.
func NewApplier(fsmgr FilesystemManager, journal Journal, clock Clock, logger Logger) *Applier {
	if journal == nil {
		journal = NopJournal{}
	}
	return &Applier{
		fsmgr:   fsmgr,
		journal: journal,
		clock:   clock,
		logger:  orNop(logger),
	}
}

// Apply performs one action:
//  1. create the destination's parent directories
//  2. move any existing destination into the sibling backup directory
//  3. copy the source over, keeping its permissions and times
//  4. append a journal line; journal failures are logged, not returned
//
// Nothing is rolled back. If the backup move succeeds and the copy fails,
// the destination is left absent and its previous contents stay in the backup.
func (a *Applier) Apply(action Action) error {
	if err := a.fsmgr.MkdirAll(filepath.Dir(action.Destination)); err != nil {
		return fmt.Errorf("creating parent of %s: %w", action.Destination, err)
	}

	if err := a.backup(action.Destination); err != nil {
		return err
	}

	if err := a.fsmgr.CopyFile(action.Source, action.Destination); err != nil {
		return fmt.Errorf("copying %s to %s: %w", action.Source, action.Destination, err)
	}

	if err := a.journal.Record(action, a.clock.Now()); err != nil {
		a.logger.Warn("journal write failed", "path", action.Destination, "error", err)
	}

	a.logger.Info("action applied",
		"kind", string(action.Kind),
		"source", action.Source,
		"destination", action.Destination)
	return nil
}

// backup moves an existing destination aside. A previous backup of the same
// name is replaced.
func (a *Applier) backup(destination string) error {
	info, err := a.fsmgr.Lstat(destination)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("checking destination %s: %w", destination, err)
	}
	if info.IsDir() {
		return fmt.Errorf("destination %s is a directory", destination)
	}

	backupPath := BackupPath(destination)
	if err := a.fsmgr.MkdirAll(filepath.Dir(backupPath)); err != nil {
		return fmt.Errorf("creating backup directory for %s: %w", destination, err)
	}
	if err := a.fsmgr.Rename(destination, backupPath); err != nil {
		return fmt.Errorf("backing up %s: %w", destination, err)
	}

	a.logger.Debug("destination backed up", "path", destination, "backup", backupPath)
	return nil
}
