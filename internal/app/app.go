package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"dirsync/internal/config"
	"dirsync/internal/database"
	"dirsync/internal/dirsync"
	"dirsync/internal/fs"
)

// SyncApp is the application layer between the CLI and SyncService.
// It constructs all dependencies from config, resolves flag overrides,
// and manages the database and log file lifecycles on Close.
type SyncApp struct {
	cfg     *config.Config
	db      dirsync.Database
	service *dirsync.SyncService
	logFile *os.File
}

// Options adjusts how a SyncApp is built.
type Options struct {
	Verbose bool      // send debug logs to Stderr
	Stderr  io.Writer // defaults to os.Stderr
}

// NewSyncApp creates a fully wired SyncApp from the given config.
// The caller must call Close when done.
func NewSyncApp(cfg *config.Config, opts Options) (*SyncApp, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	ignore := append([]string{}, cfg.Filesystem.Ignore...)
	if cfg.Sync.JournalFile != "" {
		ignore = append(ignore, cfg.Sync.JournalFile)
	}
	fsmgr := fs.NewOSFilesystemManager(ignore)

	db, err := database.NewDatabaseFromConfig(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("creating database: %w", err)
	}

	idgen := dirsync.UUIDGenerator{}
	logger, logFile, err := newLogger(cfg.LogDir, idgen.New(), opts.Stderr, opts.Verbose)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	var journal dirsync.Journal = dirsync.NopJournal{}
	if cfg.Sync.JournalFile != "" {
		journal = dirsync.NewFileJournal(fsmgr, cfg.Sync.JournalFile)
	}

	svc := dirsync.NewSyncService(fsmgr, db, journal, &slogAdapter{l: logger}, dirsync.RealClock{}, idgen)

	return &SyncApp{
		cfg:     cfg,
		db:      db,
		service: svc,
		logFile: logFile,
	}, nil
}

// PlanOptions merges CLI choices over the config. An empty conflict
// keeps the configured policy.
func (a *SyncApp) PlanOptions(hash bool, conflict string) (dirsync.PlanOptions, error) {
	if conflict == "" {
		conflict = a.cfg.Sync.ConflictPolicy
	}
	policy, err := dirsync.ParseConflictPolicy(conflict)
	if err != nil {
		return dirsync.PlanOptions{}, err
	}
	return dirsync.PlanOptions{Mode: dirsync.ModeFor(hash), ConflictPolicy: policy}, nil
}

// Plan computes the plan between two raw root paths without changing anything.
func (a *SyncApp) Plan(ctx context.Context, left, right string, opts dirsync.PlanOptions) (*dirsync.Plan, error) {
	return a.service.Plan(ctx, left, right, opts)
}

// Sync plans, confirms and applies. See dirsync.SyncService.Run.
func (a *SyncApp) Sync(ctx context.Context, left, right string, opts dirsync.PlanOptions, confirm dirsync.ConfirmFunc, onProgress dirsync.ProgressFunc) (*dirsync.Summary, error) {
	return a.service.Run(ctx, left, right, opts, confirm, onProgress)
}

// History returns the most recent sync runs.
func (a *SyncApp) History(limit int) ([]*dirsync.SyncRun, error) {
	return a.service.History(limit)
}

// RunActions returns what one recorded run did.
func (a *SyncApp) RunActions(runID string) ([]*dirsync.ActionResult, error) {
	return a.service.RunActions(runID)
}

// ClearHistory deletes every recorded run.
func (a *SyncApp) ClearHistory() error {
	return a.service.ClearHistory()
}

// Close closes the database and the log file.
func (a *SyncApp) Close() error {
	var firstErr error
	if err := a.db.Close(); err != nil {
		firstErr = fmt.Errorf("closing database: %w", err)
	}
	if a.logFile != nil {
		if err := a.logFile.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("closing log file: %w", err)
		}
	}
	return firstErr
}
