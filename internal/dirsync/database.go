package dirsync

// Database stores the history of sync runs.
// History is auxiliary: the service logs storage failures and keeps syncing.
type Database interface {
	// CreateRun inserts a run record before its first action is applied.
	CreateRun(run *SyncRun) error

	// RecordAction stores the outcome of one applied action for a run.
	RecordAction(runID string, result *ActionResult) error

	// FinishRun stores the final status, counts and finish time of a run.
	FinishRun(run *SyncRun) error

	// ListRuns returns up to limit runs, newest first.
	ListRuns(limit int) ([]*SyncRun, error)

	// ListActions returns the recorded actions of one run in applied order.
	ListActions(runID string) ([]*ActionResult, error)

	// Clear deletes every recorded run.
	Clear() error

	// Close closes the database connection.
	Close() error
}

// NopDatabase is a Database that remembers nothing. Use in tests or when history is disabled.
type NopDatabase struct{}

func (NopDatabase) CreateRun(*SyncRun) error { return nil }

func (NopDatabase) RecordAction(string, *ActionResult) error { return nil }

func (NopDatabase) FinishRun(*SyncRun) error { return nil }

func (NopDatabase) ListRuns(int) ([]*SyncRun, error) { return nil, nil }

func (NopDatabase) ListActions(string) ([]*ActionResult, error) { return nil, nil }

func (NopDatabase) Clear() error { return nil }

func (NopDatabase) Close() error { return nil }
