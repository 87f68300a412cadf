package dirsync

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"
)

// SyncService is the orchestration layer: it indexes both roots, plans,
// and drives the Applier over the plan while recording run history.
type SyncService struct {
	fsmgr    FilesystemManager
	database Database
	applier  *Applier
	logger   Logger
	clock    Clock
	idgen    IDGenerator
}

// NewSyncService creates a new SyncService with the provided dependencies.
// Nil journal, database and logger disable journaling, run history and
// logging. Nil clock and idgen fall back to the real implementations.
func NewSyncService(fsmgr FilesystemManager, database Database, journal Journal, logger Logger, clock Clock, idgen IDGenerator) *SyncService {
	logger = orNop(logger)
	if database == nil {
		database = NopDatabase{}
	}
	if clock == nil {
		clock = RealClock{}
	}
	if idgen == nil {
		idgen = UUIDGenerator{}
	}
	return &SyncService{
		fsmgr:    fsmgr,
		database: database,
		applier:  NewApplier(fsmgr, journal, clock, logger),
		logger:   logger,
		clock:    clock,
		idgen:    idgen,
	}
}

// Index builds the TreeIndex for one root.
func (s *SyncService) Index(ctx context.Context, rawRoot string) (*TreeIndex, error) {
	return Index(ctx, s.fsmgr, rawRoot)
}

// Plan indexes both roots and computes the actions between them.
// Both roots are indexed concurrently; the plan is built once both finish.
// Invalid roots fail with ErrNotDirectory, and roots that are the same tree
// or nested inside each other fail with ErrSameRoot. When one walk fails
// the other is canceled.
func (s *SyncService) Plan(ctx context.Context, leftRoot, rightRoot string, opts PlanOptions) (*Plan, error) {
	var left, right *TreeIndex
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		idx, err := Index(gctx, s.fsmgr, leftRoot)
		left = idx
		return err
	})
	g.Go(func() error {
		idx, err := Index(gctx, s.fsmgr, rightRoot)
		right = idx
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if overlaps(left.Root, right.Root) {
		return nil, fmt.Errorf("%w: %s and %s", ErrSameRoot, left.Root, right.Root)
	}

	s.logger.Debug("roots indexed",
		"left", left.Root, "left_files", left.Len(),
		"right", right.Root, "right_files", right.Len())
	for _, idx := range []*TreeIndex{left, right} {
		for _, w := range idx.Warnings {
			s.logger.Warn("skipping unreadable path", "path", w.Path, "error", w.Err)
		}
	}

	return BuildPlan(ctx, s.fsmgr, s.logger, left, right, opts)
}

// Apply performs a single action. It is the per-action entry point for
// callers that drive the plan themselves. onProgress, if non-nil, is called
// with 1 once the action has finished, whether or not it succeeded.
func (s *SyncService) Apply(action Action, onProgress ProgressFunc) error {
	err := withRecover(func() error {
		return s.applier.Apply(action)
	})
	if onProgress != nil {
		onProgress(1)
	}
	return err
}

// Execute applies every action in plan, strictly in order, on the calling
// goroutine. Failed actions are collected and the run continues. The context
// is checked between actions; a cancellation never interrupts an action in
// progress. onProgress, if non-nil, is called after each action.
func (s *SyncService) Execute(ctx context.Context, plan *Plan, onProgress ProgressFunc) *Summary {
	summary := &Summary{Plan: plan}
	if plan.Empty() {
		summary.Status = StatusNothingToDo
		return summary
	}

	run := &SyncRun{
		ID:        s.idgen.New(),
		LeftRoot:  plan.Left,
		RightRoot: plan.Right,
		Mode:      plan.Mode,
		Status:    StatusRunning,
		StartedAt: s.clock.Now(),
		Planned:   len(plan.Actions),
	}
	summary.RunID = run.ID
	if err := s.database.CreateRun(run); err != nil {
		s.logger.Warn("recording run failed", "run", run.ID, "error", err)
	}

	s.logger.Info("sync started", "run", run.ID, "actions", len(plan.Actions), "mode", string(plan.Mode))

	total := len(plan.Actions)
	canceled := false
	for i, action := range plan.Actions {
		if ctx.Err() != nil {
			canceled = true
			break
		}

		err := s.Apply(action, nil)
		if err != nil {
			summary.Failures = append(summary.Failures, ActionFailure{Action: action, Err: err})
			s.logger.Error("action failed", "run", run.ID, "action", action.String(), "error", err)
		} else {
			summary.Applied++
		}

		if dbErr := s.database.RecordAction(run.ID, &ActionResult{Action: action, Err: err, AppliedAt: s.clock.Now()}); dbErr != nil {
			s.logger.Warn("recording action failed", "run", run.ID, "error", dbErr)
		}

		if onProgress != nil {
			onProgress(float64(i+1) / float64(total))
		}
	}

	switch {
	case canceled:
		summary.Status = StatusCanceled
	case len(summary.Failures) > 0:
		summary.Status = StatusCompletedWithFailures
	default:
		summary.Status = StatusCompleted
	}

	run.Status = summary.Status
	run.Applied = summary.Applied
	run.Failed = len(summary.Failures)
	run.FinishedAt = s.clock.Now()
	if err := s.database.FinishRun(run); err != nil {
		s.logger.Warn("finishing run record failed", "run", run.ID, "error", err)
	}

	s.logger.Info("sync finished",
		"run", run.ID,
		"status", string(summary.Status),
		"applied", summary.Applied,
		"failed", len(summary.Failures))
	return summary
}

// Start runs Execute on a single worker goroutine and returns a channel that
// delivers the Summary once and is then closed. onProgress is called from
// the worker goroutine.
func (s *SyncService) Start(ctx context.Context, plan *Plan, onProgress ProgressFunc) <-chan *Summary {
	done := make(chan *Summary, 1)
	go func() {
		defer close(done)
		done <- s.Execute(ctx, plan, onProgress)
	}()
	return done
}

// Run plans, asks confirm for approval, and applies the plan on a worker.
// A nil confirm approves every plan. An empty plan is reported as
// nothing to do without asking. The only errors returned are pre-run
// failures from Plan.
func (s *SyncService) Run(ctx context.Context, leftRoot, rightRoot string, opts PlanOptions, confirm ConfirmFunc, onProgress ProgressFunc) (*Summary, error) {
	plan, err := s.Plan(ctx, leftRoot, rightRoot, opts)
	if err != nil {
		return nil, err
	}
	if plan.Empty() {
		return &Summary{Plan: plan, Status: StatusNothingToDo}, nil
	}
	if confirm != nil && !confirm(plan) {
		s.logger.Info("sync declined", "actions", len(plan.Actions))
		return &Summary{Plan: plan, Status: StatusDeclined}, nil
	}
	return <-s.Start(ctx, plan, onProgress), nil
}

// History returns up to limit recorded runs, newest first.
func (s *SyncService) History(limit int) ([]*SyncRun, error) {
	runs, err := s.database.ListRuns(limit)
	if err != nil {
		return nil, fmt.Errorf("listing runs: %w", err)
	}
	return runs, nil
}

// RunActions returns the recorded actions of one run in applied order.
func (s *SyncService) RunActions(runID string) ([]*ActionResult, error) {
	actions, err := s.database.ListActions(runID)
	if err != nil {
		return nil, fmt.Errorf("listing actions of run %s: %w", runID, err)
	}
	return actions, nil
}

// ClearHistory deletes every recorded run.
func (s *SyncService) ClearHistory() error {
	if err := s.database.Clear(); err != nil {
		return fmt.Errorf("clearing history: %w", err)
	}
	return nil
}

func overlaps(a, b string) bool {
	a, b = filepath.Clean(a), filepath.Clean(b)
	if a == b {
		return true
	}
	return within(a, b) || within(b, a)
}

// within reports whether child lies strictly beneath parent.
func within(parent, child string) bool {
	rel, err := filepath.Rel(parent, child)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
