package dirsync

import (
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

var (
	// ErrNotDirectory is returned when a sync root is missing or is not a directory.
	ErrNotDirectory = errors.New("not a directory")

	// ErrSameRoot is returned when both roots resolve to the same tree, or one contains the other.
	ErrSameRoot = errors.New("roots overlap")

	// ErrFingerprint marks a file whose content digest could not be computed.
	ErrFingerprint = errors.New("fingerprint unavailable")
)

const (
	// BackupDirName is the sibling directory that receives overwritten files.
	BackupDirName = ".backup"

	// BackupSuffix is appended to the base name of a backed-up file.
	BackupSuffix = ".bak"
)

// FileEntry describes one regular file in a tree.
type FileEntry struct {
	RelativePath string // slash-separated, relative to the tree root
	AbsolutePath string
	ModTime      time.Time
	Size         int64
}

// TreeIndex maps relative paths to the files found beneath one root.
// It is built once by Index and never mutated afterwards.
type TreeIndex struct {
	Root     string
	Warnings []PlanWarning // entries below Root that could not be read
	entries  map[string]FileEntry
}

// Get returns the entry stored under a relative path.
func (t *TreeIndex) Get(relativePath string) (FileEntry, bool) {
	e, ok := t.entries[relativePath]
	return e, ok
}

// unreadable reports whether relativePath lies in a part of the tree the walk could not read.
func (t *TreeIndex) unreadable(relativePath string) bool {
	for _, w := range t.Warnings {
		if relativePath == w.RelativePath || strings.HasPrefix(relativePath, w.RelativePath+"/") {
			return true
		}
	}
	return false
}

// Len returns the number of indexed files.
func (t *TreeIndex) Len() int {
	return len(t.entries)
}

// Paths returns all relative paths in lexicographic order.
func (t *TreeIndex) Paths() []string {
	paths := make([]string, 0, len(t.entries))
	for p := range t.entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// CompareMode selects how files present on both sides are compared.
type CompareMode string

const (
	ModeTimestamp CompareMode = "timestamp"
	ModeHash      CompareMode = "hash"
)

// ModeFor maps the boolean content-hash switch onto a CompareMode.
func ModeFor(useContentHash bool) CompareMode {
	if useContentHash {
		return ModeHash
	}
	return ModeTimestamp
}

// ConflictPolicy decides what hash mode does with a pair whose contents differ.
type ConflictPolicy string

const (
	// ConflictBoth refreshes each side from the other: two Update actions, left to right first.
	ConflictBoth ConflictPolicy = "both"
	// ConflictNewer lets the newer modification time win; equal times become conflicts.
	ConflictNewer ConflictPolicy = "newer"
	// ConflictSkip never picks a direction and reports every differing pair as a conflict.
	ConflictSkip ConflictPolicy = "skip"
)

// ParseConflictPolicy validates a policy name. An empty name means ConflictBoth.
func ParseConflictPolicy(name string) (ConflictPolicy, error) {
	switch ConflictPolicy(strings.ToLower(strings.TrimSpace(name))) {
	case "", ConflictBoth:
		return ConflictBoth, nil
	case ConflictNewer:
		return ConflictNewer, nil
	case ConflictSkip:
		return ConflictSkip, nil
	default:
		return "", fmt.Errorf("unknown conflict policy %q (want both, newer or skip)", name)
	}
}

// PlanOptions configures a planning pass.
type PlanOptions struct {
	Mode           CompareMode
	ConflictPolicy ConflictPolicy
}

// ActionKind tags a SyncAction.
type ActionKind string

const (
	// ActionCopy creates a destination that does not exist yet.
	ActionCopy ActionKind = "copy"
	// ActionUpdate overwrites an existing destination, backing it up first.
	ActionUpdate ActionKind = "update"
)

// Label returns the upper-case form used in journals and plan listings.
func (k ActionKind) Label() string {
	return strings.ToUpper(string(k))
}

// Action is one step of a plan: copy Source over Destination.
type Action struct {
	Kind         ActionKind
	RelativePath string
	Source       string
	Destination  string
	TargetRoot   string // root that contains Destination
}

func (a Action) String() string {
	return fmt.Sprintf("%s: %s -> %s", a.Kind.Label(), a.Source, a.Destination)
}

func newAction(kind ActionKind, relativePath string, source FileEntry, targetRoot string) Action {
	return Action{
		Kind:         kind,
		RelativePath: relativePath,
		Source:       source.AbsolutePath,
		Destination:  filepath.Join(targetRoot, filepath.FromSlash(relativePath)),
		TargetRoot:   targetRoot,
	}
}

// PlanWarning reports a path that was left out of the plan because it could
// not be read while indexing, or could not be fingerprinted.
type PlanWarning struct {
	RelativePath string
	Path         string
	Err          error
}

// Conflict reports a hash-mode pair the conflict policy refused to resolve.
type Conflict struct {
	RelativePath string
	Left         FileEntry
	Right        FileEntry
}

// Plan is the ordered list of actions computed before any mutation.
type Plan struct {
	Left      string
	Right     string
	Mode      CompareMode
	Actions   []Action
	Warnings  []PlanWarning
	Conflicts []Conflict
}

// Empty reports whether the plan has nothing to apply.
func (p *Plan) Empty() bool {
	return len(p.Actions) == 0
}

// Unresolved counts the conflicts and warnings that kept paths out of the plan.
func (p *Plan) Unresolved() int {
	return len(p.Conflicts) + len(p.Warnings)
}

// RunStatus is the terminal state of a sync run.
type RunStatus string

const (
	StatusRunning               RunStatus = "running"
	StatusNothingToDo           RunStatus = "nothing_to_do"
	StatusDeclined              RunStatus = "declined"
	StatusCompleted             RunStatus = "completed"
	StatusCompletedWithFailures RunStatus = "completed_with_failures"
	StatusCanceled              RunStatus = "canceled"
)

// ActionFailure pairs an action with the error that stopped it.
type ActionFailure struct {
	Action Action
	Err    error
}

// Summary is what a caller receives after a run.
type Summary struct {
	RunID    string
	Status   RunStatus
	Plan     *Plan
	Applied  int
	Failures []ActionFailure
}

// Message renders the summary as a single human-readable line.
func (s *Summary) Message() string {
	total := 0
	if s.Plan != nil {
		total = len(s.Plan.Actions)
	}
	switch s.Status {
	case StatusNothingToDo:
		if s.Plan != nil && s.Plan.Unresolved() > 0 {
			return fmt.Sprintf("No changes applied; %d conflict(s) and %d skipped path(s) need attention.",
				len(s.Plan.Conflicts), len(s.Plan.Warnings))
		}
		return "Folders are already in sync."
	case StatusDeclined:
		return "Synchronization not confirmed; no changes applied."
	case StatusCompleted:
		return fmt.Sprintf("Synchronization complete: %d action(s) applied.", s.Applied)
	case StatusCompletedWithFailures:
		return fmt.Sprintf("Synchronization completed with %d failure(s): %d of %d action(s) applied.",
			len(s.Failures), s.Applied, total)
	case StatusCanceled:
		return fmt.Sprintf("Synchronization canceled: %d of %d action(s) applied, %d failed.",
			s.Applied, total, len(s.Failures))
	default:
		return string(s.Status)
	}
}

// SyncRun is the persisted record of one applied plan.
type SyncRun struct {
	ID         string
	LeftRoot   string
	RightRoot  string
	Mode       CompareMode
	Status     RunStatus
	StartedAt  time.Time
	FinishedAt time.Time // zero while running
	Planned    int
	Applied    int
	Failed     int
}

// ActionResult is the persisted outcome of one applied action.
type ActionResult struct {
	Action    Action
	Err       error
	AppliedAt time.Time
}

// ProgressFunc receives the fraction of the plan processed so far, in (0, 1].
type ProgressFunc func(fractionComplete float64)

// ConfirmFunc is shown the full plan before mutation and returns whether to proceed.
type ConfirmFunc func(plan *Plan) bool
