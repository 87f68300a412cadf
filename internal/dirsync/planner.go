package dirsync

import (
	"context"
	"errors"
	"fmt"
	"sort"
)

// BuildPlan compares two indexes and returns the ordered actions that bring
// both trees to the same set of files.
//
// Paths are visited in lexicographic order of the union of both indexes, so
// the action list is deterministic. A path on one side only becomes a Copy,
// unless it falls in a subtree the other side's walk could not read.
// A path on both sides is compared by modification time or, in hash mode, by
// content fingerprint; see PlanOptions. Pairs whose fingerprints cannot be
// computed are left out of the plan and listed in Plan.Warnings, after the
// unreadable paths reported by both indexes.
func BuildPlan(ctx context.Context, fsmgr FilesystemManager, logger Logger, left, right *TreeIndex, opts PlanOptions) (*Plan, error) {
	logger = orNop(logger)
	if opts.Mode == "" {
		opts.Mode = ModeTimestamp
	}
	if opts.ConflictPolicy == "" {
		opts.ConflictPolicy = ConflictBoth
	}

	plan := &Plan{
		Left:  left.Root,
		Right: right.Root,
		Mode:  opts.Mode,
	}
	plan.Warnings = append(plan.Warnings, left.Warnings...)
	plan.Warnings = append(plan.Warnings, right.Warnings...)

	for _, rel := range unionPaths(left, right) {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("planning: %w", err)
		}

		l, inLeft := left.Get(rel)
		r, inRight := right.Get(rel)

		switch {
		case inLeft && !inRight && right.unreadable(rel), inRight && !inLeft && left.unreadable(rel):
			// the other side is unknown here; its warning is already in the plan
		case inLeft && !inRight:
			plan.Actions = append(plan.Actions, newAction(ActionCopy, rel, l, right.Root))
		case inRight && !inLeft:
			plan.Actions = append(plan.Actions, newAction(ActionCopy, rel, r, left.Root))
		case opts.Mode == ModeHash:
			planByContent(fsmgr, logger, plan, rel, l, r, left.Root, right.Root, opts.ConflictPolicy)
		default:
			planByTimestamp(plan, rel, l, r, left.Root, right.Root)
		}
	}

	logger.Debug("plan built",
		"left", left.Root,
		"right", right.Root,
		"mode", string(opts.Mode),
		"actions", len(plan.Actions),
		"warnings", len(plan.Warnings),
		"conflicts", len(plan.Conflicts))
	return plan, nil
}

// planByTimestamp emits a single Update toward the older side. Equal times mean in sync.
func planByTimestamp(plan *Plan, rel string, l, r FileEntry, leftRoot, rightRoot string) {
	switch {
	case l.ModTime.After(r.ModTime):
		plan.Actions = append(plan.Actions, newAction(ActionUpdate, rel, l, rightRoot))
	case r.ModTime.After(l.ModTime):
		plan.Actions = append(plan.Actions, newAction(ActionUpdate, rel, r, leftRoot))
	}
}

func planByContent(fsmgr FilesystemManager, logger Logger, plan *Plan, rel string, l, r FileEntry, leftRoot, rightRoot string, policy ConflictPolicy) {
	lsum, err := Fingerprint(fsmgr, l.AbsolutePath)
	if err != nil {
		warnFingerprint(logger, plan, rel, l.AbsolutePath, err)
		return
	}
	rsum, err := Fingerprint(fsmgr, r.AbsolutePath)
	if err != nil {
		warnFingerprint(logger, plan, rel, r.AbsolutePath, err)
		return
	}
	if lsum == rsum {
		return
	}

	switch policy {
	case ConflictNewer:
		switch {
		case l.ModTime.After(r.ModTime):
			plan.Actions = append(plan.Actions, newAction(ActionUpdate, rel, l, rightRoot))
		case r.ModTime.After(l.ModTime):
			plan.Actions = append(plan.Actions, newAction(ActionUpdate, rel, r, leftRoot))
		default:
			plan.Conflicts = append(plan.Conflicts, Conflict{RelativePath: rel, Left: l, Right: r})
		}
	case ConflictSkip:
		plan.Conflicts = append(plan.Conflicts, Conflict{RelativePath: rel, Left: l, Right: r})
	default:
		// Direction is unknown from content alone, so each side is refreshed from the other.
		plan.Actions = append(plan.Actions,
			newAction(ActionUpdate, rel, l, rightRoot),
			newAction(ActionUpdate, rel, r, leftRoot))
	}
}

func warnFingerprint(logger Logger, plan *Plan, rel, path string, err error) {
	if !errors.Is(err, ErrFingerprint) {
		err = fmt.Errorf("%w: %w", ErrFingerprint, err)
	}
	logger.Warn("skipping unreadable pair", "path", path, "error", err)
	plan.Warnings = append(plan.Warnings, PlanWarning{RelativePath: rel, Path: path, Err: err})
}

func unionPaths(left, right *TreeIndex) []string {
	seen := make(map[string]struct{}, left.Len()+right.Len())
	for p := range left.entries {
		seen[p] = struct{}{}
	}
	for p := range right.entries {
		seen[p] = struct{}{}
	}
	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
