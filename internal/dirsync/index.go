package dirsync

import (
	"context"
	"fmt"
	"path/filepath"
)

// Index walks rawRoot and builds a TreeIndex of every regular file beneath it.
// The root itself is never an entry. Symlinks and special files are skipped.
// A missing root, or one that is not a directory, yields ErrNotDirectory.
// Unreadable subtrees are recorded in TreeIndex.Warnings and the walk goes on.
func Index(ctx context.Context, fsmgr FilesystemManager, rawRoot string) (*TreeIndex, error) {
	root, err := fsmgr.Resolve(rawRoot)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNotDirectory, rawRoot, err)
	}
	if !root.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNotDirectory, root.String())
	}

	index := &TreeIndex{Root: root.String()}
	files, err := fsmgr.FindFiles(ctx, root, func(path string, err error) {
		rel, relErr := filepath.Rel(root.String(), path)
		if relErr != nil {
			rel = path
		}
		index.Warnings = append(index.Warnings, PlanWarning{
			RelativePath: filepath.ToSlash(rel),
			Path:         path,
			Err:          err,
		})
	})
	if err != nil {
		return nil, fmt.Errorf("indexing %s: %w", root.String(), err)
	}

	index.entries = make(map[string]FileEntry, len(files))
	for _, f := range files {
		rel, err := filepath.Rel(root.String(), f.String())
		if err != nil {
			return nil, fmt.Errorf("relativizing %s: %w", f.String(), err)
		}
		rel = filepath.ToSlash(rel)
		info := f.Info()
		index.entries[rel] = FileEntry{
			RelativePath: rel,
			AbsolutePath: f.String(),
			ModTime:      info.ModTime(),
			Size:         info.Size(),
		}
	}
	return index, nil
}
