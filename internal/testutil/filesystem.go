package testutil

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"dirsync/internal/dirsync"
	"dirsync/internal/fs"
)

// BaseTime is a fixed modification time for test trees.
var BaseTime = time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

// WriteFile creates root/rel (slash-separated) with content and the given
// modification time, creating parent directories as needed.
func WriteFile(t *testing.T, root, rel, content string, mtime time.Time) string {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("creating parent of %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing %s: %v", rel, err)
	}
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("setting times on %s: %v", rel, err)
	}
	return path
}

// ReadFile returns the content of root/rel, failing the test if it cannot be read.
func ReadFile(t *testing.T, root, rel string) string {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
	if err != nil {
		t.Fatalf("reading %s: %v", rel, err)
	}
	return string(data)
}

// Exists reports whether root/rel exists.
func Exists(t *testing.T, root, rel string) bool {
	t.Helper()
	_, err := os.Lstat(filepath.Join(root, filepath.FromSlash(rel)))
	return err == nil
}

// NewFilesystem returns the OS filesystem manager configured the way the
// app configures it, ignoring the default journal file.
func NewFilesystem() *fs.OSFilesystemManager {
	return fs.NewOSFilesystemManager([]string{dirsync.DefaultJournalFile})
}

// FaultyFilesystem wraps a FilesystemManager and fails chosen operations.
// Failures are keyed by absolute path.
type FaultyFilesystem struct {
	dirsync.FilesystemManager

	mu         sync.Mutex
	openErrs   map[string]error
	copyErrs   map[string]error // keyed by destination
	appendErrs map[string]error
	walkErrs   map[string]error
	copyHook   func(src, dst string)
}

// NewFaultyFilesystem wraps inner. With no failures configured it behaves like inner.
func NewFaultyFilesystem(inner dirsync.FilesystemManager) *FaultyFilesystem {
	return &FaultyFilesystem{
		FilesystemManager: inner,
		openErrs:          make(map[string]error),
		copyErrs:          make(map[string]error),
		appendErrs:        make(map[string]error),
		walkErrs:          make(map[string]error),
	}
}

// FailOpen makes Open(path) return err.
func (f *FaultyFilesystem) FailOpen(path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.openErrs[path] = err
}

// FailCopyTo makes CopyFile into dst return err.
func (f *FaultyFilesystem) FailCopyTo(dst string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.copyErrs[dst] = err
}

// FailAppend makes AppendLine(path) return err.
func (f *FaultyFilesystem) FailAppend(path string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.appendErrs[path] = err
}

// FailWalk makes FindFiles report dir as unreadable and leave out every file beneath it.
func (f *FaultyFilesystem) FailWalk(dir string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.walkErrs[dir] = err
}

// OnCopy registers a hook called before every CopyFile.
func (f *FaultyFilesystem) OnCopy(hook func(src, dst string)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.copyHook = hook
}

func (f *FaultyFilesystem) FindFiles(ctx context.Context, root *dirsync.Path, onSkip dirsync.SkipFunc) ([]*dirsync.Path, error) {
	f.mu.Lock()
	blocked := make(map[string]error, len(f.walkErrs))
	for dir, err := range f.walkErrs {
		if under(root.String(), dir) {
			blocked[dir] = err
		}
	}
	f.mu.Unlock()

	files, err := f.FilesystemManager.FindFiles(ctx, root, onSkip)
	if err != nil || len(blocked) == 0 {
		return files, err
	}
	for dir, werr := range blocked {
		if onSkip != nil {
			onSkip(dir, werr)
		}
	}

	kept := make([]*dirsync.Path, 0, len(files))
next:
	for _, p := range files {
		for dir := range blocked {
			if under(dir, p.String()) {
				continue next
			}
		}
		kept = append(kept, p)
	}
	return kept, nil
}

func under(dir, path string) bool {
	return strings.HasPrefix(path, dir+string(filepath.Separator))
}

func (f *FaultyFilesystem) Open(path string) (io.ReadCloser, error) {
	f.mu.Lock()
	err := f.openErrs[path]
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return f.FilesystemManager.Open(path)
}

func (f *FaultyFilesystem) CopyFile(src, dst string) error {
	f.mu.Lock()
	err := f.copyErrs[dst]
	hook := f.copyHook
	f.mu.Unlock()
	if hook != nil {
		hook(src, dst)
	}
	if err != nil {
		return err
	}
	return f.FilesystemManager.CopyFile(src, dst)
}

func (f *FaultyFilesystem) AppendLine(path, line string) error {
	f.mu.Lock()
	err := f.appendErrs[path]
	f.mu.Unlock()
	if err != nil {
		return err
	}
	return f.FilesystemManager.AppendLine(path, line)
}

var _ dirsync.FilesystemManager = (*FaultyFilesystem)(nil)

// TempDir returns t.TempDir() with symlinks resolved, so paths built from it
// compare equal to the roots an index reports.
func TempDir(t *testing.T) string {
	t.Helper()
	dir, err := filepath.EvalSymlinks(t.TempDir())
	if err != nil {
		t.Fatalf("resolving temp dir: %v", err)
	}
	return dir
}
