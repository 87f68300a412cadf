package dirsync

import (
	"context"
	"io"
	"io/fs"
)

// SkipFunc is told about a path beneath a walked root that could not be read.
// The walk continues without it.
type SkipFunc func(path string, err error)

// FilesystemManager abstracts every filesystem touch the sync core makes,
// so tests can inject failures without changing permissions on disk.
type FilesystemManager interface {
	// Resolve makes rawPath absolute, follows symlinks, stats the result,
	// and returns a Path for the real location. Device files, named pipes
	// and sockets are rejected.
	Resolve(rawPath string) (*Path, error)

	// FindFiles returns every regular file beneath root, recursively.
	// Symlinks are not returned, backup directories are not descended into,
	// and ignore rules configured for the manager are applied.
	// Unreadable entries below root are reported to onSkip and left out.
	// The walk stops with ctx.Err() once ctx is done.
	FindFiles(ctx context.Context, root *Path, onSkip SkipFunc) ([]*Path, error)

	// Open opens a file for reading.
	Open(path string) (io.ReadCloser, error)

	// Lstat returns fresh file info without following a final symlink.
	Lstat(path string) (fs.FileInfo, error)

	// MkdirAll creates path and any missing parents.
	MkdirAll(path string) error

	// Rename moves oldPath to newPath, replacing newPath if it exists.
	Rename(oldPath, newPath string) error

	// CopyFile copies src to dst and carries over the permission bits and
	// access/modification times of src.
	CopyFile(src, dst string) error

	// AppendLine appends line plus a newline to the file at path, creating it if needed.
	AppendLine(path, line string) error
}
