package dirsync_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"dirsync/internal/dirsync"
	"dirsync/internal/testutil"
)

func TestFingerprint(t *testing.T) {
	t.Run("matches sha256 of the content", func(t *testing.T) {
		t.Parallel()
		root := testutil.TempDir(t)
		path := testutil.WriteFile(t, root, "a.txt", "hello", testutil.BaseTime)

		got, err := dirsync.Fingerprint(testutil.NewFilesystem(), path)
		if err != nil {
			t.Fatalf("Fingerprint() error = %v", err)
		}
		if want := testutil.SHA256Hex([]byte("hello")); got != want {
			t.Errorf("Fingerprint() = %q, want %q", got, want)
		}
	})

	t.Run("is stable across calls", func(t *testing.T) {
		t.Parallel()
		root := testutil.TempDir(t)
		// Larger than one chunk so the streaming loop runs more than once.
		path := testutil.WriteFile(t, root, "big.bin", strings.Repeat("0123456789", 5000), testutil.BaseTime)
		fsmgr := testutil.NewFilesystem()

		first, err := dirsync.Fingerprint(fsmgr, path)
		if err != nil {
			t.Fatalf("Fingerprint() error = %v", err)
		}
		second, err := dirsync.Fingerprint(fsmgr, path)
		if err != nil {
			t.Fatalf("Fingerprint() error = %v", err)
		}
		if first != second {
			t.Errorf("Fingerprint() = %q then %q", first, second)
		}
	})

	t.Run("differs when one byte differs", func(t *testing.T) {
		t.Parallel()
		root := testutil.TempDir(t)
		a := testutil.WriteFile(t, root, "a.txt", "content-A", testutil.BaseTime)
		b := testutil.WriteFile(t, root, "b.txt", "content-B", testutil.BaseTime)
		fsmgr := testutil.NewFilesystem()

		fa, err := dirsync.Fingerprint(fsmgr, a)
		if err != nil {
			t.Fatalf("Fingerprint(a) error = %v", err)
		}
		fb, err := dirsync.Fingerprint(fsmgr, b)
		if err != nil {
			t.Fatalf("Fingerprint(b) error = %v", err)
		}
		if fa == fb {
			t.Errorf("Fingerprint() equal for different content: %q", fa)
		}
	})

	t.Run("wraps missing files in ErrFingerprint", func(t *testing.T) {
		t.Parallel()
		_, err := dirsync.Fingerprint(testutil.NewFilesystem(), filepath.Join(testutil.TempDir(t), "missing"))
		if !errors.Is(err, dirsync.ErrFingerprint) {
			t.Errorf("Fingerprint() error = %v, want ErrFingerprint", err)
		}
		if !errors.Is(err, os.ErrNotExist) {
			t.Errorf("Fingerprint() error = %v, want wrapped ErrNotExist", err)
		}
	})

	t.Run("fails on a directory", func(t *testing.T) {
		t.Parallel()
		_, err := dirsync.Fingerprint(testutil.NewFilesystem(), testutil.TempDir(t))
		if !errors.Is(err, dirsync.ErrFingerprint) {
			t.Errorf("Fingerprint() error = %v, want ErrFingerprint", err)
		}
	})
}
