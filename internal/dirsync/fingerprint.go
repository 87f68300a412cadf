package dirsync

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// fingerprintChunkSize bounds how much of a file is held in memory while hashing.
const fingerprintChunkSize = 8 * 1024

// Fingerprint returns the lowercase hex SHA-256 of the file at path.
// The file is streamed in fixed-size chunks, so memory use does not grow
// with file size. Any failure to open or read the file is wrapped in ErrFingerprint.
func Fingerprint(fsmgr FilesystemManager, path string) (string, error) {
	f, err := fsmgr.Open(path)
	if err != nil {
		return "", fmt.Errorf("%w: opening %s: %w", ErrFingerprint, path, err)
	}
	defer f.Close()

	h := sha256.New()
	buf := make([]byte, fingerprintChunkSize)
	// Hide any WriterTo so the copy goes through buf.
	if _, err := io.CopyBuffer(h, struct{ io.Reader }{f}, buf); err != nil {
		return "", fmt.Errorf("%w: reading %s: %w", ErrFingerprint, path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
