package testutil

import (
	"path/filepath"
	"testing"

	"dirsync/internal/database"
)

// NewTestDatabase creates a migrated SQLite history database in a temp dir.
// The database is automatically closed when the test completes.
func NewTestDatabase(t *testing.T) *database.SQLiteDatabase {
	t.Helper()

	db, err := database.NewSQLiteDatabase(filepath.Join(t.TempDir(), database.HistoryFileName))
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}
