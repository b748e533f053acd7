package testutil

import (
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/JINL2/mystorecluade-sub001/internal/db"
)

// NewTestDB opens a migrated in-memory database closed at test end. It is
// pinned to one connection, so it cannot show write races between members.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()
	return openTestDB(t, ":memory:")
}

// NewFileTestDB opens a migrated database file in t.TempDir. Every pooled
// connection sees the same WAL database, as separate member clients do.
func NewFileTestDB(t *testing.T) *sql.DB {
	t.Helper()
	return openTestDB(t, filepath.Join(t.TempDir(), "storecount.db"))
}

func NewTestUoW(database *sql.DB) db.UnitOfWork {
	return db.NewSQLiteUnitOfWork(database)
}

func openTestDB(t *testing.T, path string) *sql.DB {
	t.Helper()
	database, err := db.OpenDB(path)
	if err != nil {
		t.Fatalf("opening test database %s: %v", path, err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}
