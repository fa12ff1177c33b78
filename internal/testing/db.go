// Package testing provides testing utilities and helpers for stock-vision.
package testing

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // cgo SQLite driver for in-memory test databases

	"github.com/ANGELCJR/stock-vision-sub000/internal/database"
)

// NewTestDB creates a migrated SQLite database in a temporary file.
// The returned cleanup function is idempotent.
func NewTestDB(t *testing.T) (*database.DB, func()) {
	t.Helper()

	path := filepath.Join(t.TempDir(), "stockvision_test.db")
	db, err := database.New(database.Config{
		Driver:  database.DriverSQLite,
		Path:    path,
		Profile: database.ProfileStandard,
		Name:    "test",
	})
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	closed := false
	return db, func() {
		if closed {
			return
		}
		closed = true
		_ = db.Close()
		_ = os.Remove(path)
	}
}

// NewMemoryDB opens a private in-memory SQLite database with the schema
// applied. The pool is pinned to one connection so every query sees the
// same database.
func NewMemoryDB(t *testing.T) *sqlx.DB {
	t.Helper()

	db, err := sqlx.Open("sqlite3", "file::memory:?_foreign_keys=on")
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	stmts, err := database.SchemaStatements(database.DriverSQLite)
	if err != nil {
		t.Fatalf("Failed to load schema: %v", err)
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			t.Fatalf("Failed to apply schema: %v", err)
		}
	}
	return db
}
