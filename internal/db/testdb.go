package db

import (
	"database/sql"
	"testing"
)

// NewTestDB creates a fresh in-memory SQLite database with the schema
// applied. The pool is pinned to a single connection because every
// connection to a :memory: database is a distinct database.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	db.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		db.Close()
		t.Fatalf("creating test database schema: %v", err)
	}

	t.Cleanup(func() { db.Close() })

	return db
}
