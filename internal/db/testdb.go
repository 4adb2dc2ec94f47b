package db

import (
	"database/sql"
	"testing"
)

// NewTestDB returns an in-memory database with the full schema, scoped to
// one test. Each caller gets an isolated catalog and deployment store.
func NewTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := Open(":memory:")
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}

	if err := EnsureSchema(db); err != nil {
		db.Close()
		t.Fatalf("applying test schema: %v", err)
	}

	t.Cleanup(func() { db.Close() })

	return db
}
