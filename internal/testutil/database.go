// Package testutil provides shared test helpers.
package testutil

import (
	"context"
	"testing"

	"github.com/8christinewsardina/Repository-name-XCGG-Debt-AI-Mini-Program/internal/storage"
)

// SetupTestDB creates a new in-memory test database with all migrations
// applied. It is closed automatically when the test ends.
//
// Example:
//
//	db := testutil.SetupTestDB(t)
//	store := analysis.NewSQLiteJobStore(db.DB())
func SetupTestDB(t *testing.T) *storage.SQLiteStorage {
	t.Helper()

	store, err := storage.Open(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return store
}
