package testutil

import (
	"testing"

	"savekeep/internal/database"
	"savekeep/internal/keep"
)

// NewTestJournal creates a new in-memory SQLite journal with schema applied.
// The journal is automatically closed when the test completes.
func NewTestJournal(t *testing.T) keep.Journal {
	t.Helper()

	j, err := database.NewSQLiteJournal(database.MemoryPath)
	if err != nil {
		t.Fatalf("failed to open journal: %v", err)
	}

	t.Cleanup(func() {
		j.Close()
	})

	return j
}
