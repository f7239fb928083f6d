package app

import (
	"sync"
	"time"

	"savekeep/internal/keep"
)

// readOnlyCommands never change files, so their runs are not journaled.
var readOnlyCommands = map[string]bool{
	"list":    true,
	"status":  true,
	"history": true,
}

// Operation tracks one savekeep invocation. Its RunID tags every log line and
// journal entry written during the run. Status turns to "error" as soon as
// any operation in the run fails.
type Operation struct {
	RunID   string
	Command string
	Args    string

	mu     sync.Mutex
	status string
}

// NewOperation creates a new in-memory operation.
func NewOperation(runID, command, args string) *Operation {
	return &Operation{
		RunID:   runID,
		Command: command,
		Args:    args,
		status:  "success",
	}
}

// Fail marks the run as failed.
func (op *Operation) Fail() {
	op.mu.Lock()
	defer op.mu.Unlock()
	op.status = "error"
}

// Status returns "success" or "error".
func (op *Operation) Status() string {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.status
}

// Journaled reports whether the run summary belongs in the journal.
func (op *Operation) Journaled() bool {
	return !readOnlyCommands[op.Command]
}

// Entry returns the journal summary of the run.
func (op *Operation) Entry(now time.Time) *keep.JournalEntry {
	return &keep.JournalEntry{
		RunID:     op.RunID,
		Kind:      "run",
		Path:      op.Args,
		Detail:    op.Command,
		Status:    op.Status(),
		CreatedAt: now,
	}
}
