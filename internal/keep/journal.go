package keep

import "time"

// JournalEntry is one line of the operation journal.
type JournalEntry struct {
	ID        int64
	RunID     string
	SessionID string
	Kind      string
	Path      string
	Detail    string
	Status    string // "success" or "error"
	CreatedAt time.Time
}

// Journal is an append-only audit log of operations. It is never used to
// find backups; the backup directory listing is the backup history.
type Journal interface {
	// Record appends an entry. ID and CreatedAt are assigned by the journal
	// when zero.
	Record(entry *JournalEntry) error

	// List returns the most recent entries, newest first.
	List(limit int) ([]*JournalEntry, error)

	Close() error
}

// NopJournal discards entries.
type NopJournal struct{}

func (NopJournal) Record(*JournalEntry) error        { return nil }
func (NopJournal) List(int) ([]*JournalEntry, error) { return nil, nil }
func (NopJournal) Close() error                      { return nil }

// EntryFromEvent converts an event to a journal entry.
func EntryFromEvent(runID string, e Event) *JournalEntry {
	entry := &JournalEntry{
		RunID:     runID,
		SessionID: e.SessionID,
		Kind:      string(e.Kind),
		Path:      e.Path,
		Detail:    e.Message(),
		Status:    "success",
		CreatedAt: e.Time,
	}
	if e.Failed() {
		entry.Kind = e.Op
		entry.Status = "error"
		entry.Detail = e.Err.Error()
	}
	return entry
}
