package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"savekeep/internal/database/migrations"
	"savekeep/internal/keep"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// SQLiteJournal implements the keep.Journal interface using SQLite.
type SQLiteJournal struct {
	db   *sql.DB
	path string
}

// NewSQLiteJournal opens the journal at path and migrates it to the latest
// schema. path can be a file path or ":memory:" for an in-memory journal.
func NewSQLiteJournal(path string) (*SQLiteJournal, error) {
	db, err := OpenConnection(path)
	if err != nil {
		return nil, err
	}

	if err := migrations.Up(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrating journal: %w", err)
	}

	return &SQLiteJournal{db: db, path: path}, nil
}

// NewSQLiteJournalFromDB wraps an existing database connection.
// The caller is responsible for ensuring the schema is migrated.
func NewSQLiteJournalFromDB(db *sql.DB) *SQLiteJournal {
	return &SQLiteJournal{db: db}
}

// OpenConnection opens and configures a SQLite database connection with appropriate PRAGMAs.
// path can be a file path or ":memory:" for in-memory database.
func OpenConnection(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to ":memory:" is its own database.
	if path == MemoryPath {
		db.SetMaxOpenConns(1)
	}

	// Enable foreign key constraints (SQLite default is OFF for backward compatibility)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	// The watch goroutine and the UI may record at the same time.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	return db, nil
}

const insertOperation = `
INSERT INTO operations (run_id, session_id, kind, path, detail, status, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
`

// Record appends entry to the journal and fills in its ID.
func (j *SQLiteJournal) Record(entry *keep.JournalEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}
	if entry.Status == "" {
		entry.Status = "success"
	}

	res, err := j.db.ExecContext(context.Background(), insertOperation,
		entry.RunID,
		entry.SessionID,
		entry.Kind,
		entry.Path,
		entry.Detail,
		entry.Status,
		entry.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("recording operation: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("reading operation id: %w", err)
	}
	entry.ID = id
	return nil
}

const listOperations = `
SELECT id, run_id, session_id, kind, path, detail, status, created_at
FROM operations
ORDER BY created_at DESC, id DESC
LIMIT ?
`

// List returns up to limit entries, newest first. A limit <= 0 returns
// every entry.
func (j *SQLiteJournal) List(limit int) ([]*keep.JournalEntry, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := j.db.QueryContext(context.Background(), listOperations, limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	var result []*keep.JournalEntry
	for rows.Next() {
		e := &keep.JournalEntry{}
		if err := rows.Scan(&e.ID, &e.RunID, &e.SessionID, &e.Kind, &e.Path, &e.Detail, &e.Status, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		e.CreatedAt = e.CreatedAt.Local()
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return result, nil
}

// Path returns the database file path (or ":memory:" for in-memory databases).
func (j *SQLiteJournal) Path() string {
	return j.path
}

// CheckMigrations verifies the database schema is up-to-date.
func (j *SQLiteJournal) CheckMigrations() error {
	return migrations.Check(j.db)
}

// Close closes the database connection.
func (j *SQLiteJournal) Close() error {
	if j.db != nil {
		return j.db.Close()
	}
	return nil
}

// Compile-time check that SQLiteJournal implements keep.Journal interface
var _ keep.Journal = (*SQLiteJournal)(nil)
