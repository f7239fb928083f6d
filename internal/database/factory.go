package database

import (
	"fmt"
	"os"
	"path/filepath"

	"savekeep/internal/config"
	"savekeep/internal/keep"
)

// JournalFile is the journal's file name inside data_dir.
const JournalFile = "journal.db"

// NewJournalFromConfig creates a Journal implementation based on the journal config type.
func NewJournalFromConfig(cfg config.JournalConfig) (keep.Journal, error) {
	switch cfg.Type {
	case "sqlite":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite journal")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating journal directory: %w", err)
		}
		return NewSQLiteJournal(filepath.Join(cfg.DataDir, JournalFile))
	case "memory":
		return NewSQLiteJournal(MemoryPath)
	case "none", "":
		return keep.NopJournal{}, nil
	default:
		return nil, fmt.Errorf("unknown journal type: %s", cfg.Type)
	}
}
