package keep

import (
	"errors"
	"fmt"
)

// SourceStatus summarizes a source file against its backup directory.
type SourceStatus struct {
	Source      string
	Exists      bool
	Signature   Signature
	BackupCount int
	Latest      *BackupRecord
	// IsBackedUp is true when the newest backup has the source's current
	// size and modification time. Backups keep the source's mtime, so an
	// unchanged source matches its latest backup exactly.
	IsBackedUp bool
}

// Status reports whether source has changed since its newest backup in backupDir.
// A missing backupDir is treated as having no backups.
func (k *Keeper) Status(source, backupDir string) (*SourceStatus, error) {
	k.logger.Debug("computing status", "source", source, "dir", backupDir)

	st := &SourceStatus{Source: source}

	sig, err := k.Signature(source)
	switch {
	case err == nil:
		st.Exists = true
		st.Signature = sig
	case errors.Is(err, ErrNotFound):
	default:
		return nil, err
	}

	records, err := k.ListBackups(backupDir)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return st, nil
		}
		return nil, fmt.Errorf("listing backups: %w", err)
	}

	own := BackupsOf(records, source)
	st.BackupCount = len(own)
	for _, r := range own {
		if r.Sealed {
			continue
		}
		st.Latest = r
		break
	}
	if st.Latest == nil || !st.Exists {
		return st, nil
	}

	info, err := k.fsmgr.Stat(st.Latest.Path)
	if err != nil {
		return nil, fmt.Errorf("stat latest backup: %w", err)
	}
	st.IsBackedUp = SignatureOf(info).Equal(st.Signature)
	return st, nil
}
