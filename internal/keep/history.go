package keep

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
)

// BackupRecord describes one backup file. The backup directory listing is the
// only backup history; records are parsed from file names on demand.
type BackupRecord struct {
	Path   string
	Base   string    // source base name without extension
	Ext    string    // source extension, including the dot
	Taken  time.Time // from the name, local time, whole seconds
	Size   int64
	Sealed bool
}

// Name returns the backup's file name.
func (r *BackupRecord) Name() string {
	return filepath.Base(r.Path)
}

// SourceName returns the file name of the source this backup was taken from.
func (r *BackupRecord) SourceName() string {
	return r.Base + r.Ext
}

var backupNameRe = regexp.MustCompile(`^(.+)_(\d{8}_\d{6})(\.[^.]+)$`)

// ParseBackupName parses a backup file name of the form
// {base}_{YYYYMMDD_HHMMSS}{ext}, optionally followed by the sealed suffix.
// The returned record has no Path or Size.
func ParseBackupName(name string) (*BackupRecord, bool) {
	sealed := IsSealed(name)
	if sealed {
		name = name[:len(name)-len(SealedExt)]
	}

	m := backupNameRe.FindStringSubmatch(name)
	if m == nil {
		return nil, false
	}
	taken, err := time.ParseInLocation(TimestampLayout, m[2], time.Local)
	if err != nil {
		return nil, false
	}
	return &BackupRecord{Base: m[1], Ext: m[3], Taken: taken, Sealed: sealed}, true
}

// ListBackups returns the backups in dir, newest first. Files whose names do
// not follow the backup pattern are skipped.
func (k *Keeper) ListBackups(dir string) ([]*BackupRecord, error) {
	k.logger.Debug("listing backups", "dir", dir)

	files, err := k.ListFiles(dir)
	if err != nil {
		return nil, err
	}

	var records []*BackupRecord
	for _, f := range files {
		rec, ok := ParseBackupName(filepath.Base(f.String()))
		if !ok {
			continue
		}
		rec.Path = f.String()
		rec.Size = f.Info().Size()
		records = append(records, rec)
	}

	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].Taken.Equal(records[j].Taken) {
			return records[i].Taken.After(records[j].Taken)
		}
		return records[i].Path > records[j].Path
	})
	return records, nil
}

// BackupsOf filters records down to backups of the named source file.
func BackupsOf(records []*BackupRecord, source string) []*BackupRecord {
	base, ext := splitName(filepath.Base(source))
	if ext == "" {
		ext = DefaultExt
	}
	var out []*BackupRecord
	for _, r := range records {
		if r.Base == base && strings.EqualFold(r.Ext, ext) {
			out = append(out, r)
		}
	}
	return out
}

// SuggestTarget guesses which file a backup should be restored over: the
// source name in the parent of the backup directory, for example
// X/backup_history/save_20250101_120000.sav suggests X/save.sav. The guess
// is returned only if that file exists.
func (k *Keeper) SuggestTarget(backup string) (string, bool) {
	rec, ok := ParseBackupName(filepath.Base(backup))
	if !ok {
		return "", false
	}
	parent := filepath.Dir(filepath.Dir(backup))
	target := filepath.Join(parent, rec.SourceName())
	if !k.isRegular(target) {
		return "", false
	}
	return target, true
}
