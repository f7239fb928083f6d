package keep

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"
)

// TimestampLayout is the time format embedded in backup file names.
const TimestampLayout = "20060102_150405"

// DefaultExt is used for backups of sources that have no extension.
const DefaultExt = ".sav"

// BackupName returns the file name a backup of source taken at the given
// moment gets: {base}_{YYYYMMDD_HHMMSS}{ext}.
func (k *Keeper) BackupName(source string) string {
	base, ext := splitName(filepath.Base(source))
	if ext == "" {
		ext = DefaultExt
	}
	return fmt.Sprintf("%s_%s%s", base, k.clock.Now().Format(TimestampLayout), ext)
}

// Backup copies source into backupDir under a timestamped name and returns
// the new file's path.
//
// If source is not an existing regular file, Backup returns "" and a nil
// error and leaves backupDir untouched. Two backups of the same source within
// one second get the same name; the second overwrites the first.
func (k *Keeper) Backup(source, backupDir string) (string, error) {
	info, err := k.fsmgr.Stat(source)
	if err != nil || !info.Mode().IsRegular() {
		k.logger.Debug("backup skipped, source is not a regular file", "path", source)
		return "", nil
	}

	if err := k.fsmgr.MkdirAll(backupDir); err != nil {
		return "", newOpError("backup", backupDir, ErrCopyFailed, err)
	}

	dest := filepath.Join(backupDir, k.BackupName(source))
	if _, err := k.fsmgr.Stat(dest); err == nil {
		k.logger.Warn("backup name collision, overwriting", "path", dest)
	}

	if err := k.copyFile(source, dest, true); err != nil {
		return "", newOpError("backup", source, ErrCopyFailed, err)
	}

	k.logger.Info("backup created", "source", source, "path", dest)
	return dest, nil
}

// copyFile copies src to dst with src's permission bits. When keepTimes is
// set, dst also gets src's modification time.
func (k *Keeper) copyFile(src, dst string, keepTimes bool) error {
	info, err := k.fsmgr.Stat(src)
	if err != nil {
		return err
	}

	r, err := k.fsmgr.Open(src)
	if err != nil {
		return err
	}
	defer r.Close()

	written := int64(0)
	err = k.fsmgr.WriteFile(dst, info.Mode().Perm(), func(w io.Writer) error {
		n, err := io.Copy(w, r)
		written = n
		return err
	})
	if err != nil {
		return err
	}
	if written != info.Size() {
		k.logger.Warn("source size changed during copy", "path", src, "expected", info.Size(), "copied", written)
	}

	if keepTimes {
		if err := k.fsmgr.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
			return fmt.Errorf("setting file times: %w", err)
		}
	}
	return nil
}

// splitName splits a file name into base and extension the way backup names
// expect: a leading dot belongs to the base, so ".profile" has no extension.
func splitName(name string) (base, ext string) {
	ext = filepath.Ext(name)
	base = strings.TrimSuffix(name, ext)
	if base == "" {
		return name, ""
	}
	return base, ext
}

// isNotExist reports whether err means the path is missing.
func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
