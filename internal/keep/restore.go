package keep

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// SealedExt marks a backup that was encrypted with a Sealer.
const SealedExt = ".age"

// IsSealed reports whether path names a sealed backup.
func IsSealed(path string) bool {
	return strings.EqualFold(filepath.Ext(path), SealedExt)
}

// Restore overwrites target with the contents of backup, creating target if
// it does not exist. It returns false and leaves target untouched if backup
// is not an existing regular file. No copy of the old target is kept.
func (k *Keeper) Restore(backup, target string) (bool, error) {
	k.logger.Info("restore started", "backup", backup, "target", target)

	if !k.isRegular(backup) {
		k.logger.Warn("restore skipped, backup not found", "backup", backup)
		return false, nil
	}
	if IsSealed(backup) {
		return false, &OpError{Op: "restore", Path: backup, Kind: ErrCopyFailed, Err: fmt.Errorf("backup is sealed, unseal it first")}
	}

	if err := k.copyFile(backup, target, false); err != nil {
		return false, newOpError("restore", target, ErrCopyFailed, err)
	}

	k.logger.Info("file restored", "target", target)
	return true, nil
}

// RestoreSealed is Restore for a sealed backup: the ciphertext is decrypted
// with u while being written to target.
func (k *Keeper) RestoreSealed(backup, target string, u Unsealer) (bool, error) {
	k.logger.Info("sealed restore started", "backup", backup, "target", target)

	if !k.isRegular(backup) {
		k.logger.Warn("restore skipped, backup not found", "backup", backup)
		return false, nil
	}

	info, err := k.fsmgr.Stat(backup)
	if err != nil {
		return false, newOpError("restore", backup, ErrCopyFailed, err)
	}

	r, err := k.fsmgr.Open(backup)
	if err != nil {
		return false, newOpError("restore", backup, ErrCopyFailed, err)
	}
	defer r.Close()

	err = k.fsmgr.WriteFile(target, info.Mode().Perm(), func(w io.Writer) error {
		return u.Unseal(r, w)
	})
	if err != nil {
		return false, newOpError("restore", target, ErrCopyFailed, err)
	}

	k.logger.Info("file restored", "target", target, "sealed", true)
	return true, nil
}

// Seal writes an encrypted copy of backup next to it, named backup+".age",
// and returns that path. The plain backup is left in place.
func (k *Keeper) Seal(backup string, s Sealer) (string, error) {
	if !k.isRegular(backup) {
		return "", &OpError{Op: "seal", Path: backup, Kind: ErrNotFound}
	}
	if IsSealed(backup) {
		return "", &OpError{Op: "seal", Path: backup, Kind: ErrCopyFailed, Err: fmt.Errorf("already sealed")}
	}

	r, err := k.fsmgr.Open(backup)
	if err != nil {
		return "", newOpError("seal", backup, ErrCopyFailed, err)
	}
	defer r.Close()

	dest := backup + SealedExt
	err = k.fsmgr.WriteFile(dest, 0o600, func(w io.Writer) error {
		return s.Seal(r, w)
	})
	if err != nil {
		return "", newOpError("seal", dest, ErrCopyFailed, err)
	}

	k.logger.Info("backup sealed", "backup", backup, "path", dest)
	return dest, nil
}

// isRegular reports whether path exists and is a regular file.
func (k *Keeper) isRegular(path string) bool {
	info, err := k.fsmgr.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}
