package keep

// ConfirmFunc is asked before Cleanup deletes anything. It receives the
// directory and the number of files that would be removed.
type ConfirmFunc func(dir string, count int) bool

// Cleanup deletes every regular file directly inside dir and returns how many
// files were listed. Subdirectories are left alone.
//
// A missing dir fails with ErrNotFound. An empty dir returns 0 without asking
// confirm. If confirm declines, nothing is deleted and ErrDeclined is
// returned. Deletion stops at the first failure; the count of files already
// removed is returned with the error and those files stay removed.
func (k *Keeper) Cleanup(dir string, confirm ConfirmFunc) (int, error) {
	files, err := k.ListFiles(dir)
	if err != nil {
		return 0, err
	}
	if len(files) == 0 {
		k.logger.Info("cleanup: backup folder already empty", "dir", dir)
		return 0, nil
	}

	if confirm != nil && !confirm(dir, len(files)) {
		return 0, &OpError{Op: "cleanup", Path: dir, Kind: ErrDeclined}
	}

	for i, f := range files {
		if err := k.fsmgr.Remove(f.String()); err != nil {
			k.logger.Error("cleanup failed", "path", f.String(), "removed", i, "error", err)
			return i, newOpError("cleanup", f.String(), ErrRemoveFailed, err)
		}
	}

	k.logger.Info("cleanup finished", "dir", dir, "removed", len(files))
	return len(files), nil
}

// ListFiles returns the regular files directly inside dir.
// It fails with ErrNotFound if dir does not exist or is not a directory.
func (k *Keeper) ListFiles(dir string) ([]*Path, error) {
	p, err := k.fsmgr.Resolve(dir)
	if err != nil {
		return nil, newOpError("cleanup", dir, ErrNotFound, err)
	}
	if !p.IsDir() {
		return nil, &OpError{Op: "cleanup", Path: dir, Kind: ErrNotFound}
	}
	files, err := k.fsmgr.ListFiles(p.String())
	if err != nil {
		return nil, newOpError("cleanup", dir, ErrCopyFailed, err)
	}
	return files, nil
}
