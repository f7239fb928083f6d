package keep

import (
	"fmt"
	"io/fs"
	"time"
)

// Signature is a cheap change-detection token for a file: its modification
// time and size. It is recomputed on every poll and never persisted.
//
// A rewrite that keeps the same size within one mtime tick goes unnoticed.
type Signature struct {
	ModTime time.Time
	Size    int64
}

// SignatureOf builds a Signature from file info.
func SignatureOf(info fs.FileInfo) Signature {
	return Signature{ModTime: info.ModTime(), Size: info.Size()}
}

// Equal reports whether two signatures describe the same file state.
func (s Signature) Equal(other Signature) bool {
	return s.Size == other.Size && s.ModTime.Equal(other.ModTime)
}

func (s Signature) String() string {
	return fmt.Sprintf("%s/%d", s.ModTime.Format(time.RFC3339Nano), s.Size)
}

// Signature reads the signature of the regular file at path.
// It fails with ErrNotFound if path is missing or is not a regular file.
func (k *Keeper) Signature(path string) (Signature, error) {
	info, err := k.fsmgr.Stat(path)
	if err != nil {
		return Signature{}, newOpError("signature", path, ErrNotFound, err)
	}
	if !info.Mode().IsRegular() {
		return Signature{}, &OpError{Op: "signature", Path: path, Kind: ErrNotFound, Err: fmt.Errorf("not a regular file")}
	}
	return SignatureOf(info), nil
}
