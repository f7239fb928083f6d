package keep

import (
	"errors"
	"fmt"
	"io/fs"
)

// Error kinds. Use errors.Is to test for them; every failure returned by a
// Keeper is an *OpError carrying one of these as its Kind.
var (
	// ErrNotFound indicates a source, backup, target or directory is missing.
	ErrNotFound = errors.New("not found")

	// ErrCopyFailed indicates an I/O error while copying file contents.
	ErrCopyFailed = errors.New("copy failed")

	// ErrRemoveFailed indicates a file could not be deleted during cleanup.
	ErrRemoveFailed = errors.New("remove failed")

	// ErrPermissionDenied is the platform permission error. It is reported in
	// addition to another kind, never instead of them.
	ErrPermissionDenied = fs.ErrPermission

	// ErrDeclined indicates the caller did not confirm a destructive operation.
	ErrDeclined = errors.New("not confirmed")
)

// OpError records a failed operation on a path.
type OpError struct {
	Op   string // "backup", "restore", "cleanup", "signature", "seal"
	Path string
	Kind error
	Err  error
}

// Error returns a message naming the failed path and reason, suitable for display.
func (e *OpError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Kind)
	}
	return fmt.Sprintf("%s %s: %v: %v", e.Op, e.Path, e.Kind, cause(e.Err))
}

// Unwrap exposes both the kind and the underlying cause to errors.Is and errors.As.
func (e *OpError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// newOpError classifies err: a missing path becomes ErrNotFound, anything
// else the given fallback kind.
func newOpError(op, path string, fallback error, err error) *OpError {
	kind := fallback
	if errors.Is(err, fs.ErrNotExist) {
		kind = ErrNotFound
	}
	return &OpError{Op: op, Path: path, Kind: kind, Err: err}
}

// cause strips the *fs.PathError wrapper so messages do not repeat the path.
func cause(err error) error {
	var pe *fs.PathError
	if errors.As(err, &pe) {
		return pe.Err
	}
	return err
}
