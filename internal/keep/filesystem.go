package keep

import (
	"io"
	"io/fs"
	"time"
)

// FilesystemManager provides the filesystem operations the core needs.
// It keeps raw os calls out of the backup logic so they can be swapped in tests.
type FilesystemManager interface {
	// Resolve validates a raw path and returns a Path object.
	// It resolves the path to an absolute path, stats it (following
	// symlinks), and rejects devices, pipes and sockets.
	Resolve(rawPath string) (*Path, error)

	// Stat returns fresh file info for a path.
	Stat(path string) (fs.FileInfo, error)

	// Open opens a file for reading.
	Open(path string) (io.ReadCloser, error)

	// WriteFile replaces dst with whatever write produces. The data goes to a
	// temp file in dst's directory first and is renamed into place only when
	// write succeeds, so a failed write never leaves a partial dst behind.
	// A symlinked dst is written through: the link stays and its target changes.
	WriteFile(dst string, perm fs.FileMode, write func(w io.Writer) error) error

	// Chtimes sets the access and modification times of path.
	Chtimes(path string, atime, mtime time.Time) error

	// MkdirAll creates dir and any missing parents.
	MkdirAll(dir string) error

	// ListFiles returns the regular files directly inside dir.
	// Subdirectories and their contents are not included.
	ListFiles(dir string) ([]*Path, error)

	// Remove deletes a single file.
	Remove(path string) error
}
