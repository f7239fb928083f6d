package testutil

import (
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"savekeep/internal/keep"
)

// MockFile represents a file in the mock filesystem.
type MockFile struct {
	Content     []byte
	Permissions fs.FileMode
	ModTime     time.Time
	IsDirectory bool
}

// MockFilesystemManager is an in-memory filesystem for testing.
// Paths are used as given after filepath.Clean. Safe for concurrent use.
type MockFilesystemManager struct {
	mu    sync.Mutex
	files map[string]*MockFile
	fails map[string]error // "op path" -> injected error
	now   func() time.Time
}

// NewMockFilesystemManager creates a new mock filesystem.
func NewMockFilesystemManager() *MockFilesystemManager {
	return &MockFilesystemManager{
		files: make(map[string]*MockFile),
		fails: make(map[string]error),
		now:   time.Now,
	}
}

// AddFile adds a file to the mock filesystem, creating its parent directories.
func (m *MockFilesystemManager) AddFile(path string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	m.mkdirAll(filepath.Dir(path))
	m.files[path] = &MockFile{
		Content:     content,
		Permissions: 0644,
		ModTime:     m.now(),
	}
}

// AddDirectory adds a directory and its parents to the mock filesystem.
func (m *MockFilesystemManager) AddDirectory(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mkdirAll(filepath.Clean(path))
}

// SetModTime changes the modification time of an existing entry.
func (m *MockFilesystemManager) SetModTime(path string, t time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if f, ok := m.files[filepath.Clean(path)]; ok {
		f.ModTime = t
	}
}

// Delete removes an entry without going through Remove's fault injection.
func (m *MockFilesystemManager) Delete(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, filepath.Clean(path))
}

// File returns a copy of the entry at path.
func (m *MockFilesystemManager) File(path string) (MockFile, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[filepath.Clean(path)]
	if !ok {
		return MockFile{}, false
	}
	c := *f
	c.Content = bytes.Clone(f.Content)
	return c, true
}

// Exists reports whether anything exists at path.
func (m *MockFilesystemManager) Exists(path string) bool {
	_, ok := m.File(path)
	return ok
}

// FailOn makes the named operation ("open", "write", "remove", "mkdir",
// "chtimes", "list") fail with err for path.
func (m *MockFilesystemManager) FailOn(op, path string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fails[op+" "+filepath.Clean(path)] = err
}

func (m *MockFilesystemManager) injected(op, path string) error {
	if err, ok := m.fails[op+" "+path]; ok {
		return &fs.PathError{Op: op, Path: path, Err: err}
	}
	return nil
}

func (m *MockFilesystemManager) mkdirAll(dir string) {
	for d := dir; ; d = filepath.Dir(d) {
		if f, ok := m.files[d]; ok && f.IsDirectory {
			break
		}
		m.files[d] = &MockFile{Permissions: 0755 | fs.ModeDir, ModTime: m.now(), IsDirectory: true}
		if d == filepath.Dir(d) {
			break
		}
	}
}

func notExist(op, path string) error {
	return &fs.PathError{Op: op, Path: path, Err: fs.ErrNotExist}
}

func (m *MockFilesystemManager) info(path string, f *MockFile) *mockFileInfo {
	return &mockFileInfo{
		name:    filepath.Base(path),
		size:    int64(len(f.Content)),
		mode:    f.Permissions,
		modTime: f.ModTime,
		isDir:   f.IsDirectory,
	}
}

func (m *MockFilesystemManager) Resolve(rawPath string) (*keep.Path, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	path := filepath.Clean(rawPath)
	file, ok := m.files[path]
	if !ok {
		return nil, notExist("resolve", path)
	}
	return keep.NewPath(path, file.IsDirectory, m.info(path, file)), nil
}

func (m *MockFilesystemManager) Stat(path string) (fs.FileInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	path = filepath.Clean(path)
	file, ok := m.files[path]
	if !ok {
		return nil, notExist("stat", path)
	}
	return m.info(path, file), nil
}

func (m *MockFilesystemManager) Open(path string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	path = filepath.Clean(path)
	if err := m.injected("open", path); err != nil {
		return nil, err
	}
	file, ok := m.files[path]
	if !ok {
		return nil, notExist("open", path)
	}
	if file.IsDirectory {
		return nil, fmt.Errorf("cannot open directory: %s", path)
	}
	return io.NopCloser(bytes.NewReader(bytes.Clone(file.Content))), nil
}

// WriteFile collects write's output and stores it at dst only on success,
// mirroring the temp file and rename of the real implementation.
func (m *MockFilesystemManager) WriteFile(dst string, perm fs.FileMode, write func(w io.Writer) error) error {
	dst = filepath.Clean(dst)

	m.mu.Lock()
	if err := m.injected("write", dst); err != nil {
		m.mu.Unlock()
		return err
	}
	if parent, ok := m.files[filepath.Dir(dst)]; !ok || !parent.IsDirectory {
		m.mu.Unlock()
		return notExist("write", dst)
	}
	m.mu.Unlock()

	var buf bytes.Buffer
	if err := write(&buf); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[dst] = &MockFile{Content: buf.Bytes(), Permissions: perm, ModTime: m.now()}
	return nil
}

func (m *MockFilesystemManager) Chtimes(path string, atime, mtime time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	path = filepath.Clean(path)
	if err := m.injected("chtimes", path); err != nil {
		return err
	}
	file, ok := m.files[path]
	if !ok {
		return notExist("chtimes", path)
	}
	file.ModTime = mtime
	return nil
}

func (m *MockFilesystemManager) MkdirAll(dir string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	dir = filepath.Clean(dir)
	if err := m.injected("mkdir", dir); err != nil {
		return err
	}
	if f, ok := m.files[dir]; ok && !f.IsDirectory {
		return &fs.PathError{Op: "mkdir", Path: dir, Err: fs.ErrExist}
	}
	m.mkdirAll(dir)
	return nil
}

func (m *MockFilesystemManager) ListFiles(dir string) ([]*keep.Path, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	dir = filepath.Clean(dir)
	if err := m.injected("list", dir); err != nil {
		return nil, err
	}
	if f, ok := m.files[dir]; !ok || !f.IsDirectory {
		return nil, notExist("list", dir)
	}

	var names []string
	for p, f := range m.files {
		if f.IsDirectory || filepath.Dir(p) != dir || p == dir {
			continue
		}
		names = append(names, p)
	}
	sort.Strings(names)

	result := make([]*keep.Path, 0, len(names))
	for _, p := range names {
		result = append(result, keep.NewPath(p, false, m.info(p, m.files[p])))
	}
	return result, nil
}

func (m *MockFilesystemManager) Remove(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	path = filepath.Clean(path)
	if err := m.injected("remove", path); err != nil {
		return err
	}
	file, ok := m.files[path]
	if !ok {
		return notExist("remove", path)
	}
	if file.IsDirectory {
		prefix := path + string(filepath.Separator)
		for p := range m.files {
			if strings.HasPrefix(p, prefix) {
				return &fs.PathError{Op: "remove", Path: path, Err: fmt.Errorf("directory not empty")}
			}
		}
	}
	delete(m.files, path)
	return nil
}

// mockFileInfo implements fs.FileInfo
type mockFileInfo struct {
	name    string
	size    int64
	mode    fs.FileMode
	modTime time.Time
	isDir   bool
}

func (m *mockFileInfo) Name() string       { return m.name }
func (m *mockFileInfo) Size() int64        { return m.size }
func (m *mockFileInfo) Mode() fs.FileMode  { return m.mode }
func (m *mockFileInfo) ModTime() time.Time { return m.modTime }
func (m *mockFileInfo) IsDir() bool        { return m.isDir }
func (m *mockFileInfo) Sys() any           { return nil }

// Compile-time check
var _ keep.FilesystemManager = (*MockFilesystemManager)(nil)
