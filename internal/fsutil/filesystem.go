// Package fsutil abstracts the filesystem behind the match loader and the
// plot writer so both can run against memory in tests.
package fsutil

import (
	"bytes"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing/fstest"
	"time"
)

// FileSystem is the subset of filesystem operations the loader and the plot
// writer need.
type FileSystem interface {
	Open(name string) (fs.File, error)
	Create(name string) (io.WriteCloser, error)
	Stat(name string) (fs.FileInfo, error)
	ReadDir(name string) ([]fs.DirEntry, error)
	MkdirAll(path string, perm os.FileMode) error
}

// OSFileSystem is the real filesystem.
type OSFileSystem struct{}

func (OSFileSystem) Open(name string) (fs.File, error)            { return os.Open(name) }
func (OSFileSystem) Create(name string) (io.WriteCloser, error)   { return os.Create(name) }
func (OSFileSystem) Stat(name string) (fs.FileInfo, error)        { return os.Stat(name) }
func (OSFileSystem) ReadDir(name string) ([]fs.DirEntry, error)   { return os.ReadDir(name) }
func (OSFileSystem) MkdirAll(path string, perm os.FileMode) error { return os.MkdirAll(path, perm) }

// MemoryFileSystem keeps files in an fstest.MapFS. Each write stamps the
// file with the next tick of a counter as its modification time, so a
// rewrite is always visible to (size, mtime) cache keys.
type MemoryFileSystem struct {
	mu    sync.RWMutex
	files fstest.MapFS
	tick  int64
}

func NewMemoryFileSystem() *MemoryFileSystem {
	return &MemoryFileSystem{files: fstest.MapFS{}}
}

// key maps an OS-style path onto the unrooted slash form MapFS expects.
func key(name string) string {
	k := strings.TrimPrefix(filepath.ToSlash(filepath.Clean(name)), "/")
	if k == "" {
		return "."
	}
	return k
}

// WriteFile replaces the named file with a copy of data.
func (m *MemoryFileSystem) WriteFile(name string, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tick++
	m.files[key(name)] = &fstest.MapFile{
		Data:    bytes.Clone(data),
		Mode:    0o644,
		ModTime: time.Unix(0, m.tick),
	}
}

// ReadFile returns a copy of the named file's contents.
func (m *MemoryFileSystem) ReadFile(name string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fs.ReadFile(m.files, key(name))
}

func (m *MemoryFileSystem) Open(name string) (fs.File, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.files.Open(key(name))
}

func (m *MemoryFileSystem) Stat(name string) (fs.FileInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.files.Stat(key(name))
}

// ReadDir lists the named directory sorted by file name.
func (m *MemoryFileSystem) ReadDir(name string) ([]fs.DirEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fs.ReadDir(m.files, key(name))
}

// MkdirAll records path as a directory; MapFS synthesises the parents.
func (m *MemoryFileSystem) MkdirAll(path string, perm os.FileMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	k := key(path)
	if f, ok := m.files[k]; ok && !f.Mode.IsDir() {
		return &fs.PathError{Op: "mkdir", Path: path, Err: fs.ErrExist}
	}
	m.files[k] = &fstest.MapFile{Mode: fs.ModeDir | perm}
	return nil
}

// Create buffers writes; the file appears when the writer is closed.
func (m *MemoryFileSystem) Create(name string) (io.WriteCloser, error) {
	return &pendingFile{fs: m, name: name}, nil
}

type pendingFile struct {
	bytes.Buffer
	fs   *MemoryFileSystem
	name string
}

func (p *pendingFile) Close() error {
	p.fs.WriteFile(p.name, p.Bytes())
	return nil
}
