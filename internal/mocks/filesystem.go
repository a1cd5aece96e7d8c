// Package mocks provides mock implementations for testing.
package mocks

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/jmcdonald/savekeep/internal/adapters/aferofs"
	"github.com/jmcdonald/savekeep/internal/ports"
)

// Operation names accepted by MockFileSystem.FailOn.
const (
	OpReadDir   = "ReadDir"
	OpStat      = "Stat"
	OpMkdirAll  = "MkdirAll"
	OpWriteFile = "WriteFile"
	OpReadFile  = "ReadFile"
	OpRemove    = "Remove"
	OpRemoveAll = "RemoveAll"
	OpOpen      = "Open"
	OpCreate    = "Create"
	OpChmod     = "Chmod"
	OpChtimes   = "Chtimes"
	OpWalk      = "Walk" // reported to the walk callback for that path
)

// MockFileSystem implements ports.FileSystem over an in-memory filesystem
// and fails chosen operations on chosen paths.
type MockFileSystem struct {
	mem *aferofs.FileSystem

	// Errors maps "Op:path" keys to the error that operation returns.
	Errors map[string]error

	// Calls records every "Op:path" invocation in order.
	Calls []string
}

// NewMockFileSystem creates an empty mock filesystem.
func NewMockFileSystem() *MockFileSystem {
	return &MockFileSystem{
		mem:    aferofs.NewMemory(),
		Errors: make(map[string]error),
	}
}

// FailOn makes op on path return err.
func (m *MockFileSystem) FailOn(op, path string, err error) {
	m.Errors[key(op, path)] = err
}

func key(op, path string) string {
	return op + ":" + filepath.Clean(path)
}

func (m *MockFileSystem) fault(op, path string) error {
	k := key(op, path)
	m.Calls = append(m.Calls, k)
	return m.Errors[k]
}

// ReadDir reads the named directory and returns its entries sorted by name.
func (m *MockFileSystem) ReadDir(name string) ([]os.FileInfo, error) {
	if err := m.fault(OpReadDir, name); err != nil {
		return nil, err
	}
	return m.mem.ReadDir(name)
}

// Stat returns file info for the named file.
func (m *MockFileSystem) Stat(name string) (os.FileInfo, error) {
	if err := m.fault(OpStat, name); err != nil {
		return nil, err
	}
	return m.mem.Stat(name)
}

// MkdirAll creates a directory along with any necessary parents.
func (m *MockFileSystem) MkdirAll(path string, perm os.FileMode) error {
	if err := m.fault(OpMkdirAll, path); err != nil {
		return err
	}
	return m.mem.MkdirAll(path, perm)
}

// WriteFile writes data to the named file, creating it if necessary.
func (m *MockFileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	if err := m.fault(OpWriteFile, name); err != nil {
		return err
	}
	return m.mem.WriteFile(name, data, perm)
}

// ReadFile reads the named file and returns the contents.
func (m *MockFileSystem) ReadFile(name string) ([]byte, error) {
	if err := m.fault(OpReadFile, name); err != nil {
		return nil, err
	}
	return m.mem.ReadFile(name)
}

// Remove removes the named file or empty directory.
func (m *MockFileSystem) Remove(name string) error {
	if err := m.fault(OpRemove, name); err != nil {
		return err
	}
	return m.mem.Remove(name)
}

// RemoveAll removes path and any children it contains.
func (m *MockFileSystem) RemoveAll(path string) error {
	if err := m.fault(OpRemoveAll, path); err != nil {
		return err
	}
	return m.mem.RemoveAll(path)
}

// Open opens the named file for reading.
func (m *MockFileSystem) Open(name string) (fs.File, error) {
	if err := m.fault(OpOpen, name); err != nil {
		return nil, err
	}
	return m.mem.Open(name)
}

// Create creates or truncates the named file.
func (m *MockFileSystem) Create(name string) (io.WriteCloser, error) {
	if err := m.fault(OpCreate, name); err != nil {
		return nil, err
	}
	return m.mem.Create(name)
}

// Chmod changes the mode of the named file.
func (m *MockFileSystem) Chmod(name string, mode os.FileMode) error {
	if err := m.fault(OpChmod, name); err != nil {
		return err
	}
	return m.mem.Chmod(name, mode)
}

// Chtimes changes the access and modification times of the named file.
func (m *MockFileSystem) Chtimes(name string, atime, mtime time.Time) error {
	if err := m.fault(OpChtimes, name); err != nil {
		return err
	}
	return m.mem.Chtimes(name, atime, mtime)
}

// Walk walks the in-memory tree. A Walk fault on a path is passed to fn in
// place of that entry, as an unreadable entry would be.
func (m *MockFileSystem) Walk(root string, fn ports.WalkFunc) error {
	return m.mem.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err == nil {
			if injected := m.fault(OpWalk, path); injected != nil {
				if info.IsDir() && path != filepath.Clean(root) {
					_ = fn(path, nil, injected)
					return filepath.SkipDir
				}
				return fn(path, nil, injected)
			}
		}
		return fn(path, info, err)
	})
}

// Compile-time check that MockFileSystem implements ports.FileSystem.
var _ ports.FileSystem = (*MockFileSystem)(nil)
