// Package aferofs provides a filesystem adapter backed by spf13/afero.
//
// The same adapter serves the real operating system filesystem and an
// in-memory filesystem, so snapshot code can be tested without touching disk.
package aferofs

import (
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/jmcdonald/savekeep/internal/ports"
)

// FileSystem implements ports.FileSystem on top of an afero.Fs.
type FileSystem struct {
	fs afero.Fs
}

// New wraps an existing afero filesystem.
func New(fs afero.Fs) *FileSystem {
	return &FileSystem{fs: fs}
}

// NewOS creates an adapter over the operating system filesystem.
func NewOS() *FileSystem {
	return New(afero.NewOsFs())
}

// NewMemory creates an adapter over a fresh in-memory filesystem.
func NewMemory() *FileSystem {
	return New(afero.NewMemMapFs())
}

// Afero exposes the underlying afero filesystem.
func (f *FileSystem) Afero() afero.Fs {
	return f.fs
}

// ReadDir reads the named directory and returns its entries sorted by name.
func (f *FileSystem) ReadDir(name string) ([]os.FileInfo, error) {
	return afero.ReadDir(f.fs, name)
}

// Stat returns file info for the named file.
func (f *FileSystem) Stat(name string) (os.FileInfo, error) {
	return f.fs.Stat(name)
}

// MkdirAll creates a directory along with any necessary parents.
func (f *FileSystem) MkdirAll(path string, perm os.FileMode) error {
	return f.fs.MkdirAll(path, perm)
}

// WriteFile writes data to the named file, creating it if necessary.
func (f *FileSystem) WriteFile(name string, data []byte, perm os.FileMode) error {
	return afero.WriteFile(f.fs, name, data, perm)
}

// ReadFile reads the named file and returns the contents.
func (f *FileSystem) ReadFile(name string) ([]byte, error) {
	return afero.ReadFile(f.fs, name)
}

// Remove removes the named file or empty directory.
func (f *FileSystem) Remove(name string) error {
	return f.fs.Remove(name)
}

// RemoveAll removes path and any children it contains.
func (f *FileSystem) RemoveAll(path string) error {
	return f.fs.RemoveAll(path)
}

// Open opens the named file for reading.
func (f *FileSystem) Open(name string) (fs.File, error) {
	return f.fs.Open(name)
}

// Create creates or truncates the named file.
func (f *FileSystem) Create(name string) (io.WriteCloser, error) {
	return f.fs.Create(name)
}

// Chmod changes the mode of the named file.
func (f *FileSystem) Chmod(name string, mode os.FileMode) error {
	return f.fs.Chmod(name, mode)
}

// Chtimes changes the access and modification times of the named file.
func (f *FileSystem) Chtimes(name string, atime, mtime time.Time) error {
	return f.fs.Chtimes(name, atime, mtime)
}

// Walk walks the file tree rooted at root, calling fn for each file or directory.
func (f *FileSystem) Walk(root string, fn ports.WalkFunc) error {
	return afero.Walk(f.fs, root, filepath.WalkFunc(fn))
}

// Compile-time check that FileSystem implements ports.FileSystem.
var _ ports.FileSystem = (*FileSystem)(nil)
