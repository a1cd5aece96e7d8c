// Package ports defines interfaces (contracts) for external dependencies.
// These enable dependency injection and testability via mock implementations.
package ports

import (
	"io"
	"io/fs"
	"os"
	"time"
)

// FileSystem abstracts filesystem operations for testability.
// Production code uses the afero OS adapter; tests use the in-memory
// adapter or MockFileSystem for fault injection.
type FileSystem interface {
	// ReadDir reads the named directory and returns its entries sorted by name.
	ReadDir(name string) ([]os.FileInfo, error)

	// Stat returns file info for the named file.
	Stat(name string) (os.FileInfo, error)

	// MkdirAll creates a directory along with any necessary parents.
	MkdirAll(path string, perm os.FileMode) error

	// WriteFile writes data to the named file, creating it if necessary.
	WriteFile(name string, data []byte, perm os.FileMode) error

	// ReadFile reads the named file and returns the contents.
	ReadFile(name string) ([]byte, error)

	// Remove removes the named file or empty directory.
	Remove(name string) error

	// RemoveAll removes path and any children it contains.
	RemoveAll(path string) error

	// Open opens the named file for reading.
	Open(name string) (fs.File, error)

	// Create creates or truncates the named file.
	Create(name string) (io.WriteCloser, error)

	// Chmod changes the mode of the named file.
	Chmod(name string, mode os.FileMode) error

	// Chtimes changes the access and modification times of the named file.
	Chtimes(name string, atime, mtime time.Time) error

	// Walk walks the file tree rooted at root, calling fn for each file or directory.
	// Entries are visited in lexical order and symbolic links are not followed.
	Walk(root string, fn WalkFunc) error
}

// WalkFunc is the type of function called by Walk.
type WalkFunc func(path string, info os.FileInfo, err error) error
