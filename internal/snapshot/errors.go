package snapshot

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by an Engine operation matches exactly one
// of these with errors.Is.
var (
	// ErrInvalidArgument reports a missing or unusable argument.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotFound reports a missing source directory or version.
	ErrNotFound = errors.New("not found")

	// ErrBackupEmpty reports a snapshot in which no file could be copied.
	ErrBackupEmpty = errors.New("backup empty")

	// ErrStorage reports a failed write or delete under the backup root or
	// the restore target.
	ErrStorage = errors.New("storage failure")
)

// Error describes a failed engine operation.
type Error struct {
	Op   string // operation name, e.g. "create"
	Path string // path the operation failed on, if any
	Kind error  // one of the Err* kinds
	Err  error  // underlying cause, may be nil
}

func (e *Error) Error() string {
	msg := e.Op + ": " + e.Kind.Error()
	if e.Path != "" {
		msg += " " + e.Path
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns both the kind and the cause so errors.Is matches either.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

func newError(op, path string, kind, err error) *Error {
	return &Error{Op: op, Path: path, Kind: kind, Err: err}
}

func invalidArg(op, format string, args ...any) *Error {
	return newError(op, "", ErrInvalidArgument, fmt.Errorf(format, args...))
}
