package snapshot

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Fingerprint summarizes a directory tree by file count, total size and the
// newest modification time. Two trees with equal fingerprints are assumed to
// be identical. Edits that keep size and mtime unchanged are not detected.
type Fingerprint struct {
	Files  int64
	Bytes  int64
	Latest time.Time
}

// String encodes the fingerprint as "count|bytes|latestUnixNano".
func (f Fingerprint) String() string {
	var latest int64
	if !f.Latest.IsZero() {
		latest = f.Latest.UTC().UnixNano()
	}
	return fmt.Sprintf("%d|%d|%d", f.Files, f.Bytes, latest)
}

// ParseFingerprint decodes a value produced by Fingerprint.String.
func ParseFingerprint(s string) (Fingerprint, error) {
	parts := strings.Split(s, "|")
	if len(parts) != 3 {
		return Fingerprint{}, fmt.Errorf("malformed fingerprint %q", s)
	}
	var nums [3]int64
	for i, p := range parts {
		n, err := strconv.ParseInt(p, 10, 64)
		if err != nil {
			return Fingerprint{}, fmt.Errorf("malformed fingerprint %q: %w", s, err)
		}
		nums[i] = n
	}
	fp := Fingerprint{Files: nums[0], Bytes: nums[1]}
	if nums[2] != 0 {
		fp.Latest = time.Unix(0, nums[2]).UTC()
	}
	return fp, nil
}

// ComputeFingerprint walks dir and summarizes its regular files.
// Entries that cannot be read are left out, as is everything below an
// exclude directory such as a backup root nested in dir. The walk fails only
// when dir itself is missing or is not a directory.
func (e *Engine) ComputeFingerprint(dir string, exclude ...string) (Fingerprint, error) {
	const op = "fingerprint"
	if strings.TrimSpace(dir) == "" {
		return Fingerprint{}, invalidArg(op, "directory is empty")
	}
	info, err := e.fs.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Fingerprint{}, newError(op, dir, ErrNotFound, nil)
		}
		return Fingerprint{}, newError(op, dir, ErrNotFound, err)
	}
	if !info.IsDir() {
		return Fingerprint{}, newError(op, dir, ErrNotFound, errors.New("not a directory"))
	}

	var fp Fingerprint
	err = e.fs.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			e.logger.Debug("fingerprint skipped entry", "path", path, "error", err)
			return nil
		}
		if info.IsDir() && path != dir && excluded(path, dir, exclude) {
			return filepath.SkipDir
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		fp.Files++
		fp.Bytes += info.Size()
		if mt := info.ModTime(); mt.After(fp.Latest) {
			fp.Latest = mt
		}
		return nil
	})
	if err != nil {
		return Fingerprint{}, newError(op, dir, ErrNotFound, err)
	}
	return fp, nil
}
