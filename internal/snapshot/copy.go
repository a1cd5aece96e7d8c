package snapshot

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// Skip records a path the copy routine could not handle.
type Skip struct {
	Path string
	Err  error
}

// CopyResult reports the outcome of copying a directory tree.
type CopyResult struct {
	Files   int
	Bytes   int64
	Skipped []Skip
}

func (r *CopyResult) skip(path string, err error) {
	r.Skipped = append(r.Skipped, Skip{Path: path, Err: err})
}

// copyTree copies every regular file below src to the same relative path
// below dst, which must already exist. Failures on individual entries are
// recorded and skipped, so the only error is a failed walk of src itself. The
// walk does not descend into dst or any of the exclude directories when they
// lie inside src.
func (e *Engine) copyTree(src, dst string, exclude ...string) (CopyResult, error) {
	var res CopyResult
	skipDirs := append(append([]string(nil), exclude...), dst)
	err := e.fs.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == src {
				return err
			}
			res.skip(path, err)
			e.logger.Debug("skipped unreadable entry", "path", path, "error", err)
			return nil
		}
		if info.IsDir() && path != src && excluded(path, src, skipDirs) {
			return filepath.SkipDir
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			res.skip(path, err)
			return nil
		}
		target := filepath.Join(dst, rel)

		if info.IsDir() {
			if err := e.fs.MkdirAll(target, 0755); err != nil {
				res.skip(path, err)
				e.logger.Debug("skipped directory", "path", path, "error", err)
				return filepath.SkipDir
			}
			return nil
		}

		if info.Mode()&os.ModeSymlink != 0 {
			resolved, err := e.fs.Stat(path)
			if err != nil {
				res.skip(path, err)
				return nil
			}
			info = resolved
		}
		if !info.Mode().IsRegular() {
			res.skip(path, errors.New("not a regular file"))
			return nil
		}

		if err := e.copyFile(path, target, info); err != nil {
			res.skip(path, err)
			e.logger.Debug("skipped file", "path", path, "error", err)
			return nil
		}
		res.Files++
		res.Bytes += info.Size()
		return nil
	})
	if err != nil {
		return res, fmt.Errorf("walking %s: %w", src, err)
	}
	return res, nil
}

// copyFile copies a single file, overwriting dst, and carries over the
// permission bits and modification time of src.
func (e *Engine) copyFile(src, dst string, info os.FileInfo) error {
	if err := e.fs.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	if existing, err := e.fs.Stat(dst); err == nil && existing.Mode().Perm()&0200 == 0 {
		_ = e.fs.Chmod(dst, existing.Mode().Perm()|0200)
	}

	in, err := e.fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := e.fs.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}

	if err := e.fs.Chmod(dst, info.Mode().Perm()); err != nil {
		e.logger.Debug("could not preserve mode", "path", dst, "error", err)
	}
	if err := e.fs.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		e.logger.Debug("could not preserve mtime", "path", dst, "error", err)
	}
	return nil
}

// excluded reports whether path lies in one of dirs. Directories that
// contain src itself are ignored.
func excluded(path, src string, dirs []string) bool {
	for _, dir := range dirs {
		if dir == "" || within(src, dir) {
			continue
		}
		if within(path, dir) {
			return true
		}
	}
	return false
}

// guarded reports whether path is one of keep or lies below one, and whether
// some entry of keep lies below path.
func guarded(path string, keep []string) (inside, holds bool) {
	for _, k := range keep {
		switch {
		case k == "":
		case within(path, k):
			inside = true
		case within(k, path):
			holds = true
		}
	}
	return inside, holds
}

// within reports whether path equals dir or lies below it.
func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
