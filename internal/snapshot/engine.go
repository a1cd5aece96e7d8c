// Package snapshot implements directory-snapshot versioning.
//
// Each snapshot ("version") is a full, independent copy of a source
// directory stored at backupRoot/<item name>/<YYYYMMDD_HHMMSS>. The engine
// creates versions, skips redundant ones when the source is unchanged,
// restores a version onto a live directory and prunes old versions.
//
// Engine methods hold no state between calls. Callers must not run two
// operations for the same item at once.
package snapshot

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/jmcdonald/savekeep/internal/ports"
)

// TimestampLayout is the layout of version directory names.
const TimestampLayout = "20060102_150405"

// Engine creates, restores and prunes versions on a FileSystem.
type Engine struct {
	fs     ports.FileSystem
	logger hclog.Logger
	now    func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l hclog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithClock replaces time.Now for naming versions.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// New creates an Engine operating on fsys.
func New(fsys ports.FileSystem, opts ...Option) *Engine {
	e := &Engine{
		fs:     fsys,
		logger: hclog.NewNullLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Item is the engine's view of a tracked save folder.
type Item struct {
	Name        string
	SourceDir   string
	Fingerprint string // last known fingerprint, empty if never computed
}

// Snapshot describes a newly created version.
type Snapshot struct {
	Name    string
	Path    string
	Files   int
	Bytes   int64
	Skipped []Skip
}

// ChangeResult is the outcome of CreateIfChanged.
type ChangeResult struct {
	Created     bool
	Snapshot    *Snapshot
	Fingerprint string // new fingerprint, empty if it could not be computed
	Reason      string
}

// SanitizeName turns an item name into a safe folder name. Reserved
// characters and control characters become '_' and surrounding whitespace
// is trimmed.
func SanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		if r < 0x20 || r == 0x7f || strings.ContainsRune(`<>:"/\|?*`, r) {
			b.WriteRune('_')
			continue
		}
		b.WriteRune(r)
	}
	return strings.TrimSpace(b.String())
}

// ItemDir returns backupRoot/<sanitized name>.
func ItemDir(backupRoot, itemName string) (string, error) {
	if strings.TrimSpace(backupRoot) == "" {
		return "", invalidArg("item dir", "backup root is empty")
	}
	safe := SanitizeName(itemName)
	if safe == "" || safe == "." || safe == ".." {
		return "", invalidArg("item dir", "item name %q is not usable as a folder name", itemName)
	}
	return filepath.Join(backupRoot, safe), nil
}

// CreateSnapshot copies sourceDir into a new version of itemName.
func (e *Engine) CreateSnapshot(sourceDir, backupRoot, itemName string) (*Snapshot, error) {
	const op = "create"
	if strings.TrimSpace(sourceDir) == "" {
		return nil, newError(op, "", ErrNotFound, errors.New("source directory is empty"))
	}
	if err := e.requireDir(op, sourceDir); err != nil {
		return nil, err
	}
	itemDir, err := ItemDir(backupRoot, itemName)
	if err != nil {
		return nil, err
	}

	name, versionPath, err := e.nextVersion(itemDir)
	if err != nil {
		return nil, newError(op, itemDir, ErrInvalidArgument, err)
	}

	if err := e.fs.MkdirAll(versionPath, 0755); err != nil {
		return nil, newError(op, versionPath, ErrStorage, err)
	}
	res, err := e.copyTree(sourceDir, versionPath, backupRoot)
	if err != nil {
		_ = e.fs.RemoveAll(versionPath)
		return nil, newError(op, sourceDir, ErrNotFound, err)
	}
	if res.Files == 0 {
		_ = e.fs.RemoveAll(versionPath)
		return nil, newError(op, versionPath, ErrBackupEmpty,
			errors.New("snapshot folder was created but empty"))
	}

	e.logger.Info("snapshot created", "item", itemName, "version", name,
		"files", res.Files, "bytes", res.Bytes, "skipped", len(res.Skipped))
	return &Snapshot{
		Name:    name,
		Path:    versionPath,
		Files:   res.Files,
		Bytes:   res.Bytes,
		Skipped: res.Skipped,
	}, nil
}

// CreateIfChanged snapshots item.SourceDir unless its fingerprint matches
// item.Fingerprint and at least one version already exists. A fingerprint
// failure forces a snapshot and leaves ChangeResult.Fingerprint empty.
func (e *Engine) CreateIfChanged(item Item, backupRoot string) (*ChangeResult, error) {
	const op = "create if changed"
	if strings.TrimSpace(item.SourceDir) == "" {
		return nil, newError(op, "", ErrNotFound, errors.New("source directory is empty"))
	}
	if err := e.requireDir(op, item.SourceDir); err != nil {
		return nil, err
	}
	hasVersions, err := e.HasVersions(item.Name, backupRoot)
	if err != nil {
		return nil, err
	}

	fp, fpErr := e.ComputeFingerprint(item.SourceDir, backupRoot)
	if fpErr != nil {
		e.logger.Warn("fingerprint failed, forcing snapshot", "item", item.Name, "error", fpErr)
		snap, err := e.CreateSnapshot(item.SourceDir, backupRoot, item.Name)
		if err != nil {
			return nil, err
		}
		return &ChangeResult{Created: true, Snapshot: snap, Reason: "fingerprint unavailable"}, nil
	}
	current := fp.String()

	var reason string
	switch {
	case !hasVersions:
		reason = "no previous backup"
	case item.Fingerprint == current:
		e.logger.Info("unchanged, snapshot skipped", "item", item.Name, "fingerprint", current)
		return &ChangeResult{Fingerprint: current, Reason: "unchanged"}, nil
	case item.Fingerprint == "":
		reason = "no stored fingerprint"
	default:
		reason = "changed"
	}

	snap, err := e.CreateSnapshot(item.SourceDir, backupRoot, item.Name)
	if err != nil {
		return nil, err
	}
	return &ChangeResult{Created: true, Snapshot: snap, Fingerprint: current, Reason: reason}, nil
}

// Restore replaces the contents of targetDir with the files of versionPath.
// targetDir is created if needed. Existing contents are deleted first and a
// deletion failure aborts the restore. versionPath and any keep directory
// that lie inside targetDir are left in place, so a backup root nested in
// the save folder survives the restore.
func (e *Engine) Restore(targetDir, versionPath string, keep ...string) (CopyResult, error) {
	const op = "restore"
	if strings.TrimSpace(targetDir) == "" {
		return CopyResult{}, invalidArg(op, "target directory is empty")
	}
	if strings.TrimSpace(versionPath) == "" {
		return CopyResult{}, newError(op, "", ErrNotFound, errors.New("version path is empty"))
	}
	if err := e.requireDir(op, versionPath); err != nil {
		return CopyResult{}, err
	}
	if err := e.fs.MkdirAll(targetDir, 0755); err != nil {
		return CopyResult{}, newError(op, targetDir, ErrStorage, err)
	}
	keep = append([]string{versionPath}, keep...)
	if err := e.clearDir(targetDir, keep); err != nil {
		return CopyResult{}, newError(op, targetDir, ErrStorage, err)
	}

	res, err := e.copyTree(versionPath, targetDir, keep...)
	if err != nil {
		return res, newError(op, versionPath, ErrNotFound, err)
	}
	e.logger.Info("version restored", "version", versionPath, "target", targetDir,
		"files", res.Files, "skipped", len(res.Skipped))
	return res, nil
}

// clearDir removes everything inside dir except the keep directories.
// Directories holding a keep directory are cleared around it. Read-only
// files are made writable before removal.
func (e *Engine) clearDir(dir string, keep []string) error {
	entries, err := e.fs.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("listing %s: %w", dir, err)
	}
	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())
		inside, holds := guarded(path, keep)
		if inside {
			continue
		}
		if entry.IsDir() {
			if holds {
				if err := e.clearDir(path, keep); err != nil {
					return err
				}
				continue
			}
			if err := e.fs.RemoveAll(path); err != nil {
				return fmt.Errorf("removing %s: %w", path, err)
			}
			continue
		}
		if entry.Mode().Perm()&0200 == 0 {
			if err := e.fs.Chmod(path, entry.Mode().Perm()|0200); err != nil {
				return fmt.Errorf("making %s writable: %w", path, err)
			}
		}
		if err := e.fs.Remove(path); err != nil {
			return fmt.Errorf("removing %s: %w", path, err)
		}
	}
	return nil
}

func (e *Engine) requireDir(op, dir string) error {
	info, err := e.fs.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return newError(op, dir, ErrNotFound, nil)
		}
		return newError(op, dir, ErrNotFound, err)
	}
	if !info.IsDir() {
		return newError(op, dir, ErrNotFound, errors.New("not a directory"))
	}
	return nil
}

// nextVersion picks an unused version directory name under itemDir. Two
// snapshots within the same second get "_2", "_3", ... suffixes.
func (e *Engine) nextVersion(itemDir string) (string, string, error) {
	base := e.now().Format(TimestampLayout)
	for i := 1; i < 1000; i++ {
		name := base
		if i > 1 {
			name = fmt.Sprintf("%s_%d", base, i)
		}
		path := filepath.Join(itemDir, name)
		if _, err := e.fs.Stat(path); errors.Is(err, fs.ErrNotExist) {
			return name, path, nil
		}
	}
	return "", "", fmt.Errorf("no free version name for %s", base)
}
