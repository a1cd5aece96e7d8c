package snapshot

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Version is one snapshot directory of an item.
type Version struct {
	Name      string
	Path      string
	CreatedAt time.Time
	seq       int
}

// PruneResult reports what Prune kept and removed.
type PruneResult struct {
	Kept    []string
	Deleted []string
	Failed  []Skip
}

// ListVersions returns the versions of itemName, newest first. A missing
// item folder yields no versions and no error.
//
// Creation time is taken from the timestamp in the version name. Folders
// whose names do not carry a timestamp fall back to their modification time.
func (e *Engine) ListVersions(itemName, backupRoot string) ([]Version, error) {
	itemDir, err := ItemDir(backupRoot, itemName)
	if err != nil {
		return nil, err
	}
	entries, err := e.fs.ReadDir(itemDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing versions of %s: %w", itemName, err)
	}

	var versions []Version
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		created, seq, ok := parseVersionName(entry.Name())
		if !ok {
			created = entry.ModTime()
		}
		versions = append(versions, Version{
			Name:      entry.Name(),
			Path:      filepath.Join(itemDir, entry.Name()),
			CreatedAt: created,
			seq:       seq,
		})
	}
	sort.SliceStable(versions, func(i, j int) bool {
		a, b := versions[i], versions[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		if a.seq != b.seq {
			return a.seq > b.seq
		}
		return a.Name > b.Name
	})
	return versions, nil
}

// HasVersions reports whether itemName has at least one version.
func (e *Engine) HasVersions(itemName, backupRoot string) (bool, error) {
	versions, err := e.ListVersions(itemName, backupRoot)
	if err != nil {
		return false, err
	}
	return len(versions) > 0, nil
}

// LatestVersion returns the newest version of itemName.
func (e *Engine) LatestVersion(itemName, backupRoot string) (Version, error) {
	versions, err := e.ListVersions(itemName, backupRoot)
	if err != nil {
		return Version{}, err
	}
	if len(versions) == 0 {
		return Version{}, newError("latest", itemName, ErrNotFound, errors.New("no versions"))
	}
	return versions[0], nil
}

// VersionPath returns the path of the named version of itemName. Names that
// would leave the item folder are rejected.
func VersionPath(backupRoot, itemName, version string) (string, error) {
	itemDir, err := ItemDir(backupRoot, itemName)
	if err != nil {
		return "", err
	}
	if version == "" || version == "." || version == ".." || strings.ContainsAny(version, `/\`) {
		return "", invalidArg("version path", "invalid version name %q", version)
	}
	return filepath.Join(itemDir, version), nil
}

// Prune deletes all but the keep newest versions of itemName. keep <= 0
// disables pruning. A version that cannot be deleted is reported in
// PruneResult.Failed and the rest are still processed.
func (e *Engine) Prune(itemName, backupRoot string, keep int) (PruneResult, error) {
	var res PruneResult
	if keep <= 0 {
		return res, nil
	}
	versions, err := e.ListVersions(itemName, backupRoot)
	if err != nil {
		return res, err
	}
	for i, v := range versions {
		if i < keep {
			res.Kept = append(res.Kept, v.Name)
			continue
		}
		if err := e.fs.RemoveAll(v.Path); err != nil {
			res.Failed = append(res.Failed, Skip{Path: v.Path, Err: err})
			e.logger.Warn("could not delete version", "item", itemName, "version", v.Name, "error", err)
			continue
		}
		res.Deleted = append(res.Deleted, v.Name)
	}
	if len(res.Deleted) > 0 {
		e.logger.Info("pruned versions", "item", itemName, "deleted", len(res.Deleted), "kept", len(res.Kept))
	}
	return res, nil
}

// parseVersionName reads "YYYYMMDD_HHMMSS" with an optional "_N" suffix.
func parseVersionName(name string) (time.Time, int, bool) {
	if len(name) < len(TimestampLayout) {
		return time.Time{}, 0, false
	}
	t, err := time.ParseInLocation(TimestampLayout, name[:len(TimestampLayout)], time.Local)
	if err != nil {
		return time.Time{}, 0, false
	}
	rest := name[len(TimestampLayout):]
	if rest == "" {
		return t, 1, true
	}
	if !strings.HasPrefix(rest, "_") {
		return time.Time{}, 0, false
	}
	seq, err := strconv.Atoi(rest[1:])
	if err != nil || seq < 2 {
		return time.Time{}, 0, false
	}
	return t, seq, true
}
