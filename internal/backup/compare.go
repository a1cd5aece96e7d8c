package backup

import (
	"fmt"

	"github.com/jmcdonald/savekeep/internal/compare"
	"github.com/jmcdonald/savekeep/internal/config"
	"github.com/jmcdonald/savekeep/internal/ports"
	"github.com/jmcdonald/savekeep/internal/snapshot"
)

// LiveVersion stands for the save folder itself wherever a version name is
// expected.
const LiveVersion = ports.LiveVersion

// VersionDir returns the directory holding version of item. LiveVersion
// resolves to the save folder.
func (s *Service) VersionDir(cfg *config.Config, item *config.Item, version string) (string, error) {
	if version == LiveVersion {
		return s.ResolveSource(item)
	}
	path, err := snapshot.VersionPath(s.BackupRoot(cfg), item.Name, version)
	if err != nil {
		return "", err
	}
	info, err := s.fs.Stat(path)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("version %s of %s: %w", version, item.Name, snapshot.ErrNotFound)
	}
	return path, nil
}

func (s *Service) sides(cfg *config.Config, item *config.Item, v1, v2 string) (compare.Side, compare.Side, error) {
	dir1, err := s.VersionDir(cfg, item, v1)
	if err != nil {
		return compare.Side{}, compare.Side{}, err
	}
	dir2, err := s.VersionDir(cfg, item, v2)
	if err != nil {
		return compare.Side{}, compare.Side{}, err
	}
	return compare.Side{Label: v1, Dir: dir1}, compare.Side{Label: v2, Dir: dir2}, nil
}

// Compare lists the files that differ between two versions of item. Either
// may be LiveVersion. A backup root inside the save folder is ignored.
func (s *Service) Compare(cfg *config.Config, item *config.Item, v1, v2 string) (*compare.DiffResult, error) {
	from, to, err := s.sides(cfg, item, v1, v2)
	if err != nil {
		return nil, err
	}
	return s.comparer.Diff(from, to, s.BackupRoot(cfg))
}

// CompareFile diffs one file between two versions of item.
func (s *Service) CompareFile(cfg *config.Config, item *config.Item, v1, v2, path string) (*compare.FileDiffResult, error) {
	from, to, err := s.sides(cfg, item, v1, v2)
	if err != nil {
		return nil, err
	}
	return s.comparer.FileDiff(from, to, path)
}
