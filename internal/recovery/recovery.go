package recovery

import (
	"errors"
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/jmcdonald/savekeep/internal/backup"
	"github.com/jmcdonald/savekeep/internal/config"
	"github.com/jmcdonald/savekeep/internal/snapshot"
)

// RecoverOptions configures a recovery operation.
type RecoverOptions struct {
	Item     string // item ID, ID prefix or name
	Version  string // version folder name, empty for latest
	NoSafety bool   // skip the safety snapshot of the current saves
}

// RecoverResult describes a completed restore.
type RecoverResult struct {
	Item           string
	Version        string
	Target         string
	SafetySnapshot string // version name of the safety snapshot, empty if none
	Restored       snapshot.CopyResult
}

// Service provides recovery operations with injected dependencies.
type Service struct {
	backup *backup.Service
	logger hclog.Logger
}

// NewService creates a new recovery service on top of a backup service.
func NewService(b *backup.Service, logger hclog.Logger) *Service {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Service{backup: b, logger: logger}
}

// NewDefaultService creates a recovery service with real production dependencies.
func NewDefaultService(logger hclog.Logger) *Service {
	return NewService(backup.NewDefaultService(logger), logger)
}

// Verify checks that a version exists and holds at least one file. An empty
// version name checks the latest.
func (s *Service) Verify(cfg *config.Config, item *config.Item, version string) (snapshot.Version, snapshot.Fingerprint, error) {
	v, err := s.findVersion(cfg, item, version)
	if err != nil {
		return snapshot.Version{}, snapshot.Fingerprint{}, err
	}
	fp, err := s.backup.Engine().ComputeFingerprint(v.Path)
	if err != nil {
		return v, fp, fmt.Errorf("reading version %s: %w", v.Name, err)
	}
	if fp.Files == 0 {
		return v, fp, fmt.Errorf("version %s contains no files", v.Name)
	}
	return v, fp, nil
}

// Recover restores a version of an item onto its save folder. Unless
// opts.NoSafety is set the current saves are snapshotted first, and a
// failing safety snapshot aborts the restore. A save folder that is missing
// or empty has nothing to protect and is restored without one.
//
// A backup root nested in the save folder is left untouched by the restore.
// The item's fingerprint is updated to the restored contents; the caller
// persists the config.
func (s *Service) Recover(cfg *config.Config, opts RecoverOptions) (*RecoverResult, error) {
	item, err := cfg.FindItem(opts.Item)
	if err != nil {
		return nil, err
	}
	engine := s.backup.Engine()
	root := s.backup.BackupRoot(cfg)

	// Pick the version before the safety snapshot becomes the newest one.
	v, _, err := s.Verify(cfg, item, opts.Version)
	if err != nil {
		return nil, fmt.Errorf("verification failed: %w", err)
	}

	target, srcErr := s.backup.ResolveSource(item)
	if target == "" {
		return nil, srcErr
	}
	result := &RecoverResult{Item: item.Name, Version: v.Name, Target: target}

	if !opts.NoSafety {
		switch {
		case errors.Is(srcErr, backup.ErrSourceMissing):
			s.logger.Info("save folder missing, restoring without safety snapshot", "item", item.Name)
		case srcErr != nil:
			return nil, srcErr
		default:
			snap, err := engine.CreateSnapshot(target, root, item.Name)
			switch {
			case err == nil:
				result.SafetySnapshot = snap.Name
				s.logger.Info("safety snapshot created", "item", item.Name, "version", snap.Name)
			case errors.Is(err, snapshot.ErrBackupEmpty):
				s.logger.Info("save folder empty, restoring without safety snapshot", "item", item.Name)
			default:
				return nil, fmt.Errorf("safety snapshot: %w", err)
			}
		}
	}

	restored, err := engine.Restore(target, v.Path, root)
	result.Restored = restored
	if err != nil {
		return result, fmt.Errorf("restoring %s: %w", v.Name, err)
	}

	if fp, err := engine.ComputeFingerprint(target, root); err == nil {
		item.Fingerprint = fp.String()
	}
	return result, nil
}

// ListVersions returns all versions of an item, newest first.
func (s *Service) ListVersions(cfg *config.Config, item *config.Item) ([]snapshot.Version, error) {
	return s.backup.ListVersions(cfg, item)
}

func (s *Service) findVersion(cfg *config.Config, item *config.Item, version string) (snapshot.Version, error) {
	root := s.backup.BackupRoot(cfg)
	if version == "" {
		v, err := s.backup.Engine().LatestVersion(item.Name, root)
		if err != nil {
			return v, fmt.Errorf("no versions found for %s: %w", item.Name, err)
		}
		return v, nil
	}
	versions, err := s.backup.ListVersions(cfg, item)
	if err != nil {
		return snapshot.Version{}, err
	}
	for _, v := range versions {
		if v.Name == version {
			return v, nil
		}
	}
	return snapshot.Version{}, fmt.Errorf("version %s of %s: %w", version, item.Name, snapshot.ErrNotFound)
}
