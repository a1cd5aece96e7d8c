// Package tuisvc provides the real implementation of ports.TUIService.
package tuisvc

import (
	"fmt"

	"github.com/hashicorp/go-hclog"

	"github.com/jmcdonald/savekeep/internal/backup"
	"github.com/jmcdonald/savekeep/internal/config"
	"github.com/jmcdonald/savekeep/internal/ports"
	"github.com/jmcdonald/savekeep/internal/recovery"
)

// Service implements ports.TUIService on top of the backup and recovery
// services. Operations that change an item save the config.
type Service struct {
	configPath string
	backup     *backup.Service
	recovery   *recovery.Service
	logger     hclog.Logger
}

// New creates a TUI service over the real filesystem. An empty configPath
// means the default location.
func New(configPath string, logger hclog.Logger) *Service {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	b := backup.NewDefaultService(logger)
	return NewWithDeps(configPath, b, recovery.NewService(b, logger), logger)
}

// NewWithDeps creates a TUI service with the given dependencies.
func NewWithDeps(configPath string, b *backup.Service, r *recovery.Service, logger hclog.Logger) *Service {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Service{configPath: configPath, backup: b, recovery: r, logger: logger}
}

// LoadConfig loads the application configuration.
func (s *Service) LoadConfig() (*config.Config, error) {
	return config.Load(s.configPath)
}

// ListItems returns all items with their metadata.
func (s *Service) ListItems(cfg *config.Config) ([]ports.TUIItemInfo, error) {
	result := make([]ports.TUIItemInfo, 0, len(cfg.Items))
	for i := range cfg.Items {
		item := &cfg.Items[i]
		info := ports.TUIItemInfo{
			ID:         item.ID,
			Name:       item.Name,
			SavePath:   item.SavePath,
			LastBackup: item.LastBackup,
		}
		dir, err := s.backup.ResolveSource(item)
		info.Dir = dir
		info.Missing = err != nil

		versions, err := s.backup.ListVersions(cfg, item)
		if err != nil {
			s.logger.Debug("listing versions", "item", item.Name, "error", err)
		}
		info.Versions = len(versions)
		for _, v := range versions {
			if fp, err := s.backup.Engine().ComputeFingerprint(v.Path); err == nil {
				info.TotalSize += fp.Bytes
			}
		}
		if info.LastBackup.IsZero() && len(versions) > 0 {
			info.LastBackup = versions[0].CreatedAt
		}
		result = append(result, info)
	}
	return result, nil
}

// ListVersions returns all versions of an item, newest first.
func (s *Service) ListVersions(cfg *config.Config, itemID string) ([]ports.TUIVersionInfo, error) {
	item, err := cfg.FindItem(itemID)
	if err != nil {
		return nil, err
	}
	versions, err := s.backup.ListVersions(cfg, item)
	if err != nil {
		return nil, err
	}
	result := make([]ports.TUIVersionInfo, 0, len(versions))
	for _, v := range versions {
		info := ports.TUIVersionInfo{Name: v.Name, CreatedAt: v.CreatedAt}
		if fp, err := s.backup.Engine().ComputeFingerprint(v.Path); err == nil {
			info.Size = fp.Bytes
			info.FileCount = int(fp.Files)
		}
		result = append(result, info)
	}
	return result, nil
}

// RunBackup snapshots the item now and saves the config.
func (s *Service) RunBackup(cfg *config.Config, itemID string) ports.TUIBackupResult {
	item, err := cfg.FindItem(itemID)
	if err != nil {
		return ports.TUIBackupResult{Error: err}
	}
	result := s.backup.BackupItem(cfg, item, true)
	if result.Error == nil {
		result.Error = s.save(cfg)
	}
	return ports.TUIBackupResult{
		Version: result.Version,
		Size:    result.Size,
		Error:   result.Error,
		Skipped: result.Skipped,
		Reason:  result.Reason,
	}
}

// VerifyBackup checks the latest version of an item.
func (s *Service) VerifyBackup(cfg *config.Config, itemID string) error {
	item, err := cfg.FindItem(itemID)
	if err != nil {
		return err
	}
	_, _, err = s.recovery.Verify(cfg, item, "")
	return err
}

// Restore restores version onto the item's save folder with a safety
// snapshot and saves the config.
func (s *Service) Restore(cfg *config.Config, itemID, version string) ports.TUIRestoreResult {
	res, err := s.recovery.Recover(cfg, recovery.RecoverOptions{Item: itemID, Version: version})
	if err != nil {
		return ports.TUIRestoreResult{Version: version, Error: err}
	}
	out := ports.TUIRestoreResult{
		Version:        res.Version,
		SafetySnapshot: res.SafetySnapshot,
		Files:          res.Restored.Files,
		Skipped:        len(res.Restored.Skipped),
	}
	out.Error = s.save(cfg)
	return out
}

// Diff compares two versions of an item.
func (s *Service) Diff(cfg *config.Config, itemID, version1, version2 string) (*ports.TUIDiffResult, error) {
	item, err := cfg.FindItem(itemID)
	if err != nil {
		return nil, err
	}
	d, err := s.backup.Compare(cfg, item, version1, version2)
	if err != nil {
		return nil, err
	}
	result := &ports.TUIDiffResult{
		Version1: d.Version1,
		Version2: d.Version2,
		Added:    d.Added,
		Modified: d.Modified,
		Deleted:  d.Deleted,
	}
	for _, c := range d.Changes {
		result.Changes = append(result.Changes, ports.TUIFileChange{Path: c.Path, Status: c.Status})
	}
	return result, nil
}

// FileDiff returns the line diff of one file between two versions.
func (s *Service) FileDiff(cfg *config.Config, itemID, version1, version2, path string) (*ports.TUIFileDiff, error) {
	item, err := cfg.FindItem(itemID)
	if err != nil {
		return nil, err
	}
	d, err := s.backup.CompareFile(cfg, item, version1, version2, path)
	if err != nil {
		return nil, err
	}
	result := &ports.TUIFileDiff{
		Path:     d.Path,
		Version1: d.Version1,
		Version2: d.Version2,
		IsBinary: d.IsBinary,
	}
	for _, l := range d.Lines {
		result.Lines = append(result.Lines, ports.TUIDiffLine{
			LineNum1: l.LineNum1,
			LineNum2: l.LineNum2,
			Type:     l.Type,
			Content:  l.Content,
		})
	}
	return result, nil
}

func (s *Service) save(cfg *config.Config) error {
	if err := cfg.Save(s.configPath); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}
	return nil
}

// Compile-time check that Service implements ports.TUIService.
var _ ports.TUIService = (*Service)(nil)
