package mocks

import (
	"github.com/jmcdonald/savekeep/internal/config"
	"github.com/jmcdonald/savekeep/internal/ports"
)

// MockTUIService implements ports.TUIService for testing.
type MockTUIService struct {
	// ConfigResult is the config to return from LoadConfig
	ConfigResult *config.Config
	// ConfigError is the error to return from LoadConfig
	ConfigError error

	// Items is the list of items to return
	Items []ports.TUIItemInfo
	// ItemsError is the error to return from ListItems
	ItemsError error

	// Versions maps item IDs to their versions
	Versions map[string][]ports.TUIVersionInfo
	// VersionsError is the error to return from ListVersions
	VersionsError error

	// BackupResults maps item IDs to backup results
	BackupResults map[string]ports.TUIBackupResult

	// VerifyErrors maps item IDs to verify errors
	VerifyErrors map[string]error

	// RestoreResults maps item IDs to restore results
	RestoreResults map[string]ports.TUIRestoreResult

	// DiffResult and DiffError are returned from Diff
	DiffResult *ports.TUIDiffResult
	DiffError  error

	// FileDiffResult and FileDiffError are returned from FileDiff
	FileDiffResult *ports.TUIFileDiff
	FileDiffError  error

	// Call tracking
	LoadConfigCalls   int
	ListItemsCalls    int
	ListVersionsCalls []string
	RunBackupCalls    []string
	VerifyBackupCalls []string
	RestoreCalls      []RestoreCall
	DiffCalls         [][2]string
	FileDiffCalls     []string
}

// RestoreCall records parameters of a Restore call.
type RestoreCall struct {
	ItemID  string
	Version string
}

// NewMockTUIService creates a new mock TUI service.
func NewMockTUIService() *MockTUIService {
	return &MockTUIService{
		ConfigResult:   &config.Config{},
		Versions:       make(map[string][]ports.TUIVersionInfo),
		BackupResults:  make(map[string]ports.TUIBackupResult),
		VerifyErrors:   make(map[string]error),
		RestoreResults: make(map[string]ports.TUIRestoreResult),
	}
}

// LoadConfig returns ConfigResult or ConfigError.
func (m *MockTUIService) LoadConfig() (*config.Config, error) {
	m.LoadConfigCalls++
	if m.ConfigError != nil {
		return nil, m.ConfigError
	}
	return m.ConfigResult, nil
}

// ListItems returns Items or ItemsError.
func (m *MockTUIService) ListItems(cfg *config.Config) ([]ports.TUIItemInfo, error) {
	m.ListItemsCalls++
	if m.ItemsError != nil {
		return nil, m.ItemsError
	}
	return m.Items, nil
}

// ListVersions returns the versions stored for itemID.
func (m *MockTUIService) ListVersions(cfg *config.Config, itemID string) ([]ports.TUIVersionInfo, error) {
	m.ListVersionsCalls = append(m.ListVersionsCalls, itemID)
	if m.VersionsError != nil {
		return nil, m.VersionsError
	}
	return m.Versions[itemID], nil
}

// RunBackup returns the configured result, or a 1 KB backup.
func (m *MockTUIService) RunBackup(cfg *config.Config, itemID string) ports.TUIBackupResult {
	m.RunBackupCalls = append(m.RunBackupCalls, itemID)
	if result, ok := m.BackupResults[itemID]; ok {
		return result
	}
	return ports.TUIBackupResult{Version: "20261019_120000", Size: 1024}
}

// VerifyBackup returns the error registered for itemID, if any.
func (m *MockTUIService) VerifyBackup(cfg *config.Config, itemID string) error {
	m.VerifyBackupCalls = append(m.VerifyBackupCalls, itemID)
	return m.VerifyErrors[itemID]
}

// Restore returns the configured result, or a one-file restore of version.
func (m *MockTUIService) Restore(cfg *config.Config, itemID, version string) ports.TUIRestoreResult {
	m.RestoreCalls = append(m.RestoreCalls, RestoreCall{ItemID: itemID, Version: version})
	if result, ok := m.RestoreResults[itemID]; ok {
		return result
	}
	return ports.TUIRestoreResult{Version: version, SafetySnapshot: "20261019_120000", Files: 1}
}

// Diff returns DiffError or DiffResult when set, else an empty diff.
func (m *MockTUIService) Diff(cfg *config.Config, itemID, version1, version2 string) (*ports.TUIDiffResult, error) {
	m.DiffCalls = append(m.DiffCalls, [2]string{version1, version2})
	if m.DiffError != nil {
		return nil, m.DiffError
	}
	if m.DiffResult != nil {
		return m.DiffResult, nil
	}
	return &ports.TUIDiffResult{Version1: version1, Version2: version2}, nil
}

// FileDiff returns FileDiffError or FileDiffResult when set, else an empty diff.
func (m *MockTUIService) FileDiff(cfg *config.Config, itemID, version1, version2, path string) (*ports.TUIFileDiff, error) {
	m.FileDiffCalls = append(m.FileDiffCalls, path)
	if m.FileDiffError != nil {
		return nil, m.FileDiffError
	}
	if m.FileDiffResult != nil {
		return m.FileDiffResult, nil
	}
	return &ports.TUIFileDiff{Path: path, Version1: version1, Version2: version2}, nil
}

// Compile-time check that MockTUIService implements ports.TUIService.
var _ ports.TUIService = (*MockTUIService)(nil)
