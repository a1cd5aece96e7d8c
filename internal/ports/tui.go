package ports

import (
	"time"

	"github.com/jmcdonald/savekeep/internal/config"
)

// TUIItemInfo contains item metadata for display.
type TUIItemInfo struct {
	ID         string
	Name       string
	SavePath   string // as stored, possibly a template
	Dir        string // expanded save folder
	Missing    bool   // save folder does not exist
	Versions   int
	LastBackup time.Time
	TotalSize  int64
}

// TUIVersionInfo contains version metadata for display.
type TUIVersionInfo struct {
	Name      string
	Size      int64
	FileCount int
	CreatedAt time.Time
}

// TUIBackupResult contains the result of a backup operation.
type TUIBackupResult struct {
	Version string
	Size    int64
	Error   error
	Skipped bool
	Reason  string
}

// TUIRestoreResult contains the result of a restore operation.
type TUIRestoreResult struct {
	Version        string
	SafetySnapshot string
	Files          int
	Skipped        int
	Error          error
}

// TUIFileChange is one changed file between two versions.
type TUIFileChange struct {
	Path   string
	Status rune // 'M' modified, 'A' added, 'D' deleted
}

// TUIDiffResult lists the changed files between two versions.
type TUIDiffResult struct {
	Version1 string
	Version2 string
	Changes  []TUIFileChange
	Added    int
	Modified int
	Deleted  int
}

// TUIDiffLine is a single line of a file diff.
type TUIDiffLine struct {
	LineNum1 int
	LineNum2 int
	Type     rune // '+', '-' or ' '
	Content  string
}

// TUIFileDiff is the line diff of one file.
type TUIFileDiff struct {
	Path     string
	Version1 string
	Version2 string
	Lines    []TUIDiffLine
	IsBinary bool
}

// LiveVersion names the current contents of a save folder in diffs.
const LiveVersion = "live"

// TUIService provides operations needed by the TUI.
// This abstraction allows the TUI to be tested without real filesystem/backup operations.
// Items are addressed by ID.
type TUIService interface {
	// LoadConfig loads the application configuration.
	LoadConfig() (*config.Config, error)

	// ListItems returns all items with their metadata.
	ListItems(cfg *config.Config) ([]TUIItemInfo, error)

	// ListVersions returns all versions of an item, newest first.
	ListVersions(cfg *config.Config, itemID string) ([]TUIVersionInfo, error)

	// RunBackup takes a snapshot of the item now, even if unchanged.
	RunBackup(cfg *config.Config, itemID string) TUIBackupResult

	// VerifyBackup checks that the latest version of an item is readable
	// and not empty.
	VerifyBackup(cfg *config.Config, itemID string) error

	// Restore restores a version onto the item's save folder after taking
	// a safety snapshot.
	Restore(cfg *config.Config, itemID, version string) TUIRestoreResult

	// Diff compares two versions. LiveVersion compares against the save folder.
	Diff(cfg *config.Config, itemID, version1, version2 string) (*TUIDiffResult, error)

	// FileDiff returns the line diff of one file between two versions.
	FileDiff(cfg *config.Config, itemID, version1, version2, path string) (*TUIFileDiff, error)
}
