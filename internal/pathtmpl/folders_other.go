//go:build !windows

package pathtmpl

import (
	"os"
	"path/filepath"
)

// PlatformFolders resolves tokens to their closest equivalents on Unix-like
// systems. There is no Saved Games folder outside Windows.
func PlatformFolders() FolderLookup {
	return func(key string) (string, bool) {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", false
		}
		switch key {
		case UserProfile:
			return home, true
		case Documents:
			if dir := os.Getenv("XDG_DOCUMENTS_DIR"); dir != "" {
				return dir, true
			}
			return filepath.Join(home, "Documents"), true
		case AppData:
			dir, err := os.UserConfigDir()
			return dir, err == nil
		case LocalAppData:
			if dir := os.Getenv("XDG_DATA_HOME"); dir != "" {
				return dir, true
			}
			return filepath.Join(home, ".local", "share"), true
		}
		return "", false
	}
}
