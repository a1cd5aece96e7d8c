//go:build windows

package pathtmpl

import (
	"golang.org/x/sys/windows"
)

var knownFolders = map[string]*windows.KNOWNFOLDERID{
	SavedGames:   windows.FOLDERID_SavedGames,
	Documents:    windows.FOLDERID_Documents,
	AppData:      windows.FOLDERID_RoamingAppData,
	LocalAppData: windows.FOLDERID_LocalAppData,
	UserProfile:  windows.FOLDERID_Profile,
}

// PlatformFolders resolves tokens through the Windows Known Folder API.
func PlatformFolders() FolderLookup {
	return func(key string) (string, bool) {
		id, ok := knownFolders[key]
		if !ok {
			return "", false
		}
		path, err := windows.KnownFolderPath(id, windows.KF_FLAG_DEFAULT)
		if err != nil || path == "" {
			return "", false
		}
		return path, true
	}
}
