package ports

// LaunchdService abstracts the macOS login agent that runs an automatic
// backup when the user logs in.
// Production code uses the maclaunchd adapter; tests use MockLaunchdService.
type LaunchdService interface {
	// PlistPath returns the path where the plist file is stored.
	PlistPath() string

	// LogPath returns the path the agent writes its output to.
	LogPath() string

	// Install writes the plist and loads the agent. configPath is passed to
	// the agent when not empty.
	Install(execPath, configPath string) error

	// Uninstall unloads the agent and removes the plist file.
	Uninstall() error

	// IsInstalled reports whether the plist file exists.
	IsInstalled() bool

	// Status returns "not installed", "loaded" or "not loaded".
	Status() string
}
