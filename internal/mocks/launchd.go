package mocks

import (
	"github.com/jmcdonald/savekeep/internal/ports"
)

// MockLaunchdService is an in-memory login agent for CLI tests. Install and
// Uninstall flip Installed and StatusResult the way the real agent would.
type MockLaunchdService struct {
	Installed       bool
	StatusResult    string
	PlistPathResult string
	LogPathResult   string

	// InstallCalls records every Install call, including failed ones.
	InstallCalls []InstallCall

	// Errors makes the named method ("Install" or "Uninstall") fail.
	Errors map[string]error
}

// InstallCall holds the arguments of one Install call.
type InstallCall struct {
	ExecPath   string
	ConfigPath string
}

// NewMockLaunchdService returns an agent that is not installed.
func NewMockLaunchdService() *MockLaunchdService {
	return &MockLaunchdService{
		StatusResult:    "not installed",
		PlistPathResult: "/tmp/com.user.savekeep.plist",
		LogPathResult:   "/tmp/savekeep.log",
		Errors:          make(map[string]error),
	}
}

// PlistPath returns PlistPathResult.
func (m *MockLaunchdService) PlistPath() string { return m.PlistPathResult }

// LogPath returns LogPathResult.
func (m *MockLaunchdService) LogPath() string { return m.LogPathResult }

// Install records the call and, unless Errors["Install"] is set, marks the
// agent installed and loaded.
func (m *MockLaunchdService) Install(execPath, configPath string) error {
	m.InstallCalls = append(m.InstallCalls, InstallCall{ExecPath: execPath, ConfigPath: configPath})
	if err := m.Errors["Install"]; err != nil {
		return err
	}
	m.Installed, m.StatusResult = true, "loaded"
	return nil
}

// Uninstall marks the agent removed unless Errors["Uninstall"] is set.
func (m *MockLaunchdService) Uninstall() error {
	if err := m.Errors["Uninstall"]; err != nil {
		return err
	}
	m.Installed, m.StatusResult = false, "not installed"
	return nil
}

// IsInstalled returns Installed.
func (m *MockLaunchdService) IsInstalled() bool { return m.Installed }

// Status returns StatusResult.
func (m *MockLaunchdService) Status() string { return m.StatusResult }

var _ ports.LaunchdService = (*MockLaunchdService)(nil)
