// Package maclaunchd provides a launchd login agent adapter for macOS.
package maclaunchd

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/jmcdonald/savekeep/internal/adapters/aferofs"
	"github.com/jmcdonald/savekeep/internal/ports"
)

// Label identifies the agent to launchctl.
const Label = "com.user.savekeep"

var plistTemplate = template.Must(template.New("plist").Funcs(template.FuncMap{
	"xml": xmlEscape,
}).Parse(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>
    <key>ProgramArguments</key>
    <array>
{{- range .Args}}
        <string>{{xml .}}</string>
{{- end}}
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>StandardOutPath</key>
    <string>{{xml .LogPath}}</string>
    <key>StandardErrorPath</key>
    <string>{{xml .LogPath}}</string>
</dict>
</plist>
`))

type plistConfig struct {
	Label   string
	Args    []string
	LogPath string
}

// Runner executes launchctl. It is replaced in tests.
type Runner func(args ...string) error

func runLaunchctl(args ...string) error {
	return exec.Command("launchctl", args...).Run()
}

// MacLaunchdService implements ports.LaunchdService for macOS.
type MacLaunchdService struct {
	homeDir string
	fs      ports.FileSystem
	run     Runner
}

// New creates a new MacLaunchdService adapter for the current user.
func New() *MacLaunchdService {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return NewWithDeps(home, aferofs.NewOS(), runLaunchctl)
}

// NewWithDeps creates an adapter rooted at homeDir.
func NewWithDeps(homeDir string, fsys ports.FileSystem, run Runner) *MacLaunchdService {
	return &MacLaunchdService{homeDir: homeDir, fs: fsys, run: run}
}

// PlistPath returns the path where the plist file is stored.
func (s *MacLaunchdService) PlistPath() string {
	return filepath.Join(s.homeDir, "Library", "LaunchAgents", Label+".plist")
}

// LogPath returns the path the agent writes its output to.
func (s *MacLaunchdService) LogPath() string {
	return filepath.Join(s.homeDir, ".savekeep", "savekeep.log")
}

// Install writes the plist and loads the agent.
func (s *MacLaunchdService) Install(execPath, configPath string) error {
	binaryPath := execPath
	if binaryPath == "" {
		var err error
		binaryPath, err = exec.LookPath("savekeep")
		if err != nil {
			return fmt.Errorf("savekeep not found in PATH: %w", err)
		}
	}

	logPath := s.LogPath()
	if err := s.fs.MkdirAll(filepath.Dir(logPath), 0755); err != nil {
		return fmt.Errorf("creating log directory: %w", err)
	}

	args := []string{binaryPath, "run", "--auto"}
	if configPath != "" {
		args = append(args, "--config", configPath)
	}
	var buf bytes.Buffer
	if err := plistTemplate.Execute(&buf, plistConfig{Label: Label, Args: args, LogPath: logPath}); err != nil {
		return fmt.Errorf("rendering plist: %w", err)
	}

	plistPath := s.PlistPath()
	if err := s.fs.MkdirAll(filepath.Dir(plistPath), 0755); err != nil {
		return fmt.Errorf("creating LaunchAgents directory: %w", err)
	}
	if s.IsInstalled() {
		// Reinstall: unload the old definition first.
		_ = s.run("unload", plistPath)
	}
	if err := s.fs.WriteFile(plistPath, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("writing plist: %w", err)
	}

	if err := s.run("load", plistPath); err != nil {
		return fmt.Errorf("loading plist: %w", err)
	}
	return nil
}

// Uninstall unloads the agent and removes the plist file.
func (s *MacLaunchdService) Uninstall() error {
	plistPath := s.PlistPath()
	if _, err := s.fs.Stat(plistPath); errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("plist not found: %s", plistPath)
	}

	_ = s.run("unload", plistPath) // not loaded is fine

	if err := s.fs.Remove(plistPath); err != nil {
		return fmt.Errorf("removing plist: %w", err)
	}
	return nil
}

// IsInstalled reports whether the plist file exists.
func (s *MacLaunchdService) IsInstalled() bool {
	_, err := s.fs.Stat(s.PlistPath())
	return err == nil
}

// Status returns "not installed", "loaded" or "not loaded".
func (s *MacLaunchdService) Status() string {
	if !s.IsInstalled() {
		return "not installed"
	}
	if err := s.run("list", Label); err == nil {
		return "loaded"
	}
	return "not loaded"
}

func xmlEscape(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}

// Compile-time check that MacLaunchdService implements ports.LaunchdService.
var _ ports.LaunchdService = (*MacLaunchdService)(nil)
