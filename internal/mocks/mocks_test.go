package mocks

import (
	"errors"
	"os"
	"sort"
	"testing"
)

func TestMockFileSystem(t *testing.T) {
	mockFS := NewMockFileSystem()

	// Test WriteFile and ReadFile
	if err := mockFS.MkdirAll("/test", 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := mockFS.WriteFile("/test/file.txt", []byte("hello"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	content, err := mockFS.ReadFile("/test/file.txt")
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(content) != "hello" {
		t.Errorf("content = %q, expected %q", string(content), "hello")
	}

	// Test Stat after WriteFile
	info, err := mockFS.Stat("/test/file.txt")
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Size() != 5 {
		t.Errorf("size = %d, expected 5", info.Size())
	}

	// Test ReadFile for non-existent file
	if _, err := mockFS.ReadFile("/nonexistent"); err == nil {
		t.Error("ReadFile should fail for non-existent file")
	}
}

func TestMockFileSystemFailOn(t *testing.T) {
	mockFS := NewMockFileSystem()
	diskFull := errors.New("disk full")
	mockFS.FailOn(OpMkdirAll, "/backups/game/v1/", diskFull)
	mockFS.FailOn(OpOpen, "/saves/slot.sav", os.ErrPermission)

	if err := mockFS.MkdirAll("/backups/game/v1", 0755); !errors.Is(err, diskFull) {
		t.Errorf("MkdirAll err = %v, expected disk full", err)
	}
	if err := mockFS.MkdirAll("/backups/game/v2", 0755); err != nil {
		t.Errorf("MkdirAll on another path failed: %v", err)
	}

	_ = mockFS.MkdirAll("/saves", 0755)
	_ = mockFS.WriteFile("/saves/slot.sav", []byte("x"), 0644)
	if _, err := mockFS.Open("/saves/slot.sav"); !errors.Is(err, os.ErrPermission) {
		t.Errorf("Open err = %v, expected permission error", err)
	}
	// Other operations on the same path still work.
	if _, err := mockFS.ReadFile("/saves/slot.sav"); err != nil {
		t.Errorf("ReadFile failed: %v", err)
	}

	if len(mockFS.Calls) == 0 || mockFS.Calls[0] != "MkdirAll:/backups/game/v1" {
		t.Errorf("Calls = %v", mockFS.Calls)
	}
}

func TestMockFileSystemWalk(t *testing.T) {
	mockFS := NewMockFileSystem()
	_ = mockFS.MkdirAll("/root/a", 0755)
	_ = mockFS.MkdirAll("/root/b", 0755)
	_ = mockFS.WriteFile("/root/a/one.sav", []byte("1"), 0644)
	_ = mockFS.WriteFile("/root/b/two.sav", []byte("2"), 0644)
	_ = mockFS.WriteFile("/root/three.sav", []byte("3"), 0644)

	unreadable := errors.New("unreadable")
	mockFS.FailOn(OpWalk, "/root/b", unreadable)
	mockFS.FailOn(OpWalk, "/root/three.sav", unreadable)

	var files []string
	failed := map[string]error{}
	err := mockFS.Walk("/root", func(path string, info os.FileInfo, err error) error {
		if err != nil {
			failed[path] = err
			return nil
		}
		if !info.IsDir() {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Walk failed: %v", err)
	}

	sort.Strings(files)
	if len(files) != 1 || files[0] != "/root/a/one.sav" {
		t.Errorf("files = %v, expected only /root/a/one.sav", files)
	}
	if len(failed) != 2 || failed["/root/b"] != unreadable || failed["/root/three.sav"] != unreadable {
		t.Errorf("failed = %v", failed)
	}
}

func TestMockLaunchdService(t *testing.T) {
	launchd := NewMockLaunchdService()

	// Test initial state
	if launchd.IsInstalled() {
		t.Error("Should not be installed initially")
	}
	if launchd.Status() != "not installed" {
		t.Errorf("Status = %q, expected %q", launchd.Status(), "not installed")
	}

	// Test Install
	if err := launchd.Install("/usr/local/bin/savekeep", "/config.yaml"); err != nil {
		t.Fatalf("Install failed: %v", err)
	}
	if !launchd.IsInstalled() {
		t.Error("Should be installed after Install()")
	}
	if launchd.Status() != "loaded" {
		t.Errorf("Status = %q, expected %q", launchd.Status(), "loaded")
	}
	if len(launchd.InstallCalls) != 1 || launchd.InstallCalls[0].ConfigPath != "/config.yaml" {
		t.Errorf("InstallCalls = %v", launchd.InstallCalls)
	}

	// Test Uninstall
	if err := launchd.Uninstall(); err != nil {
		t.Fatalf("Uninstall failed: %v", err)
	}
	if launchd.IsInstalled() {
		t.Error("Should not be installed after Uninstall()")
	}

	// Test error injection
	launchd.Errors["Install"] = errors.New("permission denied")
	err := launchd.Install("/path", "")
	if err == nil || err.Error() != "permission denied" {
		t.Errorf("Expected 'permission denied' error, got: %v", err)
	}
	if launchd.IsInstalled() {
		t.Error("failed Install must not mark the agent installed")
	}
}

func TestMockTUIServiceDefaults(t *testing.T) {
	svc := NewMockTUIService()

	cfg, err := svc.LoadConfig()
	if err != nil || cfg == nil {
		t.Fatalf("LoadConfig = %v, %v", cfg, err)
	}
	if r := svc.RunBackup(cfg, "a"); r.Error != nil || r.Version == "" {
		t.Errorf("RunBackup = %+v", r)
	}
	if r := svc.Restore(cfg, "a", "v1"); r.Version != "v1" || r.Error != nil {
		t.Errorf("Restore = %+v", r)
	}
	d, err := svc.Diff(cfg, "a", "v1", "live")
	if err != nil || d.Version1 != "v1" || d.Version2 != "live" {
		t.Errorf("Diff = %+v, %v", d, err)
	}
	if len(svc.RunBackupCalls) != 1 || len(svc.RestoreCalls) != 1 || len(svc.DiffCalls) != 1 {
		t.Error("calls should be recorded")
	}

	svc.VerifyErrors["a"] = errors.New("empty")
	if err := svc.VerifyBackup(cfg, "a"); err == nil {
		t.Error("VerifyBackup should return the configured error")
	}
}
