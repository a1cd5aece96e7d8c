package tuisvc

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/jmcdonald/savekeep/internal/adapters/aferofs"
	"github.com/jmcdonald/savekeep/internal/backup"
	"github.com/jmcdonald/savekeep/internal/config"
	"github.com/jmcdonald/savekeep/internal/pathtmpl"
	"github.com/jmcdonald/savekeep/internal/ports"
	"github.com/jmcdonald/savekeep/internal/recovery"
)

func setup(t *testing.T) (*Service, ports.FileSystem, *config.Config, string) {
	t.Helper()
	fsys := aferofs.NewMemory()
	resolver := pathtmpl.New(func(key string) (string, bool) {
		if key == pathtmpl.UserProfile {
			return "/home/ann", true
		}
		return "", false
	}, pathtmpl.WithSeparator("/"))
	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.Local)
	clock := func() time.Time {
		now = now.Add(time.Minute)
		return now
	}
	b := backup.NewService(fsys, resolver, backup.WithClock(clock))
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	svc := NewWithDeps(configPath, b, recovery.NewService(b, nil), nil)

	cfg := &config.Config{}
	cfg.Backup.Root = "/backups"
	cfg.Retention.KeepLast = 5
	if _, err := cfg.AddItem("Hades", "%USERPROFILE%/saves/hades"); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	if _, err := cfg.AddItem("Ghost", "%USERPROFILE%/saves/ghost"); err != nil {
		t.Fatalf("AddItem failed: %v", err)
	}
	if err := fsys.MkdirAll("/home/ann/saves/hades", 0755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := fsys.WriteFile("/home/ann/saves/hades/slot.sav", []byte("one"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	return svc, fsys, cfg, configPath
}

func TestServiceFlow(t *testing.T) {
	svc, fsys, cfg, configPath := setup(t)
	hades := cfg.Items[0].ID

	result := svc.RunBackup(cfg, hades)
	if result.Error != nil {
		t.Fatalf("RunBackup failed: %v", result.Error)
	}
	if result.Version == "" || result.Size != 3 {
		t.Errorf("RunBackup = %+v", result)
	}
	loaded, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Items[0].Fingerprint == "" {
		t.Error("config should be saved with the new fingerprint")
	}

	items, err := svc.ListItems(cfg)
	if err != nil {
		t.Fatalf("ListItems failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("ListItems = %+v", items)
	}
	if items[0].Versions != 1 || items[0].TotalSize != 3 || items[0].Missing {
		t.Errorf("Hades = %+v", items[0])
	}
	if !items[1].Missing || items[1].Versions != 0 {
		t.Errorf("Ghost = %+v", items[1])
	}

	if err := svc.VerifyBackup(cfg, hades); err != nil {
		t.Errorf("VerifyBackup failed: %v", err)
	}
	if err := svc.VerifyBackup(cfg, cfg.Items[1].ID); err == nil {
		t.Error("VerifyBackup should fail without versions")
	}

	if err := fsys.WriteFile("/home/ann/saves/hades/slot.sav", []byte("two!"), 0644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	diff, err := svc.Diff(cfg, hades, result.Version, ports.LiveVersion)
	if err != nil {
		t.Fatalf("Diff failed: %v", err)
	}
	if diff.Modified != 1 || len(diff.Changes) != 1 || diff.Changes[0].Status != 'M' {
		t.Errorf("Diff = %+v", diff)
	}
	fd, err := svc.FileDiff(cfg, hades, result.Version, ports.LiveVersion, "slot.sav")
	if err != nil {
		t.Fatalf("FileDiff failed: %v", err)
	}
	if len(fd.Lines) != 2 {
		t.Errorf("FileDiff lines = %+v", fd.Lines)
	}

	restored := svc.Restore(cfg, hades, result.Version)
	if restored.Error != nil {
		t.Fatalf("Restore failed: %v", restored.Error)
	}
	if restored.SafetySnapshot == "" || restored.Files != 1 {
		t.Errorf("Restore = %+v", restored)
	}
	data, _ := fsys.ReadFile("/home/ann/saves/hades/slot.sav")
	if string(data) != "one" {
		t.Errorf("slot.sav = %q after restore", data)
	}

	versions, err := svc.ListVersions(cfg, hades)
	if err != nil {
		t.Fatalf("ListVersions failed: %v", err)
	}
	if len(versions) != 2 || versions[0].Name != restored.SafetySnapshot || versions[0].FileCount != 1 {
		t.Errorf("ListVersions = %+v", versions)
	}
}

func TestUnknownItem(t *testing.T) {
	svc, _, cfg, _ := setup(t)
	if r := svc.RunBackup(cfg, "nope"); r.Error == nil {
		t.Error("RunBackup should fail for an unknown item")
	}
	if _, err := svc.ListVersions(cfg, "nope"); err == nil {
		t.Error("ListVersions should fail for an unknown item")
	}
	if r := svc.Restore(cfg, "nope", ""); r.Error == nil {
		t.Error("Restore should fail for an unknown item")
	}
}
