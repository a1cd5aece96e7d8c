package cli

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jmcdonald/savekeep/internal/backup"
	"github.com/jmcdonald/savekeep/internal/config"
	"github.com/jmcdonald/savekeep/internal/mocks"
	"github.com/jmcdonald/savekeep/internal/pathtmpl"
	"github.com/jmcdonald/savekeep/internal/ports"
	"github.com/jmcdonald/savekeep/internal/recovery"
)

// fixture shares services and a config file between CLI invocations, like
// repeated runs of the binary against one machine.
type fixture struct {
	t          *testing.T
	fs         *mocks.MockFileSystem
	backup     *backup.Service
	recovery   *recovery.Service
	launchd    *mocks.MockLaunchdService
	configPath string
	tuiCalls   int
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fsys := mocks.NewMockFileSystem()
	resolver := pathtmpl.New(func(key string) (string, bool) {
		switch key {
		case pathtmpl.UserProfile:
			return "/home/ann", true
		case pathtmpl.SavedGames:
			return "/home/ann/Saved Games", true
		}
		return "", false
	}, pathtmpl.WithSeparator("/"), pathtmpl.WithEnv(func(string) (string, bool) { return "", false }))

	now := time.Date(2026, 10, 19, 9, 0, 0, 0, time.Local)
	clock := func() time.Time {
		now = now.Add(time.Minute)
		return now
	}
	b := backup.NewService(fsys, resolver, backup.WithClock(clock))

	f := &fixture{
		t:          t,
		fs:         fsys,
		backup:     b,
		recovery:   recovery.NewService(b, nil),
		launchd:    mocks.NewMockLaunchdService(),
		configPath: filepath.Join(t.TempDir(), "config.yaml"),
	}

	cfg := &config.Config{}
	cfg.Backup.Root = "/backups"
	cfg.Retention.KeepLast = 3
	cfg.Log.Level = "off"
	if err := cfg.Save(f.configPath); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	f.write("/home/ann/Saved Games/Hades/profile1.sav", "gold=10")
	return f
}

func (f *fixture) write(path, data string) {
	f.t.Helper()
	if err := f.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		f.t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := f.fs.WriteFile(path, []byte(data), 0644); err != nil {
		f.t.Fatalf("WriteFile failed: %v", err)
	}
}

func (f *fixture) read(path string) string {
	f.t.Helper()
	data, err := f.fs.ReadFile(path)
	if err != nil {
		f.t.Fatalf("ReadFile failed: %v", err)
	}
	return string(data)
}

func (f *fixture) cli(args ...string) (*CLI, *bytes.Buffer, *bytes.Buffer) {
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	c := NewForTesting(out, errOut, append([]string{"savekeep", "--config", f.configPath}, args...))
	c.BackupSvc = f.backup
	c.RecoverySvc = f.recovery
	c.LaunchdSvc = f.launchd
	c.RunTUI = func(ports.TUIService) error {
		f.tuiCalls++
		return nil
	}
	c.Executable = func() (string, error) { return "/usr/local/bin/savekeep", nil }
	return c, out, errOut
}

// run executes one command and returns its output.
func (f *fixture) run(args ...string) (string, error) {
	f.t.Helper()
	c, out, _ := f.cli(args...)
	err := c.Execute(context.Background())
	return out.String(), err
}

func (f *fixture) mustRun(args ...string) string {
	f.t.Helper()
	out, err := f.run(args...)
	if err != nil {
		f.t.Fatalf("%v failed: %v\n%s", args, err, out)
	}
	return out
}

func (f *fixture) config() *config.Config {
	f.t.Helper()
	cfg, err := config.Load(f.configPath)
	if err != nil {
		f.t.Fatalf("Load failed: %v", err)
	}
	return cfg
}

func (f *fixture) versions(item string) []string {
	f.t.Helper()
	cfg := f.config()
	it, err := cfg.FindItem(item)
	if err != nil {
		f.t.Fatalf("FindItem failed: %v", err)
	}
	vs, err := f.backup.ListVersions(cfg, it)
	if err != nil {
		f.t.Fatalf("ListVersions failed: %v", err)
	}
	names := make([]string, 0, len(vs))
	for _, v := range vs {
		names = append(names, v.Name)
	}
	return names
}

func TestAddStoresTemplate(t *testing.T) {
	f := newFixture(t)

	out := f.mustRun("add", "Hades", "/home/ann/Saved Games/Hades")

	if !strings.Contains(out, "Added Hades") {
		t.Errorf("output = %q", out)
	}
	cfg := f.config()
	if len(cfg.Items) != 1 {
		t.Fatalf("items = %+v", cfg.Items)
	}
	if cfg.Items[0].SavePath != "%SAVEDGAMES%/Hades" {
		t.Errorf("SavePath = %q, expected %%SAVEDGAMES%%/Hades", cfg.Items[0].SavePath)
	}
	if cfg.Items[0].ID == "" {
		t.Error("item should get an ID")
	}
}

func TestAddKeepsTemplateInput(t *testing.T) {
	f := newFixture(t)
	f.mustRun("add", "Hades", "%USERPROFILE%/Saved Games/Hades")
	if got := f.config().Items[0].SavePath; got != "%USERPROFILE%/Saved Games/Hades" {
		t.Errorf("SavePath = %q, template input must be kept as written", got)
	}
}

func TestAddErrors(t *testing.T) {
	f := newFixture(t)

	if _, err := f.run("add", "Celeste", "/home/ann/nowhere"); !errors.Is(err, backup.ErrSourceMissing) {
		t.Errorf("err = %v, expected ErrSourceMissing", err)
	}
	f.mustRun("add", "Hades", "/home/ann/Saved Games/Hades")
	if _, err := f.run("add", "hades", "/home/ann/Saved Games/Hades"); err == nil {
		t.Error("duplicate name should fail")
	}
	if _, err := f.run("add", "Hades"); err == nil {
		t.Error("missing path argument should fail")
	}
}

func TestRunBacksUpChangedItems(t *testing.T) {
	f := newFixture(t)
	f.mustRun("add", "Hades", "/home/ann/Saved Games/Hades")
	f.write("/home/ann/Saved Games/Celeste/slot.sav", "x")
	f.mustRun("add", "Celeste", "/home/ann/Saved Games/Celeste")
	if err := f.fs.RemoveAll("/home/ann/Saved Games/Celeste"); err != nil {
		t.Fatalf("RemoveAll failed: %v", err)
	}

	out := f.mustRun("run")
	if !strings.Contains(out, "Done: 1 backed up, 1 skipped") {
		t.Errorf("output = %q", out)
	}
	if len(f.versions("Hades")) != 1 {
		t.Errorf("versions = %v, expected 1", f.versions("Hades"))
	}
	cfg := f.config()
	if cfg.Items[0].Fingerprint == "" || cfg.Items[0].LastBackup.IsZero() {
		t.Errorf("item state not saved: %+v", cfg.Items[0])
	}

	// Unchanged folders are skipped.
	out = f.mustRun("run")
	if !strings.Contains(out, "Done: 0 backed up, 2 skipped") {
		t.Errorf("output = %q", out)
	}

	f.write("/home/ann/Saved Games/Hades/profile1.sav", "gold=99")
	out = f.mustRun("run", "hades")
	if !strings.Contains(out, "Done: 1 backed up, 0 skipped") {
		t.Errorf("output = %q", out)
	}
}

func TestRunAutoHonoursConfig(t *testing.T) {
	f := newFixture(t)
	f.mustRun("add", "Hades", "/home/ann/Saved Games/Hades")

	out := f.mustRun("run", "--auto")
	if !strings.Contains(out, "disabled") {
		t.Errorf("output = %q, expected auto backup to be disabled", out)
	}
	if len(f.versions("Hades")) != 0 {
		t.Error("no version expected")
	}

	cfg := f.config()
	cfg.Backup.AutoOnStartup = true
	if err := cfg.Save(f.configPath); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	f.mustRun("run", "--auto")
	if len(f.versions("Hades")) != 1 {
		t.Error("auto backup should create a version")
	}
}

func TestRunReportsFailures(t *testing.T) {
	f := newFixture(t)
	f.mustRun("add", "Hades", "/home/ann/Saved Games/Hades")

	// The clock ticks once per version, so the first backup is 09:01.
	f.fs.FailOn(mocks.OpMkdirAll, "/backups/Hades/20261019_090100", errors.New("disk full"))

	out, err := f.run("run")
	if !errors.Is(err, errBackupFailed) {
		t.Errorf("err = %v, expected errBackupFailed", err)
	}
	if !strings.Contains(out, "1 errors") || !strings.Contains(out, "disk full") {
		t.Errorf("output = %q", out)
	}
}

func TestBackupForce(t *testing.T) {
	f := newFixture(t)
	f.mustRun("add", "Hades", "/home/ann/Saved Games/Hades")

	f.mustRun("backup", "Hades")
	f.mustRun("backup", "Hades")
	if n := len(f.versions("Hades")); n != 1 {
		t.Errorf("versions = %d, unchanged folder should be skipped", n)
	}
	out := f.mustRun("backup", "Hades", "--force")
	if !strings.Contains(out, "forced") {
		t.Errorf("output = %q", out)
	}
	if n := len(f.versions("Hades")); n != 2 {
		t.Errorf("versions = %d, expected 2", n)
	}

	if _, err := f.run("backup", "nope"); !errors.Is(err, config.ErrItemNotFound) {
		t.Errorf("err = %v, expected ErrItemNotFound", err)
	}
}

func TestBackupPrunesToRetention(t *testing.T) {
	f := newFixture(t)
	f.mustRun("add", "Hades", "/home/ann/Saved Games/Hades")
	for i := 0; i < 5; i++ {
		f.mustRun("backup", "Hades", "--force")
	}
	if n := len(f.versions("Hades")); n != 3 {
		t.Errorf("versions = %d, expected retention of 3", n)
	}
}

func TestRestoreLatestWithSafetySnapshot(t *testing.T) {
	f := newFixture(t)
	f.mustRun("add", "Hades", "/home/ann/Saved Games/Hades")
	f.mustRun("backup", "Hades")
	f.write("/home/ann/Saved Games/Hades/profile1.sav", "gold=0")
	f.write("/home/ann/Saved Games/Hades/extra.sav", "junk")

	out := f.mustRun("restore", "Hades")

	if got := f.read("/home/ann/Saved Games/Hades/profile1.sav"); got != "gold=10" {
		t.Errorf("profile1.sav = %q after restore", got)
	}
	if _, err := f.fs.Stat("/home/ann/Saved Games/Hades/extra.sav"); err == nil {
		t.Error("files not in the version should be removed")
	}
	if !strings.Contains(out, "previous saves kept as") {
		t.Errorf("output = %q, expected safety snapshot", out)
	}
	if n := len(f.versions("Hades")); n != 2 {
		t.Errorf("versions = %d, expected original plus safety snapshot", n)
	}
}

func TestRestoreSelectedVersionNoSafety(t *testing.T) {
	f := newFixture(t)
	f.mustRun("add", "Hades", "/home/ann/Saved Games/Hades")
	f.mustRun("backup", "Hades")
	first := f.versions("Hades")[0]
	f.write("/home/ann/Saved Games/Hades/profile1.sav", "gold=20")
	f.mustRun("backup", "Hades")

	out := f.mustRun("restore", "Hades", "--version", first, "--no-safety")

	if !strings.Contains(out, "Restored Hades to "+first) {
		t.Errorf("output = %q", out)
	}
	if got := f.read("/home/ann/Saved Games/Hades/profile1.sav"); got != "gold=10" {
		t.Errorf("profile1.sav = %q", got)
	}
	if n := len(f.versions("Hades")); n != 2 {
		t.Errorf("versions = %d, no safety snapshot expected", n)
	}

	// The saved fingerprint matches the restored folder.
	out = f.mustRun("run", "Hades")
	if !strings.Contains(out, "Done: 0 backed up, 1 skipped") {
		t.Errorf("output = %q", out)
	}
}

func TestRestoreUnknownVersion(t *testing.T) {
	f := newFixture(t)
	f.mustRun("add", "Hades", "/home/ann/Saved Games/Hades")
	f.mustRun("backup", "Hades")

	if _, err := f.run("restore", "Hades", "--version", "20200101_000000"); err == nil {
		t.Error("expected error for unknown version")
	}
	if got := f.read("/home/ann/Saved Games/Hades/profile1.sav"); got != "gold=10" {
		t.Errorf("save folder changed after failed restore: %q", got)
	}
}

func TestVerify(t *testing.T) {
	f := newFixture(t)
	f.mustRun("add", "Hades", "/home/ann/Saved Games/Hades")

	if _, err := f.run("verify", "Hades"); err == nil {
		t.Error("verify without versions should fail")
	}
	f.mustRun("backup", "Hades")
	out := f.mustRun("verify", "Hades")
	if !strings.Contains(out, "verified: 1 files") {
		t.Errorf("output = %q", out)
	}
}

func TestList(t *testing.T) {
	f := newFixture(t)

	out := f.mustRun("list")
	if !strings.Contains(out, "No items") {
		t.Errorf("output = %q", out)
	}

	f.mustRun("add", "Hades", "/home/ann/Saved Games/Hades")
	f.mustRun("backup", "Hades")
	f.mustRun("backup", "Hades", "--force")

	out = f.mustRun("list")
	if !strings.Contains(out, "Hades") || !strings.Contains(out, "%SAVEDGAMES%/Hades") {
		t.Errorf("output = %q", out)
	}

	out = f.mustRun("list", "Hades")
	versions := f.versions("Hades")
	if !strings.Contains(out, "Backups for Hades") {
		t.Errorf("output = %q", out)
	}
	// Newest first.
	if strings.Index(out, versions[0]) > strings.Index(out, versions[1]) {
		t.Errorf("versions not listed newest first:\n%s", out)
	}
	if !strings.Contains(out, "7 B") {
		t.Errorf("output = %q, expected sizes", out)
	}
}

func TestPrune(t *testing.T) {
	f := newFixture(t)
	f.mustRun("add", "Hades", "/home/ann/Saved Games/Hades")
	for i := 0; i < 3; i++ {
		f.mustRun("backup", "Hades", "--force")
	}
	before := f.versions("Hades")

	out := f.mustRun("prune", "Hades", "--keep", "1")
	if !strings.Contains(out, "2 deleted, 1 kept") {
		t.Errorf("output = %q", out)
	}
	after := f.versions("Hades")
	if len(after) != 1 || after[0] != before[0] {
		t.Errorf("versions = %v, expected newest %s", after, before[0])
	}

	if _, err := f.run("prune", "Hades", "--keep", "-1"); err == nil {
		t.Error("negative keep should fail")
	}
}

func TestRemoveKeepsBackups(t *testing.T) {
	f := newFixture(t)
	f.mustRun("add", "Hades", "/home/ann/Saved Games/Hades")
	f.mustRun("backup", "Hades")

	out := f.mustRun("remove", "Hades")
	if !strings.Contains(out, "Removed Hades") {
		t.Errorf("output = %q", out)
	}
	if len(f.config().Items) != 0 {
		t.Error("item should be removed from config")
	}
	if _, err := f.fs.Stat("/backups/Hades"); err != nil {
		t.Error("backups must be kept")
	}
}

func TestResolve(t *testing.T) {
	f := newFixture(t)

	out := f.mustRun("resolve", "%savedgames%/Hades")
	if !strings.Contains(out, "Expanded: /home/ann/Saved Games/Hades") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, "Template: %SAVEDGAMES%/Hades") {
		t.Errorf("output = %q", out)
	}
}

func TestDiff(t *testing.T) {
	f := newFixture(t)
	f.mustRun("add", "Hades", "/home/ann/Saved Games/Hades")
	f.mustRun("backup", "Hades")
	v1 := f.versions("Hades")[0]

	out := f.mustRun("diff", "Hades", v1)
	if !strings.Contains(out, "No differences") {
		t.Errorf("output = %q", out)
	}

	f.write("/home/ann/Saved Games/Hades/profile1.sav", "gold=11")
	f.write("/home/ann/Saved Games/Hades/profile2.sav", "new")
	out = f.mustRun("diff", "Hades", v1)
	if !strings.Contains(out, v1+" vs live") {
		t.Errorf("output = %q", out)
	}
	if !strings.Contains(out, "M profile1.sav") || !strings.Contains(out, "A profile2.sav") {
		t.Errorf("output = %q", out)
	}

	f.mustRun("backup", "Hades")
	v2 := f.versions("Hades")[0]
	out = f.mustRun("diff", "Hades", v2, v1)
	if !strings.Contains(out, "D profile2.sav") || !strings.Contains(out, "Deleted: 1") {
		t.Errorf("output = %q", out)
	}
}

func TestUIRunsStartupBackup(t *testing.T) {
	f := newFixture(t)
	f.mustRun("add", "Hades", "/home/ann/Saved Games/Hades")

	f.mustRun()
	if f.tuiCalls != 1 {
		t.Errorf("tui calls = %d, expected 1", f.tuiCalls)
	}
	if len(f.versions("Hades")) != 0 {
		t.Error("startup backup is disabled in this config")
	}

	cfg := f.config()
	cfg.Backup.AutoOnStartup = true
	if err := cfg.Save(f.configPath); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	out := f.mustRun("ui")
	if f.tuiCalls != 2 {
		t.Errorf("tui calls = %d, expected 2", f.tuiCalls)
	}
	if !strings.Contains(out, "Done: 1 backed up") || len(f.versions("Hades")) != 1 {
		t.Errorf("startup backup did not run: %q", out)
	}
}

func TestInstallUninstallStatus(t *testing.T) {
	f := newFixture(t)

	out := f.mustRun("status")
	if !strings.Contains(out, "not installed") || !strings.Contains(out, "/backups") {
		t.Errorf("output = %q", out)
	}

	if _, err := f.run("uninstall"); err == nil {
		t.Error("uninstall without agent should fail")
	}

	out = f.mustRun("install")
	if !strings.Contains(out, "Installed login agent") {
		t.Errorf("output = %q", out)
	}
	if len(f.launchd.InstallCalls) != 1 {
		t.Fatalf("Install calls = %v", f.launchd.InstallCalls)
	}
	call := f.launchd.InstallCalls[0]
	if call.ExecPath != "/usr/local/bin/savekeep" || call.ConfigPath != f.configPath {
		t.Errorf("Install call = %+v", call)
	}

	out = f.mustRun("status")
	if !strings.Contains(out, "installed & loaded") {
		t.Errorf("output = %q", out)
	}

	f.mustRun("uninstall")
	if f.launchd.Installed {
		t.Error("agent should be uninstalled")
	}
}

func TestInstallError(t *testing.T) {
	f := newFixture(t)
	f.launchd.Errors["Install"] = errors.New("launchctl failed")

	if _, err := f.run("install"); err == nil || !strings.Contains(err.Error(), "launchctl failed") {
		t.Errorf("err = %v", err)
	}
}

func TestInit(t *testing.T) {
	f := newFixture(t)
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	f.configPath = path

	out := f.mustRun("init")
	if !strings.Contains(out, "Created config at "+path) {
		t.Errorf("output = %q", out)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("config not written: %v", err)
	}
	cfg := f.config()
	if cfg.Retention.KeepLast != 2 || !cfg.Backup.AutoOnStartup {
		t.Errorf("defaults not written: %+v", cfg)
	}

	if _, err := f.run("init"); err == nil {
		t.Error("init over an existing config should fail")
	}
	f.mustRun("init", "--force")
}

func TestVersion(t *testing.T) {
	f := newFixture(t)
	out := f.mustRun("version")
	if strings.TrimSpace(out) != "savekeep vtest" {
		t.Errorf("output = %q", out)
	}
}

func TestUnknownCommandExits(t *testing.T) {
	f := newFixture(t)
	c, _, errOut := f.cli("frobnicate")
	code := 0
	c.Exit = func(c int) { code = c }

	c.Run(context.Background())

	if code != 1 {
		t.Errorf("exit code = %d, expected 1", code)
	}
	if !strings.Contains(errOut.String(), "unknown command") {
		t.Errorf("stderr = %q", errOut.String())
	}
}

func TestWatchStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	f.mustRun("add", "Hades", "/home/ann/Saved Games/Hades")

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	c, out, _ := f.cli("watch", "--quiet", "50ms")
	if err := c.Execute(ctx); err != nil {
		t.Fatalf("watch failed: %v", err)
	}
	if !strings.Contains(out.String(), "Watching 1 save folders") {
		t.Errorf("output = %q", out.String())
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("6f1c2a9e-1111-2222"); got != "6f1c2a9e" {
		t.Errorf("shortID = %q", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID = %q", got)
	}
}
