package backup

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"

	"github.com/jmcdonald/savekeep/internal/adapters/aferofs"
	"github.com/jmcdonald/savekeep/internal/compare"
	"github.com/jmcdonald/savekeep/internal/config"
	"github.com/jmcdonald/savekeep/internal/pathtmpl"
	"github.com/jmcdonald/savekeep/internal/ports"
	"github.com/jmcdonald/savekeep/internal/snapshot"
)

// ErrSourceMissing reports an item whose save folder does not exist.
var ErrSourceMissing = errors.New("save folder not found")

// BackupResult reports the outcome of backing up one item.
type BackupResult struct {
	ItemID    string
	Item      string
	Source    string
	Version   string
	Path      string
	Size      int64
	FileCount int
	Warnings  []snapshot.Skip
	Pruned    []string
	Skipped   bool
	Reason    string
	Error     error
}

// Service backs up configured items through the snapshot engine.
type Service struct {
	fs       ports.FileSystem
	engine   *snapshot.Engine
	comparer *compare.Comparer
	resolver *pathtmpl.Resolver
	logger   hclog.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger used by the service and its engine.
func WithLogger(l hclog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithClock replaces time.Now for version names and LastBackup stamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// NewService creates a backup service with the given dependencies.
func NewService(fsys ports.FileSystem, resolver *pathtmpl.Resolver, opts ...Option) *Service {
	s := &Service{
		fs:       fsys,
		resolver: resolver,
		logger:   hclog.NewNullLogger(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.engine = snapshot.New(fsys,
		snapshot.WithLogger(s.logger.Named("snapshot")),
		snapshot.WithClock(s.now))
	s.comparer = compare.New(fsys)
	return s
}

// NewDefaultService creates a backup service over the real filesystem and
// the current user's folders.
func NewDefaultService(logger hclog.Logger) *Service {
	return NewService(aferofs.NewOS(), pathtmpl.NewDefault(), WithLogger(logger))
}

// Engine returns the underlying snapshot engine.
func (s *Service) Engine() *snapshot.Engine {
	return s.engine
}

// FileSystem returns the filesystem the service works on.
func (s *Service) FileSystem() ports.FileSystem {
	return s.fs
}

// Resolver returns the path template resolver.
func (s *Service) Resolver() *pathtmpl.Resolver {
	return s.resolver
}

// BackupRoot expands the configured backup root. It may use "~" and the
// same tokens as save paths.
func (s *Service) BackupRoot(cfg *config.Config) string {
	return s.resolver.Expand(cfg.Backup.Root)
}

// ResolveSource expands the item's save path and checks that it is an
// existing directory.
func (s *Service) ResolveSource(item *config.Item) (string, error) {
	dir := s.resolver.Expand(item.SavePath)
	if dir == "" {
		return "", fmt.Errorf("item %q has no save path", item.Name)
	}
	info, err := s.fs.Stat(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return dir, fmt.Errorf("%w: %s", ErrSourceMissing, dir)
		}
		return dir, fmt.Errorf("checking save folder: %w", err)
	}
	if !info.IsDir() {
		return dir, fmt.Errorf("save path is not a folder: %s", dir)
	}
	return dir, nil
}

// NormalizeSavePath turns user input into the form stored in the config.
// Input containing '%' is kept as a template; anything else is rewritten
// relative to the best matching well-known folder. The expanded folder must
// exist. It returns the stored form and the expanded directory.
func (s *Service) NormalizeSavePath(input string) (string, string, error) {
	input = strings.TrimSpace(input)
	if input == "" {
		return "", "", errors.New("save path is empty")
	}
	stored := input
	if !pathtmpl.IsTemplate(input) {
		stored = s.resolver.ToBestTemplate(s.resolver.Expand(input))
	}
	dir, err := s.ResolveSource(&config.Item{Name: input, SavePath: stored})
	if err != nil {
		return "", "", err
	}
	return stored, dir, nil
}

// BackupItem snapshots a single item. Unless force is set the snapshot is
// skipped when the save folder is unchanged. On return item.Fingerprint
// holds the latest fingerprint and item.LastBackup is set if a version was
// created; the caller persists the config. Old versions are pruned after
// every created backup.
func (s *Service) BackupItem(cfg *config.Config, item *config.Item, force bool) BackupResult {
	result := BackupResult{ItemID: item.ID, Item: item.Name}

	source, err := s.ResolveSource(item)
	result.Source = source
	if err != nil {
		result.Error = err
		return result
	}
	root := s.BackupRoot(cfg)

	var snap *snapshot.Snapshot
	if force {
		snap, err = s.engine.CreateSnapshot(source, root, item.Name)
		if err != nil {
			result.Error = fmt.Errorf("creating snapshot: %w", err)
			return result
		}
		result.Reason = "forced"
		if fp, err := s.engine.ComputeFingerprint(source, root); err == nil {
			item.Fingerprint = fp.String()
		} else {
			item.Fingerprint = ""
		}
	} else {
		res, err := s.engine.CreateIfChanged(snapshot.Item{
			Name:        item.Name,
			SourceDir:   source,
			Fingerprint: item.Fingerprint,
		}, root)
		if err != nil {
			result.Error = fmt.Errorf("creating snapshot: %w", err)
			return result
		}
		item.Fingerprint = res.Fingerprint
		result.Reason = res.Reason
		if !res.Created {
			result.Skipped = true
			return result
		}
		snap = res.Snapshot
	}

	item.LastBackup = s.now()
	result.Version = snap.Name
	result.Path = snap.Path
	result.Size = snap.Bytes
	result.FileCount = snap.Files
	result.Warnings = snap.Skipped

	pruned, err := s.engine.Prune(item.Name, root, cfg.Retention.KeepLast)
	if err != nil {
		s.logger.Warn("prune failed", "item", item.Name, "error", err)
	}
	result.Pruned = pruned.Deleted
	return result
}

// RunBackup backs up every configured item, one after another. Items whose
// save folder is missing are skipped. A failing item is reported in its
// result and does not stop the others.
func (s *Service) RunBackup(cfg *config.Config) []BackupResult {
	results := make([]BackupResult, 0, len(cfg.Items))
	for i := range cfg.Items {
		item := &cfg.Items[i]
		result := s.BackupItem(cfg, item, false)
		if errors.Is(result.Error, ErrSourceMissing) {
			result.Skipped = true
			result.Reason = result.Error.Error()
			result.Error = nil
		}
		if result.Error != nil {
			s.logger.Error("backup failed", "item", item.Name, "error", result.Error)
		}
		results = append(results, result)
	}
	return results
}

// Prune applies the configured retention to an item.
func (s *Service) Prune(cfg *config.Config, item *config.Item, keep int) (snapshot.PruneResult, error) {
	return s.engine.Prune(item.Name, s.BackupRoot(cfg), keep)
}

// ListVersions returns an item's versions, newest first.
func (s *Service) ListVersions(cfg *config.Config, item *config.Item) ([]snapshot.Version, error) {
	return s.engine.ListVersions(item.Name, s.BackupRoot(cfg))
}

// Summary counts the outcomes of a batch.
type Summary struct {
	BackedUp int
	Skipped  int
	Failed   int
	Bytes    int64
}

// Summarize counts results and joins every failure into one error.
func Summarize(results []BackupResult) (Summary, error) {
	var sum Summary
	var errs *multierror.Error
	for _, r := range results {
		switch {
		case r.Error != nil:
			sum.Failed++
			errs = multierror.Append(errs, fmt.Errorf("%s: %w", r.Item, r.Error))
		case r.Skipped:
			sum.Skipped++
		default:
			sum.BackedUp++
			sum.Bytes += r.Size
		}
	}
	return sum, errs.ErrorOrNil()
}

// FormatSize formats bytes as human-readable
func FormatSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
