// Package watch triggers backups when save folders change on disk.
//
// Events are grouped per item and an item is handed to the handler once its
// folder has been quiet for the configured period. A single worker runs the
// handler, so at most one backup is in progress at a time.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/hashicorp/go-hclog"

	"github.com/jmcdonald/savekeep/internal/ports"
)

// DefaultQuietPeriod is how long a folder must stay unchanged before a
// backup is triggered.
const DefaultQuietPeriod = 10 * time.Second

// Target is a save folder to watch.
type Target struct {
	ID  string
	Dir string
}

// Handler is called from the worker goroutine with the ID of a changed item.
type Handler func(ctx context.Context, id string)

// Watcher watches a set of save folders.
type Watcher struct {
	fs      ports.FileSystem
	fsw     *fsnotify.Watcher
	targets []Target
	handler Handler
	quiet   time.Duration
	exclude []string
	logger  hclog.Logger

	mu     sync.Mutex
	queued map[string]bool
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithQuietPeriod sets the debounce period.
func WithQuietPeriod(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.quiet = d
		}
	}
}

// WithExclude ignores changes below the given directories, typically a
// backup root that lives inside a save folder.
func WithExclude(dirs ...string) Option {
	return func(w *Watcher) {
		for _, d := range dirs {
			if d != "" {
				w.exclude = append(w.exclude, filepath.Clean(d))
			}
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l hclog.Logger) Option {
	return func(w *Watcher) {
		if l != nil {
			w.logger = l
		}
	}
}

// New creates a Watcher. fsys is used to enumerate directories to register
// with the OS notifier.
func New(fsys ports.FileSystem, targets []Target, handler Handler, opts ...Option) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{
		fs:      fsys,
		fsw:     fsw,
		handler: handler,
		quiet:   DefaultQuietPeriod,
		logger:  hclog.NewNullLogger(),
		queued:  make(map[string]bool),
	}
	for _, t := range targets {
		if t.Dir != "" {
			w.targets = append(w.targets, Target{ID: t.ID, Dir: filepath.Clean(t.Dir)})
		}
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Run watches until ctx is canceled. Folders that do not exist are
// skipped. A backup that is already running when ctx is canceled completes;
// pending ones are dropped.
func (w *Watcher) Run(ctx context.Context) error {
	defer func() { _ = w.fsw.Close() }()

	watched := 0
	for _, t := range w.targets {
		if err := w.addRecursive(t.Dir); err != nil {
			w.logger.Warn("not watching folder", "id", t.ID, "dir", t.Dir, "error", err)
			continue
		}
		watched++
	}
	w.logger.Info("watching save folders", "count", watched, "quiet", w.quiet)

	work := make(chan string, len(w.targets))
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for id := range work {
			w.setQueued(id, false)
			if ctx.Err() != nil {
				continue
			}
			w.handler(ctx, id)
		}
	}()
	defer func() {
		close(work)
		wg.Wait()
	}()

	tick := w.quiet / 4
	if tick < 10*time.Millisecond {
		tick = 10 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	deb := newDebouncer(w.quiet)
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("watcher stopped")
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			id := w.match(event.Name)
			if id == "" {
				continue
			}
			if event.Has(fsnotify.Create) {
				if info, err := w.fs.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(event.Name); err != nil {
						w.logger.Debug("watching new folder", "dir", event.Name, "error", err)
					}
				}
			}
			w.logger.Trace("change", "id", id, "path", event.Name, "op", event.Op.String())
			deb.touch(id, time.Now())
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("watcher error", "error", err)
		case now := <-ticker.C:
			for _, id := range deb.due(now) {
				if w.isQueued(id) {
					continue
				}
				w.setQueued(id, true)
				work <- id
			}
		}
	}
}

func (w *Watcher) addRecursive(root string) error {
	info, err := w.fs.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return &os.PathError{Op: "watch", Path: root, Err: os.ErrInvalid}
	}
	return w.fs.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !info.IsDir() {
			return nil
		}
		if w.excluded(path) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// match returns the ID of the target containing path, preferring the
// deepest folder when targets are nested.
func (w *Watcher) match(path string) string {
	path = filepath.Clean(path)
	if w.excluded(path) {
		return ""
	}
	best, bestLen := "", -1
	for _, t := range w.targets {
		if within(path, t.Dir) && len(t.Dir) > bestLen {
			best, bestLen = t.ID, len(t.Dir)
		}
	}
	return best
}

func (w *Watcher) excluded(path string) bool {
	for _, ex := range w.exclude {
		if within(path, ex) {
			return true
		}
	}
	return false
}

func (w *Watcher) isQueued(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.queued[id]
}

func (w *Watcher) setQueued(id string, v bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if v {
		w.queued[id] = true
	} else {
		delete(w.queued, id)
	}
}

func within(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// debouncer tracks the last change per item.
type debouncer struct {
	quiet time.Duration
	last  map[string]time.Time
}

func newDebouncer(quiet time.Duration) *debouncer {
	return &debouncer{quiet: quiet, last: make(map[string]time.Time)}
}

func (d *debouncer) touch(id string, at time.Time) {
	d.last[id] = at
}

// due returns, in sorted order, the items quiet since at least d.quiet and
// forgets them.
func (d *debouncer) due(now time.Time) []string {
	var ids []string
	for id, at := range d.last {
		if now.Sub(at) >= d.quiet {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	for _, id := range ids {
		delete(d.last, id)
	}
	return ids
}
