// Package watch triggers rebuilds when the site's sources change. It
// watches the configured directories recursively, coalesces bursts of
// filesystem events into one rebuild per quiet window, and can additionally
// rebuild on a fixed schedule. Builds run serialized on the watch loop; the
// builder is not safe for concurrent runs.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-co-op/gocron/v2"

	"github.com/mogelbrod/kirby-staticbuilder/internal/logfields"
	"github.com/mogelbrod/kirby-staticbuilder/internal/metrics"
)

// RunFunc executes one full rebuild. The trigger is "initial", "change" or
// "schedule".
type RunFunc func(trigger string) error

// Config controls what is watched and how often rebuilds may fire.
type Config struct {
	// Dirs are watched recursively.
	Dirs []string

	// Files are watched individually, through their parent directory.
	Files []string

	// Ignore drops events below these path prefixes, typically the
	// output root.
	Ignore []string

	// Debounce is the quiet window after the last event before a
	// rebuild starts.
	Debounce time.Duration

	// Every adds a periodic full rebuild when positive.
	Every time.Duration

	Logger   *slog.Logger
	Recorder metrics.Recorder
}

// Watcher owns the filesystem watcher and the optional schedule.
type Watcher struct {
	cfg   Config
	run   RunFunc
	fsw   *fsnotify.Watcher
	sched gocron.Scheduler
	kicks chan string
	files map[string]bool
}

// New prepares a watcher. Run starts it.
func New(cfg Config, run RunFunc) (*Watcher, error) {
	if cfg.Debounce <= 0 {
		cfg.Debounce = 500 * time.Millisecond
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Recorder == nil {
		cfg.Recorder = metrics.NoopRecorder{}
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	w := &Watcher{
		cfg:   cfg,
		run:   run,
		fsw:   fsw,
		kicks: make(chan string, 1),
		files: make(map[string]bool),
	}

	if cfg.Every > 0 {
		sched, err := gocron.NewScheduler()
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("creating scheduler: %w", err)
		}
		_, err = sched.NewJob(
			gocron.DurationJob(cfg.Every),
			gocron.NewTask(func() { w.kick("schedule") }),
			gocron.WithName("periodic-rebuild"),
		)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("scheduling periodic rebuild: %w", err)
		}
		w.sched = sched
	}
	return w, nil
}

// Run performs the initial build and then blocks, rebuilding on changes,
// until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()
	if err := w.addWatches(); err != nil {
		return err
	}
	w.build("initial")

	if w.sched != nil {
		w.sched.Start()
		defer func() { _ = w.sched.Shutdown() }()
	}

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()
	pending := false

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !relevantOp(ev.Op) || !w.relevantPath(ev.Name) {
				continue
			}
			if ev.Op.Has(fsnotify.Create) {
				w.maybeWatchNewDir(ev.Name)
			}
			w.cfg.Logger.Debug("change detected", logfields.Path(ev.Name))
			pending = true
			timer.Reset(w.cfg.Debounce)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.cfg.Logger.Warn("watch error", logfields.Error(err))
		case <-timer.C:
			if pending {
				pending = false
				w.build("change")
			}
		case trigger := <-w.kicks:
			w.build(trigger)
		}
	}
}

func (w *Watcher) build(trigger string) {
	w.cfg.Recorder.IncRebuild(trigger)
	w.cfg.Logger.Info("rebuild", slog.String("trigger", trigger))
	if err := w.run(trigger); err != nil {
		// Watch mode outlives failed builds; the next change retries.
		w.cfg.Logger.Error("rebuild failed", logfields.Error(err))
	}
}

func (w *Watcher) kick(trigger string) {
	select {
	case w.kicks <- trigger:
	default:
	}
}

func (w *Watcher) addWatches() error {
	for _, dir := range w.cfg.Dirs {
		if _, err := os.Stat(dir); err != nil {
			w.cfg.Logger.Warn("watch path missing", logfields.Path(dir))
			continue
		}
		if err := w.watchRecursive(dir); err != nil {
			return err
		}
	}
	for _, f := range w.cfg.Files {
		abs, err := filepath.Abs(f)
		if err != nil {
			continue
		}
		w.files[abs] = true
		if err := w.fsw.Add(filepath.Dir(abs)); err != nil {
			w.cfg.Logger.Warn("cannot watch", logfields.Path(abs), logfields.Error(err))
		}
	}
	return nil
}

func (w *Watcher) watchRecursive(root string) error {
	return filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if name := d.Name(); strings.HasPrefix(name, ".") && p != root {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			return fmt.Errorf("watching %s: %w", p, err)
		}
		return nil
	})
}

// maybeWatchNewDir extends the watch into directories created below a
// watched root. fsnotify itself is not recursive.
func (w *Watcher) maybeWatchNewDir(p string) {
	info, err := os.Stat(p)
	if err != nil || !info.IsDir() {
		return
	}
	if err := w.watchRecursive(p); err != nil {
		w.cfg.Logger.Warn("cannot watch new directory", logfields.Path(p), logfields.Error(err))
	}
}

func relevantOp(op fsnotify.Op) bool {
	return op.Has(fsnotify.Create) || op.Has(fsnotify.Write) ||
		op.Has(fsnotify.Remove) || op.Has(fsnotify.Rename)
}

// relevantPath filters events down to the watched scope: not ignored, not
// hidden, and either a watched file or inside a watched directory.
func (w *Watcher) relevantPath(p string) bool {
	abs, err := filepath.Abs(p)
	if err != nil {
		return false
	}
	for _, ig := range w.cfg.Ignore {
		if underDir(ig, abs) {
			return false
		}
	}
	if strings.HasPrefix(filepath.Base(abs), ".") {
		return false
	}
	if w.files[abs] {
		return true
	}
	for _, dir := range w.cfg.Dirs {
		if underDir(dir, abs) {
			return true
		}
	}
	return false
}

func underDir(dir, p string) bool {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return false
	}
	return p == dir || strings.HasPrefix(p, dir+string(filepath.Separator))
}
