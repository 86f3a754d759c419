// Package watcher reloads the engine's artifact when its files change on disk.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/crimson-sun/leaf/internal/engine/artifact"
)

// DefaultDebounce is used when Config.Debounce is zero.
const DefaultDebounce = 250 * time.Millisecond

// Loader is the part of the engine the watcher drives.
type Loader interface {
	Load(path string) (artifact.Info, error)
}

// Config configures a Watcher.
type Config struct {
	// Debounce is how long to wait for more changes before reloading.
	Debounce time.Duration

	// Logger for reload events. Default: slog.Default().
	Logger *slog.Logger

	// OnReload, if set, is called after every reload attempt.
	OnReload func(artifact.Info, error)
}

// Watcher watches an artifact manifest and every file it references. Editors
// often replace files by rename, so the containing directories are watched
// and events are filtered by path.
type Watcher struct {
	loader   Loader
	manifest string
	debounce time.Duration
	logger   *slog.Logger
	onReload func(artifact.Info, error)

	fsw *fsnotify.Watcher

	mu    sync.Mutex
	files map[string]bool // absolute paths that trigger a reload
	dirs  map[string]bool
}

// New creates a watcher for the artifact described by info.
func New(l Loader, info artifact.Info, cfg Config) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watcher: %w", err)
	}

	w := &Watcher{
		loader:   l,
		manifest: info.Path,
		debounce: cfg.Debounce,
		logger:   cfg.Logger,
		onReload: cfg.OnReload,
		fsw:      fsw,
		files:    make(map[string]bool),
		dirs:     make(map[string]bool),
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if w.logger == nil {
		w.logger = slog.Default()
	}

	if err := w.track(info.Files); err != nil {
		fsw.Close()
		return nil, err
	}
	return w, nil
}

// Run processes file events until ctx is cancelled, then closes the
// underlying fsnotify watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	w.logger.Info("artifact watcher started", "manifest", w.manifest, "debounce", w.debounce)

	timer := time.NewTimer(w.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.relevant(ev) {
				w.logger.Debug("artifact file changed", "path", ev.Name, "op", ev.Op.String())
				timer.Reset(w.debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)

		case <-timer.C:
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	info, err := w.loader.Load(w.manifest)
	if err != nil {
		w.logger.Error("artifact reload failed, keeping previous artifact", "manifest", w.manifest, "error", err)
	} else {
		w.logger.Info("artifact reloaded", "kind", info.Kind, "version", info.Version)
		if err := w.track(info.Files); err != nil {
			w.logger.Warn("cannot watch new artifact files", "error", err)
		}
	}
	if w.onReload != nil {
		w.onReload(info, err)
	}
}

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
		return false
	}
	abs, err := filepath.Abs(ev.Name)
	if err != nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.files[abs]
}

// track replaces the set of watched files and adds any new directories.
func (w *Watcher) track(files []string) error {
	next := make(map[string]bool, len(files))
	for _, f := range files {
		abs, err := filepath.Abs(f)
		if err != nil {
			return fmt.Errorf("watcher: %w", err)
		}
		next[abs] = true

		dir := filepath.Dir(abs)
		w.mu.Lock()
		seen := w.dirs[dir]
		w.mu.Unlock()
		if seen {
			continue
		}
		if err := w.fsw.Add(dir); err != nil {
			return fmt.Errorf("watcher: watch %s: %w", dir, err)
		}
		w.mu.Lock()
		w.dirs[dir] = true
		w.mu.Unlock()
	}

	w.mu.Lock()
	w.files = next
	w.mu.Unlock()
	return nil
}
