package registry

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatcherConfig contains configuration for the rule pack watcher.
type WatcherConfig struct {
	// Path is the rule pack file or directory to watch.
	Path string

	// DebounceInterval is the quiet period after the last relevant event
	// before the change callback runs.
	DebounceInterval time.Duration

	// Extensions lists the document extensions that trigger a reload.
	Extensions []string

	// SkipHidden ignores files and directories whose name starts with ".".
	SkipHidden bool
}

// DefaultWatcherConfig returns the default watcher configuration for path.
func DefaultWatcherConfig(path string) *WatcherConfig {
	return &WatcherConfig{
		Path:             path,
		DebounceInterval: 250 * time.Millisecond,
		Extensions:       []string{".yaml", ".yml", ".json"},
		SkipHidden:       true,
	}
}

// Watcher reports changes to a rule pack on disk. Bursts of filesystem
// events are debounced into one callback.
type Watcher struct {
	config   *WatcherConfig
	logger   *slog.Logger
	fsw      *fsnotify.Watcher
	debounce *Debouncer

	// file is set when Path is a single file; its parent directory is
	// watched so that editors replacing the file are noticed.
	file string
}

// NewWatcher creates a watcher. Call Run to start delivering changes.
func NewWatcher(config *WatcherConfig, logger *slog.Logger) (*Watcher, error) {
	if config == nil || config.Path == "" {
		return nil, fmt.Errorf("watcher requires a path")
	}
	if logger == nil {
		logger = slog.Default()
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	return &Watcher{
		config:   config,
		logger:   logger.With("component", "registry.watcher"),
		fsw:      fsw,
		debounce: NewDebouncer(config.DebounceInterval),
	}, nil
}

// Run watches until ctx is cancelled, calling onChange after each debounced
// burst of relevant events. It closes the underlying watcher on return.
func (w *Watcher) Run(ctx context.Context, onChange func(context.Context)) error {
	defer func() {
		w.debounce.Stop()
		_ = w.fsw.Close()
	}()

	if err := w.addPath(w.config.Path); err != nil {
		return fmt.Errorf("failed to watch %q: %w", w.config.Path, err)
	}

	w.logger.Info("rule pack watcher started",
		"path", w.config.Path,
		"debounce_ms", w.config.DebounceInterval.Milliseconds(),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("rule pack watcher stopped")
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if event.Has(fsnotify.Create) {
				w.watchNewDirectory(event.Name)
			}
			if !w.relevant(event) {
				continue
			}

			w.logger.Debug("rule pack event", "path", event.Name, "op", event.Op.String())
			w.debounce.Trigger(func() {
				if ctx.Err() != nil {
					return
				}
				onChange(ctx)
			})

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error("rule pack watcher error", "error", err)
		}
	}
}

func (w *Watcher) addPath(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		w.file = abs
		return w.fsw.Add(filepath.Dir(abs))
	}

	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if p != path && w.hidden(p) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(p); err != nil {
			return fmt.Errorf("failed to watch directory %q: %w", p, err)
		}
		w.logger.Debug("watching directory", "path", p)
		return nil
	})
}

// watchNewDirectory starts watching directories created under a watched tree.
func (w *Watcher) watchNewDirectory(path string) {
	if w.file != "" || w.hidden(path) {
		return
	}
	info, err := os.Stat(path)
	if err != nil || !info.IsDir() {
		return
	}
	if err := w.addPath(path); err != nil {
		w.logger.Warn("failed to watch new directory", "path", path, "error", err)
	}
}

// relevant reports whether event should trigger a reload.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	if w.file != "" {
		abs, err := filepath.Abs(event.Name)
		return err == nil && abs == w.file
	}
	if w.hidden(event.Name) {
		return false
	}
	ext := strings.ToLower(filepath.Ext(event.Name))
	return slices.ContainsFunc(w.config.Extensions, func(e string) bool {
		return strings.ToLower(e) == ext
	})
}

func (w *Watcher) hidden(path string) bool {
	return w.config.SkipHidden && strings.HasPrefix(filepath.Base(path), ".")
}
