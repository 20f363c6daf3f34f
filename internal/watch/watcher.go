// Package watch rebuilds a project when its Lingua Franca sources change
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/lf-lang/lingo/internal/engine"
	"github.com/lf-lang/lingo/internal/manifest"
	"github.com/lf-lang/lingo/pkg/logger"
	"github.com/lf-lang/lingo/pkg/types"
)

// DefaultSettlingDelay is used when Config.SettlingDelay is zero
const DefaultSettlingDelay = 500 * time.Millisecond

// directories never watched: VCS metadata, tool state and build outputs
var excludedDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	".lingo":       true,
	".idea":        true,
	".vscode":      true,
	"node_modules": true,
	"target":       true,
	"build":        true,
	"src-gen":      true,
	"fed-gen":      true,
	"bin":          true,
	"include":      true,
}

// Config configures a Watcher
type Config struct {
	Root string
	// Command is executed after every settled batch of changes
	Command types.BatchCommand
	// SettlingDelay is how long the tree must be quiet before a rebuild
	SettlingDelay time.Duration
	// InitialBuild runs Command once before waiting for changes
	InitialBuild bool
	// OnResult, if set, receives the result of every executed batch
	OnResult func(err error)
}

// Watcher triggers a batch command on source changes. Batches never overlap:
// changes made during a build schedule one more build after it.
type Watcher struct {
	config   Config
	executor engine.Executor
	logger   logger.Logger
	fsw      *fsnotify.Watcher
}

// New creates a watcher for config.Root
func New(config Config, executor engine.Executor, log logger.Logger) (*Watcher, error) {
	if log == nil {
		log = logger.Nop()
	}
	if config.SettlingDelay <= 0 {
		config.SettlingDelay = DefaultSettlingDelay
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}

	w := &Watcher{
		config:   config,
		executor: executor,
		logger:   log,
		fsw:      fsw,
	}
	if err := w.addTree(config.Root); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", config.Root, err)
	}
	return w, nil
}

// Close releases the underlying watcher
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// List returns the watched directories
func (w *Watcher) List() []string {
	return w.fsw.WatchList()
}

// Run watches until ctx is done. It returns nil on cancellation.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info(fmt.Sprintf("Watching %s for changes", w.config.Root),
		logger.WithField("apps", w.config.Command.AppNames()),
		logger.WithField("settling", w.config.SettlingDelay))

	if w.config.InitialBuild {
		w.execute(ctx)
	}

	// nil until a change arrives; every change restarts the delay
	var settled <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.handle(event) {
				continue
			}
			w.logger.Debug("Source changed", logger.WithField("path", event.Name), logger.WithField("op", event.Op.String()))
			settled = time.After(w.config.SettlingDelay)

		case <-settled:
			settled = nil
			w.execute(ctx)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("Watcher error", logger.WithField("error", err))
		}
	}
}

// handle updates the watch list for event and reports whether it should
// trigger a rebuild
func (w *Watcher) handle(event fsnotify.Event) bool {
	if event.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if isExcludedDir(event.Name) {
				return false
			}
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn(fmt.Sprintf("Failed to watch directory %s: %v", event.Name, err))
			}
			return false
		}
	}
	if event.Op == fsnotify.Chmod {
		return false
	}
	return IsSource(event.Name)
}

func (w *Watcher) execute(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	err := w.executor.ExecuteCommand(ctx, w.config.Command)
	if err != nil {
		w.logger.Error("Rebuild failed, waiting for changes", logger.WithField("error", err))
	}
	if w.config.OnResult != nil {
		w.config.OnResult(err)
	}
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && isExcludedDir(path) {
			return filepath.SkipDir
		}
		if err := w.fsw.Add(path); err != nil {
			return err
		}
		w.logger.Debug(fmt.Sprintf("Watching directory: %s", path))
		return nil
	})
}

func isExcludedDir(path string) bool {
	return excludedDirs[filepath.Base(path)]
}

// IsSource reports whether a change to path should trigger a rebuild: Lingua
// Franca sources and the project manifest.
func IsSource(path string) bool {
	base := filepath.Base(path)
	if base == manifest.FileName {
		return true
	}
	if strings.HasPrefix(base, ".") {
		return false
	}
	return strings.EqualFold(filepath.Ext(base), ".lf")
}
