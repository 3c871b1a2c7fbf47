package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce is the quiet period that closes a batch of file events.
const watchDebounce = 100 * time.Millisecond

// Watcher monitors the source tree and bumps the live reload sequence after
// each settled batch of changes, rebuilding scripts first when needed.
type Watcher struct {
	watcher    *fsnotify.Watcher
	server     *Server
	configPath string
	root       string
	assets     string
	stdout     io.Writer
	stderr     io.Writer

	mu        sync.Mutex
	pending   map[string]fsnotify.Op
	timer     *time.Timer
	changeSeq uint64
}

// NewWatcher creates a file watcher over the server's source root.
func NewWatcher(s *Server, configPath string, stdout, stderr io.Writer) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	root, err := filepath.Abs(s.config.Root)
	if err != nil {
		fsWatcher.Close()
		return nil, err
	}
	assets, err := filepath.Abs(s.config.Assets)
	if err != nil {
		fsWatcher.Close()
		return nil, err
	}
	if configPath != "" {
		if configPath, err = filepath.Abs(configPath); err != nil {
			fsWatcher.Close()
			return nil, err
		}
	}

	return &Watcher{
		watcher:    fsWatcher,
		server:     s,
		configPath: configPath,
		root:       root,
		assets:     assets,
		stdout:     stdout,
		stderr:     stderr,
		pending:    make(map[string]fsnotify.Op),
	}, nil
}

// Start begins watching for file changes
func (w *Watcher) Start(ctx context.Context) error {
	if w.configPath != "" {
		configDir := filepath.Dir(w.configPath)
		if err := w.watcher.Add(configDir); err != nil {
			w.logError("failed to watch config dir %s: %v", configDir, err)
		} else {
			w.logInfo("watching config: %s", w.configPath)
		}
	}

	if err := w.watchDirRecursive(w.root); err != nil {
		return fmt.Errorf("watching %s: %w", w.root, err)
	}
	w.logInfo("watching sources: %s", w.root)

	go w.eventLoop(ctx)

	return nil
}

// watchDirRecursive adds a directory and its subdirectories to the watch list
func (w *Watcher) watchDirRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && (strings.HasPrefix(d.Name(), ".") || d.Name() == "node_modules") {
			return filepath.SkipDir
		}
		return w.watcher.Add(path)
	})
}

// eventLoop processes file system events until ctx ends or the watcher closes
func (w *Watcher) eventLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op == fsnotify.Chmod || !w.relevant(event.Name) {
				continue
			}
			if event.Has(fsnotify.Create) {
				if err := w.watchDirRecursive(event.Name); err != nil && !errors.Is(err, fs.ErrNotExist) {
					w.logError("failed to watch %s: %v", event.Name, err)
				}
			}
			w.record(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logError("watcher error: %v", err)
		}
	}
}

// relevant reports whether path is the config file or a source under root.
// Build output is ignored even when assets sits inside root.
func (w *Watcher) relevant(path string) bool {
	if w.configPath != "" && path == w.configPath {
		return true
	}
	return isWithin(w.root, path) && !isWithin(w.assets, path)
}

// record adds an event to the pending batch and restarts the quiet timer.
func (w *Watcher) record(event fsnotify.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.pending[event.Name] |= event.Op
	if w.timer == nil {
		w.timer = time.AfterFunc(watchDebounce, w.flush)
	} else {
		w.timer.Reset(watchDebounce)
	}
}

// flush handles the settled batch, then lets browsers reload.
func (w *Watcher) flush() {
	w.mu.Lock()
	batch := w.pending
	w.pending = make(map[string]fsnotify.Op)
	w.timer = nil
	w.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	w.handleChanges(slices.Sorted(maps.Keys(batch)))

	w.mu.Lock()
	w.changeSeq++
	w.mu.Unlock()
}

// handleChanges logs each changed path and rebuilds scripts once if any
// script source changed.
func (w *Watcher) handleChanges(paths []string) {
	rebuild := false
	for _, path := range paths {
		if path == w.configPath {
			w.logInfo("config changed: %s (browser will reload, restart server for config changes to take effect)", path)
			continue
		}

		switch strings.ToLower(filepath.Ext(path)) {
		case ".ts", ".js":
			w.logInfo("script changed: %s", w.rel(path))
			rebuild = true
		case ".html", ".md":
			w.logInfo("page changed: %s", w.rel(path))
		case ".css":
			w.logInfo("style changed: %s", w.rel(path))
		default:
			w.logInfo("changed: %s", w.rel(path))
		}
	}

	if rebuild && w.server.config.Build.Compile {
		if err := w.server.bundler.Build(); err != nil {
			w.logError("script build failed: %v", err)
		} else {
			w.logInfo("%s", w.server.bundler.Summary())
		}
	}
}

func (w *Watcher) rel(path string) string {
	if rel, err := filepath.Rel(w.root, path); err == nil {
		return rel
	}
	return path
}

// ChangeSeq returns the current change sequence number for live reload
func (w *Watcher) ChangeSeq() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.changeSeq
}

// Close stops the watcher
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.watcher.Close()
}

func (w *Watcher) logInfo(format string, args ...any) {
	fmt.Fprintf(w.stdout, "[WATCH] "+format+"\n", args...)
}

func (w *Watcher) logError(format string, args ...any) {
	fmt.Fprintf(w.stderr, "[WATCH ERROR] "+format+"\n", args...)
}

// isWithin reports whether path is dir or below it.
func isWithin(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
