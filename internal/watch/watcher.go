// Package watch turns filesystem activity under the content root into
// rebuild requests on the event bus, and coalesces request bursts so one
// editor save triggers one build.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/pagefold/pagefold/internal/events"
	"github.com/pagefold/pagefold/internal/logfields"
)

// Watcher emits a RebuildRequested event for every relevant change under the
// content root. Directories are watched recursively; directories created
// while watching join the watch set.
type Watcher struct {
	bus        *events.Bus
	root       string
	extraFiles map[string]struct{}
	fsw        *fsnotify.Watcher

	readyOnce sync.Once
	ready     chan struct{}
}

// NewWatcher watches root recursively. extraFiles are single files outside
// the root (typically the site configuration) whose changes also request a
// rebuild.
func NewWatcher(bus *events.Bus, root string, extraFiles ...string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create filesystem watcher: %w", err)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		fsw.Close()
		return nil, fmt.Errorf("resolve content root: %w", err)
	}

	w := &Watcher{
		bus:        bus,
		root:       absRoot,
		extraFiles: make(map[string]struct{}, len(extraFiles)),
		fsw:        fsw,
		ready:      make(chan struct{}),
	}
	for _, f := range extraFiles {
		abs, err := filepath.Abs(f)
		if err != nil {
			fsw.Close()
			return nil, fmt.Errorf("resolve watched file %s: %w", f, err)
		}
		w.extraFiles[abs] = struct{}{}
	}
	return w, nil
}

// Ready is closed once all watches are armed. Events occurring before Ready
// may be missed; events after it are not.
func (w *Watcher) Ready() <-chan struct{} {
	return w.ready
}

// Run watches until the context is canceled. Callers own Close.
func (w *Watcher) Run(ctx context.Context) error {
	if err := w.addTree(w.root); err != nil {
		return err
	}
	for f := range w.extraFiles {
		if err := w.fsw.Add(filepath.Dir(f)); err != nil {
			return fmt.Errorf("watch %s: %w", f, err)
		}
	}
	w.readyOnce.Do(func() { close(w.ready) })
	slog.Info("watching for content changes", logfields.Path(w.root))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ctx, event)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			slog.Error("content watcher error", logfields.Error(err))
		}
	}
}

// Close releases the underlying filesystem watcher.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

func (w *Watcher) handle(ctx context.Context, event fsnotify.Event) {
	const relevant = fsnotify.Create | fsnotify.Write | fsnotify.Remove | fsnotify.Rename
	if event.Op&relevant == 0 {
		return
	}

	name := filepath.Clean(event.Name)

	// Watched single files match by exact path.
	if _, ok := w.extraFiles[name]; ok {
		w.request(ctx, filepath.Base(name))
		return
	}

	if name != w.root && !strings.HasPrefix(name, w.root+string(filepath.Separator)) {
		return
	}
	rel, err := filepath.Rel(w.root, name)
	if err != nil || hidden(rel) {
		return
	}

	if event.Op&fsnotify.Create != 0 {
		if info, statErr := os.Stat(name); statErr == nil && info.IsDir() {
			if addErr := w.addTree(name); addErr != nil {
				slog.Warn("cannot watch new directory",
					logfields.Path(name), logfields.Error(addErr))
			}
		}
	}

	w.request(ctx, filepath.ToSlash(rel))
}

func (w *Watcher) request(ctx context.Context, rel string) {
	slog.Debug("content change detected", logfields.Path(rel))
	_ = w.bus.Publish(ctx, events.RebuildRequested{
		Reason:      events.TriggerWatch,
		Path:        rel,
		RequestedAt: time.Now(),
	})
}

func (w *Watcher) addTree(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if rel, relErr := filepath.Rel(root, path); relErr == nil && hidden(rel) {
			return filepath.SkipDir
		}
		if addErr := w.fsw.Add(path); addErr != nil {
			return fmt.Errorf("watch %s: %w", path, addErr)
		}
		return nil
	})
}

// hidden reports whether any element of the relative path starts with a dot.
// Keeps .git, .pagefold and editor state directories out of the rebuild loop.
func hidden(rel string) bool {
	for part := range strings.SplitSeq(filepath.ToSlash(rel), "/") {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
	}
	return false
}
