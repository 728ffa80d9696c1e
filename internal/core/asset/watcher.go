package asset

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"

	"github.com/fussion/engine/internal/core/observability/log"
)

// Watcher reports changed files below a root directory. It runs on its own
// goroutine and only hands paths to notify; it never touches scenes.
type Watcher struct {
	fs     *fsnotify.Watcher
	root   string
	notify func(path string)
	logger log.Log
	done   chan struct{}
}

// NewWatcher watches root and all of its subdirectories.
func NewWatcher(root string, notify func(path string), logger log.Log) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "creating file watcher")
	}
	if logger == nil {
		logger = log.Nop()
	}
	w := &Watcher{fs: fw, root: root, notify: notify, logger: logger, done: make(chan struct{})}
	if err := w.addTree(root); err != nil {
		_ = fw.Close()
		return nil, err
	}
	return w, nil
}

func (w *Watcher) addTree(dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		return errors.Wrapf(w.fs.Add(path), "watching %s", path)
	})
}

// Run forwards events until ctx is done or Close is called.
func (w *Watcher) Run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			_ = w.fs.Close()
			return
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.logger.Warn("file watcher error", log.Error(err))
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			// files in a new directory arrive as their own events
			if err := w.addTree(event.Name); err != nil {
				w.logger.Warn("cannot watch new directory", log.String("path", event.Name), log.Error(err))
			}
			return
		}
	}
	rel, err := filepath.Rel(w.root, event.Name)
	if err != nil {
		return
	}
	w.logger.Debug("file changed", log.String("path", rel), log.String("op", event.Op.String()))
	w.notify(filepath.ToSlash(rel))
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	return errors.Wrap(w.fs.Close(), "closing file watcher")
}

// Done is closed when Run returns.
func (w *Watcher) Done() <-chan struct{} { return w.done }
