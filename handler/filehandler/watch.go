package filehandler

import (
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// watcher reopens a FileHandler's file after an external rename or remove.
// It watches the directory because a watch on the file itself is lost when
// the file is renamed.
type watcher struct {
	fs   *fsnotify.Watcher
	done chan struct{}
}

func newWatcher(h *FileHandler) (*watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fs.Add(filepath.Dir(h.filename)); err != nil {
		fs.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(h.filename), err)
	}
	w := &watcher{fs: fs, done: make(chan struct{})}
	go w.run(h)
	return w, nil
}

func (w *watcher) run(h *FileHandler) {
	defer close(w.done)
	target := filepath.Clean(h.filename)
	for {
		select {
		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Rename) && !event.Has(fsnotify.Remove) {
				continue
			}
			if err := h.reopenIfMoved(); err != nil {
				h.log.Warn("reopen after external rotation failed", zap.Error(err))
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			h.log.Warn("file watcher error", zap.Error(err))
		}
	}
}

func (w *watcher) close() error {
	err := w.fs.Close()
	<-w.done
	return err
}
