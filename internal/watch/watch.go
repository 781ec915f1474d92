// Package watch invalidates cached store state when the requirements tree
// changes on disk. The store itself always reads items fresh; only the
// document map is cached, so the watcher's single job is flipping a dirty
// flag that tells the service to reload it.
package watch

import (
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors a requirements root for changes using fsnotify.
type Watcher struct {
	Root string

	dirty   atomic.Bool
	done    chan struct{}
	watcher *fsnotify.Watcher
}

// New creates a watcher over the requirements root and its document
// directories. fsnotify does not recurse, so each existing subdirectory is
// registered explicitly; directories created later trigger a dirty flag and
// get registered on the next Refresh.
func New(root string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	w := &Watcher{Root: root, done: make(chan struct{}), watcher: fw}
	return w, nil
}

// Start registers the directory tree and begins watching.
func (w *Watcher) Start() error {
	if err := w.addTree(); err != nil {
		return err
	}
	go w.loop()
	return nil
}

// Stop closes the watcher.
func (w *Watcher) Stop() {
	w.watcher.Close()
	<-w.done
}

// Dirty reports and clears the dirty flag.
func (w *Watcher) Dirty() bool {
	return w.dirty.Swap(false)
}

// Refresh re-registers the directory tree, picking up directories created
// since the last registration.
func (w *Watcher) Refresh() error {
	return w.addTree()
}

func (w *Watcher) addTree() error {
	if err := w.watcher.Add(w.Root); err != nil {
		return err
	}
	entries, err := os.ReadDir(w.Root)
	if err != nil {
		return err
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		directory := filepath.Join(w.Root, entry.Name())
		// Best effort: a directory vanishing between ReadDir and Add is
		// itself a change the next event will report.
		_ = w.watcher.Add(directory)
		_ = w.watcher.Add(filepath.Join(directory, "items"))
	}
	return nil
}

func (w *Watcher) loop() {
	defer close(w.done)
	for {
		select {
		case _, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.dirty.Store(true)
		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}
