// Package signals lets an operator stop a running server by dropping a file
// into the data directory.
package signals

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// StopFile is the file name that requests a stop.
const StopFile = "stop"

const pollInterval = time.Second

// Watcher watches <dataDir>/signals for a stop file.
type Watcher struct {
	dir     string
	watcher *fsnotify.Watcher

	stopped  chan struct{}
	stopOnce sync.Once
	done     chan struct{}
	doneOnce sync.Once
}

// NewWatcher creates the signals directory, clears any stale stop file and
// starts watching. If fsnotify is unavailable it falls back to polling.
func NewWatcher(dataDir string) (*Watcher, error) {
	dir := filepath.Join(dataDir, "signals")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create signals directory: %w", err)
	}
	if err := os.Remove(filepath.Join(dir, StopFile)); err == nil {
		log.Printf("[signals] removed stale stop file")
	}

	w := &Watcher{
		dir:     dir,
		stopped: make(chan struct{}),
		done:    make(chan struct{}),
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		log.Printf("[signals] fsnotify unavailable, polling: %v", err)
		go w.poll()
		return w, nil
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		log.Printf("[signals] cannot watch %s, polling: %v", dir, err)
		go w.poll()
		return w, nil
	}
	w.watcher = fw
	go w.watch()

	return w, nil
}

// StopPath returns the path of the file that requests a stop.
func (w *Watcher) StopPath() string {
	return filepath.Join(w.dir, StopFile)
}

// Stopped is closed once a stop has been requested.
func (w *Watcher) Stopped() <-chan struct{} {
	return w.stopped
}

// Close stops watching. It does not close Stopped.
func (w *Watcher) Close() error {
	var err error
	w.doneOnce.Do(func() {
		close(w.done)
		if w.watcher != nil {
			err = w.watcher.Close()
		}
	})
	return err
}

// Context returns a child of parent that is cancelled when a stop is requested.
func (w *Watcher) Context(parent context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(parent)
	go func() {
		select {
		case <-w.stopped:
			log.Printf("[signals] stop requested via %s", w.StopPath())
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, cancel
}

func (w *Watcher) trigger() {
	w.stopOnce.Do(func() { close(w.stopped) })
}

func (w *Watcher) watch() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) == StopFile && event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.trigger()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Printf("[signals] watcher error: %v", err)
		}
	}
}

func (w *Watcher) poll() {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-w.done:
			return
		case <-ticker.C:
			if _, err := os.Stat(w.StopPath()); err == nil {
				w.trigger()
			}
		}
	}
}
