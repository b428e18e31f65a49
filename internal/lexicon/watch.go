package lexicon

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce collapses the burst of write events a single file update
// produces into one reload.
const watchDebounce = 100 * time.Millisecond

// WatchFile reloads the index from path whenever the file is written or
// replaced. The parent directory is watched so that atomic replacement by
// rename is seen too. Calling WatchFile again replaces the previous watch.
func (x *Index) WatchFile(path string) error {
	path = filepath.Clean(path)

	x.mu.Lock()
	defer x.mu.Unlock()

	x.stopWatchLocked()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return fmt.Errorf("watch %q: %w", path, err)
	}

	x.watcher = w
	x.watchPath = path
	x.watchDone = make(chan struct{})

	go x.watchLoop(w, path, x.watchDone)
	x.logger.Info("watching lexicon file", "path", path)
	return nil
}

// WatchPath returns the watched file, or "" if no watch is active.
func (x *Index) WatchPath() string {
	x.mu.Lock()
	defer x.mu.Unlock()
	return x.watchPath
}

func (x *Index) watchLoop(w *fsnotify.Watcher, path string, done chan struct{}) {
	defer close(done)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != path || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			if _, err := x.reloadPath(path); err != nil {
				x.logger.Warn("lexicon reload on change failed", "path", path, "error", err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			x.logger.Warn("lexicon watch error", "path", path, "error", err)
		}
	}
}

func (x *Index) stopWatchLocked() {
	if x.watcher != nil {
		_ = x.watcher.Close()
		<-x.watchDone
		x.watcher = nil
		x.watchPath = ""
		x.watchDone = nil
	}
}

// Close stops the file watcher. The loaded table stays readable.
func (x *Index) Close() {
	x.mu.Lock()
	x.stopWatchLocked()
	x.mu.Unlock()
}
