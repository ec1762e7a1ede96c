package app

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"biodash/internal/auth"
)

// FileWatcher polls a file's modification time and calls a callback when it
// changes. The callback runs on the watcher goroutine.
type FileWatcher struct {
	path          string
	baseline      time.Time
	checkInterval time.Duration
	onChange      func()

	mu     sync.Mutex
	stopCh chan struct{}
	done   chan struct{}
}

// NewFileWatcher creates a watcher for path. A missing file is watched too
// and reported once it appears.
func NewFileWatcher(path string, checkInterval time.Duration) *FileWatcher {
	// Resolve symlinks so edits through a link target are seen
	if real, err := filepath.EvalSymlinks(path); err == nil {
		path = real
	}
	w := &FileWatcher{path: path, checkInterval: checkInterval}
	w.baseline, _ = w.modTime()
	return w
}

// OnChange sets the callback invoked after each detected modification.
func (w *FileWatcher) OnChange(callback func()) {
	w.onChange = callback
}

// Path returns the watched file.
func (w *FileWatcher) Path() string {
	return w.path
}

// Start begins watching in a background goroutine.
func (w *FileWatcher) Start() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopCh != nil {
		return
	}
	w.stopCh = make(chan struct{})
	w.done = make(chan struct{})
	go w.watchLoop(w.stopCh, w.done)
}

// Stop stops the watcher goroutine and waits for it to exit.
func (w *FileWatcher) Stop() {
	w.mu.Lock()
	stopCh, done := w.stopCh, w.done
	w.stopCh, w.done = nil, nil
	w.mu.Unlock()
	if stopCh == nil {
		return
	}
	close(stopCh)
	<-done
}

func (w *FileWatcher) watchLoop(stopCh, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(w.checkInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if w.checkForUpdate() && w.onChange != nil {
				w.onChange()
			}
		}
	}
}

// checkForUpdate moves the baseline forward and reports whether it moved.
func (w *FileWatcher) checkForUpdate() bool {
	mt, err := w.modTime()
	if err != nil || !mt.After(w.baseline) {
		return false
	}
	w.baseline = mt
	return true
}

func (w *FileWatcher) modTime() (time.Time, error) {
	info, err := os.Stat(w.path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// WatchCredentials reloads the credential store into s whenever the file
// changes. A file that fails to parse leaves the previous users in place.
func WatchCredentials(s *State, path string, interval time.Duration) *FileWatcher {
	w := NewFileWatcher(path, interval)
	w.OnChange(func() {
		users, err := auth.Load(path)
		if err != nil {
			slog.Warn("Keeping previous credentials", "path", path, "error", err)
			return
		}
		s.SetUsers(users)
		slog.Info("Reloaded credentials", "path", path, "users", users.Len())
	})
	w.Start()
	return w
}
