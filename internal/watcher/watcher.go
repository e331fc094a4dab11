// Package watcher watches the persisted session file and triggers a session
// refresh when an external writer touches it. The SSO callback page may run
// in a separate instance and write the session store before this process
// hears about it; the watcher closes that gap.
// It supports cross-platform fsnotify event handling.
package watcher

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// refreshDebounce coalesces the event bursts atomic replace writes produce.
const refreshDebounce = 150 * time.Millisecond

// Watcher observes one session file and invokes refresh on changes.
type Watcher struct {
	sessionPath string
	refresh     func()

	mu    sync.Mutex
	timer *time.Timer
	fsw   *fsnotify.Watcher
}

// New builds a watcher for sessionPath. refresh runs debounced on the
// watcher goroutine; it must be safe to call concurrently with API traffic.
func New(sessionPath string, refresh func()) *Watcher {
	return &Watcher{sessionPath: sessionPath, refresh: refresh}
}

// Start begins watching until ctx is cancelled. The parent directory is
// watched rather than the file itself so create/rename cycles (temp file +
// rename) are observed reliably.
func (w *Watcher) Start(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.fsw = fsw

	dir := filepath.Dir(w.sessionPath)
	if err = fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return err
	}
	log.Debugf("watcher: watching %s for session changes", dir)

	go w.run(ctx)
	return nil
}

func (w *Watcher) run(ctx context.Context) {
	defer func() { _ = w.fsw.Close() }()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.sessionPath) {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			w.scheduleRefresh()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Warnf("watcher: fsnotify error: %v", err)
		}
	}
}

// scheduleRefresh arms (or re-arms) the debounce timer.
func (w *Watcher) scheduleRefresh() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(refreshDebounce, func() {
		log.Debug("watcher: session file changed, refreshing")
		w.refresh()
	})
}
