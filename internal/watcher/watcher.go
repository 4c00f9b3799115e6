package watcher

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/GonnyTech/canDrive-Pro/internal/labels"
)

const debounceInterval = 500 * time.Millisecond

// UpdateCallback is called with the freshly loaded label table.
type UpdateCallback func(table map[string]string)

// LabelWatcher reloads the label file whenever it changes on disk.
//
// The parent directory is watched rather than the file itself so that
// editors which save by rename keep triggering reloads.
type LabelWatcher struct {
	path     string
	debounce time.Duration
	callback UpdateCallback

	fsWatcher *fsnotify.Watcher
	cancel    chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// New creates a watcher for the label file at path.
func New(path string, callback UpdateCallback) *LabelWatcher {
	return &LabelWatcher{
		path:     filepath.Clean(path),
		debounce: debounceInterval,
		callback: callback,
		cancel:   make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start begins watching. The callback is not invoked for the initial
// contents; load those with labels.Load.
func (w *LabelWatcher) Start() error {
	fsW, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := fsW.Add(filepath.Dir(w.path)); err != nil {
		fsW.Close()
		return err
	}
	w.fsWatcher = fsW

	go w.watchLoop()
	return nil
}

// watchLoop processes fsnotify events with debouncing. Reloads run on this
// goroutine, so they never overlap and none runs after Close returns.
func (w *LabelWatcher) watchLoop() {
	defer close(w.done)

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-w.cancel:
			return

		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}

			// Debounce: reset timer on each event.
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			w.reload()

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Str("file", w.path).Msg("label watcher error")
		}
	}
}

func (w *LabelWatcher) reload() {
	table, err := labels.Load(w.path)
	if err != nil {
		// A rename-based save briefly leaves no file; the create event that
		// follows triggers another reload.
		log.Debug().Err(err).Str("file", w.path).Msg("label reload skipped")
		return
	}
	log.Info().Str("file", w.path).Int("labels", len(table)).Msg("labels reloaded")
	if w.callback != nil {
		w.callback(table)
	}
}

// Close stops the watcher.
func (w *LabelWatcher) Close() {
	w.closeOnce.Do(func() {
		close(w.cancel)
		if w.fsWatcher != nil {
			w.fsWatcher.Close()
			<-w.done
		}
	})
}
