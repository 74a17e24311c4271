package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DebounceInterval collapses bursts of editor writes into one reload
const DebounceInterval = 150 * time.Millisecond

// Watcher reloads the config file whenever it changes on disk
type Watcher struct {
	watcher  *fsnotify.Watcher
	path     string
	debounce *time.Timer
	mu       sync.Mutex
	onChange func(Config, error)
	done     chan struct{}
	stopOnce sync.Once
}

// NewWatcher watches path and calls onChange with the reloaded config (or
// the load error) after each debounced change. The parent directory is
// watched so editors that replace the file are still seen.
func NewWatcher(path string, onChange func(Config, error)) (*Watcher, error) {
	if path == "" {
		path = ConfigPath()
	}
	path = filepath.Clean(path)

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		watcher:  fsw,
		path:     path,
		onChange: onChange,
		done:     make(chan struct{}),
	}

	go w.run()

	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				w.scheduleReload()
			}

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) scheduleReload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.debounce != nil {
		w.debounce.Stop()
	}

	w.debounce = time.AfterFunc(DebounceInterval, func() {
		cfg, err := Load(w.path)
		if w.onChange != nil {
			w.onChange(cfg, err)
		}
	})
}

// Stop closes the watcher. Safe to call more than once.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.done)
		w.watcher.Close()

		w.mu.Lock()
		if w.debounce != nil {
			w.debounce.Stop()
		}
		w.mu.Unlock()
	})
}
