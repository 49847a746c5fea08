package source

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for writes to settle.
const DefaultDebounce = 250 * time.Millisecond

// Watcher reloads Files when any of their paths change.
type Watcher struct {
	fsWatcher *fsnotify.Watcher
	files     *Files
	names     map[string]struct{}
	debounce  time.Duration
	reloads   chan error
	done      chan struct{}
}

// NewWatcher creates a watcher for files. A zero debounce uses
// DefaultDebounce.
func NewWatcher(files *Files, debounce time.Duration) (*Watcher, error) {
	if files == nil {
		return nil, fmt.Errorf("source: files are required")
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	names := make(map[string]struct{}, len(files.paths))
	for _, path := range files.paths {
		names[filepath.Clean(path)] = struct{}{}
	}
	return &Watcher{
		fsWatcher: fsw,
		files:     files,
		names:     names,
		debounce:  debounce,
		reloads:   make(chan error, 1),
		done:      make(chan struct{}),
	}, nil
}

// Start watches the directories holding the files. Editors often replace a
// file rather than write it, so the directory is watched instead of the file.
// The returned channel receives the result of every debounced reload; a nil
// value means the lookup was refreshed.
func (w *Watcher) Start() (<-chan error, error) {
	seen := map[string]struct{}{}
	for path := range w.names {
		dir := filepath.Dir(path)
		if _, ok := seen[dir]; ok {
			continue
		}
		seen[dir] = struct{}{}
		if err := w.fsWatcher.Add(dir); err != nil {
			return nil, fmt.Errorf("watching directory %s: %w", dir, err)
		}
	}

	go w.loop()

	return w.reloads, nil
}

// Stop terminates the watcher and releases resources.
func (w *Watcher) Stop() error {
	close(w.done)
	return w.fsWatcher.Close()
}

func (w *Watcher) loop() {
	var (
		timer   *time.Timer
		pending bool
	)

	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if !w.isRelevantEvent(event) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			pending = true

		case <-func() <-chan time.Time {
			if timer != nil {
				return timer.C
			}
			return nil
		}():
			if pending {
				w.publish(w.files.Reload())
				pending = false
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.publish(fmt.Errorf("watching files: %w", err))

		case <-w.done:
			if timer != nil {
				timer.Stop()
			}
			return
		}
	}
}

// publish drops the result when the previous one has not been read yet.
func (w *Watcher) publish(err error) {
	select {
	case w.reloads <- err:
	default:
	}
}

func (w *Watcher) isRelevantEvent(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return false
	}
	_, ok := w.names[filepath.Clean(event.Name)]
	return ok
}
