package session

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/parleyhq/parley/internal/logging"
)

// Watcher notifies subscribers when a session's canonical state file
// changes on disk. Used by `parley show --follow` and the TUI to pick up
// writes made by another process.
type Watcher struct {
	fw        *fsnotify.Watcher
	statePath string
	changes   chan struct{}
	done      chan struct{}
	logger    *logging.Logger
}

// NewWatcher starts watching the state file for sessionID in the given
// store. The session directory must already exist.
func NewWatcher(store *FileStore, sessionID string, logger *logging.Logger) (*Watcher, error) {
	if logger == nil {
		logger = logging.NopLogger()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	statePath := store.StatePath(sessionID)
	// Watch the directory: atomic writes replace the file via rename, which
	// would drop a watch on the file itself.
	if err := fw.Add(filepath.Dir(statePath)); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		fw:        fw,
		statePath: statePath,
		changes:   make(chan struct{}, 1),
		done:      make(chan struct{}),
		logger:    logger.WithSession(sessionID),
	}
	go w.loop()
	return w, nil
}

// Changes delivers one signal per observed state-file change. The channel
// is buffered with size one; rapid successive writes coalesce.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fw.Close()
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			if ev.Name != w.statePath {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			select {
			case w.changes <- struct{}{}:
			default:
			}
		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("state watcher error", "error", err)
		}
	}
}
