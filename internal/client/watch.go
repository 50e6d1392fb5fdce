package client

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// configWatcher calls onChange once when the config file is written,
// created or renamed over. The directory is watched rather than the file
// so editors that replace the file are noticed.
type configWatcher struct {
	w      *fsnotify.Watcher
	path   string
	logger *slog.Logger
	once   sync.Once
	done   chan struct{}
}

func watchConfig(path string, logger *slog.Logger, onChange func()) (*configWatcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch dir: %w", err)
	}

	cw := &configWatcher{
		w:      fw,
		path:   abs,
		logger: logger.With("component", "watcher"),
		done:   make(chan struct{}),
	}
	go cw.watch(onChange)
	return cw, nil
}

func (cw *configWatcher) watch(onChange func()) {
	defer close(cw.done)
	for {
		select {
		case err, ok := <-cw.w.Errors:
			if !ok {
				return
			}
			cw.logger.Warn("inotify error", "error", err)

		case evt, ok := <-cw.w.Events:
			if !ok {
				return
			}
			if !cw.relevant(evt) {
				continue
			}
			cw.once.Do(func() {
				cw.logger.Info("config changed", "path", cw.path, "op", evt.Op.String())
				onChange()
			})
		}
	}
}

func (cw *configWatcher) relevant(evt fsnotify.Event) bool {
	if filepath.Clean(evt.Name) != cw.path {
		return false
	}
	return evt.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

// Close stops watching and waits for the event goroutine to exit.
func (cw *configWatcher) Close() error {
	err := cw.w.Close()
	<-cw.done
	return err
}
