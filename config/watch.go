package config

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch monitors the config file and logs a warning whenever it changes on
// disk. The running engine never hot-reloads thresholds mid-session; the
// warning tells the operator a restart is needed for edits to take effect.
// The returned stop function releases the watcher.
func Watch(path string, log *zap.Logger) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory: editors replace the file, which drops a watch
	// placed directly on it.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, err
	}
	target := filepath.Clean(path)

	done := make(chan struct{})
	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target {
					continue
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					log.Warn("config file changed on disk, restart required to apply",
						zap.String("path", path),
						zap.String("op", ev.Op.String()))
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Error("config watcher error", zap.Error(err))
			case <-done:
				return
			}
		}
	}()

	return func() {
		close(done)
		watcher.Close()
	}, nil
}
