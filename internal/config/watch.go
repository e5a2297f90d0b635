package config

import (
	"log/slog"

	"github.com/fsnotify/fsnotify"
)

// WatchReload watches path for changes and calls onReload with the freshly
// loaded Config whenever it's modified. Viper ships its own fsnotify-based
// OnConfigChange, but that API is tied to a single *viper.Viper instance
// constructed once in Load; this uses fsnotify directly so a full Load (new
// Viper instance, defaults reapplied, env re-read) runs on every change
// rather than a partial in-place merge.
func WatchReload(path string, logger *slog.Logger, onReload func(*Config)) (stop func() error, err error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, err
	}

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := Load(path)
				if err != nil {
					if logger != nil {
						logger.Error("config reload failed, keeping previous config", "error", err)
					}
					continue
				}
				onReload(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				if logger != nil {
					logger.Error("config watcher error", "error", err)
				}
			}
		}
	}()

	return watcher.Close, nil
}
