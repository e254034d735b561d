package config

import (
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/giongto35/camview/pkg/logger"
)

// Watcher reloads the configuration file when it changes.
type Watcher struct {
	w    *fsnotify.Watcher
	done chan struct{}
}

// Watch calls fn with the freshly loaded config on every change of the
// file at path. Flags are applied again after each reload.
// The directory is watched because editors often replace the file.
func Watch(path string, flags *Flags, log *logger.Logger, fn func(*Config)) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err = watcher.Add(filepath.Dir(path)); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	file := filepath.Clean(path)

	w := &Watcher{w: watcher, done: make(chan struct{})}
	go func() {
		defer close(w.done)
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != file {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				var conf Config
				if _, err := LoadConfig(&conf, path); err != nil {
					log.Warn().Err(err).Msg("config reload")
					continue
				}
				flags.Apply(&conf)
				log.Info().Str("path", path).Msg("config reloaded")
				fn(&conf)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Error().Err(err).Msg("config watcher")
			}
		}
	}()
	return w, nil
}

func (w *Watcher) Close() error {
	err := w.w.Close()
	<-w.done
	return err
}
