package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const configDebounce = 150 * time.Millisecond

type configChangedMsg struct {
	config *Config
}

// ConfigWatcher reloads the config file when it changes on disk and hands
// the new config to the program.
type ConfigWatcher struct {
	path    string
	logger  *zap.Logger
	watcher *fsnotify.Watcher
	changes chan *Config
	stopCh  chan struct{}
	once    sync.Once
}

// NewConfigWatcher watches the directory holding path, so the file may be
// created or replaced after startup.
func NewConfigWatcher(path string, logger *zap.Logger) (*ConfigWatcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("creating config directory: %w", err)
	}
	if err := fsWatcher.Add(dir); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	w := &ConfigWatcher{
		path:    path,
		logger:  logger,
		watcher: fsWatcher,
		changes: make(chan *Config, 1),
		stopCh:  make(chan struct{}),
	}
	go w.watchLoop()
	logger.Info("Configuration hot reloading enabled", zap.String("path", path))
	return w, nil
}

func (w *ConfigWatcher) watchLoop() {
	defer w.watcher.Close()

	var debounceTimer *time.Timer
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.logger.Debug("Configuration file changed",
				zap.String("file", event.Name),
				zap.String("operation", event.Op.String()),
			)
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(configDebounce, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))

		case <-w.stopCh:
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			return
		}
	}
}

func (w *ConfigWatcher) reload() {
	config, err := loadConfig(w.path)
	if err != nil {
		w.logger.Error("Invalid configuration after reload", zap.Error(err))
		return
	}
	select {
	case <-w.changes:
	default:
	}
	select {
	case w.changes <- config:
		w.logger.Info("Configuration reloaded", zap.String("path", w.path))
	case <-w.stopCh:
	}
}

// Wait returns a command that delivers the next reloaded config.
func (w *ConfigWatcher) Wait() tea.Cmd {
	return func() tea.Msg {
		select {
		case config := <-w.changes:
			return configChangedMsg{config: config}
		case <-w.stopCh:
			return nil
		}
	}
}

func (w *ConfigWatcher) Stop() {
	w.once.Do(func() { close(w.stopCh) })
}
