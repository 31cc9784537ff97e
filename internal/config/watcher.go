package config

import (
	"fmt"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Watcher reloads a config file when it changes on disk and hands the new
// Config to every registered callback.
type Watcher struct {
	mu        sync.RWMutex
	config    *Config
	viper     *viper.Viper
	callbacks []func(*Config)
	stopped   bool
	errs      func(error)
}

// NewWatcher creates a watcher for configPath starting from cfg. onError
// receives reload failures; nil drops them.
func NewWatcher(cfg *Config, configPath string, onError func(error)) *Watcher {
	v := newViper()
	v.SetConfigFile(configPath)
	if onError == nil {
		onError = func(error) {}
	}
	return &Watcher{config: cfg, viper: v, errs: onError}
}

// OnChange registers callback.
func (w *Watcher) OnChange(callback func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, callback)
}

// Start reads the file once and begins watching it.
func (w *Watcher) Start() error {
	if err := w.viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	w.viper.OnConfigChange(func(fsnotify.Event) { w.reload() })
	w.viper.WatchConfig()
	return nil
}

// Stop makes further file events no-ops. viper offers no way to remove its watch.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.stopped = true
}

// Config returns the most recently loaded configuration.
func (w *Watcher) Config() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.config
}

func (w *Watcher) reload() {
	w.mu.RLock()
	stopped := w.stopped
	w.mu.RUnlock()
	if stopped {
		return
	}

	next, err := decode(w.viper)
	if err != nil {
		w.errs(err)
		return
	}

	w.mu.Lock()
	w.config = next
	callbacks := append(([]func(*Config))(nil), w.callbacks...)
	w.mu.Unlock()

	for _, cb := range callbacks {
		cb(next)
	}
}
