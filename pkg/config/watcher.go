// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
)

const defaultDebounce = 250 * time.Millisecond

// 👀 Watcher caches the loaded config and reloads it when the file changes.
// Readers call Current; a reload swaps the pointer under the write lock.
type Watcher struct {
	path     string
	debounce time.Duration

	mu      sync.RWMutex
	current *Config
	subs    []func(*Config)

	fsw      *fsnotify.Watcher
	stopCh   chan struct{}
	doneCh   chan struct{}
	running  bool
	stopOnce sync.Once
}

// WatcherOption customizes a Watcher
type WatcherOption func(*Watcher)

// WithDebounce sets how long to wait after the last event before reloading.
func WithDebounce(d time.Duration) WatcherOption {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// 🏭 NewWatcher loads path once and returns a watcher holding the result
func NewWatcher(ctx context.Context, path string, opts ...WatcherOption) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Errorf("resolving config path: %w", err)
	}

	cfg, err := Load(ctx, abs)
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		path:     abs,
		debounce: defaultDebounce,
		current:  cfg,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w, nil
}

// Static returns a watcher that always serves cfg and never touches the filesystem.
func Static(cfg *Config) *Watcher {
	return &Watcher{
		current: cfg,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Current returns the most recently loaded config.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Subscribe registers fn to be called with every successfully reloaded config.
func (w *Watcher) Subscribe(fn func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.subs = append(w.subs, fn)
}

// Reload reads the file again. On failure the previous config is kept.
func (w *Watcher) Reload(ctx context.Context) error {
	if w.path == "" {
		return nil
	}

	cfg, err := Load(ctx, w.path)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("path", w.path).Msg("config reload failed, keeping previous config")
		return err
	}

	w.mu.Lock()
	w.current = cfg
	subs := slices.Clone(w.subs)
	w.mu.Unlock()

	zerolog.Ctx(ctx).Info().Str("path", w.path).Str("config", cfg.String()).Msg("config reloaded")

	for _, fn := range subs {
		fn(cfg)
	}
	return nil
}

// Start begins watching the config file. It does not block.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running || w.path == "" {
		w.mu.Unlock()
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return errors.Errorf("creating file watcher: %w", err)
	}

	// Editors often replace the file, so watch the directory and filter by name.
	if err := fsw.Add(filepath.Dir(w.path)); err != nil {
		fsw.Close()
		w.mu.Unlock()
		return errors.Errorf("watching %s: %w", filepath.Dir(w.path), err)
	}
	w.fsw = fsw
	w.running = true
	w.mu.Unlock()

	zerolog.Ctx(ctx).Debug().Str("path", w.path).Msg("watching config file")

	go w.run(ctx)
	return nil
}

// Stop ends the watch loop and waits for it to exit.
func (w *Watcher) Stop() {
	w.mu.RLock()
	running := w.running
	w.mu.RUnlock()
	if !running {
		return
	}

	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
	<-w.doneCh
}

func (w *Watcher) run(ctx context.Context) {
	defer close(w.doneCh)
	defer w.fsw.Close()

	logger := zerolog.Ctx(ctx)

	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case <-w.stopCh:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			logger.Debug().Str("path", event.Name).Str("op", event.Op.String()).Msg("config file changed")
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
			timerCh = timer.C

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logger.Error().Err(err).Msg("config watcher error")

		case <-timerCh:
			timerCh = nil
			_ = w.Reload(ctx)
		}
	}
}
