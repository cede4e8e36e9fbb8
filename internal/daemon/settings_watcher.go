package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ItsDanik/rfidisk/internal/config"
	"github.com/ItsDanik/rfidisk/internal/logfields"
)

// SettingsWatcher monitors the settings document and hands each successfully
// reloaded Settings to the loop through Updates. Only the newest value is
// kept if the loop has not picked up the previous one.
type SettingsWatcher struct {
	settingsPath string
	watcher      *fsnotify.Watcher
	mu           sync.Mutex
	stopOnce     sync.Once
	stopChan     chan struct{}
	reloadChan   chan struct{}
	updates      chan config.Settings
	debounceTime time.Duration
}

// NewSettingsWatcher creates a watcher for the settings file at path.
func NewSettingsWatcher(path string) (*SettingsWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to resolve settings path: %w", err)
	}

	return &SettingsWatcher{
		settingsPath: absPath,
		watcher:      watcher,
		stopChan:     make(chan struct{}),
		reloadChan:   make(chan struct{}, 1),
		updates:      make(chan config.Settings, 1),
		debounceTime: 500 * time.Millisecond,
	}, nil
}

// Updates delivers reloaded settings.
func (sw *SettingsWatcher) Updates() <-chan config.Settings { return sw.updates }

// Start begins monitoring. The directory is watched rather than the file so
// that editors which replace the file by rename are seen.
func (sw *SettingsWatcher) Start(ctx context.Context) error {
	sw.mu.Lock()
	defer sw.mu.Unlock()

	dir := filepath.Dir(sw.settingsPath)
	if err := sw.watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch settings directory %s: %w", dir, err)
	}

	slog.Info("Starting settings watcher", logfields.Path(sw.settingsPath))

	go sw.watchLoop(ctx)
	go sw.reloadLoop(ctx)

	return nil
}

// Stop stops the watcher. It is safe to call more than once.
func (sw *SettingsWatcher) Stop() error {
	var err error
	sw.stopOnce.Do(func() {
		sw.mu.Lock()
		defer sw.mu.Unlock()
		slog.Debug("Stopping settings watcher")
		close(sw.stopChan)
		err = sw.watcher.Close()
	})
	return err
}

func (sw *SettingsWatcher) watchLoop(ctx context.Context) {
	settingsFile := filepath.Base(sw.settingsPath)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sw.stopChan:
			return
		case event, ok := <-sw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != settingsFile {
				continue
			}
			switch {
			case event.Has(fsnotify.Write), event.Has(fsnotify.Create), event.Has(fsnotify.Rename):
				slog.Debug("Settings file change detected", logfields.Path(event.Name), slog.String("op", event.Op.String()))
				sw.triggerReload()
			case event.Has(fsnotify.Remove):
				slog.Warn("Settings file removed, keeping current settings", logfields.Path(event.Name))
			}
		case err, ok := <-sw.watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Settings watcher error", logfields.Error(err))
		}
	}
}

func (sw *SettingsWatcher) reloadLoop(ctx context.Context) {
	var reloadTimer *time.Timer
	stopTimer := func() {
		if reloadTimer != nil {
			reloadTimer.Stop()
		}
	}

	for {
		select {
		case <-ctx.Done():
			stopTimer()
			return
		case <-sw.stopChan:
			stopTimer()
			return
		case <-sw.reloadChan:
			stopTimer()
			reloadTimer = time.AfterFunc(sw.debounceTime, func() {
				if err := sw.performReload(); err != nil {
					slog.Warn("Failed to reload settings", logfields.Error(err))
				}
			})
		}
	}
}

func (sw *SettingsWatcher) triggerReload() {
	select {
	case sw.reloadChan <- struct{}{}:
	default:
	}
}

// performReload loads the document and publishes it. A corrupt document is
// rejected so a half-saved edit does not reset everything to defaults.
func (sw *SettingsWatcher) performReload() error {
	slog.Info("Reloading settings", logfields.Path(sw.settingsPath))

	s, err := config.LoadSettings(sw.settingsPath)
	if err != nil {
		return err
	}
	for _, w := range s.Normalize() {
		slog.Warn("Settings value repaired", slog.String("detail", w))
	}
	sw.deliver(s)
	return nil
}

func (sw *SettingsWatcher) deliver(s config.Settings) {
	for {
		select {
		case sw.updates <- s:
			return
		default:
		}
		// Drop the stale value the loop has not consumed yet.
		select {
		case <-sw.updates:
		default:
		}
	}
}
