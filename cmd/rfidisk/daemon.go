package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ItsDanik/rfidisk/internal/clock"
	"github.com/ItsDanik/rfidisk/internal/config"
	"github.com/ItsDanik/rfidisk/internal/daemon"
	"github.com/ItsDanik/rfidisk/internal/desktop"
	"github.com/ItsDanik/rfidisk/internal/eventbus"
	"github.com/ItsDanik/rfidisk/internal/eventstore"
	"github.com/ItsDanik/rfidisk/internal/foundation/errors"
	"github.com/ItsDanik/rfidisk/internal/link"
	"github.com/ItsDanik/rfidisk/internal/logfields"
	"github.com/ItsDanik/rfidisk/internal/metrics"
	"github.com/ItsDanik/rfidisk/internal/supervisor"
)

func runDaemon(paths config.Paths, verbose bool) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	settings, err := config.EnsureSettings(paths.SettingsFile())
	if err != nil {
		slog.Warn("Settings unreadable, using defaults", logfields.Path(paths.SettingsFile()), logfields.Error(err))
	}
	for _, w := range settings.Normalize() {
		slog.Warn("Settings value repaired", slog.String("detail", w))
	}
	configureLogging(settings, verbose)

	if err := os.MkdirAll(paths.ShmDir, 0o755); err != nil {
		return errors.StorageError("failed to create shared memory directory").
			WithCause(err).
			WithContext("path", paths.ShmDir).
			Fatal().
			Build()
	}

	sessionID := uuid.NewString()
	emitter := openEventSinks(ctx, sessionID, settings)
	defer func() {
		if err := emitter.Close(); err != nil {
			slog.Warn("Failed to close event journal", logfields.Error(err))
		}
	}()

	recorder, stopMetrics := startMetrics(settings)
	defer stopMetrics()

	deps := daemon.Deps{
		Opener:            link.SerialOpener(link.BaudRate),
		LinkOptions:       link.DefaultOptions(),
		Spawner:           supervisor.ExecSpawner{},
		Signaller:         supervisor.UnixSignaller{},
		Tree:              processTree(supervisor.NewProcfsTree),
		SupervisorOptions: supervisor.DefaultOptions(),
		Notifier:          desktop.NewNotifySend(settings.NotificationIcon, settings.NotificationTimeoutDuration()),
		Clock:             clock.Real(),
		Events:            emitter,
		Recorder:          recorder,
	}

	watcher, err := daemon.NewSettingsWatcher(paths.SettingsFile())
	if err != nil {
		slog.Warn("Settings hot reload disabled", logfields.Error(err))
	} else if err := watcher.Start(ctx); err != nil {
		slog.Warn("Settings hot reload disabled", logfields.Error(err))
	} else {
		deps.SettingsUpdates = watcher.Updates()
		defer func() { _ = watcher.Stop() }()
	}

	slog.Info("Daemon session", logfields.SessionID(sessionID), logfields.Path(paths.Dir))
	return daemon.New(paths, settings, deps, daemon.DefaultOptions()).Run(ctx)
}

// processTree returns the descendant snapshotter, or nil when procfs cannot
// be opened. Termination then signals the process group only.
func processTree(open func() (*supervisor.ProcfsTree, error)) supervisor.TreeSnapshotter {
	tree, err := open()
	if err != nil {
		slog.Warn("Process tree unavailable, descendants will not be tracked", logfields.Error(err))
		return nil
	}
	return tree
}

// openEventSinks builds the emitter for the optional journal and NATS bus.
// Either sink failing to open is logged and skipped.
func openEventSinks(ctx context.Context, sessionID string, s config.Settings) *daemon.EventEmitter {
	var (
		store      eventstore.Store
		projection *eventstore.UsageProjection
		bus        *eventbus.Publisher
	)
	if s.JournalEnabled() {
		sq, err := eventstore.NewSQLiteStore(s.EventLog)
		if err != nil {
			slog.Warn("Event journal disabled", logfields.Path(s.EventLog), logfields.Error(err))
		} else {
			store = sq
			projection = eventstore.NewUsageProjection(sq)
			if err := projection.Rebuild(ctx); err != nil {
				slog.Warn("Failed to rebuild tag usage", logfields.Error(err))
			}
		}
	}
	if s.NATSURL != "" {
		p, err := eventbus.Connect(s.NATSURL, s.NATSSubject)
		if err != nil {
			slog.Warn("NATS publishing disabled", slog.String("url", s.NATSURL), logfields.Error(err))
		} else {
			bus = p
		}
	}
	if store == nil && bus == nil {
		return nil
	}
	return daemon.NewEventEmitter(sessionID, store, projection, bus, clock.Real())
}

// startMetrics serves /metrics when metrics_addr is set. The returned func
// shuts the listener down.
func startMetrics(s config.Settings) (metrics.Recorder, func()) {
	if s.MetricsAddr == "" {
		return metrics.NoopRecorder{}, func() {}
	}
	reg := prometheus.NewRegistry()
	recorder := metrics.NewPrometheusRecorder(reg)
	srv, err := metrics.Listen(s.MetricsAddr, reg)
	if err != nil {
		slog.Warn("Metrics listener disabled", slog.String("addr", s.MetricsAddr), logfields.Error(err))
		return recorder, func() {}
	}
	slog.Info("Serving metrics", slog.String("addr", srv.Addr()))
	return recorder, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			slog.Debug("Metrics shutdown", logfields.Error(err))
		}
	}
}
