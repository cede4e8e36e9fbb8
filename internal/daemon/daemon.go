// Package daemon runs the RFIDisk main loop: it turns device events into
// launches, terminations and display updates.
//
// Everything here runs on one goroutine. The runtime state, the serial link
// and the registry snapshot are owned by that loop; the only outside input
// besides the device is the settings watcher, which hands over whole
// Settings values through a one-slot channel.
package daemon

import (
	"context"
	"log/slog"
	"time"

	"github.com/ItsDanik/rfidisk/internal/clock"
	"github.com/ItsDanik/rfidisk/internal/config"
	"github.com/ItsDanik/rfidisk/internal/desktop"
	"github.com/ItsDanik/rfidisk/internal/display"
	"github.com/ItsDanik/rfidisk/internal/eventstore"
	"github.com/ItsDanik/rfidisk/internal/foundation/errors"
	"github.com/ItsDanik/rfidisk/internal/link"
	"github.com/ItsDanik/rfidisk/internal/logfields"
	"github.com/ItsDanik/rfidisk/internal/metrics"
	"github.com/ItsDanik/rfidisk/internal/registry"
	"github.com/ItsDanik/rfidisk/internal/shm"
	"github.com/ItsDanik/rfidisk/internal/state"
	"github.com/ItsDanik/rfidisk/internal/supervisor"
	"github.com/ItsDanik/rfidisk/internal/version"
)

// Options holds the loop cadence.
type Options struct {
	// Tick is slept at the end of every iteration.
	Tick time.Duration
	// LivenessEvery runs the owned-process check every N ticks.
	LivenessEvery int
	// LoadEvery polls the load bridge every N ticks.
	LoadEvery int
	// SwitchSettle is slept after terminating one tag's app before starting another.
	SwitchSettle time.Duration
}

func DefaultOptions() Options {
	return Options{
		Tick:          100 * time.Millisecond,
		LivenessEvery: 20,
		LoadEvery:     10,
		SwitchSettle:  500 * time.Millisecond,
	}
}

// Deps are the daemon's collaborators. Nil optional fields get defaults:
// real clock, no notifications, an editor spawned through Spawner, no events
// and no metrics.
type Deps struct {
	Opener      link.Opener
	LinkOptions link.Options

	Spawner           supervisor.Spawner
	Signaller         supervisor.Signaller
	Tree              supervisor.TreeSnapshotter
	SupervisorOptions supervisor.Options

	Notifier desktop.Notifier
	Editor   desktop.Editor
	Clock    clock.Clock
	Events   *EventEmitter
	Recorder metrics.Recorder

	// SettingsUpdates delivers reloaded settings; may be nil.
	SettingsUpdates <-chan config.Settings
}

// Daemon is the tag state machine and its loop.
type Daemon struct {
	st       *state.Runtime
	settings config.Settings
	paths    config.Paths
	opts     Options

	link      *link.Manager
	publisher *display.Publisher
	sup       *supervisor.Supervisor
	registry  *registry.Reloader
	mirror    *shm.DisplayFile
	load      *shm.LoadBridge

	notifier desktop.Notifier
	editor   desktop.Editor
	clock    clock.Clock
	events   *EventEmitter
	recorder metrics.Recorder
	updates  <-chan config.Settings

	// backlog holds lines read while debouncing a removal.
	backlog []string
}

// New wires a daemon for paths and settings.
func New(paths config.Paths, settings config.Settings, deps Deps, opts Options) *Daemon {
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Notifier == nil {
		deps.Notifier = desktop.Discard{}
	}
	if deps.Recorder == nil {
		deps.Recorder = metrics.NoopRecorder{}
	}

	st := state.New()
	d := &Daemon{
		st:       st,
		settings: settings,
		paths:    paths,
		opts:     opts,
		registry: registry.NewReloader(registry.NewJSONStore(paths.TagsFile())),
		mirror:   shm.NewDisplayFile(paths.DisplayFile()),
		load:     shm.NewLoadBridge(paths.LoadFile()),
		notifier: deps.Notifier,
		clock:    deps.Clock,
		events:   deps.Events,
		recorder: deps.Recorder,
		updates:  deps.SettingsUpdates,
	}

	d.link = link.NewManager(settings.SerialPort, deps.Opener, st, deps.Clock, deps.LinkOptions)
	d.link.SetRecovery(d.Recover)
	d.link.SetObserver(deps.Recorder)
	d.publisher = display.NewPublisher(d.link, d.mirror, st)

	d.sup = supervisor.New(st, supervisor.Deps{
		Spawner:   deps.Spawner,
		Signaller: deps.Signaller,
		Tree:      deps.Tree,
		Clock:     deps.Clock,
	}, supervisor.BuilderFor(settings), deps.SupervisorOptions)

	d.editor = deps.Editor
	if d.editor == nil {
		d.editor = &desktop.SpawnEditor{
			Command: settings.EditorCommand,
			Enabled: settings.AutoLaunchManager,
			Spawner: deps.Spawner,
			Track:   d.sup.Adopt,
		}
	}
	return d
}

// State returns a copy of the runtime state. Mutating it does not affect
// the daemon.
func (d *Daemon) State() *state.Runtime {
	snap := d.st.Snapshot()
	return &snap
}

// Settings returns the settings in effect.
func (d *Daemon) Settings() config.Settings { return d.settings }

// Start connects to the device and shows the idle screen. A failed initial
// connect is fatal.
func (d *Daemon) Start(ctx context.Context) error {
	slog.Warn("This software can automatically launch applications. Make sure your tags file only contains trusted commands.")
	slog.Info("Starting "+version.Banner(), logfields.Port(d.settings.SerialPort))

	if err := d.link.Connect(ctx); err != nil {
		return errors.WrapError(err, errors.CategoryLink, "initial serial connect failed").
			Fatal().
			WithContext("port", d.settings.SerialPort).
			Build()
	}
	d.events.Emit(ctx, eventstore.DaemonStarted(d.settings.SerialPort, version.Version))
	slog.Info("Ready")
	return d.publisher.Idle(ctx)
}

// Run starts the daemon and loops until ctx is cancelled or a fatal error
// occurs. Teardown always runs.
func (d *Daemon) Run(ctx context.Context) (err error) {
	defer func() { d.teardown(ctx, err) }()

	if err := d.Start(ctx); err != nil {
		return err
	}
	for tick := 1; ; tick++ {
		if ctx.Err() != nil {
			slog.Info("Shutting down")
			return nil
		}
		if err := d.Step(ctx, tick); err != nil {
			return err
		}
		d.clock.Sleep(d.opts.Tick)
	}
}

// Step runs one loop iteration: settings handoff, one serial line, and the
// periodic checks due at tick. Only fatal errors are returned.
func (d *Daemon) Step(ctx context.Context, tick int) error {
	d.drainSettings()

	line, ok, err := d.nextLine()
	switch {
	case err != nil:
		d.events.Emit(ctx, eventstore.LinkLost(d.st.SerialErrorCount+1, err))
		if rerr := d.link.Reconnect(ctx); rerr != nil && errors.IsFatal(rerr) {
			return rerr
		}
	case ok:
		if err := d.HandleLine(ctx, line); err != nil {
			return err
		}
	}

	if d.opts.LivenessEvery > 0 && tick%d.opts.LivenessEvery == 0 {
		d.checkLiveness(ctx)
	}
	if d.opts.LoadEvery > 0 && tick%d.opts.LoadEvery == 0 {
		if err := d.checkLoadTrigger(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (d *Daemon) nextLine() (string, bool, error) {
	if len(d.backlog) > 0 {
		line := d.backlog[0]
		d.backlog = d.backlog[1:]
		return line, true, nil
	}
	return d.link.ReadLine()
}

// teardown closes the link and removes both shared files. The owned app is
// left running.
func (d *Daemon) teardown(ctx context.Context, cause error) {
	if err := d.link.Close(); err != nil {
		slog.Debug("Error closing serial port", logfields.Error(err))
	}
	if err := d.mirror.Remove(); err != nil {
		slog.Warn("Failed to remove display file", logfields.Error(err))
	}
	if err := d.load.Clear(); err != nil {
		slog.Warn("Failed to remove load file", logfields.Error(err))
	}
	reason := "shutdown"
	if cause != nil {
		reason = cause.Error()
	}
	d.events.Emit(context.WithoutCancel(ctx), eventstore.DaemonStopped(reason))
	for _, u := range d.events.Summary(3) {
		slog.Info("Tag usage", logfields.TagID(u.TagID), slog.Int("insertions", u.Insertions), slog.Int("launches", u.Launches))
	}
	slog.Info(version.Banner() + " stopped")
}

func (d *Daemon) drainSettings() {
	if d.updates == nil {
		return
	}
	select {
	case s := <-d.updates:
		d.ApplySettings(s)
	default:
	}
}

// ApplySettings swaps in reloaded settings. A new serial port takes effect
// on the next reconnect.
func (d *Daemon) ApplySettings(s config.Settings) {
	if s.SerialPort != d.settings.SerialPort {
		slog.Info("Serial port changed, used on next reconnect", logfields.Port(s.SerialPort))
		d.link.SetPort(s.SerialPort)
	}
	d.sup.SetBuilder(supervisor.BuilderFor(s))
	if e, ok := d.editor.(*desktop.SpawnEditor); ok {
		e.Command = s.EditorCommand
		e.Enabled = s.AutoLaunchManager
	}
	if n, ok := d.notifier.(*desktop.NotifySend); ok {
		n.Timeout = s.NotificationTimeoutDuration()
		n.Icon = s.NotificationIcon
	}
	d.settings = s
	slog.Info("Settings applied")
}
