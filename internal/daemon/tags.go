package daemon

import (
	"context"
	stdErrors "errors"
	"log/slog"
	"strings"
	"time"

	"github.com/ItsDanik/rfidisk/internal/desktop"
	"github.com/ItsDanik/rfidisk/internal/display"
	"github.com/ItsDanik/rfidisk/internal/eventstore"
	"github.com/ItsDanik/rfidisk/internal/link"
	"github.com/ItsDanik/rfidisk/internal/logfields"
	"github.com/ItsDanik/rfidisk/internal/metrics"
	"github.com/ItsDanik/rfidisk/internal/registry"
	"github.com/ItsDanik/rfidisk/internal/state"
)

// HandleLine dispatches one device line. Lines are dropped while a reconnect
// is in progress. Only fatal errors are returned.
func (d *Daemon) HandleLine(ctx context.Context, line string) error {
	if d.st.Reconnecting {
		slog.Debug("Ignoring line during reconnect", logfields.Line(line))
		return nil
	}
	ev := link.ParseEvent(line)
	switch ev.Kind {
	case link.EventInsert:
		return d.HandleInsert(ctx, ev.TagID)
	case link.EventRemove:
		return d.HandleRemove(ctx, ev.TagID)
	default:
		slog.Debug("Ignoring unrecognized line", logfields.Line(line))
		return nil
	}
}

// HandleInsert reacts to a tag being placed on the reader.
func (d *Daemon) HandleInsert(ctx context.Context, id string) error {
	d.recorder.IncTagEvent("insert")

	if id == d.st.ActiveTagID && d.st.Owns() {
		if d.sup.Alive() {
			slog.Debug("Tag already active with running app", logfields.TagID(id))
			return nil
		}
		d.appExited(ctx)
	}

	slog.Info("Tag inserted", logfields.TagID(id))
	d.events.Emit(ctx, eventstore.TagInserted(id))

	reg := d.reloadRegistry()
	cfg, known := reg.Lookup(id)
	if !known {
		return d.registerUnknown(ctx, reg, id)
	}

	if d.st.Owns() && d.st.ActiveTagID != id {
		slog.Info("Closing previous app", logfields.TagID(d.st.ActiveTagID))
		d.terminateOwned(ctx)
		d.clock.Sleep(d.opts.SwitchSettle)
	}
	if d.st.ActiveTagID != id {
		d.clearPendingLoad()
	}
	d.st.ActiveTagID = id

	if cfg.NeedsConfiguration() {
		slog.Warn("Tag has no command", logfields.TagID(id))
		opened := d.openEditor(id)
		return d.publisher.Publish(ctx, display.ConfigNeeded(id, opened), registry.IconNone)
	}

	if err := d.publisher.Publish(ctx, cfg.Lines(), cfg.Icon()); err != nil {
		return err
	}
	if d.st.ActiveTagID != id {
		// A reconnect during the publish ran recovery, which reset the state.
		return nil
	}
	if d.st.Owns() {
		slog.Info("App already launched, not relaunching", logfields.TagID(id))
		return nil
	}
	if !d.settings.AutolaunchOn() {
		d.deferLaunch(id, cfg.Command)
		return nil
	}
	d.launch(ctx, id, cfg)
	return nil
}

func (d *Daemon) registerUnknown(ctx context.Context, reg *registry.Registry, id string) error {
	if d.st.Owns() {
		slog.Info("Closing previous app", logfields.TagID(d.st.ActiveTagID))
		d.terminateOwned(ctx)
		d.clock.Sleep(d.opts.SwitchSettle)
	}
	d.clearPendingLoad()

	next := reg.WithPlaceholder(id)
	if err := d.registry.Save(next); err != nil {
		slog.Warn("Failed to save placeholder entry", logfields.TagID(id), logfields.Error(err))
	}
	d.st.ActiveTagID = id
	slog.Info("New tag", logfields.TagID(id))
	d.events.Emit(ctx, eventstore.TagRegistered(id))

	opened := d.openEditor(id)
	cfg, _ := next.Lookup(id)
	lines := cfg.Lines()
	lines[2] = display.EditHint(opened)
	if err := d.publisher.Publish(ctx, lines, registry.IconNone); err != nil {
		return err
	}
	d.notify("New Tag", "Tag "+id+" added")
	return nil
}

func (d *Daemon) reloadRegistry() *registry.Registry {
	reg, err := d.registry.Reload()
	if err != nil {
		slog.Warn("Tags file unreadable, using last known tags", logfields.Error(err))
	}
	return reg
}

func (d *Daemon) openEditor(id string) bool {
	if err := d.editor.Open(id); err != nil {
		if stdErrors.Is(err, desktop.ErrEditorDisabled) {
			slog.Debug("Tag editor launch disabled", logfields.TagID(id))
		} else {
			slog.Warn("Could not open tag editor", logfields.TagID(id), logfields.Error(err))
		}
		return false
	}
	return true
}

func (d *Daemon) deferLaunch(id, command string) {
	d.st.PendingLoadCommand = command
	if err := d.load.SetPending(command); err != nil {
		slog.Warn("Failed to write load file", logfields.Error(err))
	}
	slog.Info("Autolaunch disabled, waiting for load trigger", logfields.TagID(id), logfields.Command(command))
}

func (d *Daemon) clearPendingLoad() {
	d.st.PendingLoadCommand = ""
	if err := d.load.Clear(); err != nil {
		slog.Warn("Failed to clear load file", logfields.Error(err))
	}
}

// launch starts cfg.Command for id. A failure leaves the tag displayed but
// unlaunched.
func (d *Daemon) launch(ctx context.Context, id string, cfg registry.TagConfig) {
	h, err := d.sup.Launch(cfg.Command)
	if err != nil {
		slog.Error("Launch failed", logfields.TagID(id), logfields.Command(cfg.Command), logfields.Error(err))
		d.recorder.IncLaunch(metrics.ResultFailed)
		d.events.Emit(ctx, eventstore.AppLaunchFailed(id, cfg.Command, err))
		d.notify("Error", "Failed: "+cfg.Line1)
		return
	}
	d.recorder.IncLaunch(metrics.ResultSuccess)
	d.recorder.SetAppRunning(true)
	d.events.Emit(ctx, eventstore.AppLaunched(id, h.PID, h.LaunchID, cfg.Command))
	d.notify("RFIDisk Inserted", cfg.Line1+"\n"+cfg.Line2)
}

// HandleRemove reacts to a tag leaving the reader. After the removal delay
// the tag must still be the active one, and must not have been put back
// during the delay, for its app to be closed.
func (d *Daemon) HandleRemove(ctx context.Context, id string) error {
	d.recorder.IncTagEvent("remove")
	if id != d.st.ActiveTagID {
		slog.Debug("Ignoring removal of inactive tag", logfields.TagID(id))
		return nil
	}

	if delay := d.settings.RemovalDelayDuration(); delay > 0 {
		slog.Info("Tag removed, waiting", logfields.TagID(id), slog.Duration("delay", delay))
		if d.debounce(id, delay) {
			slog.Info("Tag re-inserted during removal delay", logfields.TagID(id))
			return nil
		}
	}
	if d.st.ActiveTagID != id {
		return nil
	}

	d.terminateOwned(ctx)
	d.st.ClearActive()
	d.clearPendingLoad()
	d.events.Emit(ctx, eventstore.TagRemoved(id))
	slog.Info("App closed", logfields.TagID(id))
	return d.publisher.Idle(ctx)
}

// debounce sleeps for delay in tick-sized slices, buffering any lines the
// device sends meanwhile. It reports whether the last event seen for id was
// a re-insertion.
func (d *Daemon) debounce(id string, delay time.Duration) bool {
	reinserted := false
	slice := d.opts.Tick
	if slice <= 0 {
		slice = delay
	}
	for remaining := delay; remaining > 0; remaining -= slice {
		d.clock.Sleep(min(slice, remaining))
		for {
			line, ok, err := d.link.ReadLine()
			if err != nil || !ok {
				break
			}
			d.backlog = append(d.backlog, line)
			ev := link.ParseEvent(line)
			if ev.TagID != id {
				continue
			}
			switch ev.Kind {
			case link.EventInsert:
				reinserted = true
			case link.EventRemove:
				reinserted = false
			}
		}
	}
	return reinserted
}

// terminateOwned stops the app owned for the active tag, using that tag's
// terminate command when it has one.
func (d *Daemon) terminateOwned(ctx context.Context) {
	if !d.st.Owns() {
		d.sup.Release()
		return
	}
	h := *d.st.Process
	id := d.st.ActiveTagID
	cfg, _ := d.registry.Current().Lookup(id)

	method := metrics.TerminationSignal
	if strings.TrimSpace(cfg.Terminate) != "" {
		method = metrics.TerminationCustom
	}
	if err := d.sup.Terminate(cfg.Terminate); err != nil {
		slog.Warn("Termination reported an error", logfields.TagID(id), logfields.PID(h.PID), logfields.Error(err))
	}
	d.recordStopped(h, method)
	d.events.Emit(ctx, eventstore.AppTerminated(id, h.PID, h.LaunchID, string(method)))
}

// appExited forgets an owned app that ended by itself.
func (d *Daemon) appExited(ctx context.Context) {
	h := *d.st.Process
	slog.Info("App exited on its own", logfields.TagID(d.st.ActiveTagID), logfields.PID(h.PID))
	d.sup.Release()
	d.recordStopped(h, metrics.TerminationExited)
	d.events.Emit(ctx, eventstore.AppExited(d.st.ActiveTagID, h.PID, h.LaunchID))
}

func (d *Daemon) recordStopped(h state.ProcessHandle, method metrics.TerminationMethod) {
	d.recorder.IncTermination(method)
	d.recorder.SetAppRunning(false)
	if !h.StartedAt.IsZero() {
		d.recorder.ObserveAppLifetime(d.clock.Now().Sub(h.StartedAt))
	}
}

// notify sends a desktop notification unless notifications are disabled or
// a reconnect or recovery is in progress.
func (d *Daemon) notify(title, message string) {
	if !d.settings.DesktopNotifications || d.st.NotificationsSuppressed() {
		return
	}
	d.notifier.Notify(title, message)
}
