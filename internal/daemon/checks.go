package daemon

import (
	"context"
	"log/slog"

	"github.com/ItsDanik/rfidisk/internal/eventstore"
	"github.com/ItsDanik/rfidisk/internal/logfields"
)

// checkLiveness reaps finished helpers and notices an owned app that exited
// by itself. The tag stays displayed so a trigger or re-insertion can
// relaunch it.
func (d *Daemon) checkLiveness(ctx context.Context) {
	if n := d.sup.ReapOrphans(); n > 0 {
		slog.Debug("Helper processes still running", slog.Int("count", n))
	}
	if d.st.Owns() && !d.sup.Alive() {
		d.appExited(ctx)
	}
}

// checkLoadTrigger launches the pending command when an external --load
// asked for it. The trigger is consumed whether or not it can be honoured.
func (d *Daemon) checkLoadTrigger(ctx context.Context) error {
	req, ok, err := d.load.Read()
	if err != nil {
		slog.Warn("Failed to read load file", logfields.Error(err))
		return nil
	}
	if !ok || !req.Triggered {
		return nil
	}
	if err := d.load.Acknowledge(req.Command); err != nil {
		slog.Warn("Failed to clear load trigger", logfields.Error(err))
	}
	if req.Command == "" {
		return nil
	}

	id := d.st.ActiveTagID
	if !d.st.HasActiveTag() || d.st.Owns() {
		slog.Info("Ignoring load trigger", logfields.TagID(id), slog.Bool("app_running", d.st.Owns()))
		return nil
	}

	cfg, _ := d.registry.Current().Lookup(id)
	cfg.Command = req.Command
	slog.Info("Load trigger received", logfields.TagID(id), logfields.Command(req.Command))
	d.recorder.IncLoadTrigger()
	d.events.Emit(ctx, eventstore.LoadTriggered(id, req.Command))
	d.launch(ctx, id, cfg)
	return nil
}
