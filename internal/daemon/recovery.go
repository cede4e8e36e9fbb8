package daemon

import (
	"context"
	"log/slog"

	"github.com/ItsDanik/rfidisk/internal/display"
	"github.com/ItsDanik/rfidisk/internal/eventstore"
	"github.com/ItsDanik/rfidisk/internal/logfields"
	"github.com/ItsDanik/rfidisk/internal/registry"
)

// Recover restores the device screen after a reconnect. It never launches
// and never notifies: an app we own gets its tag's screen back, anything
// else returns to idle.
func (d *Daemon) Recover(ctx context.Context) error {
	d.st.RecoveryMode = true
	defer func() { d.st.RecoveryMode = false }()

	id := d.st.ActiveTagID
	d.events.Emit(ctx, eventstore.LinkRecovered(id))

	if d.st.HasActiveTag() && d.st.Owns() {
		reg := d.reloadRegistry()
		cfg, ok := reg.Lookup(id)
		if !ok {
			slog.Warn("Active tag missing from tags file", logfields.TagID(id))
			return d.publisher.Publish(ctx, display.StateError(id), registry.IconNone)
		}
		slog.Info("Restored display after reconnect", logfields.TagID(id))
		return d.publisher.Publish(ctx, cfg.Lines(), cfg.Icon())
	}

	d.st.ClearActive()
	d.clearPendingLoad()
	slog.Info("Restored ready state after reconnect")
	return d.publisher.Idle(ctx)
}
