package daemon

import (
	"context"
	"log/slog"

	"github.com/ItsDanik/rfidisk/internal/clock"
	"github.com/ItsDanik/rfidisk/internal/eventbus"
	"github.com/ItsDanik/rfidisk/internal/eventstore"
	"github.com/ItsDanik/rfidisk/internal/logfields"
)

// EventEmitter fans daemon events out to the journal, the usage projection
// and the NATS bus. Every sink is optional and a nil *EventEmitter drops
// events. Failures are logged and never interrupt the loop.
type EventEmitter struct {
	sessionID  string
	store      eventstore.Store
	projection *eventstore.UsageProjection
	bus        *eventbus.Publisher
	clock      clock.Clock
}

// NewEventEmitter creates an emitter recording under sessionID.
func NewEventEmitter(sessionID string, store eventstore.Store, projection *eventstore.UsageProjection, bus *eventbus.Publisher, clk clock.Clock) *EventEmitter {
	if clk == nil {
		clk = clock.Real()
	}
	return &EventEmitter{
		sessionID:  sessionID,
		store:      store,
		projection: projection,
		bus:        bus,
		clock:      clk,
	}
}

// SessionID returns the id of this daemon run.
func (e *EventEmitter) SessionID() string {
	if e == nil {
		return ""
	}
	return e.sessionID
}

// Emit timestamps r and delivers it to every configured sink.
func (e *EventEmitter) Emit(ctx context.Context, r eventstore.Record) {
	if e == nil {
		return
	}
	r.At = e.clock.Now()

	if e.store != nil {
		if err := e.store.Append(ctx, e.sessionID, r); err != nil {
			slog.Warn("Failed to journal event", slog.String("type", r.Type), logfields.SessionID(e.sessionID), logfields.Error(err))
		}
	}
	if e.projection != nil {
		e.projection.Apply(r)
	}
	if err := e.bus.Publish(r); err != nil {
		slog.Debug("Failed to publish event", slog.String("type", r.Type), logfields.Error(err))
	}
}

// Summary returns the n most launched tags known to the projection.
func (e *EventEmitter) Summary(n int) []eventstore.TagUsage {
	if e == nil || e.projection == nil {
		return nil
	}
	return e.projection.Top(n)
}

// Close releases the journal and the bus connection.
func (e *EventEmitter) Close() error {
	if e == nil {
		return nil
	}
	if err := e.bus.Close(); err != nil {
		slog.Debug("NATS close", logfields.Error(err))
	}
	if e.store != nil {
		return e.store.Close()
	}
	return nil
}
