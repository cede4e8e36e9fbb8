package display

import (
	"context"
	"log/slog"

	"github.com/ItsDanik/rfidisk/internal/foundation/errors"
	"github.com/ItsDanik/rfidisk/internal/logfields"
	"github.com/ItsDanik/rfidisk/internal/state"
)

// Link is the part of the serial link manager the publisher drives.
type Link interface {
	WriteLine(line string) error
	Reconnect(ctx context.Context) error
	Reconnecting() bool
}

// Mirror receives every published screen, untruncated.
type Mirror interface {
	Write(lines state.Lines) error
}

// Publisher sends screens to the device and mirrors them to shared memory.
type Publisher struct {
	link   Link
	mirror Mirror
	st     *state.Runtime
}

func NewPublisher(link Link, mirror Mirror, st *state.Runtime) *Publisher {
	return &Publisher{link: link, mirror: mirror, st: st}
}

// Publish shows lines with icon. The mirror is always written first and a
// serial failure only triggers a reconnect; the returned error is non-nil
// only when that reconnect gave up for good.
func (p *Publisher) Publish(ctx context.Context, lines state.Lines, icon string) error {
	p.st.LastDisplay = lines
	p.st.LastDisplayIcon = icon

	if err := p.mirror.Write(lines); err != nil {
		slog.Warn("Failed to update display mirror", logfields.Error(err))
	}

	wire := Format(lines, icon)
	slog.Debug("Display", logfields.Line(wire))
	if err := p.link.WriteLine(wire); err != nil {
		slog.Warn("Display write failed", logfields.Error(err))
		if p.link.Reconnecting() {
			return nil
		}
		if rerr := p.link.Reconnect(ctx); rerr != nil && errors.IsFatal(rerr) {
			return rerr
		}
	}
	return nil
}

// Idle publishes the ready screen.
func (p *Publisher) Idle(ctx context.Context) error {
	return p.Publish(ctx, Idle(), "0")
}
