// Package eventbus announces daemon events on NATS so other hosts and tools
// can follow tag activity.
package eventbus

import (
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/ItsDanik/rfidisk/internal/eventstore"
	"github.com/ItsDanik/rfidisk/internal/foundation/errors"
)

// Publisher sends each event to "<prefix>.<event_type>". A nil *Publisher
// discards events.
type Publisher struct {
	conn    *nats.Conn
	prefix  string
	publish func(subject string, data []byte) error
}

// Connect dials url. The connection retries in the background, so a broker
// that is down at startup is not an error.
func Connect(url, prefix string) (*Publisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("rfidisk"),
		nats.Timeout(2*time.Second),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("NATS disconnected", slog.String("error", err.Error()))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			slog.Info("NATS reconnected", slog.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, errors.NewError(errors.CategoryDaemon, "failed to connect to NATS").
			WithSeverity(errors.SeverityWarning).
			WithCause(err).
			WithContext("url", url).
			Build()
	}
	slog.Info("NATS event publishing enabled", slog.String("url", url), slog.String("subject", prefix))
	return newPublisher(conn, prefix, conn.Publish), nil
}

func newPublisher(conn *nats.Conn, prefix string, publish func(string, []byte) error) *Publisher {
	return &Publisher{conn: conn, prefix: strings.TrimSuffix(prefix, "."), publish: publish}
}

// Subject returns the subject used for eventType.
func (p *Publisher) Subject(eventType string) string {
	return p.prefix + "." + toSnake(eventType)
}

// Publish sends r. Delivery is best-effort.
func (p *Publisher) Publish(r eventstore.Record) error {
	if p == nil {
		return nil
	}
	data, err := r.Payload()
	if err != nil {
		return err
	}
	if err := p.publish(p.Subject(r.Type), data); err != nil {
		return errors.NewError(errors.CategoryDaemon, "failed to publish event").
			WithSeverity(errors.SeverityWarning).
			WithCause(err).
			WithContext("type", r.Type).
			Build()
	}
	return nil
}

// Close flushes pending messages and closes the connection.
func (p *Publisher) Close() error {
	if p == nil || p.conn == nil {
		return nil
	}
	err := p.conn.FlushTimeout(time.Second)
	p.conn.Close()
	return err
}

// toSnake converts CamelCase event types to snake_case subject tokens.
func toSnake(s string) string {
	var b strings.Builder
	for i, r := range s {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				b.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		b.WriteRune(r)
	}
	return b.String()
}
