package link

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/ItsDanik/rfidisk/internal/clock"
	"github.com/ItsDanik/rfidisk/internal/foundation/errors"
	"github.com/ItsDanik/rfidisk/internal/logfields"
	"github.com/ItsDanik/rfidisk/internal/state"
)

// HandshakeToken is the substring the device prints once it is ready.
const HandshakeToken = "OK"

// MaxPendingBytes caps buffered input without a newline. Past it the partial
// line is dropped.
const MaxPendingBytes = 4096

// Options tunes the manager's timing. Zero values are not defaulted; use
// DefaultOptions and override.
type Options struct {
	// BootDelay is waited after opening the port; opening resets the
	// microcontroller, which prints boot noise before it is ready.
	BootDelay time.Duration
	// HandshakeTimeout bounds the wait for HandshakeToken. Expiry is a
	// degraded but successful connect.
	HandshakeTimeout time.Duration
	// Backoff is slept before each reconnect attempt.
	Backoff time.Duration
	// RecoverySettle is slept after a successful reconnect, before recovery runs.
	RecoverySettle time.Duration
	// PollInterval is slept between handshake read attempts.
	PollInterval time.Duration
	// ReadTimeout keeps reads effectively non-blocking.
	ReadTimeout time.Duration
	// MaxErrors is the consecutive failure budget; exceeding it is fatal.
	MaxErrors int
}

// DefaultOptions returns the device's timing.
func DefaultOptions() Options {
	return Options{
		BootDelay:        2500 * time.Millisecond,
		HandshakeTimeout: 3 * time.Second,
		Backoff:          2 * time.Second,
		RecoverySettle:   500 * time.Millisecond,
		PollInterval:     50 * time.Millisecond,
		ReadTimeout:      10 * time.Millisecond,
		MaxErrors:        5,
	}
}

// RecoveryFunc runs once after every successful reconnect that followed a failure.
type RecoveryFunc func(ctx context.Context) error

// Observer receives link lifecycle notifications (metrics).
type Observer interface {
	LinkConnected(handshake bool)
	LinkReconnectAttempt()
	LinkGaveUp()
}

type noopObserver struct{}

func (noopObserver) LinkConnected(bool)    {}
func (noopObserver) LinkReconnectAttempt() {}
func (noopObserver) LinkGaveUp()           {}

// Manager owns the serial connection to the device.
type Manager struct {
	portName string
	open     Opener
	st       *state.Runtime
	clock    clock.Clock
	opts     Options
	recover  RecoveryFunc
	observer Observer

	conn    Port
	pending []byte
	readBuf []byte
}

// NewManager creates a manager for portName. st receives the error count
// and the reconnecting flag.
func NewManager(portName string, open Opener, st *state.Runtime, clk clock.Clock, opts Options) *Manager {
	return &Manager{
		portName: portName,
		open:     open,
		st:       st,
		clock:    clk,
		opts:     opts,
		observer: noopObserver{},
		readBuf:  make([]byte, 256),
	}
}

// SetRecovery installs the recovery controller.
func (m *Manager) SetRecovery(fn RecoveryFunc) { m.recover = fn }

// SetObserver installs a lifecycle observer. nil restores the no-op observer.
func (m *Manager) SetObserver(o Observer) {
	if o == nil {
		o = noopObserver{}
	}
	m.observer = o
}

// SetPort changes the port used by the next (re)connect.
func (m *Manager) SetPort(name string) { m.portName = name }

// PortName returns the configured port.
func (m *Manager) PortName() string { return m.portName }

// Connected reports whether a port is open.
func (m *Manager) Connected() bool { return m.conn != nil }

// Reconnecting reports whether a reconnect cycle is in progress.
func (m *Manager) Reconnecting() bool { return m.st.Reconnecting }

// Connect opens the port, discards boot noise and waits for the handshake.
// A missing handshake is logged and treated as success. If a reconnect cycle
// is in progress, recovery runs before Connect returns.
func (m *Manager) Connect(ctx context.Context) error {
	m.closeConn()
	slog.Info("Connecting to serial port", logfields.Port(m.portName))

	p, err := m.open(m.portName)
	if err != nil {
		return errors.LinkError("failed to open serial port").
			WithCause(err).
			WithContext("port", m.portName).
			Build()
	}
	m.conn = p
	if err := p.SetReadTimeout(m.opts.ReadTimeout); err != nil {
		slog.Debug("Failed to set serial read timeout", logfields.Error(err))
	}

	m.clock.Sleep(m.opts.BootDelay)
	if err := p.ResetInputBuffer(); err != nil {
		slog.Debug("Failed to discard boot noise", logfields.Error(err))
	}
	m.pending = m.pending[:0]

	handshake, err := m.awaitHandshake()
	if err != nil {
		m.closeConn()
		return err
	}
	if handshake {
		slog.Info("Device ready", logfields.Port(m.portName))
	} else {
		slog.Warn("Connected without handshake", logfields.Port(m.portName))
	}
	m.st.SerialErrorCount = 0
	m.observer.LinkConnected(handshake)

	if !m.st.Reconnecting {
		return nil
	}
	m.clock.Sleep(m.opts.RecoverySettle)
	var recErr error
	if m.recover != nil {
		recErr = m.recover(ctx)
	}
	m.st.Reconnecting = false
	return recErr
}

func (m *Manager) awaitHandshake() (bool, error) {
	deadline := m.clock.Now().Add(m.opts.HandshakeTimeout)
	for m.clock.Now().Before(deadline) {
		line, ok, err := m.ReadLine()
		if err != nil {
			return false, err
		}
		if !ok {
			m.clock.Sleep(m.opts.PollInterval)
			continue
		}
		if strings.Contains(line, HandshakeToken) {
			return true, nil
		}
		slog.Debug("Discarding pre-handshake line", logfields.Line(line))
	}
	return false, nil
}

// ReadLine returns the next complete line if one is available without
// blocking. Any I/O failure is a LinkError; the caller must Reconnect.
func (m *Manager) ReadLine() (string, bool, error) {
	if m.conn == nil {
		return "", false, errors.LinkError("serial port not connected").WithContext("port", m.portName).Build()
	}
	if line, ok := m.popLine(); ok {
		return line, true, nil
	}
	n, err := m.conn.Read(m.readBuf)
	if err != nil {
		return "", false, errors.LinkError("serial read failed").WithCause(err).WithContext("port", m.portName).Build()
	}
	m.pending = append(m.pending, m.readBuf[:n]...)
	line, ok := m.popLine()
	if !ok && len(m.pending) > MaxPendingBytes {
		slog.Warn("Dropping unterminated serial input", logfields.Port(m.portName), slog.Int("bytes", len(m.pending)))
		m.pending = m.pending[:0]
	}
	return line, ok, nil
}

func (m *Manager) popLine() (string, bool) {
	for {
		raw, rest, ok := splitLine(m.pending)
		if !ok {
			return "", false
		}
		m.pending = rest
		if line := decodeLine(raw); line != "" {
			m.st.SerialErrorCount = 0
			return line, true
		}
	}
}

// WriteLine sends line followed by a newline.
func (m *Manager) WriteLine(line string) error {
	if m.conn == nil {
		return errors.LinkError("serial port not connected").WithContext("port", m.portName).Build()
	}
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	data := []byte(line)
	for len(data) > 0 {
		n, err := m.conn.Write(data)
		if err != nil {
			return errors.LinkError("serial write failed").WithCause(err).WithContext("port", m.portName).Build()
		}
		data = data[n:]
	}
	return nil
}

// Reconnect closes the port, backs off and connects again. Every call counts
// against the failure budget; once it is exceeded Reconnect returns a fatal
// LinkError and the daemon must exit. A failed attempt returns a retryable
// LinkError and leaves Reconnecting set.
func (m *Manager) Reconnect(ctx context.Context) error {
	m.st.SerialErrorCount++
	m.st.Reconnecting = true
	attempt := m.st.SerialErrorCount

	if attempt > m.opts.MaxErrors {
		m.closeConn()
		m.observer.LinkGaveUp()
		slog.Error("Too many serial errors, giving up", logfields.Attempt(attempt), logfields.Port(m.portName))
		return errors.LinkError("too many serial errors").
			Fatal().
			WithContext("attempts", attempt).
			WithContext("port", m.portName).
			Build()
	}

	slog.Warn("Attempting to reconnect", logfields.Attempt(attempt), logfields.Port(m.portName))
	m.observer.LinkReconnectAttempt()
	m.closeConn()
	m.clock.Sleep(m.opts.Backoff)
	if err := m.Connect(ctx); err != nil {
		if !errors.IsFatal(err) {
			slog.Warn("Reconnect attempt failed", logfields.Attempt(attempt), logfields.Error(err))
		}
		return err
	}
	return nil
}

// Close releases the port.
func (m *Manager) Close() error {
	if m.conn == nil {
		return nil
	}
	err := m.conn.Close()
	m.conn = nil
	return err
}

func (m *Manager) closeConn() {
	if m.conn == nil {
		return
	}
	if err := m.conn.Close(); err != nil {
		slog.Debug("Error closing serial port", logfields.Error(err))
	}
	m.conn = nil
}
