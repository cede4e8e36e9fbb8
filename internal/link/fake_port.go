package link

import (
	stdErrors "errors"
	"strings"
	"sync"
	"time"
)

// ErrPortClosed is returned by FakePort after Close.
var ErrPortClosed = stdErrors.New("port closed")

// FakePort is an in-memory Port for tests. Bytes fed before a
// ResetInputBuffer call are discarded by it, like boot noise on real hardware.
type FakePort struct {
	mu       sync.Mutex
	in       []byte
	onReset  []byte
	out      strings.Builder
	readErr  error
	writeErr error
	closed   bool
	resets   int
	timeout  time.Duration
}

// NewFakePort returns a port that answers the handshake after its input is reset.
func NewFakePort() *FakePort {
	return &FakePort{onReset: []byte(HandshakeToken + "\n")}
}

// Silent makes the port skip the handshake reply.
func (p *FakePort) Silent() *FakePort {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.onReset = nil
	return p
}

// Feed appends raw bytes to the input stream.
func (p *FakePort) Feed(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.in = append(p.in, s...)
}

// FeedLine appends s and a newline.
func (p *FakePort) FeedLine(s string) { p.Feed(s + "\n") }

// FailReads makes every subsequent Read return err. nil clears it.
func (p *FakePort) FailReads(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.readErr = err
}

// FailWrites makes every subsequent Write return err. nil clears it.
func (p *FakePort) FailWrites(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.writeErr = err
}

// Written returns every line written so far, without newlines.
func (p *FakePort) Written() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := strings.TrimSuffix(p.out.String(), "\n")
	if s == "" {
		return nil
	}
	return strings.Split(s, "\n")
}

// Closed reports whether Close was called.
func (p *FakePort) Closed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// Resets counts ResetInputBuffer calls.
func (p *FakePort) Resets() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resets
}

func (p *FakePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, ErrPortClosed
	}
	if p.readErr != nil {
		return 0, p.readErr
	}
	n := copy(b, p.in)
	p.in = p.in[n:]
	return n, nil
}

func (p *FakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return 0, ErrPortClosed
	}
	if p.writeErr != nil {
		return 0, p.writeErr
	}
	p.out.Write(b)
	return len(b), nil
}

func (p *FakePort) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *FakePort) ResetInputBuffer() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resets++
	p.in = append([]byte(nil), p.onReset...)
	return nil
}

func (p *FakePort) SetReadTimeout(t time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.timeout = t
	return nil
}

// FakeDevice hands out queued open results. When the queue is empty every
// Open succeeds with a fresh FakePort.
type FakeDevice struct {
	mu     sync.Mutex
	queue  []openResult
	opened []*FakePort
	names  []string
}

type openResult struct {
	port *FakePort
	err  error
}

// NewFakeDevice returns an empty device.
func NewFakeDevice() *FakeDevice { return &FakeDevice{} }

// QueuePort makes the next Open return p.
func (d *FakeDevice) QueuePort(p *FakePort) *FakeDevice {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queue = append(d.queue, openResult{port: p})
	return d
}

// QueueFailure makes the next n Opens fail with err.
func (d *FakeDevice) QueueFailure(err error, n int) *FakeDevice {
	d.mu.Lock()
	defer d.mu.Unlock()
	for range n {
		d.queue = append(d.queue, openResult{err: err})
	}
	return d
}

// Open implements Opener.
func (d *FakeDevice) Open(name string) (Port, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.names = append(d.names, name)
	var r openResult
	if len(d.queue) > 0 {
		r = d.queue[0]
		d.queue = d.queue[1:]
	} else {
		r = openResult{port: NewFakePort()}
	}
	if r.err != nil {
		return nil, r.err
	}
	d.opened = append(d.opened, r.port)
	return r.port, nil
}

// Opens returns how many times Open was called, failures included.
func (d *FakeDevice) Opens() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.names)
}

// Current returns the most recently opened port, or nil.
func (d *FakeDevice) Current() *FakePort {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.opened) == 0 {
		return nil
	}
	return d.opened[len(d.opened)-1]
}
