package supervisor

import (
	"sync"

	"golang.org/x/sys/unix"
)

// FakeOS is an in-memory Spawner, Signaller and TreeSnapshotter for tests.
// Started processes exit on SIGTERM unless told to ignore it, and always on
// SIGKILL.
type FakeOS struct {
	mu       sync.Mutex
	nextPID  int
	procs    map[int]*FakeProcess
	started  []Command
	signals  []SentSignal
	failNext []error
}

// SentSignal records one SignalGroup call.
type SentSignal struct {
	PGID   int
	Signal unix.Signal
}

func NewFakeOS() *FakeOS {
	return &FakeOS{nextPID: 1000, procs: make(map[int]*FakeProcess)}
}

// FailNextStart makes the next Start return err.
func (f *FakeOS) FailNextStart(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failNext = append(f.failNext, err)
}

func (f *FakeOS) Start(cmd Command) (Process, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.failNext) > 0 {
		err := f.failNext[0]
		f.failNext = f.failNext[1:]
		return nil, err
	}
	f.nextPID++
	p := &FakeProcess{pid: f.nextPID, cmd: cmd, os: f}
	f.procs[p.pid] = p
	f.started = append(f.started, cmd)
	return p, nil
}

func (f *FakeOS) SignalGroup(pgid int, sig unix.Signal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signals = append(f.signals, SentSignal{PGID: pgid, Signal: sig})
	p, ok := f.procs[pgid]
	if !ok || p.exited {
		return ErrProcessGone
	}
	if sig == unix.SIGKILL || (sig == unix.SIGTERM && !p.ignoreTerm) {
		p.exited = true
	}
	return nil
}

func (f *FakeOS) Descendants(root int) ([]int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.procs[root]; !ok {
		return nil, ErrProcessGone
	}
	return []int{root, root + 10000}, nil
}

// Started returns every command started, in order.
func (f *FakeOS) Started() []Command {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Command(nil), f.started...)
}

// Signals returns every signal sent, in order.
func (f *FakeOS) Signals() []SentSignal {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SentSignal(nil), f.signals...)
}

// Process returns the fake started with pid, or nil.
func (f *FakeOS) Process(pid int) *FakeProcess {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.procs[pid]
}

// Deps returns supervisor dependencies backed by f.
func (f *FakeOS) Deps() Deps {
	return Deps{Spawner: f, Signaller: f, Tree: f}
}

// FakeProcess is a process started by FakeOS.
type FakeProcess struct {
	pid        int
	cmd        Command
	os         *FakeOS
	exited     bool
	ignoreTerm bool
}

func (p *FakeProcess) Pid() int { return p.pid }

func (p *FakeProcess) Exited() (bool, error) {
	p.os.mu.Lock()
	defer p.os.mu.Unlock()
	return p.exited, nil
}

// Command returns what the process was started from.
func (p *FakeProcess) Command() Command { return p.cmd }

// Exit makes the process terminate on its own.
func (p *FakeProcess) Exit() {
	p.os.mu.Lock()
	defer p.os.mu.Unlock()
	p.exited = true
}

// IgnoreTerm makes the process survive SIGTERM.
func (p *FakeProcess) IgnoreTerm() {
	p.os.mu.Lock()
	defer p.os.mu.Unlock()
	p.ignoreTerm = true
}
