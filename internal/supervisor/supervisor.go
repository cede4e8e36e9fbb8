package supervisor

import (
	stdErrors "errors"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"

	"github.com/ItsDanik/rfidisk/internal/clock"
	"github.com/ItsDanik/rfidisk/internal/foundation/errors"
	"github.com/ItsDanik/rfidisk/internal/logfields"
	"github.com/ItsDanik/rfidisk/internal/state"
)

// Options holds the supervisor's fixed waits.
type Options struct {
	// SnapshotDelay lets a freshly launched leader fork before its tree is listed.
	SnapshotDelay time.Duration
	// TerminateGrace is how long the leader gets between SIGTERM and SIGKILL.
	TerminateGrace time.Duration
	// CustomTerminateWait is slept after starting a custom terminate command.
	CustomTerminateWait time.Duration
	// PollInterval paces leader checks during TerminateGrace.
	PollInterval time.Duration
}

func DefaultOptions() Options {
	return Options{
		SnapshotDelay:       time.Second,
		TerminateGrace:      2 * time.Second,
		CustomTerminateWait: 2 * time.Second,
		PollInterval:        100 * time.Millisecond,
	}
}

// Deps are the supervisor's OS collaborators. Tree may be nil.
type Deps struct {
	Spawner   Spawner
	Signaller Signaller
	Tree      TreeSnapshotter
	Clock     clock.Clock
}

// Supervisor launches and terminates the process group owned for the active
// tag. It records ownership in the shared runtime state.
type Supervisor struct {
	st      *state.Runtime
	deps    Deps
	opts    Options
	builder CommandBuilder

	current Process
	orphans []Process
}

func New(st *state.Runtime, deps Deps, builder CommandBuilder, opts Options) *Supervisor {
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	return &Supervisor{st: st, deps: deps, opts: opts, builder: builder}
}

// SetBuilder replaces the command builder, e.g. after a settings reload.
func (s *Supervisor) SetBuilder(b CommandBuilder) { s.builder = b }

// Launch starts command as a new process group leader and records it as
// owned. If a process is already owned the existing handle is returned.
func (s *Supervisor) Launch(command string) (*state.ProcessHandle, error) {
	if s.st.Owns() {
		slog.Info("App already launched, not relaunching", logfields.PID(s.st.Process.PID))
		return s.st.Process, nil
	}
	cmd, err := s.builder.Build(command)
	if err != nil {
		return nil, errors.LaunchError("invalid command").WithCause(err).WithContext("command", command).Build()
	}
	proc, err := s.deps.Spawner.Start(cmd)
	if err != nil {
		return nil, errors.LaunchError("failed to start command").WithCause(err).WithContext("command", command).Build()
	}

	h := &state.ProcessHandle{
		PID:       proc.Pid(),
		LaunchID:  uuid.NewString(),
		Command:   command,
		StartedAt: s.deps.Clock.Now(),
	}
	s.current = proc
	s.st.SetOwned(h)
	slog.Info("Launched", logfields.PID(h.PID), logfields.LaunchID(h.LaunchID), logfields.Command(command))

	s.deps.Clock.Sleep(s.opts.SnapshotDelay)
	if s.deps.Tree != nil {
		pids, err := s.deps.Tree.Descendants(h.PID)
		if err != nil {
			slog.Debug("Process tree snapshot unavailable", logfields.PID(h.PID), logfields.Error(err))
		} else {
			h.Descendants = pids
			slog.Debug("Process tree", logfields.PID(h.PID), slog.Any("pids", pids))
		}
	}
	return h, nil
}

// Terminate stops the owned process group. A non-empty terminateCommand is
// run instead of signalling, falling back to signals if it cannot start.
// Ownership is always cleared. The returned error is informational only.
func (s *Supervisor) Terminate(terminateCommand string) error {
	defer s.Release()

	if strings.TrimSpace(terminateCommand) != "" {
		err := s.runCustom(terminateCommand)
		if err == nil {
			return nil
		}
		slog.Warn("Custom terminate command failed, using signals", logfields.Command(terminateCommand), logfields.Error(err))
		if serr := s.terminateStandard(); serr != nil {
			return serr
		}
		return err
	}
	return s.terminateStandard()
}

func (s *Supervisor) runCustom(command string) error {
	slog.Info("Using custom terminate command", logfields.Command(command))
	cmd, err := s.builder.Build(command)
	if err != nil {
		return errors.TerminateError("invalid terminate command").WithCause(err).Build()
	}
	proc, err := s.deps.Spawner.Start(cmd)
	if err != nil {
		return errors.TerminateError("failed to start terminate command").WithCause(err).WithContext("command", command).Build()
	}
	s.orphans = append(s.orphans, proc)
	s.deps.Clock.Sleep(s.opts.CustomTerminateWait)
	return nil
}

func (s *Supervisor) terminateStandard() error {
	if s.st.Process == nil {
		return nil
	}
	pgid := s.st.Process.PGID()
	slog.Info("Standard termination", logfields.PGID(pgid))

	if err := s.deps.Signaller.SignalGroup(pgid, unix.SIGTERM); err != nil {
		if stdErrors.Is(err, ErrProcessGone) {
			slog.Debug("Process group already gone", logfields.PGID(pgid))
			return nil
		}
		return errors.TerminateError("failed to signal process group").WithCause(err).WithContext("pgid", pgid).Build()
	}

	deadline := s.deps.Clock.Now().Add(s.opts.TerminateGrace)
	for s.deps.Clock.Now().Before(deadline) {
		if s.leaderExited() {
			return nil
		}
		s.deps.Clock.Sleep(s.opts.PollInterval)
	}
	if s.leaderExited() {
		return nil
	}

	slog.Warn("Process group ignored SIGTERM, killing", logfields.PGID(pgid))
	if err := s.deps.Signaller.SignalGroup(pgid, unix.SIGKILL); err != nil && !stdErrors.Is(err, ErrProcessGone) {
		return errors.TerminateError("failed to kill process group").WithCause(err).WithContext("pgid", pgid).Build()
	}
	return nil
}

func (s *Supervisor) leaderExited() bool {
	if s.current == nil {
		return false
	}
	exited, err := s.current.Exited()
	if err != nil {
		slog.Debug("Leader status unavailable", logfields.Error(err))
		return false
	}
	return exited
}

// Alive reports whether the owned leader is still running. It reaps the
// leader if it has exited.
func (s *Supervisor) Alive() bool {
	if !s.st.Owns() || s.current == nil {
		return false
	}
	exited, err := s.current.Exited()
	if err != nil {
		slog.Debug("Leader status unavailable", logfields.PID(s.current.Pid()), logfields.Error(err))
		return true
	}
	return !exited
}

// Release forgets the owned process. An unreaped leader is kept so that
// ReapOrphans can collect it later.
func (s *Supervisor) Release() {
	if s.current != nil {
		if exited, err := s.current.Exited(); err != nil || !exited {
			s.orphans = append(s.orphans, s.current)
		}
	}
	s.current = nil
	s.st.ReleaseProcess()
}

// ReapOrphans collects exited fire-and-forget children and returns how many
// are still running.
func (s *Supervisor) ReapOrphans() int {
	remaining := s.orphans[:0]
	for _, p := range s.orphans {
		exited, err := p.Exited()
		if err != nil || exited {
			continue
		}
		remaining = append(remaining, p)
	}
	clear(s.orphans[len(remaining):])
	s.orphans = remaining
	return len(remaining)
}

// Adopt hands a fire-and-forget child to ReapOrphans.
func (s *Supervisor) Adopt(p Process) {
	if p != nil {
		s.orphans = append(s.orphans, p)
	}
}
