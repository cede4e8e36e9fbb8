package supervisor

import (
	stdErrors "errors"
	"os"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/ItsDanik/rfidisk/internal/foundation/errors"
)

// ErrProcessGone reports that the target process or group no longer exists.
var ErrProcessGone = errors.ProcessLookupError("process already gone").Build()

// Process is a started child that can be reaped without blocking.
type Process interface {
	Pid() int
	// Exited reaps the child if it has terminated and reports whether it has.
	Exited() (bool, error)
}

// Spawner starts commands as leaders of new process groups.
type Spawner interface {
	Start(cmd Command) (Process, error)
}

// Signaller delivers signals to whole process groups.
type Signaller interface {
	SignalGroup(pgid int, sig unix.Signal) error
}

// ExecSpawner starts real processes. Children inherit the daemon's stdout and
// stderr.
type ExecSpawner struct{}

func (ExecSpawner) Start(cmd Command) (Process, error) {
	c := exec.Command(cmd.Program, cmd.Args...)
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	c.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := c.Start(); err != nil {
		return nil, err
	}
	pid := c.Process.Pid
	// Reaping goes through wait4 on the pid from here on.
	_ = c.Process.Release()
	return &osProcess{pid: pid}, nil
}

type osProcess struct {
	pid    int
	exited bool
}

func (p *osProcess) Pid() int { return p.pid }

func (p *osProcess) Exited() (bool, error) {
	if p.exited {
		return true, nil
	}
	var ws unix.WaitStatus
	wpid, err := unix.Wait4(p.pid, &ws, unix.WNOHANG, nil)
	switch {
	case stdErrors.Is(err, unix.ECHILD):
		p.exited = true
		return true, nil
	case err != nil:
		return false, err
	case wpid == p.pid:
		p.exited = true
		return true, nil
	default:
		return false, nil
	}
}

// UnixSignaller signals process groups with kill(2).
type UnixSignaller struct{}

func (UnixSignaller) SignalGroup(pgid int, sig unix.Signal) error {
	if pgid <= 0 {
		return ErrProcessGone
	}
	if err := unix.Kill(-pgid, sig); err != nil {
		if stdErrors.Is(err, unix.ESRCH) {
			return ErrProcessGone
		}
		return err
	}
	return nil
}
