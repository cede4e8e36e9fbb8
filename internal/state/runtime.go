package state

import (
	"fmt"
	"slices"
	"time"
)

// Lines is the four-line text shown on the device.
type Lines [4]string

// ProcessHandle describes the process group the daemon launched for the
// active tag.
type ProcessHandle struct {
	// PID of the group leader. The leader's PID is also the group id.
	PID int
	// LaunchID correlates log lines and journal events for one launch.
	LaunchID string
	// Command is the command string the leader was started from.
	Command string
	// Descendants is the best-effort snapshot of the leader's process tree
	// (leader included) taken shortly after launch. Diagnostic only.
	Descendants []int
	StartedAt   time.Time
}

// PGID returns the process group id signalled on termination.
func (h *ProcessHandle) PGID() int { return h.PID }

// Runtime is the daemon's single mutable state. It is owned by the main loop
// and handed by pointer to each component; nothing else may retain it.
type Runtime struct {
	ActiveTagID     string
	AppLaunchedByUs bool
	Process         *ProcessHandle

	RecoveryMode bool
	Reconnecting bool

	SerialErrorCount int

	LastDisplay     Lines
	LastDisplayIcon string

	PendingLoadCommand string
}

// New returns the steady-state runtime.
func New() *Runtime {
	return &Runtime{}
}

// HasActiveTag reports whether a tag is currently considered inserted.
func (r *Runtime) HasActiveTag() bool { return r.ActiveTagID != "" }

// Owns reports whether the daemon owns a live-believed process for the active tag.
func (r *Runtime) Owns() bool { return r.AppLaunchedByUs && r.Process != nil }

// SetOwned records a freshly launched process for the active tag.
func (r *Runtime) SetOwned(h *ProcessHandle) {
	r.Process = h
	r.AppLaunchedByUs = h != nil
}

// ReleaseProcess forgets the owned process without touching the active tag.
func (r *Runtime) ReleaseProcess() {
	r.Process = nil
	r.AppLaunchedByUs = false
}

// ClearActive drops the active tag and any pending load.
func (r *Runtime) ClearActive() {
	r.ActiveTagID = ""
	r.PendingLoadCommand = ""
}

// NotificationsSuppressed is true while a reconnect or recovery is in progress.
func (r *Runtime) NotificationsSuppressed() bool {
	return r.RecoveryMode || r.Reconnecting
}

// Snapshot returns a deep copy for tests and status reporting.
func (r *Runtime) Snapshot() Runtime {
	out := *r
	if r.Process != nil {
		p := *r.Process
		p.Descendants = slices.Clone(r.Process.Descendants)
		out.Process = &p
	}
	return out
}

// Validate checks the ownership invariants.
func (r *Runtime) Validate() error {
	if r.AppLaunchedByUs && r.Process == nil {
		return fmt.Errorf("app_launched_by_us set without a process handle")
	}
	if r.AppLaunchedByUs && r.ActiveTagID == "" {
		return fmt.Errorf("app_launched_by_us set without an active tag")
	}
	if r.SerialErrorCount < 0 {
		return fmt.Errorf("serial_error_count is negative: %d", r.SerialErrorCount)
	}
	return nil
}
