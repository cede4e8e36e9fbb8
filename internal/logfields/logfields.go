package logfields

import "log/slog"

// Canonical log field name constants to avoid drift across packages.
const (
	KeyTagID     = "tag_id"
	KeyPID       = "pid"
	KeyPGID      = "pgid"
	KeyPort      = "port"
	KeyCommand   = "command"
	KeyAttempt   = "attempt"
	KeyLaunchID  = "launch_id"
	KeySessionID = "session_id"
	KeyLine      = "line"
	KeyPath      = "path"
	KeyError     = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func TagID(id string) slog.Attr     { return slog.String(KeyTagID, id) }
func PID(pid int) slog.Attr         { return slog.Int(KeyPID, pid) }
func PGID(pgid int) slog.Attr       { return slog.Int(KeyPGID, pgid) }
func Port(name string) slog.Attr    { return slog.String(KeyPort, name) }
func Command(cmd string) slog.Attr  { return slog.String(KeyCommand, cmd) }
func Attempt(n int) slog.Attr       { return slog.Int(KeyAttempt, n) }
func LaunchID(id string) slog.Attr  { return slog.String(KeyLaunchID, id) }
func SessionID(id string) slog.Attr { return slog.String(KeySessionID, id) }
func Line(line string) slog.Attr    { return slog.String(KeyLine, line) }
func Path(p string) slog.Attr       { return slog.String(KeyPath, p) }
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
