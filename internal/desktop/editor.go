package desktop

import (
	stdErrors "errors"
	"log/slog"
	"strings"

	"github.com/ItsDanik/rfidisk/internal/foundation/errors"
	"github.com/ItsDanik/rfidisk/internal/logfields"
	"github.com/ItsDanik/rfidisk/internal/supervisor"
)

// ErrEditorDisabled is returned when auto_launch_manager is off.
var ErrEditorDisabled = stdErrors.New("tag editor launch disabled")

// Editor opens the tag editor for a tag id.
type Editor interface {
	Open(tagID string) error
}

// SpawnEditor starts the configured editor command with the tag id appended.
// The started process is handed to Track so it can be reaped.
type SpawnEditor struct {
	Command string
	Enabled bool
	Spawner supervisor.Spawner
	Track   func(supervisor.Process)
}

func (e *SpawnEditor) Open(tagID string) error {
	if !e.Enabled {
		return ErrEditorDisabled
	}
	fields := strings.Fields(e.Command)
	if len(fields) == 0 {
		return errors.ValidationError("editor_command is empty").WithSeverity(errors.SeverityWarning).Build()
	}
	args := append(append([]string(nil), fields[1:]...), tagID)
	cmd := supervisor.Command{
		Raw:     e.Command + " " + tagID,
		Program: fields[0],
		Args:    args,
	}
	proc, err := e.Spawner.Start(cmd)
	if err != nil {
		return errors.LaunchError("failed to start tag editor").
			WithSeverity(errors.SeverityWarning).
			WithCause(err).
			WithContext("command", e.Command).
			Build()
	}
	slog.Info("Opened tag editor", logfields.TagID(tagID), logfields.PID(proc.Pid()))
	if e.Track != nil {
		e.Track(proc)
	}
	return nil
}
