package shm

import (
	stdErrors "errors"
	"io/fs"
	"os"
	"strings"

	"github.com/ItsDanik/rfidisk/internal/config"
	"github.com/ItsDanik/rfidisk/internal/foundation/errors"
)

// TriggerToken on the second line of the load file requests a launch.
const TriggerToken = "TRIGGER"

// LoadRequest is the decoded load file.
type LoadRequest struct {
	Command   string
	Triggered bool
}

// LoadBridge is the load-trigger mailbox. The daemon writes the pending
// command; an external "--load" invocation appends the trigger line.
type LoadBridge struct {
	path string
}

func NewLoadBridge(path string) *LoadBridge { return &LoadBridge{path: path} }

func (b *LoadBridge) Path() string { return b.path }

// SetPending writes command without a trigger.
func (b *LoadBridge) SetPending(command string) error {
	return b.write(command)
}

// Read returns the current request. ok is false when no file exists.
func (b *LoadBridge) Read() (req LoadRequest, ok bool, err error) {
	data, err := os.ReadFile(b.path)
	if err != nil {
		if stdErrors.Is(err, fs.ErrNotExist) {
			return LoadRequest{}, false, nil
		}
		return LoadRequest{}, false, errors.StorageError("failed to read load file").
			WithCause(err).
			WithContext("path", b.path).
			Build()
	}
	return parseLoad(string(data)), true, nil
}

func parseLoad(data string) LoadRequest {
	lines := strings.Split(strings.ReplaceAll(data, "\r\n", "\n"), "\n")
	req := LoadRequest{Command: strings.TrimSpace(lines[0])}
	for _, l := range lines[1:] {
		if strings.TrimSpace(l) == TriggerToken {
			req.Triggered = true
			break
		}
	}
	return req
}

// Acknowledge rewrites the file to just the command, clearing the trigger.
func (b *LoadBridge) Acknowledge(command string) error {
	return b.write(command)
}

// RequestTrigger appends the trigger line to a pending command. It returns a
// NotFound error when there is nothing pending.
func (b *LoadBridge) RequestTrigger() error {
	req, ok, err := b.Read()
	if err != nil {
		return err
	}
	if !ok || req.Command == "" {
		return errors.NotFoundError("no pending command to load").
			WithContext("path", b.path).
			Build()
	}
	return b.write(req.Command + "\n" + TriggerToken)
}

// Clear removes the mailbox entirely.
func (b *LoadBridge) Clear() error {
	return removeIfExists(b.path)
}

func (b *LoadBridge) write(data string) error {
	if err := config.WriteFileAtomic(b.path, []byte(data), fileMode); err != nil {
		return errors.StorageError("failed to write load file").
			WithCause(err).
			WithContext("path", b.path).
			Build()
	}
	return nil
}
