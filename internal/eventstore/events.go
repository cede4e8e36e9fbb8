package eventstore

import (
	"encoding/json"
	"time"

	"github.com/ItsDanik/rfidisk/internal/foundation/errors"
)

// Journaled event types.
const (
	TypeDaemonStarted   = "DaemonStarted"
	TypeDaemonStopped   = "DaemonStopped"
	TypeTagInserted     = "TagInserted"
	TypeTagRemoved      = "TagRemoved"
	TypeTagRegistered   = "TagRegistered"
	TypeAppLaunched     = "AppLaunched"
	TypeAppLaunchFailed = "AppLaunchFailed"
	TypeAppTerminated   = "AppTerminated"
	TypeAppExited       = "AppExited"
	TypeLoadTriggered   = "LoadTriggered"
	TypeLinkLost        = "LinkLost"
	TypeLinkRecovered   = "LinkRecovered"
)

// Record is a daemon event before it is journaled or published. Unused
// fields are omitted from the payload.
type Record struct {
	Type     string    `json:"type"`
	At       time.Time `json:"at"`
	TagID    string    `json:"tag_id,omitempty"`
	PID      int       `json:"pid,omitempty"`
	LaunchID string    `json:"launch_id,omitempty"`
	Command  string    `json:"command,omitempty"`
	Detail   string    `json:"detail,omitempty"`
	Attempt  int       `json:"attempt,omitempty"`
}

// Payload encodes r as JSON.
func (r Record) Payload() ([]byte, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryStorage, ErrMarshalPayloadFailed.Message()).
			WithContext("type", r.Type).
			Build()
	}
	return data, nil
}

func DaemonStarted(port, version string) Record {
	return Record{Type: TypeDaemonStarted, Command: port, Detail: version}
}

func DaemonStopped(reason string) Record {
	return Record{Type: TypeDaemonStopped, Detail: reason}
}

func TagInserted(tagID string) Record { return Record{Type: TypeTagInserted, TagID: tagID} }

func TagRemoved(tagID string) Record { return Record{Type: TypeTagRemoved, TagID: tagID} }

func TagRegistered(tagID string) Record { return Record{Type: TypeTagRegistered, TagID: tagID} }

func AppLaunched(tagID string, pid int, launchID, command string) Record {
	return Record{Type: TypeAppLaunched, TagID: tagID, PID: pid, LaunchID: launchID, Command: command}
}

func AppLaunchFailed(tagID, command string, err error) Record {
	r := Record{Type: TypeAppLaunchFailed, TagID: tagID, Command: command}
	if err != nil {
		r.Detail = err.Error()
	}
	return r
}

// AppTerminated records a termination; method is "custom" or "signal".
func AppTerminated(tagID string, pid int, launchID, method string) Record {
	return Record{Type: TypeAppTerminated, TagID: tagID, PID: pid, LaunchID: launchID, Detail: method}
}

func AppExited(tagID string, pid int, launchID string) Record {
	return Record{Type: TypeAppExited, TagID: tagID, PID: pid, LaunchID: launchID}
}

func LoadTriggered(tagID, command string) Record {
	return Record{Type: TypeLoadTriggered, TagID: tagID, Command: command}
}

func LinkLost(attempt int, err error) Record {
	r := Record{Type: TypeLinkLost, Attempt: attempt}
	if err != nil {
		r.Detail = err.Error()
	}
	return r
}

func LinkRecovered(tagID string) Record { return Record{Type: TypeLinkRecovered, TagID: tagID} }
