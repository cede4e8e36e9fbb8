package logfields

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHelpersUseCanonicalKeys(t *testing.T) {
	cases := []struct {
		attr slog.Attr
		key  string
		want any
	}{
		{TagID("a1b2"), KeyTagID, "a1b2"},
		{PID(42), KeyPID, int64(42)},
		{PGID(42), KeyPGID, int64(42)},
		{Port("/dev/rfidisk"), KeyPort, "/dev/rfidisk"},
		{Command("steam://run/100"), KeyCommand, "steam://run/100"},
		{Attempt(3), KeyAttempt, int64(3)},
		{LaunchID("abc"), KeyLaunchID, "abc"},
		{SessionID("s1"), KeySessionID, "s1"},
		{Line("ON:a1b2"), KeyLine, "ON:a1b2"},
		{Path("/dev/shm/x"), KeyPath, "/dev/shm/x"},
	}
	for _, c := range cases {
		assert.Equal(t, c.key, c.attr.Key)
		assert.Equal(t, c.want, c.attr.Value.Any())
	}
}

func TestErrorHandlesNil(t *testing.T) {
	assert.Equal(t, "", Error(nil).Value.String())
	assert.Equal(t, "boom", Error(errors.New("boom")).Value.String())
	assert.Equal(t, KeyError, Error(nil).Key)
}
