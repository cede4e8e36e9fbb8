package errors

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCLIErrorAdapter_ExitCodeFor(t *testing.T) {
	adapter := NewCLIErrorAdapter(false, slog.Default())

	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"nil error", nil, 0},
		{"no pending load", NotFoundError("no command pending").Build(), 1},
		{"validation", ValidationError("conflicting flags").Build(), 2},
		{"config", ConfigError("bad settings").Build(), 7},
		{"link give up", LinkError("too many serial errors").Fatal().Build(), 8},
		{"wrapped storage", errors.Join(errors.New("outer"), StorageError("tags unreadable").Build()), 11},
		{"unclassified", errors.New("boom"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, adapter.ExitCodeFor(tt.err))
		})
	}
}

func TestCLIErrorAdapter_FormatError(t *testing.T) {
	quiet := NewCLIErrorAdapter(false, slog.Default())
	verbose := NewCLIErrorAdapter(true, slog.Default())

	notFound := NotFoundError("daemon is not running").Build()
	assert.Equal(t, "daemon is not running", quiet.FormatError(notFound))

	link := LinkError("serial write failed").WithCause(io.ErrClosedPipe).Build()
	assert.Equal(t, "Error: serial write failed (use -v for details)", quiet.FormatError(link))
	assert.Contains(t, verbose.FormatError(link), "io: read/write on closed pipe")

	assert.Equal(t, "Error: boom", quiet.FormatError(errors.New("boom")))
	assert.Empty(t, quiet.FormatError(nil))
}

func TestCLIErrorAdapter_HandleError(t *testing.T) {
	var logBuf, errBuf bytes.Buffer
	adapter := NewCLIErrorAdapter(false, slog.New(slog.NewTextHandler(&logBuf, nil)))
	adapter.stderr = &errBuf
	var code int
	adapter.exit = func(c int) { code = c }

	adapter.HandleError(NotFoundError("no command pending").Build())
	require.Equal(t, 1, code)
	assert.Equal(t, "no command pending\n", errBuf.String())
	assert.Empty(t, logBuf.String(), "non-fatal errors are not logged in quiet mode")

	errBuf.Reset()
	adapter.HandleError(LinkError("too many serial errors").Fatal().Build())
	assert.Equal(t, 8, code)
	assert.Contains(t, logBuf.String(), "too many serial errors")
	assert.Contains(t, logBuf.String(), "category=link")
}
