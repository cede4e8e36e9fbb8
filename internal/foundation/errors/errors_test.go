package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifiedError(t *testing.T) {
	t.Run("Basic error creation", func(t *testing.T) {
		err := NewError(CategoryLink, "serial open failed").
			WithSeverity(SeverityFatal).
			WithContext("port", "/dev/rfidisk").
			Build()

		assert.Equal(t, CategoryLink, err.Category())
		assert.Equal(t, SeverityFatal, err.Severity())
		assert.Equal(t, "serial open failed", err.Message())

		port, ok := err.Context().GetString("port")
		require.True(t, ok)
		assert.Equal(t, "/dev/rfidisk", port)
		assert.Equal(t, "[link:fatal] serial open failed", err.Error())
	})

	t.Run("Taxonomy defaults", func(t *testing.T) {
		link := LinkError("read failed").Build()
		assert.True(t, link.CanRetry())
		assert.False(t, link.IsFatal())

		launch := LaunchError("exec failed").Build()
		assert.False(t, launch.CanRetry())
		assert.Equal(t, RetryUserAction, launch.RetryStrategy())

		assert.Equal(t, SeverityWarning, TerminateError("x").Build().Severity())
		assert.Equal(t, SeverityWarning, StorageError("x").Build().Severity())
		assert.Equal(t, SeverityInfo, ProcessLookupError("x").Build().Severity())
		assert.True(t, ConfigError("x").Build().IsFatal())
	})

	t.Run("Builder copies are independent", func(t *testing.T) {
		b := LinkError("read failed")
		first := b.Build()
		second := b.Fatal().Build()
		assert.False(t, first.IsFatal())
		assert.True(t, second.IsFatal())
	})
}

func TestErrorChain(t *testing.T) {
	cause := errors.New("device disconnected")
	classified := WrapError(cause, CategoryLink, "serial read failed").Build()
	wrapped := fmt.Errorf("loop: %w", classified)

	assert.ErrorIs(t, wrapped, cause)
	assert.True(t, HasCategory(wrapped, CategoryLink))
	assert.False(t, HasCategory(wrapped, CategoryLaunch))
	assert.Equal(t, CategoryLink, GetCategory(wrapped))
	assert.Equal(t, CategoryInternal, GetCategory(cause))

	assert.False(t, IsFatal(wrapped))
	assert.True(t, IsFatal(fmt.Errorf("x: %w", LinkError("give up").Fatal().Build())))
	assert.ErrorIs(t, wrapped, NewError(CategoryLink, "serial read failed").Build())
}

func TestErrorContextMerge(t *testing.T) {
	a := ErrorContext{"a": 1, "b": 1}
	b := ErrorContext{"b": 2}

	merged := a.Merge(b)
	assert.Equal(t, ErrorContext{"a": 1, "b": 2}, merged)
	assert.Equal(t, 1, a["b"], "merge must not mutate the receiver")

	var empty ErrorContext
	_, ok := empty.Get("missing")
	assert.False(t, ok)
}
