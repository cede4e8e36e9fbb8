package eventstore

import (
	stdErrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appendRecord(t *testing.T, store Store, r Record) {
	t.Helper()
	require.NoError(t, store.Append(t.Context(), testSessionID, r))
}

func TestRecordPayloadOmitsUnusedFields(t *testing.T) {
	r := TagInserted("a1b2")
	r.At = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	payload, err := r.Payload()
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"TagInserted","at":"2026-03-01T12:00:00Z","tag_id":"a1b2"}`, string(payload))
}

func TestRecordConstructors(t *testing.T) {
	assert.Equal(t, "boom", AppLaunchFailed("a", "cmd", stdErrors.New("boom")).Detail)
	assert.Empty(t, AppLaunchFailed("a", "cmd", nil).Detail)
	assert.Equal(t, 3, LinkLost(3, stdErrors.New("io")).Attempt)
	assert.Equal(t, "signal", AppTerminated("a", 1, "l", "signal").Detail)
	assert.Equal(t, TypeLoadTriggered, LoadTriggered("a", "cmd").Type)
	assert.Equal(t, TypeDaemonStopped, DaemonStopped("signal").Type)
}

func TestUsageProjection_Rebuild(t *testing.T) {
	store := newMemoryStore(t)
	appendRecord(t, store, DaemonStarted("/dev/rfidisk", "0.7"))
	appendRecord(t, store, TagInserted("a1"))
	appendRecord(t, store, AppLaunched("a1", 10, "l1", "game"))
	appendRecord(t, store, TagRemoved("a1"))
	appendRecord(t, store, TagInserted("a1"))
	appendRecord(t, store, AppLaunchFailed("a1", "game", nil))
	appendRecord(t, store, TagInserted("b2"))
	appendRecord(t, store, AppLaunched("b2", 11, "l2", "other"))
	appendRecord(t, store, AppLaunched("b2", 12, "l3", "other"))

	p := NewUsageProjection(store)
	require.NoError(t, p.Rebuild(t.Context()))

	a1, ok := p.Get("a1")
	require.True(t, ok)
	assert.Equal(t, 2, a1.Insertions)
	assert.Equal(t, 1, a1.Launches)
	assert.Equal(t, 1, a1.LaunchFailures)
	assert.False(t, a1.LastSeen.IsZero())

	top := p.Top(1)
	require.Len(t, top, 1)
	assert.Equal(t, "b2", top[0].TagID)
	assert.Len(t, p.Top(0), 2)

	_, ok = p.Get("zz")
	assert.False(t, ok)
}

func TestUsageProjection_ApplyLive(t *testing.T) {
	p := NewUsageProjection(nil)
	require.NoError(t, p.Rebuild(t.Context()))

	p.Apply(TagInserted("c3"))
	p.Apply(LinkLost(1, nil))
	u, ok := p.Get("c3")
	require.True(t, ok)
	assert.Equal(t, 1, u.Insertions)
	assert.Len(t, p.Top(0), 1)
}
