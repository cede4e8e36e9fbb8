package eventstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSessionID = "session-1"

func newMemoryStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestEventStoreAppendAndAll(t *testing.T) {
	store := newMemoryStore(t)
	ctx := t.Context()
	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	r := AppLaunched("a1b2", 42, "launch-1", "steam://run/100")
	r.At = at
	require.NoError(t, store.Append(ctx, testSessionID, r))
	require.NoError(t, store.Append(ctx, "session-2", LinkLost(2, nil)))

	entries, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	first := entries[0]
	assert.NotZero(t, first.ID)
	assert.Equal(t, testSessionID, first.SessionID)
	assert.True(t, at.Equal(first.At))
	first.At = at
	assert.Equal(t, r, first.Record)

	assert.Equal(t, "session-2", entries[1].SessionID)
	assert.Equal(t, TypeLinkLost, entries[1].Type)
	assert.Equal(t, 2, entries[1].Attempt)
}

func TestEventStoreStampsMissingTime(t *testing.T) {
	store := newMemoryStore(t)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Append(t.Context(), testSessionID, TagInserted("a1")))

	entries, err := store.All(t.Context())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, now.Equal(entries[0].At))
}

func TestEventStoreRecent(t *testing.T) {
	store := newMemoryStore(t)
	ctx := t.Context()

	require.NoError(t, store.Append(ctx, testSessionID, TagInserted("a1")))
	require.NoError(t, store.Append(ctx, testSessionID, TagInserted("b2")))
	require.NoError(t, store.Append(ctx, testSessionID, AppLaunched("a1", 10, "l1", "game")))
	require.NoError(t, store.Append(ctx, testSessionID, TagRemoved("a1")))

	entries, err := store.Recent(ctx, "a1", 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, TypeTagRemoved, entries[0].Type)
	assert.Equal(t, TypeAppLaunched, entries[1].Type)
	assert.Equal(t, "game", entries[1].Command)

	entries, err = store.Recent(ctx, "a1", 0)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	entries, err = store.Recent(ctx, "zz", 5)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEventStorePersistsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	store, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, store.Append(t.Context(), testSessionID, AppLaunched("a1", 1, "l", "cmd")))
	require.NoError(t, store.Close())

	reopened, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = reopened.Close() }()
	entries, err := reopened.Recent(t.Context(), "a1", 1)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}
