package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRuntimeOwnership(t *testing.T) {
	r := New()
	require.NoError(t, r.Validate())
	assert.False(t, r.Owns())

	r.ActiveTagID = "a1b2"
	r.SetOwned(&ProcessHandle{PID: 4242, Command: "steam://run/100"})
	require.NoError(t, r.Validate())
	assert.True(t, r.Owns())
	assert.Equal(t, 4242, r.Process.PGID())

	r.ReleaseProcess()
	assert.False(t, r.Owns())
	assert.Nil(t, r.Process)
	assert.Equal(t, "a1b2", r.ActiveTagID, "release keeps the tag displayed")
}

func TestRuntimeValidateInvariants(t *testing.T) {
	r := &Runtime{AppLaunchedByUs: true}
	assert.ErrorContains(t, r.Validate(), "without a process handle")

	r.Process = &ProcessHandle{PID: 1}
	assert.ErrorContains(t, r.Validate(), "without an active tag")

	r = &Runtime{SerialErrorCount: -1}
	assert.Error(t, r.Validate())
}

func TestRuntimeClearActiveAndSuppression(t *testing.T) {
	r := &Runtime{ActiveTagID: "x", PendingLoadCommand: "run"}
	r.ClearActive()
	assert.False(t, r.HasActiveTag())
	assert.Empty(t, r.PendingLoadCommand)

	assert.False(t, r.NotificationsSuppressed())
	r.Reconnecting = true
	assert.True(t, r.NotificationsSuppressed())
	r.Reconnecting, r.RecoveryMode = false, true
	assert.True(t, r.NotificationsSuppressed())
}

func TestRuntimeSnapshotIsDeep(t *testing.T) {
	r := &Runtime{ActiveTagID: "a"}
	r.SetOwned(&ProcessHandle{PID: 7, Descendants: []int{7, 8}})

	snap := r.Snapshot()
	r.Process.Descendants[1] = 99
	r.Process.PID = 11

	assert.Equal(t, []int{7, 8}, snap.Process.Descendants)
	assert.Equal(t, 7, snap.Process.PID)
}
