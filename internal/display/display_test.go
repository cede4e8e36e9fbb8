package display

import (
	"context"
	stdErrors "errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ItsDanik/rfidisk/internal/clock"
	"github.com/ItsDanik/rfidisk/internal/foundation/errors"
	"github.com/ItsDanik/rfidisk/internal/link"
	"github.com/ItsDanik/rfidisk/internal/shm"
	"github.com/ItsDanik/rfidisk/internal/state"
	"github.com/ItsDanik/rfidisk/internal/version"
)

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", Truncate("abc", 5))
	assert.Equal(t, "abcde", Truncate("abcdefgh", 5))
	assert.Equal(t, "héllo", Truncate("héllo wörld", 5))
	assert.Equal(t, "", Truncate("", 3))
}

func TestFormat(t *testing.T) {
	lines := state.Lines{
		"123456789012345678901234567890",
		"a|b",
		"abcdefghijklmnopqrstuvwxyz",
		"x",
	}
	assert.Equal(t, "D|12345678901234567890|a_b|abcdefghijklmn|x|1", Format(lines, "1"))
	assert.Equal(t, "D|Ready|Insert Disk||"+version.Banner()+"|0", Format(Idle(), "0"))
}

func TestScreens(t *testing.T) {
	assert.Equal(t, state.Lines{"Config Error", "No command for tag", "opening editor", "ab"}, ConfigNeeded("ab", true))
	assert.Equal(t, "edit tags file", ConfigNeeded("ab", false)[2])
	assert.Equal(t, "State Error", StateError("ab")[0])
	assert.Equal(t, "edit tags file", EditHint(false))
}

type fixture struct {
	pub    *Publisher
	mgr    *link.Manager
	dev    *link.FakeDevice
	mirror *shm.DisplayFile
	st     *state.Runtime
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := state.New()
	dev := link.NewFakeDevice()
	mgr := link.NewManager("/dev/test", dev.Open, st, clock.Fake(time.Unix(0, 0)), link.DefaultOptions())
	require.NoError(t, mgr.Connect(context.Background()))
	mirror := shm.NewDisplayFile(filepath.Join(t.TempDir(), "rfidisk_display"))
	return &fixture{pub: NewPublisher(mgr, mirror, st), mgr: mgr, dev: dev, mirror: mirror, st: st}
}

func TestPublish_WireAndMirror(t *testing.T) {
	f := newFixture(t)
	lines := state.Lines{"A title that is far too long for the device", "two", "three", "four"}

	require.NoError(t, f.pub.Publish(context.Background(), lines, "2"))

	assert.Equal(t, []string{"D|A title that is far |two|three|four|2"}, f.dev.Current().Written())
	raw, err := os.ReadFile(f.mirror.Path())
	require.NoError(t, err)
	assert.Equal(t, "A title that is far too long for the device|two|three|four", string(raw))
	got, err := f.mirror.Read()
	require.NoError(t, err)
	assert.Equal(t, lines, got)
	assert.Equal(t, lines, f.st.LastDisplay)
	assert.Equal(t, "2", f.st.LastDisplayIcon)
}

func TestPublish_WriteFailureReconnects(t *testing.T) {
	f := newFixture(t)
	first := f.dev.Current()
	first.FailWrites(stdErrors.New("unplugged"))

	recovered := 0
	f.mgr.SetRecovery(func(context.Context) error { recovered++; return nil })

	require.NoError(t, f.pub.Idle(context.Background()))
	assert.True(t, first.Closed())
	assert.Equal(t, 1, recovered)
	assert.False(t, f.st.Reconnecting)

	got, err := f.mirror.Read()
	require.NoError(t, err)
	assert.Equal(t, Idle(), got)
}

func TestPublish_NoNestedReconnect(t *testing.T) {
	f := newFixture(t)
	f.dev.Current().FailWrites(stdErrors.New("unplugged"))
	f.st.Reconnecting = true

	require.NoError(t, f.pub.Idle(context.Background()))
	assert.Equal(t, 1, f.dev.Opens())
	assert.Equal(t, 0, f.st.SerialErrorCount)
}

func TestPublish_FatalReconnectPropagates(t *testing.T) {
	f := newFixture(t)
	f.dev.Current().FailWrites(stdErrors.New("unplugged"))
	f.st.SerialErrorCount = 5

	err := f.pub.Idle(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsFatal(err))

	// The mirror still reflects the requested screen.
	got, rerr := f.mirror.Read()
	require.NoError(t, rerr)
	assert.Equal(t, Idle(), got)
}
