package daemon

import (
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"

	"github.com/ItsDanik/rfidisk/internal/config"
	"github.com/ItsDanik/rfidisk/internal/desktop"
	"github.com/ItsDanik/rfidisk/internal/display"
	"github.com/ItsDanik/rfidisk/internal/registry"
	"github.com/ItsDanik/rfidisk/internal/shm"
	"github.com/ItsDanik/rfidisk/internal/state"
	"github.com/ItsDanik/rfidisk/internal/supervisor"
)

func TestStartShowsIdle(t *testing.T) {
	h := started(t, gameTags)

	assert.Equal(t, []string{idleWire}, h.wire())
	assert.Equal(t, display.Idle(), h.mirror())
	assert.False(t, h.d.State().HasActiveTag())
}

func TestInsertKnownTagLaunchesAndRemoveReturnsToIdle(t *testing.T) {
	h := started(t, gameTags)

	h.send("ON:A1B2")

	st := h.d.State()
	assert.Equal(t, "a1b2", st.ActiveTagID)
	require.True(t, st.Owns())
	assert.Equal(t, "D|Game||||2", h.lastWire())
	assert.Equal(t, state.Lines{"Game", "", "", ""}, h.mirror())
	require.Len(t, h.fos.Started(), 1)
	assert.Equal(t, "steam://run/100", h.fos.Started()[0].Raw)
	assert.Equal(t, []desktop.Notification{{Title: "RFIDisk Inserted", Message: "Game\n"}}, h.notifier.Sent())

	pid := st.Process.PID
	h.send("OF:a1b2")

	st = h.d.State()
	assert.False(t, st.HasActiveTag())
	assert.False(t, st.Owns())
	assert.Equal(t, idleWire, h.lastWire())
	assert.Equal(t, display.Idle(), h.mirror())
	require.NotEmpty(t, h.fos.Signals())
	assert.Equal(t, supervisor.SentSignal{PGID: pid, Signal: unix.SIGTERM}, h.fos.Signals()[0])
}

func TestInsertSameTagTwiceIsIdempotent(t *testing.T) {
	h := started(t, gameTags)

	h.send("ON:a1b2")
	wires := len(h.wire())
	h.send("ON:a1b2")
	h.send("ON:A1B2")

	assert.Len(t, h.fos.Started(), 1)
	assert.Len(t, h.notifier.Sent(), 1)
	assert.Len(t, h.wire(), wires)
}

func TestInsertSameTagAfterAppExitedRelaunches(t *testing.T) {
	h := started(t, gameTags)

	h.send("ON:a1b2")
	h.fos.Process(h.d.State().Process.PID).Exit()
	h.send("ON:a1b2")

	assert.Len(t, h.fos.Started(), 2)
	assert.True(t, h.d.State().Owns())
}

func TestSwitchingTagsTerminatesPreviousApp(t *testing.T) {
	h := started(t, gameTags)

	h.send("ON:a1b2")
	first := h.d.State().Process.PID
	h.send("ON:c3d4")

	st := h.d.State()
	assert.Equal(t, "c3d4", st.ActiveTagID)
	require.True(t, st.Owns())
	assert.NotEqual(t, first, st.Process.PID)
	assert.True(t, exited(t, h.fos.Process(first)))
	assert.Equal(t, "D|Doom|1993|||1", h.lastWire())
	require.Len(t, h.fos.Started(), 2)
	assert.Equal(t, "retroarch doom.wad", h.fos.Started()[1].Raw)
}

func TestRemoveUsesCustomTerminateCommand(t *testing.T) {
	h := started(t, gameTags)

	h.send("ON:c3d4")
	h.send("OF:c3d4")

	cmds := h.fos.Started()
	require.Len(t, cmds, 2)
	assert.Equal(t, "pkill retroarch", cmds[1].Raw)
	assert.Empty(t, h.fos.Signals())
	assert.False(t, h.d.State().Owns())
	assert.Equal(t, idleWire, h.lastWire())
}

func TestRemoveOfInactiveTagIsIgnored(t *testing.T) {
	h := started(t, gameTags)

	h.send("ON:a1b2")
	h.send("OF:c3d4")

	assert.Equal(t, "a1b2", h.d.State().ActiveTagID)
	assert.True(t, h.d.State().Owns())
	assert.Empty(t, h.fos.Signals())
}

func TestRemoveWaitsForDelay(t *testing.T) {
	h := started(t, gameTags, withSettings(func(s *config.Settings) { s.RemovalDelay = 1.5 }))

	h.send("ON:a1b2")
	before := h.clk.Now()
	h.send("OF:a1b2")

	assert.GreaterOrEqual(t, h.clk.Now().Sub(before), 1500*time.Millisecond)
	assert.False(t, h.d.State().HasActiveTag())
	assert.Equal(t, idleWire, h.lastWire())
}

func TestReinsertionDuringRemovalDelayKeepsApp(t *testing.T) {
	h := started(t, gameTags, withSettings(func(s *config.Settings) { s.RemovalDelay = 2 }))

	h.send("ON:a1b2")
	pid := h.d.State().Process.PID
	port := h.port()
	h.clk.At(500*time.Millisecond, func() { port.FeedLine("ON:a1b2") })
	h.send("OF:a1b2")

	st := h.d.State()
	assert.Equal(t, "a1b2", st.ActiveTagID)
	require.True(t, st.Owns())
	assert.Equal(t, pid, st.Process.PID)
	assert.Empty(t, h.fos.Signals())

	// The buffered insertion is replayed by the loop and is a no-op.
	h.step(1)
	assert.Len(t, h.fos.Started(), 1)
	assert.Len(t, h.notifier.Sent(), 1)
}

func TestRemoveAgainDuringDelayStillCloses(t *testing.T) {
	h := started(t, gameTags, withSettings(func(s *config.Settings) { s.RemovalDelay = 2 }))

	h.send("ON:a1b2")
	port := h.port()
	h.clk.At(300*time.Millisecond, func() { port.FeedLine("ON:a1b2") })
	h.clk.At(600*time.Millisecond, func() { port.FeedLine("OF:a1b2") })
	h.send("OF:a1b2")

	assert.False(t, h.d.State().HasActiveTag())
	assert.NotEmpty(t, h.fos.Signals())
}

func TestUnknownTagRegistersPlaceholder(t *testing.T) {
	h := started(t, gameTags)

	h.send("ON:ZZ9")

	cfg, ok := h.tags().Lookup("zz9")
	require.True(t, ok)
	assert.Equal(t, registry.PlaceholderFor("zz9"), cfg)
	_, kept := h.tags().Lookup("a1b2")
	assert.True(t, kept)

	assert.Equal(t, "zz9", h.d.State().ActiveTagID)
	assert.False(t, h.d.State().Owns())
	assert.Equal(t, "D|new entry|configure me|opening editor|zz9|0", h.lastWire())
	assert.Equal(t, []string{"zz9"}, h.editor.Opened())
	assert.Equal(t, []desktop.Notification{{Title: "New Tag", Message: "Tag zz9 added"}}, h.notifier.Sent())
	assert.Empty(t, h.fos.Started())
}

func TestUnknownTagWithEditorUnavailableShowsHint(t *testing.T) {
	h := started(t, nil)
	h.editor.Err = desktop.ErrEditorDisabled

	h.send("ON:ff01")

	assert.Equal(t, "D|new entry|configure me|edit tags file|ff01|0", h.lastWire())
}

func TestUnknownTagReusesExistingPlaceholder(t *testing.T) {
	h := started(t, map[string]registry.TagConfig{"old1": registry.PlaceholderFor("old1")})

	h.send("ON:new2")

	reg := h.tags()
	assert.Equal(t, 1, reg.Len())
	cfg, ok := reg.Lookup("new2")
	require.True(t, ok)
	assert.Equal(t, "new2", cfg.Line4)
}

func TestUnknownTagClosesOwnedApp(t *testing.T) {
	h := started(t, gameTags)

	h.send("ON:a1b2")
	pid := h.d.State().Process.PID
	h.send("ON:zz9")

	assert.True(t, exited(t, h.fos.Process(pid)))
	assert.False(t, h.d.State().Owns())
}

func TestTagWithoutCommandShowsConfigScreen(t *testing.T) {
	h := started(t, map[string]registry.TagConfig{"t1": {Line1: "Blank"}})

	h.send("ON:t1")

	assert.Equal(t, "D|Config Error|No command for tag|opening editor|t1|0", h.lastWire())
	assert.Equal(t, []string{"t1"}, h.editor.Opened())
	assert.Empty(t, h.fos.Started())
	assert.Empty(t, h.notifier.Sent())
	assert.Equal(t, "t1", h.d.State().ActiveTagID)
}

func TestLongLinesAreTruncatedOnWireOnly(t *testing.T) {
	long := "Super|Long|Title That Does Not Fit"
	h := started(t, map[string]registry.TagConfig{
		"aa": {Command: "true", Line1: long, Line4: "Fourth line too long"},
	})

	h.send("ON:aa")

	fields := strings.Split(h.lastWire(), "|")
	require.Len(t, fields, 6)
	assert.Equal(t, "Super_Long_Title Tha", fields[1])
	assert.Equal(t, "Fourth line to", fields[4])
	raw, err := os.ReadFile(h.paths.DisplayFile())
	require.NoError(t, err)
	assert.Equal(t, long+"|||Fourth line too long", string(raw))
}

func TestLaunchFailureNotifiesAndKeepsTag(t *testing.T) {
	h := started(t, gameTags)
	h.fos.FailNextStart(errors.New("exec: not found"))

	h.send("ON:a1b2")

	st := h.d.State()
	assert.Equal(t, "a1b2", st.ActiveTagID)
	assert.False(t, st.Owns())
	assert.Equal(t, []desktop.Notification{{Title: "Error", Message: "Failed: Game"}}, h.notifier.Sent())
	assert.Equal(t, "D|Game||||2", h.lastWire())
}

func TestNotificationsCanBeDisabled(t *testing.T) {
	h := started(t, gameTags, withSettings(func(s *config.Settings) { s.DesktopNotifications = false }))

	h.send("ON:a1b2")
	h.send("ON:zz9")

	assert.Empty(t, h.notifier.Sent())
}

func TestLinesIgnoredWhileReconnecting(t *testing.T) {
	h := started(t, gameTags)
	h.d.st.Reconnecting = true

	h.send("ON:a1b2")

	assert.False(t, h.d.State().HasActiveTag())
	assert.Empty(t, h.fos.Started())
}

func TestUnrecognizedLinesAreIgnored(t *testing.T) {
	h := started(t, gameTags)

	h.send("hello")
	h.send("ON:")
	h.send("")

	assert.False(t, h.d.State().HasActiveTag())
	assert.Equal(t, []string{idleWire}, h.wire())
}

func TestAutolaunchDisabledWaitsForLoadTrigger(t *testing.T) {
	h := started(t, gameTags, withSettings(func(s *config.Settings) { s.DisableAutolaunch = true }))

	h.send("ON:a1b2")

	assert.Empty(t, h.fos.Started())
	assert.Equal(t, "D|Game||||2", h.lastWire())
	content, ok := h.loadFile()
	require.True(t, ok)
	assert.Equal(t, "steam://run/100", content)

	require.NoError(t, shm.NewLoadBridge(h.paths.LoadFile()).RequestTrigger())
	h.step(h.d.opts.LoadEvery)

	require.Len(t, h.fos.Started(), 1)
	assert.True(t, h.d.State().Owns())
	content, ok = h.loadFile()
	require.True(t, ok)
	assert.Equal(t, "steam://run/100", content)

	h.step(2 * h.d.opts.LoadEvery)
	assert.Len(t, h.fos.Started(), 1)
}

func TestLoadTriggerIgnoredWhileAppRuns(t *testing.T) {
	h := started(t, gameTags)

	h.send("ON:a1b2")
	require.NoError(t, shm.NewLoadBridge(h.paths.LoadFile()).SetPending("steam://run/100"))
	require.NoError(t, shm.NewLoadBridge(h.paths.LoadFile()).RequestTrigger())
	h.step(h.d.opts.LoadEvery)

	assert.Len(t, h.fos.Started(), 1)
	content, _ := h.loadFile()
	assert.Equal(t, "steam://run/100", content)
}

func TestLoadTriggerOnlyPolledOnSchedule(t *testing.T) {
	h := started(t, gameTags, withSettings(func(s *config.Settings) { s.DisableAutolaunch = true }))

	h.send("ON:a1b2")
	require.NoError(t, shm.NewLoadBridge(h.paths.LoadFile()).RequestTrigger())
	h.step(h.d.opts.LoadEvery - 1)
	assert.Empty(t, h.fos.Started())

	h.step(h.d.opts.LoadEvery)
	assert.Len(t, h.fos.Started(), 1)
}

func TestRemovalClearsPendingLoad(t *testing.T) {
	h := started(t, gameTags, withSettings(func(s *config.Settings) { s.DisableAutolaunch = true }))

	h.send("ON:a1b2")
	h.send("OF:a1b2")

	_, ok := h.loadFile()
	assert.False(t, ok)
	assert.Empty(t, h.d.State().PendingLoadCommand)
}

func TestLivenessCheckForgetsExitedApp(t *testing.T) {
	h := started(t, gameTags)

	h.send("ON:a1b2")
	h.fos.Process(h.d.State().Process.PID).Exit()

	h.step(h.d.opts.LivenessEvery - 1)
	assert.True(t, h.d.State().Owns())

	h.step(h.d.opts.LivenessEvery)
	st := h.d.State()
	assert.False(t, st.Owns())
	assert.Equal(t, "a1b2", st.ActiveTagID)
	assert.Equal(t, "D|Game||||2", h.lastWire())
}

func exited(t *testing.T, p *supervisor.FakeProcess) bool {
	t.Helper()
	require.NotNil(t, p)
	done, err := p.Exited()
	require.NoError(t, err)
	return done
}
