package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ItsDanik/rfidisk/internal/clock"
	"github.com/ItsDanik/rfidisk/internal/config"
	"github.com/ItsDanik/rfidisk/internal/desktop"
	"github.com/ItsDanik/rfidisk/internal/link"
	"github.com/ItsDanik/rfidisk/internal/registry"
	"github.com/ItsDanik/rfidisk/internal/shm"
	"github.com/ItsDanik/rfidisk/internal/state"
	"github.com/ItsDanik/rfidisk/internal/supervisor"
	"github.com/ItsDanik/rfidisk/internal/version"
)

var epoch = time.Date(2026, 5, 1, 20, 0, 0, 0, time.UTC)

var idleWire = "D|Ready|Insert Disk||" + version.Banner() + "|0"

type harness struct {
	t        *testing.T
	d        *Daemon
	paths    config.Paths
	dev      *link.FakeDevice
	fos      *supervisor.FakeOS
	clk      *clock.FakeClock
	notifier *desktop.RecordingNotifier
	editor   *desktop.RecordingEditor
}

type harnessOption func(*config.Settings, *Deps)

func withSettings(fn func(*config.Settings)) harnessOption {
	return func(s *config.Settings, _ *Deps) { fn(s) }
}

func withDeps(fn func(*Deps)) harnessOption {
	return func(_ *config.Settings, d *Deps) { fn(d) }
}

// newHarness builds an unstarted daemon over fakes. tags, when non-nil, is
// written to the tags file first.
func newHarness(t *testing.T, tags map[string]registry.TagConfig, opts ...harnessOption) *harness {
	t.Helper()
	dir := t.TempDir()
	paths := config.Paths{Dir: dir, ShmDir: filepath.Join(dir, "shm")}
	require.NoError(t, os.MkdirAll(paths.ShmDir, 0o755))
	if tags != nil {
		require.NoError(t, registry.NewJSONStore(paths.TagsFile()).Save(registry.New(tags)))
	}

	h := &harness{
		t:        t,
		paths:    paths,
		dev:      link.NewFakeDevice(),
		fos:      supervisor.NewFakeOS(),
		clk:      clock.Fake(epoch),
		notifier: &desktop.RecordingNotifier{},
		editor:   &desktop.RecordingEditor{},
	}
	settings := config.DefaultSettings()
	deps := Deps{
		Opener:            h.dev.Open,
		LinkOptions:       link.DefaultOptions(),
		Spawner:           h.fos,
		Signaller:         h.fos,
		Tree:              h.fos,
		SupervisorOptions: supervisor.DefaultOptions(),
		Notifier:          h.notifier,
		Editor:            h.editor,
		Clock:             h.clk,
	}
	for _, o := range opts {
		o(&settings, &deps)
	}
	h.d = New(paths, settings, deps, DefaultOptions())
	return h
}

// started returns a harness whose daemon has connected and shown idle.
func started(t *testing.T, tags map[string]registry.TagConfig, opts ...harnessOption) *harness {
	t.Helper()
	h := newHarness(t, tags, opts...)
	require.NoError(t, h.d.Start(t.Context()))
	return h
}

func (h *harness) send(line string) {
	h.t.Helper()
	require.NoError(h.t, h.d.HandleLine(h.t.Context(), line))
}

func (h *harness) step(tick int) {
	h.t.Helper()
	require.NoError(h.t, h.d.Step(h.t.Context(), tick))
}

func (h *harness) port() *link.FakePort { return h.dev.Current() }

func (h *harness) wire() []string { return h.port().Written() }

func (h *harness) lastWire() string {
	h.t.Helper()
	w := h.wire()
	require.NotEmpty(h.t, w)
	return w[len(w)-1]
}

func (h *harness) mirror() state.Lines {
	h.t.Helper()
	lines, err := shm.NewDisplayFile(h.paths.DisplayFile()).Read()
	require.NoError(h.t, err)
	return lines
}

func (h *harness) loadFile() (string, bool) {
	data, err := os.ReadFile(h.paths.LoadFile())
	if err != nil {
		return "", false
	}
	return string(data), true
}

func (h *harness) tags() *registry.Registry {
	h.t.Helper()
	reg, err := registry.NewJSONStore(h.paths.TagsFile()).Load()
	require.NoError(h.t, err)
	return reg
}

var gameTags = map[string]registry.TagConfig{
	"a1b2": {Command: "steam://run/100", Line1: "Game"},
	"c3d4": {Command: "retroarch doom.wad", Line1: "Doom", Line2: "1993", Terminate: "pkill retroarch"},
}
