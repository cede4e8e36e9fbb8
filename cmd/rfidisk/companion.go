package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ItsDanik/rfidisk/internal/config"
	"github.com/ItsDanik/rfidisk/internal/display"
	"github.com/ItsDanik/rfidisk/internal/eventstore"
	"github.com/ItsDanik/rfidisk/internal/logfields"
	"github.com/ItsDanik/rfidisk/internal/registry"
	"github.com/ItsDanik/rfidisk/internal/shm"
	"github.com/ItsDanik/rfidisk/internal/state"
)

// runLoad asks the daemon to launch the pending command.
func runLoad(paths config.Paths, out io.Writer) error {
	if err := shm.NewLoadBridge(paths.LoadFile()).RequestTrigger(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(out, "Load requested")
	return err
}

// runListTitle prints the first two display lines.
func runListTitle(paths config.Paths, out io.Writer) error {
	lines, err := shm.NewDisplayFile(paths.DisplayFile()).Read()
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, lines[0]+" "+lines[1])
	return err
}

// runList prints what the daemon currently shows, with the matching tag's
// configuration when one exists.
func runList(paths config.Paths, out io.Writer) error {
	lines, err := shm.NewDisplayFile(paths.DisplayFile()).Read()
	if err != nil {
		return err
	}
	l := listing{Lines: lines, Idle: lines == display.Idle(), Launches: -1}

	if !l.Idle {
		reg, err := registry.NewJSONStore(paths.TagsFile()).Load()
		if err != nil {
			slog.Warn("Tags file unreadable", logfields.Error(err))
		}
		if id, cfg, ok := reg.FindByLines(lines); ok {
			l.TagID = id
			l.Command = cfg.Command
			l.Terminate = cfg.Terminate
			l.Launches, l.Recent = tagHistory(paths, id)
		}
	}
	_, err = fmt.Fprintln(out, renderListing(l))
	return err
}

// recentEntries is how much journal history --list shows.
const recentEntries = 3

// tagHistory returns the journaled launch count and the latest entries for
// id. The count is -1 when no journal is configured or it cannot be read.
func tagHistory(paths config.Paths, id string) (int, []eventstore.Entry) {
	settings, err := config.LoadSettings(paths.SettingsFile())
	if err != nil || !settings.JournalEnabled() {
		return -1, nil
	}
	store, err := eventstore.NewSQLiteStore(settings.EventLog)
	if err != nil {
		slog.Debug("Event journal unavailable", logfields.Error(err))
		return -1, nil
	}
	defer func() { _ = store.Close() }()

	ctx := context.Background()
	projection := eventstore.NewUsageProjection(store)
	if err := projection.Rebuild(ctx); err != nil {
		slog.Debug("Failed to read event journal", logfields.Error(err))
		return -1, nil
	}
	usage, _ := projection.Get(id)
	recent, err := store.Recent(ctx, id, recentEntries)
	if err != nil {
		slog.Debug("Failed to read tag history", logfields.Error(err))
	}
	return usage.Launches, recent
}

type listing struct {
	Idle      bool
	TagID     string
	Command   string
	Terminate string
	Lines     state.Lines
	// Launches is -1 when unknown.
	Launches int
	Recent   []eventstore.Entry
}

var (
	listTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("69"))
	listLabelStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("252")).Width(11)
	listMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("244"))
	listBoxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func renderListing(l listing) string {
	if l.Idle {
		return listBoxStyle.Render(listTitleStyle.Render("RFIDisk") + "\n" + listMutedStyle.Render("No disk inserted"))
	}

	row := func(label, value string) string {
		if value == "" {
			value = listMutedStyle.Render("(none)")
		}
		return lipgloss.JoinHorizontal(lipgloss.Top, listLabelStyle.Render(label), value)
	}

	tagID := l.TagID
	if tagID == "" {
		tagID = "unknown"
	}
	rows := []string{
		listTitleStyle.Render("RFIDisk"),
		row("Tag", tagID),
		row("Command", l.Command),
		row("Terminate", l.Terminate),
	}
	for i, line := range l.Lines {
		rows = append(rows, row("Line "+strconv.Itoa(i+1), line))
	}
	if l.Launches >= 0 {
		rows = append(rows, row("Launches", strconv.Itoa(l.Launches)))
	}
	for i, e := range l.Recent {
		label := ""
		if i == 0 {
			label = "Recent"
		}
		rows = append(rows, lipgloss.JoinHorizontal(lipgloss.Top,
			listLabelStyle.Render(label),
			listMutedStyle.Render(e.At.Format("2006-01-02 15:04")+" "),
			e.Type))
	}
	return listBoxStyle.Render(strings.Join(rows, "\n"))
}
