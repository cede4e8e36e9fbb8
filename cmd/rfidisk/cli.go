package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/alecthomas/kong"

	"github.com/ItsDanik/rfidisk/internal/config"
	"github.com/ItsDanik/rfidisk/internal/logfields"
)

// CLI definition and global flags.
type CLI struct {
	Load      bool `xor:"mode" help:"Launch the command waiting on the display (autolaunch disabled)"`
	List      bool `xor:"mode" help:"Show the configuration of the inserted tag"`
	ListTitle bool `name:"list-title" xor:"mode" help:"Print the first two display lines of the inserted tag"`

	ConfigDir string           `name:"config-dir" help:"Directory holding rfidisk_config.json and rfidisk_tags.json" type:"path"`
	EnvFile   []string         `name:"env-file" help:"Environment files to load before reading settings" default:".env,.env.local"`
	Verbose   bool             `short:"v" help:"Enable verbose logging"`
	Version   kong.VersionFlag `name:"version" help:"Show version and exit"`
}

// AfterApply runs after flag parsing; loads env files and sets up logging once.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	loaded, err := config.LoadEnvFiles(c.EnvFile...)
	if err != nil {
		slog.Warn("Failed to load env file", logfields.Error(err))
	}
	for _, f := range loaded {
		slog.Debug("Loaded env file", logfields.Path(f))
	}
	return nil
}

// Paths resolves the file locations, honouring --config-dir.
func (c *CLI) Paths() config.Paths {
	p := config.DefaultPaths()
	if c.ConfigDir != "" {
		p.Dir = c.ConfigDir
	}
	return p
}

// Run dispatches to the selected mode. Companion output goes to out.
func (c *CLI) Run(out io.Writer) error {
	paths := c.Paths()
	switch {
	case c.Load:
		return runLoad(paths, out)
	case c.List:
		return runList(paths, out)
	case c.ListTitle:
		return runListTitle(paths, out)
	default:
		return runDaemon(paths, c.Verbose)
	}
}

// configureLogging replaces the bootstrap logger once settings are known.
// --verbose always wins over the settings level.
func configureLogging(s config.Settings, verbose bool) {
	var level slog.Level
	switch s.Level() {
	case config.LogLevelDebug:
		level = slog.LevelDebug
	case config.LogLevelWarn:
		level = slog.LevelWarn
	case config.LogLevelError:
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if s.Format() == config.LogFormatJSON {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
