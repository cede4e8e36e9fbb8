package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
)

const (
	SettingsFileName = "rfidisk_config.json"
	TagsFileName     = "rfidisk_tags.json"
	DisplayFileName  = "rfidisk_display"
	LoadFileName     = "rfidisk_load"
)

// Paths locates every file the daemon and its companion invocations share.
type Paths struct {
	// Dir holds the settings and tags documents.
	Dir string
	// ShmDir holds the display mirror and the load-trigger mailbox.
	ShmDir string
}

// DefaultPaths resolves Paths from RFIDISK_CONFIG_DIR / RFIDISK_SHM_DIR,
// falling back to $XDG_CONFIG_HOME/rfidisk and /dev/shm.
func DefaultPaths() Paths {
	dir := os.Getenv("RFIDISK_CONFIG_DIR")
	if dir == "" {
		if base, err := os.UserConfigDir(); err == nil {
			dir = filepath.Join(base, "rfidisk")
		} else {
			dir = "."
		}
	}
	shm := os.Getenv("RFIDISK_SHM_DIR")
	if shm == "" {
		shm = "/dev/shm"
	}
	return Paths{Dir: dir, ShmDir: shm}
}

func (p Paths) SettingsFile() string { return filepath.Join(p.Dir, SettingsFileName) }
func (p Paths) TagsFile() string     { return filepath.Join(p.Dir, TagsFileName) }
func (p Paths) DisplayFile() string  { return filepath.Join(p.ShmDir, DisplayFileName) }
func (p Paths) LoadFile() string     { return filepath.Join(p.ShmDir, LoadFileName) }

// LoadEnvFiles loads .env style files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadEnvFiles(files ...string) ([]string, error) {
	if len(files) == 0 {
		files = []string{".env", ".env.local"}
	}
	var loaded []string
	for _, f := range files {
		if _, err := os.Stat(f); err != nil {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return loaded, fmt.Errorf("load %s: %w", f, err)
		}
		loaded = append(loaded, f)
	}
	return loaded, nil
}
