package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ItsDanik/rfidisk/internal/foundation/errors"
	"github.com/ItsDanik/rfidisk/internal/foundation/normalization"
)

// LaunchMode selects how tag command strings are executed.
type LaunchMode string

const (
	// LaunchModeShell hands the whole string to the configured shell with -c.
	LaunchModeShell LaunchMode = "shell"
	// LaunchModeDirect splits the string on whitespace and execs argv[0].
	LaunchModeDirect LaunchMode = "direct"
)

var launchModeNormalizer = normalization.NewNormalizer("launch_mode", map[string]LaunchMode{
	"shell":  LaunchModeShell,
	"direct": LaunchModeDirect,
}, LaunchModeShell)

// LogLevel enumerates supported logging levels.
type LogLevel string

const (
	LogLevelDebug LogLevel = "debug"
	LogLevelInfo  LogLevel = "info"
	LogLevelWarn  LogLevel = "warn"
	LogLevelError LogLevel = "error"
)

var logLevelNormalizer = normalization.NewNormalizer("log_level", map[string]LogLevel{
	"debug":   LogLevelDebug,
	"info":    LogLevelInfo,
	"warn":    LogLevelWarn,
	"warning": LogLevelWarn,
	"error":   LogLevelError,
}, LogLevelInfo)

// LogFormat enumerates supported log output formats.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

var logFormatNormalizer = normalization.NewNormalizer("log_format", map[string]LogFormat{
	"json": LogFormatJSON,
	"text": LogFormatText,
}, LogFormatText)

// Settings is the daemon settings document (rfidisk_config.json).
// Keys absent from the file keep their DefaultSettings value.
type Settings struct {
	SerialPort           string  `json:"serial_port"`
	RemovalDelay         float64 `json:"removal_delay"`
	DesktopNotifications bool    `json:"desktop_notifications"`
	NotificationTimeout  int     `json:"notification_timeout"`
	AutoLaunchManager    bool    `json:"auto_launch_manager"`
	DisableAutolaunch    bool    `json:"disable_autolaunch"`

	LaunchMode       string `json:"launch_mode,omitempty"`
	Shell            string `json:"shell,omitempty"`
	EditorCommand    string `json:"editor_command,omitempty"`
	NotificationIcon string `json:"notification_icon,omitempty"`

	EventLog    string `json:"event_log,omitempty"`
	NATSURL     string `json:"nats_url,omitempty"`
	NATSSubject string `json:"nats_subject,omitempty"`
	MetricsAddr string `json:"metrics_addr,omitempty"`

	LogLevel  string `json:"log_level,omitempty"`
	LogFormat string `json:"log_format,omitempty"`
}

// DefaultSettings returns the settings used when no document exists.
func DefaultSettings() Settings {
	return Settings{
		SerialPort:           "/dev/rfidisk",
		RemovalDelay:         0,
		DesktopNotifications: true,
		NotificationTimeout:  3000,
		AutoLaunchManager:    true,
		DisableAutolaunch:    false,
		LaunchMode:           string(LaunchModeShell),
		Shell:                "/bin/sh",
		EditorCommand:        "rfidisk-manager",
		NATSSubject:          "rfidisk.events",
		LogLevel:             string(LogLevelInfo),
		LogFormat:            string(LogFormatText),
	}
}

// RemovalDelayDuration converts the removal debounce to a duration.
func (s Settings) RemovalDelayDuration() time.Duration {
	if s.RemovalDelay <= 0 {
		return 0
	}
	return time.Duration(s.RemovalDelay * float64(time.Second))
}

// NotificationTimeoutDuration converts notification_timeout (ms) to a duration.
func (s Settings) NotificationTimeoutDuration() time.Duration {
	if s.NotificationTimeout <= 0 {
		return 0
	}
	return time.Duration(s.NotificationTimeout) * time.Millisecond
}

func (s Settings) Mode() LaunchMode     { return launchModeNormalizer.Normalize(s.LaunchMode) }
func (s Settings) Level() LogLevel      { return logLevelNormalizer.Normalize(s.LogLevel) }
func (s Settings) Format() LogFormat    { return logFormatNormalizer.Normalize(s.LogFormat) }
func (s Settings) AutolaunchOn() bool   { return !s.DisableAutolaunch }
func (s Settings) JournalEnabled() bool { return strings.TrimSpace(s.EventLog) != "" }

// Normalize repairs values that would otherwise break the daemon and
// returns a description of each repair.
func (s *Settings) Normalize() []string {
	var warnings []string
	def := DefaultSettings()
	if strings.TrimSpace(s.SerialPort) == "" {
		s.SerialPort = def.SerialPort
		warnings = append(warnings, "serial_port empty, using "+def.SerialPort)
	}
	if s.RemovalDelay < 0 {
		warnings = append(warnings, fmt.Sprintf("removal_delay %v is negative, using 0", s.RemovalDelay))
		s.RemovalDelay = 0
	}
	if s.NotificationTimeout < 0 {
		warnings = append(warnings, "notification_timeout is negative, using default")
		s.NotificationTimeout = def.NotificationTimeout
	}
	if _, err := launchModeNormalizer.NormalizeWithError(s.LaunchMode); err != nil {
		warnings = append(warnings, err.Error())
	}
	s.LaunchMode = string(s.Mode())
	if strings.TrimSpace(s.Shell) == "" {
		s.Shell = def.Shell
	}
	if strings.TrimSpace(s.NATSSubject) == "" {
		s.NATSSubject = def.NATSSubject
	}
	return warnings
}

// LoadSettings reads the settings document at path. A missing file yields
// defaults without error. An unreadable or corrupt file yields defaults and a
// StorageError so the caller can log it and carry on.
func LoadSettings(path string) (Settings, error) {
	s := DefaultSettings()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			ApplyEnv(&s)
			return s, nil
		}
		return s, errors.StorageError("failed to read settings").WithCause(err).WithContext("path", path).Build()
	}
	if err := json.Unmarshal(data, &s); err != nil {
		s = DefaultSettings()
		ApplyEnv(&s)
		return s, errors.StorageError("failed to parse settings").WithCause(err).WithContext("path", path).Build()
	}
	ApplyEnv(&s)
	return s, nil
}

// SaveSettings writes the settings document as indented JSON.
func SaveSettings(path string, s Settings) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return errors.WrapError(err, errors.CategoryInternal, "failed to encode settings").Build()
	}
	if err := WriteFileAtomic(path, append(data, '\n'), 0o644); err != nil {
		return errors.StorageError("failed to write settings").WithCause(err).WithContext("path", path).Build()
	}
	return nil
}

// EnsureSettings loads settings, writing the defaults to disk first when the
// document does not exist yet.
func EnsureSettings(path string) (Settings, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return DefaultSettings(), errors.StorageError("failed to create config directory").WithCause(err).Build()
		}
		if err := SaveSettings(path, DefaultSettings()); err != nil {
			return DefaultSettings(), err
		}
	}
	return LoadSettings(path)
}

// ApplyEnv overlays RFIDISK_* environment variables onto s.
func ApplyEnv(s *Settings) {
	if v := os.Getenv("RFIDISK_SERIAL_PORT"); v != "" {
		s.SerialPort = v
	}
	if v := os.Getenv("RFIDISK_REMOVAL_DELAY"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			s.RemovalDelay = f
		}
	}
	if v := os.Getenv("RFIDISK_DISABLE_AUTOLAUNCH"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			s.DisableAutolaunch = b
		}
	}
	if v := os.Getenv("RFIDISK_LOG_LEVEL"); v != "" {
		s.LogLevel = v
	}
}

// WriteFileAtomic writes data to a temp file beside path and renames it over
// path, so readers never observe a half-written document.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Chmod(perm); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
