// Package desktop holds the daemon's best-effort desktop collaborators: the
// notification sender and the tag editor launcher.
package desktop

import (
	"context"
	"log/slog"
	"os/exec"
	"strconv"
	"time"

	"github.com/ItsDanik/rfidisk/internal/logfields"
)

// Notifier shows a desktop notification. Failures are swallowed.
type Notifier interface {
	Notify(title, message string)
}

// NotifySend delivers notifications through the notify-send binary.
type NotifySend struct {
	Icon    string
	Timeout time.Duration

	lookPath func(string) (string, error)
	run      func(ctx context.Context, name string, args ...string) error
}

// NewNotifySend returns a notifier using icon (may be empty) and timeout.
func NewNotifySend(icon string, timeout time.Duration) *NotifySend {
	return &NotifySend{
		Icon:     icon,
		Timeout:  timeout,
		lookPath: exec.LookPath,
		run: func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		},
	}
}

// Args returns the notify-send argument list for one notification.
func (n *NotifySend) Args(title, message string) []string {
	var args []string
	if n.Icon != "" {
		args = append(args, "-i", n.Icon)
	}
	if n.Timeout > 0 {
		args = append(args, "-t", strconv.FormatInt(n.Timeout.Milliseconds(), 10))
	}
	return append(args, title, message)
}

func (n *NotifySend) Notify(title, message string) {
	bin, err := n.lookPath("notify-send")
	if err != nil {
		slog.Debug("notify-send not available", logfields.Error(err))
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := n.run(ctx, bin, n.Args(title, message)...); err != nil {
		slog.Debug("Notification failed", slog.String("title", title), logfields.Error(err))
	}
}

// Discard drops every notification.
type Discard struct{}

func (Discard) Notify(string, string) {}
