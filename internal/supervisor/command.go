package supervisor

import (
	"strings"

	"github.com/ItsDanik/rfidisk/internal/config"
	"github.com/ItsDanik/rfidisk/internal/foundation/errors"
)

// Command is a resolved program and argument vector. Raw keeps the string
// the user configured.
type Command struct {
	Raw     string
	Program string
	Args    []string
}

func (c Command) String() string { return c.Raw }

// CommandBuilder turns configured command strings into Commands.
type CommandBuilder struct {
	Mode  config.LaunchMode
	Shell string
}

// BuilderFor returns the builder described by settings.
func BuilderFor(s config.Settings) CommandBuilder {
	return CommandBuilder{Mode: s.Mode(), Shell: s.Shell}
}

// Build resolves raw. In shell mode the whole string is passed to the shell
// with -c; in direct mode it is split on whitespace and the first field is
// executed without a shell.
func (b CommandBuilder) Build(raw string) (Command, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Command{}, errors.ValidationError("empty command").WithSeverity(errors.SeverityError).Build()
	}
	if b.Mode == config.LaunchModeDirect {
		fields := strings.Fields(trimmed)
		return Command{Raw: raw, Program: fields[0], Args: fields[1:]}, nil
	}
	shell := b.Shell
	if shell == "" {
		shell = "/bin/sh"
	}
	return Command{Raw: raw, Program: shell, Args: []string{"-c", trimmed}}, nil
}
