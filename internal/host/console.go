// Package host issues extension lifecycle operations against the shop host.
//
// Ownership boundary:
// - plugin:install/uninstall/refresh command construction
// - failure classification from command output
package host

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/danmuck/storesync/internal/tools"
	"github.com/rs/zerolog/log"
)

var (
	ErrOperation         = errors.New("host: operation failed")
	ErrBaseClassNotFound = errors.New("host: extension base class not found")
	ErrInvalidName       = errors.New("host: invalid extension name")
	ErrConsoleMissing    = errors.New("host: console not found")
)

// DefaultConsole is the shop console entry point, relative to the project dir.
const DefaultConsole = "bin/console"

var baseClassNotFound = regexp.MustCompile(`(?i)(PluginBaseClassNotFoundException|base class .* not found)`)

// Console runs lifecycle commands through the shop console binary.
type Console struct {
	console []string
	runner  tools.CommandRunner
}

// ConsoleConfig selects the console command and the runner executing it.
type ConsoleConfig struct {
	// Command is the console invocation, e.g. ["php", "bin/console"].
	Command []string
	Runner  tools.CommandRunner
}

func NewConsole(cfg ConsoleConfig) *Console {
	command := make([]string, 0, len(cfg.Command))
	for _, part := range cfg.Command {
		if p := strings.TrimSpace(part); p != "" {
			command = append(command, p)
		}
	}
	if len(command) == 0 {
		command = []string{DefaultConsole}
	}
	runner := cfg.Runner
	if runner == nil {
		runner = tools.ExecRunner{}
	}
	return &Console{console: command, runner: runner}
}

// Install installs and activates one extension.
func (c *Console) Install(ctx context.Context, name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	return c.run(ctx, "plugin:install", "--activate", "--no-interaction", name)
}

// Uninstall removes one extension.
func (c *Console) Uninstall(ctx context.Context, name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	return c.run(ctx, "plugin:uninstall", "--no-interaction", name)
}

// Refresh rescans the extension directories so new base classes are known.
func (c *Console) Refresh(ctx context.Context) error {
	return c.run(ctx, "plugin:refresh", "--no-interaction")
}

func (c *Console) run(ctx context.Context, args ...string) error {
	name := c.console[0]
	full := append(append([]string{}, c.console[1:]...), args...)
	log.Debug().Str("cmd", name).Strs("args", full).Msg("host.console exec")

	res, err := c.runner.Run(ctx, name, full...)
	if err == nil {
		return nil
	}
	output := res.Combined()
	if res.ExitCode == tools.ExitCommandNotFound {
		return fmt.Errorf("%w: %w: cmd=%s: %v", ErrOperation, ErrConsoleMissing, name, err)
	}
	if baseClassNotFound.MatchString(output) {
		return fmt.Errorf("%w: args=%q output=%q", ErrBaseClassNotFound, strings.Join(args, " "), output)
	}
	return fmt.Errorf(
		"%w: cmd=%s args=%q exit=%d output=%q: %v",
		ErrOperation,
		name,
		strings.Join(full, " "),
		res.ExitCode,
		output,
		err,
	)
}

func validateName(name string) error {
	n := strings.TrimSpace(name)
	if n == "" || strings.HasPrefix(n, "-") || strings.ContainsAny(n, " \t\n") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}
