// Package ports defines interfaces for external dependencies.
package ports

import (
	"context"
	"strings"
)

// CommandResult captures one finished tool invocation. Stdout and Stderr
// are kept separate so resolver and installer output can be surfaced
// verbatim on failure.
type CommandResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Success returns true if the command exited with code 0.
func (r CommandResult) Success() bool {
	return r.ExitCode == 0
}

// Output returns the trimmed stderr, falling back to stdout. Tools differ
// in which stream carries the diagnostic.
func (r CommandResult) Output() string {
	if s := strings.TrimSpace(r.Stderr); s != "" {
		return s
	}
	return strings.TrimSpace(r.Stdout)
}

// CommandCall records a command invocation.
type CommandCall struct {
	Command string
	Args    []string
}

// CommandRunner executes external tools (conda, pip, the installer script)
// and captures their output. A nonzero exit is reported in the result, not
// as an error; errors mean the command could not run at all.
type CommandRunner interface {
	Run(ctx context.Context, command string, args ...string) (CommandResult, error)
}
