package ports

import (
	"context"
	"os"
)

// ProcessSpec describes a long-running child process to launch.
// Stdio is inherited from the parent; output is never intercepted.
type ProcessSpec struct {
	Program string
	Args    []string
	Dir     string
	Env     []string
}

// Process is a handle to a started child process.
type Process interface {
	// Wait blocks until the process exits and returns its exit code.
	// A signal-terminated child is reported as 128+signum.
	Wait() (int, error)

	// Signal delivers a signal to the process.
	Signal(sig os.Signal) error
}

// ProcessSpawner starts child processes with pass-through stdio.
type ProcessSpawner interface {
	Start(ctx context.Context, spec ProcessSpec) (Process, error)
}
