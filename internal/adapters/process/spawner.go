// Package process provides the OS-backed ports.ProcessSpawner adapter.
//
// Children started here inherit the parent's stdio streams untouched, so
// the launched job's output reaches the caller exactly as the job wrote it.
package process

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"syscall"

	"github.com/trainboot/trainboot/internal/ports"
)

// RealSpawner starts actual child processes with pass-through stdio.
type RealSpawner struct{}

// NewRealSpawner creates a new RealSpawner.
func NewRealSpawner() *RealSpawner {
	return &RealSpawner{}
}

// Start launches the child process described by spec.
func (s *RealSpawner) Start(ctx context.Context, spec ports.ProcessSpec) (ports.Process, error) {
	cmd := exec.CommandContext(ctx, spec.Program, spec.Args...)
	cmd.Dir = spec.Dir
	cmd.Env = spec.Env
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	// Let the launcher decide when to signal the child instead of having
	// CommandContext kill it outright on cancellation.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	return &realProcess{cmd: cmd}, nil
}

type realProcess struct {
	cmd *exec.Cmd
}

// Wait blocks until the child exits and returns its true exit code.
// A signal-terminated child is reported as 128+signum, matching the
// convention shells use.
func (p *realProcess) Wait() (int, error) {
	err := p.cmd.Wait()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			return 128 + int(status.Signal()), nil
		}
		return exitErr.ExitCode(), nil
	}

	return -1, err
}

// Signal delivers a signal to the child.
func (p *realProcess) Signal(sig os.Signal) error {
	return p.cmd.Process.Signal(sig)
}

// Ensure RealSpawner implements ports.ProcessSpawner.
var _ ports.ProcessSpawner = (*RealSpawner)(nil)
