// Package conda wraps the conda environment manager: locating its binary,
// listing environments, and computing activation environments without
// touching shell profile state.
package conda

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/trainboot/trainboot/internal/ports"
)

// ErrNotFound indicates a tool could not be located. Callers decide
// whether that is fatal for their stage.
var ErrNotFound = errors.New("tool not found")

// Probe locates external tools on the host. It inspects PATH directly and
// falls back to well-known install roots, so it never depends on a shell
// initialization file having been sourced.
type Probe struct {
	lookPath func(string) (string, error)
	roots    []string
	runner   ports.CommandRunner
}

// ProbeOption configures a Probe.
type ProbeOption func(*Probe)

// WithLookPath overrides PATH lookup (for tests).
func WithLookPath(fn func(string) (string, error)) ProbeOption {
	return func(p *Probe) {
		p.lookPath = fn
	}
}

// WithRoots overrides the well-known install roots.
func WithRoots(roots ...string) ProbeOption {
	return func(p *Probe) {
		p.roots = roots
	}
}

// WithPreferredRoot checks the given root before the well-known ones.
func WithPreferredRoot(root string) ProbeOption {
	return func(p *Probe) {
		if root != "" {
			p.roots = append([]string{root}, p.roots...)
		}
	}
}

// NewProbe creates a Probe with the default lookup order.
func NewProbe(runner ports.CommandRunner, opts ...ProbeOption) *Probe {
	p := &Probe{
		lookPath: exec.LookPath,
		roots:    defaultRoots(),
		runner:   runner,
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// defaultRoots returns the install locations checked when a tool is not on
// PATH, in order of preference.
func defaultRoots() []string {
	roots := []string{
		"/opt/conda",
		"/opt/miniconda3",
		"/usr/local/miniconda3",
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return roots
	}

	return append([]string{
		filepath.Join(home, "miniconda3"),
		filepath.Join(home, "anaconda3"),
		filepath.Join(home, "mambaforge"),
	}, roots...)
}

// Locate resolves a tool to an absolute path. Read-only; returns
// ErrNotFound rather than failing hard.
func (p *Probe) Locate(tool string) (string, error) {
	if path, err := p.lookPath(tool); err == nil {
		return path, nil
	}

	for _, root := range p.roots {
		for _, dir := range []string{"bin", "condabin"} {
			candidate := filepath.Join(root, dir, tool)
			if isExecutable(candidate) {
				return candidate, nil
			}
		}
	}

	return "", fmt.Errorf("%w: %s", ErrNotFound, tool)
}

// Version returns the version reported by the conda binary at path.
func (p *Probe) Version(ctx context.Context, path string) (string, error) {
	result, err := p.runner.Run(ctx, path, "--version")
	if err != nil {
		return "", fmt.Errorf("query conda version: %w", err)
	}
	if !result.Success() {
		return "", fmt.Errorf("conda --version failed: %s", result.Stderr)
	}

	// Output is "conda 24.1.2".
	fields := strings.Fields(strings.TrimSpace(result.Stdout))
	if len(fields) == 0 {
		return "", fmt.Errorf("unexpected conda version output: %q", result.Stdout)
	}
	return fields[len(fields)-1], nil
}

// CheckMinVersion verifies the conda binary at path meets the minimum
// version. An empty minimum disables the gate.
func (p *Probe) CheckMinVersion(ctx context.Context, path, minimum string) error {
	if minimum == "" {
		return nil
	}

	version, err := p.Version(ctx, path)
	if err != nil {
		return err
	}

	if semver.Compare("v"+version, "v"+minimum) < 0 {
		return fmt.Errorf("conda %s is older than required %s", version, minimum)
	}
	return nil
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode()&0o111 != 0
}
