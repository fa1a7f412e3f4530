package conda

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/trainboot/trainboot/internal/ports"
)

// Manager drives the conda binary for environment operations. State is
// queried through conda's own JSON listing, never through shell state.
type Manager struct {
	runner    ports.CommandRunner
	condaPath string
}

// NewManager creates a Manager around the conda binary at condaPath.
func NewManager(runner ports.CommandRunner, condaPath string) *Manager {
	return &Manager{
		runner:    runner,
		condaPath: condaPath,
	}
}

// envList mirrors the JSON output of `conda env list --json`.
type envList struct {
	Envs []string `json:"envs"`
}

// EnvPrefixes returns the prefixes of all known environments.
func (m *Manager) EnvPrefixes(ctx context.Context) ([]string, error) {
	result, err := m.runner.Run(ctx, m.condaPath, "env", "list", "--json")
	if err != nil {
		return nil, fmt.Errorf("list environments: %w", err)
	}
	if !result.Success() {
		return nil, fmt.Errorf("conda env list failed: %s", result.Stderr)
	}

	var list envList
	if err := json.Unmarshal([]byte(result.Stdout), &list); err != nil {
		return nil, fmt.Errorf("parse conda env list output: %w", err)
	}

	return list.Envs, nil
}

// EnvPrefix resolves a named environment to its prefix directory.
// The second return is false when the environment does not exist.
func (m *Manager) EnvPrefix(ctx context.Context, name string) (string, bool, error) {
	prefixes, err := m.EnvPrefixes(ctx)
	if err != nil {
		return "", false, err
	}

	for _, prefix := range prefixes {
		if filepath.Base(prefix) == name {
			return prefix, true, nil
		}
	}

	return "", false, nil
}

// HasEnv reports whether a named environment exists.
func (m *Manager) HasEnv(ctx context.Context, name string) (bool, error) {
	_, ok, err := m.EnvPrefix(ctx, name)
	return ok, err
}

// CreateError reports a failed environment creation together with the
// resolver's own output, which is surfaced verbatim to the user.
type CreateError struct {
	Name   string
	Output string
}

// Error returns the resolver output verbatim, prefixed by the env name.
func (e *CreateError) Error() string {
	return fmt.Sprintf("create environment %q: %s", e.Name, strings.TrimSpace(e.Output))
}

// CreateFromSpec creates a named environment from a dependency
// specification file. The caller classifies the returned *CreateError via
// IsConflict / IsTransient before deciding on retry.
func (m *Manager) CreateFromSpec(ctx context.Context, name, specPath string) error {
	result, err := m.runner.Run(ctx, m.condaPath, "env", "create", "--yes", "-n", name, "-f", specPath)
	if err != nil {
		return fmt.Errorf("run conda env create: %w", err)
	}
	if !result.Success() {
		return &CreateError{Name: name, Output: result.Output()}
	}

	return nil
}

// conflictMarkers are emitted by conda's resolvers on unsatisfiable
// dependency sets. Spelling varies across resolver backends.
var conflictMarkers = []string{
	"UnsatisfiableError",
	"LibMambaUnsatisfiableError",
	"ResolvePackageNotFound",
	"PackagesNotFoundError",
}

// transientMarkers indicate network-level failures that are worth a
// bounded retry.
var transientMarkers = []string{
	"CondaHTTPError",
	"ConnectionError",
	"ReadTimeoutError",
	"Connection broken",
	"Temporary failure in name resolution",
}

// IsConflict reports whether err is a dependency resolution conflict.
func IsConflict(err error) bool {
	return matchesCreateError(err, conflictMarkers)
}

// IsTransient reports whether err looks like a transient network failure.
func IsTransient(err error) bool {
	return matchesCreateError(err, transientMarkers)
}

func matchesCreateError(err error, markers []string) bool {
	var createErr *CreateError
	if !errors.As(err, &createErr) {
		return false
	}
	for _, marker := range markers {
		if strings.Contains(createErr.Output, marker) {
			return true
		}
	}
	return false
}
