package conda

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Activator computes the process environment equivalent to activating a
// conda environment in a fresh shell. Activation is a pure function of the
// manager's introspection: no profile sourcing, no shell state mutation.
// Results are memoized per environment name.
type Activator struct {
	mgr      *Manager
	basePath string

	mu    sync.Mutex
	cache map[string]map[string]string
}

// ActivatorOption configures an Activator.
type ActivatorOption func(*Activator)

// WithBasePath sets the PATH value the env's bin directory is prepended
// to. Defaults to the current process PATH.
func WithBasePath(path string) ActivatorOption {
	return func(a *Activator) {
		a.basePath = path
	}
}

// NewActivator creates an Activator backed by the given Manager.
func NewActivator(mgr *Manager, opts ...ActivatorOption) *Activator {
	a := &Activator{
		mgr:      mgr,
		basePath: os.Getenv("PATH"),
		cache:    make(map[string]map[string]string),
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Environment returns the activation environment for the named env:
// CONDA_PREFIX, CONDA_DEFAULT_ENV, and PATH with the env's bin directory
// prepended. The returned map is a copy; callers may mutate it freely.
func (a *Activator) Environment(ctx context.Context, name string) (map[string]string, error) {
	a.mu.Lock()
	cached, ok := a.cache[name]
	a.mu.Unlock()
	if ok {
		return copyEnv(cached), nil
	}

	prefix, found, err := a.mgr.EnvPrefix(ctx, name)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("environment %q not found", name)
	}

	env := map[string]string{
		"CONDA_PREFIX":      prefix,
		"CONDA_DEFAULT_ENV": name,
		"PATH":              filepath.Join(prefix, "bin") + string(os.PathListSeparator) + a.basePath,
	}

	a.mu.Lock()
	a.cache[name] = env
	a.mu.Unlock()

	return copyEnv(env), nil
}

// Python returns the environment's interpreter path.
func (a *Activator) Python(ctx context.Context, name string) (string, error) {
	return a.binPath(ctx, name, "python")
}

// Pip returns the environment's pip path.
func (a *Activator) Pip(ctx context.Context, name string) (string, error) {
	return a.binPath(ctx, name, "pip")
}

// BinPath resolves an arbitrary executable inside the environment.
func (a *Activator) BinPath(ctx context.Context, name, executable string) (string, error) {
	return a.binPath(ctx, name, executable)
}

func (a *Activator) binPath(ctx context.Context, name, executable string) (string, error) {
	env, err := a.Environment(ctx, name)
	if err != nil {
		return "", err
	}
	return filepath.Join(env["CONDA_PREFIX"], "bin", executable), nil
}

func copyEnv(env map[string]string) map[string]string {
	copied := make(map[string]string, len(env))
	for k, v := range env {
		copied[k] = v
	}
	return copied
}
