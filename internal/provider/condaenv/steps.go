// Package condaenv provides the stage that ensures the named conda
// environment exists with the declared dependency set.
package condaenv

import (
	"fmt"
	"time"

	"github.com/trainboot/trainboot/internal/domain/conda"
	"github.com/trainboot/trainboot/internal/domain/provision"
	"github.com/trainboot/trainboot/internal/ports"
	"github.com/trainboot/trainboot/internal/retry"
)

// Config holds the environment stage configuration.
type Config struct {
	// Name of the environment to ensure.
	Name string
	// SpecFile is the declarative dependency specification path.
	SpecFile string
	// NetworkAttempts bounds retries for package fetch failures.
	NetworkAttempts int
	// RetryDelay is the initial backoff between attempts.
	RetryDelay time.Duration
}

// Stage ensures the environment exists. An existing environment is never
// re-created: naive re-running of create must not destroy a working env.
type Stage struct {
	cfg    Config
	id     provision.StageID
	runner ports.CommandRunner
	fs     ports.FileSystem
}

// NewStage creates the environment stage.
func NewStage(cfg Config, runner ports.CommandRunner, fs ports.FileSystem) *Stage {
	return &Stage{
		cfg:    cfg,
		id:     provision.MustNewStageID("env:create"),
		runner: runner,
		fs:     fs,
	}
}

// ID returns the stage identifier.
func (s *Stage) ID() provision.StageID {
	return s.id
}

// manager builds the conda manager from the path resolved by the
// installer stage.
func (s *Stage) manager(ctx provision.RunContext) (*conda.Manager, error) {
	condaPath, ok := ctx.Exec().Tool("conda")
	if !ok {
		return nil, provision.NewStageError(
			provision.KindToolMissing, s.id, "conda path not resolved by installer stage")
	}
	return conda.NewManager(s.runner, condaPath), nil
}

// Check is satisfied when the environment appears in conda's own listing.
func (s *Stage) Check(ctx provision.RunContext) (provision.StageStatus, error) {
	mgr, err := s.manager(ctx)
	if err != nil {
		return provision.StatusUnknown, err
	}

	exists, err := mgr.HasEnv(ctx.Context(), s.cfg.Name)
	if err != nil {
		return provision.StatusUnknown, provision.NewStageError(
			provision.KindInstallFailure, s.id, "environment listing failed").WithUnderlying(err)
	}

	if exists {
		return provision.StatusSatisfied, nil
	}
	return provision.StatusNeedsApply, nil
}

// Apply creates the environment from the specification file. A missing
// spec file fails immediately without touching the network; resolver
// conflicts fail immediately with the resolver's output; only transient
// network failures are retried, up to the configured bound.
func (s *Stage) Apply(ctx provision.RunContext) error {
	if !s.fs.Exists(s.cfg.SpecFile) {
		return provision.NewStageError(
			provision.KindInstallFailure, s.id,
			fmt.Sprintf("specification file missing: %s", s.cfg.SpecFile))
	}

	mgr, err := s.manager(ctx)
	if err != nil {
		return err
	}

	createErr := retry.Do(ctx.Context(), func() error {
		err := mgr.CreateFromSpec(ctx.Context(), s.cfg.Name, s.cfg.SpecFile)
		if err == nil {
			return nil
		}
		if conda.IsTransient(err) {
			return err
		}
		return retry.Permanent(err)
	}, retry.WithAttempts(s.cfg.NetworkAttempts), retry.WithInitialDelay(s.retryDelay()))

	if createErr == nil {
		return nil
	}

	switch {
	case conda.IsConflict(createErr):
		return provision.NewStageError(
			provision.KindDependencyConflict, s.id, "dependency resolution conflict").WithUnderlying(createErr)
	case conda.IsTransient(createErr):
		return provision.NewStageError(
			provision.KindNetworkTransient, s.id, "package fetch kept failing").WithUnderlying(createErr)
	default:
		return provision.NewStageError(
			provision.KindInstallFailure, s.id, "environment creation failed").WithUnderlying(createErr)
	}
}

func (s *Stage) retryDelay() time.Duration {
	if s.cfg.RetryDelay > 0 {
		return s.cfg.RetryDelay
	}
	return 2 * time.Second
}

// Verify confirms the environment is now listable.
func (s *Stage) Verify(ctx provision.RunContext) error {
	mgr, err := s.manager(ctx)
	if err != nil {
		return err
	}

	exists, err := mgr.HasEnv(ctx.Context(), s.cfg.Name)
	if err != nil {
		return provision.NewStageError(
			provision.KindInstallFailure, s.id, "environment listing failed").WithUnderlying(err)
	}
	if !exists {
		return provision.NewStageError(
			provision.KindInstallFailure, s.id,
			fmt.Sprintf("environment %q not listable after create", s.cfg.Name))
	}

	return nil
}

// Ensure Stage implements provision.Stage.
var _ provision.Stage = (*Stage)(nil)
