// Package project provides the stage that installs the local project into
// the active environment in editable mode.
package project

import (
	"fmt"
	"strings"

	"github.com/trainboot/trainboot/internal/domain/conda"
	"github.com/trainboot/trainboot/internal/domain/provision"
	"github.com/trainboot/trainboot/internal/ports"
)

// editableMarker appears in `pip show` output for editable installs.
const editableMarker = "Editable project location:"

// Config holds the project install stage configuration.
type Config struct {
	// Dir is the local project root.
	Dir string
	// EnvName is the environment the project is installed into.
	EnvName string
}

// Stage installs the project in editable mode, so the source tree itself
// is what executes.
type Stage struct {
	cfg       Config
	id        provision.StageID
	runner    ports.CommandRunner
	fs        ports.FileSystem
	activator *conda.Activator
}

// NewStage creates the project install stage.
func NewStage(cfg Config, runner ports.CommandRunner, fs ports.FileSystem, activator *conda.Activator) *Stage {
	return &Stage{
		cfg:       cfg,
		id:        provision.MustNewStageID("project:editable-install"),
		runner:    runner,
		fs:        fs,
		activator: activator,
	}
}

// ID returns the stage identifier.
func (s *Stage) ID() provision.StageID {
	return s.id
}

// Check asks the environment's own pip whether the project is already
// installed in editable mode.
func (s *Stage) Check(ctx provision.RunContext) (provision.StageStatus, error) {
	installed, err := s.isEditableInstalled(ctx)
	if err != nil {
		return provision.StatusUnknown, err
	}
	if installed {
		return provision.StatusSatisfied, nil
	}
	return provision.StatusNeedsApply, nil
}

// Apply runs the editable install. Build and dependency errors are fatal
// and surface pip's own message; nothing is swallowed.
func (s *Stage) Apply(ctx provision.RunContext) error {
	pip, err := s.activator.Pip(ctx.Context(), s.cfg.EnvName)
	if err != nil {
		return provision.NewStageError(
			provision.KindToolMissing, s.id, "cannot resolve environment pip").WithUnderlying(err)
	}

	result, err := s.runner.Run(ctx.Context(), pip, "install", "-e", s.cfg.Dir)
	if err != nil {
		return provision.NewStageError(
			provision.KindInstallFailure, s.id, "pip install -e failed").WithUnderlying(err)
	}
	if !result.Success() {
		return provision.NewStageError(
			provision.KindInstallFailure, s.id,
			fmt.Sprintf("pip install -e failed: %s", strings.TrimSpace(result.Stderr)))
	}

	return nil
}

// Verify confirms pip now reports the editable install.
func (s *Stage) Verify(ctx provision.RunContext) error {
	installed, err := s.isEditableInstalled(ctx)
	if err != nil {
		return err
	}
	if !installed {
		return provision.NewStageError(
			provision.KindInstallFailure, s.id, "project not reported as editable install after pip install -e")
	}
	return nil
}

// isEditableInstalled queries pip for the project's distribution.
func (s *Stage) isEditableInstalled(ctx provision.RunContext) (bool, error) {
	pip, err := s.activator.Pip(ctx.Context(), s.cfg.EnvName)
	if err != nil {
		return false, provision.NewStageError(
			provision.KindToolMissing, s.id, "cannot resolve environment pip").WithUnderlying(err)
	}

	name := DistributionName(s.fs, s.cfg.Dir)
	result, err := s.runner.Run(ctx.Context(), pip, "show", name)
	if err != nil {
		return false, provision.NewStageError(
			provision.KindInstallFailure, s.id, "pip show failed").WithUnderlying(err)
	}

	// pip show exits nonzero when the distribution is not installed.
	if !result.Success() {
		return false, nil
	}

	return strings.Contains(result.Stdout, editableMarker), nil
}

// Ensure Stage implements provision.Stage.
var _ provision.Stage = (*Stage)(nil)
