// Package installer provides the stage that ensures the conda
// distribution is present on the host.
//
// The installer script is always run in batch mode: the license prompt is
// answered by the -b flag and no shell profile is ever modified.
// Activation is computed separately, so there is exactly one
// non-interactive install path and no dependency on a TTY.
package installer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/trainboot/trainboot/internal/domain/conda"
	"github.com/trainboot/trainboot/internal/domain/provision"
	"github.com/trainboot/trainboot/internal/ports"
)

// ToolConda is the ExecutionContext key under which the resolved conda
// binary path is recorded.
const ToolConda = "conda"

// Config holds the installer stage configuration.
type Config struct {
	// URL of the installer script.
	URL string
	// InstallRoot is the prefix passed to the installer (-p).
	InstallRoot string
	// Checksum is an optional SHA-256 digest for the downloaded script.
	Checksum string
	// MinVersion optionally gates the located conda binary.
	MinVersion string
}

// Stage ensures conda is installed.
type Stage struct {
	cfg     Config
	id      provision.StageID
	probe   *conda.Probe
	fetcher *Fetcher
	runner  ports.CommandRunner
}

// NewStage creates the installer stage.
func NewStage(cfg Config, probe *conda.Probe, fetcher *Fetcher, runner ports.CommandRunner) *Stage {
	return &Stage{
		cfg:     cfg,
		id:      provision.MustNewStageID("installer:miniconda"),
		probe:   probe,
		fetcher: fetcher,
		runner:  runner,
	}
}

// ID returns the stage identifier.
func (s *Stage) ID() provision.StageID {
	return s.id
}

// Check is satisfied when conda is already locatable. The resolved path is
// recorded for later stages either way.
func (s *Stage) Check(ctx provision.RunContext) (provision.StageStatus, error) {
	path, err := s.probe.Locate(ToolConda)
	if err != nil {
		return provision.StatusNeedsApply, nil
	}

	if err := s.probe.CheckMinVersion(ctx.Context(), path, s.cfg.MinVersion); err != nil {
		return provision.StatusUnknown, provision.NewStageError(
			provision.KindToolMissing, s.id, "installed conda is unusable").WithUnderlying(err)
	}

	ctx.Exec().SetTool(ToolConda, path)
	return provision.StatusSatisfied, nil
}

// Apply downloads the installer script and runs it in batch mode.
func (s *Stage) Apply(ctx provision.RunContext) error {
	scriptPath := filepath.Join(os.TempDir(), "miniconda-installer.sh")

	if err := s.fetcher.Fetch(ctx.Context(), s.cfg.URL, scriptPath); err != nil {
		return provision.NewStageError(
			provision.KindNetworkTransient, s.id, "installer download failed").WithUnderlying(err)
	}
	defer func() { _ = os.Remove(scriptPath) }()

	if err := VerifyChecksum(scriptPath, s.cfg.Checksum); err != nil {
		return provision.NewStageError(
			provision.KindInstallFailure, s.id, "installer artifact rejected").WithUnderlying(err)
	}

	// -b accepts the license and skips all prompts; -p pins the prefix.
	// The installer never touches shell profiles this way.
	result, err := s.runner.Run(ctx.Context(), "bash", scriptPath, "-b", "-p", s.cfg.InstallRoot)
	if err != nil {
		return provision.NewStageError(
			provision.KindInstallFailure, s.id, "installer execution failed").WithUnderlying(err)
	}
	if !result.Success() {
		return provision.NewStageError(
			provision.KindInstallFailure, s.id,
			fmt.Sprintf("installer exited with code %d: %s", result.ExitCode, result.Stderr))
	}

	return nil
}

// Verify confirms the installer produced a locatable conda binary and
// records its path.
func (s *Stage) Verify(ctx provision.RunContext) error {
	path, err := s.probe.Locate(ToolConda)
	if err != nil {
		return provision.NewStageError(
			provision.KindToolMissing, s.id, "installer did not produce usable binary").WithUnderlying(err)
	}

	if err := s.probe.CheckMinVersion(ctx.Context(), path, s.cfg.MinVersion); err != nil {
		return provision.NewStageError(
			provision.KindToolMissing, s.id, "installer did not produce usable binary").WithUnderlying(err)
	}

	ctx.Exec().SetTool(ToolConda, path)
	return nil
}

// Ensure Stage implements provision.Stage.
var _ provision.Stage = (*Stage)(nil)
