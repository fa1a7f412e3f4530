package condaenv

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/trainboot/trainboot/internal/domain/provision"
	"github.com/trainboot/trainboot/internal/ports"
	"github.com/trainboot/trainboot/internal/testutil/mocks"
)

const condaBin = "/opt/miniconda3/bin/conda"

var createArgs = []string{"env", "create", "--yes", "-n", "torchmd-net", "-f", "environment.yml"}

func testConfig() Config {
	return Config{
		Name:            "torchmd-net",
		SpecFile:        "environment.yml",
		NetworkAttempts: 3,
		RetryDelay:      time.Millisecond,
	}
}

func runCtxWithConda() provision.RunContext {
	exec := provision.NewExecutionContext()
	exec.SetTool("conda", condaBin)
	return provision.NewRunContext(context.Background(), exec)
}

func listWith(envs string) ports.CommandResult {
	return ports.CommandResult{Stdout: `{"envs": [` + envs + `]}`}
}

func TestStage_CheckSatisfiedWhenEnvListed(t *testing.T) {
	runner := mocks.NewCommandRunner()
	runner.AddResult(condaBin, []string{"env", "list", "--json"},
		listWith(`"/opt/miniconda3", "/opt/miniconda3/envs/torchmd-net"`))

	fs := mocks.NewFileSystem()
	stage := NewStage(testConfig(), runner, fs)

	status, err := stage.Check(runCtxWithConda())
	require.NoError(t, err)
	require.Equal(t, provision.StatusSatisfied, status)
}

func TestStage_CheckNeedsApplyWhenEnvMissing(t *testing.T) {
	runner := mocks.NewCommandRunner()
	runner.AddResult(condaBin, []string{"env", "list", "--json"}, listWith(`"/opt/miniconda3"`))

	stage := NewStage(testConfig(), runner, mocks.NewFileSystem())

	status, err := stage.Check(runCtxWithConda())
	require.NoError(t, err)
	require.Equal(t, provision.StatusNeedsApply, status)
}

func TestStage_CheckFailsWithoutResolvedConda(t *testing.T) {
	stage := NewStage(testConfig(), mocks.NewCommandRunner(), mocks.NewFileSystem())

	exec := provision.NewExecutionContext()
	_, err := stage.Check(provision.NewRunContext(context.Background(), exec))
	require.Error(t, err)

	stageErr := provision.AsStageError(err)
	require.NotNil(t, stageErr)
	require.Equal(t, provision.KindToolMissing, stageErr.Kind)
}

func TestStage_ApplyMissingSpecFileFailsWithoutNetwork(t *testing.T) {
	runner := mocks.NewCommandRunner()
	stage := NewStage(testConfig(), runner, mocks.NewFileSystem())

	err := stage.Apply(runCtxWithConda())
	require.Error(t, err)
	require.Contains(t, err.Error(), "specification file missing")
	require.Zero(t, runner.CallCount(), "no conda invocation may happen for a missing spec file")

	stageErr := provision.AsStageError(err)
	require.NotNil(t, stageErr)
	require.Equal(t, provision.KindInstallFailure, stageErr.Kind)
	require.Equal(t, provision.ExitEnvironment, provision.ExitCodeFor(stageErr.Stage))
}

func TestStage_ApplyCreatesEnvironment(t *testing.T) {
	runner := mocks.NewCommandRunner()
	runner.AddResult(condaBin, createArgs, ports.CommandResult{})

	fs := mocks.NewFileSystem()
	fs.AddFile("environment.yml", []byte("dependencies: []\n"))

	stage := NewStage(testConfig(), runner, fs)
	require.NoError(t, stage.Apply(runCtxWithConda()))
	require.Equal(t, 1, runner.CallCount())
}

func TestStage_ApplyConflictIsFatalAndVerbatim(t *testing.T) {
	runner := mocks.NewCommandRunner()
	runner.AddResult(condaBin, createArgs, ports.CommandResult{
		ExitCode: 1,
		Stderr:   "UnsatisfiableError: torch 1.11 vs cudatoolkit 12",
	})

	fs := mocks.NewFileSystem()
	fs.AddFile("environment.yml", []byte("dependencies: []\n"))

	stage := NewStage(testConfig(), runner, fs)
	err := stage.Apply(runCtxWithConda())
	require.Error(t, err)
	require.Contains(t, err.Error(), "UnsatisfiableError: torch 1.11 vs cudatoolkit 12")

	stageErr := provision.AsStageError(err)
	require.NotNil(t, stageErr)
	require.Equal(t, provision.KindDependencyConflict, stageErr.Kind)

	// Conflicts are never retried.
	require.Equal(t, 1, runner.CallCount())
}

func TestStage_ApplyRetriesTransientThenFails(t *testing.T) {
	runner := mocks.NewCommandRunner()
	transient := ports.CommandResult{ExitCode: 1, Stderr: "CondaHTTPError: HTTP 000 CONNECTION FAILED"}
	runner.AddResult(condaBin, createArgs, transient)
	runner.AddResult(condaBin, createArgs, transient)
	runner.AddResult(condaBin, createArgs, transient)

	fs := mocks.NewFileSystem()
	fs.AddFile("environment.yml", []byte("dependencies: []\n"))

	cfg := testConfig()
	stage := NewStage(cfg, runner, fs)

	err := stage.Apply(runCtxWithConda())
	require.Error(t, err)
	require.Equal(t, cfg.NetworkAttempts, runner.CallCount())

	stageErr := provision.AsStageError(err)
	require.NotNil(t, stageErr)
	require.Equal(t, provision.KindNetworkTransient, stageErr.Kind)
}

func TestStage_ApplyRecoversAfterTransient(t *testing.T) {
	runner := mocks.NewCommandRunner()
	runner.AddResult(condaBin, createArgs,
		ports.CommandResult{ExitCode: 1, Stderr: "ConnectionError: reset by peer"})
	runner.AddResult(condaBin, createArgs, ports.CommandResult{})

	fs := mocks.NewFileSystem()
	fs.AddFile("environment.yml", []byte("dependencies: []\n"))

	stage := NewStage(testConfig(), runner, fs)
	require.NoError(t, stage.Apply(runCtxWithConda()))
	require.Equal(t, 2, runner.CallCount())
}

func TestStage_VerifyRequiresListableEnv(t *testing.T) {
	runner := mocks.NewCommandRunner()
	runner.AddResult(condaBin, []string{"env", "list", "--json"}, listWith(`"/opt/miniconda3"`))

	stage := NewStage(testConfig(), runner, mocks.NewFileSystem())
	err := stage.Verify(runCtxWithConda())
	require.Error(t, err)
	require.Contains(t, err.Error(), "not listable after create")
}
