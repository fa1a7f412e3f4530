package installer

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/trainboot/trainboot/internal/domain/conda"
	"github.com/trainboot/trainboot/internal/domain/provision"
	"github.com/trainboot/trainboot/internal/ports"
	"github.com/trainboot/trainboot/internal/testutil/mocks"
)

func runCtx() (provision.RunContext, *provision.ExecutionContext) {
	exec := provision.NewExecutionContext()
	return provision.NewRunContext(context.Background(), exec), exec
}

func probeAlwaysFinds(path string, runner ports.CommandRunner) *conda.Probe {
	return conda.NewProbe(runner, conda.WithLookPath(func(string) (string, error) {
		return path, nil
	}))
}

func probeNeverFinds(runner ports.CommandRunner) *conda.Probe {
	return conda.NewProbe(runner,
		conda.WithLookPath(func(string) (string, error) { return "", errors.New("miss") }),
		conda.WithRoots())
}

func TestStage_CheckSatisfiedRecordsToolPath(t *testing.T) {
	runner := mocks.NewCommandRunner()
	stage := NewStage(Config{}, probeAlwaysFinds("/opt/conda/bin/conda", runner), NewFetcher(), runner)

	ctx, exec := runCtx()
	status, err := stage.Check(ctx)
	require.NoError(t, err)
	require.Equal(t, provision.StatusSatisfied, status)

	path, ok := exec.Tool(ToolConda)
	require.True(t, ok)
	require.Equal(t, "/opt/conda/bin/conda", path)
}

func TestStage_CheckNeedsApplyWhenMissing(t *testing.T) {
	runner := mocks.NewCommandRunner()
	stage := NewStage(Config{}, probeNeverFinds(runner), NewFetcher(), runner)

	ctx, _ := runCtx()
	status, err := stage.Check(ctx)
	require.NoError(t, err)
	require.Equal(t, provision.StatusNeedsApply, status)
}

func TestStage_CheckRejectsTooOldConda(t *testing.T) {
	runner := mocks.NewCommandRunner()
	runner.AddResult("/opt/conda/bin/conda", []string{"--version"}, ports.CommandResult{Stdout: "conda 4.5.0\n"})

	stage := NewStage(Config{MinVersion: "22.0.0"}, probeAlwaysFinds("/opt/conda/bin/conda", runner), NewFetcher(), runner)

	ctx, _ := runCtx()
	_, err := stage.Check(ctx)
	require.Error(t, err)

	stageErr := provision.AsStageError(err)
	require.NotNil(t, stageErr)
	require.Equal(t, provision.KindToolMissing, stageErr.Kind)
}

func TestStage_ApplyDownloadsAndRunsBatchInstall(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("#!/bin/sh\n"))
	}))
	defer server.Close()

	scriptPath := filepath.Join(os.TempDir(), "miniconda-installer.sh")
	root := "/home/user/miniconda3"

	runner := mocks.NewCommandRunner()
	runner.AddResult("bash", []string{scriptPath, "-b", "-p", root}, ports.CommandResult{})

	fetcher := NewFetcher(WithAttempts(1), WithRetryDelay(time.Millisecond))
	stage := NewStage(Config{URL: server.URL, InstallRoot: root}, probeNeverFinds(runner), fetcher, runner)

	ctx, _ := runCtx()
	require.NoError(t, stage.Apply(ctx))

	calls := runner.Calls()
	require.Len(t, calls, 1)
	require.Equal(t, "bash", calls[0].Command)
	require.Equal(t, []string{scriptPath, "-b", "-p", root}, calls[0].Args)
}

func TestStage_ApplyDownloadFailureIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	runner := mocks.NewCommandRunner()
	fetcher := NewFetcher(WithAttempts(2), WithRetryDelay(time.Millisecond))
	stage := NewStage(Config{URL: server.URL, InstallRoot: "/tmp/mc3"}, probeNeverFinds(runner), fetcher, runner)

	ctx, _ := runCtx()
	err := stage.Apply(ctx)
	require.Error(t, err)
	require.True(t, provision.IsTransient(err))
	require.Zero(t, runner.CallCount(), "installer must not run when the download failed")
}

func TestStage_ApplyInstallerExitFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("#!/bin/sh\n"))
	}))
	defer server.Close()

	scriptPath := filepath.Join(os.TempDir(), "miniconda-installer.sh")
	runner := mocks.NewCommandRunner()
	runner.AddResult("bash", []string{scriptPath, "-b", "-p", "/tmp/mc3"},
		ports.CommandResult{ExitCode: 1, Stderr: "no space left on device"})

	fetcher := NewFetcher(WithAttempts(1), WithRetryDelay(time.Millisecond))
	stage := NewStage(Config{URL: server.URL, InstallRoot: "/tmp/mc3"}, probeNeverFinds(runner), fetcher, runner)

	ctx, _ := runCtx()
	err := stage.Apply(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "no space left on device")
}

func TestStage_VerifyFailsWithoutUsableBinary(t *testing.T) {
	runner := mocks.NewCommandRunner()
	stage := NewStage(Config{}, probeNeverFinds(runner), NewFetcher(), runner)

	ctx, _ := runCtx()
	err := stage.Verify(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "installer did not produce usable binary")
}

func TestStage_VerifyRecordsToolPath(t *testing.T) {
	runner := mocks.NewCommandRunner()
	stage := NewStage(Config{}, probeAlwaysFinds("/opt/conda/bin/conda", runner), NewFetcher(), runner)

	ctx, exec := runCtx()
	require.NoError(t, stage.Verify(ctx))

	path, ok := exec.Tool(ToolConda)
	require.True(t, ok)
	require.Equal(t, "/opt/conda/bin/conda", path)
}
