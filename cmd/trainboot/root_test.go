package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"
	"github.com/trainboot/trainboot/internal/domain/provision"
)

func TestExitCode_NilError(t *testing.T) {
	require.Equal(t, 0, exitCode(nil))
}

func TestExitCode_StageFailuresMapToAreaCodes(t *testing.T) {
	tests := []struct {
		stage string
		want  int
	}{
		{"installer:miniconda", provision.ExitInstaller},
		{"env:create", provision.ExitEnvironment},
		{"project:editable-install", provision.ExitProjectInstall},
	}

	for _, tt := range tests {
		err := provision.NewStageError(
			provision.KindInstallFailure, provision.MustNewStageID(tt.stage), "boom")
		require.Equal(t, tt.want, exitCode(err), tt.stage)
	}
}

func TestExitCode_WrappedStageErrorStillMaps(t *testing.T) {
	stageErr := provision.NewStageError(
		provision.KindNetworkTransient, provision.MustNewStageID("env:create"), "fetch failed")
	wrapped := fmt.Errorf("provisioning: %w", stageErr)

	require.Equal(t, provision.ExitEnvironment, exitCode(wrapped))
}

func TestExitCode_HandoffPropagatesJobCode(t *testing.T) {
	for _, code := range []int{1, 2, 137, 255} {
		require.Equal(t, code, exitCode(&handoffExit{code: code}))
	}
}

func TestExitCode_UnknownErrorIsOne(t *testing.T) {
	require.Equal(t, 1, exitCode(errors.New("something else")))
}

func TestFormatError_StageFailureNamesKind(t *testing.T) {
	err := provision.NewStageError(
		provision.KindDependencyConflict, provision.MustNewStageID("env:create"), "resolution conflict")

	msg := formatError(err)
	require.Contains(t, msg, "env:create")
	require.Contains(t, msg, "dependency-conflict")
}

func TestPrintErrorTo(t *testing.T) {
	var buf bytes.Buffer
	printErrorTo(&buf, errors.New("conda path not recorded after provisioning"))
	require.Equal(t, "Error: conda path not recorded after provisioning\n", buf.String())
}

func TestExecute_InterruptCancelsRunContext(t *testing.T) {
	// An interrupt received before hand-off must cancel the context the
	// stage runner observes at stage boundaries.
	waitCmd := &cobra.Command{
		Use: "wait-for-cancel",
		RunE: func(cmd *cobra.Command, _ []string) error {
			proc, err := os.FindProcess(os.Getpid())
			require.NoError(t, err)
			require.NoError(t, proc.Signal(syscall.SIGINT))

			select {
			case <-cmd.Context().Done():
				return nil
			case <-time.After(5 * time.Second):
				return errors.New("interrupt did not cancel the run context")
			}
		},
	}
	rootCmd.AddCommand(waitCmd)
	defer rootCmd.RemoveCommand(waitCmd)

	rootCmd.SetArgs([]string{"wait-for-cancel"})
	defer rootCmd.SetArgs(nil)

	require.Equal(t, 0, Execute())
}

func TestStopNotify_DefaultIsSafe(t *testing.T) {
	// Callable before Execute ever ran.
	stopNotify()
}

func TestConfigPath_DefaultsWhenFlagUnset(t *testing.T) {
	orig := cfgFile
	defer func() { cfgFile = orig }()

	cfgFile = ""
	require.Equal(t, "trainboot.yaml", configPath())

	cfgFile = "custom.yaml"
	require.Equal(t, "custom.yaml", configPath())
}
