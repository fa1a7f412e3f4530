package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJobArguments_ForwardedVerbatim(t *testing.T) {
	args := jobArguments("", []string{"--lr", "1e-4", "--", "--num-epochs", "10"})
	require.Equal(t, []string{"--lr", "1e-4", "--", "--num-epochs", "10"}, args)
}

func TestJobArguments_ConfExpandsFirst(t *testing.T) {
	args := jobArguments("hparams.yaml", []string{"--gpus", "1"})
	require.Equal(t, []string{"--conf", "hparams.yaml", "--gpus", "1"}, args)
}

func TestJobArguments_Empty(t *testing.T) {
	require.Empty(t, jobArguments("", nil))
}

func TestShortRunID(t *testing.T) {
	id := shortRunID()
	require.Len(t, id, 8)
	require.NotEqual(t, id, shortRunID())
}

func TestRunCommandRegistered(t *testing.T) {
	cmd, _, err := rootCmd.Find([]string{"run"})
	require.NoError(t, err)
	require.Equal(t, "run", cmd.Name())

	require.NotNil(t, cmd.Flags().Lookup("conf"))
	require.NotNil(t, cmd.Flags().Lookup("device"))
	require.NotNil(t, cmd.Flags().Lookup("provision-only"))
}
