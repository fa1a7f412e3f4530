package process

import (
	"context"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/trainboot/trainboot/internal/ports"
)

func TestRealSpawner_ExitCode(t *testing.T) {
	spawner := NewRealSpawner()

	proc, err := spawner.Start(context.Background(), ports.ProcessSpec{
		Program: "sh",
		Args:    []string{"-c", "exit 7"},
		Env:     os.Environ(),
	})
	require.NoError(t, err)

	code, err := proc.Wait()
	require.NoError(t, err)
	require.Equal(t, 7, code)
}

func TestRealSpawner_SignalTermination(t *testing.T) {
	spawner := NewRealSpawner()

	proc, err := spawner.Start(context.Background(), ports.ProcessSpec{
		Program: "sleep",
		Args:    []string{"30"},
		Env:     os.Environ(),
	})
	require.NoError(t, err)

	// Give the child a moment to exec before signalling.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, proc.Signal(syscall.SIGKILL))

	code, err := proc.Wait()
	require.NoError(t, err)
	require.Equal(t, 128+int(syscall.SIGKILL), code)
}

func TestRealSpawner_MissingProgram(t *testing.T) {
	spawner := NewRealSpawner()

	_, err := spawner.Start(context.Background(), ports.ProcessSpec{
		Program: "definitely-not-a-binary-xyz",
	})
	require.Error(t, err)
}
