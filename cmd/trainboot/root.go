package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/trainboot/trainboot/internal/adapters/logging"
	"github.com/trainboot/trainboot/internal/config"
	"github.com/trainboot/trainboot/internal/domain/provision"
	"github.com/trainboot/trainboot/internal/ports"
)

var (
	// Global flags
	cfgFile string
	verbose bool
	logJSON bool
)

var rootCmd = &cobra.Command{
	Use:   "trainboot",
	Short: "Idempotent environment provisioning and training job hand-off",
	Long: `Trainboot converges a host toward a declared training setup and then
hands control to the training job.

Provisioning runs as an ordered sequence of stages, each with a
precondition, an action, and a postcondition:
  conda install -> environment create -> editable project install
Stages whose precondition already holds are skipped, so re-running
against a converged host performs no mutations.`,
	SilenceErrors: true, // We handle error formatting ourselves
	SilenceUsage:  true, // Don't show usage on error
}

// stopNotify releases the pre-hand-off interrupt handling. The run command
// calls it right before starting the job so the launcher's own signal
// forwarding takes over.
var stopNotify context.CancelFunc = func() {}

// Execute runs the root command and returns the process exit code.
//
// Interrupts received before hand-off cancel the run context, which the
// stage runner honors at stage boundaries. Stage failures map to
// area-specific codes; when the training job itself exits nonzero, its
// code is returned unchanged.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	stopNotify = stop
	defer stop()

	err := rootCmd.ExecuteContext(ctx)
	if err == nil {
		return provision.ExitOK
	}

	var handoff *handoffExit
	if !errors.As(err, &handoff) {
		// A hand-off exit means the job already wrote its own diagnostics.
		printError(err)
	}

	return exitCode(err)
}

// exitCode maps a run error to the process exit code: the job's own code
// for hand-off exits, the failing stage's area code for stage failures,
// and 1 for everything else.
func exitCode(err error) int {
	if err == nil {
		return provision.ExitOK
	}

	var handoff *handoffExit
	if errors.As(err, &handoff) {
		return handoff.code
	}

	if stageErr := provision.AsStageError(err); stageErr != nil {
		return provision.ExitCodeFor(stageErr.Stage)
	}
	return 1
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: trainboot.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "emit logs as JSON")

	rootCmd.AddCommand(versionCmd)
}

// handoffExit carries the training job's exit code through cobra's error
// return without treating it as an orchestrator failure.
type handoffExit struct {
	code int
}

func (e *handoffExit) Error() string {
	return fmt.Sprintf("job exited with code %d", e.code)
}

// configPath returns the config file to load.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultFile
}

// newLogger builds the logger the whole run shares.
func newLogger() ports.Logger {
	level := ports.LevelInfo
	if verbose {
		level = ports.LevelDebug
	}
	return logging.NewConsoleLogger(
		logging.WithOutput(os.Stderr),
		logging.WithLevel(level),
		logging.WithJSONFormat(logJSON),
	)
}

// formatError returns a user-friendly error message. Stage failures name
// the stage that stopped the run.
func formatError(err error) string {
	if stageErr := provision.AsStageError(err); stageErr != nil {
		return fmt.Sprintf("%s [%s]", err.Error(), stageErr.Kind)
	}
	return err.Error()
}

// printError prints an error message to stderr with proper formatting.
func printError(err error) {
	printErrorTo(os.Stderr, err)
}

// printErrorTo prints an error message to the given writer.
func printErrorTo(w io.Writer, err error) {
	_, _ = fmt.Fprintf(w, "Error: %s\n", formatError(err))
}
