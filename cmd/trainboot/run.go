package main

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/trainboot/trainboot/internal/adapters/command"
	"github.com/trainboot/trainboot/internal/adapters/filesystem"
	"github.com/trainboot/trainboot/internal/adapters/process"
	"github.com/trainboot/trainboot/internal/config"
	"github.com/trainboot/trainboot/internal/domain/conda"
	"github.com/trainboot/trainboot/internal/domain/provision"
	"github.com/trainboot/trainboot/internal/launch"
	"github.com/trainboot/trainboot/internal/ports"
	"github.com/trainboot/trainboot/internal/provider/condaenv"
	"github.com/trainboot/trainboot/internal/provider/installer"
	"github.com/trainboot/trainboot/internal/provider/project"
)

var (
	confFile      string
	deviceFlag    string
	provisionOnly bool
)

var runCmd = &cobra.Command{
	Use:   "run [flags] [-- job args...]",
	Short: "Provision the environment and hand off to the training job",
	Long: `Run converges the host (conda install, environment creation, editable
project install) and then replaces itself with the training job.

Arguments after -- are forwarded to the job verbatim. The job inherits
this process's stdio and receives forwarded interrupts; its exit code
becomes trainboot's exit code.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().StringVar(&confFile, "conf", "", "training configuration forwarded to the job as --conf")
	runCmd.Flags().StringVar(&deviceFlag, "device", "", "device index for CUDA_VISIBLE_DEVICES (overrides config)")
	runCmd.Flags().BoolVar(&provisionOnly, "provision-only", false, "stop after provisioning without starting the job")

	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	logger := newLogger().With(ports.F("run", shortRunID()))

	fs := filesystem.NewRealFileSystem()
	cfg, err := config.Load(fs, configPath())
	if err != nil {
		return err
	}
	if deviceFlag != "" {
		cfg.Train.Device = deviceFlag
	}

	runner := command.NewRealRunner()
	probe := conda.NewProbe(runner, conda.WithPreferredRoot(cfg.Conda.Root))
	fetcher := installer.NewFetcher(installer.WithAttempts(cfg.Network.Attempts))
	exec := provision.NewExecutionContext()
	orchestrator := provision.NewRunner(logger)

	// Stage order is fixed: tool, then environment, then project. The
	// project stage's pip path depends on the conda binary resolved by the
	// earlier stages, so the plan runs in two segments over one shared
	// ExecutionContext.
	base := provision.NewPlan(
		installer.NewStage(installer.Config{
			URL:         cfg.Conda.InstallerURL,
			InstallRoot: cfg.Conda.Root,
			Checksum:    cfg.Conda.Checksum,
			MinVersion:  cfg.Conda.MinVersion,
		}, probe, fetcher, runner),
		condaenv.NewStage(condaenv.Config{
			Name:            cfg.Env.Name,
			SpecFile:        cfg.Env.Spec,
			NetworkAttempts: cfg.Network.Attempts,
		}, runner, fs),
	)
	if _, err := orchestrator.Run(ctx, base, exec); err != nil {
		return err
	}

	condaPath, ok := exec.Tool(installer.ToolConda)
	if !ok {
		return fmt.Errorf("conda path not recorded after provisioning")
	}
	activator := conda.NewActivator(conda.NewManager(runner, condaPath))

	rest := provision.NewPlan(
		project.NewStage(project.Config{
			Dir:     cfg.Project.Dir,
			EnvName: cfg.Env.Name,
		}, runner, fs, activator),
	)
	if _, err := orchestrator.Run(ctx, rest, exec); err != nil {
		return err
	}

	env, err := activator.Environment(ctx, cfg.Env.Name)
	if err != nil {
		return fmt.Errorf("compute activation environment: %w", err)
	}
	for k, v := range env {
		exec.SetEnv(k, v)
	}
	exec.SetDevice(cfg.Train.Device)

	if provisionOnly {
		logger.Info(ctx, "provisioning complete", ports.F("env", cfg.Env.Name))
		return nil
	}

	program, err := activator.BinPath(ctx, cfg.Env.Name, cfg.Train.Command)
	if err != nil {
		return fmt.Errorf("resolve job command %q: %w", cfg.Train.Command, err)
	}

	// From here on interrupts belong to the job: the launcher forwards
	// them instead of cancelling the run context.
	stopNotify()

	launcher := launch.New(process.NewRealSpawner(), logger)
	code, err := launcher.Launch(ctx, launch.Spec{
		Program: program,
		Args:    jobArguments(confFile, args),
		Dir:     cfg.Project.Dir,
		Device:  cfg.Train.Device,
	}, exec)
	if err != nil {
		return err
	}
	if code != 0 {
		return &handoffExit{code: code}
	}
	return nil
}

// jobArguments builds the argument vector handed to the job. The --conf
// shorthand expands first; everything after -- follows verbatim.
func jobArguments(conf string, args []string) []string {
	jobArgs := make([]string, 0, len(args)+2)
	if conf != "" {
		jobArgs = append(jobArgs, "--conf", conf)
	}
	return append(jobArgs, args...)
}

// shortRunID returns a compact identifier correlating all log lines of one
// invocation.
func shortRunID() string {
	return uuid.NewString()[:8]
}
