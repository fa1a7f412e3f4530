// Package launch hands control to the long-running training job. After
// hand-off the orchestrator is a thin wrapper: stdio passes through,
// interrupts are forwarded, and the job's true exit code becomes ours.
package launch

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/trainboot/trainboot/internal/domain/provision"
	"github.com/trainboot/trainboot/internal/ports"
)

// DeviceVar is the environment variable used to pin the job to a device.
const DeviceVar = "CUDA_VISIBLE_DEVICES"

// Spec describes one job launch. It is built from caller input and the
// ExecutionContext and consumed exactly once.
type Spec struct {
	// Program is the resolved executable path.
	Program string
	// Args are forwarded to the child verbatim and unreordered.
	Args []string
	// Dir is the working directory.
	Dir string
	// Device is the device index assigned to the job.
	Device string
}

// Launcher starts the job and propagates its termination status.
type Launcher struct {
	spawner ports.ProcessSpawner
	logger  ports.Logger
	baseEnv []string
	signals []os.Signal
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithBaseEnviron overrides the inherited process environment (for tests).
func WithBaseEnviron(env []string) Option {
	return func(l *Launcher) {
		l.baseEnv = env
	}
}

// WithForwardedSignals overrides which signals are relayed to the child.
func WithForwardedSignals(signals ...os.Signal) Option {
	return func(l *Launcher) {
		l.signals = signals
	}
}

// New creates a Launcher.
func New(spawner ports.ProcessSpawner, logger ports.Logger, opts ...Option) *Launcher {
	l := &Launcher{
		spawner: spawner,
		logger:  logger,
		baseEnv: os.Environ(),
		signals: []os.Signal{os.Interrupt, syscall.SIGTERM},
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Launch starts the job and blocks until it exits, returning the child's
// exit code unchanged. The device variable is set exactly once from
// spec.Device; the activation environment from exec overlays the base
// environment. Signals received while the child runs are forwarded to it.
func (l *Launcher) Launch(ctx context.Context, spec Spec, exec *provision.ExecutionContext) (int, error) {
	env := mergeEnviron(l.baseEnv, exec.Environ())
	if spec.Device != "" {
		env = setVar(env, DeviceVar, spec.Device)
	}

	l.logger.Info(ctx, "handing off to job",
		ports.F("program", spec.Program),
		ports.F("args", strings.Join(spec.Args, " ")),
		ports.F("device", spec.Device))

	proc, err := l.spawner.Start(ctx, ports.ProcessSpec{
		Program: spec.Program,
		Args:    spec.Args,
		Dir:     spec.Dir,
		Env:     env,
	})
	if err != nil {
		return -1, fmt.Errorf("start job: %w", err)
	}

	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, l.signals...)
	defer signal.Stop(sigCh)

	done := make(chan struct{})
	defer close(done)

	go func() {
		for {
			select {
			case sig := <-sigCh:
				l.logger.Warn(ctx, "forwarding signal to job", ports.F("signal", sig.String()))
				_ = proc.Signal(sig)
			case <-done:
				return
			}
		}
	}()

	code, err := proc.Wait()
	if err != nil {
		return -1, fmt.Errorf("wait for job: %w", err)
	}

	l.logger.Info(ctx, "job exited", ports.F("code", code))
	return code, nil
}

// mergeEnviron overlays KEY=VALUE pairs on a base environment. Overlay
// keys win; result order is deterministic.
func mergeEnviron(base, overlay []string) []string {
	merged := make(map[string]string, len(base)+len(overlay))
	for _, kv := range base {
		if k, v, ok := strings.Cut(kv, "="); ok {
			merged[k] = v
		}
	}
	for _, kv := range overlay {
		if k, v, ok := strings.Cut(kv, "="); ok {
			merged[k] = v
		}
	}

	keys := make([]string, 0, len(merged))
	for k := range merged {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := make([]string, 0, len(keys))
	for _, k := range keys {
		env = append(env, k+"="+merged[k])
	}
	return env
}

// setVar sets exactly one variable, replacing any prior value.
func setVar(env []string, key, value string) []string {
	out := make([]string, 0, len(env)+1)
	for _, kv := range env {
		if !strings.HasPrefix(kv, key+"=") {
			out = append(out, kv)
		}
	}
	return append(out, key+"="+value)
}
