package mocks

import (
	"context"
	"errors"
	"os"
	"sync"

	"github.com/trainboot/trainboot/internal/ports"
)

// Spawner is a test double for ports.ProcessSpawner. It records every
// launch and returns a scripted exit code.
type Spawner struct {
	mu       sync.Mutex
	exitCode int
	startErr error
	waitErr  error
	specs    []ports.ProcessSpec
	signals  []os.Signal
}

// NewSpawner creates a Spawner whose children exit with the given code.
func NewSpawner(exitCode int) *Spawner {
	return &Spawner{exitCode: exitCode}
}

// FailStart makes Start return the given error.
func (s *Spawner) FailStart(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.startErr = err
}

// FailWait makes Wait return the given error.
func (s *Spawner) FailWait(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.waitErr = err
}

// Start records the spec and returns a fake process.
func (s *Spawner) Start(_ context.Context, spec ports.ProcessSpec) (ports.Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.startErr != nil {
		return nil, s.startErr
	}

	s.specs = append(s.specs, spec)
	return &fakeProcess{spawner: s}, nil
}

// Specs returns every recorded launch spec.
func (s *Spawner) Specs() []ports.ProcessSpec {
	s.mu.Lock()
	defer s.mu.Unlock()

	specs := make([]ports.ProcessSpec, len(s.specs))
	copy(specs, s.specs)
	return specs
}

// LastSpec returns the most recent launch spec.
func (s *Spawner) LastSpec() (ports.ProcessSpec, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.specs) == 0 {
		return ports.ProcessSpec{}, false
	}
	return s.specs[len(s.specs)-1], true
}

// Signals returns the signals delivered to fake processes.
func (s *Spawner) Signals() []os.Signal {
	s.mu.Lock()
	defer s.mu.Unlock()

	signals := make([]os.Signal, len(s.signals))
	copy(signals, s.signals)
	return signals
}

type fakeProcess struct {
	spawner *Spawner
}

func (p *fakeProcess) Wait() (int, error) {
	p.spawner.mu.Lock()
	defer p.spawner.mu.Unlock()

	if p.spawner.waitErr != nil {
		return -1, p.spawner.waitErr
	}
	return p.spawner.exitCode, nil
}

func (p *fakeProcess) Signal(sig os.Signal) error {
	p.spawner.mu.Lock()
	defer p.spawner.mu.Unlock()

	if sig == nil {
		return errors.New("nil signal")
	}
	p.spawner.signals = append(p.spawner.signals, sig)
	return nil
}

// Ensure Spawner implements ports.ProcessSpawner.
var _ ports.ProcessSpawner = (*Spawner)(nil)
