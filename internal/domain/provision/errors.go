package provision

import (
	"errors"
	"fmt"
)

// FailureKind classifies stage failures.
type FailureKind string

const (
	// KindToolMissing indicates a required external tool could not be found.
	KindToolMissing FailureKind = "tool-missing"
	// KindNetworkTransient indicates a network failure that was retried up
	// to its bound before escalating.
	KindNetworkTransient FailureKind = "network-transient"
	// KindDependencyConflict indicates the dependency resolver reported a
	// conflict; the resolver's own output is surfaced verbatim.
	KindDependencyConflict FailureKind = "dependency-conflict"
	// KindInstallFailure indicates an installer or build step failed.
	KindInstallFailure FailureKind = "install-failure"
)

// Exit codes reported by the orchestrator when a provisioning stage fails.
// After hand-off the process exit code is the child's, never one of these.
const (
	ExitOK             = 0
	ExitInstaller      = 10
	ExitEnvironment    = 11
	ExitProjectInstall = 12
	ExitUsage          = 2
)

// ExitCodeFor maps a failed stage to its documented exit code.
func ExitCodeFor(id StageID) int {
	switch id.Area() {
	case "installer":
		return ExitInstaller
	case "env":
		return ExitEnvironment
	case "project":
		return ExitProjectInstall
	default:
		return 1
	}
}

// StageError reports a stage failure with its classification and the
// underlying tool's error text.
type StageError struct {
	Kind       FailureKind
	Stage      StageID
	Message    string
	Underlying error
}

// Error returns a single human-readable line naming the failed stage and
// cause.
func (e *StageError) Error() string {
	msg := fmt.Sprintf("stage %s: %s", e.Stage, e.Message)
	if e.Underlying != nil {
		msg += ": " + e.Underlying.Error()
	}
	return msg
}

// Unwrap returns the underlying error for error chain support.
func (e *StageError) Unwrap() error {
	return e.Underlying
}

// NewStageError creates a new StageError.
func NewStageError(kind FailureKind, stage StageID, message string) *StageError {
	return &StageError{
		Kind:    kind,
		Stage:   stage,
		Message: message,
	}
}

// WithUnderlying returns a copy of the error wrapping err.
func (e *StageError) WithUnderlying(err error) *StageError {
	return &StageError{
		Kind:       e.Kind,
		Stage:      e.Stage,
		Message:    e.Message,
		Underlying: err,
	}
}

// AsStageError extracts a StageError from err's chain, or nil.
func AsStageError(err error) *StageError {
	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return stageErr
	}
	return nil
}

// IsTransient reports whether err is classified as a transient network
// failure. Only transient failures are eligible for bounded retry.
func IsTransient(err error) bool {
	if stageErr := AsStageError(err); stageErr != nil {
		return stageErr.Kind == KindNetworkTransient
	}
	return false
}
