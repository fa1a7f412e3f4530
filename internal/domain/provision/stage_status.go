package provision

// StageStatus represents the current state of a stage's precondition.
type StageStatus string

const (
	// StatusSatisfied indicates the stage's desired state is already met.
	StatusSatisfied StageStatus = "satisfied"
	// StatusNeedsApply indicates the stage's action must run.
	StatusNeedsApply StageStatus = "needs-apply"
	// StatusUnknown indicates the stage's state could not be determined.
	StatusUnknown StageStatus = "unknown"
)

// String returns the string representation of the status.
func (s StageStatus) String() string {
	return string(s)
}

// Outcome represents the terminal result of executing one stage.
type Outcome string

const (
	// OutcomeSucceeded indicates the stage's action ran and the
	// postcondition holds.
	OutcomeSucceeded Outcome = "succeeded"
	// OutcomeSkipped indicates the precondition already held and the
	// action was not invoked.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeFailed indicates the stage failed and provisioning aborted.
	OutcomeFailed Outcome = "failed"
)

// String returns the string representation of the outcome.
func (o Outcome) String() string {
	return string(o)
}
