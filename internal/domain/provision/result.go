package provision

import "time"

// RunResult records the outcome of executing one stage.
type RunResult struct {
	stageID  StageID
	outcome  Outcome
	err      error
	duration time.Duration
}

// NewRunResult creates a new RunResult.
func NewRunResult(stageID StageID, outcome Outcome, err error) RunResult {
	return RunResult{
		stageID: stageID,
		outcome: outcome,
		err:     err,
	}
}

// WithDuration returns a copy of the result with the duration set.
func (r RunResult) WithDuration(d time.Duration) RunResult {
	r.duration = d
	return r
}

// StageID returns the stage this result belongs to.
func (r RunResult) StageID() StageID {
	return r.stageID
}

// Outcome returns the stage outcome.
func (r RunResult) Outcome() Outcome {
	return r.outcome
}

// Err returns the failure cause, if any.
func (r RunResult) Err() error {
	return r.err
}

// Duration returns how long the stage's action took.
func (r RunResult) Duration() time.Duration {
	return r.duration
}
