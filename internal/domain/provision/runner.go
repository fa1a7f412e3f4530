package provision

import (
	"context"
	"time"

	"github.com/trainboot/trainboot/internal/ports"
)

// Runner executes a Plan's stages strictly in order.
//
// State machine per stage: Pending -> Running -> {Skipped, Succeeded,
// Failed}. On Succeeded or Skipped the runner advances; on Failed it stops
// without executing remaining stages and returns the failure. Cancellation
// is honored at stage boundaries only, so a stage is never left half
// observed; its precondition re-derives the state on the next run.
type Runner struct {
	logger ports.Logger
}

// NewRunner creates a new Runner.
func NewRunner(logger ports.Logger) *Runner {
	return &Runner{logger: logger}
}

// Run executes all stages in the plan against the shared ExecutionContext.
// It returns a result per executed stage, in order. The error is non-nil if
// a stage failed or the run was cancelled; results accumulated up to that
// point are still returned.
func (r *Runner) Run(ctx context.Context, plan *Plan, exec *ExecutionContext) ([]RunResult, error) {
	results := make([]RunResult, 0, plan.Len())
	runCtx := NewRunContext(ctx, exec)

	for _, stage := range plan.Stages() {
		select {
		case <-ctx.Done():
			return results, ctx.Err()
		default:
		}

		result := r.runStage(runCtx, stage)
		results = append(results, result)

		if result.Outcome() == OutcomeFailed {
			r.logger.Error(ctx, "provisioning aborted",
				ports.F("stage", stage.ID().String()),
				ports.F("cause", result.Err().Error()))
			return results, result.Err()
		}
	}

	return results, nil
}

// runStage drives one stage through precondition, action, and postcondition.
func (r *Runner) runStage(ctx RunContext, stage Stage) RunResult {
	id := stage.ID()

	status, err := stage.Check(ctx)
	if err != nil {
		return NewRunResult(id, OutcomeFailed, r.wrap(id, "precondition check failed", err))
	}

	if status == StatusSatisfied {
		r.logger.Info(ctx.Context(), "stage satisfied, skipping", ports.F("stage", id.String()))
		return NewRunResult(id, OutcomeSkipped, nil)
	}

	r.logger.Info(ctx.Context(), "stage needs apply", ports.F("stage", id.String()))

	start := time.Now()
	if err := stage.Apply(ctx); err != nil {
		return NewRunResult(id, OutcomeFailed, r.wrap(id, "apply failed", err)).
			WithDuration(time.Since(start))
	}

	if err := stage.Verify(ctx); err != nil {
		return NewRunResult(id, OutcomeFailed, r.wrap(id, "postcondition not met", err)).
			WithDuration(time.Since(start))
	}

	duration := time.Since(start)
	r.logger.Info(ctx.Context(), "stage succeeded",
		ports.F("stage", id.String()),
		ports.F("duration", duration.Round(time.Millisecond).String()))

	return NewRunResult(id, OutcomeSucceeded, nil).WithDuration(duration)
}

// wrap ensures every failure surfaces as a StageError carrying the stage ID.
// Stages that already classified their failure pass through untouched.
func (r *Runner) wrap(id StageID, message string, err error) error {
	if stageErr := AsStageError(err); stageErr != nil {
		return err
	}
	return NewStageError(KindInstallFailure, id, message).WithUnderlying(err)
}
