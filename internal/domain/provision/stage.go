// Package provision defines the stage model for idempotent host provisioning.
//
// A stage is one unit of provisioning work with a precondition (Check), an
// action (Apply), and a postcondition (Verify). The Runner executes stages
// strictly in order, skips stages whose precondition already holds, and
// aborts on the first failure so that no later stage can observe a
// half-provisioned host.
package provision

// Stage represents an idempotent unit of provisioning work.
type Stage interface {
	// ID returns the unique identifier for this stage.
	ID() StageID

	// Check determines the current status of this stage.
	// Returns StatusSatisfied if no action is needed, StatusNeedsApply if
	// the stage's action must run. An error means the status could not be
	// determined and the stage fails.
	Check(ctx RunContext) (StageStatus, error)

	// Apply executes the stage's action. Only invoked when Check reported
	// StatusNeedsApply. Must be safe to re-run after a failed attempt.
	Apply(ctx RunContext) error

	// Verify confirms the postcondition after a successful Apply.
	// A non-nil error fails the stage even though Apply succeeded.
	Verify(ctx RunContext) error
}
