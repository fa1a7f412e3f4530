package provision

// Plan is the ordered sequence of stages for one provisioning run.
// It is built once from static configuration and never mutated afterwards.
type Plan struct {
	stages []Stage
}

// NewPlan creates a Plan from stages in execution order.
func NewPlan(stages ...Stage) *Plan {
	copied := make([]Stage, len(stages))
	copy(copied, stages)
	return &Plan{stages: copied}
}

// Stages returns the stages in execution order.
func (p *Plan) Stages() []Stage {
	return p.stages
}

// Len returns the number of stages.
func (p *Plan) Len() int {
	return len(p.stages)
}

// IsEmpty returns true if the plan has no stages.
func (p *Plan) IsEmpty() bool {
	return len(p.stages) == 0
}
