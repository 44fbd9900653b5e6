package model

// NewFlow creates an active flow for actionType.
func NewFlow(id, actionType string) *Flow {
	return &Flow{ID: id, Name: id, ActionType: actionType, Active: true}
}

// WithTenant scopes the flow to a tenant.
func (f *Flow) WithTenant(tenant string) *Flow {
	f.Tenant = tenant
	return f
}

// WithCondition attaches a condition evaluator reference.
func (f *Flow) WithCondition(id string, params map[string]interface{}) *Flow {
	f.Condition = &ConditionRef{ID: id, Params: params}
	return f
}

// NewStep appends a step with an explicit approver set and returns it.
func (f *Flow) NewStep(level int, approvers ...string) *Step {
	step := &Step{Level: level, Approvers: approvers, Strategy: StrategyAny}
	f.Steps = append(f.Steps, step)
	return step
}

// WithStep appends a step and returns the flow.
func (f *Flow) WithStep(step *Step) *Flow {
	f.Steps = append(f.Steps, step)
	return f
}

// WithStrategy sets the step strategy.
func (s *Step) WithStrategy(strategy Strategy) *Step {
	s.Strategy = strategy
	return s
}

// WithApprover sets the legacy single approver.
func (s *Step) WithApprover(approver string) *Step {
	s.Approver = approver
	return s
}

// WithAction sets the informational action label.
func (s *Step) WithAction(action string) *Step {
	s.Action = action
	return s
}
