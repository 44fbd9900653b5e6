package model

import (
	"fmt"
	"sort"
	"strings"
)

// ConditionRef names a registered condition evaluator and its parameters.
type ConditionRef struct {
	ID     string                 `json:"id" yaml:"id"`
	Params map[string]interface{} `json:"params,omitempty" yaml:"params,omitempty"`
}

// Step is one level of a Flow.
type Step struct {
	Level     int      `json:"level" yaml:"level"`
	Approvers []string `json:"approvers,omitempty" yaml:"approvers,omitempty"`
	// Approver is the legacy single approver; Approvers takes precedence when set.
	Approver string   `json:"approver,omitempty" yaml:"approver,omitempty"`
	Strategy Strategy `json:"strategy,omitempty" yaml:"strategy,omitempty"`
	Action   string   `json:"action,omitempty" yaml:"action,omitempty"`
}

// ApproverSet returns the canonical approver set: the explicit set if not
// empty, else the legacy approver as a singleton, else an empty (open) set.
func (s *Step) ApproverSet() ActorSet {
	if s == nil {
		return ActorSet{}
	}
	if set := NewActorSet(s.Approvers...); !set.IsEmpty() {
		return set
	}
	return NewActorSet(s.Approver)
}

// IsOpen reports whether the step names no approver at all (role based).
func (s *Step) IsOpen() bool {
	return s.ApproverSet().IsEmpty()
}

// StrategyOrDefault returns the step strategy, ANY for a missing step.
func (s *Step) StrategyOrDefault() Strategy {
	if s == nil {
		return StrategyAny
	}
	return s.Strategy.OrDefault()
}

// LegacyApprover returns the single approver recorded at the persistence
// boundary for a step, empty when the step has several approvers or none.
func (s *Step) LegacyApprover() string {
	set := s.ApproverSet()
	if set.Len() == 1 {
		return set[0]
	}
	return ""
}

// Flow is an ordered chain of approval steps for an action type.
type Flow struct {
	ID         string        `json:"id" yaml:"id"`
	Name       string        `json:"name,omitempty" yaml:"name,omitempty"`
	ActionType string        `json:"actionType" yaml:"actionType"`
	Tenant     string        `json:"tenant,omitempty" yaml:"tenant,omitempty"`
	Active     bool          `json:"active" yaml:"active"`
	Condition  *ConditionRef `json:"condition,omitempty" yaml:"condition,omitempty"`
	Steps      []*Step       `json:"steps,omitempty" yaml:"steps,omitempty"`
}

// Validate checks identity, level uniqueness and strategies.
func (f *Flow) Validate() error {
	if f == nil {
		return fmt.Errorf("flow was nil")
	}
	if strings.TrimSpace(f.ID) == "" {
		return fmt.Errorf("flow id was empty")
	}
	if strings.TrimSpace(f.ActionType) == "" {
		return fmt.Errorf("flow %v: action type was empty", f.ID)
	}
	if f.Condition != nil && strings.TrimSpace(f.Condition.ID) == "" {
		return fmt.Errorf("flow %v: condition id was empty", f.ID)
	}
	levels := map[int]bool{}
	for i, step := range f.Steps {
		if step == nil {
			return fmt.Errorf("flow %v: step[%d] was nil", f.ID, i)
		}
		if step.Level < 1 {
			return fmt.Errorf("flow %v: step[%d] invalid level %d", f.ID, i, step.Level)
		}
		if levels[step.Level] {
			return fmt.Errorf("flow %v: duplicate level %d", f.ID, step.Level)
		}
		levels[step.Level] = true
		if _, err := ParseStrategy(string(step.Strategy)); err != nil {
			return fmt.Errorf("flow %v: level %d: %w", f.ID, step.Level, err)
		}
	}
	return nil
}

// Ordered returns steps sorted by level.
func (f *Flow) Ordered() []*Step {
	ret := make([]*Step, 0, len(f.Steps))
	for _, step := range f.Steps {
		if step != nil {
			ret = append(ret, step)
		}
	}
	sort.SliceStable(ret, func(i, j int) bool { return ret[i].Level < ret[j].Level })
	return ret
}

// Step returns the step at level or nil.
func (f *Flow) Step(level int) *Step {
	for _, step := range f.Steps {
		if step != nil && step.Level == level {
			return step
		}
	}
	return nil
}

// FirstStep returns the lowest level step or nil for a flow without steps.
func (f *Flow) FirstStep() *Step {
	ordered := f.Ordered()
	if len(ordered) == 0 {
		return nil
	}
	return ordered[0]
}

// StepsAfter returns steps with level greater than level, in traversal order.
func (f *Flow) StepsAfter(level int) []*Step {
	var ret []*Step
	for _, step := range f.Ordered() {
		if step.Level > level {
			ret = append(ret, step)
		}
	}
	return ret
}

// HasSteps reports whether the flow defines any step.
func (f *Flow) HasSteps() bool {
	return f != nil && len(f.Ordered()) > 0
}

// Matches reports whether the flow serves actionType and tenant; an empty
// tenant matches any flow.
func (f *Flow) Matches(actionType, tenant string) bool {
	if !f.Active || f.ActionType != actionType {
		return false
	}
	return tenant == "" || f.Tenant == tenant
}
