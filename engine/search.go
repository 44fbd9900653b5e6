package engine

import "github.com/viant/signoff/model"

// nextLevel finds the first step after level that can still be acted on:
// its approvers minus removed ones are not empty, or it names no approver
// at all (open, role based). Steps whose named approvers were all removed
// are skipped. It returns nil when the flow is exhausted.
func nextLevel(flow *model.Flow, level int, removed model.ActorSet) (*model.Step, model.ActorSet) {
	if flow == nil {
		return nil, nil
	}
	for _, step := range flow.StepsAfter(level) {
		if step.IsOpen() {
			return step, model.ActorSet{}
		}
		if approvers := step.ApproverSet().Minus(removed); !approvers.IsEmpty() {
			return step, approvers
		}
	}
	return nil, nil
}
