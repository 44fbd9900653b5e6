package engine

import (
	"context"

	"github.com/viant/signoff/model"
)

const autoAdvanceComment = "System auto-advance: current approver removed"

// Approve records an affirmative vote by actor at the current level and
// advances the request once the step strategy is satisfied.
func (e *Engine) Approve(ctx context.Context, request *model.Request, actor, comment string) (*Transition, error) {
	if err := checkRequest(request); err != nil {
		return nil, err
	}
	if err := checkActor("actor", actor); err != nil {
		return nil, err
	}
	if err := checkActionable(request, "approve"); err != nil {
		return nil, err
	}
	flow, step, err := e.currentStep(ctx, request)
	if err != nil {
		return nil, err
	}
	if err = e.checkVoter(request, step, actor); err != nil {
		return nil, err
	}
	t := newTransition(request, false)
	e.approve(t, flow, step, actor, comment, false)
	return t.result()
}

// approve applies a vote; a system vote only forces advancement.
func (e *Engine) approve(t *transition, flow *model.Flow, step *model.Step, actor, comment string, system bool) {
	next := t.next
	if next.Status == model.StatusReturned {
		next.Status = model.StatusPending
		next.RequestedChanges = nil
	}
	t.log(actor, model.ActionApproved, comment)
	if !system {
		next.PendingApprovers = next.PendingApprovers.Without(actor)
		if step.ApproverSet().Contains(actor) {
			next.ApprovedBy = next.ApprovedBy.With(actor)
		}
	}
	if !system && !satisfied(step.StrategyOrDefault(), next) {
		return
	}
	e.advance(t, flow, actor)
}

// satisfied reports whether the current level can advance after a vote.
func satisfied(strategy model.Strategy, request *model.Request) bool {
	switch strategy {
	case model.StrategyAll:
		return request.PendingApprovers.IsEmpty()
	default:
		return true
	}
}

// advance moves the request to the next valid level or approves it.
func (e *Engine) advance(t *transition, flow *model.Flow, actor string) {
	next := t.next
	step, approvers := nextLevel(flow, next.CurrentLevel, next.RemovedApprovers)
	if step == nil {
		next.Status = model.StatusApproved
		next.ApprovedAt = t.timestamp()
		next.PendingApprovers = model.ActorSet{}
		next.CurrentApprover = ""
		t.emit(model.EventRequestApproved, actor, t.creator())
		return
	}
	next.CurrentLevel = step.Level
	next.PendingApprovers = approvers
	next.ApprovedBy = model.ActorSet{}
	next.CurrentApprover = legacyApprover(approvers)
	t.emit(model.EventApprovalAdvanced, actor, approvers)
}
