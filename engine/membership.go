package engine

import (
	"context"
	"fmt"

	"github.com/viant/signoff/model"
)

// RemoveApprover permanently excludes removed from the request. When the
// removal leaves the current level without anyone to act, the request
// advances as if admin had approved it.
func (e *Engine) RemoveApprover(ctx context.Context, request *model.Request, removed, admin string) (*Transition, error) {
	if err := checkRequest(request); err != nil {
		return nil, err
	}
	if err := checkActor("removed approver", removed); err != nil {
		return nil, err
	}
	if err := checkActionable(request, "remove approver from"); err != nil {
		return nil, err
	}
	flow, step, err := e.currentStep(ctx, request)
	if err != nil {
		return nil, err
	}
	t := newTransition(request, false)
	next := t.next
	wasCurrent := next.CurrentApprover == removed
	hadPending := !next.PendingApprovers.IsEmpty()

	next.RemovedApprovers = next.RemovedApprovers.With(removed)
	next.PendingApprovers = next.PendingApprovers.Without(removed)
	next.ApprovedBy = next.ApprovedBy.Without(removed)
	if wasCurrent {
		next.CurrentApprover = ""
	}
	t.log(admin, model.ActionApproverRemoved, fmt.Sprintf("Removed approver %v", removed))
	event := t.emit(model.EventApproverRemoved, admin, model.NewActorSet(removed))
	event.RemovedApprover = removed

	drained := next.PendingApprovers.IsEmpty() && (hadPending || step.StrategyOrDefault() == model.StrategyAll)
	if wasCurrent || drained {
		e.approve(t, flow, step, admin, autoAdvanceComment, true)
	}
	return t.result()
}

// Reroute replaces from with to among the pending approvers.
func (e *Engine) Reroute(_ context.Context, request *model.Request, from, to, admin string) (*Transition, error) {
	if err := checkRequest(request); err != nil {
		return nil, err
	}
	if err := checkActor("source approver", from); err != nil {
		return nil, err
	}
	if err := checkActor("target approver", to); err != nil {
		return nil, err
	}
	if err := checkActionable(request, "reroute"); err != nil {
		return nil, err
	}
	pending := request.PendingApprovers
	if pending.IsEmpty() && request.CurrentApprover != "" {
		pending = model.NewActorSet(request.CurrentApprover)
	}
	if !pending.Contains(from) {
		return nil, fmt.Errorf("%w: %v on request %v", ErrNotPendingApprover, from, request.ID)
	}
	if request.RemovedApprovers.Contains(to) {
		return nil, fmt.Errorf("%w: cannot reroute to %v on request %v", ErrApproverRemoved, to, request.ID)
	}
	t := newTransition(request, false)
	t.next.PendingApprovers = pending.Without(from).With(to)
	if t.next.CurrentApprover == from {
		t.next.CurrentApprover = to
	}
	t.log(admin, model.ActionRerouted, fmt.Sprintf("Rerouted from %v to %v", from, to))
	t.emit(model.EventApprovalAdvanced, admin, t.next.PendingApprovers)
	return t.result()
}
