package engine

import (
	"context"
	"strings"

	"github.com/viant/signoff/model"
)

// Reject terminates the request.
func (e *Engine) Reject(ctx context.Context, request *model.Request, actor, comment string) (*Transition, error) {
	t, err := e.decision(ctx, request, actor, "reject")
	if err != nil {
		return nil, err
	}
	next := t.next
	next.Status = model.StatusRejected
	next.RejectedAt = t.timestamp()
	next.PendingApprovers = model.ActorSet{}
	next.CurrentApprover = ""
	next.RequestedChanges = nil
	t.log(actor, model.ActionRejected, comment)
	t.emit(model.EventRequestRejected, actor, t.creator())
	return t.result()
}

// RequestChanges returns the request to its creator with the fields to
// change; the level and pending approvers are kept.
func (e *Engine) RequestChanges(ctx context.Context, request *model.Request, actor, comment string, fields []string) (*Transition, error) {
	t, err := e.decision(ctx, request, actor, "request changes on")
	if err != nil {
		return nil, err
	}
	changes := make([]string, 0, len(fields))
	for _, field := range fields {
		if field = strings.TrimSpace(field); field != "" {
			changes = append(changes, field)
		}
	}
	t.next.Status = model.StatusReturned
	t.next.RequestedChanges = changes
	t.log(actor, model.ActionReturned, comment)
	t.emit(model.EventChangesRequested, actor, t.creator())
	return t.result()
}

// Resubmit moves a returned request back to pending at its current level
// and notifies the pending approvers again.
func (e *Engine) Resubmit(_ context.Context, request *model.Request, actor, comment string) (*Transition, error) {
	if err := checkRequest(request); err != nil {
		return nil, err
	}
	if request.Status != model.StatusReturned {
		return nil, wrapState(request, "resubmit")
	}
	t := newTransition(request, false)
	t.next.Status = model.StatusPending
	t.next.RequestedChanges = nil
	t.log(actor, model.ActionResubmitted, comment)
	t.emit(model.EventRequestSubmitted, actor, t.next.PendingApprovers)
	return t.result()
}

// decision validates a reject or request changes call.
func (e *Engine) decision(ctx context.Context, request *model.Request, actor, operation string) (*transition, error) {
	if err := checkRequest(request); err != nil {
		return nil, err
	}
	if err := checkActor("actor", actor); err != nil {
		return nil, err
	}
	if err := checkActionable(request, operation); err != nil {
		return nil, err
	}
	_, step, err := e.currentStep(ctx, request)
	if err != nil {
		return nil, err
	}
	if err = e.checkVoter(request, step, actor); err != nil {
		return nil, err
	}
	return newTransition(request, false), nil
}
