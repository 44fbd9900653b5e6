package engine

import (
	"context"
	"fmt"

	"github.com/viant/signoff/internal/idgen"
	"github.com/viant/signoff/model"
)

// Submit creates a request for the submission.
func (e *Engine) Submit(ctx context.Context, submission *model.Submission) (*Transition, error) {
	if err := submission.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArgument, err)
	}
	flow, err := e.flows.FindActive(ctx, submission.ActionType, submission.Tenant)
	if err != nil {
		return nil, fmt.Errorf("failed to find flow for %v: %w", submission.ActionType, err)
	}
	t := newTransition(newRequest(submission), true)
	t.next.CreatedAt = t.now
	if flow == nil {
		if err = e.applyMissingFlow(t, submission, nil); err != nil {
			return nil, err
		}
		return t.result()
	}
	t.next.FlowID = flow.ID
	if flow.Condition != nil {
		required, err := e.requiresApproval(ctx, flow, submission)
		if err != nil {
			return nil, err
		}
		if !required {
			t.next.Status = model.StatusSkipped
			t.log(submission.CreatorID, model.ActionSkipped, "Approval not required")
			t.emit(model.EventRequestSkipped, submission.CreatorID, t.creator())
			return t.result()
		}
	}
	first := flow.FirstStep()
	if first == nil {
		if err = e.applyMissingFlow(t, submission, flow); err != nil {
			return nil, err
		}
		return t.result()
	}
	approvers := first.ApproverSet()
	t.next.CurrentLevel = first.Level
	t.next.PendingApprovers = approvers
	t.next.CurrentApprover = legacyApprover(approvers)
	t.log(submission.CreatorID, model.ActionSubmitted, "")
	t.emit(model.EventRequestSubmitted, submission.CreatorID, approvers)
	return t.result()
}

func (e *Engine) requiresApproval(ctx context.Context, flow *model.Flow, submission *model.Submission) (bool, error) {
	evaluator, err := e.conditions.Resolve(flow.Condition)
	if err != nil {
		return false, fmt.Errorf("%w: flow %v: %v", ErrInvalidConditionEvaluator, flow.ID, err)
	}
	required, err := evaluator.RequiresApproval(ctx, submission.Subject, submission.Attributes)
	if err != nil {
		return false, fmt.Errorf("flow %v: condition %v failed: %w", flow.ID, flow.Condition.ID, err)
	}
	return required, nil
}

func newRequest(submission *model.Submission) *model.Request {
	ret := &model.Request{
		ID:               idgen.New(),
		Tenant:           submission.Tenant,
		ActionType:       submission.ActionType,
		Subject:          submission.Subject,
		CurrentLevel:     1,
		Status:           model.StatusPending,
		CreatorID:        submission.CreatorID,
		PendingApprovers: model.ActorSet{},
		ApprovedBy:       model.ActorSet{},
		RemovedApprovers: model.ActorSet{},
	}
	if len(submission.Metadata) > 0 {
		ret.Metadata = make(map[string]string, len(submission.Metadata))
		for k, v := range submission.Metadata {
			ret.Metadata[k] = v
		}
	}
	return ret
}

// legacyApprover is the single approver field written for compatibility.
func legacyApprover(approvers model.ActorSet) string {
	if approvers.Len() == 1 {
		return approvers[0]
	}
	return ""
}
