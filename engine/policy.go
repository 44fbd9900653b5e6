package engine

import (
	"fmt"

	"github.com/viant/signoff/model"
)

// MissingFlowPolicy decides the outcome of a submission that no active flow,
// or a flow without steps, governs.
type MissingFlowPolicy int

const (
	// AutoApprove approves the subject unconditionally.
	AutoApprove MissingFlowPolicy = iota
	// FailOnMissingFlow rejects the submission with ErrFlowNotFound.
	FailOnMissingFlow
)

const autoApproveComment = "Auto-approved: no approval flow configured"

// String returns the policy name.
func (p MissingFlowPolicy) String() string {
	switch p {
	case AutoApprove:
		return "autoApprove"
	case FailOnMissingFlow:
		return "failOnMissingFlow"
	}
	return fmt.Sprintf("MissingFlowPolicy(%d)", int(p))
}

// applyMissingFlow is the only place deciding what ungoverned submissions do.
func (e *Engine) applyMissingFlow(t *transition, submission *model.Submission, flow *model.Flow) error {
	switch e.missingFlow {
	case AutoApprove:
		if flow != nil {
			t.next.FlowID = flow.ID
		}
		t.next.Status = model.StatusApproved
		t.next.ApprovedAt = t.timestamp()
		t.log("", model.ActionApproved, autoApproveComment)
		t.emit(model.EventRequestApproved, "", t.creator())
		return nil
	case FailOnMissingFlow:
		if flow != nil {
			return fmt.Errorf("%w: flow %v has no steps", ErrFlowNotFound, flow.ID)
		}
		return fmt.Errorf("%w: action type %q, tenant %q", ErrFlowNotFound, submission.ActionType, submission.Tenant)
	}
	return fmt.Errorf("unsupported missing flow policy: %v", e.missingFlow)
}
