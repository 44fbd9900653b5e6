package model

import (
	"fmt"
	"time"
)

// Subject references the business record under approval.
type Subject struct {
	Type string `json:"type" yaml:"type"`
	ID   string `json:"id" yaml:"id"`
}

// String returns type:id.
func (s Subject) String() string {
	return s.Type + ":" + s.ID
}

// Submission carries the input of a submit operation.
type Submission struct {
	Subject    Subject                `json:"subject" yaml:"subject"`
	ActionType string                 `json:"actionType" yaml:"actionType"`
	Tenant     string                 `json:"tenant,omitempty" yaml:"tenant,omitempty"`
	CreatorID  string                 `json:"creatorId,omitempty" yaml:"creatorId,omitempty"`
	Metadata   map[string]string      `json:"metadata,omitempty" yaml:"metadata,omitempty"`
	Attributes map[string]interface{} `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// Validate checks required submission fields.
func (s *Submission) Validate() error {
	if s == nil {
		return fmt.Errorf("submission was nil")
	}
	if s.Subject.Type == "" || s.Subject.ID == "" {
		return fmt.Errorf("submission subject was incomplete: %q", s.Subject.String())
	}
	if s.ActionType == "" {
		return fmt.Errorf("submission action type was empty")
	}
	return nil
}

// Request is one approval traversal of a subject through a flow.
type Request struct {
	ID               string            `json:"id"`
	FlowID           string            `json:"flowId,omitempty"`
	Tenant           string            `json:"tenant,omitempty"`
	ActionType       string            `json:"actionType"`
	Subject          Subject           `json:"subject"`
	CurrentLevel     int               `json:"currentLevel"`
	Status           Status            `json:"status"`
	CreatorID        string            `json:"creatorId,omitempty"`
	CurrentApprover  string            `json:"currentApprover,omitempty"`
	PendingApprovers ActorSet          `json:"pendingApprovers"`
	ApprovedBy       ActorSet          `json:"approvedBy"`
	RemovedApprovers ActorSet          `json:"removedApprovers"`
	RequestedChanges []string          `json:"requestedChanges,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
	ApprovedAt       *time.Time        `json:"approvedAt,omitempty"`
	RejectedAt       *time.Time        `json:"rejectedAt,omitempty"`
	Version          int               `json:"version"`
}

// Clone returns a deep copy.
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	ret := *r
	ret.PendingApprovers = NewActorSet(r.PendingApprovers...)
	ret.ApprovedBy = NewActorSet(r.ApprovedBy...)
	ret.RemovedApprovers = NewActorSet(r.RemovedApprovers...)
	if r.RequestedChanges != nil {
		ret.RequestedChanges = append([]string{}, r.RequestedChanges...)
	}
	if r.Metadata != nil {
		ret.Metadata = make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			ret.Metadata[k] = v
		}
	}
	if r.ApprovedAt != nil {
		at := *r.ApprovedAt
		ret.ApprovedAt = &at
	}
	if r.RejectedAt != nil {
		at := *r.RejectedAt
		ret.RejectedAt = &at
	}
	return &ret
}

// IsPendingFor reports whether actor still owes a vote on an actionable request.
func (r *Request) IsPendingFor(actor string) bool {
	return r.Status.IsActionable() && r.PendingApprovers.Contains(actor)
}

// Validate checks request state invariants.
func (r *Request) Validate() error {
	if r == nil {
		return fmt.Errorf("request was nil")
	}
	if r.CurrentLevel < 1 {
		return fmt.Errorf("request %v: invalid level %d", r.ID, r.CurrentLevel)
	}
	switch r.Status {
	case StatusPending, StatusReturned, StatusSkipped:
	case StatusApproved, StatusRejected:
		if !r.PendingApprovers.IsEmpty() {
			return fmt.Errorf("request %v: %v with pending approvers %v", r.ID, r.Status, r.PendingApprovers)
		}
	default:
		return fmt.Errorf("request %v: unsupported status %q", r.ID, r.Status)
	}
	if overlap := r.PendingApprovers.Intersect(r.RemovedApprovers); !overlap.IsEmpty() {
		return fmt.Errorf("request %v: removed approvers still pending: %v", r.ID, overlap)
	}
	if overlap := r.ApprovedBy.Intersect(r.RemovedApprovers); !overlap.IsEmpty() {
		return fmt.Errorf("request %v: removed approvers counted as approved: %v", r.ID, overlap)
	}
	if len(r.RequestedChanges) > 0 && r.Status != StatusReturned {
		return fmt.Errorf("request %v: requested changes on %v request", r.ID, r.Status)
	}
	return nil
}
