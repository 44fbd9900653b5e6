package model

import "time"

// EventKind identifies a notification-worthy transition.
type EventKind string

const (
	EventRequestSubmitted EventKind = "request.submitted"
	EventApprovalAdvanced EventKind = "approval.advanced"
	EventRequestApproved  EventKind = "request.approved"
	EventRequestRejected  EventKind = "request.rejected"
	EventChangesRequested EventKind = "changes.requested"
	EventApproverRemoved  EventKind = "approver.removed"
	EventRequestSkipped   EventKind = "request.skipped"
)

// Event is emitted by a transition and published after commit.
type Event struct {
	ID              string    `json:"id"`
	Kind            EventKind `json:"kind"`
	Request         *Request  `json:"request"`
	RemovedApprover string    `json:"removedApprover,omitempty"`
	Recipients      ActorSet  `json:"recipients"`
	Actor           string    `json:"actor,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}
