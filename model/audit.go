package model

import "time"

// Action tags an audit entry.
type Action string

const (
	ActionSubmitted       Action = "submitted"
	ActionApproved        Action = "approved"
	ActionRejected        Action = "rejected"
	ActionReturned        Action = "returned"
	ActionRerouted        Action = "rerouted"
	ActionApproverRemoved Action = "approver_removed"
	ActionSkipped         Action = "skipped"
	ActionResubmitted     Action = "resubmitted"
)

// AuditEntry records one accepted action against a request. Entries are
// append only.
type AuditEntry struct {
	ID        string    `json:"id"`
	RequestID string    `json:"requestId"`
	ActorID   string    `json:"actorId,omitempty"` // empty for system generated actions
	Action    Action    `json:"action"`
	Comment   string    `json:"comment,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}
