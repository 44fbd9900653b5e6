package model

// Status represents the lifecycle state of a request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
	StatusSkipped  Status = "skipped"
	StatusReturned Status = "returned"
)

// IsTerminal reports whether no further transition is accepted.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusApproved, StatusRejected, StatusSkipped:
		return true
	}
	return false
}

// IsActionable reports whether approvers can still act on the request.
func (s Status) IsActionable() bool {
	return s == StatusPending || s == StatusReturned
}
