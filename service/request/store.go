// Package request defines the persistence and transaction boundary for
// approval requests and their audit log.
package request

import (
	"context"
	"strconv"

	"github.com/viant/signoff/model"
	"github.com/viant/signoff/service/dao"
)

// Filter parameter names supported by Store.List.
const (
	ParamStatus      = "Status"
	ParamPending     = "Pending"
	ParamSubjectType = "SubjectType"
	ParamSubjectID   = "SubjectID"
	ParamTenant      = "Tenant"
	ParamActionType  = "ActionType"
	ParamFlowID      = "FlowID"
)

// Tx is a unit of work over one consistent snapshot.
type Tx interface {
	// Load returns a private copy of the request or an error wrapping dao.ErrNotFound.
	Load(ctx context.Context, id string) (*model.Request, error)

	// Create stores a new request and sets its version to 1.
	Create(ctx context.Context, request *model.Request) error

	// Update replaces a request; request.Version must equal the stored
	// version, otherwise commit fails with dao.ErrConflict. On success the
	// version is incremented.
	Update(ctx context.Context, request *model.Request) error

	// Append adds audit entries.
	Append(ctx context.Context, entries ...*model.AuditEntry) error
}

// Store persists requests and audit entries.
type Store interface {
	// InTransaction runs fn and commits its writes atomically when fn returns nil.
	InTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error

	// Load returns the committed request or an error wrapping dao.ErrNotFound.
	Load(ctx context.Context, id string) (*model.Request, error)

	// List returns committed requests matching parameters, oldest first.
	List(ctx context.Context, parameters ...*dao.Parameter) ([]*model.Request, error)

	// AuditLog returns the request audit entries, oldest first.
	AuditLog(ctx context.Context, requestID string) ([]*model.AuditEntry, error)
}

// Fields exposes request values for parameter matching.
func Fields(r *model.Request) func(name string) ([]string, bool) {
	return func(name string) ([]string, bool) {
		switch name {
		case ParamStatus:
			return []string{string(r.Status)}, true
		case ParamPending:
			return r.PendingApprovers.Slice(), true
		case ParamSubjectType:
			return []string{r.Subject.Type}, true
		case ParamSubjectID:
			return []string{r.Subject.ID}, true
		case ParamTenant:
			return []string{r.Tenant}, true
		case ParamActionType:
			return []string{r.ActionType}, true
		case ParamFlowID:
			return []string{r.FlowID}, true
		case "Version":
			return []string{strconv.Itoa(r.Version)}, true
		}
		return nil, false
	}
}
