// Package flow provides flow definition repositories and the YAML loader
// that populates them.
package flow

import (
	"context"

	"github.com/viant/signoff/model"
	"github.com/viant/signoff/service/dao"
)

// Repository stores flow definitions.
type Repository interface {
	// FindActive returns the active flow for actionType, filtered by tenant
	// when tenant is not empty; it returns nil, nil when none matches.
	FindActive(ctx context.Context, actionType, tenant string) (*model.Flow, error)

	// Load returns the flow with id or an error wrapping dao.ErrNotFound.
	Load(ctx context.Context, id string) (*model.Flow, error)

	// Save validates and stores a flow.
	Save(ctx context.Context, flow *model.Flow) error

	// List returns flows matching parameters (ActionType, Tenant, Active).
	List(ctx context.Context, parameters ...*dao.Parameter) ([]*model.Flow, error)
}

// Select picks the flow serving actionType and tenant from candidates. With
// no tenant, an untenanted flow wins over tenant scoped ones; ties resolve
// to the lowest id.
func Select(candidates []*model.Flow, actionType, tenant string) *model.Flow {
	var ret *model.Flow
	for _, candidate := range candidates {
		if candidate == nil || !candidate.Matches(actionType, tenant) {
			continue
		}
		if ret == nil || better(candidate, ret, tenant) {
			ret = candidate
		}
	}
	return ret
}

func better(candidate, current *model.Flow, tenant string) bool {
	if tenant == "" && (candidate.Tenant == "") != (current.Tenant == "") {
		return candidate.Tenant == ""
	}
	return candidate.ID < current.ID
}
