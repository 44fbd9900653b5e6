// Package memory provides an in-memory flow repository.
package memory

import (
	"context"
	"fmt"
	"strconv"

	"github.com/viant/signoff/model"
	"github.com/viant/signoff/service/dao"
	"github.com/viant/signoff/service/dao/criteria"
	"github.com/viant/signoff/service/dao/store"
	"github.com/viant/signoff/service/flow"
)

// Repository keeps flows in a dao memory store.
type Repository struct {
	store *store.MemoryStore[string, model.Flow]
}

// New creates a repository seeded with flows.
func New(flows ...*model.Flow) (*Repository, error) {
	ret := &Repository{
		store: store.NewMemoryStore[string, model.Flow](
			func(f *model.Flow) string { return f.ID },
			store.WithFilter[string, model.Flow](match),
			store.WithOrder[string, model.Flow](func(a, b *model.Flow) bool { return a.ID < b.ID }),
		),
	}
	for _, f := range flows {
		if err := ret.Save(context.Background(), f); err != nil {
			return nil, err
		}
	}
	return ret, nil
}

func match(f *model.Flow, parameters []*dao.Parameter) bool {
	return criteria.Match(func(name string) ([]string, bool) {
		switch name {
		case "ActionType":
			return []string{f.ActionType}, true
		case "Tenant":
			return []string{f.Tenant}, true
		case "Active":
			return []string{strconv.FormatBool(f.Active)}, true
		}
		return nil, false
	}, parameters)
}

// FindActive returns the active flow for actionType and tenant.
func (r *Repository) FindActive(ctx context.Context, actionType, tenant string) (*model.Flow, error) {
	candidates, err := r.store.List(ctx, dao.NewParameter("ActionType", actionType), dao.NewParameter("Active", "true"))
	if err != nil {
		return nil, err
	}
	return flow.Select(candidates, actionType, tenant), nil
}

// Load returns a flow by id.
func (r *Repository) Load(ctx context.Context, id string) (*model.Flow, error) {
	ret, err := r.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if ret == nil {
		return nil, fmt.Errorf("flow %v: %w", id, dao.ErrNotFound)
	}
	return ret, nil
}

// Save validates and stores f, replacing any flow with the same id.
func (r *Repository) Save(ctx context.Context, f *model.Flow) error {
	if f == nil {
		return dao.ErrNilEntity
	}
	if err := f.Validate(); err != nil {
		return err
	}
	return r.store.Save(ctx, f)
}

// List returns flows matching parameters.
func (r *Repository) List(ctx context.Context, parameters ...*dao.Parameter) ([]*model.Flow, error) {
	return r.store.List(ctx, parameters...)
}

var _ flow.Repository = (*Repository)(nil)
