package pg

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/viant/signoff/model"
	"github.com/viant/signoff/service/dao"
	"github.com/viant/signoff/service/flow"
)

// FlowRepository stores flows in approval_flows and their steps in
// approval_flow_steps.
type FlowRepository struct {
	pool *pgxpool.Pool
}

// NewFlowRepository creates a repository over pool.
func NewFlowRepository(pool *pgxpool.Pool) *FlowRepository {
	return &FlowRepository{pool: pool}
}

var flowCriteria = criteria{
	"ActionType": {name: "action_type"},
	"Tenant":     {name: "tenant"},
	"Active":     {name: "active"},
}

// FindActive returns the active flow for actionType and tenant.
func (r *FlowRepository) FindActive(ctx context.Context, actionType, tenant string) (*model.Flow, error) {
	candidates, err := r.List(ctx, dao.NewParameter("ActionType", actionType), dao.NewParameter("Active", "true"))
	if err != nil {
		return nil, err
	}
	return flow.Select(candidates, actionType, tenant), nil
}

// Load returns a flow by id.
func (r *FlowRepository) Load(ctx context.Context, id string) (*model.Flow, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	flows, err := r.query(ctx, ` WHERE id = $1`, id)
	if err != nil {
		return nil, err
	}
	if len(flows) == 0 {
		return nil, fmt.Errorf("flow %v: %w", id, dao.ErrNotFound)
	}
	return flows[0], nil
}

// List returns flows matching parameters ordered by id.
func (r *FlowRepository) List(ctx context.Context, parameters ...*dao.Parameter) ([]*model.Flow, error) {
	where, args := flowCriteria.build(parameters)
	return r.query(ctx, where, args...)
}

// Save validates f and replaces the stored flow and its steps.
func (r *FlowRepository) Save(ctx context.Context, f *model.Flow) error {
	if f == nil {
		return dao.ErrNilEntity
	}
	if err := f.Validate(); err != nil {
		return err
	}
	var condition []byte
	if f.Condition != nil {
		var err error
		if condition, err = json.Marshal(f.Condition); err != nil {
			return fmt.Errorf("failed to encode flow %v condition: %w", f.ID, err)
		}
	}
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `INSERT INTO approval_flows (id, name, action_type, tenant, active, condition_ref, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, now())
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, action_type = EXCLUDED.action_type,
				tenant = EXCLUDED.tenant, active = EXCLUDED.active, condition_ref = EXCLUDED.condition_ref, updated_at = now()`,
			f.ID, f.Name, f.ActionType, f.Tenant, f.Active, condition); err != nil {
			return fmt.Errorf("failed to save flow %v: %w", f.ID, err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM approval_flow_steps WHERE flow_id = $1`, f.ID); err != nil {
			return fmt.Errorf("failed to clear flow %v steps: %w", f.ID, err)
		}
		for _, step := range f.Steps {
			if _, err := tx.Exec(ctx, `INSERT INTO approval_flow_steps (flow_id, level, approvers, approver, strategy, action)
				VALUES ($1, $2, $3, $4, $5, $6)`,
				f.ID, step.Level, texts(step.Approvers), step.Approver, string(step.Strategy.OrDefault()), step.Action); err != nil {
				return fmt.Errorf("failed to save flow %v level %d: %w", f.ID, step.Level, err)
			}
		}
		return nil
	})
}

func (r *FlowRepository) query(ctx context.Context, where string, args ...any) ([]*model.Flow, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, action_type, tenant, active, condition_ref FROM approval_flows`+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query flows: %w", err)
	}
	var ret []*model.Flow
	byID := map[string]*model.Flow{}
	for rows.Next() {
		f := &model.Flow{}
		var condition []byte
		if err := rows.Scan(&f.ID, &f.Name, &f.ActionType, &f.Tenant, &f.Active, &condition); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan flow: %w", err)
		}
		if len(condition) > 0 {
			f.Condition = &model.ConditionRef{}
			if err := json.Unmarshal(condition, f.Condition); err != nil {
				rows.Close()
				return nil, fmt.Errorf("failed to decode flow %v condition: %w", f.ID, err)
			}
		}
		ret = append(ret, f)
		byID[f.ID] = f
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ret) == 0 {
		return ret, nil
	}
	ids := make([]string, 0, len(ret))
	for _, f := range ret {
		ids = append(ids, f.ID)
	}
	if err := r.loadSteps(ctx, ids, byID); err != nil {
		return nil, err
	}
	return ret, nil
}

func (r *FlowRepository) loadSteps(ctx context.Context, ids []string, byID map[string]*model.Flow) error {
	rows, err := r.pool.Query(ctx, `SELECT flow_id, level, approvers, approver, strategy, action
		FROM approval_flow_steps WHERE flow_id = ANY($1) ORDER BY flow_id, level`, ids)
	if err != nil {
		return fmt.Errorf("failed to query flow steps: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var flowID, strategy string
		step := &model.Step{}
		if err := rows.Scan(&flowID, &step.Level, &step.Approvers, &step.Approver, &strategy, &step.Action); err != nil {
			return fmt.Errorf("failed to scan flow step: %w", err)
		}
		if len(step.Approvers) == 0 {
			step.Approvers = nil
		}
		step.Strategy = model.Strategy(strategy)
		if f, ok := byID[flowID]; ok {
			f.Steps = append(f.Steps, step)
		}
	}
	return rows.Err()
}

var _ flow.Repository = (*FlowRepository)(nil)
