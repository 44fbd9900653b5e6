// Package pg provides PostgreSQL implementations of the request store and
// the flow repository on top of pgx.
package pg

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/viant/signoff/model"
	"github.com/viant/signoff/service/dao"
	"github.com/viant/signoff/service/request"
)

//go:embed schema.sql
var Schema string

// querier is satisfied by both *pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Connect opens a connection pool for dsn.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err = pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return pool, nil
}

// EnsureSchema creates the approval tables when missing.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Store persists requests in approval_requests and audit entries in
// approval_request_logs. Transactions lock the rows they load.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a store over pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const requestColumns = `id, flow_id, tenant, action_type, subject_type, subject_id,
	current_level, status, creator_id, current_approver,
	pending_approvers, approved_by, removed_approvers, requested_changes, metadata,
	created_at, updated_at, approved_at, rejected_at, version`

// InTransaction runs fn in a database transaction.
func (s *Store) InTransaction(ctx context.Context, fn func(ctx context.Context, tx request.Tx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(ctx, &transaction{tx: tx})
	})
}

// Load returns the committed request.
func (s *Store) Load(ctx context.Context, id string) (*model.Request, error) {
	return loadRequest(ctx, s.pool, id, false)
}

// List returns requests matching parameters ordered by creation time.
func (s *Store) List(ctx context.Context, parameters ...*dao.Parameter) ([]*model.Request, error) {
	where, args := requestCriteria.build(parameters)
	rows, err := s.pool.Query(ctx, `SELECT `+requestColumns+` FROM approval_requests`+where+` ORDER BY created_at, id`, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list requests: %w", err)
	}
	defer rows.Close()
	var ret []*model.Request
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		ret = append(ret, r)
	}
	return ret, rows.Err()
}

// AuditLog returns the request audit entries in insertion order.
func (s *Store) AuditLog(ctx context.Context, requestID string) ([]*model.AuditEntry, error) {
	rows, err := s.pool.Query(ctx, `SELECT id, request_id, actor_id, action, comment, created_at
		FROM approval_request_logs WHERE request_id = $1 ORDER BY seq`, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}
	defer rows.Close()
	var ret []*model.AuditEntry
	for rows.Next() {
		entry := &model.AuditEntry{}
		var action string
		if err := rows.Scan(&entry.ID, &entry.RequestID, &entry.ActorID, &action, &entry.Comment, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entry.Action = model.Action(action)
		entry.CreatedAt = entry.CreatedAt.UTC()
		ret = append(ret, entry)
	}
	return ret, rows.Err()
}

type transaction struct {
	tx pgx.Tx
}

func (t *transaction) Load(ctx context.Context, id string) (*model.Request, error) {
	return loadRequest(ctx, t.tx, id, true)
}

func (t *transaction) Create(ctx context.Context, r *model.Request) error {
	if r == nil {
		return dao.ErrNilEntity
	}
	if r.ID == "" {
		return dao.ErrInvalidID
	}
	tag, err := t.tx.Exec(ctx, `INSERT INTO approval_requests (`+requestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, 1)
		ON CONFLICT (id) DO NOTHING`, requestArgs(r)...)
	if err != nil {
		return fmt.Errorf("failed to create request %v: %w", r.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("request %v already exists: %w", r.ID, dao.ErrConflict)
	}
	r.Version = 1
	return nil
}

func (t *transaction) Update(ctx context.Context, r *model.Request) error {
	if r == nil {
		return dao.ErrNilEntity
	}
	if r.ID == "" {
		return dao.ErrInvalidID
	}
	args := append(requestArgs(r), r.Version)
	tag, err := t.tx.Exec(ctx, `UPDATE approval_requests SET
		flow_id = $2, tenant = $3, action_type = $4, subject_type = $5, subject_id = $6,
		current_level = $7, status = $8, creator_id = $9, current_approver = $10,
		pending_approvers = $11, approved_by = $12, removed_approvers = $13,
		requested_changes = $14, metadata = $15, created_at = $16, updated_at = $17,
		approved_at = $18, rejected_at = $19, version = version + 1
		WHERE id = $1 AND version = $20`, args...)
	if err != nil {
		return fmt.Errorf("failed to update request %v: %w", r.ID, err)
	}
	if tag.RowsAffected() == 0 {
		var exists bool
		if err := t.tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM approval_requests WHERE id = $1)`, r.ID).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check request %v: %w", r.ID, err)
		}
		if !exists {
			return fmt.Errorf("request %v: %w", r.ID, dao.ErrNotFound)
		}
		return fmt.Errorf("request %v version %d: %w", r.ID, r.Version, dao.ErrConflict)
	}
	r.Version++
	return nil
}

func (t *transaction) Append(ctx context.Context, entries ...*model.AuditEntry) error {
	for _, entry := range entries {
		if entry == nil {
			return dao.ErrNilEntity
		}
		if _, err := t.tx.Exec(ctx, `INSERT INTO approval_request_logs (id, request_id, actor_id, action, comment, created_at)
			VALUES ($1, $2, $3, $4, $5, $6)`,
			entry.ID, entry.RequestID, entry.ActorID, string(entry.Action), entry.Comment, entry.CreatedAt); err != nil {
			return fmt.Errorf("failed to append audit entry %v: %w", entry.ID, err)
		}
	}
	return nil
}

func loadRequest(ctx context.Context, q querier, id string, lock bool) (*model.Request, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	query := `SELECT ` + requestColumns + ` FROM approval_requests WHERE id = $1`
	if lock {
		query += ` FOR UPDATE`
	}
	ret, err := scanRequest(q.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("request %v: %w", id, dao.ErrNotFound)
	}
	return ret, err
}

func requestArgs(r *model.Request) []any {
	metadata := r.Metadata
	if metadata == nil {
		metadata = map[string]string{}
	}
	return []any{
		r.ID, r.FlowID, r.Tenant, r.ActionType, r.Subject.Type, r.Subject.ID,
		r.CurrentLevel, string(r.Status), r.CreatorID, r.CurrentApprover,
		texts(r.PendingApprovers), texts(r.ApprovedBy), texts(r.RemovedApprovers), texts(r.RequestedChanges), metadata,
		r.CreatedAt, r.UpdatedAt, r.ApprovedAt, r.RejectedAt,
	}
}

func scanRequest(row pgx.Row) (*model.Request, error) {
	r := &model.Request{}
	var status string
	var pending, approved, removed, changes []string
	var metadata map[string]string
	err := row.Scan(&r.ID, &r.FlowID, &r.Tenant, &r.ActionType, &r.Subject.Type, &r.Subject.ID,
		&r.CurrentLevel, &status, &r.CreatorID, &r.CurrentApprover,
		&pending, &approved, &removed, &changes, &metadata,
		&r.CreatedAt, &r.UpdatedAt, &r.ApprovedAt, &r.RejectedAt, &r.Version)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan request: %w", err)
	}
	r.Status = model.Status(status)
	r.PendingApprovers = model.NewActorSet(pending...)
	r.ApprovedBy = model.NewActorSet(approved...)
	r.RemovedApprovers = model.NewActorSet(removed...)
	if len(changes) > 0 {
		r.RequestedChanges = changes
	}
	if len(metadata) > 0 {
		r.Metadata = metadata
	}
	r.CreatedAt = r.CreatedAt.UTC()
	r.UpdatedAt = r.UpdatedAt.UTC()
	r.ApprovedAt = utc(r.ApprovedAt)
	r.RejectedAt = utc(r.RejectedAt)
	return r, nil
}

func utc(at *time.Time) *time.Time {
	if at == nil {
		return nil
	}
	ret := at.UTC()
	return &ret
}

// texts returns a non nil slice so that NOT NULL array columns receive '{}'.
func texts(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

// criteria maps dao parameter names to columns; array columns match on overlap.
type criteria map[string]column

type column struct {
	name  string
	array bool
}

var requestCriteria = criteria{
	request.ParamStatus:      {name: "status"},
	request.ParamPending:     {name: "pending_approvers", array: true},
	request.ParamSubjectType: {name: "subject_type"},
	request.ParamSubjectID:   {name: "subject_id"},
	request.ParamTenant:      {name: "tenant"},
	request.ParamActionType:  {name: "action_type"},
	request.ParamFlowID:      {name: "flow_id"},
}

// build returns a WHERE clause and its arguments; unknown parameters are ignored.
func (c criteria) build(parameters []*dao.Parameter) (string, []any) {
	var conditions []string
	var args []any
	for _, parameter := range parameters {
		if parameter == nil {
			continue
		}
		col, ok := c[parameter.Name]
		if !ok {
			continue
		}
		args = append(args, texts(parameter.Values()))
		placeholder := "$" + strconv.Itoa(len(args))
		if col.array {
			conditions = append(conditions, col.name+" && "+placeholder+"::text[]")
		} else {
			conditions = append(conditions, col.name+"::text = ANY("+placeholder+"::text[])")
		}
	}
	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

var _ request.Store = (*Store)(nil)
