// Package memory provides an in-memory request store with optimistic
// concurrency control.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/viant/signoff/model"
	"github.com/viant/signoff/service/dao"
	"github.com/viant/signoff/service/dao/criteria"
	"github.com/viant/signoff/service/dao/store"
	"github.com/viant/signoff/service/request"
)

type auditRecord struct {
	seq   int
	entry *model.AuditEntry
}

// Store keeps requests and audit entries in memory. Transactions buffer
// their writes; commit checks versions and applies everything under one lock.
type Store struct {
	mu       sync.RWMutex
	requests *store.MemoryStore[string, model.Request]
	audit    *store.MemoryStore[string, auditRecord]
	seq      int
}

// New creates an empty store.
func New() *Store {
	return &Store{
		requests: store.NewMemoryStore[string, model.Request](
			func(r *model.Request) string { return r.ID },
			store.WithFilter[string, model.Request](func(r *model.Request, parameters []*dao.Parameter) bool {
				return criteria.Match(request.Fields(r), parameters)
			}),
			store.WithOrder[string, model.Request](func(a, b *model.Request) bool {
				if a.CreatedAt.Equal(b.CreatedAt) {
					return a.ID < b.ID
				}
				return a.CreatedAt.Before(b.CreatedAt)
			}),
		),
		audit: store.NewMemoryStore[string, auditRecord](
			func(r *auditRecord) string { return r.entry.ID },
			store.WithFilter[string, auditRecord](func(r *auditRecord, parameters []*dao.Parameter) bool {
				return criteria.Match(func(name string) ([]string, bool) {
					if name == "RequestID" {
						return []string{r.entry.RequestID}, true
					}
					return nil, false
				}, parameters)
			}),
			store.WithOrder[string, auditRecord](func(a, b *auditRecord) bool { return a.seq < b.seq }),
		),
	}
}

// InTransaction runs fn over a transaction and commits its writes.
func (s *Store) InTransaction(ctx context.Context, fn func(ctx context.Context, tx request.Tx) error) error {
	tx := &transaction{store: s}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	return s.commit(ctx, tx)
}

func (s *Store) commit(ctx context.Context, tx *transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range tx.creates {
		if existing, _ := s.requests.Load(ctx, r.ID); existing != nil {
			return fmt.Errorf("request %v already exists: %w", r.ID, dao.ErrConflict)
		}
	}
	for _, r := range tx.updates {
		existing, _ := s.requests.Load(ctx, r.ID)
		if existing == nil {
			return fmt.Errorf("request %v: %w", r.ID, dao.ErrNotFound)
		}
		if existing.Version != r.Version {
			return fmt.Errorf("request %v version %d, stored %d: %w", r.ID, r.Version, existing.Version, dao.ErrConflict)
		}
	}
	for _, r := range tx.creates {
		r.Version = 1
		_ = s.requests.Save(ctx, r.Clone())
	}
	for _, r := range tx.updates {
		r.Version++
		_ = s.requests.Save(ctx, r.Clone())
	}
	for _, entry := range tx.entries {
		s.seq++
		copied := *entry
		_ = s.audit.Save(ctx, &auditRecord{seq: s.seq, entry: &copied})
	}
	return nil
}

// Load returns a copy of the committed request.
func (s *Store) Load(ctx context.Context, id string) (*model.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.load(ctx, id)
}

func (s *Store) load(ctx context.Context, id string) (*model.Request, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	ret, err := s.requests.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if ret == nil {
		return nil, fmt.Errorf("request %v: %w", id, dao.ErrNotFound)
	}
	return ret.Clone(), nil
}

// List returns copies of committed requests matching parameters.
func (s *Store) List(ctx context.Context, parameters ...*dao.Parameter) ([]*model.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items, err := s.requests.List(ctx, parameters...)
	if err != nil {
		return nil, err
	}
	ret := make([]*model.Request, 0, len(items))
	for _, item := range items {
		ret = append(ret, item.Clone())
	}
	return ret, nil
}

// AuditLog returns the audit entries of a request, oldest first.
func (s *Store) AuditLog(ctx context.Context, requestID string) ([]*model.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records, err := s.audit.List(ctx, dao.NewParameter("RequestID", requestID))
	if err != nil {
		return nil, err
	}
	ret := make([]*model.AuditEntry, 0, len(records))
	for _, record := range records {
		copied := *record.entry
		ret = append(ret, &copied)
	}
	return ret, nil
}

type transaction struct {
	store   *Store
	creates []*model.Request
	updates []*model.Request
	entries []*model.AuditEntry
}

func (t *transaction) Load(ctx context.Context, id string) (*model.Request, error) {
	return t.store.Load(ctx, id)
}

func (t *transaction) Create(_ context.Context, r *model.Request) error {
	if r == nil {
		return dao.ErrNilEntity
	}
	if r.ID == "" {
		return dao.ErrInvalidID
	}
	t.creates = append(t.creates, r)
	return nil
}

func (t *transaction) Update(_ context.Context, r *model.Request) error {
	if r == nil {
		return dao.ErrNilEntity
	}
	if r.ID == "" {
		return dao.ErrInvalidID
	}
	t.updates = append(t.updates, r)
	return nil
}

func (t *transaction) Append(_ context.Context, entries ...*model.AuditEntry) error {
	for _, entry := range entries {
		if entry == nil {
			return dao.ErrNilEntity
		}
		t.entries = append(t.entries, entry)
	}
	return nil
}

var _ request.Store = (*Store)(nil)
