package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/signoff/model"
	"github.com/viant/signoff/service/dao"
	"github.com/viant/signoff/service/request"
)

func newRequest(id string, created time.Time, pending ...string) *model.Request {
	return &model.Request{
		ID:               id,
		ActionType:       "expense",
		Subject:          model.Subject{Type: "expense", ID: id},
		CurrentLevel:     1,
		Status:           model.StatusPending,
		PendingApprovers: model.NewActorSet(pending...),
		CreatedAt:        created,
	}
}

func TestStore_Transaction(t *testing.T) {
	ctx := context.Background()
	srv := New()
	now := time.Now()

	err := srv.InTransaction(ctx, func(ctx context.Context, tx request.Tx) error {
		if err := tx.Create(ctx, newRequest("r1", now, "10", "11")); err != nil {
			return err
		}
		return tx.Append(ctx, &model.AuditEntry{ID: "a1", RequestID: "r1", Action: model.ActionSubmitted})
	})
	require.NoError(t, err)

	loaded, err := srv.Load(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Version)

	err = srv.InTransaction(ctx, func(ctx context.Context, tx request.Tx) error {
		current, err := tx.Load(ctx, "r1")
		if err != nil {
			return err
		}
		next := current.Clone()
		next.PendingApprovers = next.PendingApprovers.Without("10")
		if err := tx.Update(ctx, next); err != nil {
			return err
		}
		return tx.Append(ctx, &model.AuditEntry{ID: "a2", RequestID: "r1", ActorID: "10", Action: model.ActionApproved})
	})
	require.NoError(t, err)

	loaded, err = srv.Load(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.Version)
	assert.EqualValues(t, []string{"11"}, loaded.PendingApprovers.Slice())

	entries, err := srv.AuditLog(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, model.ActionSubmitted, entries[0].Action)
	assert.Equal(t, model.ActionApproved, entries[1].Action)
}

func TestStore_Conflict(t *testing.T) {
	ctx := context.Background()
	srv := New()
	require.NoError(t, srv.InTransaction(ctx, func(ctx context.Context, tx request.Tx) error {
		return tx.Create(ctx, newRequest("r1", time.Now(), "10", "11"))
	}))

	stale, err := srv.Load(ctx, "r1")
	require.NoError(t, err)
	fresh, err := srv.Load(ctx, "r1")
	require.NoError(t, err)

	require.NoError(t, srv.InTransaction(ctx, func(ctx context.Context, tx request.Tx) error {
		return tx.Update(ctx, fresh)
	}))
	err = srv.InTransaction(ctx, func(ctx context.Context, tx request.Tx) error {
		if err := tx.Update(ctx, stale); err != nil {
			return err
		}
		return tx.Append(ctx, &model.AuditEntry{ID: "lost", RequestID: "r1"})
	})
	assert.ErrorIs(t, err, dao.ErrConflict)

	entries, err := srv.AuditLog(ctx, "r1")
	require.NoError(t, err)
	assert.Empty(t, entries, "rejected commit must not append audit entries")

	err = srv.InTransaction(ctx, func(ctx context.Context, tx request.Tx) error {
		return tx.Create(ctx, newRequest("r1", time.Now()))
	})
	assert.ErrorIs(t, err, dao.ErrConflict)
}

func TestStore_Rollback(t *testing.T) {
	ctx := context.Background()
	srv := New()
	boom := errors.New("boom")
	err := srv.InTransaction(ctx, func(ctx context.Context, tx request.Tx) error {
		_ = tx.Create(ctx, newRequest("r1", time.Now()))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	_, err = srv.Load(ctx, "r1")
	assert.ErrorIs(t, err, dao.ErrNotFound)
	_, err = srv.Load(ctx, "")
	assert.ErrorIs(t, err, dao.ErrInvalidID)
}

func TestStore_List(t *testing.T) {
	ctx := context.Background()
	srv := New()
	now := time.Now()
	approved := newRequest("r3", now.Add(2*time.Second))
	approved.Status = model.StatusApproved
	require.NoError(t, srv.InTransaction(ctx, func(ctx context.Context, tx request.Tx) error {
		for _, r := range []*model.Request{newRequest("r2", now.Add(time.Second), "11"), newRequest("r1", now, "10", "11"), approved} {
			if err := tx.Create(ctx, r); err != nil {
				return err
			}
		}
		return nil
	}))

	type testCase struct {
		description string
		parameters  []*dao.Parameter
		expectIDs   []string
	}
	var testCases = []testCase{
		{description: "all oldest first", expectIDs: []string{"r1", "r2", "r3"}},
		{description: "pending actor", parameters: []*dao.Parameter{dao.NewParameter(request.ParamPending, "11")}, expectIDs: []string{"r1", "r2"}},
		{description: "status", parameters: []*dao.Parameter{dao.NewParameter(request.ParamStatus, "approved")}, expectIDs: []string{"r3"}},
		{description: "subject", parameters: []*dao.Parameter{dao.NewParameter(request.ParamSubjectType, "expense"), dao.NewParameter(request.ParamSubjectID, "r2")}, expectIDs: []string{"r2"}},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			items, err := srv.List(ctx, testCase.parameters...)
			require.NoError(t, err)
			var ids []string
			for _, item := range items {
				ids = append(ids, item.ID)
			}
			assert.EqualValues(t, testCase.expectIDs, ids)
		})
	}
}
