package store

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/signoff/service/dao"
)

type record struct {
	ID    string
	State string
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	srv := NewMemoryStore[string, record](func(r *record) string { return r.ID },
		WithFilter[string, record](func(r *record, parameters []*dao.Parameter) bool {
			for _, p := range parameters {
				if p.Name == "State" && !strings.Contains(strings.Join(p.Values(), ","), r.State) {
					return false
				}
			}
			return true
		}),
		WithOrder[string, record](func(a, b *record) bool { return a.ID < b.ID }),
	)
	var _ dao.Service[string, record] = srv

	assert.ErrorIs(t, srv.Save(ctx, nil), dao.ErrNilEntity)
	for _, r := range []*record{{ID: "c", State: "done"}, {ID: "a", State: "open"}, {ID: "b", State: "open"}} {
		assert.NoError(t, srv.Save(ctx, r))
	}

	loaded, err := srv.Load(ctx, "a")
	assert.NoError(t, err)
	assert.Equal(t, "open", loaded.State)

	missing, err := srv.Load(ctx, "z")
	assert.NoError(t, err)
	assert.Nil(t, missing)

	open, err := srv.List(ctx, dao.NewParameter("State", "open"))
	assert.NoError(t, err)
	if assert.Len(t, open, 2) {
		assert.Equal(t, "a", open[0].ID)
		assert.Equal(t, "b", open[1].ID)
	}

	assert.NoError(t, srv.Delete(ctx, "a"))
	all, err := srv.List(ctx)
	assert.NoError(t, err)
	assert.Len(t, all, 2)
}
