package signoff_test

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	_ "github.com/viant/afs/embed"
	"github.com/viant/signoff"
	"github.com/viant/signoff/engine"
	"github.com/viant/signoff/internal/retry"
	"github.com/viant/signoff/model"
	"github.com/viant/signoff/service/dao"
	"github.com/viant/signoff/service/event"
	"github.com/viant/signoff/service/request"
	"github.com/viant/signoff/service/request/memory"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

//go:embed testdata/*
var embedFS embed.FS

type recorder struct {
	mu     sync.Mutex
	events []*model.Event
}

func (r *recorder) Notify(_ context.Context, e *model.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) kinds() []model.EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ret []model.EventKind
	for _, e := range r.events {
		ret = append(ret, e.Kind)
	}
	return ret
}

func newService(t *testing.T, options ...signoff.Option) (*signoff.Service, *recorder) {
	t.Helper()
	notifications := &recorder{}
	options = append([]signoff.Option{
		signoff.WithFs(afs.New(), &embedFS),
		signoff.WithNotifier(event.LogChannel, notifications),
	}, options...)
	srv, err := signoff.New(options...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Close(context.Background()) })
	require.NoError(t, srv.LoadFlows(context.Background(), "embed:///testdata/flows"))
	return srv, notifications
}

func expense(id string, amount float64) *model.Submission {
	return &model.Submission{
		Subject:    model.Subject{Type: "expense", ID: id},
		ActionType: "expense",
		CreatorID:  "1",
		Attributes: map[string]interface{}{"amount": amount},
	}
}

func actions(entries []*model.AuditEntry) []model.Action {
	var ret []model.Action
	for _, entry := range entries {
		ret = append(ret, entry.Action)
	}
	return ret
}

func TestService_ExpenseFlow(t *testing.T) {
	ctx := context.Background()
	core, logs := observer.New(zap.InfoLevel)
	srv, notifications := newService(t, signoff.WithLogger(zap.New(core)))

	skipped, err := srv.Submit(ctx, expense("small", 50))
	require.NoError(t, err)
	assert.Equal(t, model.StatusSkipped, skipped.Status)

	req, err := srv.Submit(ctx, expense("large", 500))
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, req.Status)
	assert.Equal(t, 1, req.CurrentLevel)
	assert.Equal(t, 1, req.Version)

	inbox, err := srv.ListPending(ctx, "11")
	require.NoError(t, err)
	require.Len(t, inbox, 1)
	assert.Equal(t, req.ID, inbox[0].ID)

	req, err = srv.Approve(ctx, req.ID, "11", "ok")
	require.NoError(t, err)
	assert.Equal(t, 2, req.CurrentLevel)
	assert.Equal(t, "20", req.CurrentApprover)

	pending, err := srv.IsPendingApproval(ctx, req.Subject)
	require.NoError(t, err)
	assert.True(t, pending)

	var called []string
	callback := func(ctx context.Context, r *model.Request) error {
		called = append(called, string(r.Status))
		return errors.New("downstream unavailable")
	}
	req, err = srv.Approve(ctx, req.ID, "20", "final", callback)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, req.Status)
	assert.Equal(t, []string{"approved"}, called)
	assert.Equal(t, 1, logs.FilterMessage("approval callback failed").Len())

	approved, err := srv.IsApproved(ctx, req.Subject)
	require.NoError(t, err)
	assert.True(t, approved)
	status, err := srv.SubjectStatus(ctx, model.Subject{Type: "expense", ID: "unknown"})
	require.NoError(t, err)
	assert.Equal(t, model.Status(""), status)

	entries, err := srv.AuditLog(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, []model.Action{model.ActionSubmitted, model.ActionApproved, model.ActionApproved}, actions(entries))

	assert.Equal(t, []model.EventKind{
		model.EventRequestSkipped,
		model.EventRequestSubmitted,
		model.EventApprovalAdvanced,
		model.EventRequestApproved,
	}, notifications.kinds())
	assert.Equal(t, 4, logs.FilterMessage("approval transition").Len())

	_, err = srv.Approve(ctx, req.ID, "11", "again")
	assert.True(t, errors.Is(err, engine.ErrInvalidState))
}

func TestService_Membership(t *testing.T) {
	ctx := context.Background()

	type testCase struct {
		description string
		run         func(t *testing.T, srv *signoff.Service, id string) (*model.Request, error)
		expectErr   error
		expectLevel int
		expect      model.Status
	}
	var testCases = []testCase{
		{
			description: "removing the last level 2 approver approves",
			run: func(t *testing.T, srv *signoff.Service, id string) (*model.Request, error) {
				_, err := srv.Approve(ctx, id, "10", "")
				require.NoError(t, err)
				return srv.RemoveApprover(ctx, id, "20", "admin")
			},
			expectLevel: 2,
			expect:      model.StatusApproved,
		},
		{
			description: "removed approver cannot approve",
			run: func(t *testing.T, srv *signoff.Service, id string) (*model.Request, error) {
				_, err := srv.RemoveApprover(ctx, id, "10", "admin")
				require.NoError(t, err)
				return srv.Approve(ctx, id, "10", "")
			},
			expectErr: engine.ErrApproverRemoved,
		},
		{
			description: "reroute keeps level",
			run: func(t *testing.T, srv *signoff.Service, id string) (*model.Request, error) {
				return srv.Reroute(ctx, id, "12", "13", "admin")
			},
			expectLevel: 1,
			expect:      model.StatusPending,
		},
		{
			description: "request changes then resubmit",
			run: func(t *testing.T, srv *signoff.Service, id string) (*model.Request, error) {
				returned, err := srv.RequestChanges(ctx, id, "10", "fix", []string{"amount", " "})
				require.NoError(t, err)
				assert.Equal(t, []string{"amount"}, returned.RequestedChanges)
				return srv.Resubmit(ctx, id, "1", "fixed")
			},
			expectLevel: 1,
			expect:      model.StatusPending,
		},
		{
			description: "reject",
			run: func(t *testing.T, srv *signoff.Service, id string) (*model.Request, error) {
				return srv.Reject(ctx, id, "11", "no")
			},
			expectLevel: 1,
			expect:      model.StatusRejected,
		},
		{
			description: "unknown request",
			run: func(t *testing.T, srv *signoff.Service, id string) (*model.Request, error) {
				return srv.Approve(ctx, "missing", "10", "")
			},
			expectErr: dao.ErrNotFound,
		},
	}
	for i, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			srv, _ := newService(t)
			req, err := srv.Submit(ctx, expense(fmt.Sprintf("m%d", i), 1000))
			require.NoError(t, err)
			actual, err := testCase.run(t, srv, req.ID)
			if testCase.expectErr != nil {
				assert.True(t, errors.Is(err, testCase.expectErr), "%v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testCase.expect, actual.Status)
			assert.Equal(t, testCase.expectLevel, actual.CurrentLevel)
			stored, err := srv.Request(ctx, req.ID)
			require.NoError(t, err)
			assert.Equal(t, actual, stored)
			assert.NoError(t, stored.Validate())
		})
	}
}

func TestService_ConcurrentApprovals(t *testing.T) {
	ctx := context.Background()
	srv, _ := newService(t, signoff.WithRetryPolicy(&retry.Policy{MaxAttempts: 10, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2, Jitter: 0.5}))
	req, err := srv.Submit(ctx, &model.Submission{Subject: model.Subject{Type: "budget", ID: "q3"}, ActionType: "budget", CreatorID: "cfo"})
	require.NoError(t, err)
	require.Equal(t, model.StatusPending, req.Status)

	approvers := []string{"a1", "a2", "a3", "a4", "a5"}
	var wg sync.WaitGroup
	errs := make([]error, len(approvers))
	for i, approver := range approvers {
		wg.Add(1)
		go func(i int, approver string) {
			defer wg.Done()
			_, errs[i] = srv.Approve(ctx, req.ID, approver, "")
		}(i, approver)
	}
	wg.Wait()
	for _, err := range errs {
		assert.NoError(t, err)
	}

	final, err := srv.Request(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusApproved, final.Status)
	assert.EqualValues(t, approvers, final.ApprovedBy.Slice())
	assert.Equal(t, len(approvers)+1, final.Version)

	entries, err := srv.AuditLog(ctx, req.ID)
	require.NoError(t, err)
	assert.Len(t, entries, len(approvers)+1)
}

func TestService_MissingFlow(t *testing.T) {
	ctx := context.Background()
	memo := &model.Submission{Subject: model.Subject{Type: "memo", ID: "1"}, ActionType: "memo", CreatorID: "1"}
	leave := &model.Submission{Subject: model.Subject{Type: "leave", ID: "1"}, ActionType: "leave", CreatorID: "1"}

	srv, _ := newService(t)
	for _, submission := range []*model.Submission{memo, leave} {
		req, err := srv.Submit(ctx, submission)
		require.NoError(t, err)
		assert.Equal(t, model.StatusApproved, req.Status)
		entries, err := srv.AuditLog(ctx, req.ID)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "", entries[0].ActorID)
	}

	config := signoff.DefaultConfig()
	config.Engine.AutoApproveWithoutFlow = false
	strict, _ := newService(t, signoff.WithConfig(config))
	_, err := strict.Submit(ctx, leave)
	assert.True(t, errors.Is(err, engine.ErrFlowNotFound))
	_, err = strict.Submit(ctx, memo)
	assert.True(t, errors.Is(err, engine.ErrFlowNotFound))
}

type conflictingStore struct {
	request.Store
	attempts int
}

func (s *conflictingStore) InTransaction(ctx context.Context, fn func(ctx context.Context, tx request.Tx) error) error {
	s.attempts++
	if err := s.Store.InTransaction(ctx, fn); err != nil {
		return err
	}
	return fmt.Errorf("simulated: %w", dao.ErrConflict)
}

func TestService_ConflictRetry(t *testing.T) {
	ctx := context.Background()
	store := &conflictingStore{Store: memory.New()}
	core, logs := observer.New(zap.WarnLevel)
	srv, notifications := newService(t,
		signoff.WithStore(store),
		signoff.WithLogger(zap.New(core)),
		signoff.WithRetryPolicy(&retry.Policy{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 1}))

	_, err := srv.Submit(ctx, expense("conflict", 500))
	assert.True(t, errors.Is(err, dao.ErrConflict))
	assert.Equal(t, 3, store.attempts)
	assert.Equal(t, 2, logs.FilterMessage("retrying after version conflict").Len())
	assert.Empty(t, notifications.kinds())
}

func TestLoadConfig(t *testing.T) {
	ctx := context.Background()
	t.Setenv("SIGNOFF_TEST_DSN", "postgres://signoff@localhost/signoff")
	config, err := signoff.LoadConfig(ctx, "embed:///testdata/config.yaml", &embedFS)
	require.NoError(t, err)
	assert.False(t, config.Engine.AutoApproveWithoutFlow)
	assert.True(t, config.Engine.StrictVoting)
	assert.True(t, config.Notifications.UseQueue)
	assert.Equal(t, 2, config.Notifications.Queue.MaxRetries)
	assert.Equal(t, 10*time.Millisecond, config.Notifications.Queue.RetryDelay)
	assert.Equal(t, 8, config.Retry.MaxAttempts)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.Equal(t, signoff.DriverMemory, config.Store.Driver)
	assert.Equal(t, "postgres://signoff@localhost/signoff", config.Store.DSN)

	logger, err := signoff.NewLogger(config.Logging)
	require.NoError(t, err)
	srv, notifications := newService(t, signoff.WithConfig(config), signoff.WithLogger(logger))
	req, err := srv.Submit(ctx, expense("queued", 500))
	require.NoError(t, err)
	_, err = srv.Approve(ctx, req.ID, "12", "")
	require.NoError(t, err)
	_, err = srv.Approve(ctx, req.ID, "10", "")
	assert.True(t, errors.Is(err, engine.ErrNotEligible))

	closeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	require.NoError(t, srv.Close(closeCtx))
	assert.ElementsMatch(t, []model.EventKind{model.EventRequestSubmitted, model.EventApprovalAdvanced}, notifications.kinds())
	assert.Empty(t, srv.DeadLetters())
}

func TestConfig_Validate(t *testing.T) {
	type testCase struct {
		description string
		mutate      func(c *signoff.Config)
		expectErr   bool
	}
	var testCases = []testCase{
		{description: "default", mutate: func(c *signoff.Config) {}},
		{description: "postgres without dsn", mutate: func(c *signoff.Config) { c.Store.Driver = signoff.DriverPostgres }, expectErr: true},
		{description: "unknown driver", mutate: func(c *signoff.Config) { c.Store.Driver = "mysql" }, expectErr: true},
		{description: "no attempts", mutate: func(c *signoff.Config) { c.Retry.MaxAttempts = 0 }, expectErr: true},
		{description: "no channels", mutate: func(c *signoff.Config) { c.Notifications.Channels = nil }, expectErr: true},
		{description: "bad level", mutate: func(c *signoff.Config) { c.Logging.Level = "loud" }, expectErr: true},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			config := signoff.DefaultConfig()
			testCase.mutate(config)
			err := config.Validate()
			if testCase.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestNew_UnknownChannel(t *testing.T) {
	config := signoff.DefaultConfig()
	config.Notifications.Channels = []string{"sms"}
	_, err := signoff.New(signoff.WithConfig(config))
	assert.Error(t, err)
}

func TestService_New_DefaultStorage(t *testing.T) {
	srv, err := signoff.New()
	require.NoError(t, err)
	defer func() { _ = srv.Close(context.Background()) }()
	require.NotNil(t, srv.Flows())
	flows, err := srv.Flows().List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, flows)
}
