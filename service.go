package signoff

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/viant/afs"
	"github.com/viant/afs/storage"
	"github.com/viant/signoff/condition"
	"github.com/viant/signoff/engine"
	"github.com/viant/signoff/internal/retry"
	"github.com/viant/signoff/model"
	"github.com/viant/signoff/service/dao"
	"github.com/viant/signoff/service/event"
	"github.com/viant/signoff/service/flow"
	fmemory "github.com/viant/signoff/service/flow/memory"
	"github.com/viant/signoff/service/request"
	rmemory "github.com/viant/signoff/service/request/memory"
	"github.com/viant/signoff/service/request/pg"
	"github.com/viant/signoff/tracing"
	"go.uber.org/zap"
)

// Callback runs once after an approval is committed. Its error is logged
// and never returned to the caller.
type Callback func(ctx context.Context, request *model.Request) error

// Service runs engine transitions inside store transactions.
type Service struct {
	config            *Config
	logger            *zap.Logger
	store             request.Store
	flows             flow.Repository
	conditions        *condition.Registry
	engine            *engine.Engine
	sink              event.Sink
	dispatcher        *event.Dispatcher
	dispatcherOptions []event.Option
	retry             *retry.Policy
	fs                afs.Service
	fsOptions         []storage.Option
	pool              *pgxpool.Pool
	tracingErr        error
}

// New creates a service. Without WithStore and WithFlowRepository the
// configured store driver decides where requests and flows live.
func New(options ...Option) (*Service, error) {
	ret := &Service{}
	for _, opt := range options {
		opt(ret)
	}
	if err := ret.init(); err != nil {
		ret.closePool()
		return nil, err
	}
	return ret, nil
}

func (s *Service) init() error {
	if s.config == nil {
		s.config = DefaultConfig()
	}
	if err := s.config.Validate(); err != nil {
		return err
	}
	if s.tracingErr != nil {
		return fmt.Errorf("failed to init tracing: %w", s.tracingErr)
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if err := tracing.Init(s.config.Tracing); err != nil {
		return fmt.Errorf("failed to init tracing: %w", err)
	}
	if s.retry == nil {
		policy := s.config.Retry
		s.retry = &policy
	}
	if s.fs == nil {
		s.fs = afs.New()
	}
	if err := s.initStorage(); err != nil {
		return err
	}
	if s.conditions == nil {
		s.conditions = condition.New()
	}
	policy := engine.AutoApprove
	if !s.config.Engine.AutoApproveWithoutFlow {
		policy = engine.FailOnMissingFlow
	}
	s.engine = engine.New(s.flows,
		engine.WithConditions(s.conditions),
		engine.WithMissingFlowPolicy(policy),
		engine.WithStrictVoting(s.config.Engine.StrictVoting))
	if s.sink == nil {
		options := append([]event.Option{event.WithLogger(s.logger)}, s.dispatcherOptions...)
		dispatcher, err := event.NewDispatcher(s.config.Notifications, options...)
		if err != nil {
			return err
		}
		dispatcher.Start()
		s.dispatcher = dispatcher
		s.sink = dispatcher
	}
	return nil
}

func (s *Service) initStorage() error {
	if s.config.Store.Driver != DriverPostgres || (s.store != nil && s.flows != nil) {
		if s.store == nil {
			s.store = rmemory.New()
		}
		if s.flows == nil {
			flows, err := fmemory.New()
			if err != nil {
				return err
			}
			s.flows = flows
		}
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	pool, err := pg.Connect(ctx, s.config.Store.DSN)
	if err != nil {
		return err
	}
	s.pool = pool
	if s.config.Store.EnsureSchema {
		if err = pg.EnsureSchema(ctx, pool); err != nil {
			return err
		}
	}
	if s.store == nil {
		s.store = pg.NewStore(pool)
	}
	if s.flows == nil {
		s.flows = pg.NewFlowRepository(pool)
	}
	return nil
}

// Flows returns the flow repository.
func (s *Service) Flows() flow.Repository {
	return s.flows
}

// Conditions returns the condition evaluator registry.
func (s *Service) Conditions() *condition.Registry {
	return s.conditions
}

// LoadFlows decodes YAML flow definitions at URL and saves them.
func (s *Service) LoadFlows(ctx context.Context, URL string) error {
	ctx, span := tracing.Start(ctx, "signoff.LoadFlows", map[string]string{"flow.url": URL})
	err := s.loadFlows(ctx, URL)
	span.End(err)
	return err
}

func (s *Service) loadFlows(ctx context.Context, URL string) error {
	flows, err := flow.NewLoader(s.fs, s.fsOptions...).Load(ctx, URL)
	if err != nil {
		return err
	}
	for _, f := range flows {
		if f.Condition != nil && !s.conditions.Has(f.Condition.ID) {
			return fmt.Errorf("flow %v: %w: %q", f.ID, engine.ErrInvalidConditionEvaluator, f.Condition.ID)
		}
		if err = s.flows.Save(ctx, f); err != nil {
			return fmt.Errorf("failed to save flow %v: %w", f.ID, err)
		}
	}
	s.logger.Info("flows loaded", zap.String("url", URL), zap.Int("count", len(flows)))
	return nil
}

// Submit creates an approval request for submission.
func (s *Service) Submit(ctx context.Context, submission *model.Submission) (*model.Request, error) {
	return s.mutate(ctx, "Submit", "", func(ctx context.Context, _ *model.Request) (*engine.Transition, error) {
		return s.engine.Submit(ctx, submission)
	})
}

// Approve records actor's approval; callbacks run once after commit.
func (s *Service) Approve(ctx context.Context, requestID, actor, comment string, callbacks ...Callback) (*model.Request, error) {
	ret, err := s.mutate(ctx, "Approve", requestID, func(ctx context.Context, current *model.Request) (*engine.Transition, error) {
		return s.engine.Approve(ctx, current, actor, comment)
	})
	if err != nil {
		return nil, err
	}
	for _, callback := range callbacks {
		if callback == nil {
			continue
		}
		if cbErr := callback(ctx, ret.Clone()); cbErr != nil {
			s.logger.Warn("approval callback failed", zap.String("request", ret.ID), zap.Error(cbErr))
		}
	}
	return ret, nil
}

// Reject terminates the request.
func (s *Service) Reject(ctx context.Context, requestID, actor, comment string) (*model.Request, error) {
	return s.mutate(ctx, "Reject", requestID, func(ctx context.Context, current *model.Request) (*engine.Transition, error) {
		return s.engine.Reject(ctx, current, actor, comment)
	})
}

// RequestChanges returns the request to its creator.
func (s *Service) RequestChanges(ctx context.Context, requestID, actor, comment string, fields []string) (*model.Request, error) {
	return s.mutate(ctx, "RequestChanges", requestID, func(ctx context.Context, current *model.Request) (*engine.Transition, error) {
		return s.engine.RequestChanges(ctx, current, actor, comment, fields)
	})
}

// Resubmit moves a returned request back to its pending approvers.
func (s *Service) Resubmit(ctx context.Context, requestID, actor, comment string) (*model.Request, error) {
	return s.mutate(ctx, "Resubmit", requestID, func(ctx context.Context, current *model.Request) (*engine.Transition, error) {
		return s.engine.Resubmit(ctx, current, actor, comment)
	})
}

// RemoveApprover excludes removed from the request for good.
func (s *Service) RemoveApprover(ctx context.Context, requestID, removed, admin string) (*model.Request, error) {
	return s.mutate(ctx, "RemoveApprover", requestID, func(ctx context.Context, current *model.Request) (*engine.Transition, error) {
		return s.engine.RemoveApprover(ctx, current, removed, admin)
	})
}

// Reroute hands from's pending vote over to to.
func (s *Service) Reroute(ctx context.Context, requestID, from, to, admin string) (*model.Request, error) {
	return s.mutate(ctx, "Reroute", requestID, func(ctx context.Context, current *model.Request) (*engine.Transition, error) {
		return s.engine.Reroute(ctx, current, from, to, admin)
	})
}

// Request returns the committed request.
func (s *Service) Request(ctx context.Context, id string) (*model.Request, error) {
	return s.store.Load(ctx, id)
}

// AuditLog returns the request audit entries, oldest first.
func (s *Service) AuditLog(ctx context.Context, requestID string) ([]*model.AuditEntry, error) {
	return s.store.AuditLog(ctx, requestID)
}

// ListPending returns actionable requests waiting on actor.
func (s *Service) ListPending(ctx context.Context, actor string) ([]*model.Request, error) {
	return s.store.List(ctx,
		dao.NewParameter(request.ParamPending, actor),
		dao.NewParameter(request.ParamStatus, string(model.StatusPending), string(model.StatusReturned)))
}

// SubjectStatus returns the status of the latest request for subject, or
// an empty status when the subject was never submitted.
func (s *Service) SubjectStatus(ctx context.Context, subject model.Subject) (model.Status, error) {
	requests, err := s.store.List(ctx,
		dao.NewParameter(request.ParamSubjectType, subject.Type),
		dao.NewParameter(request.ParamSubjectID, subject.ID))
	if err != nil || len(requests) == 0 {
		return "", err
	}
	return requests[len(requests)-1].Status, nil
}

// IsPendingApproval reports whether the latest subject request is pending.
func (s *Service) IsPendingApproval(ctx context.Context, subject model.Subject) (bool, error) {
	return s.subjectIs(ctx, subject, model.StatusPending)
}

// IsApproved reports whether the latest subject request is approved.
func (s *Service) IsApproved(ctx context.Context, subject model.Subject) (bool, error) {
	return s.subjectIs(ctx, subject, model.StatusApproved)
}

// IsRejected reports whether the latest subject request is rejected.
func (s *Service) IsRejected(ctx context.Context, subject model.Subject) (bool, error) {
	return s.subjectIs(ctx, subject, model.StatusRejected)
}

func (s *Service) subjectIs(ctx context.Context, subject model.Subject, status model.Status) (bool, error) {
	actual, err := s.SubjectStatus(ctx, subject)
	return actual == status, err
}

// DeadLetters returns queued notifications that exhausted their retries.
func (s *Service) DeadLetters() []*event.Event[model.Event] {
	if s.dispatcher == nil {
		return nil
	}
	letters := s.dispatcher.DeadLetters()
	ret := make([]*event.Event[model.Event], 0, len(letters))
	for _, letter := range letters {
		payload := letter.Payload
		ret = append(ret, &payload)
	}
	return ret
}

// Close drains queued notifications, bounded by ctx, and releases the
// database pool the service opened.
func (s *Service) Close(ctx context.Context) error {
	var err error
	if s.dispatcher != nil {
		err = s.dispatcher.Close(ctx)
	}
	s.closePool()
	return err
}

func (s *Service) closePool() {
	if s.pool != nil {
		s.pool.Close()
		s.pool = nil
	}
}

type operation func(ctx context.Context, current *model.Request) (*engine.Transition, error)

// mutate loads the request, computes the transition and commits it with
// its audit entries, retrying version conflicts on a fresh snapshot. Events
// are published only after a successful commit.
func (s *Service) mutate(ctx context.Context, name, requestID string, op operation) (*model.Request, error) {
	ctx, span := tracing.Start(ctx, "signoff."+name, map[string]string{"request.id": requestID})
	var result *engine.Transition
	err := s.retry.Do(ctx, isConflict, func(attempt int) error {
		if attempt > 1 {
			s.logger.Warn("retrying after version conflict",
				zap.String("operation", name),
				zap.String("request", requestID),
				zap.Int("attempt", attempt))
		}
		return s.store.InTransaction(ctx, func(ctx context.Context, tx request.Tx) error {
			var current *model.Request
			if requestID != "" {
				var err error
				if current, err = tx.Load(ctx, requestID); err != nil {
					return err
				}
			}
			transition, err := op(ctx, current)
			if err != nil {
				return err
			}
			if transition.Created {
				err = tx.Create(ctx, transition.Request)
			} else {
				err = tx.Update(ctx, transition.Request)
			}
			if err != nil {
				return err
			}
			if err = tx.Append(ctx, transition.Audit...); err != nil {
				return err
			}
			result = transition
			return nil
		})
	})
	if err == nil {
		span.Set(map[string]string{
			"request.id":     result.Request.ID,
			"request.status": string(result.Request.Status),
			"flow.id":        result.Request.FlowID,
		}).SetInt("request.level", result.Request.CurrentLevel)
	}
	span.End(err)
	if err != nil {
		return nil, err
	}
	s.logger.Info("approval transition",
		zap.String("operation", name),
		zap.String("request", result.Request.ID),
		zap.String("status", string(result.Request.Status)),
		zap.Int("level", result.Request.CurrentLevel),
		zap.Int("version", result.Request.Version))
	s.publish(ctx, result)
	return result.Request, nil
}

func (s *Service) publish(ctx context.Context, transition *engine.Transition) {
	if len(transition.Events) == 0 {
		return
	}
	for _, e := range transition.Events {
		if e.Request != nil {
			e.Request.Version = transition.Request.Version
		}
	}
	if err := s.sink.Publish(ctx, transition.Events...); err != nil {
		s.logger.Warn("failed to publish events", zap.String("request", transition.Request.ID), zap.Error(err))
	}
}

func isConflict(err error) bool {
	return errors.Is(err, dao.ErrConflict)
}
