// Package engine implements the approval state machine.
//
// Every operation takes a request snapshot and returns a Transition holding
// the next snapshot, the audit entries to append and the events to publish
// once both are committed. The input request is never modified, so a caller
// can retry any operation on a fresh snapshot after a storage conflict.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/viant/signoff/condition"
	"github.com/viant/signoff/internal/clock"
	"github.com/viant/signoff/internal/idgen"
	"github.com/viant/signoff/model"
	"github.com/viant/signoff/service/dao"
)

// FlowFinder resolves flows.
type FlowFinder interface {
	// FindActive returns nil, nil when no active flow matches.
	FindActive(ctx context.Context, actionType, tenant string) (*model.Flow, error)
	// Load returns an error wrapping dao.ErrNotFound for unknown ids.
	Load(ctx context.Context, id string) (*model.Flow, error)
}

// Transition is the outcome of an accepted operation.
type Transition struct {
	Request *model.Request
	Audit   []*model.AuditEntry
	Events  []*model.Event
	// Created is set when Request has to be inserted rather than updated.
	Created bool
}

// Engine computes approval transitions.
type Engine struct {
	flows        FlowFinder
	conditions   *condition.Registry
	missingFlow  MissingFlowPolicy
	strictVoting bool
}

// Option customises an Engine.
type Option func(e *Engine)

// WithConditions sets the condition evaluator registry.
func WithConditions(registry *condition.Registry) Option {
	return func(e *Engine) { e.conditions = registry }
}

// WithMissingFlowPolicy sets what Submit does without a governing flow.
func WithMissingFlowPolicy(policy MissingFlowPolicy) Option {
	return func(e *Engine) { e.missingFlow = policy }
}

// WithStrictVoting rejects decisions from actors not assigned to a named step.
func WithStrictVoting(strict bool) Option {
	return func(e *Engine) { e.strictVoting = strict }
}

// New creates an engine; conditions default to condition.New().
func New(flows FlowFinder, options ...Option) *Engine {
	ret := &Engine{flows: flows, missingFlow: AutoApprove}
	for _, opt := range options {
		opt(ret)
	}
	if ret.conditions == nil {
		ret.conditions = condition.New()
	}
	return ret
}

// currentStep returns the request flow and its step at the current level;
// both may be nil for requests whose flow is gone.
func (e *Engine) currentStep(ctx context.Context, request *model.Request) (*model.Flow, *model.Step, error) {
	if request.FlowID == "" {
		return nil, nil, nil
	}
	flow, err := e.flows.Load(ctx, request.FlowID)
	if err != nil {
		if errors.Is(err, dao.ErrNotFound) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to load flow %v: %w", request.FlowID, err)
	}
	if flow == nil {
		return nil, nil, nil
	}
	return flow, flow.Step(request.CurrentLevel), nil
}

// transition accumulates the effects of one operation.
type transition struct {
	next    *model.Request
	created bool
	now     time.Time
	audit   []*model.AuditEntry
	events  []*model.Event
}

func newTransition(request *model.Request, created bool) *transition {
	now := clock.Now()
	next := request.Clone()
	next.UpdatedAt = now
	return &transition{next: next, created: created, now: now}
}

func (t *transition) log(actor string, action model.Action, comment string) {
	t.audit = append(t.audit, &model.AuditEntry{
		ID:        idgen.New(),
		RequestID: t.next.ID,
		ActorID:   actor,
		Action:    action,
		Comment:   comment,
		CreatedAt: t.now,
	})
}

func (t *transition) emit(kind model.EventKind, actor string, recipients model.ActorSet) *model.Event {
	event := &model.Event{
		ID:         idgen.New(),
		Kind:       kind,
		Recipients: recipients,
		Actor:      actor,
		CreatedAt:  t.now,
	}
	t.events = append(t.events, event)
	return event
}

func (t *transition) timestamp() *time.Time {
	at := t.now
	return &at
}

func (t *transition) creator() model.ActorSet {
	return model.NewActorSet(t.next.CreatorID)
}

func (t *transition) result() (*Transition, error) {
	if err := t.next.Validate(); err != nil {
		return nil, fmt.Errorf("transition produced invalid request: %w", err)
	}
	for _, event := range t.events {
		event.Request = t.next.Clone()
	}
	return &Transition{Request: t.next, Audit: t.audit, Events: t.events, Created: t.created}, nil
}

func checkRequest(request *model.Request) error {
	if request == nil {
		return fmt.Errorf("%w: request was nil", ErrInvalidArgument)
	}
	return nil
}

func checkActor(kind, id string) error {
	if id == "" {
		return fmt.Errorf("%w: %v was empty", ErrInvalidArgument, kind)
	}
	return nil
}

func checkActionable(request *model.Request, operation string) error {
	if !request.Status.IsActionable() {
		return wrapState(request, operation)
	}
	return nil
}

func wrapState(request *model.Request, operation string) error {
	return fmt.Errorf("%w: cannot %v %v request %v", ErrInvalidState, operation, request.Status, request.ID)
}

// checkVoter rejects removed approvers and, under strict voting, actors not
// assigned to a named step.
func (e *Engine) checkVoter(request *model.Request, step *model.Step, actor string) error {
	if request.RemovedApprovers.Contains(actor) {
		return fmt.Errorf("%w: %v on request %v", ErrApproverRemoved, actor, request.ID)
	}
	if !e.strictVoting || step == nil || step.IsOpen() {
		return nil
	}
	if request.PendingApprovers.Contains(actor) || step.ApproverSet().Contains(actor) {
		return nil
	}
	return fmt.Errorf("%w: %v at level %d of request %v", ErrNotEligible, actor, request.CurrentLevel, request.ID)
}
