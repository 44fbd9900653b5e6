package engine

import "errors"

var (
	// ErrFlowNotFound is returned by Submit when no active flow governs a
	// submission and the FailOnMissingFlow policy is configured.
	ErrFlowNotFound = errors.New("engine: flow not found")

	// ErrInvalidConditionEvaluator is returned when the flow condition cannot
	// be resolved to an evaluator.
	ErrInvalidConditionEvaluator = errors.New("engine: invalid condition evaluator")

	// ErrInvalidState is returned when the request status forbids the action.
	ErrInvalidState = errors.New("engine: invalid state")

	// ErrNotPendingApprover is returned when a reroute source is not pending.
	ErrNotPendingApprover = errors.New("engine: not a pending approver")

	// ErrApproverRemoved is returned when a removed approver acts or is
	// assigned again.
	ErrApproverRemoved = errors.New("engine: approver removed")

	// ErrNotEligible is returned under strict voting when the actor is not
	// assigned to the current step.
	ErrNotEligible = errors.New("engine: actor not eligible")

	// ErrInvalidArgument is returned for blank identifiers or a nil request.
	ErrInvalidArgument = errors.New("engine: invalid argument")
)
