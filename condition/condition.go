// Package condition resolves the predicate deciding whether a submission has
// to go through its flow at all.
//
// Evaluators are produced by factories registered under an identifier; the
// identifier and parameters are stored on the flow (model.ConditionRef).
package condition

import (
	"context"
	"errors"

	"github.com/viant/signoff/model"
)

var (
	// ErrUnknownEvaluator is returned when no factory is registered for an identifier.
	ErrUnknownEvaluator = errors.New("condition: unknown evaluator")
	// ErrInvalidFactory is returned when a registration does not satisfy the factory contract.
	ErrInvalidFactory = errors.New("condition: invalid factory")
)

// Evaluator decides whether approval is required for a subject.
type Evaluator interface {
	RequiresApproval(ctx context.Context, subject model.Subject, attributes map[string]interface{}) (bool, error)
}

// Func adapts a function to Evaluator.
type Func func(ctx context.Context, subject model.Subject, attributes map[string]interface{}) (bool, error)

// RequiresApproval calls f.
func (f Func) RequiresApproval(ctx context.Context, subject model.Subject, attributes map[string]interface{}) (bool, error) {
	return f(ctx, subject, attributes)
}

// Factory builds an evaluator from flow supplied parameters.
type Factory func(params map[string]interface{}) (Evaluator, error)

// Static returns a factory that ignores parameters and always yields evaluator.
func Static(evaluator Evaluator) Factory {
	return func(map[string]interface{}) (Evaluator, error) { return evaluator, nil }
}
