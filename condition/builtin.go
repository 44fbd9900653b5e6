package condition

import (
	"context"
	"fmt"

	"github.com/viant/signoff/model"
	"github.com/viant/toolbox"
)

// Built-in evaluator identifiers.
const (
	AlwaysID    = "always"
	NeverID     = "never"
	ThresholdID = "threshold"
	ScriptID    = "script"
)

// Always requires approval for every submission.
func Always() Evaluator {
	return Func(func(context.Context, model.Subject, map[string]interface{}) (bool, error) { return true, nil })
}

// Never skips approval for every submission.
func Never() Evaluator {
	return Func(func(context.Context, model.Subject, map[string]interface{}) (bool, error) { return false, nil })
}

// Threshold requires approval when a numeric attribute reaches Min.
type Threshold struct {
	Attribute string
	Min       float64
	// RequireWhenMissing decides the outcome when the attribute is absent.
	RequireWhenMissing bool
}

// NewThreshold builds a Threshold from params: attribute (string), min
// (number) and optional requireWhenMissing (bool, default true).
func NewThreshold(params map[string]interface{}) (Evaluator, error) {
	attribute, _ := params["attribute"].(string)
	if attribute == "" {
		return nil, fmt.Errorf("threshold: attribute was empty")
	}
	min, err := toFloat(params["min"])
	if err != nil {
		return nil, fmt.Errorf("threshold: min: %w", err)
	}
	ret := &Threshold{Attribute: attribute, Min: min, RequireWhenMissing: true}
	if value, ok := params["requireWhenMissing"]; ok {
		flag, ok := value.(bool)
		if !ok {
			return nil, fmt.Errorf("threshold: requireWhenMissing: expected bool, but had %T", value)
		}
		ret.RequireWhenMissing = flag
	}
	return ret, nil
}

// RequiresApproval compares the attribute with Min.
func (t *Threshold) RequiresApproval(_ context.Context, _ model.Subject, attributes map[string]interface{}) (bool, error) {
	value, ok := attributes[t.Attribute]
	if !ok || value == nil {
		return t.RequireWhenMissing, nil
	}
	actual, err := toFloat(value)
	if err != nil {
		return false, fmt.Errorf("threshold: %v: %w", t.Attribute, err)
	}
	return actual >= t.Min, nil
}

func toFloat(value interface{}) (float64, error) {
	switch value.(type) {
	case nil:
		return 0, fmt.Errorf("value was nil")
	case bool:
		return 0, fmt.Errorf("expected number, but had bool")
	}
	ret, err := toolbox.ToFloat(value)
	if err != nil {
		return 0, fmt.Errorf("expected number, but had %T: %w", value, err)
	}
	return ret, nil
}
