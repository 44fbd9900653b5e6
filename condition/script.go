package condition

import (
	"context"
	"fmt"

	"github.com/d5/tengo/v2"
	"github.com/d5/tengo/v2/stdlib"
	"github.com/viant/signoff/model"
)

// Result variable a script assigns; it starts as true.
const scriptResult = "requires_approval"

// Script evaluates a tengo script. The script sees subject_type, subject_id
// and attributes, and decides by assigning requires_approval.
type Script struct {
	compiled *tengo.Compiled
}

// NewScript compiles params["source"]; compile errors surface at
// resolution time rather than on first use.
func NewScript(params map[string]interface{}) (Evaluator, error) {
	source, _ := params["source"].(string)
	if source == "" {
		return nil, fmt.Errorf("script: source was empty")
	}
	script := tengo.NewScript([]byte(source))
	script.SetImports(stdlib.GetModuleMap("math", "text", "times"))
	for name, value := range map[string]interface{}{
		"subject_type": "",
		"subject_id":   "",
		"attributes":   map[string]interface{}{},
		scriptResult:   true,
	} {
		if err := script.Add(name, value); err != nil {
			return nil, fmt.Errorf("script: %w", err)
		}
	}
	compiled, err := script.Compile()
	if err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}
	return &Script{compiled: compiled}, nil
}

// RequiresApproval runs a clone of the compiled script.
func (s *Script) RequiresApproval(ctx context.Context, subject model.Subject, attributes map[string]interface{}) (bool, error) {
	compiled := s.compiled.Clone()
	if attributes == nil {
		attributes = map[string]interface{}{}
	}
	for name, value := range map[string]interface{}{
		"subject_type": subject.Type,
		"subject_id":   subject.ID,
		"attributes":   attributes,
	} {
		if err := compiled.Set(name, value); err != nil {
			return false, fmt.Errorf("script: %v: %w", name, err)
		}
	}
	if err := compiled.RunContext(ctx); err != nil {
		return false, fmt.Errorf("script: %w", err)
	}
	result := compiled.Get(scriptResult)
	if result.ValueType() != "bool" {
		return false, fmt.Errorf("script: %v: expected bool, but had %v", scriptResult, result.ValueType())
	}
	return result.Bool(), nil
}
