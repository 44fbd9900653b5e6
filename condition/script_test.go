package condition

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/signoff/model"
)

func TestScript(t *testing.T) {
	type testCase struct {
		description string
		source      string
		subject     model.Subject
		attributes  map[string]interface{}
		expected    bool
		expectErr   bool
	}
	var testCases = []testCase{
		{
			description: "default result",
			source:      `x := 1`,
			expected:    true,
		},
		{
			description: "attribute rule",
			source:      `requires_approval = attributes.amount > 500`,
			attributes:  map[string]interface{}{"amount": 200},
			expected:    false,
		},
		{
			description: "subject rule",
			source: `text := import("text")
requires_approval = !text.has_prefix(subject_id, "draft-") && subject_type == "invoice"`,
			subject:  model.Subject{Type: "invoice", ID: "inv-7"},
			expected: true,
		},
		{
			description: "non bool result",
			source:      `requires_approval = "yes"`,
			expectErr:   true,
		},
		{
			description: "runtime error",
			source:      `requires_approval = attributes.amount.x > 1`,
			attributes:  map[string]interface{}{"amount": 1},
			expectErr:   true,
		},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			evaluator, err := NewScript(map[string]interface{}{"source": testCase.source})
			if !assert.NoError(t, err) {
				return
			}
			actual, err := evaluator.RequiresApproval(context.Background(), testCase.subject, testCase.attributes)
			if testCase.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, testCase.expected, actual)
		})
	}
}

func TestNewScript_Invalid(t *testing.T) {
	_, err := NewScript(nil)
	assert.Error(t, err)
	_, err = NewScript(map[string]interface{}{"source": `requires_approval = (`})
	assert.Error(t, err)
}
