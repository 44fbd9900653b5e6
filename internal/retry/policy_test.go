package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPolicy_NextDelay(t *testing.T) {
	type testCase struct {
		description string
		policy      *Policy
		attempt     int
		min         time.Duration
		max         time.Duration
	}
	var testCases = []testCase{
		{description: "attempt 0", policy: &Policy{InitialDelay: time.Second, Multiplier: 2}, attempt: 0},
		{description: "first retry", policy: &Policy{InitialDelay: time.Second, Multiplier: 2}, attempt: 1, min: time.Second, max: time.Second},
		{description: "exponential", policy: &Policy{InitialDelay: time.Second, Multiplier: 2}, attempt: 3, min: 4 * time.Second, max: 4 * time.Second},
		{description: "capped", policy: &Policy{InitialDelay: time.Second, MaxDelay: 3 * time.Second, Multiplier: 2}, attempt: 5, min: 3 * time.Second, max: 3 * time.Second},
		{description: "jitter", policy: &Policy{InitialDelay: time.Second, Multiplier: 1, Jitter: 0.5}, attempt: 1, min: 500 * time.Millisecond, max: 1500 * time.Millisecond},
		{description: "zero multiplier", policy: &Policy{InitialDelay: time.Second}, attempt: 4, min: time.Second, max: time.Second},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			delay := testCase.policy.NextDelay(testCase.attempt)
			assert.GreaterOrEqual(t, delay, testCase.min)
			assert.LessOrEqual(t, delay, testCase.max)
		})
	}
}

func TestPolicy_Do(t *testing.T) {
	errConflict := errors.New("conflict")
	errFatal := errors.New("fatal")
	retryable := func(err error) bool { return errors.Is(err, errConflict) }
	policy := &Policy{MaxAttempts: 3, InitialDelay: time.Millisecond, Multiplier: 1}

	type testCase struct {
		description string
		failures    []error
		expectCalls int
		expectErr   error
	}
	var testCases = []testCase{
		{description: "success", expectCalls: 1},
		{description: "recovered", failures: []error{errConflict, errConflict}, expectCalls: 3},
		{description: "exhausted", failures: []error{errConflict, errConflict, errConflict, errConflict}, expectCalls: 3, expectErr: errConflict},
		{description: "not retryable", failures: []error{errFatal}, expectCalls: 1, expectErr: errFatal},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			calls := 0
			err := policy.Do(context.Background(), retryable, func(attempt int) error {
				calls++
				if attempt <= len(testCase.failures) {
					return testCase.failures[attempt-1]
				}
				return nil
			})
			assert.Equal(t, testCase.expectCalls, calls)
			assert.Equal(t, testCase.expectErr, err)
		})
	}
}

func TestPolicy_DoNil(t *testing.T) {
	var policy *Policy
	calls := 0
	err := policy.Do(context.Background(), func(error) bool { return true }, func(int) error {
		calls++
		return errors.New("boom")
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}
