package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestActorSet(t *testing.T) {
	type testCase struct {
		description string
		actual      ActorSet
		expected    []string
	}
	base := NewActorSet("11", "10", "12", "10", " ")
	var testCases = []testCase{
		{description: "normalised", actual: base, expected: []string{"10", "11", "12"}},
		{description: "with", actual: base.With("20", "11"), expected: []string{"10", "11", "12", "20"}},
		{description: "without", actual: base.Without("11"), expected: []string{"10", "12"}},
		{description: "minus", actual: base.Minus(NewActorSet("10", "12")), expected: []string{"11"}},
		{description: "union", actual: base.Union(NewActorSet("9")), expected: []string{"10", "11", "12", "9"}},
		{description: "intersect", actual: base.Intersect(NewActorSet("12", "30")), expected: []string{"12"}},
		{description: "empty", actual: NewActorSet(), expected: []string{}},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			assert.EqualValues(t, testCase.expected, testCase.actual.Slice())
		})
	}
	assert.EqualValues(t, []string{"10", "11", "12"}, base.Slice(), "receiver must stay unchanged")
	assert.True(t, base.Contains("11"))
	assert.False(t, base.Contains("20"))
}

func TestActorSet_JSON(t *testing.T) {
	var set ActorSet
	data, err := json.Marshal(set)
	assert.NoError(t, err)
	assert.Equal(t, "[]", string(data))

	assert.NoError(t, json.Unmarshal([]byte(`["b","a","b"]`), &set))
	assert.EqualValues(t, []string{"a", "b"}, set.Slice())
}
