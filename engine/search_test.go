package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/signoff/model"
)

func TestNextLevel(t *testing.T) {
	flow := model.NewFlow("chain", "chain")
	flow.NewStep(1, "10", "11")
	flow.NewStep(3).WithApprover("30")
	flow.NewStep(4)
	flow.NewStep(6, "60", "61")

	type testCase struct {
		description string
		flow        *model.Flow
		level       int
		removed     model.ActorSet
		expectLevel int
		expectSet   []string
	}
	var testCases = []testCase{
		{description: "next existing level", flow: flow, level: 1, expectLevel: 3, expectSet: []string{"30"}},
		{description: "removed legacy approver skipped to open step", flow: flow, level: 1, removed: model.NewActorSet("30"), expectLevel: 4, expectSet: []string{}},
		{description: "open step always valid", flow: flow, level: 3, removed: model.NewActorSet("60", "61"), expectLevel: 4, expectSet: []string{}},
		{description: "partially removed set filtered", flow: flow, level: 4, removed: model.NewActorSet("60"), expectLevel: 6, expectSet: []string{"61"}},
		{description: "all remaining removed", flow: flow, level: 4, removed: model.NewActorSet("60", "61")},
		{description: "last level", flow: flow, level: 6},
		{description: "nil flow", level: 1},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			actual, approvers := nextLevel(testCase.flow, testCase.level, testCase.removed)
			if testCase.expectLevel == 0 {
				assert.Nil(t, actual)
				return
			}
			if assert.NotNil(t, actual) {
				assert.Equal(t, testCase.expectLevel, actual.Level)
				assert.EqualValues(t, testCase.expectSet, approvers.Slice())
			}
		})
	}
}
