package flow

import (
	"context"
	"embed"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	_ "github.com/viant/afs/embed"
	"github.com/viant/signoff/model"
)

//go:embed testdata/*
var embedFs embed.FS

func TestLoader_Load(t *testing.T) {
	ctx := context.Background()
	loader := NewLoader(afs.New(), &embedFs)

	type testCase struct {
		description string
		URL         string
		expectIDs   []string
	}
	var testCases = []testCase{
		{description: "single file", URL: "embed:///testdata/expense.yaml", expectIDs: []string{"expense"}},
		{description: "list document", URL: "embed:///testdata/catalog.yml", expectIDs: []string{"all_strategy", "purchase_acme", "retired"}},
		{description: "folder", URL: "embed:///testdata", expectIDs: []string{"all_strategy", "expense", "purchase_acme", "retired"}},
	}
	for _, testCase := range testCases {
		t.Run(testCase.description, func(t *testing.T) {
			flows, err := loader.Load(ctx, testCase.URL)
			require.NoError(t, err)
			var ids []string
			for _, f := range flows {
				ids = append(ids, f.ID)
			}
			assert.ElementsMatch(t, testCase.expectIDs, ids)
		})
	}
}

func TestDecode(t *testing.T) {
	flows, err := Decode([]byte(`
flows:
  - id: all_strategy
    actionType: purchase
    steps:
      - level: 1
        approvers: ["10", "11"]
        strategy: ALL
      - level: 2
        approver: "20"
  - id: retired
    actionType: purchase
    active: false
---
id: leave
actionType: leave
condition:
  id: never
`))
	require.NoError(t, err)
	require.Len(t, flows, 3)

	all := flows[0]
	assert.True(t, all.Active)
	assert.Equal(t, "all_strategy", all.Name)
	assert.Equal(t, model.StrategyAll, all.Step(1).Strategy)
	assert.Equal(t, model.StrategyAny, all.Step(2).Strategy)
	assert.EqualValues(t, []string{"20"}, all.Step(2).ApproverSet().Slice())
	assert.False(t, flows[1].Active)
	assert.Equal(t, "never", flows[2].Condition.ID)
	assert.False(t, flows[2].HasSteps())
}

func TestDecode_Invalid(t *testing.T) {
	for _, text := range []string{
		"id: x\nactionType: a\nsteps:\n  - level: 1\n  - level: 1\n",
		"id: x\nactionType: a\nsteps:\n  - level: 1\n    strategy: majority\n",
		"flows:\n  - actionType: a\n",
		"id: [",
	} {
		_, err := Decode([]byte(text))
		assert.Error(t, err, text)
	}
}

func TestSelect(t *testing.T) {
	global := model.NewFlow("b_global", "purchase")
	acme := model.NewFlow("a_acme", "purchase").WithTenant("acme")
	other := model.NewFlow("c_other", "purchase").WithTenant("other")
	inactive := model.NewFlow("0_inactive", "purchase")
	inactive.Active = false
	candidates := []*model.Flow{other, inactive, acme, global}

	assert.Equal(t, "b_global", Select(candidates, "purchase", "").ID)
	assert.Equal(t, "a_acme", Select(candidates, "purchase", "acme").ID)
	assert.Nil(t, Select(candidates, "purchase", "unknown"))
	assert.Nil(t, Select(candidates, "leave", ""))
	assert.Equal(t, "a_acme", Select([]*model.Flow{other, acme}, "purchase", "").ID)
}
