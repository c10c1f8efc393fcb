package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grabby-orchestrator/internal/eventbus"
)

func TestConditionEvaluateNumericAndString(t *testing.T) {
	ctx := Context{"duration": 120.0, "url": "https://twitch.tv/someone"}

	assert.True(t, Condition{Type: Duration, Operator: LessThan, Value: 300.0}.Evaluate(ctx))
	assert.False(t, Condition{Type: Duration, Operator: GreaterThan, Value: 300.0}.Evaluate(ctx))
	assert.True(t, Condition{Type: Domain, Operator: Equals, Value: "twitch.tv"}.Evaluate(ctx))
}

func TestRuleMatchesAndOr(t *testing.T) {
	ctx := Context{"duration": 500.0, "file_size": 10.0}

	andRule := Rule{Enabled: true, ConditionLogic: LogicAnd, Conditions: []Condition{
		{Type: Duration, Operator: GreaterThan, Value: 100.0},
		{Type: FileSize, Operator: LessThan, Value: 5.0},
	}}
	assert.False(t, andRule.Matches(ctx), "AND requires every condition to match")

	orRule := Rule{Enabled: true, ConditionLogic: LogicOr, Conditions: andRule.Conditions}
	assert.True(t, orRule.Matches(ctx), "OR requires only one condition to match")
}

func TestDisabledRuleNeverMatches(t *testing.T) {
	r := Rule{Enabled: false, ConditionLogic: LogicAnd, Conditions: []Condition{
		{Type: Duration, Operator: GreaterThan, Value: 0.0},
	}}
	assert.False(t, r.Matches(Context{"duration": 999.0}))
}

func TestEvaluateRunsAllMatchingRulesNoShortCircuit(t *testing.T) {
	bus := eventbus.New()
	e := New(bus)

	var fired []string
	bus.SubscribeAll(func(ev eventbus.Event) error {
		fired = append(fired, string(ev.Type))
		return nil
	})

	require.NoError(t, e.AddRule(Rule{
		ID: "low", Priority: 1, Enabled: true, ConditionLogic: LogicAnd,
		Conditions: []Condition{{Type: Duration, Operator: GreaterThan, Value: 0.0}},
		Actions:    []Action{{Type: Notify}},
	}))
	require.NoError(t, e.AddRule(Rule{
		ID: "high", Priority: 10, Enabled: true, ConditionLogic: LogicAnd,
		Conditions: []Condition{{Type: Duration, Operator: GreaterThan, Value: 0.0}},
		Actions:    []Action{{Type: SetPriority}},
	}))

	matched := e.Evaluate(TriggerQueueItemAdded, Context{"duration": 42.0})
	assert.Equal(t, 2, matched)

	stats := e.Stats()
	assert.Equal(t, 2, stats.Evaluations)
	assert.Equal(t, 2, stats.ActionsRun)
}

func TestAddRuleRejectsDuplicateID(t *testing.T) {
	e := New(nil)
	require.NoError(t, e.AddRule(Rule{ID: "r1"}))
	err := e.AddRule(Rule{ID: "r1"})
	assert.Error(t, err)
}

func TestListRulesOrderedByPriorityDescending(t *testing.T) {
	e := New(nil)
	require.NoError(t, e.AddRule(Rule{ID: "low", Priority: 1}))
	require.NoError(t, e.AddRule(Rule{ID: "high", Priority: 100}))

	rules := e.ListRules()
	require.Len(t, rules, 2)
	assert.Equal(t, "high", rules[0].ID)
}

func TestDefaultRulesAreWellFormed(t *testing.T) {
	for _, r := range DefaultRules() {
		assert.NotEmpty(t, r.ID)
		assert.NotEmpty(t, r.Conditions)
		assert.NotEmpty(t, r.Actions)
	}
}
