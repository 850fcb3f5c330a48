package rules_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketrouter/internal/common/errors"
	"ticketrouter/internal/routing"
	"ticketrouter/internal/rules"
	"ticketrouter/internal/testutil"
)

func newManager(t *testing.T) (*rules.Manager, *testutil.MockStorage) {
	t.Helper()
	store := testutil.NewMockStorage()
	return rules.NewManager(store, nil), store
}

func TestCreateCustomRule(t *testing.T) {
	manager, _ := newManager(t)

	conditions := []routing.RoutingCondition{
		{Field: routing.FieldCategory, Operator: routing.OperatorEquals, Value: "billing"},
	}
	action := routing.RoutingAction{Type: routing.ActionAssignTeam, TargetID: "team-accounting"}

	rule, err := manager.CreateCustomRule(context.Background(), "billing rule", conditions, action, 70)
	require.NoError(t, err)

	assert.NotEmpty(t, rule.ID)
	assert.True(t, rule.IsActive)
	assert.Equal(t, 70, rule.Priority)
	assert.False(t, rule.CreatedAt.IsZero())
	assert.Equal(t, rule.CreatedAt, rule.UpdatedAt)

	stored, err := manager.GetRule(context.Background(), rule.ID)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, "billing rule", stored.Name)
}

func TestCreateCustomRuleNegativePriorityGetsDefault(t *testing.T) {
	manager, _ := newManager(t)

	rule, err := manager.CreateCustomRule(context.Background(), "r", nil,
		routing.RoutingAction{Type: routing.ActionAutoAssign}, -1)
	require.NoError(t, err)
	assert.Equal(t, rules.DefaultPriority, rule.Priority)
}

func TestCreateCustomRuleZeroPriorityIsKept(t *testing.T) {
	manager, _ := newManager(t)

	rule, err := manager.CreateCustomRule(context.Background(), "r", nil,
		routing.RoutingAction{Type: routing.ActionAutoAssign}, 0)
	require.NoError(t, err)
	assert.Equal(t, 0, rule.Priority)
}

func TestCreateRuleFromTemplate(t *testing.T) {
	manager, _ := newManager(t)

	rule, err := manager.CreateRuleFromTemplate(context.Background(), "billing-to-accounting", nil)
	require.NoError(t, err)
	require.NotNil(t, rule)

	assert.Equal(t, 70, rule.Priority)
	assert.Equal(t, "team-accounting", rule.Action.TargetID)
	assert.NotEmpty(t, rule.Conditions)
}

func TestCreateRuleFromTemplateWithOverrides(t *testing.T) {
	manager, _ := newManager(t)

	name := "custom name"
	priority := 95
	rule, err := manager.CreateRuleFromTemplate(context.Background(), "high-priority-escalation",
		&rules.RuleUpdate{Name: &name, Priority: &priority})
	require.NoError(t, err)
	require.NotNil(t, rule)

	assert.Equal(t, "custom name", rule.Name)
	assert.Equal(t, 95, rule.Priority)
}

func TestCreateRuleFromUnknownTemplate(t *testing.T) {
	manager, _ := newManager(t)

	rule, err := manager.CreateRuleFromTemplate(context.Background(), "does-not-exist", nil)
	require.NoError(t, err)
	assert.Nil(t, rule)
}

func TestUpdateRulePartial(t *testing.T) {
	manager, _ := newManager(t)

	created, err := manager.CreateCustomRule(context.Background(), "original", nil,
		routing.RoutingAction{Type: routing.ActionAutoAssign}, 50)
	require.NoError(t, err)

	inactive := false
	updated, err := manager.UpdateRule(context.Background(), created.ID, &rules.RuleUpdate{IsActive: &inactive})
	require.NoError(t, err)
	require.NotNil(t, updated)

	assert.Equal(t, "original", updated.Name, "unset fields stay untouched")
	assert.False(t, updated.IsActive)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt) || updated.UpdatedAt.Equal(updated.CreatedAt))
}

func TestUpdateRuleAbsent(t *testing.T) {
	manager, _ := newManager(t)

	updated, err := manager.UpdateRule(context.Background(), "rule-ghost", &rules.RuleUpdate{})
	require.NoError(t, err)
	assert.Nil(t, updated)
}

func TestDeleteRule(t *testing.T) {
	manager, _ := newManager(t)

	created, err := manager.CreateCustomRule(context.Background(), "doomed", nil,
		routing.RoutingAction{Type: routing.ActionAutoAssign}, 50)
	require.NoError(t, err)

	removed, err := manager.DeleteRule(context.Background(), created.ID)
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = manager.DeleteRule(context.Background(), created.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestActiveRulesFiltersInactive(t *testing.T) {
	manager, _ := newManager(t)

	active, err := manager.CreateCustomRule(context.Background(), "active", nil,
		routing.RoutingAction{Type: routing.ActionAutoAssign}, 50)
	require.NoError(t, err)

	other, err := manager.CreateCustomRule(context.Background(), "inactive", nil,
		routing.RoutingAction{Type: routing.ActionAutoAssign}, 60)
	require.NoError(t, err)
	off := false
	_, err = manager.UpdateRule(context.Background(), other.ID, &rules.RuleUpdate{IsActive: &off})
	require.NoError(t, err)

	list, err := manager.ActiveRules(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, active.ID, list[0].ID)
}

func TestEnsureDefaultRules(t *testing.T) {
	manager, _ := newManager(t)

	require.NoError(t, manager.EnsureDefaultRules(context.Background()))

	list, err := manager.GetAllRules(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, list, 3)

	assert.Equal(t, 100, list[0].Priority, "critical escalation ranks first")
	catchAll := list[len(list)-1]
	assert.Empty(t, catchAll.Conditions)
	assert.Equal(t, routing.ActionAutoAssign, catchAll.Action.Type)

	// A second call on a populated store must not duplicate anything.
	require.NoError(t, manager.EnsureDefaultRules(context.Background()))
	list, err = manager.GetAllRules(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}

func TestEnsureDefaultRulesSkipsNonEmptyStore(t *testing.T) {
	manager, _ := newManager(t)

	_, err := manager.CreateCustomRule(context.Background(), "existing", nil,
		routing.RoutingAction{Type: routing.ActionAutoAssign}, 10)
	require.NoError(t, err)

	require.NoError(t, manager.EnsureDefaultRules(context.Background()))

	list, err := manager.GetAllRules(context.Background(), false)
	require.NoError(t, err)
	assert.Len(t, list, 1, "defaults are only installed on an empty store")
}

func TestManagerPropagatesStorageErrors(t *testing.T) {
	manager, store := newManager(t)
	store.ErrorOnMethod["ListRules"] = errors.ConnectionError("db down", nil)

	_, err := manager.ActiveRules(context.Background())
	assert.Error(t, err)

	_, err = manager.GetAllRules(context.Background(), false)
	assert.Error(t, err)
}
