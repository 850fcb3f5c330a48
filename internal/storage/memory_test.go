package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketrouter/internal/assignment"
	"ticketrouter/internal/common/errors"
	"ticketrouter/internal/routing"
)

func sampleRule(id string, priority int, createdAt time.Time) *routing.RoutingRule {
	return &routing.RoutingRule{
		ID:       id,
		Name:     "rule " + id,
		Priority: priority,
		IsActive: true,
		Conditions: []routing.RoutingCondition{
			{Field: routing.FieldCategory, Operator: routing.OperatorEquals, Value: "billing"},
		},
		Action:    routing.RoutingAction{Type: routing.ActionAssignTeam, TargetID: "team-x"},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestMemoryStorageRuleLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()
	now := time.Now().UTC()

	require.NoError(t, store.CreateRule(ctx, sampleRule("r1", 50, now)))

	err := store.CreateRule(ctx, sampleRule("r1", 50, now))
	assert.True(t, errors.IsType(err, errors.ErrTypeValidation), "duplicate ID is rejected")

	rule, err := store.GetRule(ctx, "r1")
	require.NoError(t, err)
	require.NotNil(t, rule)

	rule.Name = "renamed"
	require.NoError(t, store.UpdateRule(ctx, rule))

	fetched, err := store.GetRule(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", fetched.Name)

	removed, err := store.DeleteRule(ctx, "r1")
	require.NoError(t, err)
	assert.True(t, removed)

	gone, err := store.GetRule(ctx, "r1")
	require.NoError(t, err)
	assert.Nil(t, gone, "absent rule reads as (nil, nil)")

	removed, err = store.DeleteRule(ctx, "r1")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestMemoryStorageUpdateAbsentRule(t *testing.T) {
	store := NewMemoryStorage()
	err := store.UpdateRule(context.Background(), sampleRule("ghost", 50, time.Now()))
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound))
}

func TestMemoryStorageListRulesOrdering(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()
	base := time.Now().UTC()

	require.NoError(t, store.CreateRule(ctx, sampleRule("low", 10, base)))
	require.NoError(t, store.CreateRule(ctx, sampleRule("high", 90, base)))
	older := sampleRule("mid-old", 50, base.Add(-time.Hour))
	newer := sampleRule("mid-new", 50, base)
	require.NoError(t, store.CreateRule(ctx, newer))
	require.NoError(t, store.CreateRule(ctx, older))

	list, err := store.ListRules(ctx, false)
	require.NoError(t, err)
	require.Len(t, list, 4)

	assert.Equal(t, "high", list[0].ID)
	assert.Equal(t, "mid-old", list[1].ID, "equal priorities order by creation time")
	assert.Equal(t, "mid-new", list[2].ID)
	assert.Equal(t, "low", list[3].ID)
}

func TestMemoryStorageListRulesActiveOnly(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()
	now := time.Now().UTC()

	require.NoError(t, store.CreateRule(ctx, sampleRule("on", 50, now)))
	off := sampleRule("off", 60, now)
	off.IsActive = false
	require.NoError(t, store.CreateRule(ctx, off))

	list, err := store.ListRules(ctx, true)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "on", list[0].ID)
}

func TestMemoryStorageFeedback(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()
	now := time.Now().UTC()

	err := store.AppendFeedback(ctx, routing.RoutingFeedback{RuleID: "ghost", TicketID: "t1"})
	assert.True(t, errors.IsType(err, errors.ErrTypeNotFound), "feedback requires an existing rule")

	require.NoError(t, store.CreateRule(ctx, sampleRule("r1", 50, now)))
	require.NoError(t, store.AppendFeedback(ctx, routing.RoutingFeedback{
		RuleID: "r1", TicketID: "t1", WasCorrect: true, Score: 1, CreatedAt: now,
	}))
	require.NoError(t, store.AppendFeedback(ctx, routing.RoutingFeedback{
		RuleID: "r1", TicketID: "t2", WasCorrect: false, CreatedAt: now,
	}))

	history, err := store.ListFeedback(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, history, 2)

	rule, err := store.GetRule(ctx, "r1")
	require.NoError(t, err)
	assert.Len(t, rule.Feedback, 2, "reads attach the feedback history")
}

func TestMemoryStorageRuleIsolation(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()
	now := time.Now().UTC()

	require.NoError(t, store.CreateRule(ctx, sampleRule("r1", 50, now)))

	rule, err := store.GetRule(ctx, "r1")
	require.NoError(t, err)
	rule.Name = "mutated by caller"
	rule.Conditions[0].Value = "hacked"

	fresh, err := store.GetRule(ctx, "r1")
	require.NoError(t, err)
	assert.Equal(t, "rule r1", fresh.Name, "stored rule is isolated from caller mutation")
	assert.Equal(t, "billing", fresh.Conditions[0].Value)
}

func TestMemoryStorageTeamMembers(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStorage()

	require.NoError(t, store.UpsertTeamMember(ctx, "team-a",
		assignment.TeamMember{UserID: "u-b", Active: true},
		assignment.TeamMemberMetrics{ActiveTickets: 2, Availability: assignment.AvailabilityAvailable},
	))
	require.NoError(t, store.UpsertTeamMember(ctx, "team-a",
		assignment.TeamMember{UserID: "u-a", Active: true},
		assignment.TeamMemberMetrics{ActiveTickets: 5, Availability: assignment.AvailabilityBusy},
	))
	require.NoError(t, store.UpsertTeamMember(ctx, "team-b",
		assignment.TeamMember{UserID: "u-z", Active: true},
		assignment.TeamMemberMetrics{},
	))

	members, err := store.TeamMembers(ctx, "team-a")
	require.NoError(t, err)
	require.Len(t, members, 2)
	assert.Equal(t, "u-a", members[0].UserID, "members are sorted by user ID")

	metrics, err := store.MemberMetrics(ctx, []string{"u-b", "u-ghost", "u-a"})
	require.NoError(t, err)
	require.Len(t, metrics, 2, "unknown IDs are skipped")
	assert.Equal(t, "u-b", metrics[0].UserID, "metrics come back in input order")
	assert.Equal(t, 2, metrics[0].ActiveTickets)

	// Re-upserting moves the member between teams.
	require.NoError(t, store.UpsertTeamMember(ctx, "team-b",
		assignment.TeamMember{UserID: "u-a", Active: true},
		assignment.TeamMemberMetrics{},
	))
	members, err = store.TeamMembers(ctx, "team-a")
	require.NoError(t, err)
	assert.Len(t, members, 1)
}
