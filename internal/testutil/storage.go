// Package testutil provides shared test doubles and fixture builders.
package testutil

import (
	"context"
	"fmt"
	"time"

	"ticketrouter/internal/assignment"
	"ticketrouter/internal/routing"
	"ticketrouter/internal/storage"
)

// MockStorage wraps the in-memory store with per-method fault injection:
// setting ErrorOnMethod["ListRules"] makes every ListRules call fail with
// that error.
type MockStorage struct {
	*storage.MemoryStorage
	ErrorOnMethod map[string]error
	Calls         []string
}

// NewMockStorage creates an empty mock store.
func NewMockStorage() *MockStorage {
	return &MockStorage{
		MemoryStorage: storage.NewMemoryStorage(),
		ErrorOnMethod: make(map[string]error),
	}
}

func (m *MockStorage) record(method string) error {
	m.Calls = append(m.Calls, method)
	return m.ErrorOnMethod[method]
}

// CallCount returns how often the named method was invoked.
func (m *MockStorage) CallCount(method string) int {
	count := 0
	for _, call := range m.Calls {
		if call == method {
			count++
		}
	}
	return count
}

func (m *MockStorage) CreateRule(ctx context.Context, rule *routing.RoutingRule) error {
	if err := m.record("CreateRule"); err != nil {
		return err
	}
	return m.MemoryStorage.CreateRule(ctx, rule)
}

func (m *MockStorage) UpdateRule(ctx context.Context, rule *routing.RoutingRule) error {
	if err := m.record("UpdateRule"); err != nil {
		return err
	}
	return m.MemoryStorage.UpdateRule(ctx, rule)
}

func (m *MockStorage) DeleteRule(ctx context.Context, ruleID string) (bool, error) {
	if err := m.record("DeleteRule"); err != nil {
		return false, err
	}
	return m.MemoryStorage.DeleteRule(ctx, ruleID)
}

func (m *MockStorage) GetRule(ctx context.Context, ruleID string) (*routing.RoutingRule, error) {
	if err := m.record("GetRule"); err != nil {
		return nil, err
	}
	return m.MemoryStorage.GetRule(ctx, ruleID)
}

func (m *MockStorage) ListRules(ctx context.Context, activeOnly bool) ([]*routing.RoutingRule, error) {
	if err := m.record("ListRules"); err != nil {
		return nil, err
	}
	return m.MemoryStorage.ListRules(ctx, activeOnly)
}

func (m *MockStorage) AppendFeedback(ctx context.Context, feedback routing.RoutingFeedback) error {
	if err := m.record("AppendFeedback"); err != nil {
		return err
	}
	return m.MemoryStorage.AppendFeedback(ctx, feedback)
}

func (m *MockStorage) ListFeedback(ctx context.Context, ruleID string) ([]routing.RoutingFeedback, error) {
	if err := m.record("ListFeedback"); err != nil {
		return nil, err
	}
	return m.MemoryStorage.ListFeedback(ctx, ruleID)
}

func (m *MockStorage) TeamMembers(ctx context.Context, teamID string) ([]assignment.TeamMember, error) {
	if err := m.record("TeamMembers"); err != nil {
		return nil, err
	}
	return m.MemoryStorage.TeamMembers(ctx, teamID)
}

func (m *MockStorage) MemberMetrics(ctx context.Context, userIDs []string) ([]assignment.TeamMemberMetrics, error) {
	if err := m.record("MemberMetrics"); err != nil {
		return nil, err
	}
	return m.MemoryStorage.MemberMetrics(ctx, userIDs)
}

func (m *MockStorage) UpsertTeamMember(ctx context.Context, teamID string, member assignment.TeamMember, metrics assignment.TeamMemberMetrics) error {
	if err := m.record("UpsertTeamMember"); err != nil {
		return err
	}
	return m.MemoryStorage.UpsertTeamMember(ctx, teamID, member, metrics)
}

// FakeClock is a manually advanced clock for cache TTL tests.
type FakeClock struct {
	Current time.Time
}

// NewFakeClock starts at a fixed instant.
func NewFakeClock() *FakeClock {
	return &FakeClock{Current: time.Date(2026, 1, 15, 9, 0, 0, 0, time.UTC)}
}

// Now implements cache.Clock.
func (c *FakeClock) Now() time.Time {
	return c.Current
}

// Advance moves the clock forward.
func (c *FakeClock) Advance(d time.Duration) {
	c.Current = c.Current.Add(d)
}

// RuleBuilder assembles routing rules for tests.
type RuleBuilder struct {
	rule routing.RoutingRule
}

// NewRule starts a builder for an active assign-team rule. The short name is
// expanded into "rule-<name>", "team-<name>" identifiers.
func NewRule(name string) *RuleBuilder {
	now := time.Date(2026, 1, 15, 8, 0, 0, 0, time.UTC)
	return &RuleBuilder{rule: routing.RoutingRule{
		ID:        "rule-" + name,
		Name:      "rule " + name,
		Priority:  50,
		IsActive:  true,
		Action:    routing.RoutingAction{Type: routing.ActionAssignTeam, TargetID: "team-" + name},
		CreatedAt: now,
		UpdatedAt: now,
	}}
}

// Name sets the rule name.
func (b *RuleBuilder) Name(name string) *RuleBuilder {
	b.rule.Name = name
	return b
}

// Priority sets the rule priority.
func (b *RuleBuilder) Priority(priority int) *RuleBuilder {
	b.rule.Priority = priority
	return b
}

// Inactive marks the rule inactive.
func (b *RuleBuilder) Inactive() *RuleBuilder {
	b.rule.IsActive = false
	return b
}

// Condition appends one condition.
func (b *RuleBuilder) Condition(field routing.ConditionField, operator routing.ConditionOperator, value interface{}) *RuleBuilder {
	b.rule.Conditions = append(b.rule.Conditions, routing.RoutingCondition{
		Field: field, Operator: operator, Value: value,
	})
	return b
}

// Action replaces the rule action.
func (b *RuleBuilder) Action(action routing.RoutingAction) *RuleBuilder {
	b.rule.Action = action
	return b
}

// Feedback appends n correct and m incorrect feedback entries.
func (b *RuleBuilder) Feedback(correct, incorrect int) *RuleBuilder {
	for i := 0; i < correct; i++ {
		b.rule.Feedback = append(b.rule.Feedback, routing.RoutingFeedback{
			RuleID: b.rule.ID, TicketID: fmt.Sprintf("tik-c%d", i), WasCorrect: true, Score: 1,
		})
	}
	for i := 0; i < incorrect; i++ {
		b.rule.Feedback = append(b.rule.Feedback, routing.RoutingFeedback{
			RuleID: b.rule.ID, TicketID: fmt.Sprintf("tik-i%d", i), WasCorrect: false,
		})
	}
	return b
}

// Build returns the assembled rule.
func (b *RuleBuilder) Build() *routing.RoutingRule {
	rule := b.rule
	return &rule
}

// Member builds a metrics snapshot for one candidate.
func Member(userID string, activeTickets int, workload float64, availability assignment.Availability, skills ...string) assignment.TeamMemberMetrics {
	return assignment.TeamMemberMetrics{
		UserID:             userID,
		ActiveTickets:      activeTickets,
		WorkloadPercentage: workload,
		Availability:       availability,
		Skills:             skills,
	}
}
