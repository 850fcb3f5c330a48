package storage

import (
	"context"
	"sort"
	"sync"

	"ticketrouter/internal/assignment"
	"ticketrouter/internal/common/errors"
	"ticketrouter/internal/routing"
)

// MemoryStorage is an in-memory Storage implementation. It backs tests and
// the "memory" database type for local development; nothing survives a
// restart.
type MemoryStorage struct {
	mu       sync.RWMutex
	rules    map[string]*routing.RoutingRule
	feedback map[string][]routing.RoutingFeedback
	members  map[string]memberRow
}

type memberRow struct {
	teamID  string
	member  assignment.TeamMember
	metrics assignment.TeamMemberMetrics
}

// NewMemoryStorage creates an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		rules:    make(map[string]*routing.RoutingRule),
		feedback: make(map[string][]routing.RoutingFeedback),
		members:  make(map[string]memberRow),
	}
}

// CreateRule stores a new rule. Duplicate IDs are rejected.
func (s *MemoryStorage) CreateRule(ctx context.Context, rule *routing.RoutingRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[rule.ID]; exists {
		return errors.ValidationError("rule with ID " + rule.ID + " already exists")
	}
	s.rules[rule.ID] = cloneRule(rule)
	return nil
}

// UpdateRule replaces an existing rule.
func (s *MemoryStorage) UpdateRule(ctx context.Context, rule *routing.RoutingRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[rule.ID]; !exists {
		return errors.NotFoundError("rule")
	}
	s.rules[rule.ID] = cloneRule(rule)
	return nil
}

// DeleteRule removes a rule, reporting whether it existed.
func (s *MemoryStorage) DeleteRule(ctx context.Context, ruleID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[ruleID]; !exists {
		return false, nil
	}
	delete(s.rules, ruleID)
	delete(s.feedback, ruleID)
	return true, nil
}

// GetRule returns a rule with its feedback attached, or (nil, nil) when
// absent.
func (s *MemoryStorage) GetRule(ctx context.Context, ruleID string) (*routing.RoutingRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rule, exists := s.rules[ruleID]
	if !exists {
		return nil, nil
	}
	out := cloneRule(rule)
	out.Feedback = append([]routing.RoutingFeedback(nil), s.feedback[ruleID]...)
	return out, nil
}

// ListRules returns rules sorted by priority descending, feedback attached.
func (s *MemoryStorage) ListRules(ctx context.Context, activeOnly bool) ([]*routing.RoutingRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*routing.RoutingRule, 0, len(s.rules))
	for _, rule := range s.rules {
		if activeOnly && !rule.IsActive {
			continue
		}
		cloned := cloneRule(rule)
		cloned.Feedback = append([]routing.RoutingFeedback(nil), s.feedback[rule.ID]...)
		out = append(out, cloned)
	}

	// Stable secondary order by creation time keeps listings deterministic
	// across equal priorities.
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority > out[j].Priority
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// AppendFeedback records one feedback entry for a rule.
func (s *MemoryStorage) AppendFeedback(ctx context.Context, feedback routing.RoutingFeedback) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.rules[feedback.RuleID]; !exists {
		return errors.NotFoundError("rule")
	}
	s.feedback[feedback.RuleID] = append(s.feedback[feedback.RuleID], feedback)
	return nil
}

// ListFeedback returns the feedback history of one rule.
func (s *MemoryStorage) ListFeedback(ctx context.Context, ruleID string) ([]routing.RoutingFeedback, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]routing.RoutingFeedback(nil), s.feedback[ruleID]...), nil
}

// TeamMembers returns the member list of a team.
func (s *MemoryStorage) TeamMembers(ctx context.Context, teamID string) ([]assignment.TeamMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var members []assignment.TeamMember
	for _, row := range s.members {
		if row.teamID == teamID {
			members = append(members, row.member)
		}
	}
	sort.Slice(members, func(i, j int) bool { return members[i].UserID < members[j].UserID })
	return members, nil
}

// MemberMetrics returns metrics for the given member IDs, in input order,
// skipping unknown IDs.
func (s *MemoryStorage) MemberMetrics(ctx context.Context, userIDs []string) ([]assignment.TeamMemberMetrics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	metrics := make([]assignment.TeamMemberMetrics, 0, len(userIDs))
	for _, userID := range userIDs {
		if row, exists := s.members[userID]; exists {
			metrics = append(metrics, row.metrics)
		}
	}
	return metrics, nil
}

// UpsertTeamMember creates or replaces a member row.
func (s *MemoryStorage) UpsertTeamMember(ctx context.Context, teamID string, member assignment.TeamMember, metrics assignment.TeamMemberMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	metrics.UserID = member.UserID
	s.members[member.UserID] = memberRow{teamID: teamID, member: member, metrics: metrics}
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStorage) Close() error { return nil }

// Health always reports healthy.
func (s *MemoryStorage) Health() error { return nil }

func cloneRule(rule *routing.RoutingRule) *routing.RoutingRule {
	cloned := *rule
	cloned.Conditions = append([]routing.RoutingCondition(nil), rule.Conditions...)
	cloned.Feedback = append([]routing.RoutingFeedback(nil), rule.Feedback...)
	return &cloned
}
