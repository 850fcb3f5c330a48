// Package rules manages the lifecycle of routing rules independently of
// evaluation: creation (custom or from templates), partial updates, deletion,
// listing, and advisory validation.
package rules

import (
	"context"
	"time"

	"ticketrouter/internal/common/logging"
	"ticketrouter/internal/common/utils"
	"ticketrouter/internal/routing"
)

// DefaultPriority is assigned to custom rules created without an explicit
// priority.
const DefaultPriority = 50

// Repository is the persistence boundary for rules and feedback. Absence is
// reported as (nil, nil) from GetRule, not as an error.
type Repository interface {
	CreateRule(ctx context.Context, rule *routing.RoutingRule) error
	UpdateRule(ctx context.Context, rule *routing.RoutingRule) error
	DeleteRule(ctx context.Context, ruleID string) (bool, error)
	GetRule(ctx context.Context, ruleID string) (*routing.RoutingRule, error)
	ListRules(ctx context.Context, activeOnly bool) ([]*routing.RoutingRule, error)
	AppendFeedback(ctx context.Context, feedback routing.RoutingFeedback) error
}

// RuleUpdate carries a partial rule mutation. Nil pointer fields are left
// untouched; a non-nil Conditions slice replaces the whole condition set.
type RuleUpdate struct {
	Name       *string                    `json:"name,omitempty"`
	Priority   *int                       `json:"priority,omitempty"`
	IsActive   *bool                      `json:"is_active,omitempty"`
	Conditions []routing.RoutingCondition `json:"conditions,omitempty"`
	Action     *routing.RoutingAction     `json:"action,omitempty"`
}

// Manager owns the canonical rule list. It also satisfies the routing
// engine's RuleSource and FeedbackSink interfaces so it can be injected
// directly as the engine's upstream.
type Manager struct {
	repo   Repository
	logger logging.Logger
	now    func() time.Time
}

// NewManager creates a rules manager over the given repository.
func NewManager(repo Repository, logger logging.Logger) *Manager {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}
	return &Manager{
		repo:   repo,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateCustomRule creates and persists a rule from caller-supplied parts.
// The rule gets a fresh ID and timestamps, starts active, and has no
// feedback history. Priority 0 is valid; pass a negative priority to get the
// default.
func (m *Manager) CreateCustomRule(ctx context.Context, name string, conditions []routing.RoutingCondition, action routing.RoutingAction, priority int) (*routing.RoutingRule, error) {
	if priority < 0 {
		priority = DefaultPriority
	}

	now := m.now()
	rule := &routing.RoutingRule{
		ID:         utils.NewID("rule"),
		Name:       name,
		Priority:   priority,
		IsActive:   true,
		Conditions: conditions,
		Action:     action,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := m.repo.CreateRule(ctx, rule); err != nil {
		return nil, err
	}

	m.logger.Info("created routing rule",
		logging.String("rule_id", rule.ID),
		logging.String("name", rule.Name),
		logging.Int("priority", rule.Priority),
	)
	return rule, nil
}

// CreateRuleFromTemplate instantiates a catalog template with a fresh ID and
// timestamps, applies the optional overrides, and persists the result.
// Returns (nil, nil) for an unknown template ID.
func (m *Manager) CreateRuleFromTemplate(ctx context.Context, templateID string, overrides *RuleUpdate) (*routing.RoutingRule, error) {
	template, ok := templateCatalog[templateID]
	if !ok {
		return nil, nil
	}

	now := m.now()
	rule := &routing.RoutingRule{
		ID:         utils.NewID("rule"),
		Name:       template.Name,
		Priority:   template.Priority,
		IsActive:   true,
		Conditions: cloneConditions(template.Conditions),
		Action:     template.Action,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	applyUpdate(rule, overrides)

	if err := m.repo.CreateRule(ctx, rule); err != nil {
		return nil, err
	}

	m.logger.Info("created routing rule from template",
		logging.String("rule_id", rule.ID),
		logging.String("template_id", templateID),
	)
	return rule, nil
}

// UpdateRule merges the partial update onto an existing rule and refreshes
// UpdatedAt. Returns (nil, nil) when the rule does not exist.
func (m *Manager) UpdateRule(ctx context.Context, ruleID string, update *RuleUpdate) (*routing.RoutingRule, error) {
	rule, err := m.repo.GetRule(ctx, ruleID)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, nil
	}

	applyUpdate(rule, update)
	rule.UpdatedAt = m.now()

	if err := m.repo.UpdateRule(ctx, rule); err != nil {
		return nil, err
	}
	return rule, nil
}

// DeleteRule removes a rule. Returns false when the rule was absent.
func (m *Manager) DeleteRule(ctx context.Context, ruleID string) (bool, error) {
	removed, err := m.repo.DeleteRule(ctx, ruleID)
	if err != nil {
		return false, err
	}
	if removed {
		m.logger.Info("deleted routing rule", logging.String("rule_id", ruleID))
	}
	return removed, nil
}

// GetRule returns a rule by ID, or (nil, nil) when absent.
func (m *Manager) GetRule(ctx context.Context, ruleID string) (*routing.RoutingRule, error) {
	return m.repo.GetRule(ctx, ruleID)
}

// GetAllRules lists rules sorted by priority descending, optionally filtered
// to active ones.
func (m *Manager) GetAllRules(ctx context.Context, activeOnly bool) ([]*routing.RoutingRule, error) {
	return m.repo.ListRules(ctx, activeOnly)
}

// ActiveRules implements routing.RuleSource.
func (m *Manager) ActiveRules(ctx context.Context) ([]*routing.RoutingRule, error) {
	return m.repo.ListRules(ctx, true)
}

// AppendFeedback implements routing.FeedbackSink.
func (m *Manager) AppendFeedback(ctx context.Context, feedback routing.RoutingFeedback) error {
	return m.repo.AppendFeedback(ctx, feedback)
}

// EnsureDefaultRules installs the fixed default rule set when the store holds
// no rules at all, which is the state of a fresh installation.
func (m *Manager) EnsureDefaultRules(ctx context.Context) error {
	existing, err := m.repo.ListRules(ctx, false)
	if err != nil {
		return err
	}
	if len(existing) > 0 {
		return nil
	}

	for _, template := range defaultRules() {
		now := m.now()
		rule := &routing.RoutingRule{
			ID:         utils.NewID("rule"),
			Name:       template.Name,
			Priority:   template.Priority,
			IsActive:   true,
			Conditions: cloneConditions(template.Conditions),
			Action:     template.Action,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := m.repo.CreateRule(ctx, rule); err != nil {
			return err
		}
	}

	m.logger.Info("installed default routing rules")
	return nil
}

func applyUpdate(rule *routing.RoutingRule, update *RuleUpdate) {
	if update == nil {
		return
	}
	if update.Name != nil {
		rule.Name = *update.Name
	}
	if update.Priority != nil {
		rule.Priority = *update.Priority
	}
	if update.IsActive != nil {
		rule.IsActive = *update.IsActive
	}
	if update.Conditions != nil {
		rule.Conditions = update.Conditions
	}
	if update.Action != nil {
		rule.Action = *update.Action
	}
}

func cloneConditions(conditions []routing.RoutingCondition) []routing.RoutingCondition {
	if conditions == nil {
		return nil
	}
	cloned := make([]routing.RoutingCondition, len(conditions))
	copy(cloned, conditions)
	return cloned
}
