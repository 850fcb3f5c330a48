package rules

import (
	"sort"

	"ticketrouter/internal/routing"
)

// RuleTemplate is a catalog entry for a common routing scenario. Templates
// are instantiated through Manager.CreateRuleFromTemplate.
type RuleTemplate struct {
	ID          string                     `json:"id"`
	Name        string                     `json:"name"`
	Description string                     `json:"description"`
	Priority    int                        `json:"priority"`
	Conditions  []routing.RoutingCondition `json:"conditions"`
	Action      routing.RoutingAction      `json:"action"`
}

var templateCatalog = map[string]RuleTemplate{
	"high-priority-escalation": {
		ID:          "high-priority-escalation",
		Name:        "High priority to senior team",
		Description: "Routes high-priority tickets to the senior support team",
		Priority:    90,
		Conditions: []routing.RoutingCondition{
			{Field: routing.FieldPriority, Operator: routing.OperatorEquals, Value: "high"},
		},
		Action: routing.RoutingAction{Type: routing.ActionAssignTeam, TargetID: "team-senior-support"},
	},
	"billing-to-accounting": {
		ID:          "billing-to-accounting",
		Name:        "Billing to accounting team",
		Description: "Routes billing and payment tickets to the accounting team",
		Priority:    70,
		Conditions: []routing.RoutingCondition{
			{Field: routing.FieldCategory, Operator: routing.OperatorIn, Value: []string{"billing", "payments"}},
		},
		Action: routing.RoutingAction{Type: routing.ActionAssignTeam, TargetID: "team-accounting"},
	},
	"technical-issues": {
		ID:          "technical-issues",
		Name:        "Technical issues to tech support",
		Description: "Routes app and equipment tickets to the technical team",
		Priority:    60,
		Conditions: []routing.RoutingCondition{
			{Field: routing.FieldCategory, Operator: routing.OperatorEquals, Value: "technical"},
		},
		Action: routing.RoutingAction{Type: routing.ActionAssignTeam, TargetID: "team-tech-support"},
	},
	"membership-front-desk": {
		ID:          "membership-front-desk",
		Name:        "Membership questions to front desk",
		Description: "Routes membership and booking questions to the front desk team",
		Priority:    50,
		Conditions: []routing.RoutingCondition{
			{Field: routing.FieldCategory, Operator: routing.OperatorIn, Value: []string{"membership", "booking"}},
			{Field: routing.FieldKeywords, Operator: routing.OperatorContains, Value: []string{"membership", "class", "schedule", "booking"}},
		},
		Action: routing.RoutingAction{Type: routing.ActionAssignTeam, TargetID: "team-front-desk"},
	},
	"negative-sentiment-escalation": {
		ID:          "negative-sentiment-escalation",
		Name:        "Negative sentiment escalation",
		Description: "Escalates tickets with negative sentiment to the senior team",
		Priority:    80,
		Conditions: []routing.RoutingCondition{
			{Field: routing.FieldSentiment, Operator: routing.OperatorEquals, Value: "negative"},
		},
		Action: routing.RoutingAction{Type: routing.ActionAssignTeam, TargetID: "team-senior-support"},
	},
}

// Templates returns the template catalog sorted by ID for stable listings.
func Templates() []RuleTemplate {
	templates := make([]RuleTemplate, 0, len(templateCatalog))
	for _, template := range templateCatalog {
		templates = append(templates, template)
	}
	sort.Slice(templates, func(i, j int) bool { return templates[i].ID < templates[j].ID })
	return templates
}

// GetTemplate returns a single template by ID.
func GetTemplate(templateID string) (RuleTemplate, bool) {
	template, ok := templateCatalog[templateID]
	return template, ok
}

// defaultRules is the fixed rule set for fresh installations: critical
// auto-escalation, high-priority routing, and a catch-all fallback. The
// catch-all has zero conditions, so it matches vacuously and guarantees at
// least one match when no more specific rule applies.
func defaultRules() []RuleTemplate {
	return []RuleTemplate{
		{
			Name:     "Critical priority auto-escalation",
			Priority: 100,
			Conditions: []routing.RoutingCondition{
				{Field: routing.FieldPriority, Operator: routing.OperatorEquals, Value: "critical"},
			},
			Action: routing.RoutingAction{Type: routing.ActionAssignTeam, TargetID: "team-senior-support"},
		},
		{
			Name:     "High priority routing",
			Priority: 90,
			Conditions: []routing.RoutingCondition{
				{Field: routing.FieldPriority, Operator: routing.OperatorEquals, Value: "high"},
			},
			Action: routing.RoutingAction{Type: routing.ActionAssignTeam, TargetID: "team-senior-support"},
		},
		{
			Name:       "Default auto-assignment",
			Priority:   1,
			Conditions: nil,
			Action:     routing.RoutingAction{Type: routing.ActionAutoAssign},
		},
	}
}
