// Package routing implements the rule-evaluation engine that scores
// configurable routing rules against incoming support tickets and turns the
// best match into a team or user suggestion.
//
// The engine is intentionally forgiving: rule evaluation never propagates an
// error into the ticket-creation flow. Upstream failures and empty rule sets
// both degrade to a default result tagged with an Outcome so callers can tell
// "nothing matched" apart from "something broke".
package routing

import (
	"context"
	"time"
)

// ConditionField identifies which ticket attribute a condition tests.
type ConditionField string

const (
	FieldCategory    ConditionField = "category"
	FieldSubcategory ConditionField = "subcategory"
	FieldPriority    ConditionField = "priority"
	FieldStudio      ConditionField = "studio"
	FieldKeywords    ConditionField = "keywords"
	FieldSentiment   ConditionField = "sentiment"
)

// ConditionOperator identifies how a condition compares its value against
// the ticket field.
type ConditionOperator string

const (
	OperatorEquals   ConditionOperator = "equals"
	OperatorContains ConditionOperator = "contains"
	OperatorIn       ConditionOperator = "in"
	OperatorMatches  ConditionOperator = "matches"
)

// ActionType identifies what a matched rule does with the ticket.
type ActionType string

const (
	ActionAssignTeam ActionType = "assignTeam"
	ActionAssignUser ActionType = "assignUser"
	ActionAutoAssign ActionType = "autoAssign"
)

// Ticket carries the structured fields a routing rule can test. Free-text
// content is passed separately to RouteTicket because it is only consulted
// by keyword conditions.
type Ticket struct {
	ID          string `json:"id"`
	Category    string `json:"category"`
	Subcategory string `json:"subcategory"`
	Priority    string `json:"priority"`
	Studio      string `json:"studio"`
	Sentiment   string `json:"sentiment,omitempty"`
}

// RoutingCondition is one atomic predicate within a rule. Value is either a
// string or a list of strings ([]string, []interface{}, or a comma-separated
// string are all accepted for list-shaped operators).
type RoutingCondition struct {
	Field    ConditionField    `json:"field"`
	Operator ConditionOperator `json:"operator"`
	Value    interface{}       `json:"value"`
}

// RoutingAction describes what happens when a rule wins.
type RoutingAction struct {
	Type     ActionType        `json:"type"`
	TargetID string            `json:"target_id,omitempty"`
	Metadata map[string]string `json:"metadata,omitempty"`
}

// RoutingFeedback is one human confirmation or correction of a routing
// decision. Feedback is append-only and only influences future scoring.
type RoutingFeedback struct {
	RuleID       string    `json:"rule_id"`
	TicketID     string    `json:"ticket_id"`
	WasCorrect   bool      `json:"was_correct"`
	ActualTeamID string    `json:"actual_team_id,omitempty"`
	Score        float64   `json:"score"`
	CreatedAt    time.Time `json:"created_at"`
}

// RoutingRule is a named, prioritized, activatable decision rule. All
// conditions must match (logical AND) for the rule to contribute a score.
type RoutingRule struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Priority   int                `json:"priority"`
	IsActive   bool               `json:"is_active"`
	Conditions []RoutingCondition `json:"conditions"`
	Action     RoutingAction      `json:"action"`
	Feedback   []RoutingFeedback  `json:"feedback,omitempty"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// Outcome tags a RoutingResult so callers can distinguish an expected empty
// result from a caught failure.
type Outcome string

const (
	// OutcomeMatched means a rule matched and produced a suggestion
	OutcomeMatched Outcome = "matched"
	// OutcomeNoMatch means no active rule scored above zero
	OutcomeNoMatch Outcome = "no_match"
	// OutcomeError means evaluation degraded after an upstream failure
	OutcomeError Outcome = "error"
)

// Alternative is a runner-up routing option with its score.
type Alternative struct {
	RuleID   string  `json:"rule_id"`
	RuleName string  `json:"rule_name"`
	TeamID   string  `json:"team_id,omitempty"`
	Score    float64 `json:"score"`
}

// RoutingResult is the engine output. It is ephemeral; the caller persists
// whatever it needs.
type RoutingResult struct {
	Outcome         Outcome       `json:"outcome"`
	SuggestedTeamID string        `json:"suggested_team_id,omitempty"`
	SuggestedUserID string        `json:"suggested_user_id,omitempty"`
	Confidence      float64       `json:"confidence"`
	RuleID          string        `json:"rule_id,omitempty"`
	Reasoning       string        `json:"reasoning"`
	Alternatives    []Alternative `json:"alternatives,omitempty"`
	FailureReason   string        `json:"failure_reason,omitempty"`
}

// RuleSource supplies the active rule set, ordered by priority descending.
// The engine refreshes through it at most once per cache window.
type RuleSource interface {
	ActiveRules(ctx context.Context) ([]*RoutingRule, error)
}

// FeedbackSink records routing feedback. Downstream, the append-only history
// feeds the accuracy adjustment applied during scoring.
type FeedbackSink interface {
	AppendFeedback(ctx context.Context, feedback RoutingFeedback) error
}

// SentimentScorer scores a sentiment condition against a ticket. The default
// implementation returns a fixed placeholder; a real classifier can be
// plugged in at construction.
type SentimentScorer interface {
	ScoreSentiment(condition RoutingCondition, ticket *Ticket, content string) float64
}

// FixedSentimentScorer returns the same score for every sentiment condition.
type FixedSentimentScorer struct {
	Value float64
}

// ScoreSentiment returns the fixed value
func (s FixedSentimentScorer) ScoreSentiment(RoutingCondition, *Ticket, string) float64 {
	return s.Value
}
