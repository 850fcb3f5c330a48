package rules

import (
	"fmt"

	"ticketrouter/internal/routing"
)

// ValidationResult is the advisory outcome of ValidateRule. It is returned
// as a value, never as an error; callers decide whether an invalid rule may
// still be persisted.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors,omitempty"`
}

// ValidateRule checks a rule against the structural invariants: non-empty
// name, at least one condition (auto-assign catch-alls are exempt, their
// empty condition set is the point), an action type, and priority within
// [0, 100]. Validation never mutates the rule.
func ValidateRule(rule *routing.RoutingRule) ValidationResult {
	var errs []string

	if rule == nil {
		return ValidationResult{Valid: false, Errors: []string{"rule is required"}}
	}

	if rule.Name == "" {
		errs = append(errs, "rule name is required")
	}

	if len(rule.Conditions) == 0 && rule.Action.Type != routing.ActionAutoAssign {
		errs = append(errs, "rule must have at least one condition")
	}

	if rule.Action.Type == "" {
		errs = append(errs, "rule action type is required")
	} else if !validActionType(rule.Action.Type) {
		errs = append(errs, fmt.Sprintf("unknown action type %q", rule.Action.Type))
	}

	if rule.Priority < 0 || rule.Priority > 100 {
		errs = append(errs, fmt.Sprintf("priority must be between 0 and 100, got %d", rule.Priority))
	}

	for i, condition := range rule.Conditions {
		if err := validateCondition(condition); err != "" {
			errs = append(errs, fmt.Sprintf("condition %d: %s", i, err))
		}
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

func validateCondition(condition routing.RoutingCondition) string {
	fieldOK := false
	for _, field := range routing.SupportedFields() {
		if condition.Field == field {
			fieldOK = true
			break
		}
	}
	if !fieldOK {
		return fmt.Sprintf("unknown field %q", condition.Field)
	}

	operatorOK := false
	for _, operator := range routing.SupportedOperators() {
		if condition.Operator == operator {
			operatorOK = true
			break
		}
	}
	if !operatorOK {
		return fmt.Sprintf("unknown operator %q", condition.Operator)
	}

	if condition.Value == nil {
		return "value is required"
	}

	return ""
}

func validActionType(actionType routing.ActionType) bool {
	switch actionType {
	case routing.ActionAssignTeam, routing.ActionAssignUser, routing.ActionAutoAssign:
		return true
	default:
		return false
	}
}
