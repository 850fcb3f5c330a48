package routing

import (
	"fmt"
	"regexp"
	"strings"
)

// Per-field condition score contributions. Exact field matches count full
// weight; keyword hits in free text are weaker evidence.
const (
	fieldMatchScore   = 1.0
	keywordMatchScore = 0.8
)

// ticketField extracts the ticket attribute a condition tests. Keyword and
// sentiment conditions do not read a single field and are handled by the
// caller.
func ticketField(ticket *Ticket, field ConditionField) string {
	if ticket == nil {
		return ""
	}
	switch field {
	case FieldCategory:
		return ticket.Category
	case FieldSubcategory:
		return ticket.Subcategory
	case FieldPriority:
		return ticket.Priority
	case FieldStudio:
		return ticket.Studio
	default:
		return ""
	}
}

// matchField evaluates a single operator against a ticket field value.
// An absent (empty) field value never matches, regardless of operator.
// A malformed regex in a "matches" condition is treated as a non-match
// rather than an error so one bad pattern cannot abort rule evaluation.
func matchField(fieldValue string, condition RoutingCondition) bool {
	if fieldValue == "" {
		return false
	}

	switch condition.Operator {
	case OperatorEquals:
		return fieldValue == stringValue(condition.Value)

	case OperatorContains:
		return strings.Contains(fieldValue, stringValue(condition.Value))

	case OperatorIn:
		for _, item := range stringListValue(condition.Value) {
			if fieldValue == item {
				return true
			}
		}
		return false

	case OperatorMatches:
		pattern, err := regexp.Compile("(?i)" + stringValue(condition.Value))
		if err != nil {
			return false
		}
		return pattern.MatchString(fieldValue)

	default:
		return false
	}
}

// matchKeywords reports whether any keyword appears in the ticket content as
// a case-insensitive substring.
func matchKeywords(content string, value interface{}) bool {
	if content == "" {
		return false
	}
	haystack := strings.ToLower(content)
	for _, keyword := range stringListValue(value) {
		if keyword == "" {
			continue
		}
		if strings.Contains(haystack, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}

// stringValue normalizes a condition value to a single string.
func stringValue(value interface{}) string {
	switch v := value.(type) {
	case string:
		return v
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", v)
	}
}

// stringListValue normalizes a condition value to a string list. Accepts
// []string, []interface{}, and comma-separated strings.
func stringListValue(value interface{}) []string {
	switch v := value.(type) {
	case []string:
		return v
	case []interface{}:
		list := make([]string, len(v))
		for i, item := range v {
			list[i] = fmt.Sprintf("%v", item)
		}
		return list
	case string:
		parts := strings.Split(v, ",")
		for i, item := range parts {
			parts[i] = strings.TrimSpace(item)
		}
		return parts
	case nil:
		return nil
	default:
		return []string{fmt.Sprintf("%v", v)}
	}
}

// SupportedFields returns all condition fields the engine understands.
func SupportedFields() []ConditionField {
	return []ConditionField{
		FieldCategory, FieldSubcategory, FieldPriority,
		FieldStudio, FieldKeywords, FieldSentiment,
	}
}

// SupportedOperators returns all comparison operators the engine understands.
func SupportedOperators() []ConditionOperator {
	return []ConditionOperator{
		OperatorEquals, OperatorContains, OperatorIn, OperatorMatches,
	}
}
