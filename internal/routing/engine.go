package routing

import (
	"context"
	"fmt"
	"sort"
	"time"

	"ticketrouter/internal/common/cache"
	"ticketrouter/internal/common/logging"
)

const (
	// DefaultRuleCacheTTL bounds how stale the cached rule set may get.
	DefaultRuleCacheTTL = 5 * time.Minute

	// DefaultSentimentScore is the placeholder contribution of a sentiment
	// condition when no real scorer is configured.
	DefaultSentimentScore = 0.5

	// catchAllScore is the score assigned to an active rule with zero
	// conditions. The AND of an empty condition set is vacuously true, so
	// such a rule always matches; it scores below any single-condition match
	// so it only wins when nothing more specific does.
	catchAllScore = 0.1

	ruleCacheKey = "active-rules"
)

// EngineConfig holds the optional knobs for the routing engine. Zero values
// fall back to defaults.
type EngineConfig struct {
	CacheTTL  time.Duration
	Clock     cache.Clock
	Sentiment SentimentScorer
	Logger    logging.Logger
}

// Engine evaluates routing rules against tickets. Collaborators are injected
// so tests can substitute fakes; the engine owns only a bounded-staleness
// cached view of the rule set.
type Engine struct {
	rules     RuleSource
	feedback  FeedbackSink
	sentiment SentimentScorer
	logger    logging.Logger
	ruleCache *cache.SnapshotMap[[]*RoutingRule]
}

// NewEngine creates a routing engine backed by the given rule source and
// feedback sink.
func NewEngine(rules RuleSource, feedback FeedbackSink, config EngineConfig) *Engine {
	ttl := config.CacheTTL
	if ttl <= 0 {
		ttl = DefaultRuleCacheTTL
	}
	sentiment := config.Sentiment
	if sentiment == nil {
		sentiment = FixedSentimentScorer{Value: DefaultSentimentScore}
	}
	logger := config.Logger
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	return &Engine{
		rules:     rules,
		feedback:  feedback,
		sentiment: sentiment,
		logger:    logger,
		ruleCache: cache.NewSnapshotMap[[]*RoutingRule](ttl, config.Clock),
	}
}

type scoredRule struct {
	rule  *RoutingRule
	score float64
}

// RouteTicket evaluates all active rules against the ticket and returns the
// best match as a routing suggestion. It never returns an error: upstream
// failures degrade to a default result tagged OutcomeError, and an empty or
// non-matching rule set yields OutcomeNoMatch. Either way the caller is
// expected to fall back to plain assignment.
func (e *Engine) RouteTicket(ctx context.Context, ticket *Ticket, content string) *RoutingResult {
	// A nil ticket evaluates like one with every field absent: field
	// conditions cannot match, keyword and catch-all rules still can.
	if ticket == nil {
		ticket = &Ticket{}
	}

	rules, err := e.activeRules(ctx)
	if err != nil {
		e.logger.Error("failed to load routing rules, degrading to default routing", err)
		return &RoutingResult{
			Outcome:       OutcomeError,
			Confidence:    0,
			Reasoning:     "routing unavailable, falling back to manual triage or round-robin assignment",
			FailureReason: err.Error(),
		}
	}

	// Rules arrive priority-descending from the source; the stable sort
	// below keeps that order for equal scores.
	scored := make([]scoredRule, 0, len(rules))
	for _, rule := range rules {
		score := e.scoreRule(rule, ticket, content)
		if score > 0 {
			scored = append(scored, scoredRule{rule: rule, score: score})
		}
	}

	if len(scored) == 0 {
		return &RoutingResult{
			Outcome:    OutcomeNoMatch,
			Confidence: 0,
			Reasoning:  "no routing rule matched the ticket",
		}
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].score > scored[j].score
	})

	result := e.buildResult(scored[0])
	for _, runnerUp := range scored[1:] {
		if len(result.Alternatives) == 2 {
			break
		}
		result.Alternatives = append(result.Alternatives, Alternative{
			RuleID:   runnerUp.rule.ID,
			RuleName: runnerUp.rule.Name,
			TeamID:   suggestedTeam(runnerUp.rule.Action),
			Score:    runnerUp.score,
		})
	}

	e.logger.Debug("routed ticket",
		logging.String("ticket_id", ticket.ID),
		logging.String("rule_id", result.RuleID),
		logging.Float64("confidence", result.Confidence),
	)
	return result
}

// scoreRule computes the match score for one rule. Inactive rules score 0.
// Condition scores are summed; any single zero-scoring condition zeroes the
// whole rule (AND semantics, short-circuit). A feedback history scales the
// raw score by 0.7 + 0.6*accuracy, bounding the multiplier to [0.7, 1.3].
func (e *Engine) scoreRule(rule *RoutingRule, ticket *Ticket, content string) float64 {
	if rule == nil || !rule.IsActive {
		return 0
	}

	var score float64
	if len(rule.Conditions) == 0 {
		score = catchAllScore
	}

	for _, condition := range rule.Conditions {
		conditionScore := e.scoreCondition(condition, ticket, content)
		if conditionScore == 0 {
			return 0
		}
		score += conditionScore
	}

	if len(rule.Feedback) > 0 {
		correct := 0
		for _, feedback := range rule.Feedback {
			if feedback.WasCorrect {
				correct++
			}
		}
		accuracy := float64(correct) / float64(len(rule.Feedback))
		score *= 0.7 + 0.6*accuracy
	}

	return score
}

func (e *Engine) scoreCondition(condition RoutingCondition, ticket *Ticket, content string) float64 {
	switch condition.Field {
	case FieldKeywords:
		if matchKeywords(content, condition.Value) {
			return keywordMatchScore
		}
		return 0

	case FieldSentiment:
		return e.sentiment.ScoreSentiment(condition, ticket, content)

	default:
		if matchField(ticketField(ticket, condition.Field), condition) {
			return fieldMatchScore
		}
		return 0
	}
}

func (e *Engine) buildResult(top scoredRule) *RoutingResult {
	confidence := top.score * 100
	if confidence > 100 {
		confidence = 100
	}

	result := &RoutingResult{
		Outcome:    OutcomeMatched,
		Confidence: confidence,
		RuleID:     top.rule.ID,
		Reasoning:  fmt.Sprintf("matched rule %q with score %.2f", top.rule.Name, top.score),
	}

	switch top.rule.Action.Type {
	case ActionAssignTeam:
		result.SuggestedTeamID = top.rule.Action.TargetID
	case ActionAssignUser:
		result.SuggestedUserID = top.rule.Action.TargetID
		if teamID, ok := top.rule.Action.Metadata["team_id"]; ok {
			result.SuggestedTeamID = teamID
		}
	case ActionAutoAssign:
		// No explicit suggestion; a target, if present, names the team the
		// assignment engine should draw candidates from.
		result.SuggestedTeamID = top.rule.Action.TargetID
	}

	return result
}

func suggestedTeam(action RoutingAction) string {
	switch action.Type {
	case ActionAssignTeam, ActionAutoAssign:
		return action.TargetID
	case ActionAssignUser:
		return action.Metadata["team_id"]
	default:
		return ""
	}
}

// activeRules returns the cached rule snapshot, refreshing through the rule
// source when the cache window has lapsed.
func (e *Engine) activeRules(ctx context.Context) ([]*RoutingRule, error) {
	if rules, ok := e.ruleCache.Get(ruleCacheKey); ok {
		return rules, nil
	}

	rules, err := e.rules.ActiveRules(ctx)
	if err != nil {
		return nil, err
	}

	e.ruleCache.Set(ruleCacheKey, rules)
	return rules, nil
}

// RecordFeedback appends a feedback record for a rule and invalidates the
// rule cache so the next routing decision reflects the updated accuracy.
func (e *Engine) RecordFeedback(ctx context.Context, ruleID, ticketID string, wasCorrect bool, actualTeamID string) error {
	score := 0.0
	if wasCorrect {
		score = 1.0
	}

	feedback := RoutingFeedback{
		RuleID:       ruleID,
		TicketID:     ticketID,
		WasCorrect:   wasCorrect,
		ActualTeamID: actualTeamID,
		Score:        score,
		CreatedAt:    time.Now().UTC(),
	}

	if err := e.feedback.AppendFeedback(ctx, feedback); err != nil {
		return err
	}

	e.ClearCache()
	return nil
}

// ClearCache drops the cached rule set, forcing a refresh on the next call.
func (e *Engine) ClearCache() {
	e.ruleCache.Clear()
}
