package routing_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketrouter/internal/common/errors"
	"ticketrouter/internal/routing"
	"ticketrouter/internal/testutil"
)

type fakeRuleSource struct {
	rules []*routing.RoutingRule
	err   error
	calls int
}

func (f *fakeRuleSource) ActiveRules(ctx context.Context) ([]*routing.RoutingRule, error) {
	f.calls++
	return f.rules, f.err
}

type fakeFeedbackSink struct {
	recorded []routing.RoutingFeedback
	err      error
}

func (f *fakeFeedbackSink) AppendFeedback(ctx context.Context, feedback routing.RoutingFeedback) error {
	if f.err != nil {
		return f.err
	}
	f.recorded = append(f.recorded, feedback)
	return nil
}

func newEngine(source *fakeRuleSource, sink *fakeFeedbackSink, clock *testutil.FakeClock) *routing.Engine {
	return routing.NewEngine(source, sink, routing.EngineConfig{Clock: clock})
}

func billingTicket() *routing.Ticket {
	return &routing.Ticket{
		ID:       "tik-1",
		Category: "billing",
		Priority: "high",
		Studio:   "studio-west",
	}
}

func TestRouteTicketPicksHighestScoringRule(t *testing.T) {
	source := &fakeRuleSource{rules: []*routing.RoutingRule{
		testutil.NewRule("billing").
			Condition(routing.FieldCategory, routing.OperatorEquals, "billing").
			Condition(routing.FieldPriority, routing.OperatorEquals, "high").
			Build(),
		testutil.NewRule("studio").
			Condition(routing.FieldStudio, routing.OperatorEquals, "studio-west").
			Build(),
	}}
	engine := newEngine(source, &fakeFeedbackSink{}, testutil.NewFakeClock())

	result := engine.RouteTicket(context.Background(), billingTicket(), "")

	assert.Equal(t, routing.OutcomeMatched, result.Outcome)
	assert.Equal(t, "rule-billing", result.RuleID)
	assert.Equal(t, "team-billing", result.SuggestedTeamID)
	assert.Equal(t, float64(100), result.Confidence, "two full field matches cap confidence at 100")
	require.Len(t, result.Alternatives, 1)
	assert.Equal(t, "rule-studio", result.Alternatives[0].RuleID)
	assert.Equal(t, 1.0, result.Alternatives[0].Score)
}

func TestRouteTicketAllConditionsMustMatch(t *testing.T) {
	source := &fakeRuleSource{rules: []*routing.RoutingRule{
		testutil.NewRule("partial").
			Condition(routing.FieldCategory, routing.OperatorEquals, "billing").
			Condition(routing.FieldPriority, routing.OperatorEquals, "critical").
			Build(),
	}}
	engine := newEngine(source, &fakeFeedbackSink{}, testutil.NewFakeClock())

	result := engine.RouteTicket(context.Background(), billingTicket(), "")

	assert.Equal(t, routing.OutcomeNoMatch, result.Outcome)
	assert.Empty(t, result.SuggestedTeamID)
	assert.Zero(t, result.Confidence)
}

func TestRouteTicketKeywordScoring(t *testing.T) {
	source := &fakeRuleSource{rules: []*routing.RoutingRule{
		testutil.NewRule("keywords").
			Condition(routing.FieldKeywords, routing.OperatorContains, []string{"refund", "chargeback"}).
			Build(),
	}}
	engine := newEngine(source, &fakeFeedbackSink{}, testutil.NewFakeClock())

	result := engine.RouteTicket(context.Background(), billingTicket(), "I want a refund for last month")

	assert.Equal(t, routing.OutcomeMatched, result.Outcome)
	assert.InDelta(t, 80, result.Confidence, 0.001, "keyword match contributes 0.8")
}

func TestRouteTicketNilTicket(t *testing.T) {
	source := &fakeRuleSource{rules: []*routing.RoutingRule{
		testutil.NewRule("billing").
			Condition(routing.FieldCategory, routing.OperatorEquals, "billing").
			Build(),
		testutil.NewRule("keywords").
			Condition(routing.FieldKeywords, routing.OperatorContains, []string{"refund"}).
			Build(),
	}}
	engine := newEngine(source, &fakeFeedbackSink{}, testutil.NewFakeClock())

	// Only the content-based rule can match when no ticket is supplied.
	result := engine.RouteTicket(context.Background(), nil, "please refund me")
	assert.Equal(t, routing.OutcomeMatched, result.Outcome)
	assert.Equal(t, "rule-keywords", result.RuleID)
	assert.Empty(t, result.Alternatives)

	result = engine.RouteTicket(context.Background(), nil, "")
	assert.Equal(t, routing.OutcomeNoMatch, result.Outcome)
}

func TestRouteTicketInactiveRulesAreSkipped(t *testing.T) {
	source := &fakeRuleSource{rules: []*routing.RoutingRule{
		testutil.NewRule("off").
			Inactive().
			Condition(routing.FieldCategory, routing.OperatorEquals, "billing").
			Build(),
	}}
	engine := newEngine(source, &fakeFeedbackSink{}, testutil.NewFakeClock())

	result := engine.RouteTicket(context.Background(), billingTicket(), "")
	assert.Equal(t, routing.OutcomeNoMatch, result.Outcome)
}

func TestRouteTicketCatchAllLosesToRealMatch(t *testing.T) {
	catchAll := testutil.NewRule("fallback").
		Action(routing.RoutingAction{Type: routing.ActionAutoAssign}).
		Build()
	source := &fakeRuleSource{rules: []*routing.RoutingRule{
		catchAll,
		testutil.NewRule("billing").
			Condition(routing.FieldCategory, routing.OperatorEquals, "billing").
			Build(),
	}}
	engine := newEngine(source, &fakeFeedbackSink{}, testutil.NewFakeClock())

	result := engine.RouteTicket(context.Background(), billingTicket(), "")

	assert.Equal(t, "rule-billing", result.RuleID)
	require.Len(t, result.Alternatives, 1)
	assert.Equal(t, "rule-fallback", result.Alternatives[0].RuleID)
}

func TestRouteTicketCatchAllMatchesWhenNothingElseDoes(t *testing.T) {
	source := &fakeRuleSource{rules: []*routing.RoutingRule{
		testutil.NewRule("fallback").
			Action(routing.RoutingAction{Type: routing.ActionAutoAssign}).
			Build(),
	}}
	engine := newEngine(source, &fakeFeedbackSink{}, testutil.NewFakeClock())

	result := engine.RouteTicket(context.Background(), &routing.Ticket{ID: "tik-2", Category: "other"}, "")

	assert.Equal(t, routing.OutcomeMatched, result.Outcome)
	assert.Equal(t, "rule-fallback", result.RuleID)
	assert.InDelta(t, 10, result.Confidence, 0.001)
}

func TestRouteTicketFeedbackAdjustsScore(t *testing.T) {
	// Same single condition on both rules; only feedback history separates
	// them. rule-good has perfect accuracy (x1.3), rule-bad has zero (x0.7).
	source := &fakeRuleSource{rules: []*routing.RoutingRule{
		testutil.NewRule("bad").
			Condition(routing.FieldCategory, routing.OperatorEquals, "billing").
			Feedback(0, 4).
			Build(),
		testutil.NewRule("good").
			Condition(routing.FieldCategory, routing.OperatorEquals, "billing").
			Feedback(4, 0).
			Build(),
	}}
	engine := newEngine(source, &fakeFeedbackSink{}, testutil.NewFakeClock())

	result := engine.RouteTicket(context.Background(), billingTicket(), "")

	assert.Equal(t, "rule-good", result.RuleID)
	assert.Equal(t, float64(100), result.Confidence, "1.3 raw score caps at 100")
	require.Len(t, result.Alternatives, 1)
	assert.InDelta(t, 0.7, result.Alternatives[0].Score, 0.001)
}

func TestRouteTicketDegradesOnSourceFailure(t *testing.T) {
	source := &fakeRuleSource{err: errors.ConnectionError("db down", nil)}
	engine := newEngine(source, &fakeFeedbackSink{}, testutil.NewFakeClock())

	result := engine.RouteTicket(context.Background(), billingTicket(), "")

	assert.Equal(t, routing.OutcomeError, result.Outcome)
	assert.Zero(t, result.Confidence)
	assert.NotEmpty(t, result.FailureReason)
}

func TestRouteTicketLimitsAlternatives(t *testing.T) {
	source := &fakeRuleSource{rules: []*routing.RoutingRule{
		testutil.NewRule("a").Condition(routing.FieldCategory, routing.OperatorEquals, "billing").Build(),
		testutil.NewRule("b").Condition(routing.FieldCategory, routing.OperatorEquals, "billing").Build(),
		testutil.NewRule("c").Condition(routing.FieldCategory, routing.OperatorEquals, "billing").Build(),
		testutil.NewRule("d").Condition(routing.FieldCategory, routing.OperatorEquals, "billing").Build(),
	}}
	engine := newEngine(source, &fakeFeedbackSink{}, testutil.NewFakeClock())

	result := engine.RouteTicket(context.Background(), billingTicket(), "")
	assert.Len(t, result.Alternatives, 2)
}

func TestRouteTicketAssignUserSuggestion(t *testing.T) {
	source := &fakeRuleSource{rules: []*routing.RoutingRule{
		testutil.NewRule("vip").
			Condition(routing.FieldCategory, routing.OperatorEquals, "billing").
			Action(routing.RoutingAction{
				Type:     routing.ActionAssignUser,
				TargetID: "user-maria",
				Metadata: map[string]string{"team_id": "team-accounting"},
			}).
			Build(),
	}}
	engine := newEngine(source, &fakeFeedbackSink{}, testutil.NewFakeClock())

	result := engine.RouteTicket(context.Background(), billingTicket(), "")

	assert.Equal(t, "user-maria", result.SuggestedUserID)
	assert.Equal(t, "team-accounting", result.SuggestedTeamID)
}

func TestRuleCacheHonorsTTL(t *testing.T) {
	clock := testutil.NewFakeClock()
	source := &fakeRuleSource{rules: []*routing.RoutingRule{
		testutil.NewRule("billing").
			Condition(routing.FieldCategory, routing.OperatorEquals, "billing").
			Build(),
	}}
	engine := newEngine(source, &fakeFeedbackSink{}, clock)

	engine.RouteTicket(context.Background(), billingTicket(), "")
	engine.RouteTicket(context.Background(), billingTicket(), "")
	assert.Equal(t, 1, source.calls, "second call within TTL should hit the cache")

	clock.Advance(routing.DefaultRuleCacheTTL + time.Second)
	engine.RouteTicket(context.Background(), billingTicket(), "")
	assert.Equal(t, 2, source.calls, "stale cache should refresh through the source")
}

func TestRecordFeedbackInvalidatesCache(t *testing.T) {
	source := &fakeRuleSource{rules: []*routing.RoutingRule{
		testutil.NewRule("billing").
			Condition(routing.FieldCategory, routing.OperatorEquals, "billing").
			Build(),
	}}
	sink := &fakeFeedbackSink{}
	engine := newEngine(source, sink, testutil.NewFakeClock())

	engine.RouteTicket(context.Background(), billingTicket(), "")
	require.NoError(t, engine.RecordFeedback(context.Background(), "rule-billing", "tik-1", true, ""))

	engine.RouteTicket(context.Background(), billingTicket(), "")
	assert.Equal(t, 2, source.calls, "feedback should force a rule refresh")

	require.Len(t, sink.recorded, 1)
	assert.Equal(t, 1.0, sink.recorded[0].Score)
	assert.True(t, sink.recorded[0].WasCorrect)
}

func TestRecordFeedbackPropagatesSinkFailure(t *testing.T) {
	sink := &fakeFeedbackSink{err: errors.ConnectionError("db down", nil)}
	engine := newEngine(&fakeRuleSource{}, sink, testutil.NewFakeClock())

	err := engine.RecordFeedback(context.Background(), "rule-x", "tik-1", false, "team-other")
	assert.Error(t, err)
}

func TestCustomSentimentScorer(t *testing.T) {
	source := &fakeRuleSource{rules: []*routing.RoutingRule{
		testutil.NewRule("angry").
			Condition(routing.FieldSentiment, routing.OperatorEquals, "negative").
			Build(),
	}}
	engine := routing.NewEngine(source, &fakeFeedbackSink{}, routing.EngineConfig{
		Clock:     testutil.NewFakeClock(),
		Sentiment: routing.FixedSentimentScorer{Value: 0.9},
	})

	result := engine.RouteTicket(context.Background(), billingTicket(), "")
	assert.InDelta(t, 90, result.Confidence, 0.001)
}
