package assignment

import (
	"context"
	"strings"
	"time"

	"ticketrouter/internal/common/cache"
	"ticketrouter/internal/common/logging"
)

// DefaultMetricsCacheTTL bounds how stale cached team metrics may get.
const DefaultMetricsCacheTTL = 5 * time.Minute

// Workload thresholds used by GetTeamWorkloadStats.
const (
	busyWorkloadThreshold      = 80.0
	availableWorkloadThreshold = 50.0
)

// EngineConfig holds the optional knobs for the assignment engine. Zero
// values fall back to defaults.
type EngineConfig struct {
	CacheTTL time.Duration
	Clock    cache.Clock
	Logger   logging.Logger
}

// Engine chooses assignees from a team's candidate pool. The directory and
// metrics source are injected; the engine owns only a team-scoped TTL cache
// of member metrics.
type Engine struct {
	directory    TeamDirectory
	metrics      MetricsSource
	logger       logging.Logger
	metricsCache *cache.SnapshotMap[[]TeamMemberMetrics]
}

// NewEngine creates an assignment engine over the given directory and
// metrics source.
func NewEngine(directory TeamDirectory, metrics MetricsSource, config EngineConfig) *Engine {
	ttl := config.CacheTTL
	if ttl <= 0 {
		ttl = DefaultMetricsCacheTTL
	}
	logger := config.Logger
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	return &Engine{
		directory:    directory,
		metrics:      metrics,
		logger:       logger,
		metricsCache: cache.NewSnapshotMap[[]TeamMemberMetrics](ttl, config.Clock),
	}
}

// AssignTicket picks an assignee for the ticket from the team's pool under
// the given strategy. It never returns an error: any failure during member
// lookup or metrics refresh is caught and converted into an error-tagged
// result with no assignee, because assignment must not block ticket intake.
//
// Required skills narrow the candidate pool as a soft preference: when no
// available member has a required skill, the engine falls back to the
// unfiltered (but still online) pool and flags SkillMatchDegraded.
func (e *Engine) AssignTicket(ctx context.Context, teamID, ticketID string, strategy Strategy, requiredSkills []string) *AssignmentResult {
	if strategy.Type == "" {
		strategy = DefaultStrategy()
	}

	metrics, err := e.teamMetrics(ctx, teamID)
	if err != nil {
		e.logger.Error("assignment degraded after metrics lookup failure", err,
			logging.String("team_id", teamID),
			logging.String("ticket_id", ticketID),
		)
		return &AssignmentResult{
			Outcome:       OutcomeError,
			TicketID:      ticketID,
			Strategy:      strategy.Type,
			Score:         0,
			Reasoning:     "assignment failed due to error",
			FailureReason: err.Error(),
		}
	}

	if len(metrics) == 0 {
		return &AssignmentResult{
			Outcome:   OutcomeNoCandidates,
			TicketID:  ticketID,
			Strategy:  strategy.Type,
			Score:     0,
			Reasoning: "no available team members",
		}
	}

	online := make([]TeamMemberMetrics, 0, len(metrics))
	for _, member := range metrics {
		if member.Availability != AvailabilityOffline {
			online = append(online, member)
		}
	}

	candidates := online
	skillDegraded := false
	if len(requiredSkills) > 0 {
		skilled := filterBySkills(online, requiredSkills)
		if len(skilled) > 0 {
			candidates = skilled
		} else if len(online) > 0 {
			skillDegraded = true
		}
	}

	if len(candidates) == 0 {
		return &AssignmentResult{
			Outcome:   OutcomeNoCandidates,
			TicketID:  ticketID,
			Strategy:  strategy.Type,
			Score:     0,
			Reasoning: "no qualified available team members",
		}
	}

	result := dispatchStrategy(strategy.Type, candidates, requiredSkills)
	result.TicketID = ticketID
	result.SkillMatchDegraded = skillDegraded

	e.logger.Debug("assigned ticket",
		logging.String("ticket_id", ticketID),
		logging.String("team_id", teamID),
		logging.String("assignee", result.AssignedUserID),
		logging.String("strategy", string(result.Strategy)),
		logging.Float64("score", result.Score),
	)
	return result
}

// GetTeamWorkloadStats aggregates the cached metrics of a team: total active
// tickets, mean workload percentage, busy members (workload above 80%), and
// available members (status available with workload under 50%).
func (e *Engine) GetTeamWorkloadStats(ctx context.Context, teamID string) (*TeamWorkloadStats, error) {
	metrics, err := e.teamMetrics(ctx, teamID)
	if err != nil {
		return nil, err
	}

	stats := &TeamWorkloadStats{TeamID: teamID}
	if len(metrics) == 0 {
		return stats, nil
	}

	var totalWorkload float64
	for _, member := range metrics {
		stats.TotalActiveTickets += member.ActiveTickets
		totalWorkload += member.WorkloadPercentage
		if member.WorkloadPercentage > busyWorkloadThreshold {
			stats.BusyMembers++
		}
		if member.Availability == AvailabilityAvailable && member.WorkloadPercentage < availableWorkloadThreshold {
			stats.AvailableMembers++
		}
	}
	stats.AverageWorkloadPercentage = totalWorkload / float64(len(metrics))

	return stats, nil
}

// teamMetrics returns the team's member metrics through the TTL cache,
// resolving the member list and refreshing metrics on a stale entry.
func (e *Engine) teamMetrics(ctx context.Context, teamID string) ([]TeamMemberMetrics, error) {
	if metrics, ok := e.metricsCache.Get(teamID); ok {
		return metrics, nil
	}

	members, err := e.directory.TeamMembers(ctx, teamID)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}

	userIDs := make([]string, 0, len(members))
	for _, member := range members {
		if member.Active {
			userIDs = append(userIDs, member.UserID)
		}
	}
	if len(userIDs) == 0 {
		return nil, nil
	}

	metrics, err := e.metrics.MemberMetrics(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	e.metricsCache.Set(teamID, metrics)
	return metrics, nil
}

// ClearCache empties the metrics cache, forcing recomputation on next
// access.
func (e *Engine) ClearCache() {
	e.metricsCache.Clear()
}

// filterBySkills keeps members whose skill set intersects the requirement.
func filterBySkills(members []TeamMemberMetrics, requiredSkills []string) []TeamMemberMetrics {
	matched := make([]TeamMemberMetrics, 0, len(members))
	for _, member := range members {
		if countSkillMatches(member.Skills, requiredSkills) > 0 {
			matched = append(matched, member)
		}
	}
	return matched
}

// countSkillMatches counts required skills present in the member's skill
// set, case-insensitively.
func countSkillMatches(skills, requiredSkills []string) int {
	count := 0
	for _, required := range requiredSkills {
		for _, skill := range skills {
			if strings.EqualFold(skill, required) {
				count++
				break
			}
		}
	}
	return count
}
