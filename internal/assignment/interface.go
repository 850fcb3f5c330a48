// Package assignment implements the workload-balancing engine that picks a
// human assignee for a ticket from a team's candidate pool under a pluggable
// strategy.
//
// Like the routing engine, assignment must never fail ticket intake:
// upstream lookup failures are caught at the top of AssignTicket and
// converted into a degraded, error-tagged result.
package assignment

import (
	"context"
)

// Availability is a member's current presence state.
type Availability string

const (
	AvailabilityAvailable Availability = "available"
	AvailabilityBusy      Availability = "busy"
	AvailabilityAway      Availability = "away"
	AvailabilityOffline   Availability = "offline"
)

// StrategyType names a scoring algorithm for choosing an assignee.
type StrategyType string

const (
	StrategyRoundRobin  StrategyType = "round-robin"
	StrategyLeastLoaded StrategyType = "least-loaded"
	StrategySkillBased  StrategyType = "skill-based"
	StrategyBalanced    StrategyType = "balanced"
)

// Strategy selects and parametrizes the assignment algorithm. Today only the
// type matters; the struct leaves room for per-strategy options.
type Strategy struct {
	Type StrategyType `json:"type"`
}

// DefaultStrategy is used when the caller does not specify one.
func DefaultStrategy() Strategy {
	return Strategy{Type: StrategyLeastLoaded}
}

// TeamMember is a directory entry for one member of a team.
type TeamMember struct {
	UserID string `json:"user_id"`
	Name   string `json:"name,omitempty"`
	Role   string `json:"role,omitempty"`
	Active bool   `json:"active"`
}

// TeamMemberMetrics is a derived, cached snapshot of one member's workload.
// While a cache entry is valid it is owned exclusively by the engine.
type TeamMemberMetrics struct {
	UserID                 string       `json:"user_id"`
	ActiveTickets          int          `json:"active_tickets"`
	AvgResolutionTimeHours float64      `json:"avg_resolution_time_hours"`
	Skills                 []string     `json:"skills"`
	Availability           Availability `json:"availability"`
	WorkloadPercentage     float64      `json:"workload_percentage"`
}

// Outcome tags an AssignmentResult so callers can distinguish an expected
// empty result from a caught failure.
type Outcome string

const (
	// OutcomeAssigned means a candidate was selected
	OutcomeAssigned Outcome = "assigned"
	// OutcomeNoCandidates means the pool was empty or nobody was available
	OutcomeNoCandidates Outcome = "no_candidates"
	// OutcomeError means assignment degraded after an upstream failure
	OutcomeError Outcome = "error"
)

// Candidate is a runner-up assignee with its score.
type Candidate struct {
	UserID string  `json:"user_id"`
	Score  float64 `json:"score"`
}

// AssignmentResult is the engine output. AssignedUserID is empty when no
// assignee could be chosen; SkillMatchDegraded reports that a required-skill
// filter was silently relaxed because nobody qualified.
type AssignmentResult struct {
	Outcome            Outcome      `json:"outcome"`
	AssignedUserID     string       `json:"assigned_user_id,omitempty"`
	TicketID           string       `json:"ticket_id"`
	Strategy           StrategyType `json:"strategy"`
	Score              float64      `json:"score"`
	Reasoning          string       `json:"reasoning"`
	Alternatives       []Candidate  `json:"alternatives,omitempty"`
	SkillMatchDegraded bool         `json:"skill_match_degraded,omitempty"`
	FailureReason      string       `json:"failure_reason,omitempty"`
}

// WorkloadCacheKey names the shared-cache slot holding a team's workload
// stats. The prewarm job writes it; the workload endpoint reads it.
func WorkloadCacheKey(teamID string) string {
	return "workload:" + teamID
}

// TeamWorkloadStats aggregates the cached metrics of one team.
type TeamWorkloadStats struct {
	TeamID                    string  `json:"team_id"`
	TotalActiveTickets        int     `json:"total_active_tickets"`
	AverageWorkloadPercentage float64 `json:"average_workload_percentage"`
	BusyMembers               int     `json:"busy_members"`
	AvailableMembers          int     `json:"available_members"`
}

// TeamDirectory resolves a team to its current member list. Failures surface
// as errors; the engine catches them.
type TeamDirectory interface {
	TeamMembers(ctx context.Context, teamID string) ([]TeamMember, error)
}

// MetricsSource returns per-member workload metrics for a set of member IDs.
// The computation behind the numbers is the source's business; the engine
// only fixes the shape.
type MetricsSource interface {
	MemberMetrics(ctx context.Context, userIDs []string) ([]TeamMemberMetrics, error)
}
