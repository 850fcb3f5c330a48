package assignment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func member(userID string, activeTickets int, workload float64, availability Availability, skills ...string) TeamMemberMetrics {
	return TeamMemberMetrics{
		UserID:             userID,
		ActiveTickets:      activeTickets,
		WorkloadPercentage: workload,
		Availability:       availability,
		Skills:             skills,
	}
}

func TestAssignRoundRobin(t *testing.T) {
	candidates := []TeamMemberMetrics{
		member("u-ana", 5, 50, AvailabilityAvailable),
		member("u-ben", 2, 70, AvailabilityBusy),
		member("u-cam", 8, 10, AvailabilityAvailable),
	}

	result := assignRoundRobin(candidates)

	assert.Equal(t, OutcomeAssigned, result.Outcome)
	assert.Equal(t, "u-ben", result.AssignedUserID, "fewest active tickets wins regardless of workload")
	assert.Equal(t, roundRobinBaseScore, result.Score)
	require.Len(t, result.Alternatives, 2)
	assert.Equal(t, "u-ana", result.Alternatives[0].UserID)
	assert.Equal(t, 45.0, result.Alternatives[0].Score, "3 extra tickets decay 15 points")
	assert.Equal(t, "u-cam", result.Alternatives[1].UserID)
	assert.Equal(t, 30.0, result.Alternatives[1].Score)
}

func TestAssignRoundRobinTieKeepsInputOrder(t *testing.T) {
	candidates := []TeamMemberMetrics{
		member("u-first", 3, 50, AvailabilityAvailable),
		member("u-second", 3, 10, AvailabilityAvailable),
	}

	result := assignRoundRobin(candidates)
	assert.Equal(t, "u-first", result.AssignedUserID)
}

func TestAssignLeastLoaded(t *testing.T) {
	candidates := []TeamMemberMetrics{
		member("u-ana", 5, 80, AvailabilityBusy),
		member("u-ben", 2, 30, AvailabilityAvailable),
		member("u-cam", 8, 55, AvailabilityAvailable),
	}

	result := assignLeastLoaded(candidates)

	assert.Equal(t, "u-ben", result.AssignedUserID)
	assert.Equal(t, 70.0, result.Score, "score is load headroom")
	require.Len(t, result.Alternatives, 2)
	assert.Equal(t, "u-cam", result.Alternatives[0].UserID)
	assert.Equal(t, 40.0, result.Alternatives[0].Score, "headroom 45 minus rank decay 5")
	assert.Equal(t, "u-ana", result.Alternatives[1].UserID)
	assert.Equal(t, 10.0, result.Alternatives[1].Score)
}

func TestAssignLeastLoadedOverloadedMemberClampsToZero(t *testing.T) {
	candidates := []TeamMemberMetrics{
		member("u-swamped", 20, 120, AvailabilityBusy),
	}

	result := assignLeastLoaded(candidates)
	assert.Equal(t, "u-swamped", result.AssignedUserID)
	assert.Equal(t, 0.0, result.Score)
}

func TestAssignSkillBased(t *testing.T) {
	candidates := []TeamMemberMetrics{
		member("u-generalist", 2, 20, AvailabilityAvailable),
		member("u-expert", 4, 60, AvailabilityAvailable, "billing", "refunds"),
	}

	result := assignSkillBased(candidates, []string{"billing", "refunds"})

	// expert: 0.6*100 + 0.4*40 = 76; generalist: 0.6*0 + 0.4*80 = 32
	assert.Equal(t, "u-expert", result.AssignedUserID)
	assert.InDelta(t, 76.0, result.Score, 0.001)
	require.Len(t, result.Alternatives, 1)
	assert.InDelta(t, 32.0, result.Alternatives[0].Score, 0.001)
}

func TestAssignSkillBasedMatchingIsCaseInsensitive(t *testing.T) {
	candidates := []TeamMemberMetrics{
		member("u-expert", 0, 0, AvailabilityAvailable, "Billing"),
	}

	result := assignSkillBased(candidates, []string{"billing"})
	assert.InDelta(t, 100.0, result.Score, 0.001)
}

func TestAssignBalanced(t *testing.T) {
	candidates := []TeamMemberMetrics{
		member("u-away", 1, 10, AvailabilityAway),
		member("u-avail", 3, 25, AvailabilityAvailable),
	}

	result := assignBalanced(candidates)

	// away: 90; available: 75 + 20 bonus = 95
	assert.Equal(t, "u-avail", result.AssignedUserID)
	assert.InDelta(t, 95.0, result.Score, 0.001)
}

func TestDispatchStrategyUnknownFallsBackToLeastLoaded(t *testing.T) {
	candidates := []TeamMemberMetrics{
		member("u-ana", 5, 80, AvailabilityBusy),
		member("u-ben", 2, 30, AvailabilityAvailable),
	}

	result := dispatchStrategy("mystery", candidates, nil)

	assert.Equal(t, "u-ben", result.AssignedUserID)
	assert.Equal(t, StrategyType("mystery"), result.Strategy, "requested strategy is echoed back")
	assert.Contains(t, result.Reasoning, "least-loaded")
}
