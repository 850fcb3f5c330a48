package assignment

import (
	"fmt"
	"sort"
	"strings"
)

// Strategy scoring constants.
const (
	// roundRobinBaseScore is fixed regardless of load: round-robin claims
	// fairness of rotation, not load optimality.
	roundRobinBaseScore = 60.0
	// alternativeDecay is subtracted per unit of distance (rank or extra
	// active tickets) when scoring runner-up candidates.
	alternativeDecay = 5.0
	// availabilityBonus rewards a fully available member under the balanced
	// strategy.
	availabilityBonus = 20.0
	// Weighting of skill match versus load headroom for skill-based
	// assignment.
	skillWeight = 0.6
	loadWeight  = 0.4

	maxAlternatives = 2
)

// dispatchStrategy runs the named strategy over a non-empty candidate pool.
// An unrecognized strategy type falls back to least-loaded.
func dispatchStrategy(strategyType StrategyType, candidates []TeamMemberMetrics, requiredSkills []string) *AssignmentResult {
	switch strategyType {
	case StrategyRoundRobin:
		return assignRoundRobin(candidates)
	case StrategyLeastLoaded:
		return assignLeastLoaded(candidates)
	case StrategySkillBased:
		return assignSkillBased(candidates, requiredSkills)
	case StrategyBalanced:
		return assignBalanced(candidates)
	default:
		result := assignLeastLoaded(candidates)
		result.Strategy = strategyType
		result.Reasoning += " (unrecognized strategy, used least-loaded)"
		return result
	}
}

// assignRoundRobin selects the candidate with the fewest active tickets.
// Ties keep input order. Alternatives decay by 5 points per extra active
// ticket relative to the winner.
func assignRoundRobin(candidates []TeamMemberMetrics) *AssignmentResult {
	ordered := make([]TeamMemberMetrics, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].ActiveTickets < ordered[j].ActiveTickets
	})

	winner := ordered[0]
	result := &AssignmentResult{
		Outcome:        OutcomeAssigned,
		AssignedUserID: winner.UserID,
		Strategy:       StrategyRoundRobin,
		Score:          roundRobinBaseScore,
		Reasoning:      fmt.Sprintf("round-robin: %s has the fewest active tickets (%d)", winner.UserID, winner.ActiveTickets),
	}

	for _, alt := range ordered[1:] {
		if len(result.Alternatives) == maxAlternatives {
			break
		}
		score := roundRobinBaseScore - alternativeDecay*float64(alt.ActiveTickets-winner.ActiveTickets)
		result.Alternatives = append(result.Alternatives, Candidate{UserID: alt.UserID, Score: clampScore(score)})
	}
	return result
}

// assignLeastLoaded selects the candidate with the lowest workload
// percentage. Score is the load headroom; alternatives additionally decay by
// 5 points per rank position.
func assignLeastLoaded(candidates []TeamMemberMetrics) *AssignmentResult {
	ordered := make([]TeamMemberMetrics, len(candidates))
	copy(ordered, candidates)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].WorkloadPercentage < ordered[j].WorkloadPercentage
	})

	winner := ordered[0]
	result := &AssignmentResult{
		Outcome:        OutcomeAssigned,
		AssignedUserID: winner.UserID,
		Strategy:       StrategyLeastLoaded,
		Score:          loadScore(winner.WorkloadPercentage),
		Reasoning:      fmt.Sprintf("least-loaded: %s is at %.0f%% workload", winner.UserID, winner.WorkloadPercentage),
	}

	for rank, alt := range ordered[1:] {
		if len(result.Alternatives) == maxAlternatives {
			break
		}
		score := loadScore(alt.WorkloadPercentage) - alternativeDecay*float64(rank+1)
		result.Alternatives = append(result.Alternatives, Candidate{UserID: alt.UserID, Score: clampScore(score)})
	}
	return result
}

// assignSkillBased combines skill coverage and load headroom, weighted
// 60/40. Ties keep input order.
func assignSkillBased(candidates []TeamMemberMetrics, requiredSkills []string) *AssignmentResult {
	required := len(requiredSkills)
	if required == 0 {
		required = 1
	}

	type scoredCandidate struct {
		member TeamMemberMetrics
		score  float64
	}
	scored := make([]scoredCandidate, len(candidates))
	for i, member := range candidates {
		skillScore := float64(countSkillMatches(member.Skills, requiredSkills)) / float64(required) * 100
		scored[i] = scoredCandidate{
			member: member,
			score:  skillWeight*skillScore + loadWeight*loadScore(member.WorkloadPercentage),
		}
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	winner := scored[0]
	result := &AssignmentResult{
		Outcome:        OutcomeAssigned,
		AssignedUserID: winner.member.UserID,
		Strategy:       StrategySkillBased,
		Score:          winner.score,
		Reasoning: fmt.Sprintf("skill-based: %s scored %.1f with skills [%s]",
			winner.member.UserID, winner.score, strings.Join(winner.member.Skills, ", ")),
	}

	for _, alt := range scored[1:] {
		if len(result.Alternatives) == maxAlternatives {
			break
		}
		result.Alternatives = append(result.Alternatives, Candidate{UserID: alt.member.UserID, Score: alt.score})
	}
	return result
}

// assignBalanced rewards load headroom and full availability equally: the
// availability bonus is worth 20 points of headroom.
func assignBalanced(candidates []TeamMemberMetrics) *AssignmentResult {
	type scoredCandidate struct {
		member TeamMemberMetrics
		score  float64
	}
	scored := make([]scoredCandidate, len(candidates))
	for i, member := range candidates {
		score := loadScore(member.WorkloadPercentage)
		if member.Availability == AvailabilityAvailable {
			score += availabilityBonus
		}
		scored[i] = scoredCandidate{member: member, score: score}
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].score > scored[j].score })

	winner := scored[0]
	result := &AssignmentResult{
		Outcome:        OutcomeAssigned,
		AssignedUserID: winner.member.UserID,
		Strategy:       StrategyBalanced,
		Score:          winner.score,
		Reasoning: fmt.Sprintf("balanced: %s at %.0f%% workload, %s",
			winner.member.UserID, winner.member.WorkloadPercentage, winner.member.Availability),
	}

	for _, alt := range scored[1:] {
		if len(result.Alternatives) == maxAlternatives {
			break
		}
		result.Alternatives = append(result.Alternatives, Candidate{UserID: alt.member.UserID, Score: alt.score})
	}
	return result
}

// loadScore converts workload percentage to headroom in [0, 100].
func loadScore(workloadPercentage float64) float64 {
	score := 100 - workloadPercentage
	if score < 0 {
		return 0
	}
	return score
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	return score
}
