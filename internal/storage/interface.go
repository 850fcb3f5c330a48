// Package storage defines the persistence boundary of the service and its
// adapters. Rules and feedback are the system of record for routing; team
// members carry the directory and workload snapshot consumed by assignment.
package storage

import (
	"context"

	"ticketrouter/internal/assignment"
	"ticketrouter/internal/routing"
	"ticketrouter/internal/rules"
)

// Storage is the full persistence contract. It subsumes the rules
// repository and adds the team directory and metrics reads the assignment
// engine consumes.
type Storage interface {
	rules.Repository

	// ListFeedback returns the append-only feedback history of one rule.
	ListFeedback(ctx context.Context, ruleID string) ([]routing.RoutingFeedback, error)

	// TeamMembers returns the current member list of a team.
	TeamMembers(ctx context.Context, teamID string) ([]assignment.TeamMember, error)

	// MemberMetrics returns workload metrics for the given member IDs.
	MemberMetrics(ctx context.Context, userIDs []string) ([]assignment.TeamMemberMetrics, error)

	// UpsertTeamMember creates or replaces one member row including its
	// workload snapshot. Used by seeding and the admin surface.
	UpsertTeamMember(ctx context.Context, teamID string, member assignment.TeamMember, metrics assignment.TeamMemberMetrics) error

	Close() error
	Health() error
}
