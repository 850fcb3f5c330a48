// Package directory adapts storage into the team directory and metrics
// source consumed by the assignment engine, with an optional circuit breaker
// between the engine and the database.
package directory

import (
	"context"

	"ticketrouter/internal/assignment"
	"ticketrouter/internal/circuitbreaker"
	"ticketrouter/internal/common/logging"
)

// Backend is the slice of storage the directory needs.
type Backend interface {
	TeamMembers(ctx context.Context, teamID string) ([]assignment.TeamMember, error)
	MemberMetrics(ctx context.Context, userIDs []string) ([]assignment.TeamMemberMetrics, error)
}

// StorageDirectory implements assignment.TeamDirectory and
// assignment.MetricsSource over a storage backend.
type StorageDirectory struct {
	backend Backend
	breaker *circuitbreaker.Breaker
}

// New creates a directory over the backend. A nil breaker disables the guard.
func New(backend Backend, breaker *circuitbreaker.Breaker) *StorageDirectory {
	return &StorageDirectory{backend: backend, breaker: breaker}
}

// NewGuarded creates a directory with a default-configured breaker in front
// of the backend.
func NewGuarded(backend Backend, logger logging.Logger) *StorageDirectory {
	return New(backend, circuitbreaker.New("team-directory", circuitbreaker.DefaultConfig(), logger))
}

// TeamMembers implements assignment.TeamDirectory.
func (d *StorageDirectory) TeamMembers(ctx context.Context, teamID string) ([]assignment.TeamMember, error) {
	if d.breaker == nil {
		return d.backend.TeamMembers(ctx, teamID)
	}

	result, err := d.breaker.Execute(func() (interface{}, error) {
		return d.backend.TeamMembers(ctx, teamID)
	})
	if err != nil {
		return nil, err
	}
	return result.([]assignment.TeamMember), nil
}

// MemberMetrics implements assignment.MetricsSource.
func (d *StorageDirectory) MemberMetrics(ctx context.Context, userIDs []string) ([]assignment.TeamMemberMetrics, error) {
	if d.breaker == nil {
		return d.backend.MemberMetrics(ctx, userIDs)
	}

	result, err := d.breaker.Execute(func() (interface{}, error) {
		return d.backend.MemberMetrics(ctx, userIDs)
	})
	if err != nil {
		return nil, err
	}
	return result.([]assignment.TeamMemberMetrics), nil
}
