// Package circuitbreaker wraps sony/gobreaker for guarding calls to the team
// directory and metrics backends. A tripped breaker fails fast instead of
// stacking up slow queries behind a struggling database.
package circuitbreaker

import (
	"time"

	"github.com/sony/gobreaker"

	"ticketrouter/internal/common/errors"
	"ticketrouter/internal/common/logging"
)

// Config tunes a circuit breaker.
type Config struct {
	// MaxFailures is the consecutive-failure count that trips the breaker.
	MaxFailures uint32
	// Timeout is how long the breaker stays open before probing again.
	Timeout time.Duration
	// MaxRequests bounds probe requests in the half-open state.
	MaxRequests uint32
}

// DefaultConfig returns conservative breaker settings.
func DefaultConfig() Config {
	return Config{
		MaxFailures: 5,
		Timeout:     30 * time.Second,
		MaxRequests: 1,
	}
}

// Breaker guards a named dependency.
type Breaker struct {
	name    string
	breaker *gobreaker.CircuitBreaker
}

// New creates a breaker for the named dependency.
func New(name string, cfg Config, logger logging.Logger) *Breaker {
	if logger == nil {
		logger = logging.GetGlobalLogger()
	}

	settings := gobreaker.Settings{
		Name:        name,
		MaxRequests: cfg.MaxRequests,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.MaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				logging.String("breaker", name),
				logging.String("from", from.String()),
				logging.String("to", to.String()),
			)
		},
	}

	return &Breaker{
		name:    name,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// Execute runs fn through the breaker. When the breaker is open the call is
// rejected immediately with an unavailable error.
func (b *Breaker) Execute(fn func() (interface{}, error)) (interface{}, error) {
	result, err := b.breaker.Execute(fn)
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return nil, errors.UnavailableError(b.name, err)
	}
	return result, err
}
