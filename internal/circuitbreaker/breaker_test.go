package circuitbreaker

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ticketrouter/internal/common/errors"
)

func TestBreakerPassesThroughSuccess(t *testing.T) {
	b := New("test", DefaultConfig(), nil)

	result, err := b.Execute(func() (interface{}, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, result)
}

func TestBreakerPassesThroughFailure(t *testing.T) {
	b := New("test", DefaultConfig(), nil)

	boom := fmt.Errorf("boom")
	_, err := b.Execute(func() (interface{}, error) { return nil, boom })
	assert.Equal(t, boom, err, "failures below the threshold surface unchanged")
}

func TestBreakerTripsAfterConsecutiveFailures(t *testing.T) {
	cfg := Config{MaxFailures: 3, Timeout: time.Minute, MaxRequests: 1}
	b := New("test", cfg, nil)

	boom := fmt.Errorf("boom")
	for i := 0; i < 3; i++ {
		_, err := b.Execute(func() (interface{}, error) { return nil, boom })
		assert.Equal(t, boom, err)
	}

	calls := 0
	_, err := b.Execute(func() (interface{}, error) {
		calls++
		return 1, nil
	})
	assert.True(t, errors.IsType(err, errors.ErrTypeUnavailable), "open breaker rejects immediately")
	assert.Zero(t, calls, "rejected calls never reach the backend")
}

func TestBreakerResetsOnSuccess(t *testing.T) {
	cfg := Config{MaxFailures: 3, Timeout: time.Minute, MaxRequests: 1}
	b := New("test", cfg, nil)

	boom := fmt.Errorf("boom")
	for i := 0; i < 2; i++ {
		_, _ = b.Execute(func() (interface{}, error) { return nil, boom })
	}
	_, err := b.Execute(func() (interface{}, error) { return 1, nil })
	require.NoError(t, err)

	// The success above reset the consecutive-failure count.
	for i := 0; i < 2; i++ {
		_, _ = b.Execute(func() (interface{}, error) { return nil, boom })
	}
	_, err = b.Execute(func() (interface{}, error) { return 2, nil })
	assert.NoError(t, err)
}
