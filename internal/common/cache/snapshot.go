package cache

import (
	"sync"
	"time"
)

// Clock abstracts wall-clock access so TTL behavior can be tested
// deterministically.
type Clock interface {
	Now() time.Time
}

// RealClock is the production Clock backed by time.Now.
type RealClock struct{}

// Now returns the current time
func (RealClock) Now() time.Time { return time.Now() }

type snapshotEntry[V any] struct {
	value     V
	refreshed time.Time
}

// SnapshotMap is a small keyed TTL cache for derived snapshots (rule sets,
// team metrics). Entries are valid for a fixed window after their last
// refresh; a stale entry reads as a miss. The map performs no locking around
// refreshes, so two callers racing on a miss may both recompute. Refreshes
// are idempotent reads, so that is accepted.
type SnapshotMap[V any] struct {
	mu      sync.RWMutex
	ttl     time.Duration
	clock   Clock
	entries map[string]snapshotEntry[V]
}

// NewSnapshotMap creates a SnapshotMap with the given TTL. A nil clock
// defaults to RealClock.
func NewSnapshotMap[V any](ttl time.Duration, clock Clock) *SnapshotMap[V] {
	if clock == nil {
		clock = RealClock{}
	}
	return &SnapshotMap[V]{
		ttl:     ttl,
		clock:   clock,
		entries: make(map[string]snapshotEntry[V]),
	}
}

// Get returns the cached value for key. The second return is false when the
// key is absent or its entry has exceeded the TTL window.
func (m *SnapshotMap[V]) Get(key string) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[key]
	if !ok {
		var zero V
		return zero, false
	}
	if m.clock.Now().Sub(entry.refreshed) > m.ttl {
		var zero V
		return zero, false
	}
	return entry.value, true
}

// Set stores a value for key with the refresh timestamp set to now.
func (m *SnapshotMap[V]) Set(key string, value V) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[key] = snapshotEntry[V]{value: value, refreshed: m.clock.Now()}
}

// Delete removes a single key.
func (m *SnapshotMap[V]) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
}

// Clear drops all entries, forcing recomputation on next access.
func (m *SnapshotMap[V]) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]snapshotEntry[V])
}

// Len returns the number of entries, stale ones included.
func (m *SnapshotMap[V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
