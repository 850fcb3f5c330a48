// Package cache provides the caching primitives used by the routing and
// assignment engines.
//
// Two distinct layers live here:
//
//  1. SnapshotMap: a per-process, typed TTL map holding derived snapshots
//     (the active rule set, per-team member metrics). Entries read as misses
//     once their refresh window expires, which is how both engines bound the
//     staleness of the data they score against.
//
//  2. Cache: a shared untyped cache behind local (patrickmn/go-cache) or
//     Redis backends, used for cross-request artifacts such as precomputed
//     team workload statistics.
//
// There is no cross-process coordination for SnapshotMap; each process
// instance maintains its own TTL window.
package cache
