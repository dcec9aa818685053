package main

import (
	"strconv"
	"sync"
	"time"
)

const (
	// Replay protection must outlive the auth skew window, otherwise a
	// captured request could be resubmitted right after its cache entry
	// expires while its timestamp is still fresh.
	defaultNonceRetention = 5 * time.Minute

	nonceCleanupTargetFraction = 10   // Target: cleanup when ~1/10th of cache size new entries added
	nonceMinCleanupInterval    = 10   // Minimum cleanup interval in operations
	nonceMaxCleanupInterval    = 1000 // Maximum cleanup interval in operations
)

// NonceCache is a thread-safe record of (timestamp, nonce) pairs that have
// already been accepted, used to reject replayed requests within the
// retention window.
//
// Expired entries are removed lazily on Add, not by a background timer:
//   - If additions stop, stale entries remain until the next Add()
//   - Expired entries are treated as absent by Seen()
//   - The cache cannot grow unbounded because every accepted request
//     eventually triggers a sweep
type NonceCache struct {
	entries        map[string]int64 // pair key -> expiry timestamp (Unix ms)
	mu             sync.RWMutex
	retention      time.Duration
	cleanupCounter int
	cleanupEvery   int // Recalculated from cache size after each sweep
}

// NewNonceCache creates a replay cache holding entries for the given retention.
func NewNonceCache(retention time.Duration) *NonceCache {
	return &NonceCache{
		entries:      make(map[string]int64),
		retention:    retention,
		cleanupEvery: nonceMinCleanupInterval,
	}
}

// noncePairKey builds the cache key for a (timestamp, nonce) pair.
func noncePairKey(timestamp int64, nonce string) string {
	return strconv.FormatInt(timestamp, 10) + ":" + nonce
}

// AddIfAbsent records the (timestamp, nonce) pair unless a live entry for it
// already exists, reporting whether the record was inserted. Check and insert
// happen under one lock, so concurrent duplicates resolve to a single winner.
// Expired entries count as absent and are overwritten. Periodically sweeps
// expired entries.
func (nc *NonceCache) AddIfAbsent(timestamp int64, nonce string) bool {
	nc.mu.Lock()
	defer nc.mu.Unlock()

	key := noncePairKey(timestamp, nonce)
	now := time.Now()
	if expiryTime, exists := nc.entries[key]; exists && now.UnixMilli() <= expiryTime {
		return false
	}
	nc.entries[key] = now.Add(nc.retention).UnixMilli()

	// Lazy cleanup every N operations
	nc.cleanupCounter++
	if nc.cleanupCounter >= nc.cleanupEvery {
		nc.cleanupExpiredLocked()
		nc.recalculateCleanupInterval()
		nc.cleanupCounter = 0
	}
	return true
}

// Seen reports whether the (timestamp, nonce) pair was already accepted and
// its entry has not expired.
func (nc *NonceCache) Seen(timestamp int64, nonce string) bool {
	nc.mu.RLock()
	defer nc.mu.RUnlock()

	expiryTime, exists := nc.entries[noncePairKey(timestamp, nonce)]
	if !exists {
		return false
	}

	return time.Now().UnixMilli() <= expiryTime
}

// cleanupExpiredLocked removes all expired entries. The caller must hold
// nc.mu; Add performs insertion and cleanup in a single critical section.
func (nc *NonceCache) cleanupExpiredLocked() {
	now := time.Now().UnixMilli()
	for key, expiryTime := range nc.entries {
		if now > expiryTime {
			delete(nc.entries, key)
		}
	}
}

// recalculateCleanupInterval adjusts the sweep frequency to the cache size,
// targeting a sweep after ~1/nonceCleanupTargetFraction of the cache size in
// new entries, bounded between the min and max intervals.
func (nc *NonceCache) recalculateCleanupInterval() {
	interval := len(nc.entries) / nonceCleanupTargetFraction

	if interval < nonceMinCleanupInterval {
		nc.cleanupEvery = nonceMinCleanupInterval
	} else if interval > nonceMaxCleanupInterval {
		nc.cleanupEvery = nonceMaxCleanupInterval
	} else {
		nc.cleanupEvery = interval
	}
}
