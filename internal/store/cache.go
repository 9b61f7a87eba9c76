package store

import (
	"context"
	"time"
)

// CacheStore defines the persistent tier of the generation cache.
//
// Entries expire independently of the memory tier: an entry is stale once
// now - last_accessed_at exceeds its TTL. Implementations must treat a stale
// entry as absent on Get.
//
// Callers never depend on this store for forward progress: any error is
// swallowed at the cache boundary and treated as a miss.
// Version: 1.0
type CacheStore interface {
	// Get retrieves the cached value for a fingerprint and refreshes its
	// last-accessed timestamp. Returns ErrCacheMiss if the entry is absent
	// or expired.
	Get(ctx context.Context, fingerprint string) (string, error)

	// Put inserts or replaces the cached value for a fingerprint with the
	// given TTL.
	Put(ctx context.Context, fingerprint, value string, ttl time.Duration) error

	// DeleteExpired removes all expired entries and reports how many were
	// deleted.
	DeleteExpired(ctx context.Context) (int64, error)

	// PurgeAll removes every entry.
	PurgeAll(ctx context.Context) error
}
