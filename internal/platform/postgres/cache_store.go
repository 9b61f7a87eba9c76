package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"time"

	"github.com/sagelearn/sage-api/internal/store"
)

// PostgresCacheStore implements the store.CacheStore interface using
// PostgreSQL. Expiry is sliding: an entry is live while now minus its
// last-accessed timestamp stays within its TTL, and every Get refreshes the
// timestamp.
type PostgresCacheStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresCacheStore creates a new PostgresCacheStore.
func NewPostgresCacheStore(db store.DBTX, logger *slog.Logger) *PostgresCacheStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresCacheStore{
		db:     db,
		logger: logger.With("component", "cache_store"),
	}
}

// Get retrieves the cached value for a fingerprint and refreshes its
// last-accessed timestamp. An expired entry is deleted lazily and reported
// as a miss.
func (s *PostgresCacheStore) Get(ctx context.Context, fingerprint string) (string, error) {
	now := time.Now().UTC()

	// The UPDATE touches only live entries, returning the value in the same
	// round trip. A dead entry falls through to the miss path below.
	query := `
		UPDATE cache_entries
		SET last_accessed_at = $1
		WHERE fingerprint = $2
		  AND last_accessed_at > $1 - make_interval(secs => ttl_seconds)
		RETURNING value
	`

	var value string
	err := s.db.QueryRowContext(ctx, query, now, fingerprint).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Lazily remove the entry if it exists but has expired.
			if _, delErr := s.db.ExecContext(ctx,
				`DELETE FROM cache_entries WHERE fingerprint = $1 AND last_accessed_at <= $2 - make_interval(secs => ttl_seconds)`,
				fingerprint, now); delErr != nil {
				s.logger.Warn("failed to delete expired cache entry",
					"fingerprint", fingerprint,
					"error", delErr)
			}
			return "", store.ErrCacheMiss
		}
		return "", store.NewStoreError("cache_entry", "get", "failed to query", MapError(err))
	}

	return value, nil
}

// Put inserts or replaces the cached value for a fingerprint.
func (s *PostgresCacheStore) Put(ctx context.Context, fingerprint, value string, ttl time.Duration) error {
	query := `
		INSERT INTO cache_entries (fingerprint, value, ttl_seconds, last_accessed_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (fingerprint) DO UPDATE
		SET value = EXCLUDED.value,
		    ttl_seconds = EXCLUDED.ttl_seconds,
		    last_accessed_at = EXCLUDED.last_accessed_at
	`

	_, err := s.db.ExecContext(ctx, query, fingerprint, value, ttl.Seconds(), time.Now().UTC())
	if err != nil {
		return store.NewStoreError("cache_entry", "put", "failed to upsert", MapError(err))
	}

	return nil
}

// DeleteExpired removes all expired entries and reports how many were
// deleted.
func (s *PostgresCacheStore) DeleteExpired(ctx context.Context) (int64, error) {
	query := `
		DELETE FROM cache_entries
		WHERE last_accessed_at <= $1 - make_interval(secs => ttl_seconds)
	`

	res, err := s.db.ExecContext(ctx, query, time.Now().UTC())
	if err != nil {
		return 0, store.NewStoreError("cache_entry", "delete_expired", "failed to delete", MapError(err))
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, store.NewStoreError("cache_entry", "delete_expired", "failed to get rows affected", err)
	}

	return deleted, nil
}

// PurgeAll removes every entry.
func (s *PostgresCacheStore) PurgeAll(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM cache_entries`); err != nil {
		return store.NewStoreError("cache_entry", "purge", "failed to delete all", MapError(err))
	}
	return nil
}
