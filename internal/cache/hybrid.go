package cache

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/sagelearn/sage-api/internal/metrics"
	"github.com/sagelearn/sage-api/internal/store"
)

// Config holds configuration for the hybrid cache.
type Config struct {
	// MemoryCapacity bounds the number of entries held in the memory tier.
	MemoryCapacity int

	// DefaultTTL is the freshness window applied when a call site does not
	// choose its own, and when memory entries are refilled from the
	// persistent tier.
	DefaultTTL time.Duration

	// SweepInterval controls how often the background sweep evicts expired
	// entries from both tiers. Zero disables the sweeper.
	SweepInterval time.Duration
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		MemoryCapacity: 100_000,
		DefaultTTL:     24 * time.Hour,
		SweepInterval:  time.Hour,
	}
}

// Hybrid is the two-tier generation cache. The memory tier answers most
// lookups; the persistent tier survives restarts and backfills the memory
// tier on a memory miss. Persistent-tier writes happen off the caller's
// path, and persistent-tier errors are always treated as a miss.
type Hybrid struct {
	mem     *memoryCache
	persist store.CacheStore
	config  Config
	logger  *slog.Logger
	metrics *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a hybrid cache over the given persistent tier. persist may be
// nil, which degrades the cache to memory-only. m may be nil to disable
// instrumentation.
func New(config Config, persist store.CacheStore, m *metrics.Metrics, logger *slog.Logger) *Hybrid {
	if config.MemoryCapacity <= 0 {
		config.MemoryCapacity = DefaultConfig().MemoryCapacity
	}
	if config.DefaultTTL <= 0 {
		config.DefaultTTL = DefaultConfig().DefaultTTL
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Hybrid{
		mem:     newMemoryCache(config.MemoryCapacity),
		persist: persist,
		config:  config,
		logger:  logger,
		metrics: m,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the periodic sweep of expired entries. It is a no-op when
// the sweep interval is zero.
func (h *Hybrid) Start() {
	if h.config.SweepInterval <= 0 {
		return
	}

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()

		ticker := time.NewTicker(h.config.SweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-h.ctx.Done():
				return
			case <-ticker.C:
				h.SweepExpired(h.ctx)
			}
		}
	}()
}

// Stop halts the sweeper and waits for any in-flight persistent-tier writes
// to finish.
func (h *Hybrid) Stop() {
	h.cancel()
	h.wg.Wait()
}

// Lookup returns the cached value for key, consulting the memory tier first
// and the persistent tier on a memory miss. A persistent hit refreshes the
// memory tier. Any persistent-tier error is treated as a miss.
func (h *Hybrid) Lookup(ctx context.Context, key string) (string, bool) {
	now := time.Now().UTC()

	if value, ok := h.mem.get(key, now); ok {
		h.recordHit()
		return value, true
	}

	if h.persist != nil {
		value, err := h.persist.Get(ctx, key)
		switch {
		case err == nil:
			h.mem.put(key, value, h.config.DefaultTTL, now)
			h.recordHit()
			return value, true
		case !store.IsNotFoundError(err):
			h.logger.Warn("persistent cache lookup failed, treating as miss",
				"error", err)
		}
	}

	h.recordMiss()
	return "", false
}

// Store writes the value to the memory tier immediately and to the
// persistent tier asynchronously, so cache population never blocks the
// caller. A non-positive ttl falls back to the configured default.
func (h *Hybrid) Store(ctx context.Context, key, value string, ttl time.Duration) {
	if ttl <= 0 {
		ttl = h.config.DefaultTTL
	}

	h.mem.put(key, value, ttl, time.Now().UTC())

	if h.persist == nil {
		return
	}

	// Detach from the caller's context: the write should survive the request
	// that triggered it, but not an application shutdown.
	writeCtx := context.WithoutCancel(ctx)

	h.wg.Add(1)
	go func() {
		defer h.wg.Done()

		writeCtx, cancel := context.WithTimeout(writeCtx, 10*time.Second)
		defer cancel()

		if err := h.persist.Put(writeCtx, key, value, ttl); err != nil {
			h.logger.Warn("persistent cache write failed",
				"error", err)
		}
	}()
}

// InvalidateAll drops every entry from both tiers.
func (h *Hybrid) InvalidateAll(ctx context.Context) {
	h.mem.purge()

	if h.persist != nil {
		if err := h.persist.PurgeAll(ctx); err != nil {
			h.logger.Warn("persistent cache purge failed", "error", err)
		}
	}
}

// SweepExpired eagerly removes expired entries from both tiers.
func (h *Hybrid) SweepExpired(ctx context.Context) {
	now := time.Now().UTC()
	removed := h.mem.removeExpired(now)

	var persisted int64
	if h.persist != nil {
		var err error
		persisted, err = h.persist.DeleteExpired(ctx)
		if err != nil {
			h.logger.Warn("persistent cache sweep failed", "error", err)
		}
	}

	if removed > 0 || persisted > 0 {
		h.logger.Debug("swept expired cache entries",
			"memory_removed", removed,
			"persistent_removed", persisted)
	}
}

// Len reports the number of live entries in the memory tier.
func (h *Hybrid) Len() int {
	return h.mem.len()
}

func (h *Hybrid) recordHit() {
	if h.metrics != nil {
		h.metrics.CacheHits.Inc()
	}
}

func (h *Hybrid) recordMiss() {
	if h.metrics != nil {
		h.metrics.CacheMisses.Inc()
	}
}
