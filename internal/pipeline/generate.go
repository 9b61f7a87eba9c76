package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/sagelearn/sage-api/internal/cache"
	"github.com/sagelearn/sage-api/internal/generation"
	"github.com/sagelearn/sage-api/internal/metrics"
)

// stageDeps bundles the collaborators every stage shares: the hybrid cache
// in front of the generation client, plus instrumentation.
type stageDeps struct {
	cache    *cache.Hybrid
	client   generation.Client
	metrics  *metrics.Metrics
	cacheTTL time.Duration
}

// generateWithCache resolves one generation call through the cache.
// fingerprintInput is the value hashed into the cache key (a string for the
// query stages, the structured lesson/flashcards for the per-lesson stages);
// prompt is the text actually sent to the service on a miss. The resolved
// value is written back fire-and-forget, so population never blocks the
// pipeline.
func (d stageDeps) generateWithCache(ctx context.Context, op string, fingerprintInput any, prompt, instructions string) (string, error) {
	key := cache.Fingerprint(op, fingerprintInput, instructions)

	if value, ok := d.cache.Lookup(ctx, key); ok {
		return value, nil
	}

	if d.metrics != nil {
		d.metrics.GenerationCalls.WithLabelValues(op).Inc()
	}

	text, err := d.client.Generate(ctx, prompt, instructions)
	if err != nil {
		if d.metrics != nil {
			d.metrics.GenerationErrors.WithLabelValues(op).Inc()
		}
		return "", fmt.Errorf("%s generation failed: %w", op, err)
	}

	d.cache.Store(ctx, key, text, d.cacheTTL)
	return text, nil
}
