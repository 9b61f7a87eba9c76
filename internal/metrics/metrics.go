// Package metrics registers the Prometheus instruments exposed on /metrics:
// cache hit/miss counters, scheduler queue gauges, and per-type job outcome
// counters.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the service.
type Metrics struct {
	// Cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	// Scheduler metrics
	QueueDepth    prometheus.Gauge
	ActiveWorkers prometheus.Gauge
	JobsProcessed *prometheus.CounterVec

	// Generation metrics
	GenerationCalls  *prometheus.CounterVec
	GenerationErrors *prometheus.CounterVec
}

var (
	metricsOnce   sync.Once
	sharedMetrics *Metrics
)

// New creates and registers all Prometheus metrics on the default registry.
// Repeated calls return the same instance so tests and wiring code cannot
// trigger duplicate-registration panics.
func New() *Metrics {
	metricsOnce.Do(func() {
		sharedMetrics = &Metrics{
			CacheHits: promauto.NewCounter(prometheus.CounterOpts{
				Name: "sage_cache_hits_total",
				Help: "Number of generation cache lookups served from either tier",
			}),
			CacheMisses: promauto.NewCounter(prometheus.CounterOpts{
				Name: "sage_cache_misses_total",
				Help: "Number of generation cache lookups that fell through to generation",
			}),
			QueueDepth: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "sage_scheduler_queue_depth",
				Help: "Number of jobs waiting in the in-memory queue",
			}),
			ActiveWorkers: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "sage_scheduler_active_workers",
				Help: "Number of workers currently executing a job",
			}),
			JobsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "sage_jobs_processed_total",
				Help: "Jobs processed by the scheduler, by type and terminal status",
			}, []string{"type", "status"}),
			GenerationCalls: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "sage_generation_calls_total",
				Help: "Calls made to the text-generation service, by operation",
			}, []string{"operation"}),
			GenerationErrors: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "sage_generation_errors_total",
				Help: "Failed text-generation calls, by operation",
			}, []string{"operation"}),
		}
	})
	return sharedMetrics
}
