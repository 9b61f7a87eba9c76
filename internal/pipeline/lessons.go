package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sagelearn/sage-api/internal/cache"
	"github.com/sagelearn/sage-api/internal/domain"
	"github.com/sagelearn/sage-api/internal/generation"
	"github.com/sagelearn/sage-api/internal/metrics"
	"github.com/sagelearn/sage-api/internal/store"
	"github.com/sagelearn/sage-api/internal/task"
)

// Submitter enqueues durable jobs. Satisfied by *task.Scheduler; declared
// here so the handler does not depend on the concrete scheduler.
type Submitter interface {
	Submit(ctx context.Context, jobType string, payload any) (uuid.UUID, error)
}

// lessonsResult is the job result recorded for a completed lessons job.
type lessonsResult struct {
	Lessons        []domain.Lesson `json:"lessons"`
	ProcessingTime float64         `json:"processing_time"`
}

// LessonsHandler executes lessons jobs: cache-or-generate the lesson list,
// upsert it keyed by query_id, then spawn one flashcards+quiz sub-pipeline
// per lesson.
//
// The sub-pipelines run either as fire-and-forget goroutines outside the
// worker pool's accounting (the default) or as durable lesson_assets jobs
// on the same queue, depending on configuration. A sub-pipeline failure is
// isolated to its lesson: siblings proceed, and the parent job has already
// completed.
type LessonsHandler struct {
	stageDeps
	content       store.ContentStore
	assets        *AssetsGenerator
	submitter     Submitter
	durableAssets bool
	logger        *slog.Logger

	// wg tracks fire-and-forget sub-pipelines so shutdown can drain them.
	wg sync.WaitGroup
}

// NewLessonsHandler creates the handler for lessons jobs. submitter is
// required only when durableAssets is true.
func NewLessonsHandler(
	c *cache.Hybrid,
	client generation.Client,
	content store.ContentStore,
	assets *AssetsGenerator,
	submitter Submitter,
	durableAssets bool,
	m *metrics.Metrics,
	cacheTTL time.Duration,
	logger *slog.Logger,
) (*LessonsHandler, error) {
	if c == nil {
		return nil, ErrNilCache
	}
	if client == nil {
		return nil, ErrNilClient
	}
	if content == nil {
		return nil, ErrNilContent
	}
	if assets == nil {
		return nil, ErrNilAssets
	}
	if durableAssets && submitter == nil {
		return nil, ErrNilSubmitter
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	return &LessonsHandler{
		stageDeps:     stageDeps{cache: c, client: client, metrics: m, cacheTTL: cacheTTL},
		content:       content,
		assets:        assets,
		submitter:     submitter,
		durableAssets: durableAssets,
		logger:        logger.With("job_type", task.TypeLessons),
	}, nil
}

// Type returns the job type this handler executes.
func (h *LessonsHandler) Type() string {
	return task.TypeLessons
}

// Handle runs one lessons job.
func (h *LessonsHandler) Handle(ctx context.Context, job *task.Job) (json.RawMessage, error) {
	start := time.Now()

	var payload QueryPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, fmt.Errorf("invalid lessons payload: %w", err)
	}

	raw, err := h.generateWithCache(ctx, opLessons, payload.Query, payload.Query, lessonsInstructions)
	if err != nil {
		return nil, err
	}

	lessons, err := DecodeLessons(raw)
	if err != nil {
		return nil, err
	}

	lessonsJSON, err := json.Marshal(lessons)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal lessons: %w", err)
	}

	elapsed := time.Since(start).Seconds()
	if err := h.content.UpsertLessons(ctx, payload.QueryID, lessonsJSON, elapsed); err != nil {
		return nil, fmt.Errorf("failed to persist lessons: %w", err)
	}

	h.logger.Info("lessons generated",
		"query_id", payload.QueryID,
		"count", len(lessons))

	h.spawnAssetPipelines(ctx, payload.QueryID, lessons)

	return json.Marshal(lessonsResult{
		Lessons:        lessons,
		ProcessingTime: elapsed,
	})
}

// spawnAssetPipelines launches one flashcards+quiz sub-pipeline per lesson,
// concurrently and independently. Flashcard-before-quiz ordering holds
// within a lesson; no ordering holds across lessons.
func (h *LessonsHandler) spawnAssetPipelines(ctx context.Context, queryID uuid.UUID, lessons []domain.Lesson) {
	for i, lesson := range lessons {
		if h.durableAssets {
			_, err := h.submitter.Submit(ctx, task.TypeLessonAssets, LessonAssetsPayload{
				QueryID:     queryID,
				LessonIndex: i,
				Lesson:      lesson,
			})
			if err != nil {
				// Isolated: siblings and the parent job proceed.
				h.logger.Error("failed to enqueue lesson assets job",
					"query_id", queryID,
					"lesson_index", i,
					"error", err)
			}
			continue
		}

		h.wg.Add(1)
		go func(lessonIndex int, lesson domain.Lesson) {
			defer h.wg.Done()

			// The parent job completes before these finish; detach from its
			// execution context so a worker-side cancellation cannot abort
			// sub-pipelines mid-write.
			assetCtx := context.WithoutCancel(ctx)
			if _, err := h.assets.Generate(assetCtx, queryID, lessonIndex, lesson); err != nil {
				h.logger.Error("lesson asset generation failed",
					"query_id", queryID,
					"lesson_index", lessonIndex,
					"error", err)
			}
		}(i, lesson)
	}
}

// Wait blocks until all fire-and-forget sub-pipelines have finished. Used
// on shutdown and in tests; durable sub-jobs are tracked by the scheduler
// instead.
func (h *LessonsHandler) Wait() {
	h.wg.Wait()
}
