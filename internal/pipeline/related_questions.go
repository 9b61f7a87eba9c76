package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sagelearn/sage-api/internal/cache"
	"github.com/sagelearn/sage-api/internal/domain"
	"github.com/sagelearn/sage-api/internal/generation"
	"github.com/sagelearn/sage-api/internal/metrics"
	"github.com/sagelearn/sage-api/internal/store"
	"github.com/sagelearn/sage-api/internal/task"
)

// QueryPayload is the payload carried by both top-level job types.
type QueryPayload struct {
	Query   string    `json:"query"`
	UserID  string    `json:"user_id,omitempty"`
	QueryID uuid.UUID `json:"query_id"`
}

// relatedQuestionsResult is the job result recorded for a completed
// related-questions job.
type relatedQuestionsResult struct {
	RelatedQuestions []domain.RelatedQuestion `json:"related_questions"`
	ProcessingTime   float64                  `json:"processing_time"`
}

// RelatedQuestionsHandler executes related_questions jobs: cache-or-generate,
// decode with manual fallback, upsert keyed by query_id.
type RelatedQuestionsHandler struct {
	stageDeps
	content store.ContentStore
	logger  *slog.Logger
}

// NewRelatedQuestionsHandler creates the handler for related_questions jobs.
func NewRelatedQuestionsHandler(
	c *cache.Hybrid,
	client generation.Client,
	content store.ContentStore,
	m *metrics.Metrics,
	cacheTTL time.Duration,
	logger *slog.Logger,
) (*RelatedQuestionsHandler, error) {
	if c == nil {
		return nil, ErrNilCache
	}
	if client == nil {
		return nil, ErrNilClient
	}
	if content == nil {
		return nil, ErrNilContent
	}
	if logger == nil {
		return nil, ErrNilLogger
	}

	return &RelatedQuestionsHandler{
		stageDeps: stageDeps{cache: c, client: client, metrics: m, cacheTTL: cacheTTL},
		content:   content,
		logger:    logger.With("job_type", task.TypeRelatedQuestions),
	}, nil
}

// Type returns the job type this handler executes.
func (h *RelatedQuestionsHandler) Type() string {
	return task.TypeRelatedQuestions
}

// Handle runs one related_questions job. Parse failures (after the manual
// fallback) surface as the job's terminal error; no automatic retry.
func (h *RelatedQuestionsHandler) Handle(ctx context.Context, job *task.Job) (json.RawMessage, error) {
	start := time.Now()

	var payload QueryPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, fmt.Errorf("invalid related_questions payload: %w", err)
	}

	raw, err := h.generateWithCache(ctx, opRelatedQuestions, payload.Query, payload.Query, relatedQuestionsInstructions)
	if err != nil {
		return nil, err
	}

	questions, err := DecodeRelatedQuestions(raw)
	if err != nil {
		return nil, err
	}

	questionsJSON, err := json.Marshal(questions)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal related questions: %w", err)
	}

	elapsed := time.Since(start).Seconds()
	if err := h.content.UpsertRelatedQuestions(ctx, payload.QueryID, questionsJSON, elapsed); err != nil {
		return nil, fmt.Errorf("failed to persist related questions: %w", err)
	}

	h.logger.Info("related questions generated",
		"query_id", payload.QueryID,
		"count", len(questions))

	return json.Marshal(relatedQuestionsResult{
		RelatedQuestions: questions,
		ProcessingTime:   elapsed,
	})
}
