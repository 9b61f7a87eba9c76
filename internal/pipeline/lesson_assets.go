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

// LessonAssetsPayload is the payload for a durable lesson_assets job. The
// lesson travels in the payload so a recovered job does not depend on the
// parent's result.
type LessonAssetsPayload struct {
	QueryID     uuid.UUID     `json:"query_id"`
	LessonIndex int           `json:"lesson_index"`
	Lesson      domain.Lesson `json:"lesson"`
}

// AssetsResult summarizes one lesson's generated flashcards and quiz.
type AssetsResult struct {
	LessonIndex    int `json:"lesson_index"`
	Flashcards     int `json:"flashcards"`
	TrueFalse      int `json:"true_false_questions"`
	MultipleChoice int `json:"multiple_choice_questions"`
}

// AssetsGenerator produces the flashcards-then-quiz sub-pipeline for one
// lesson. It is shared by the fire-and-forget path inside the lessons
// handler and the durable lesson_assets job handler, so both scheduling
// modes have identical semantics.
type AssetsGenerator struct {
	stageDeps
	content store.ContentStore
	logger  *slog.Logger
}

// NewAssetsGenerator creates an AssetsGenerator.
func NewAssetsGenerator(
	c *cache.Hybrid,
	client generation.Client,
	content store.ContentStore,
	m *metrics.Metrics,
	cacheTTL time.Duration,
	logger *slog.Logger,
) (*AssetsGenerator, error) {
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

	return &AssetsGenerator{
		stageDeps: stageDeps{cache: c, client: client, metrics: m, cacheTTL: cacheTTL},
		content:   content,
		logger:    logger,
	}, nil
}

// Generate runs the sub-pipeline for one lesson: flashcards first, then the
// quiz derived from those flashcards. Each artifact is upserted under
// (queryID, lessonIndex) as soon as it is ready, so a later quiz failure
// never discards persisted flashcards.
func (g *AssetsGenerator) Generate(ctx context.Context, queryID uuid.UUID, lessonIndex int, lesson domain.Lesson) (*AssetsResult, error) {
	logger := g.logger.With("query_id", queryID, "lesson_index", lessonIndex)

	lessonJSON, err := json.Marshal(lesson)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal lesson: %w", err)
	}

	start := time.Now()
	rawCards, err := g.generateWithCache(ctx, opFlashcards, lesson, lessonPrompt(lesson), flashcardsInstructions)
	if err != nil {
		return nil, fmt.Errorf("flashcards for lesson %d: %w", lessonIndex, err)
	}

	cards, err := DecodeFlashcards(rawCards)
	if err != nil {
		return nil, fmt.Errorf("flashcards for lesson %d: %w", lessonIndex, err)
	}

	cardsJSON, err := json.Marshal(cards)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal flashcards: %w", err)
	}

	if err := g.content.UpsertFlashcards(ctx, queryID, lessonIndex, lessonJSON, cardsJSON, time.Since(start).Seconds()); err != nil {
		return nil, fmt.Errorf("failed to persist flashcards for lesson %d: %w", lessonIndex, err)
	}
	logger.Info("flashcards generated", "count", len(cards))

	quizStart := time.Now()
	rawQuiz, err := g.generateWithCache(ctx, opQuiz, cards, flashcardsPrompt(cards), quizInstructions)
	if err != nil {
		return nil, fmt.Errorf("quiz for lesson %d: %w", lessonIndex, err)
	}

	quiz, err := DecodeQuiz(rawQuiz)
	if err != nil {
		return nil, fmt.Errorf("quiz for lesson %d: %w", lessonIndex, err)
	}

	quizJSON, err := json.Marshal(quiz)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal quiz: %w", err)
	}

	if err := g.content.UpsertQuiz(ctx, queryID, lessonIndex, quizJSON, time.Since(quizStart).Seconds()); err != nil {
		return nil, fmt.Errorf("failed to persist quiz for lesson %d: %w", lessonIndex, err)
	}
	logger.Info("quiz generated",
		"true_false", len(quiz.TrueFalse),
		"multiple_choice", len(quiz.MultipleChoice))

	return &AssetsResult{
		LessonIndex:    lessonIndex,
		Flashcards:     len(cards),
		TrueFalse:      len(quiz.TrueFalse),
		MultipleChoice: len(quiz.MultipleChoice),
	}, nil
}

// LessonAssetsHandler executes durable lesson_assets jobs. Only registered
// when pipeline.durable_lesson_assets is enabled.
type LessonAssetsHandler struct {
	assets *AssetsGenerator
}

// NewLessonAssetsHandler creates the handler for lesson_assets jobs.
func NewLessonAssetsHandler(assets *AssetsGenerator) (*LessonAssetsHandler, error) {
	if assets == nil {
		return nil, ErrNilAssets
	}
	return &LessonAssetsHandler{assets: assets}, nil
}

// Type returns the job type this handler executes.
func (h *LessonAssetsHandler) Type() string {
	return task.TypeLessonAssets
}

// Handle runs one lesson_assets job.
func (h *LessonAssetsHandler) Handle(ctx context.Context, job *task.Job) (json.RawMessage, error) {
	var payload LessonAssetsPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, fmt.Errorf("invalid lesson_assets payload: %w", err)
	}

	result, err := h.assets.Generate(ctx, payload.QueryID, payload.LessonIndex, payload.Lesson)
	if err != nil {
		return nil, err
	}

	return json.Marshal(result)
}
