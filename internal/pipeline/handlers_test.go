package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagelearn/sage-api/internal/cache"
	"github.com/sagelearn/sage-api/internal/domain"
	"github.com/sagelearn/sage-api/internal/generation"
	"github.com/sagelearn/sage-api/internal/store"
	"github.com/sagelearn/sage-api/internal/task"
)

// stubClient returns canned responses chosen by the stage instructions and,
// for per-lesson stages, by the prompt content. failWhen can force a
// transport error for matching prompts.
type stubClient struct {
	mu       sync.Mutex
	calls    int
	failWhen func(input, instructions string) bool
}

func (c *stubClient) Generate(ctx context.Context, input, instructions string) (string, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()

	if c.failWhen != nil && c.failWhen(input, instructions) {
		return "", fmt.Errorf("%w: connection reset", generation.ErrTransport)
	}

	switch instructions {
	case relatedQuestionsInstructions:
		return validQuestionsJSON, nil
	case lessonsInstructions:
		return lessonsResponse(5), nil
	case flashcardsInstructions:
		return `{"flashcards": {"cards": [
			{"term": "Term A", "explanation": "Explanation A."},
			{"term": "Term B", "explanation": "Explanation B."}
		]}}`, nil
	case quizInstructions:
		return `{"quiz": {
			"true_false_questions": [
				{"question": "Is this true?", "correct_answer": true, "explanation": "Yes."}
			],
			"multiple_choice_questions": [
				{"question": "Pick one.", "options": ["a", "b", "c", "d"],
				 "correct_answer": 1, "explanation": "Because."}
			]
		}}`, nil
	default:
		return "", fmt.Errorf("unexpected instructions: %q", instructions)
	}
}

func (c *stubClient) GenerateFromHistory(ctx context.Context, history []generation.Message, instructions string) (string, error) {
	if err := generation.ValidateHistory(history); err != nil {
		return "", err
	}
	return c.Generate(ctx, history[len(history)-1].Content, instructions)
}

func (c *stubClient) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

// lessonsResponse builds a valid lessons payload with n lessons.
func lessonsResponse(n int) string {
	lessons := make([]domain.Lesson, n)
	for i := range lessons {
		lessons[i] = domain.Lesson{
			Title:    fmt.Sprintf("Lesson %d", i),
			Overview: fmt.Sprintf("Overview for lesson %d.", i),
		}
	}
	data, _ := json.Marshal(map[string]any{"lessons": lessons})
	return string(data)
}

// fakeContentStore records upserts in memory.
type fakeContentStore struct {
	mu         sync.Mutex
	questions  map[uuid.UUID]json.RawMessage
	lessons    map[uuid.UUID]json.RawMessage
	flashcards map[int]json.RawMessage
	quizzes    map[int]json.RawMessage
}

func newFakeContentStore() *fakeContentStore {
	return &fakeContentStore{
		questions:  make(map[uuid.UUID]json.RawMessage),
		lessons:    make(map[uuid.UUID]json.RawMessage),
		flashcards: make(map[int]json.RawMessage),
		quizzes:    make(map[int]json.RawMessage),
	}
}

func (f *fakeContentStore) UpsertRelatedQuestions(ctx context.Context, queryID uuid.UUID, questions json.RawMessage, processingTime float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.questions[queryID] = questions
	return nil
}

func (f *fakeContentStore) GetRelatedQuestions(ctx context.Context, queryID uuid.UUID) (*store.RelatedQuestionsRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.questions[queryID]
	if !ok {
		return nil, store.ErrRelatedQuestionsNotFound
	}
	return &store.RelatedQuestionsRecord{QueryID: queryID, Questions: q}, nil
}

func (f *fakeContentStore) UpsertLessons(ctx context.Context, queryID uuid.UUID, lessons json.RawMessage, processingTime float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lessons[queryID] = lessons
	return nil
}

func (f *fakeContentStore) GetLessons(ctx context.Context, queryID uuid.UUID) (*store.LessonsRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	l, ok := f.lessons[queryID]
	if !ok {
		return nil, store.ErrLessonsNotFound
	}
	return &store.LessonsRecord{QueryID: queryID, Lessons: l}, nil
}

func (f *fakeContentStore) UpsertFlashcards(ctx context.Context, queryID uuid.UUID, lessonIndex int, lesson, flashcards json.RawMessage, processingTime float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.flashcards[lessonIndex] = flashcards
	return nil
}

func (f *fakeContentStore) GetFlashcards(ctx context.Context, queryID uuid.UUID, lessonIndex int) (*store.FlashcardsRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.flashcards[lessonIndex]
	if !ok {
		return nil, store.ErrFlashcardsNotFound
	}
	return &store.FlashcardsRecord{QueryID: queryID, LessonIndex: lessonIndex, Flashcards: c}, nil
}

func (f *fakeContentStore) ListFlashcardsByQuery(ctx context.Context, queryID uuid.UUID) ([]*store.FlashcardsRecord, error) {
	return nil, nil
}

func (f *fakeContentStore) UpsertQuiz(ctx context.Context, queryID uuid.UUID, lessonIndex int, quiz json.RawMessage, processingTime float64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.quizzes[lessonIndex] = quiz
	return nil
}

func (f *fakeContentStore) GetQuiz(ctx context.Context, queryID uuid.UUID, lessonIndex int) (*store.QuizRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	q, ok := f.quizzes[lessonIndex]
	if !ok {
		return nil, store.ErrQuizNotFound
	}
	return &store.QuizRecord{QueryID: queryID, LessonIndex: lessonIndex, Quiz: q}, nil
}

func (f *fakeContentStore) ListRecentLessons(ctx context.Context, limit int) ([]*store.LessonsRecord, error) {
	return nil, nil
}

func (f *fakeContentStore) ListRecentRelatedQuestions(ctx context.Context, limit int) ([]*store.RelatedQuestionsRecord, error) {
	return nil, nil
}

func (f *fakeContentStore) ListRecentFlashcards(ctx context.Context, limit int) ([]*store.FlashcardsRecord, error) {
	return nil, nil
}

func (f *fakeContentStore) flashcardIndexes() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var idx []int
	for i := range f.flashcards {
		idx = append(idx, i)
	}
	return idx
}

// fakeSubmitter records durable job submissions.
type fakeSubmitter struct {
	mu       sync.Mutex
	payloads []LessonAssetsPayload
}

func (f *fakeSubmitter) Submit(ctx context.Context, jobType string, payload any) (uuid.UUID, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if jobType != task.TypeLessonAssets {
		return uuid.Nil, fmt.Errorf("unexpected job type %q", jobType)
	}
	f.payloads = append(f.payloads, payload.(LessonAssetsPayload))
	return uuid.New(), nil
}

func newTestCache(t *testing.T) *cache.Hybrid {
	t.Helper()
	h := cache.New(cache.Config{MemoryCapacity: 64, DefaultTTL: time.Hour}, nil, nil, slog.Default())
	t.Cleanup(h.Stop)
	return h
}

func newQueryJob(t *testing.T, jobType string, queryID uuid.UUID, query string) *task.Job {
	t.Helper()
	job, err := task.NewJob(jobType, QueryPayload{Query: query, QueryID: queryID})
	require.NoError(t, err)
	return job
}

func TestRelatedQuestionsHandler_Handle(t *testing.T) {
	t.Parallel()

	client := &stubClient{}
	content := newFakeContentStore()
	h, err := NewRelatedQuestionsHandler(newTestCache(t), client, content, nil, time.Hour, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, task.TypeRelatedQuestions, h.Type())

	queryID := uuid.New()
	job := newQueryJob(t, task.TypeRelatedQuestions, queryID, "how do solar panels work")

	result, err := h.Handle(context.Background(), job)
	require.NoError(t, err)

	var decoded relatedQuestionsResult
	require.NoError(t, json.Unmarshal(result, &decoded))
	assert.Len(t, decoded.RelatedQuestions, 2)

	rec, err := content.GetRelatedQuestions(context.Background(), queryID)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.Questions)
}

func TestRelatedQuestionsHandler_CachesGeneration(t *testing.T) {
	t.Parallel()

	client := &stubClient{}
	content := newFakeContentStore()
	h, err := NewRelatedQuestionsHandler(newTestCache(t), client, content, nil, time.Hour, slog.Default())
	require.NoError(t, err)

	job := newQueryJob(t, task.TypeRelatedQuestions, uuid.New(), "how do solar panels work")
	_, err = h.Handle(context.Background(), job)
	require.NoError(t, err)

	// Same query text, different query ID: the generation must be served
	// from cache while the upsert still runs for the new query.
	second := newQueryJob(t, task.TypeRelatedQuestions, uuid.New(), "how do solar panels work")
	_, err = h.Handle(context.Background(), second)
	require.NoError(t, err)

	assert.Equal(t, 1, client.callCount(), "identical input must hit the cache")
}

func TestRelatedQuestionsHandler_TransportErrorFailsJob(t *testing.T) {
	t.Parallel()

	client := &stubClient{failWhen: func(input, instructions string) bool {
		return instructions == relatedQuestionsInstructions
	}}
	content := newFakeContentStore()
	h, err := NewRelatedQuestionsHandler(newTestCache(t), client, content, nil, time.Hour, slog.Default())
	require.NoError(t, err)

	job := newQueryJob(t, task.TypeRelatedQuestions, uuid.New(), "anything")
	_, err = h.Handle(context.Background(), job)
	assert.ErrorIs(t, err, generation.ErrTransport)
}

func newFireAndForgetLessonsHandler(t *testing.T, client generation.Client, content store.ContentStore) *LessonsHandler {
	t.Helper()
	c := newTestCache(t)
	assets, err := NewAssetsGenerator(c, client, content, nil, time.Hour, slog.Default())
	require.NoError(t, err)
	h, err := NewLessonsHandler(c, client, content, assets, nil, false, nil, time.Hour, slog.Default())
	require.NoError(t, err)
	return h
}

func TestLessonsHandler_GeneratesAllLessonAssets(t *testing.T) {
	t.Parallel()

	client := &stubClient{}
	content := newFakeContentStore()
	h := newFireAndForgetLessonsHandler(t, client, content)

	queryID := uuid.New()
	job := newQueryJob(t, task.TypeLessons, queryID, "solar panels")

	result, err := h.Handle(context.Background(), job)
	require.NoError(t, err)
	h.Wait()

	var decoded lessonsResult
	require.NoError(t, json.Unmarshal(result, &decoded))
	assert.Len(t, decoded.Lessons, 5)

	rec, err := content.GetLessons(context.Background(), queryID)
	require.NoError(t, err)
	assert.NotEmpty(t, rec.Lessons)

	// Every lesson got its flashcards and quiz.
	for i := 0; i < 5; i++ {
		_, err := content.GetFlashcards(context.Background(), queryID, i)
		assert.NoError(t, err, "flashcards for lesson %d", i)
		_, err = content.GetQuiz(context.Background(), queryID, i)
		assert.NoError(t, err, "quiz for lesson %d", i)
	}
}

func TestLessonsHandler_SubPipelineFailureIsIsolated(t *testing.T) {
	t.Parallel()

	// Flashcard generation for lesson 2 fails at the transport level; the
	// other four lessons must be unaffected and the parent job must succeed.
	client := &stubClient{failWhen: func(input, instructions string) bool {
		return instructions == flashcardsInstructions && strings.Contains(input, "Lesson 2")
	}}
	content := newFakeContentStore()
	h := newFireAndForgetLessonsHandler(t, client, content)

	queryID := uuid.New()
	job := newQueryJob(t, task.TypeLessons, queryID, "solar panels")

	_, err := h.Handle(context.Background(), job)
	require.NoError(t, err, "a sub-pipeline failure must not fail the lessons job")
	h.Wait()

	assert.ElementsMatch(t, []int{0, 1, 3, 4}, content.flashcardIndexes())

	_, err = content.GetFlashcards(context.Background(), queryID, 2)
	assert.ErrorIs(t, err, store.ErrFlashcardsNotFound)
	_, err = content.GetQuiz(context.Background(), queryID, 2)
	assert.ErrorIs(t, err, store.ErrQuizNotFound,
		"quiz must not run when its lesson's flashcards failed")
}

func TestLessonsHandler_DurableModeSubmitsJobs(t *testing.T) {
	t.Parallel()

	client := &stubClient{}
	content := newFakeContentStore()
	c := newTestCache(t)
	assets, err := NewAssetsGenerator(c, client, content, nil, time.Hour, slog.Default())
	require.NoError(t, err)

	submitter := &fakeSubmitter{}
	h, err := NewLessonsHandler(c, client, content, assets, submitter, true, nil, time.Hour, slog.Default())
	require.NoError(t, err)

	queryID := uuid.New()
	job := newQueryJob(t, task.TypeLessons, queryID, "solar panels")

	_, err = h.Handle(context.Background(), job)
	require.NoError(t, err)

	require.Len(t, submitter.payloads, 5)
	for i, p := range submitter.payloads {
		assert.Equal(t, queryID, p.QueryID)
		assert.Equal(t, i, p.LessonIndex)
		assert.Equal(t, fmt.Sprintf("Lesson %d", i), p.Lesson.Title)
	}

	// No sub-pipeline ran inline.
	assert.Empty(t, content.flashcardIndexes())
}

func TestLessonsHandler_DurableModeRequiresSubmitter(t *testing.T) {
	t.Parallel()

	client := &stubClient{}
	content := newFakeContentStore()
	c := newTestCache(t)
	assets, err := NewAssetsGenerator(c, client, content, nil, time.Hour, slog.Default())
	require.NoError(t, err)

	_, err = NewLessonsHandler(c, client, content, assets, nil, true, nil, time.Hour, slog.Default())
	assert.ErrorIs(t, err, ErrNilSubmitter)
}

func TestLessonAssetsHandler_Handle(t *testing.T) {
	t.Parallel()

	client := &stubClient{}
	content := newFakeContentStore()
	c := newTestCache(t)
	assets, err := NewAssetsGenerator(c, client, content, nil, time.Hour, slog.Default())
	require.NoError(t, err)

	h, err := NewLessonAssetsHandler(assets)
	require.NoError(t, err)
	assert.Equal(t, task.TypeLessonAssets, h.Type())

	queryID := uuid.New()
	job, err := task.NewJob(task.TypeLessonAssets, LessonAssetsPayload{
		QueryID:     queryID,
		LessonIndex: 3,
		Lesson:      domain.Lesson{Title: "Inverters", Overview: "DC to AC."},
	})
	require.NoError(t, err)

	result, err := h.Handle(context.Background(), job)
	require.NoError(t, err)

	var decoded AssetsResult
	require.NoError(t, json.Unmarshal(result, &decoded))
	assert.Equal(t, 3, decoded.LessonIndex)
	assert.Equal(t, 2, decoded.Flashcards)

	_, err = content.GetFlashcards(context.Background(), queryID, 3)
	assert.NoError(t, err)
	_, err = content.GetQuiz(context.Background(), queryID, 3)
	assert.NoError(t, err)
}

func TestAssetsGenerator_FlashcardsPersistEvenIfQuizFails(t *testing.T) {
	t.Parallel()

	client := &stubClient{failWhen: func(input, instructions string) bool {
		return instructions == quizInstructions
	}}
	content := newFakeContentStore()
	c := newTestCache(t)
	assets, err := NewAssetsGenerator(c, client, content, nil, time.Hour, slog.Default())
	require.NoError(t, err)

	queryID := uuid.New()
	_, err = assets.Generate(context.Background(), queryID, 0,
		domain.Lesson{Title: "Panels", Overview: "Basics."})
	require.ErrorIs(t, err, generation.ErrTransport)

	_, err = content.GetFlashcards(context.Background(), queryID, 0)
	assert.NoError(t, err, "flashcards persisted before the quiz stage must survive its failure")
	_, err = content.GetQuiz(context.Background(), queryID, 0)
	assert.ErrorIs(t, err, store.ErrQuizNotFound)
}
