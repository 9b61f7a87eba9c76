package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sagelearn/sage-api/internal/pipeline"
	"github.com/sagelearn/sage-api/internal/store"
	"github.com/sagelearn/sage-api/internal/task"
)

// Common sentinel errors for QueryService
var (
	// ErrEmptyQuery indicates that the submitted query text was empty.
	ErrEmptyQuery = errors.New("query text cannot be empty")

	// ErrContentNotFound indicates that the requested content has not been
	// generated yet (or the query ID is unknown).
	ErrContentNotFound = errors.New("content not found")

	// ErrJobNotFound indicates that the requested job does not exist.
	ErrJobNotFound = errors.New("job not found")
)

// QueryServiceError wraps errors from the query service with context.
type QueryServiceError struct {
	// Operation is the operation that failed (e.g., "start_query")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for QueryServiceError.
func (e *QueryServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("query service %s failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("query service %s failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *QueryServiceError) Unwrap() error {
	return e.Err
}

// NewQueryServiceError creates a new QueryServiceError.
// It returns known sentinel errors directly without wrapping.
func NewQueryServiceError(operation, message string, err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrEmptyQuery) || errors.Is(err, ErrContentNotFound) || errors.Is(err, ErrJobNotFound) {
		return err
	}

	if store.IsNotFoundError(err) {
		return ErrContentNotFound
	}

	return &QueryServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// QuerySubmission reports the outcome of accepting a query: the new query ID
// and the two top-level jobs spawned for it.
type QuerySubmission struct {
	QueryID               uuid.UUID `json:"query_id"`
	RelatedQuestionsJobID uuid.UUID `json:"related_questions_job_id"`
	LessonsJobID          uuid.UUID `json:"lessons_job_id"`
}

// Submitter enqueues durable jobs. Satisfied by *task.Scheduler.
type Submitter interface {
	Submit(ctx context.Context, jobType string, payload any) (uuid.UUID, error)
	Status(ctx context.Context, jobID uuid.UUID) (*task.Job, error)
}

// QueryService accepts free-text queries and exposes the generated content.
type QueryService interface {
	// StartQuery assigns a new query ID and enqueues the two top-level jobs
	// (related questions and lessons). It returns as soon as both jobs are
	// durably recorded; generation happens in the background.
	StartQuery(ctx context.Context, query, userID string) (*QuerySubmission, error)

	// JobStatus retrieves the durable record of a background job.
	JobStatus(ctx context.Context, jobID uuid.UUID) (*task.Job, error)

	// RelatedQuestions retrieves the generated related questions for a query.
	RelatedQuestions(ctx context.Context, queryID uuid.UUID) (*store.RelatedQuestionsRecord, error)

	// Lessons retrieves the generated lesson list for a query.
	Lessons(ctx context.Context, queryID uuid.UUID) (*store.LessonsRecord, error)

	// Flashcards retrieves the flashcards for one lesson of a query.
	Flashcards(ctx context.Context, queryID uuid.UUID, lessonIndex int) (*store.FlashcardsRecord, error)

	// AllFlashcards retrieves every generated flashcard set for a query,
	// ordered by lesson index.
	AllFlashcards(ctx context.Context, queryID uuid.UUID) ([]*store.FlashcardsRecord, error)

	// Quiz retrieves the quiz for one lesson of a query.
	Quiz(ctx context.Context, queryID uuid.UUID, lessonIndex int) (*store.QuizRecord, error)

	// RecentLessons retrieves the most recently generated lesson lists.
	RecentLessons(ctx context.Context, limit int) ([]*store.LessonsRecord, error)

	// RecentRelatedQuestions retrieves the most recently generated related
	// question sets.
	RecentRelatedQuestions(ctx context.Context, limit int) ([]*store.RelatedQuestionsRecord, error)

	// RecentFlashcards retrieves the most recently generated flashcard sets.
	RecentFlashcards(ctx context.Context, limit int) ([]*store.FlashcardsRecord, error)
}

// queryServiceImpl implements the QueryService interface.
type queryServiceImpl struct {
	submitter Submitter
	content   store.ContentStore
	logger    *slog.Logger
}

// NewQueryService creates a new QueryService.
// It returns an error if any of the required dependencies are nil.
func NewQueryService(
	submitter Submitter,
	content store.ContentStore,
	logger *slog.Logger,
) (QueryService, error) {
	if submitter == nil {
		return nil, &QueryServiceError{
			Operation: "create_service",
			Message:   "submitter cannot be nil",
		}
	}
	if content == nil {
		return nil, &QueryServiceError{
			Operation: "create_service",
			Message:   "content store cannot be nil",
		}
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &queryServiceImpl{
		submitter: submitter,
		content:   content,
		logger:    logger.With("component", "query_service"),
	}, nil
}

// StartQuery assigns a new query ID and enqueues the two top-level jobs.
func (s *queryServiceImpl) StartQuery(ctx context.Context, query, userID string) (*QuerySubmission, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}

	queryID := uuid.New()
	payload := pipeline.QueryPayload{
		Query:   query,
		UserID:  userID,
		QueryID: queryID,
	}

	questionsJobID, err := s.submitter.Submit(ctx, task.TypeRelatedQuestions, payload)
	if err != nil {
		s.logger.Error("failed to submit related questions job",
			"query_id", queryID,
			"error", err)
		return nil, NewQueryServiceError("start_query", "failed to submit related questions job", err)
	}

	lessonsJobID, err := s.submitter.Submit(ctx, task.TypeLessons, payload)
	if err != nil {
		// The related questions job is already durable and will run; report
		// the partial failure rather than pretending both were accepted.
		s.logger.Error("failed to submit lessons job",
			"query_id", queryID,
			"error", err)
		return nil, NewQueryServiceError("start_query", "failed to submit lessons job", err)
	}

	s.logger.Info("query accepted",
		"query_id", queryID,
		"related_questions_job_id", questionsJobID,
		"lessons_job_id", lessonsJobID)

	return &QuerySubmission{
		QueryID:               queryID,
		RelatedQuestionsJobID: questionsJobID,
		LessonsJobID:          lessonsJobID,
	}, nil
}

// JobStatus retrieves the durable record of a background job.
func (s *queryServiceImpl) JobStatus(ctx context.Context, jobID uuid.UUID) (*task.Job, error) {
	job, err := s.submitter.Status(ctx, jobID)
	if err != nil {
		if errors.Is(err, store.ErrJobNotFound) {
			return nil, ErrJobNotFound
		}
		return nil, NewQueryServiceError("job_status", "failed to retrieve job", err)
	}
	return job, nil
}

// RelatedQuestions retrieves the generated related questions for a query.
func (s *queryServiceImpl) RelatedQuestions(ctx context.Context, queryID uuid.UUID) (*store.RelatedQuestionsRecord, error) {
	rec, err := s.content.GetRelatedQuestions(ctx, queryID)
	if err != nil {
		return nil, NewQueryServiceError("get_related_questions", "failed to retrieve related questions", err)
	}
	return rec, nil
}

// Lessons retrieves the generated lesson list for a query.
func (s *queryServiceImpl) Lessons(ctx context.Context, queryID uuid.UUID) (*store.LessonsRecord, error) {
	rec, err := s.content.GetLessons(ctx, queryID)
	if err != nil {
		return nil, NewQueryServiceError("get_lessons", "failed to retrieve lessons", err)
	}
	return rec, nil
}

// Flashcards retrieves the flashcards for one lesson of a query.
func (s *queryServiceImpl) Flashcards(ctx context.Context, queryID uuid.UUID, lessonIndex int) (*store.FlashcardsRecord, error) {
	rec, err := s.content.GetFlashcards(ctx, queryID, lessonIndex)
	if err != nil {
		return nil, NewQueryServiceError("get_flashcards", "failed to retrieve flashcards", err)
	}
	return rec, nil
}

// AllFlashcards retrieves every generated flashcard set for a query. Sets
// may still be missing for some lessons while sub-pipelines are running.
func (s *queryServiceImpl) AllFlashcards(ctx context.Context, queryID uuid.UUID) ([]*store.FlashcardsRecord, error) {
	records, err := s.content.ListFlashcardsByQuery(ctx, queryID)
	if err != nil {
		return nil, NewQueryServiceError("all_flashcards", "failed to list flashcards", err)
	}
	return records, nil
}

// Quiz retrieves the quiz for one lesson of a query.
func (s *queryServiceImpl) Quiz(ctx context.Context, queryID uuid.UUID, lessonIndex int) (*store.QuizRecord, error) {
	rec, err := s.content.GetQuiz(ctx, queryID, lessonIndex)
	if err != nil {
		return nil, NewQueryServiceError("get_quiz", "failed to retrieve quiz", err)
	}
	return rec, nil
}

// RecentLessons retrieves the most recently generated lesson lists.
func (s *queryServiceImpl) RecentLessons(ctx context.Context, limit int) ([]*store.LessonsRecord, error) {
	records, err := s.content.ListRecentLessons(ctx, limit)
	if err != nil {
		return nil, NewQueryServiceError("recent_lessons", "failed to list recent lessons", err)
	}
	return records, nil
}

// RecentRelatedQuestions retrieves the most recently generated related
// question sets.
func (s *queryServiceImpl) RecentRelatedQuestions(ctx context.Context, limit int) ([]*store.RelatedQuestionsRecord, error) {
	records, err := s.content.ListRecentRelatedQuestions(ctx, limit)
	if err != nil {
		return nil, NewQueryServiceError("recent_related_questions", "failed to list recent related questions", err)
	}
	return records, nil
}

// RecentFlashcards retrieves the most recently generated flashcard sets.
func (s *queryServiceImpl) RecentFlashcards(ctx context.Context, limit int) ([]*store.FlashcardsRecord, error) {
	records, err := s.content.ListRecentFlashcards(ctx, limit)
	if err != nil {
		return nil, NewQueryServiceError("recent_flashcards", "failed to list recent flashcards", err)
	}
	return records, nil
}
