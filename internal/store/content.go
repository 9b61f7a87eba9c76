package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// RelatedQuestionsRecord is the persisted related-questions result for a query.
type RelatedQuestionsRecord struct {
	QueryID        uuid.UUID       `json:"query_id"`
	Questions      json.RawMessage `json:"questions"`
	ProcessingTime float64         `json:"processing_time"`
	CreatedAt      time.Time       `json:"created_at"`
}

// LessonsRecord is the persisted lesson list for a query.
type LessonsRecord struct {
	QueryID        uuid.UUID       `json:"query_id"`
	Lessons        json.RawMessage `json:"lessons"`
	ProcessingTime float64         `json:"processing_time"`
	CreatedAt      time.Time       `json:"created_at"`
}

// FlashcardsRecord is the persisted flashcard set for one lesson of a query.
// The source lesson is stored alongside the cards so the read path can serve
// both without a join.
type FlashcardsRecord struct {
	QueryID        uuid.UUID       `json:"query_id"`
	LessonIndex    int             `json:"lesson_index"`
	Lesson         json.RawMessage `json:"lesson"`
	Flashcards     json.RawMessage `json:"flashcards"`
	ProcessingTime float64         `json:"processing_time"`
	CreatedAt      time.Time       `json:"created_at"`
}

// QuizRecord is the persisted quiz for one lesson of a query.
type QuizRecord struct {
	QueryID        uuid.UUID       `json:"query_id"`
	LessonIndex    int             `json:"lesson_index"`
	Quiz           json.RawMessage `json:"quiz"`
	ProcessingTime float64         `json:"processing_time"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ContentStore defines the interface for persisting pipeline stage results.
//
// All writes are upserts: re-running a stage for the same key replaces the
// prior content rather than appending a duplicate row. This is what makes
// at-least-once job execution safe.
// Version: 1.0
type ContentStore interface {
	// UpsertRelatedQuestions inserts or replaces the related-questions result
	// for a query. processingTime is in seconds.
	UpsertRelatedQuestions(ctx context.Context, queryID uuid.UUID, questions json.RawMessage, processingTime float64) error

	// GetRelatedQuestions retrieves the related-questions result for a query.
	// Returns ErrRelatedQuestionsNotFound if none has been persisted.
	GetRelatedQuestions(ctx context.Context, queryID uuid.UUID) (*RelatedQuestionsRecord, error)

	// UpsertLessons inserts or replaces the lesson list for a query.
	UpsertLessons(ctx context.Context, queryID uuid.UUID, lessons json.RawMessage, processingTime float64) error

	// GetLessons retrieves the lesson list for a query.
	// Returns ErrLessonsNotFound if none has been persisted.
	GetLessons(ctx context.Context, queryID uuid.UUID) (*LessonsRecord, error)

	// UpsertFlashcards inserts or replaces the flashcards for one lesson of a
	// query, keyed by (queryID, lessonIndex).
	UpsertFlashcards(ctx context.Context, queryID uuid.UUID, lessonIndex int, lesson, flashcards json.RawMessage, processingTime float64) error

	// GetFlashcards retrieves the flashcards for one lesson of a query.
	// Returns ErrFlashcardsNotFound if none have been persisted.
	GetFlashcards(ctx context.Context, queryID uuid.UUID, lessonIndex int) (*FlashcardsRecord, error)

	// ListFlashcardsByQuery retrieves all flashcard sets for a query, ordered
	// by lesson index. Returns an empty slice if none have been persisted.
	ListFlashcardsByQuery(ctx context.Context, queryID uuid.UUID) ([]*FlashcardsRecord, error)

	// UpsertQuiz inserts or replaces the quiz for one lesson of a query,
	// keyed by (queryID, lessonIndex).
	UpsertQuiz(ctx context.Context, queryID uuid.UUID, lessonIndex int, quiz json.RawMessage, processingTime float64) error

	// GetQuiz retrieves the quiz for one lesson of a query.
	// Returns ErrQuizNotFound if none has been persisted.
	GetQuiz(ctx context.Context, queryID uuid.UUID, lessonIndex int) (*QuizRecord, error)

	// ListRecentLessons retrieves the most recently created lesson records,
	// newest first, up to limit.
	ListRecentLessons(ctx context.Context, limit int) ([]*LessonsRecord, error)

	// ListRecentRelatedQuestions retrieves the most recently created
	// related-questions records, newest first, up to limit.
	ListRecentRelatedQuestions(ctx context.Context, limit int) ([]*RelatedQuestionsRecord, error)

	// ListRecentFlashcards retrieves the most recently created flashcard
	// records, newest first, up to limit.
	ListRecentFlashcards(ctx context.Context, limit int) ([]*FlashcardsRecord, error)
}
