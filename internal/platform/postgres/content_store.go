package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sagelearn/sage-api/internal/store"
)

// PostgresContentStore implements the store.ContentStore interface using
// PostgreSQL. Every write is an upsert on the record's natural key, so
// re-running a pipeline stage replaces prior content instead of duplicating
// it.
type PostgresContentStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresContentStore creates a new PostgresContentStore.
func NewPostgresContentStore(db store.DBTX, logger *slog.Logger) *PostgresContentStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresContentStore{
		db:     db,
		logger: logger.With("component", "content_store"),
	}
}

// UpsertRelatedQuestions inserts or replaces the related-questions result for
// a query.
func (s *PostgresContentStore) UpsertRelatedQuestions(
	ctx context.Context,
	queryID uuid.UUID,
	questions json.RawMessage,
	processingTime float64,
) error {
	query := `
		INSERT INTO related_questions (query_id, questions, processing_time, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (query_id) DO UPDATE
		SET questions = EXCLUDED.questions,
		    processing_time = EXCLUDED.processing_time,
		    created_at = EXCLUDED.created_at
	`

	_, err := s.db.ExecContext(ctx, query, queryID, questions, processingTime, time.Now().UTC())
	if err != nil {
		s.logger.Error("failed to upsert related questions",
			"query_id", queryID,
			"error", err)
		return store.NewStoreError("related_questions", "upsert", "failed to upsert", MapError(err))
	}

	return nil
}

// GetRelatedQuestions retrieves the related-questions result for a query.
func (s *PostgresContentStore) GetRelatedQuestions(
	ctx context.Context,
	queryID uuid.UUID,
) (*store.RelatedQuestionsRecord, error) {
	query := `
		SELECT query_id, questions, processing_time, created_at
		FROM related_questions
		WHERE query_id = $1
	`

	var rec store.RelatedQuestionsRecord
	err := s.db.QueryRowContext(ctx, query, queryID).Scan(
		&rec.QueryID,
		&rec.Questions,
		&rec.ProcessingTime,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrRelatedQuestionsNotFound
		}
		return nil, store.NewStoreError("related_questions", "get", "failed to query", MapError(err))
	}

	return &rec, nil
}

// UpsertLessons inserts or replaces the lesson list for a query.
func (s *PostgresContentStore) UpsertLessons(
	ctx context.Context,
	queryID uuid.UUID,
	lessons json.RawMessage,
	processingTime float64,
) error {
	query := `
		INSERT INTO lessons (query_id, lessons, processing_time, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (query_id) DO UPDATE
		SET lessons = EXCLUDED.lessons,
		    processing_time = EXCLUDED.processing_time,
		    created_at = EXCLUDED.created_at
	`

	_, err := s.db.ExecContext(ctx, query, queryID, lessons, processingTime, time.Now().UTC())
	if err != nil {
		s.logger.Error("failed to upsert lessons",
			"query_id", queryID,
			"error", err)
		return store.NewStoreError("lessons", "upsert", "failed to upsert", MapError(err))
	}

	return nil
}

// GetLessons retrieves the lesson list for a query.
func (s *PostgresContentStore) GetLessons(
	ctx context.Context,
	queryID uuid.UUID,
) (*store.LessonsRecord, error) {
	query := `
		SELECT query_id, lessons, processing_time, created_at
		FROM lessons
		WHERE query_id = $1
	`

	var rec store.LessonsRecord
	err := s.db.QueryRowContext(ctx, query, queryID).Scan(
		&rec.QueryID,
		&rec.Lessons,
		&rec.ProcessingTime,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrLessonsNotFound
		}
		return nil, store.NewStoreError("lessons", "get", "failed to query", MapError(err))
	}

	return &rec, nil
}

// UpsertFlashcards inserts or replaces the flashcards for one lesson of a
// query.
func (s *PostgresContentStore) UpsertFlashcards(
	ctx context.Context,
	queryID uuid.UUID,
	lessonIndex int,
	lesson, flashcards json.RawMessage,
	processingTime float64,
) error {
	query := `
		INSERT INTO flashcards (query_id, lesson_index, lesson, cards, processing_time, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (query_id, lesson_index) DO UPDATE
		SET lesson = EXCLUDED.lesson,
		    cards = EXCLUDED.cards,
		    processing_time = EXCLUDED.processing_time,
		    created_at = EXCLUDED.created_at
	`

	_, err := s.db.ExecContext(ctx, query,
		queryID, lessonIndex, lesson, flashcards, processingTime, time.Now().UTC())
	if err != nil {
		s.logger.Error("failed to upsert flashcards",
			"query_id", queryID,
			"lesson_index", lessonIndex,
			"error", err)
		return store.NewStoreError("flashcards", "upsert", "failed to upsert", MapError(err))
	}

	return nil
}

// GetFlashcards retrieves the flashcards for one lesson of a query.
func (s *PostgresContentStore) GetFlashcards(
	ctx context.Context,
	queryID uuid.UUID,
	lessonIndex int,
) (*store.FlashcardsRecord, error) {
	query := `
		SELECT query_id, lesson_index, lesson, cards, processing_time, created_at
		FROM flashcards
		WHERE query_id = $1 AND lesson_index = $2
	`

	var rec store.FlashcardsRecord
	err := s.db.QueryRowContext(ctx, query, queryID, lessonIndex).Scan(
		&rec.QueryID,
		&rec.LessonIndex,
		&rec.Lesson,
		&rec.Flashcards,
		&rec.ProcessingTime,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrFlashcardsNotFound
		}
		return nil, store.NewStoreError("flashcards", "get", "failed to query", MapError(err))
	}

	return &rec, nil
}

// ListFlashcardsByQuery retrieves all flashcard sets for a query, ordered by
// lesson index.
func (s *PostgresContentStore) ListFlashcardsByQuery(
	ctx context.Context,
	queryID uuid.UUID,
) ([]*store.FlashcardsRecord, error) {
	query := `
		SELECT query_id, lesson_index, lesson, cards, processing_time, created_at
		FROM flashcards
		WHERE query_id = $1
		ORDER BY lesson_index ASC
	`

	rows, err := s.db.QueryContext(ctx, query, queryID)
	if err != nil {
		return nil, store.NewStoreError("flashcards", "list", "failed to query", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var records []*store.FlashcardsRecord
	for rows.Next() {
		var rec store.FlashcardsRecord
		err := rows.Scan(
			&rec.QueryID,
			&rec.LessonIndex,
			&rec.Lesson,
			&rec.Flashcards,
			&rec.ProcessingTime,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, store.NewStoreError("flashcards", "list", "failed to scan row", err)
		}
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("flashcards", "list", "error iterating rows", err)
	}

	return records, nil
}

// UpsertQuiz inserts or replaces the quiz for one lesson of a query.
func (s *PostgresContentStore) UpsertQuiz(
	ctx context.Context,
	queryID uuid.UUID,
	lessonIndex int,
	quiz json.RawMessage,
	processingTime float64,
) error {
	query := `
		INSERT INTO quizzes (query_id, lesson_index, quiz, processing_time, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (query_id, lesson_index) DO UPDATE
		SET quiz = EXCLUDED.quiz,
		    processing_time = EXCLUDED.processing_time,
		    created_at = EXCLUDED.created_at
	`

	_, err := s.db.ExecContext(ctx, query, queryID, lessonIndex, quiz, processingTime, time.Now().UTC())
	if err != nil {
		s.logger.Error("failed to upsert quiz",
			"query_id", queryID,
			"lesson_index", lessonIndex,
			"error", err)
		return store.NewStoreError("quiz", "upsert", "failed to upsert", MapError(err))
	}

	return nil
}

// GetQuiz retrieves the quiz for one lesson of a query.
func (s *PostgresContentStore) GetQuiz(
	ctx context.Context,
	queryID uuid.UUID,
	lessonIndex int,
) (*store.QuizRecord, error) {
	query := `
		SELECT query_id, lesson_index, quiz, processing_time, created_at
		FROM quizzes
		WHERE query_id = $1 AND lesson_index = $2
	`

	var rec store.QuizRecord
	err := s.db.QueryRowContext(ctx, query, queryID, lessonIndex).Scan(
		&rec.QueryID,
		&rec.LessonIndex,
		&rec.Quiz,
		&rec.ProcessingTime,
		&rec.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrQuizNotFound
		}
		return nil, store.NewStoreError("quiz", "get", "failed to query", MapError(err))
	}

	return &rec, nil
}

// ListRecentLessons retrieves the most recently created lesson records,
// newest first.
func (s *PostgresContentStore) ListRecentLessons(
	ctx context.Context,
	limit int,
) ([]*store.LessonsRecord, error) {
	query := `
		SELECT query_id, lessons, processing_time, created_at
		FROM lessons
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, store.NewStoreError("lessons", "list", "failed to query", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var records []*store.LessonsRecord
	for rows.Next() {
		var rec store.LessonsRecord
		if err := rows.Scan(&rec.QueryID, &rec.Lessons, &rec.ProcessingTime, &rec.CreatedAt); err != nil {
			return nil, store.NewStoreError("lessons", "list", "failed to scan row", err)
		}
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("lessons", "list", "error iterating rows", err)
	}

	return records, nil
}

// ListRecentFlashcards retrieves the most recently created flashcard
// records, newest first.
func (s *PostgresContentStore) ListRecentFlashcards(
	ctx context.Context,
	limit int,
) ([]*store.FlashcardsRecord, error) {
	query := `
		SELECT query_id, lesson_index, lesson, cards, processing_time, created_at
		FROM flashcards
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, store.NewStoreError("flashcards", "list", "failed to query", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var records []*store.FlashcardsRecord
	for rows.Next() {
		var rec store.FlashcardsRecord
		err := rows.Scan(
			&rec.QueryID,
			&rec.LessonIndex,
			&rec.Lesson,
			&rec.Flashcards,
			&rec.ProcessingTime,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, store.NewStoreError("flashcards", "list", "failed to scan row", err)
		}
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("flashcards", "list", "error iterating rows", err)
	}

	return records, nil
}

// ListRecentRelatedQuestions retrieves the most recently created
// related-questions records, newest first.
func (s *PostgresContentStore) ListRecentRelatedQuestions(
	ctx context.Context,
	limit int,
) ([]*store.RelatedQuestionsRecord, error) {
	query := `
		SELECT query_id, questions, processing_time, created_at
		FROM related_questions
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, store.NewStoreError("related_questions", "list", "failed to query", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var records []*store.RelatedQuestionsRecord
	for rows.Next() {
		var rec store.RelatedQuestionsRecord
		if err := rows.Scan(&rec.QueryID, &rec.Questions, &rec.ProcessingTime, &rec.CreatedAt); err != nil {
			return nil, store.NewStoreError("related_questions", "list", "failed to scan row", err)
		}
		records = append(records, &rec)
	}

	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("related_questions", "list", "error iterating rows", err)
	}

	return records, nil
}
