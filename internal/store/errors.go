package store

import (
	"errors"
	"fmt"
)

// Common store errors used across all store implementations.
var (
	// ErrNotFound is returned when a requested entity does not exist in the store.
	// This is a generic version of the entity-specific not found errors
	// (e.g., ErrJobNotFound, ErrLessonsNotFound).
	ErrNotFound = errors.New("entity not found")

	// ErrUpdateFailed is returned when an update operation fails, for example
	// because the entity does not exist or the update violates constraints.
	ErrUpdateFailed = errors.New("update failed")

	// Entity-specific "not found" errors

	// ErrJobNotFound indicates that the requested job does not exist in the store.
	ErrJobNotFound = fmt.Errorf("%w: job", ErrNotFound)

	// ErrLessonsNotFound indicates that no lessons have been persisted for the
	// requested query.
	ErrLessonsNotFound = fmt.Errorf("%w: lessons", ErrNotFound)

	// ErrRelatedQuestionsNotFound indicates that no related questions have been
	// persisted for the requested query.
	ErrRelatedQuestionsNotFound = fmt.Errorf("%w: related questions", ErrNotFound)

	// ErrFlashcardsNotFound indicates that no flashcards have been persisted for
	// the requested (query, lesson index) pair.
	ErrFlashcardsNotFound = fmt.Errorf("%w: flashcards", ErrNotFound)

	// ErrQuizNotFound indicates that no quiz has been persisted for the
	// requested (query, lesson index) pair.
	ErrQuizNotFound = fmt.Errorf("%w: quiz", ErrNotFound)

	// ErrCacheMiss indicates that a cache entry is absent or expired. The cache
	// treats it the same way as any other persistent-tier failure: fall through
	// to generation.
	ErrCacheMiss = fmt.Errorf("%w: cache entry", ErrNotFound)
)

// IsNotFoundError checks if the error is any kind of "not found" error.
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// StoreError is a custom error type for store-specific errors with additional context.
type StoreError struct {
	Entity    string // The entity type (e.g., "job", "lessons")
	Operation string // The operation that failed (e.g., "create", "upsert")
	Message   string // Error message
	Err       error  // Original error
}

// Error implements the error interface for StoreError.
func (e *StoreError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf(
			"%s operation on %s failed: %s: %v",
			e.Operation,
			e.Entity,
			e.Message,
			e.Err,
		)
	}
	return fmt.Sprintf("%s operation on %s failed: %s", e.Operation, e.Entity, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError creates a new StoreError with the given entity, operation,
// message, and wrapped error.
func NewStoreError(entity, operation, message string, err error) *StoreError {
	return &StoreError{
		Entity:    entity,
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}
