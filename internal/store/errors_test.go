package store

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsNotFoundError(t *testing.T) {
	t.Parallel()

	for _, err := range []error{
		ErrNotFound,
		ErrJobNotFound,
		ErrLessonsNotFound,
		ErrRelatedQuestionsNotFound,
		ErrFlashcardsNotFound,
		ErrQuizNotFound,
		ErrCacheMiss,
		fmt.Errorf("wrapped: %w", ErrJobNotFound),
	} {
		assert.True(t, IsNotFoundError(err), "expected %v to be a not-found error", err)
	}

	assert.False(t, IsNotFoundError(errors.New("boom")))
	assert.False(t, IsNotFoundError(ErrUpdateFailed))
	assert.False(t, IsNotFoundError(nil))
}

func TestStoreError(t *testing.T) {
	t.Parallel()

	inner := errors.New("connection refused")
	err := NewStoreError("job", "create", "failed to insert job", inner)

	assert.Contains(t, err.Error(), "create operation on job failed")
	assert.Contains(t, err.Error(), "connection refused")
	assert.ErrorIs(t, err, inner)

	bare := NewStoreError("job", "get", "no rows", nil)
	assert.Equal(t, "get operation on job failed: no rows", bare.Error())
}

func TestStoreError_PreservesSentinels(t *testing.T) {
	t.Parallel()

	err := NewStoreError("lessons", "get", "lookup failed", ErrLessonsNotFound)
	assert.True(t, IsNotFoundError(err), "wrapping must not hide the sentinel")
}
