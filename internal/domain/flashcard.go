package domain

import "errors"

// Common validation errors for Flashcard
var (
	ErrEmptyFlashcardTerm        = errors.New("flashcard term cannot be empty")
	ErrEmptyFlashcardExplanation = errors.New("flashcard explanation cannot be empty")
)

// Flashcard is a single term/explanation pair generated from one lesson.
type Flashcard struct {
	Term        string `json:"term"`
	Explanation string `json:"explanation"`
}

// Validate checks if the Flashcard has valid data.
func (f *Flashcard) Validate() error {
	if f.Term == "" {
		return ErrEmptyFlashcardTerm
	}
	if f.Explanation == "" {
		return ErrEmptyFlashcardExplanation
	}
	return nil
}
