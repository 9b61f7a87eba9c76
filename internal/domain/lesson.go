package domain

import "errors"

// Common validation errors for Lesson
var (
	ErrEmptyLessonTitle    = errors.New("lesson title cannot be empty")
	ErrEmptyLessonOverview = errors.New("lesson overview cannot be empty")
)

// Lesson is one unit of a generated curriculum. A query produces an ordered
// list of lessons; each lesson later gets its own flashcards and quiz.
// Once persisted for a (query, lesson index) pair it is immutable until
// overwritten by a re-run of the stage.
type Lesson struct {
	Title       string   `json:"title"`
	Overview    string   `json:"overview"`
	KeyConcepts []string `json:"key_concepts"`
	Examples    []string `json:"examples"`
}

// Validate checks if the Lesson has valid data.
func (l *Lesson) Validate() error {
	if l.Title == "" {
		return ErrEmptyLessonTitle
	}
	if l.Overview == "" {
		return ErrEmptyLessonOverview
	}
	return nil
}
