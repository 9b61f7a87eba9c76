package domain

import (
	"errors"
	"fmt"
)

// MultipleChoiceOptionCount is the required number of options per
// multiple-choice question.
const MultipleChoiceOptionCount = 4

// Common validation errors for Quiz
var (
	ErrEmptyQuizQuestion       = errors.New("quiz question cannot be empty")
	ErrInvalidOptionCount      = errors.New("multiple choice question must have exactly 4 options")
	ErrInvalidCorrectAnswer    = errors.New("correct answer index must be between 0 and 3")
	ErrEmptyQuiz               = errors.New("quiz must contain at least one question")
	ErrEmptyQuizExplanation    = errors.New("quiz explanation cannot be empty")
	ErrEmptyQuizAnswerOption   = errors.New("multiple choice option cannot be empty")
	ErrInvalidQuizQuestionKind = errors.New("invalid quiz question kind")
)

// TrueFalseQuestion is a binary quiz question derived from a lesson's
// flashcards.
type TrueFalseQuestion struct {
	Question      string `json:"question"`
	CorrectAnswer bool   `json:"correct_answer"`
	Explanation   string `json:"explanation"`
}

// Validate checks if the TrueFalseQuestion has valid data.
func (q *TrueFalseQuestion) Validate() error {
	if q.Question == "" {
		return ErrEmptyQuizQuestion
	}
	if q.Explanation == "" {
		return ErrEmptyQuizExplanation
	}
	return nil
}

// MultipleChoiceQuestion is a four-option quiz question. CorrectAnswer is the
// index of the right option.
type MultipleChoiceQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correct_answer"`
	Explanation   string   `json:"explanation"`
}

// Validate checks if the MultipleChoiceQuestion has valid data.
func (q *MultipleChoiceQuestion) Validate() error {
	if q.Question == "" {
		return ErrEmptyQuizQuestion
	}
	if len(q.Options) != MultipleChoiceOptionCount {
		return fmt.Errorf("%w: got %d", ErrInvalidOptionCount, len(q.Options))
	}
	for _, opt := range q.Options {
		if opt == "" {
			return ErrEmptyQuizAnswerOption
		}
	}
	if q.CorrectAnswer < 0 || q.CorrectAnswer >= MultipleChoiceOptionCount {
		return fmt.Errorf("%w: got %d", ErrInvalidCorrectAnswer, q.CorrectAnswer)
	}
	if q.Explanation == "" {
		return ErrEmptyQuizExplanation
	}
	return nil
}

// Quiz is the full set of questions generated for one lesson.
type Quiz struct {
	TrueFalse      []TrueFalseQuestion      `json:"true_false_questions"`
	MultipleChoice []MultipleChoiceQuestion `json:"multiple_choice_questions"`
}

// Validate checks if the Quiz has valid data. A quiz needs at least one
// question of either kind; every question must itself be valid.
func (z *Quiz) Validate() error {
	if len(z.TrueFalse) == 0 && len(z.MultipleChoice) == 0 {
		return ErrEmptyQuiz
	}
	for i := range z.TrueFalse {
		if err := z.TrueFalse[i].Validate(); err != nil {
			return fmt.Errorf("true/false question %d: %w", i, err)
		}
	}
	for i := range z.MultipleChoice {
		if err := z.MultipleChoice[i].Validate(); err != nil {
			return fmt.Errorf("multiple choice question %d: %w", i, err)
		}
	}
	return nil
}
