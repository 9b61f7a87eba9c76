package domain

import "errors"

// QuestionCategory classifies a related question by difficulty.
type QuestionCategory string

// Possible question category values
const (
	QuestionCategoryBasic        QuestionCategory = "basic"
	QuestionCategoryIntermediate QuestionCategory = "intermediate"
	QuestionCategoryAdvanced     QuestionCategory = "advanced"
)

// Common validation errors for RelatedQuestion
var (
	ErrEmptyQuestion           = errors.New("question text cannot be empty")
	ErrInvalidQuestionCategory = errors.New("invalid question category")
)

// RelatedQuestion is one follow-up question generated for a query, used to
// suggest further exploration of the topic.
type RelatedQuestion struct {
	Question  string           `json:"question"`
	Category  QuestionCategory `json:"category"`
	FocusArea string           `json:"focus_area"`
}

// Validate checks if the RelatedQuestion has valid data.
func (q *RelatedQuestion) Validate() error {
	if q.Question == "" {
		return ErrEmptyQuestion
	}
	if !isValidQuestionCategory(q.Category) {
		return ErrInvalidQuestionCategory
	}
	return nil
}

// isValidQuestionCategory checks if the given category is a valid QuestionCategory.
func isValidQuestionCategory(category QuestionCategory) bool {
	switch category {
	case QuestionCategoryBasic, QuestionCategoryIntermediate, QuestionCategoryAdvanced:
		return true
	default:
		return false
	}
}
