package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/sagelearn/sage-api/internal/domain"
)

// Envelope shapes for strict decoding. The alternatives mirror the
// envelopes the generation service has been observed to produce.

type relatedQuestionsEnvelope struct {
	RelatedQuestions []domain.RelatedQuestion `json:"related_questions"`
	Questions        *struct {
		RelatedQuestions []domain.RelatedQuestion `json:"related_questions"`
	} `json:"questions,omitempty"`
}

type lessonsEnvelope struct {
	Lessons []domain.Lesson `json:"lessons"`
}

type flashcardsEnvelope struct {
	Flashcards *struct {
		Cards []domain.Flashcard `json:"cards"`
	} `json:"flashcards,omitempty"`
	Cards []domain.Flashcard `json:"cards"`
}

type quizEnvelope struct {
	Quiz *domain.Quiz `json:"quiz,omitempty"`

	// Top-level variant without the "quiz" wrapper.
	TrueFalse      []domain.TrueFalseQuestion      `json:"true_false_questions"`
	MultipleChoice []domain.MultipleChoiceQuestion `json:"multiple_choice_questions"`
}

// ExtractJSON locates the JSON object embedded in free-form generation
// output. A ```json fence wins if present; otherwise the span from the
// first '{' to the last '}' is used. Pure function, no side effects.
func ExtractJSON(raw string) (string, error) {
	if idx := strings.Index(raw, "```json"); idx >= 0 {
		start := idx + len("```json")
		if end := strings.Index(raw[start:], "```"); end >= 0 {
			return strings.TrimSpace(raw[start : start+end]), nil
		}
	}

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start < 0 || end < start {
		return "", ErrNoJSONFound
	}
	return raw[start : end+1], nil
}

// DecodeRelatedQuestions decodes generation output into related questions:
// strict decode first, then the manual-extraction fallback. Returns ErrParse
// when both fail.
func DecodeRelatedQuestions(raw string) ([]domain.RelatedQuestion, error) {
	questions, strictErr := decodeRelatedQuestionsStrict(raw)
	if strictErr == nil {
		return questions, nil
	}

	if questions := ManualParseRelatedQuestions(raw); len(questions) > 0 {
		return questions, nil
	}

	return nil, fmt.Errorf("%w: %v", ErrParse, strictErr)
}

func decodeRelatedQuestionsStrict(raw string) ([]domain.RelatedQuestion, error) {
	var env relatedQuestionsEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchema, err)
	}

	questions := env.RelatedQuestions
	if len(questions) == 0 && env.Questions != nil {
		questions = env.Questions.RelatedQuestions
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("%w: no related questions in response", ErrSchema)
	}

	for i := range questions {
		if err := questions[i].Validate(); err != nil {
			return nil, fmt.Errorf("%w: question %d: %v", ErrSchema, i, err)
		}
	}
	return questions, nil
}

// ManualParseRelatedQuestions is the best-effort fallback extractor for
// related questions. It is total: any failure yields an empty result.
func ManualParseRelatedQuestions(raw string) []domain.RelatedQuestion {
	extracted, err := ExtractJSON(raw)
	if err != nil {
		return nil
	}
	questions, err := decodeRelatedQuestionsStrict(extracted)
	if err != nil {
		return nil
	}
	return questions
}

// DecodeLessons decodes generation output into the lesson list, with the
// same strict-then-manual policy.
func DecodeLessons(raw string) ([]domain.Lesson, error) {
	lessons, strictErr := decodeLessonsStrict(raw)
	if strictErr == nil {
		return lessons, nil
	}

	if lessons := ManualParseLessons(raw); len(lessons) > 0 {
		return lessons, nil
	}

	return nil, fmt.Errorf("%w: %v", ErrParse, strictErr)
}

func decodeLessonsStrict(raw string) ([]domain.Lesson, error) {
	var env lessonsEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchema, err)
	}
	if len(env.Lessons) == 0 {
		return nil, fmt.Errorf("%w: no lessons in response", ErrSchema)
	}
	for i := range env.Lessons {
		if err := env.Lessons[i].Validate(); err != nil {
			return nil, fmt.Errorf("%w: lesson %d: %v", ErrSchema, i, err)
		}
	}
	return env.Lessons, nil
}

// ManualParseLessons is the best-effort fallback extractor for lessons.
func ManualParseLessons(raw string) []domain.Lesson {
	extracted, err := ExtractJSON(raw)
	if err != nil {
		return nil
	}
	lessons, err := decodeLessonsStrict(extracted)
	if err != nil {
		return nil
	}
	return lessons
}

// DecodeFlashcards decodes generation output into flashcards, with the same
// strict-then-manual policy.
func DecodeFlashcards(raw string) ([]domain.Flashcard, error) {
	cards, strictErr := decodeFlashcardsStrict(raw)
	if strictErr == nil {
		return cards, nil
	}

	if cards := ManualParseFlashcards(raw); len(cards) > 0 {
		return cards, nil
	}

	return nil, fmt.Errorf("%w: %v", ErrParse, strictErr)
}

func decodeFlashcardsStrict(raw string) ([]domain.Flashcard, error) {
	var env flashcardsEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchema, err)
	}

	cards := env.Cards
	if len(cards) == 0 && env.Flashcards != nil {
		cards = env.Flashcards.Cards
	}
	if len(cards) == 0 {
		return nil, fmt.Errorf("%w: no flashcards in response", ErrSchema)
	}

	for i := range cards {
		if err := cards[i].Validate(); err != nil {
			return nil, fmt.Errorf("%w: flashcard %d: %v", ErrSchema, i, err)
		}
	}
	return cards, nil
}

// ManualParseFlashcards is the best-effort fallback extractor for flashcards.
func ManualParseFlashcards(raw string) []domain.Flashcard {
	extracted, err := ExtractJSON(raw)
	if err != nil {
		return nil
	}
	cards, err := decodeFlashcardsStrict(extracted)
	if err != nil {
		return nil
	}
	return cards
}

// DecodeQuiz decodes generation output into a quiz, with the same
// strict-then-manual policy.
func DecodeQuiz(raw string) (*domain.Quiz, error) {
	quiz, strictErr := decodeQuizStrict(raw)
	if strictErr == nil {
		return quiz, nil
	}

	if quiz := ManualParseQuiz(raw); quiz != nil {
		return quiz, nil
	}

	return nil, fmt.Errorf("%w: %v", ErrParse, strictErr)
}

func decodeQuizStrict(raw string) (*domain.Quiz, error) {
	var env quizEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchema, err)
	}

	quiz := env.Quiz
	if quiz == nil {
		quiz = &domain.Quiz{
			TrueFalse:      env.TrueFalse,
			MultipleChoice: env.MultipleChoice,
		}
	}
	if err := quiz.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSchema, err)
	}
	return quiz, nil
}

// ManualParseQuiz is the best-effort fallback extractor for quizzes. Returns
// nil when extraction fails.
func ManualParseQuiz(raw string) *domain.Quiz {
	extracted, err := ExtractJSON(raw)
	if err != nil {
		return nil
	}
	quiz, err := decodeQuizStrict(extracted)
	if err != nil {
		return nil
	}
	return quiz
}
