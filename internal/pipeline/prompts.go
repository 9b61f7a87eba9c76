package pipeline

import (
	"fmt"
	"strings"

	"github.com/sagelearn/sage-api/internal/domain"
)

// Operation discriminators used for cache fingerprinting.
const (
	opRelatedQuestions = "related_questions"
	opLessons          = "lessons"
	opFlashcards       = "flashcards"
	opQuiz             = "quiz"
)

// System instructions per stage. Each demands a bare JSON object so strict
// decoding succeeds on well-behaved responses; the manual fallback covers
// the rest.

const relatedQuestionsInstructions = `You are an educational assistant that suggests follow-up questions for a topic.
Respond with a single JSON object and nothing else, in this exact shape:
{"related_questions": [{"question": "...", "category": "basic|intermediate|advanced", "focus_area": "..."}]}
Produce a balanced mix of basic, intermediate, and advanced questions that
encourage deeper exploration of the topic.`

const lessonsInstructions = `You are an educational assistant that designs a short curriculum for a topic.
Respond with a single JSON object and nothing else, in this exact shape:
{"lessons": [{"title": "...", "overview": "...", "key_concepts": ["..."], "examples": ["..."]}]}
Order the lessons from foundational to advanced. Keep overviews concise and
concrete, and make examples practical.`

const flashcardsInstructions = `You are an educational assistant that creates study flashcards for a lesson.
Respond with a single JSON object and nothing else, in this exact shape:
{"flashcards": {"cards": [{"term": "...", "explanation": "..."}]}}
Cover the lesson's key concepts; keep each explanation self-contained.`

const quizInstructions = `You are an educational assistant that builds a quiz from a set of flashcards.
Respond with a single JSON object and nothing else, in this exact shape:
{"quiz": {"true_false_questions": [{"question": "...", "correct_answer": true, "explanation": "..."}],
"multiple_choice_questions": [{"question": "...", "options": ["...", "...", "...", "..."], "correct_answer": 0, "explanation": "..."}]}}
Every multiple choice question must have exactly 4 options, with
correct_answer as the zero-based index of the right one.`

// lessonPrompt formats a lesson as readable text for the flashcard stage.
func lessonPrompt(lesson domain.Lesson) string {
	return fmt.Sprintf(
		"Lesson Title: %s\nOverview: %s\nKey Concepts: %s\nExamples: %s\n",
		lesson.Title,
		lesson.Overview,
		strings.Join(lesson.KeyConcepts, ", "),
		strings.Join(lesson.Examples, ", "),
	)
}

// flashcardsPrompt formats a flashcard set as input for the quiz stage.
func flashcardsPrompt(cards []domain.Flashcard) string {
	var b strings.Builder
	b.WriteString("Flashcards:\n")
	for _, c := range cards {
		fmt.Fprintf(&b, "- %s: %s\n", c.Term, c.Explanation)
	}
	return b.String()
}
