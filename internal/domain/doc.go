// Package domain contains the core entity types produced by the generation
// pipeline: related questions, lessons, flashcards, and quizzes. These are
// pure value types with their own validation rules and no persistence or
// transport concerns.
package domain
