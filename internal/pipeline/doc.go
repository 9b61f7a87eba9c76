// Package pipeline contains the stage handlers that turn a query into its
// generated artifacts: related questions, lessons, and the per-lesson
// flashcards and quizzes. Each handler consults the hybrid cache before
// calling the generation client, decodes the output with a manual-extraction
// fallback for malformed responses, and persists results as upserts so
// re-execution is safe.
package pipeline
