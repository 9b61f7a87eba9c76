package task

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Status represents the current state of a job.
type Status string

// Possible job status values. Transitions are monotonic:
// pending -> processing -> {completed, failed}; a terminal status is
// write-once.
const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// IsTerminal reports whether the status is one of the two final states.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Job type constants
const (
	// TypeRelatedQuestions generates follow-up questions for a query.
	TypeRelatedQuestions = "related_questions"

	// TypeLessons generates the lesson list for a query and spawns the
	// per-lesson sub-pipelines.
	TypeLessons = "lessons"

	// TypeLessonAssets generates flashcards and a quiz for a single lesson.
	// Only enqueued when durable lesson assets are enabled; otherwise the
	// lessons handler runs the same work as fire-and-forget goroutines.
	TypeLessonAssets = "lesson_assets"
)

// Job represents a unit of background work. It is created on submission,
// mutated only by the worker that owns it, and never deleted. A re-run of
// the same stage supersedes prior content through upserts, not through job
// mutation.
type Job struct {
	ID          uuid.UUID       `json:"id"`
	Type        string          `json:"type"`
	Payload     json.RawMessage `json:"payload"`
	Status      Status          `json:"status"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       string          `json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// NewJob creates a pending job of the given type, serializing payload to
// JSON.
func NewJob(jobType string, payload any) (*Job, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job payload: %w", err)
	}

	return &Job{
		ID:        uuid.New(),
		Type:      jobType,
		Payload:   data,
		Status:    StatusPending,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Handler executes jobs of a single type. Implementations must be safe to
// re-run: recovery delivers at-least-once execution, and the upsert-based
// persistence of stage results makes re-execution harmless.
// Version: 1.0
type Handler interface {
	// Type returns the job type this handler executes.
	Type() string

	// Handle runs the job and returns its result payload.
	Handle(ctx context.Context, job *Job) (json.RawMessage, error)
}

// JobStore defines the interface for persisting jobs.
// Version: 1.0
type JobStore interface {
	// CreateJob persists a new job record.
	CreateJob(ctx context.Context, job *Job) error

	// UpdateJobStatus updates the status of a job along with its result or
	// error message. Implementations must not overwrite a terminal status.
	UpdateJobStatus(ctx context.Context, jobID uuid.UUID, status Status, result json.RawMessage, errorMsg string) error

	// GetJob retrieves a job by ID. Returns store.ErrJobNotFound if the job
	// does not exist.
	GetJob(ctx context.Context, jobID uuid.UUID) (*Job, error)

	// ListUnfinishedJobs retrieves all jobs in pending or processing state,
	// oldest first. Used for crash recovery on startup.
	ListUnfinishedJobs(ctx context.Context) ([]*Job, error)
}
