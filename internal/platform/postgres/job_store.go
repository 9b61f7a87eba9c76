package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sagelearn/sage-api/internal/store"
	"github.com/sagelearn/sage-api/internal/task"
)

// PostgresJobStore implements the task.JobStore interface using PostgreSQL.
type PostgresJobStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresJobStore creates a new PostgresJobStore.
func NewPostgresJobStore(db store.DBTX, logger *slog.Logger) *PostgresJobStore {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresJobStore{
		db:     db,
		logger: logger.With("component", "job_store"),
	}
}

// CreateJob persists a new job record.
func (s *PostgresJobStore) CreateJob(ctx context.Context, job *task.Job) error {
	query := `
		INSERT INTO jobs (id, type, payload, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := s.db.ExecContext(ctx, query,
		job.ID,
		job.Type,
		job.Payload,
		job.Status,
		job.CreatedAt,
	)
	if err != nil {
		s.logger.Error("failed to create job",
			"job_id", job.ID,
			"job_type", job.Type,
			"error", err)
		return store.NewStoreError("job", "create", "failed to insert job", MapError(err))
	}

	return nil
}

// UpdateJobStatus updates the status of a job along with its result or error
// message. Terminal statuses are write-once: once a job is completed or
// failed the update is a no-op, enforced in the WHERE clause so concurrent
// writers cannot race past it.
func (s *PostgresJobStore) UpdateJobStatus(
	ctx context.Context,
	jobID uuid.UUID,
	status task.Status,
	result json.RawMessage,
	errorMsg string,
) error {
	query := `
		UPDATE jobs
		SET status = $1,
		    result = $2,
		    error_message = $3,
		    completed_at = $4
		WHERE id = $5
		  AND status NOT IN ('completed', 'failed')
	`

	var completedAt any
	if status.IsTerminal() {
		completedAt = time.Now().UTC()
	}

	res, err := s.db.ExecContext(ctx, query,
		status,
		result,
		errorMsg,
		completedAt,
		jobID,
	)
	if err != nil {
		s.logger.Error("failed to update job status",
			"job_id", jobID,
			"status", status,
			"error", err)
		return store.NewStoreError("job", "update", "failed to update job status", MapError(err))
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		// Either the job does not exist or it already reached a terminal
		// status. Both are harmless under at-least-once execution.
		s.logger.Debug("job status update affected no rows",
			"job_id", jobID,
			"status", status)
	}

	return nil
}

// GetJob retrieves a job by ID.
func (s *PostgresJobStore) GetJob(ctx context.Context, jobID uuid.UUID) (*task.Job, error) {
	query := `
		SELECT id, type, payload, status, result, error_message, created_at, completed_at
		FROM jobs
		WHERE id = $1
	`

	job, err := scanJob(s.db.QueryRowContext(ctx, query, jobID))
	if err != nil {
		if store.IsNotFoundError(MapError(err)) {
			return nil, store.ErrJobNotFound
		}
		s.logger.Error("failed to get job",
			"job_id", jobID,
			"error", err)
		return nil, store.NewStoreError("job", "get", "failed to query job", MapError(err))
	}

	return job, nil
}

// ListUnfinishedJobs retrieves all jobs in pending or processing state,
// oldest first. Ordering by created_at preserves submission order across
// restarts.
func (s *PostgresJobStore) ListUnfinishedJobs(ctx context.Context) ([]*task.Job, error) {
	query := `
		SELECT id, type, payload, status, result, error_message, created_at, completed_at
		FROM jobs
		WHERE status IN ('pending', 'processing')
		ORDER BY created_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		s.logger.Error("failed to query unfinished jobs", "error", err)
		return nil, store.NewStoreError("job", "list", "failed to query unfinished jobs", MapError(err))
	}
	defer func() { _ = rows.Close() }()

	var jobs []*task.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, store.NewStoreError("job", "list", "failed to scan job row", err)
		}
		jobs = append(jobs, job)
	}

	if err := rows.Err(); err != nil {
		return nil, store.NewStoreError("job", "list", "error iterating job rows", err)
	}

	return jobs, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for scanJob.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*task.Job, error) {
	var (
		job          task.Job
		result       []byte
		errorMessage sql.NullString
		completedAt  sql.NullTime
	)

	err := row.Scan(
		&job.ID,
		&job.Type,
		&job.Payload,
		&job.Status,
		&result,
		&errorMessage,
		&job.CreatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	job.Result = result
	job.Error = errorMessage.String
	if completedAt.Valid {
		t := completedAt.Time
		job.CompletedAt = &t
	}

	return &job, nil
}
