package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/sagelearn/sage-api/internal/metrics"
)

// Common errors returned by the Scheduler
var (
	ErrUnknownJobType = errors.New("no handler registered for job type")
	ErrNotRunning     = errors.New("scheduler is not running")
)

// SchedulerConfig holds configuration for the scheduler.
type SchedulerConfig struct {
	// WorkerCount determines how many concurrent workers process jobs.
	// Resolved once at startup (see config.ResolveWorkerCount); if zero or
	// negative, defaults to 1.
	WorkerCount int

	// QueueSize determines the buffer size for the in-memory job queue.
	QueueSize int
}

// DefaultSchedulerConfig returns a SchedulerConfig with reasonable defaults.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		WorkerCount: 2,
		QueueSize:   1024,
	}
}

// HealthSnapshot is a read-only view of the queue for external monitoring.
type HealthSnapshot struct {
	Depth       int  `json:"depth"`
	Active      int  `json:"active"`
	WorkerCount int  `json:"worker_count"`
	Running     bool `json:"running"`
}

// Scheduler manages background job processing: a strict-FIFO in-memory queue
// drained by a fixed worker pool, with every job durably recorded before it
// is queued so that a crash can never silently lose work.
//
// A Scheduler is an explicit value constructed once at process start and
// passed to submission and status-query call sites; it has no package-level
// state.
type Scheduler struct {
	store    JobStore
	handlers map[string]Handler
	jobs     chan *Job
	config   SchedulerConfig
	logger   *slog.Logger
	metrics  *metrics.Metrics

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	active atomic.Int32

	mu      sync.Mutex
	running bool
}

// NewScheduler creates a new Scheduler. m may be nil to disable
// instrumentation.
func NewScheduler(store JobStore, config SchedulerConfig, m *metrics.Metrics, logger *slog.Logger) *Scheduler {
	if config.WorkerCount <= 0 {
		logger.Warn("invalid worker count specified, using default",
			"specified_count", config.WorkerCount,
			"default_count", 1)
		config.WorkerCount = 1
	}
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultSchedulerConfig().QueueSize
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Scheduler{
		store:    store,
		handlers: make(map[string]Handler),
		jobs:     make(chan *Job, config.QueueSize),
		config:   config,
		logger:   logger,
		metrics:  m,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Register installs the handler for its job type. Handlers must be
// registered before Start so recovered jobs can be dispatched.
func (s *Scheduler) Register(h Handler) {
	if _, exists := s.handlers[h.Type()]; exists {
		s.logger.Warn("replacing registered job handler", "job_type", h.Type())
	}
	s.handlers[h.Type()] = h
}

// Submit durably records a new job and places it on the queue, returning its
// ID. The durable write happens first: if the in-memory queue is full the
// job is left pending and will be picked up by recovery on the next start,
// so submission is always accepted.
func (s *Scheduler) Submit(ctx context.Context, jobType string, payload any) (uuid.UUID, error) {
	if _, ok := s.handlers[jobType]; !ok {
		return uuid.Nil, fmt.Errorf("%w: %s", ErrUnknownJobType, jobType)
	}

	job, err := NewJob(jobType, payload)
	if err != nil {
		return uuid.Nil, err
	}

	if err := s.store.CreateJob(ctx, job); err != nil {
		return uuid.Nil, fmt.Errorf("failed to save job: %w", err)
	}

	s.enqueue(job)

	s.logger.Debug("job submitted",
		"job_id", job.ID,
		"job_type", job.Type,
		"queue_depth", len(s.jobs))

	return job.ID, nil
}

// Status retrieves the durable record for a job. The store is the source of
// truth, so a status survives restarts and remains queryable indefinitely.
func (s *Scheduler) Status(ctx context.Context, jobID uuid.UUID) (*Job, error) {
	return s.store.GetJob(ctx, jobID)
}

// Health returns a read-only snapshot of queue depth and worker activity.
// No admission control is derived from it.
func (s *Scheduler) Health() HealthSnapshot {
	s.mu.Lock()
	running := s.running
	s.mu.Unlock()

	return HealthSnapshot{
		Depth:       len(s.jobs),
		Active:      int(s.active.Load()),
		WorkerCount: s.config.WorkerCount,
		Running:     running,
	}
}

// Start recovers unfinished jobs from the durable store and launches the
// worker pool.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return nil
	}

	if err := s.recover(); err != nil {
		return fmt.Errorf("failed to recover jobs: %w", err)
	}

	for i := 0; i < s.config.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	s.running = true
	s.logger.Info("scheduler started", "worker_count", s.config.WorkerCount)
	return nil
}

// Stop cancels the worker loops and waits for them to exit. Jobs caught
// mid-flight keep whatever status was last durably written, typically
// processing, which recovery re-queues on the next start.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return
	}

	s.cancel()
	s.wg.Wait()
	s.running = false
	s.logger.Info("scheduler stopped")
}

// recover re-queues every job left in pending or processing state by a
// previous run, exactly once each. Processing jobs are first reset to
// pending so the durable record matches the queue.
func (s *Scheduler) recover() error {
	ctx := context.Background()

	jobs, err := s.store.ListUnfinishedJobs(ctx)
	if err != nil {
		return fmt.Errorf("failed to list unfinished jobs: %w", err)
	}

	if len(jobs) == 0 {
		return nil
	}

	s.logger.Info("recovering unfinished jobs", "count", len(jobs))

	for _, job := range jobs {
		if job.Status == StatusProcessing {
			if err := s.store.UpdateJobStatus(ctx, job.ID, StatusPending, nil, "reset after recovery"); err != nil {
				s.logger.Error("failed to reset processing job",
					"job_id", job.ID,
					"job_type", job.Type,
					"error", err)
				continue
			}
			job.Status = StatusPending
		}
		s.enqueue(job)
	}

	return nil
}

// enqueue places a job on the in-memory queue without blocking. The job is
// already durable, so a full queue only defers it to the next recovery scan
// instead of losing or rejecting it.
func (s *Scheduler) enqueue(job *Job) {
	select {
	case s.jobs <- job:
		s.setQueueDepth()
	default:
		s.logger.Warn("job queue is full, leaving job pending for recovery",
			"job_id", job.ID,
			"job_type", job.Type,
			"queue_cap", cap(s.jobs))
	}
}

// worker drains the queue until the scheduler context is cancelled.
func (s *Scheduler) worker(id int) {
	defer s.wg.Done()

	s.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-s.ctx.Done():
			s.logger.Debug("stopping worker", "worker_id", id)
			return
		case job := <-s.jobs:
			s.setQueueDepth()
			s.processJob(job, id)
		}
	}
}

// processJob handles execution of a single job: mark processing, dispatch to
// the type's handler, persist the terminal status. In-flight work is not
// cancelled by shutdown, so execution uses a fresh context.
func (s *Scheduler) processJob(job *Job, workerID int) {
	ctx := context.Background()
	logger := s.logger.With(
		"job_id", job.ID,
		"job_type", job.Type,
		"worker_id", workerID,
	)

	s.active.Add(1)
	s.setActiveWorkers()
	defer func() {
		s.active.Add(-1)
		s.setActiveWorkers()
	}()

	if err := s.store.UpdateJobStatus(ctx, job.ID, StatusProcessing, nil, ""); err != nil {
		logger.Error("failed to update job status to processing", "error", err)
		return
	}

	logger.Info("processing job")

	handler, ok := s.handlers[job.Type]
	if !ok {
		// Can happen when a recovered job predates a handler change.
		err := fmt.Errorf("%w: %s", ErrUnknownJobType, job.Type)
		logger.Error("job dispatch failed", "error", err)
		s.finishJob(ctx, logger, job, nil, err)
		return
	}

	result, err := handler.Handle(ctx, job)
	s.finishJob(ctx, logger, job, result, err)
}

// finishJob persists the terminal status for a job.
func (s *Scheduler) finishJob(ctx context.Context, logger *slog.Logger, job *Job, result []byte, err error) {
	status := StatusCompleted
	errMsg := ""
	if err != nil {
		status = StatusFailed
		errMsg = err.Error()
		result = nil
		logger.Error("job execution failed", "error", err)
	} else {
		logger.Info("job completed successfully")
	}

	if updateErr := s.store.UpdateJobStatus(ctx, job.ID, status, result, errMsg); updateErr != nil {
		logger.Error("failed to update job terminal status",
			"status", status,
			"error", updateErr)
	}

	if s.metrics != nil {
		s.metrics.JobsProcessed.WithLabelValues(job.Type, string(status)).Inc()
	}
}

func (s *Scheduler) setQueueDepth() {
	if s.metrics != nil {
		s.metrics.QueueDepth.Set(float64(len(s.jobs)))
	}
}

func (s *Scheduler) setActiveWorkers() {
	if s.metrics != nil {
		s.metrics.ActiveWorkers.Set(float64(s.active.Load()))
	}
}
