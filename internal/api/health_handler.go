package api

import (
	"net/http"

	"github.com/sagelearn/sage-api/internal/api/shared"
	"github.com/sagelearn/sage-api/internal/task"
)

// HealthReporter exposes a read-only view of the job queue.
// Satisfied by *task.Scheduler.
type HealthReporter interface {
	Health() task.HealthSnapshot
}

// HealthResponse represents the response data for a health check.
type HealthResponse struct {
	Status string              `json:"status"`
	Queue  task.HealthSnapshot `json:"queue"`
}

// HealthHandler handles health check requests.
type HealthHandler struct {
	reporter HealthReporter
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(reporter HealthReporter) *HealthHandler {
	return &HealthHandler{reporter: reporter}
}

// GetHealth handles GET /api/health requests. The snapshot is informational;
// no admission control is derived from it, and a saturated queue still
// reports ok because submissions remain durable.
func (h *HealthHandler) GetHealth(w http.ResponseWriter, r *http.Request) {
	snapshot := h.reporter.Health()

	status := "ok"
	if !snapshot.Running {
		status = "degraded"
	}

	code := http.StatusOK
	if status != "ok" {
		code = http.StatusServiceUnavailable
	}

	shared.RespondWithJSON(w, r, code, HealthResponse{
		Status: status,
		Queue:  snapshot,
	})
}
