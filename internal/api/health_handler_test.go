package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagelearn/sage-api/internal/task"
)

type stubHealthReporter struct {
	snapshot task.HealthSnapshot
}

func (s *stubHealthReporter) Health() task.HealthSnapshot {
	return s.snapshot
}

func TestGetHealth_Running(t *testing.T) {
	t.Parallel()

	h := NewHealthHandler(&stubHealthReporter{snapshot: task.HealthSnapshot{
		Depth:       3,
		Active:      2,
		WorkerCount: 4,
		Running:     true,
	}})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	h.GetHealth(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 3, resp.Queue.Depth)
	assert.Equal(t, 4, resp.Queue.WorkerCount)
}

func TestGetHealth_NotRunning(t *testing.T) {
	t.Parallel()

	h := NewHealthHandler(&stubHealthReporter{snapshot: task.HealthSnapshot{}})

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	h.GetHealth(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, "degraded", resp.Status)
}
