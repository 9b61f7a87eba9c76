package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/sagelearn/sage-api/internal/api/shared"
	"github.com/sagelearn/sage-api/internal/service"
	"github.com/sagelearn/sage-api/internal/task"
)

// defaultRecentLimit bounds the recent-lessons listing.
const defaultRecentLimit = 20

// CreateQueryRequest represents the request body for submitting a new query.
type CreateQueryRequest struct {
	Query  string `json:"query" validate:"required,min=1"`
	UserID string `json:"user_id,omitempty"`
}

// JobResponse represents the response data for a background job.
type JobResponse struct {
	ID          string     `json:"id"`
	Type        string     `json:"type"`
	Status      string     `json:"status"`
	Result      any        `json:"result,omitempty"`
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// QueryHandler handles query-related HTTP requests.
type QueryHandler struct {
	queryService service.QueryService
}

// NewQueryHandler creates a new QueryHandler.
func NewQueryHandler(queryService service.QueryService) *QueryHandler {
	return &QueryHandler{
		queryService: queryService,
	}
}

// CreateQuery handles POST /api/queries requests. Processing happens
// asynchronously, so the response is 202 Accepted with the job IDs to poll.
func (h *QueryHandler) CreateQuery(w http.ResponseWriter, r *http.Request) {
	var req CreateQueryRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}

	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Validation error: "+err.Error())
		return
	}

	submission, err := h.queryService.StartQuery(r.Context(), req.Query, req.UserID)
	if err != nil {
		if errors.Is(err, service.ErrEmptyQuery) {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Query text cannot be empty")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to accept query", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusAccepted, submission)
}

// GetJob handles GET /api/jobs/{id} requests. A failed job is still a 200
// with status "failed"; 404 means the ID itself is unknown.
func (h *QueryHandler) GetJob(w http.ResponseWriter, r *http.Request) {
	jobID, ok := h.pathUUID(w, r, "id")
	if !ok {
		return
	}

	job, err := h.queryService.JobStatus(r.Context(), jobID)
	if err != nil {
		if errors.Is(err, service.ErrJobNotFound) {
			shared.RespondWithError(w, r, http.StatusNotFound, "Job not found")
			return
		}
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to retrieve job", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, jobToResponse(job))
}

// GetRelatedQuestions handles GET /api/queries/{id}/related-questions.
func (h *QueryHandler) GetRelatedQuestions(w http.ResponseWriter, r *http.Request) {
	queryID, ok := h.pathUUID(w, r, "id")
	if !ok {
		return
	}

	rec, err := h.queryService.RelatedQuestions(r.Context(), queryID)
	if err != nil {
		h.respondContentError(w, r, err, "related questions")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, rec)
}

// GetLessons handles GET /api/queries/{id}/lessons.
func (h *QueryHandler) GetLessons(w http.ResponseWriter, r *http.Request) {
	queryID, ok := h.pathUUID(w, r, "id")
	if !ok {
		return
	}

	rec, err := h.queryService.Lessons(r.Context(), queryID)
	if err != nil {
		h.respondContentError(w, r, err, "lessons")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, rec)
}

// GetFlashcards handles GET /api/queries/{id}/lessons/{index}/flashcards.
func (h *QueryHandler) GetFlashcards(w http.ResponseWriter, r *http.Request) {
	queryID, ok := h.pathUUID(w, r, "id")
	if !ok {
		return
	}
	lessonIndex, ok := h.pathIndex(w, r)
	if !ok {
		return
	}

	rec, err := h.queryService.Flashcards(r.Context(), queryID, lessonIndex)
	if err != nil {
		h.respondContentError(w, r, err, "flashcards")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, rec)
}

// ListFlashcards handles GET /api/queries/{id}/flashcards. It returns every
// flashcard set generated so far for the query, ordered by lesson index; sets
// whose sub-pipelines are still running or have failed are simply absent.
func (h *QueryHandler) ListFlashcards(w http.ResponseWriter, r *http.Request) {
	queryID, ok := h.pathUUID(w, r, "id")
	if !ok {
		return
	}

	records, err := h.queryService.AllFlashcards(r.Context(), queryID)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to list flashcards", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, records)
}

// GetQuiz handles GET /api/queries/{id}/lessons/{index}/quiz.
func (h *QueryHandler) GetQuiz(w http.ResponseWriter, r *http.Request) {
	queryID, ok := h.pathUUID(w, r, "id")
	if !ok {
		return
	}
	lessonIndex, ok := h.pathIndex(w, r)
	if !ok {
		return
	}

	rec, err := h.queryService.Quiz(r.Context(), queryID, lessonIndex)
	if err != nil {
		h.respondContentError(w, r, err, "quiz")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, rec)
}

// ListRecentLessons handles GET /api/lessons/recent.
func (h *QueryHandler) ListRecentLessons(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.queryLimit(w, r)
	if !ok {
		return
	}

	records, err := h.queryService.RecentLessons(r.Context(), limit)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to list recent lessons", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, records)
}

// ListRecentFlashcards handles GET /api/flashcards/recent.
func (h *QueryHandler) ListRecentFlashcards(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.queryLimit(w, r)
	if !ok {
		return
	}

	records, err := h.queryService.RecentFlashcards(r.Context(), limit)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to list recent flashcards", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, records)
}

// ListRecentRelatedQuestions handles GET /api/related-questions/recent.
func (h *QueryHandler) ListRecentRelatedQuestions(w http.ResponseWriter, r *http.Request) {
	limit, ok := h.queryLimit(w, r)
	if !ok {
		return
	}

	records, err := h.queryService.RecentRelatedQuestions(r.Context(), limit)
	if err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to list recent related questions", err)
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, records)
}

// queryLimit parses the optional limit query parameter, responding 400 on
// failure. Requests beyond the default are clamped, not rejected.
func (h *QueryHandler) queryLimit(w http.ResponseWriter, r *http.Request) (int, bool) {
	limit := defaultRecentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid limit parameter")
			return 0, false
		}
		if parsed < limit {
			limit = parsed
		}
	}
	return limit, true
}

// pathUUID parses a UUID path parameter, responding 400 on failure.
func (h *QueryHandler) pathUUID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid "+name+" parameter")
		return uuid.Nil, false
	}
	return id, true
}

// pathIndex parses the lesson index path parameter, responding 400 on failure.
func (h *QueryHandler) pathIndex(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil || index < 0 {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid lesson index")
		return 0, false
	}
	return index, true
}

// respondContentError maps service errors on the read path to HTTP statuses.
func (h *QueryHandler) respondContentError(w http.ResponseWriter, r *http.Request, err error, what string) {
	if errors.Is(err, service.ErrContentNotFound) {
		shared.RespondWithError(w, r, http.StatusNotFound, "No "+what+" found for this query")
		return
	}
	shared.RespondWithErrorAndLog(w, r, http.StatusInternalServerError, "Failed to retrieve "+what, err)
}

// jobToResponse converts a task.Job to a JobResponse.
func jobToResponse(job *task.Job) JobResponse {
	resp := JobResponse{
		ID:          job.ID.String(),
		Type:        job.Type,
		Status:      string(job.Status),
		Error:       job.Error,
		CreatedAt:   job.CreatedAt,
		CompletedAt: job.CompletedAt,
	}
	if len(job.Result) > 0 {
		resp.Result = json.RawMessage(job.Result)
	}
	return resp
}
