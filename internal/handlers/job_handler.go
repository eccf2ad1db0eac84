package handlers

import (
	"context"
	"net/http"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/models"
)

// JobQueue is the job lifecycle used by the HTTP surface
type JobQueue interface {
	Enqueue(ctx context.Context, input models.JobInput) (string, error)
	Get(ctx context.Context, jobID string) (*models.Job, error)
	List(ctx context.Context, opts *models.JobListOptions) ([]*models.Job, error)
	Retry(ctx context.Context, jobID string) (string, error)
	Dismiss(ctx context.Context, jobID string) error
	RecoverStuckJobs(ctx context.Context) (int, error)
}

// Waker nudges idle workers after new work is queued
type Waker interface {
	Wake()
}

// JobHandler handles generation job API requests
type JobHandler struct {
	queue  JobQueue
	waker  Waker
	logger arbor.ILogger
}

// NewJobHandler creates a new job handler. waker may be nil.
func NewJobHandler(queue JobQueue, waker Waker, logger arbor.ILogger) *JobHandler {
	return &JobHandler{
		queue:  queue,
		waker:  waker,
		logger: logger,
	}
}

// JobsRoute handles /api/jobs
// GET lists jobs, POST enqueues a job
func (h *JobHandler) JobsRoute(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.ListJobsHandler(w, r)
	case http.MethodPost:
		h.EnqueueHandler(w, r)
	default:
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
	}
}

// JobRoutes handles /api/jobs/{id}, /api/jobs/{id}/retry and /api/jobs/recover
func (h *JobHandler) JobRoutes(w http.ResponseWriter, r *http.Request) {
	parts := PathSegments(r, "/api/jobs/")
	switch {
	case len(parts) == 1 && parts[0] == "recover":
		if RequireMethod(w, r, http.MethodPost) {
			h.RecoverHandler(w, r)
		}
	case len(parts) == 1:
		switch r.Method {
		case http.MethodGet:
			h.GetJobHandler(w, r, parts[0])
		case http.MethodDelete:
			h.DismissHandler(w, r, parts[0])
		default:
			WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
	case len(parts) == 2 && parts[1] == "retry":
		if RequireMethod(w, r, http.MethodPost) {
			h.RetryHandler(w, r, parts[0])
		}
	default:
		WriteError(w, http.StatusNotFound, "Not found")
	}
}

// EnqueueHandler creates a QUEUED job
// POST /api/jobs {"keyword_id": "...", "content_length": "LONG", "auto_publish": true}
func (h *JobHandler) EnqueueHandler(w http.ResponseWriter, r *http.Request) {
	var input models.JobInput
	if err := DecodeBody(w, r, &input); err != nil {
		WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	id, err := h.queue.Enqueue(r.Context(), input)
	if err != nil {
		WriteServiceError(w, h.logger, err, "Enqueue job")
		return
	}
	if h.waker != nil {
		h.waker.Wake()
	}

	WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": id,
		"status": string(models.JobStatusQueued),
	})
}

// ListJobsHandler returns jobs, newest first
// GET /api/jobs?status=FAILED&website_id=...&limit=50&offset=0
func (h *JobHandler) ListJobsHandler(w http.ResponseWriter, r *http.Request) {
	opts := &models.JobListOptions{
		Status:    models.JobStatus(r.URL.Query().Get("status")),
		WebsiteID: r.URL.Query().Get("website_id"),
		Limit:     QueryInt(r, "limit", 50, 1, 500),
		Offset:    QueryInt(r, "offset", 0, 0, 1<<20),
	}

	jobs, err := h.queue.List(r.Context(), opts)
	if err != nil {
		WriteServiceError(w, h.logger, err, "List jobs")
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":   jobs,
		"count":  len(jobs),
		"limit":  opts.Limit,
		"offset": opts.Offset,
	})
}

// GetJobHandler returns a single job
// GET /api/jobs/{id}
func (h *JobHandler) GetJobHandler(w http.ResponseWriter, r *http.Request, id string) {
	job, err := h.queue.Get(r.Context(), id)
	if err != nil {
		WriteServiceError(w, h.logger, err, "Get job")
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// RetryHandler replaces a FAILED job with a new one
// POST /api/jobs/{id}/retry
func (h *JobHandler) RetryHandler(w http.ResponseWriter, r *http.Request, id string) {
	newID, err := h.queue.Retry(r.Context(), id)
	if err != nil {
		WriteServiceError(w, h.logger, err, "Retry job")
		return
	}
	if h.waker != nil {
		h.waker.Wake()
	}

	WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id":          newID,
		"previous_job_id": id,
		"status":          string(models.JobStatusQueued),
	})
}

// DismissHandler deletes a terminal job
// DELETE /api/jobs/{id}
func (h *JobHandler) DismissHandler(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.queue.Dismiss(r.Context(), id); err != nil {
		WriteServiceError(w, h.logger, err, "Dismiss job")
		return
	}
	WriteSuccess(w, "Job dismissed")
}

// RecoverHandler runs the stuck-job sweep now
// POST /api/jobs/recover
func (h *JobHandler) RecoverHandler(w http.ResponseWriter, r *http.Request) {
	n, err := h.queue.RecoverStuckJobs(r.Context())
	if err != nil {
		WriteServiceError(w, h.logger, err, "Recover jobs")
		return
	}
	WriteJSON(w, http.StatusOK, map[string]int{"recovered": n})
}
