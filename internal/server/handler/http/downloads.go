// Package http provides HTTP handlers for the download gateway API.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/ZyrticX/MP4/internal/middleware"
	"github.com/ZyrticX/MP4/internal/models"
	"github.com/ZyrticX/MP4/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// DownloadService defines the interface for download job operations
// required by the DownloadHandler.
type DownloadService interface {
	// Submit validates and records a new download job and starts
	// processing it asynchronously.
	Submit(ctx context.Context, req service.SubmitRequest) (*models.Job, error)
	// GetStatus returns the current state of a job.
	GetStatus(ctx context.Context, id string) (*models.Job, error)
	// ListForUser returns a user's jobs, newest first.
	ListForUser(ctx context.Context, userID string, limit int) ([]models.Job, error)
	// Cancel stops a job; cancelling a terminal job is a no-op.
	Cancel(ctx context.Context, id string) error
	// Retry reprocesses a failed or cancelled job.
	Retry(ctx context.Context, id string) (*models.Job, error)
}

// DownloadHandler handles HTTP requests for download jobs.
type DownloadHandler struct {
	DownloadService DownloadService
}

// Submit handles POST /api/downloads requests.
// It decodes a JSON body with "url" and optional "mediaType" and
// "quality", submits the job, and writes the pending job as JSON.
func (h *DownloadHandler) Submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		URL       string `json:"url"`
		MediaType string `json:"mediaType"`
		Quality   string `json:"quality"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid body")
		return
	}

	job, err := h.DownloadService.Submit(ctx, service.SubmitRequest{
		URL:       req.URL,
		UserID:    middleware.GetUserIDFromContext(ctx),
		MediaType: models.MediaType(req.MediaType),
		Quality:   req.Quality,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, job)
}

// Status handles GET /api/downloads/{jobID} requests.
func (h *DownloadHandler) Status(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if _, err := uuid.Parse(jobID); err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	job, err := h.DownloadService.GetStatus(r.Context(), jobID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, job)
}

// ListForUser handles GET /api/downloads/user/{userID} requests.
// An optional "limit" query parameter caps the number of jobs returned.
func (h *DownloadHandler) ListForUser(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	jobs, err := h.DownloadService.ListForUser(r.Context(), userID, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if jobs == nil {
		jobs = []models.Job{}
	}

	writeJSON(w, http.StatusOK, jobs)
}

// Cancel handles POST /api/downloads/{jobID}/cancel requests.
func (h *DownloadHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if _, err := uuid.Parse(jobID); err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	if err := h.DownloadService.Cancel(r.Context(), jobID); err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// Retry handles POST /api/downloads/{jobID}/retry requests.
func (h *DownloadHandler) Retry(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	if _, err := uuid.Parse(jobID); err != nil {
		writeError(w, http.StatusBadRequest, "invalid job id")
		return
	}

	job, err := h.DownloadService.Retry(r.Context(), jobID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, job)
}

// writeServiceError maps service errors onto HTTP status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	var verr *service.ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "download job not found")
	case errors.Is(err, service.ErrNotRetryable):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
