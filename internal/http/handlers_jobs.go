package httpx

import (
	"net/http"

	"github.com/linkforge/linkforge-api/internal/domain/model"
	apperrors "github.com/linkforge/linkforge-api/internal/errors"
	"github.com/linkforge/linkforge-api/internal/service"
)

const (
	defaultJobListLimit = 50
	maxJobListLimit     = 200
)

// JobHandlers provides HTTP handlers for job-related operations.
type JobHandlers struct {
	Svc      *service.JobService
	Dispatch *service.DispatchService
}

// List handles GET /api/jobs for the authenticated user's jobs.
func (h *JobHandlers) List(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	opts := jobListOptionsFromQuery(r)
	opts.UserID = &session.UserID

	jobs, err := h.Svc.List(r.Context(), opts)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, jobs)
}

// Get handles GET /api/jobs/{id}.
func (h *JobHandlers) Get(w http.ResponseWriter, r *http.Request) {
	job, err := h.getOwnedJob(w, r)
	if err != nil {
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// Stats handles GET /api/jobs/stats for the authenticated user.
func (h *JobHandlers) Stats(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	stats, err := h.Svc.Stats(r.Context(), &session.UserID)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, stats)
}

// DispatchJob handles POST /api/jobs/{id}/dispatch. Claims the queued job and
// hands it to the workflow engine.
func (h *JobHandlers) DispatchJob(w http.ResponseWriter, r *http.Request) {
	job, err := h.getOwnedJob(w, r)
	if err != nil {
		return
	}

	dispatched, err := h.Dispatch.Dispatch(r.Context(), job.ID)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, dispatched)
}

// OverrideStatus handles PATCH /api/jobs/{id}/status, the administrative
// escape hatch for wedged jobs.
func (h *JobHandlers) OverrideStatus(w http.ResponseWriter, r *http.Request) {
	job, err := h.getOwnedJob(w, r)
	if err != nil {
		return
	}

	var req model.StatusOverrideRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	updated, err := h.Svc.OverrideStatus(r.Context(), job.ID, &req)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, updated)
}

// Delete handles DELETE /api/jobs/{id}. Only terminal jobs can be deleted.
func (h *JobHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	job, err := h.getOwnedJob(w, r)
	if err != nil {
		return
	}

	if err := h.Svc.Delete(r.Context(), job.ID); err != nil {
		WriteAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// getOwnedJob loads the job and checks it belongs to the session user,
// writing the error response on failure. Foreign jobs read as not found.
func (h *JobHandlers) getOwnedJob(w http.ResponseWriter, r *http.Request) (*model.Job, error) {
	session := GetSessionFromContext(r.Context())
	id := r.PathValue("id")

	job, err := h.Svc.GetByID(r.Context(), id)
	if err != nil {
		WriteAppError(w, err)
		return nil, err
	}
	if job.UserID != session.UserID {
		err := apperrors.NotFoundf("job %s not found", id)
		WriteAppError(w, err)
		return nil, err
	}
	return job, nil
}

// jobListOptionsFromQuery parses shared job listing query params.
func jobListOptionsFromQuery(r *http.Request) *model.JobListOptions {
	limit, offset := ParseLimitOffset(r, defaultJobListLimit, maxJobListLimit)
	opts := &model.JobListOptions{
		SortBy:    r.URL.Query().Get("sort_by"),
		SortOrder: r.URL.Query().Get("sort_order"),
		Limit:     limit,
		Offset:    offset,
	}
	if s := r.URL.Query().Get("status"); s != "" {
		status := model.JobStatus(s)
		if status.Valid() {
			opts.Status = &status
		}
	}
	return opts
}
