package httpx

import (
	"net/http"

	"github.com/linkforge/linkforge-api/internal/domain/model"
	"github.com/linkforge/linkforge-api/internal/service"
)

const (
	defaultProjectListLimit = 50
	maxProjectListLimit     = 200
)

// ProjectHandlers provides HTTP handlers for project operations.
type ProjectHandlers struct {
	Svc  *service.ProjectService
	Jobs *service.JobService
}

// Create handles POST /api/projects.
func (h *ProjectHandlers) Create(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	var req model.CreateProjectRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	project, err := h.Svc.Create(r.Context(), session.UserID, &req)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, project)
}

// List handles GET /api/projects with optional q/limit/offset params.
func (h *ProjectHandlers) List(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	limit, offset := ParseLimitOffset(r, defaultProjectListLimit, maxProjectListLimit)
	opts := model.ProjectListOptions{
		UserID: session.UserID,
		Limit:  limit,
		Offset: offset,
	}
	if q := r.URL.Query().Get("q"); q != "" {
		opts.Q = &q
	}

	projects, err := h.Svc.List(r.Context(), opts)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, projects)
}

// Get handles GET /api/projects/{id}.
func (h *ProjectHandlers) Get(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	project, err := h.Svc.GetOwned(r.Context(), r.PathValue("id"), session.UserID)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, project)
}

// Update handles PATCH /api/projects/{id}.
func (h *ProjectHandlers) Update(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	var req model.UpdateProjectRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	project, err := h.Svc.Update(r.Context(), r.PathValue("id"), session.UserID, req)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, project)
}

// Delete handles DELETE /api/projects/{id}. Jobs cascade with the project.
func (h *ProjectHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	if err := h.Svc.Delete(r.Context(), r.PathValue("id"), session.UserID); err != nil {
		WriteAppError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CreateJob handles POST /api/projects/{id}/jobs.
func (h *ProjectHandlers) CreateJob(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	project, err := h.Svc.GetOwned(r.Context(), r.PathValue("id"), session.UserID)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	var req model.CreateJobRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	req.ProjectID = project.ID

	job, err := h.Jobs.Create(r.Context(), session.UserID, &req)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, job)
}

// ListJobs handles GET /api/projects/{id}/jobs.
func (h *ProjectHandlers) ListJobs(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	project, err := h.Svc.GetOwned(r.Context(), r.PathValue("id"), session.UserID)
	if err != nil {
		WriteAppError(w, err)
		return
	}

	opts := jobListOptionsFromQuery(r)
	opts.ProjectID = &project.ID

	jobs, err := h.Jobs.List(r.Context(), opts)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, jobs)
}
