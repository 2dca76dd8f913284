package httpx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/linkforge/linkforge-api/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Auth      AuthServiceInterface
	Projects  *service.ProjectService
	Jobs      *service.JobService
	Dispatch  *service.DispatchService
	Scheduler *service.SchedulerService
	Ingest    *service.IngestService
	Usage     *service.UsageService
	Orgs      *service.OrgService
	Cookie    SessionCookieConfig
	// EdgeSecret gates the workflow callback and cron routes. Empty
	// means those routes always reject.
	EdgeSecret string
	// DBPing is probed by the readiness endpoint when set.
	DBPing func(context.Context) error
	Logger *slog.Logger
}

// NewRouter creates and configures the HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	requireAuth := RequireAuth(services.Auth, services.Cookie.Name)
	requireEdge := RequireEdgeSecret(services.EdgeSecret)

	authHandlers := &AuthHandlers{Svc: services.Auth, Cookie: services.Cookie, Logger: services.Logger}
	projectHandlers := &ProjectHandlers{Svc: services.Projects, Jobs: services.Jobs}
	jobHandlers := &JobHandlers{Svc: services.Jobs, Dispatch: services.Dispatch}
	orgHandlers := &OrgHandlers{Svc: services.Orgs}
	usageHandlers := &UsageHandlers{Svc: services.Usage}
	hookHandlers := &HookHandlers{Ingest: services.Ingest, Usage: services.Usage}
	eventHandlers := &EventHandlers{Jobs: services.Jobs, Logger: services.Logger}
	schedulerHandlers := &SchedulerHandlers{Svc: services.Scheduler}

	registerAuthRoutes(mux, authHandlers, requireAuth)
	registerProjectRoutes(mux, projectHandlers, requireAuth)
	registerJobRoutes(mux, jobHandlers, requireAuth)
	registerOrgRoutes(mux, orgHandlers, requireAuth)
	mux.Handle("GET /api/usage", requireAuth(http.HandlerFunc(usageHandlers.Get)))
	mux.Handle("GET /api/events", requireAuth(http.HandlerFunc(eventHandlers.Stream)))
	registerHookRoutes(mux, hookHandlers, schedulerHandlers, requireEdge)

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("GET /readyz", readyHandler(services.DBPing))

	return mux
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers, requireAuth func(http.Handler) http.Handler) {
	mux.HandleFunc("POST /api/auth/login", h.Login)
	mux.HandleFunc("POST /api/auth/logout", h.Logout)
	mux.Handle("GET /api/auth/me", requireAuth(http.HandlerFunc(h.Me)))
}

func registerProjectRoutes(mux *http.ServeMux, h *ProjectHandlers, requireAuth func(http.Handler) http.Handler) {
	wrap := func(hf http.HandlerFunc) http.Handler { return requireAuth(hf) }
	mux.Handle("POST /api/projects", wrap(h.Create))
	mux.Handle("GET /api/projects", wrap(h.List))
	mux.Handle("GET /api/projects/{id}", wrap(h.Get))
	mux.Handle("PATCH /api/projects/{id}", wrap(h.Update))
	mux.Handle("DELETE /api/projects/{id}", wrap(h.Delete))
	mux.Handle("POST /api/projects/{id}/jobs", wrap(h.CreateJob))
	mux.Handle("GET /api/projects/{id}/jobs", wrap(h.ListJobs))
}

func registerJobRoutes(mux *http.ServeMux, h *JobHandlers, requireAuth func(http.Handler) http.Handler) {
	wrap := func(hf http.HandlerFunc) http.Handler { return requireAuth(hf) }
	mux.Handle("GET /api/jobs", wrap(h.List))
	mux.Handle("GET /api/jobs/stats", wrap(h.Stats))
	mux.Handle("GET /api/jobs/{id}", wrap(h.Get))
	mux.Handle("POST /api/jobs/{id}/dispatch", wrap(h.DispatchJob))
	mux.Handle("PATCH /api/jobs/{id}/status", wrap(h.OverrideStatus))
	mux.Handle("DELETE /api/jobs/{id}", wrap(h.Delete))
}

func registerOrgRoutes(mux *http.ServeMux, h *OrgHandlers, requireAuth func(http.Handler) http.Handler) {
	wrap := func(hf http.HandlerFunc) http.Handler { return requireAuth(hf) }
	mux.Handle("POST /api/orgs", wrap(h.Create))
	mux.Handle("GET /api/orgs", wrap(h.List))
	mux.Handle("GET /api/orgs/{id}", wrap(h.Get))
	mux.Handle("GET /api/orgs/{id}/members", wrap(h.ListMembers))
	mux.Handle("DELETE /api/orgs/{id}/members/{userID}", wrap(h.RemoveMember))
	mux.Handle("POST /api/orgs/{id}/invites", wrap(h.CreateInvite))
	mux.Handle("GET /api/orgs/{id}/invites", wrap(h.ListInvites))
	mux.Handle("POST /api/invites/{token}/accept", wrap(h.AcceptInvite))
}

func registerHookRoutes(
	mux *http.ServeMux,
	hooks *HookHandlers,
	scheduler *SchedulerHandlers,
	requireEdge func(http.Handler) http.Handler,
) {
	mux.Handle("POST /api/hooks/job-result", requireEdge(http.HandlerFunc(hooks.JobResult)))
	// Billing events carry their own provider signature instead of the
	// edge secret.
	mux.HandleFunc("POST /api/hooks/billing", hooks.Billing)
	mux.Handle("POST /api/scheduler/run", requireEdge(http.HandlerFunc(scheduler.Run)))
}
