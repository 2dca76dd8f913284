package httpx

import (
	"net/http"

	"github.com/linkforge/linkforge-api/internal/service"
)

// SchedulerHandlers exposes an on-demand batch run for cron callers.
type SchedulerHandlers struct {
	Svc *service.SchedulerService
}

// Run handles POST /api/scheduler/run. The edge secret middleware
// gates this route; it is meant for external cron triggers, not users.
func (h *SchedulerHandlers) Run(w http.ResponseWriter, r *http.Request) {
	result, err := h.Svc.RunBatch(r.Context())
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, result)
}
