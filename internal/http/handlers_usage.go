package httpx

import (
	"net/http"

	"github.com/linkforge/linkforge-api/internal/service"
)

// UsageHandlers provides HTTP handlers for quota and billing reads.
type UsageHandlers struct {
	Svc *service.UsageService
}

// Get handles GET /api/usage for the authenticated user's current period.
func (h *UsageHandlers) Get(w http.ResponseWriter, r *http.Request) {
	session := GetSessionFromContext(r.Context())

	usage, err := h.Svc.GetUsage(r.Context(), session.UserID)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, usage)
}
