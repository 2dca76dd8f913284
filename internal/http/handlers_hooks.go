package httpx

import (
	"io"
	"net/http"

	"github.com/linkforge/linkforge-api/internal/domain/model"
	apperrors "github.com/linkforge/linkforge-api/internal/errors"
	"github.com/linkforge/linkforge-api/internal/service"
)

// maxWebhookBody caps webhook payload reads. Stripe events and workflow
// callbacks are small; anything beyond this is malformed or hostile.
const maxWebhookBody = 1 << 20

// HookHandlers receives callbacks from the workflow engine and the
// billing provider. These routes are not session-authenticated; the
// job-result hook sits behind the edge secret and the billing hook is
// verified by its signature header.
type HookHandlers struct {
	Ingest *service.IngestService
	Usage  *service.UsageService
}

// JobResult handles POST /api/hooks/job-result.
func (h *HookHandlers) JobResult(w http.ResponseWriter, r *http.Request) {
	var req model.IngestResultRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	job, err := h.Ingest.IngestResult(r.Context(), &req)
	if err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// Billing handles POST /api/hooks/billing. The raw body is passed
// through untouched so signature verification sees exactly what the
// provider signed.
func (h *HookHandlers) Billing(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		WriteAppError(w, apperrors.Validation("unable to read webhook payload"))
		return
	}

	if err := h.Usage.ProcessBillingEvent(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		WriteAppError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]bool{"received": true})
}
