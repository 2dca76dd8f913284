package httpx

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/linkforge/linkforge-api/internal/domain/model"
)

// heartbeatInterval keeps idle SSE connections alive through proxies
// that drop quiet streams.
const heartbeatInterval = 25 * time.Second

// JobSubscriber is the slice of the job service the event stream needs.
type JobSubscriber interface {
	Subscribe() (func(), <-chan model.JobChange)
}

// EventHandlers streams job status changes to authenticated clients
// over server-sent events.
type EventHandlers struct {
	Jobs   JobSubscriber
	Logger *slog.Logger
}

// Stream handles GET /api/events. Only changes belonging to the
// session's user are forwarded; the subscription itself is shared.
func (h *EventHandlers) Stream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, ErrorParams{Code: http.StatusInternalServerError, ErrCode: "streaming_unsupported"})
		return
	}

	session := GetSessionFromContext(r.Context())

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	// Tell the client it is connected before the first change arrives.
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	unsubscribe, changes := h.Jobs.Subscribe()
	defer unsubscribe()

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-heartbeat.C:
			fmt.Fprint(w, ": heartbeat\n\n")
			flusher.Flush()
		case change, open := <-changes:
			if !open {
				return
			}
			if change.UserID != session.UserID {
				continue
			}
			if err := writeSSEEvent(w, "job_change", change); err != nil {
				h.Logger.DebugContext(r.Context(), "dropping event stream client", "error", err)
				return
			}
			flusher.Flush()
		}
	}
}

func writeSSEEvent(w http.ResponseWriter, event string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshaling sse payload: %w", err)
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
	return err
}
