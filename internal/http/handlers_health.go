package httpx

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"
)

const healthResponse = `{"status":"ok"}`

// readyProbeTimeout bounds the database ping during readiness checks.
const readyProbeTimeout = 2 * time.Second

// healthHandler returns a simple 200 OK status for liveness checks.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.WriteString(w, healthResponse); err != nil {
		// Nothing more to do if the client connection is gone.
		return
	}
}

// readyHandler returns a handler that reports readiness, probing the
// database when a ping function is provided.
func readyHandler(ping func(context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), readyProbeTimeout)
			defer cancel()
			if err := ping(ctx); err != nil {
				WriteError(w, ErrorParams{
					Code:    http.StatusServiceUnavailable,
					ErrCode: "database_unavailable",
					Err:     errors.New("database unavailable"),
				})
				return
			}
		}
		healthHandler(w, r)
	}
}
