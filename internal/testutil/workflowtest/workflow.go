// Package workflowtest provides an end-to-end test harness for the job
// pipeline: queued jobs flow through the scheduler to a fake workflow engine,
// and engine callbacks flow back through the ingest service.
package workflowtest

import (
	"database/sql"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/linkforge/linkforge-api/internal/adapters/workflow"
	"github.com/linkforge/linkforge-api/internal/data"
	"github.com/linkforge/linkforge-api/internal/domain/model"
	"github.com/linkforge/linkforge-api/internal/service"
	"github.com/linkforge/linkforge-api/internal/testutil"
)

// Harness wires the dispatch pipeline against a fake engine endpoint.
type Harness struct {
	t  testutil.TestingTB
	ts *httptest.Server

	JobRepo *data.JobRepo

	Dispatch  *service.DispatchService
	Scheduler *service.SchedulerService
	Ingest    *service.IngestService

	mu       sync.Mutex
	received []workflow.DispatchPayload
	respond  func(w http.ResponseWriter)
}

// Options configures the harness.
type Options struct {
	// BatchSize sets the scheduler batch size. Defaults to 10.
	BatchSize int
	// PaceDelay sets the delay between dispatches in a batch. Defaults to
	// 1ms so multi-job batches run fast.
	PaceDelay time.Duration
	// EngineSecret is the shared secret the fake engine expects. Defaults to
	// "test-secret".
	EngineSecret string
}

// DefaultOptions returns Options with fast test-friendly defaults.
func DefaultOptions() Options {
	return Options{
		BatchSize:    10,
		PaceDelay:    time.Millisecond,
		EngineSecret: "test-secret",
	}
}

// NewHarness creates a harness with all pipeline services wired against the
// provided database and a fake engine HTTP server. The server is torn down
// via t.Cleanup when supported.
func NewHarness(t testutil.TestingTB, db *sql.DB, opts Options) *Harness {
	t.Helper()

	if opts.BatchSize <= 0 {
		opts.BatchSize = 10
	}
	if opts.PaceDelay <= 0 {
		opts.PaceDelay = time.Millisecond
	}
	if opts.EngineSecret == "" {
		opts.EngineSecret = "test-secret"
	}

	h := &Harness{
		t:       t,
		JobRepo: data.NewJobRepo(db, data.RepoConfig{}),
	}

	h.ts = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		var payload workflow.DispatchPayload
		if err := json.Unmarshal(body, &payload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		h.mu.Lock()
		h.received = append(h.received, payload)
		respond := h.respond
		h.mu.Unlock()

		if respond != nil {
			respond(w)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	if tc, ok := any(t).(interface{ Cleanup(func()) }); ok {
		tc.Cleanup(h.ts.Close)
	}

	engine := workflow.MustNewClient(workflow.ClientOptions{
		WebhookURL: h.ts.URL,
		Secret:     opts.EngineSecret,
	})

	h.Dispatch = service.MustNewDispatchService(service.DispatchServiceOptions{
		Repo:   h.JobRepo,
		Engine: engine,
	})
	h.Scheduler = service.MustNewSchedulerService(service.SchedulerServiceOptions{
		Repo:      h.JobRepo,
		Dispatch:  h.Dispatch,
		BatchSize: opts.BatchSize,
		PaceDelay: opts.PaceDelay,
	})
	h.Ingest = service.MustNewIngestService(service.IngestServiceOptions{
		Repo: h.JobRepo,
	})

	return h
}

// EngineURL returns the fake engine's webhook URL.
func (h *Harness) EngineURL() string {
	return h.ts.URL
}

// ReceivedDispatches returns a copy of the payloads the fake engine received.
func (h *Harness) ReceivedDispatches() []workflow.DispatchPayload {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]workflow.DispatchPayload, len(h.received))
	copy(out, h.received)
	return out
}

// RespondWith overrides how the fake engine answers subsequent dispatches.
// Passing nil restores the default 200 response.
func (h *Harness) RespondWith(fn func(w http.ResponseWriter)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.respond = fn
}

// FailNextDispatches makes the fake engine return the given status code, which
// drives the dispatch error path.
func (h *Harness) FailNextDispatches(statusCode int) {
	h.RespondWith(func(w http.ResponseWriter) {
		w.WriteHeader(statusCode)
	})
}

// EngineResult builds a minimal successful callback payload for the given job.
func EngineResult(jobID string, anchors int) *model.IngestResultRequest {
	return &model.IngestResultRequest{
		JobID:        jobID,
		AnchorsAdded: &anchors,
	}
}

// EngineFailure builds a failed callback payload for the given job.
func EngineFailure(jobID, errorMessage string) *model.IngestResultRequest {
	status := model.JobStatusError
	return &model.IngestResultRequest{
		JobID:        jobID,
		Status:       &status,
		ErrorMessage: &errorMessage,
	}
}
