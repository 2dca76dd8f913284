package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/linkforge/linkforge-api/internal/adapters/blobstore"
	"github.com/linkforge/linkforge-api/internal/core"
	"github.com/linkforge/linkforge-api/internal/data"
	"github.com/linkforge/linkforge-api/internal/domain/model"
	apperrors "github.com/linkforge/linkforge-api/internal/errors"
	obserrors "github.com/linkforge/linkforge-api/internal/observability/errors"
	"github.com/linkforge/linkforge-api/internal/observability/metrics"
	"github.com/linkforge/linkforge-api/internal/observability/statsd"
)

// IngestServiceOptions groups dependencies for IngestService.
type IngestServiceOptions struct {
	Repo      core.JobRepository // Required: job repository
	Snapshots blobstore.Store    // Optional: HTML snapshot storage
	Jobs      *JobService        // Optional: failure notification fan-out
	Logger    *slog.Logger       // Optional: structured logger
	Metrics   statsd.Sink        // Optional: metrics sink (StatsD-compatible)
	Now       func() time.Time   // Optional: clock override for tests
}

// IngestService records job outcomes reported by the workflow engine.
//
// Snapshot storage is best effort: when the blob store is down the job still
// finalizes, just without archive URLs. Losing a snapshot is annoying; losing
// the job outcome would leave the row wedged in processing.
type IngestService struct {
	repo      core.JobRepository
	snapshots blobstore.Store
	jobs      *JobService
	logger    *slog.Logger
	metrics   statsd.Sink
	now       func() time.Time
}

// NewIngestService constructs a new IngestService.
func NewIngestService(opts IngestServiceOptions) (*IngestService, error) {
	if opts.Repo == nil {
		return nil, errors.New("JobRepository is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "ingest_service")
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &IngestService{
		repo:      opts.Repo,
		snapshots: opts.Snapshots,
		jobs:      opts.Jobs,
		logger:    logger,
		metrics:   opts.Metrics,
		now:       now,
	}, nil
}

// MustNewIngestService constructs a new IngestService and panics on error.
func MustNewIngestService(opts IngestServiceOptions) *IngestService {
	svc, err := NewIngestService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create IngestService: %v", err))
	}
	return svc
}

// IngestResult finalizes a processing job with the engine's reported outcome.
func (s *IngestService) IngestResult(ctx context.Context, req *model.IngestResultRequest) (*model.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	job, err := s.repo.GetByID(ctx, req.JobID)
	if err != nil {
		if errors.Is(err, data.ErrJobNotFound) {
			return nil, apperrors.NotFoundf("job %s not found", req.JobID)
		}
		return nil, fmt.Errorf("get job %s: %w", req.JobID, err)
	}

	// Anchor data only exists on done rows, and an error row always carries
	// a message. A failed run may still report a partial anchor log; it is
	// dropped rather than recorded against a job that produced nothing.
	params := core.FinalizeJobParams{Status: req.FinalStatus()}
	if params.Status == model.JobStatusDone {
		anchors := model.NormalizeAnchorLog(req.AnchorsLog)
		anchorsN := len(anchors)
		if req.AnchorsAdded != nil {
			anchorsN = *req.AnchorsAdded
		}
		params.AnchorsN = anchorsN
		params.Anchors = anchors
	} else {
		msg := "job failed"
		if req.ErrorMessage != nil && strings.TrimSpace(*req.ErrorMessage) != "" {
			msg = *req.ErrorMessage
		}
		params.ErrorMessage = &msg
	}
	params.OriginalHTMLURL, params.UpdatedHTMLURL = s.storeSnapshots(ctx, job, req)

	finalized, err := s.repo.Finalize(ctx, req.JobID, params)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrJobNotFound):
			return nil, apperrors.NotFoundf("job %s not found", req.JobID)
		case errors.Is(err, data.ErrJobNotFinalizable):
			return nil, apperrors.Conflictf("job %s is not processing", req.JobID)
		default:
			return nil, fmt.Errorf("finalize job %s: %w", req.JobID, err)
		}
	}

	metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
		Transition: metrics.TransitionFinalized,
		Result:     finalizeResult(finalized.Status),
	})

	if s.logger != nil {
		s.logger.InfoContext(ctx, "job result ingested",
			"id", finalized.ID,
			"status", finalized.Status,
			"anchors_n", finalized.AnchorsN,
		)
	}

	if finalized.Status == model.JobStatusError && s.jobs != nil {
		msg := "job failed"
		if finalized.ErrorMessage != nil {
			msg = *finalized.ErrorMessage
		}
		s.jobs.NotifyFailure(ctx, finalized, msg, JobFailureDetails{})
	}

	return finalized, nil
}

// storeSnapshots uploads both HTML documents and returns their public URLs.
// Partial payloads and storage failures both yield nil URLs.
func (s *IngestService) storeSnapshots(ctx context.Context, job *model.Job, req *model.IngestResultRequest) (original, updated *string) {
	if s.snapshots == nil || !req.HasSnapshots() {
		return nil, nil
	}

	stamp := s.now().UnixMilli()
	prefix := fmt.Sprintf("%s/%s", job.UserID, job.ID)

	origURL, err := s.snapshots.Put(ctx,
		fmt.Sprintf("%s/original-%d.html", prefix, stamp),
		"text/html",
		[]byte(*req.OriginalHTML),
	)
	if err != nil {
		s.logSnapshotFailure(ctx, job.ID, "original", err)
		return nil, nil
	}

	updURL, err := s.snapshots.Put(ctx,
		fmt.Sprintf("%s/updated-%d.html", prefix, stamp),
		"text/html",
		[]byte(*req.UpdatedHTML),
	)
	if err != nil {
		// Snapshot references are recorded in pairs; a lone original
		// would imply an updated document that was never captured.
		s.logSnapshotFailure(ctx, job.ID, "updated", err)
		return nil, nil
	}

	return &origURL, &updURL
}

func (s *IngestService) logSnapshotFailure(ctx context.Context, jobID, kind string, err error) {
	if s.logger != nil {
		s.logger.WarnContext(ctx, "snapshot upload failed, finalizing without archive",
			"job_id", jobID,
			"snapshot", kind,
			"error", err,
		)
	}
	if s.metrics != nil {
		s.metrics.Count("ingest.snapshot_failure", 1, map[string]string{
			"error_class": obserrors.Classify(err),
		})
	}
}

func finalizeResult(status model.JobStatus) string {
	if status == model.JobStatusError {
		return metrics.ResultError
	}
	return metrics.ResultSuccess
}
