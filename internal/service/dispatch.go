package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/linkforge/linkforge-api/internal/adapters/workflow"
	"github.com/linkforge/linkforge-api/internal/core"
	"github.com/linkforge/linkforge-api/internal/data"
	"github.com/linkforge/linkforge-api/internal/domain/model"
	apperrors "github.com/linkforge/linkforge-api/internal/errors"
	obserrors "github.com/linkforge/linkforge-api/internal/observability/errors"
	"github.com/linkforge/linkforge-api/internal/observability/metrics"
	"github.com/linkforge/linkforge-api/internal/observability/statsd"
)

// maxStoredErrorLen bounds the upstream error text persisted on the job row.
const maxStoredErrorLen = 500

// DispatchServiceOptions groups dependencies for DispatchService.
type DispatchServiceOptions struct {
	Repo    core.JobRepository // Required: job repository
	Engine  workflow.Engine    // Required: workflow engine client
	Jobs    *JobService        // Optional: failure notification fan-out
	Logger  *slog.Logger       // Optional: structured logger
	Metrics statsd.Sink        // Optional: metrics sink (StatsD-compatible)
}

// DispatchService hands queued jobs to the workflow engine.
//
// Dispatch claims the job (queued -> processing) before calling out, so two
// concurrent dispatchers can never send the same job twice. The engine reports
// the final outcome later through the result ingest hook; a successful dispatch
// leaves the job in processing.
type DispatchService struct {
	repo    core.JobRepository
	engine  workflow.Engine
	jobs    *JobService
	logger  *slog.Logger
	metrics statsd.Sink
}

// NewDispatchService constructs a new DispatchService.
func NewDispatchService(opts DispatchServiceOptions) (*DispatchService, error) {
	if opts.Repo == nil {
		return nil, errors.New("JobRepository is required")
	}
	if opts.Engine == nil {
		return nil, errors.New("workflow Engine is required")
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "dispatch_service")
	}

	return &DispatchService{
		repo:    opts.Repo,
		engine:  opts.Engine,
		jobs:    opts.Jobs,
		logger:  logger,
		metrics: opts.Metrics,
	}, nil
}

// MustNewDispatchService constructs a new DispatchService and panics on error.
func MustNewDispatchService(opts DispatchServiceOptions) *DispatchService {
	svc, err := NewDispatchService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create DispatchService: %v", err))
	}
	return svc
}

// Dispatch claims the job and sends it to the workflow engine. On engine
// failure the job is finalized as error with the (truncated) upstream message,
// and the failure is fanned out to notification sinks.
func (s *DispatchService) Dispatch(ctx context.Context, id string) (*model.Job, error) {
	start := time.Now()

	job, err := s.repo.Claim(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, data.ErrJobNotFound):
			return nil, apperrors.NotFoundf("job %s not found", id)
		case errors.Is(err, data.ErrJobNotClaimable):
			return nil, apperrors.Conflictf("job %s is not queued", id)
		default:
			return nil, fmt.Errorf("claim job %s: %w", id, err)
		}
	}

	result, dispatchErr := s.engine.Dispatch(ctx, workflow.DispatchPayload{
		JobID:      job.ID,
		ProjectID:  job.ProjectID,
		Title:      job.Title,
		ArticleDoc: job.ArticleDoc,
		Status:     string(job.Status),
	})
	if dispatchErr == nil {
		s.emit(metrics.JobMetric{
			Transition: metrics.TransitionDispatched,
			Result:     metrics.ResultSuccess,
			Duration:   time.Since(start),
		})
		if s.logger != nil {
			s.logger.InfoContext(ctx, "job dispatched",
				"id", job.ID,
				"attempt", job.DispatchAttempts,
				"engine_status", result.StatusCode,
			)
		}
		return job, nil
	}

	failed := s.recordDispatchFailure(ctx, job, dispatchErr)
	s.emit(metrics.JobMetric{
		Transition: metrics.TransitionDispatched,
		Result:     metrics.ResultError,
		Duration:   time.Since(start),
		Err:        dispatchErr,
	})
	return failed, dispatchErr
}

// recordDispatchFailure finalizes the claimed job as error and notifies sinks.
// The job was moved to processing by the claim, so the guarded finalize should
// always land; if it doesn't, the reaper will pick the job up later.
func (s *DispatchService) recordDispatchFailure(ctx context.Context, job *model.Job, dispatchErr error) *model.Job {
	msg := truncateError(dispatchErr.Error(), maxStoredErrorLen)

	failed, finalizeErr := s.repo.Finalize(ctx, job.ID, core.FinalizeJobParams{
		Status:       model.JobStatusError,
		ErrorMessage: &msg,
	})
	if finalizeErr != nil {
		if s.logger != nil {
			s.logger.ErrorContext(ctx, "failed to record dispatch failure",
				"id", job.ID,
				"dispatch_error", dispatchErr,
				"error", finalizeErr,
			)
		}
		failed = job
	}

	if s.logger != nil {
		s.logger.WarnContext(ctx, "job dispatch failed",
			"id", job.ID,
			"attempt", job.DispatchAttempts,
			"error", dispatchErr,
		)
	}

	if s.jobs != nil {
		s.jobs.NotifyFailure(ctx, failed, msg, JobFailureDetails{
			ErrorClass: obserrors.Classify(dispatchErr),
		})
	}

	return failed
}

func (s *DispatchService) emit(m metrics.JobMetric) {
	metrics.EmitJobLifecycle(s.metrics, m)
}

// truncateError clips an error message for storage, marking the cut.
func truncateError(msg string, limit int) string {
	if len(msg) <= limit {
		return msg
	}
	return msg[:limit] + "... (truncated)"
}
