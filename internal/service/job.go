// Package service provides business logic services for the linkforge job system.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/linkforge/linkforge-api/internal/core"
	"github.com/linkforge/linkforge-api/internal/data"
	domainjob "github.com/linkforge/linkforge-api/internal/domain/job"
	"github.com/linkforge/linkforge-api/internal/domain/model"
	apperrors "github.com/linkforge/linkforge-api/internal/errors"
	"github.com/linkforge/linkforge-api/internal/observability/notify"
	"github.com/linkforge/linkforge-api/internal/service/failurenotifier"
)

// QuotaKeeper takes one unit of job quota for a user, or reports why it can't.
type QuotaKeeper interface {
	ConsumeJobQuota(ctx context.Context, userID string) error
}

// JobServiceOptions groups dependencies for JobService.
type JobServiceOptions struct {
	Repo            core.JobRepository        // Required: job repository
	Quota           QuotaKeeper               // Optional: per-period quota enforcement
	Logger          *slog.Logger              // Optional: structured logger
	FailureNotifier *failurenotifier.Service  // Optional: failure notification fan-out
	Notifier        domainjob.Notifier        // Optional: custom job change notifier
	NotifierOptions domainjob.NotifierOptions // Optional: configure default notifier behaviour
}

// JobService provides business logic for job operations including pub/sub notifications.
//
// This service manages:
// - Job creation gated by the user's per-period quota
// - Listing, stats, status overrides, and deletion of terminal jobs
// - Fan-out of job change notifications to SSE subscribers
// - Graceful shutdown of all listeners.
type JobService struct {
	repo            core.JobRepository
	quota           QuotaKeeper
	notifier        domainjob.Notifier
	logger          *slog.Logger
	failureNotifier *failurenotifier.Service
}

// NewJobService constructs a new JobService.
func NewJobService(opts JobServiceOptions) (*JobService, error) {
	if opts.Repo == nil {
		return nil, errors.New("JobRepository is required")
	}

	notifier := opts.Notifier
	if notifier == nil {
		options := opts.NotifierOptions
		if options.Waiter == nil {
			options.Waiter = opts.Repo
		}
		var err error
		notifier, err = domainjob.NewNotifier(options)
		if err != nil {
			return nil, fmt.Errorf("create job notifier: %w", err)
		}
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "job_service")
	}

	return &JobService{
		repo:            opts.Repo,
		quota:           opts.Quota,
		notifier:        notifier,
		logger:          logger,
		failureNotifier: opts.FailureNotifier,
	}, nil
}

// MustNewJobService constructs a new JobService and panics on error.
// Use this when you're certain the options are valid (e.g., in main.go).
func MustNewJobService(opts JobServiceOptions) *JobService {
	svc, err := NewJobService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create JobService: %v", err))
	}
	return svc
}

// Create creates a new queued job for the user, consuming one unit of quota first.
// The quota unit is not refunded if the insert fails; the guarded counter is the
// simpler invariant and an occasional lost unit is acceptable.
func (s *JobService) Create(ctx context.Context, userID string, req *model.CreateJobRequest) (*model.Job, error) {
	if s.quota != nil {
		if err := s.quota.ConsumeJobQuota(ctx, userID); err != nil {
			return nil, err
		}
	}

	job, err := s.repo.Create(ctx, userID, req)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	if s.logger != nil {
		s.logger.DebugContext(ctx, "job created",
			"id", job.ID,
			"project_id", job.ProjectID,
			"status", job.Status,
		)
	}

	return job, nil
}

// GetByID retrieves a job by its ID.
func (s *JobService) GetByID(ctx context.Context, id string) (*model.Job, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, data.ErrJobNotFound) {
			return nil, apperrors.NotFoundf("job %s not found", id)
		}
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return job, nil
}

// List retrieves jobs with their project titles, applying the given filters.
func (s *JobService) List(ctx context.Context, opts *model.JobListOptions) ([]*model.JobWithProject, error) {
	jobs, err := s.repo.List(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// Stats returns job counts by status, optionally scoped to one user.
func (s *JobService) Stats(ctx context.Context, userID *string) (*model.JobStats, error) {
	stats, err := s.repo.Stats(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	return stats, nil
}

// OverrideStatus forces a job into the given status regardless of its current
// state. This is the administrative escape hatch for jobs wedged by an engine
// that never reported back.
func (s *JobService) OverrideStatus(ctx context.Context, id string, req *model.StatusOverrideRequest) (*model.Job, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}

	job, err := s.repo.OverrideStatus(ctx, id, req.Status, req.ErrorMessage)
	if err != nil {
		if errors.Is(err, data.ErrJobNotFound) {
			return nil, apperrors.NotFoundf("job %s not found", id)
		}
		return nil, fmt.Errorf("override job %s status: %w", id, err)
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "job status overridden", "id", id, "status", req.Status)
	}

	return job, nil
}

// Delete removes a terminal job. Queued and processing jobs cannot be deleted.
func (s *JobService) Delete(ctx context.Context, id string) error {
	err := s.repo.Delete(ctx, id)
	switch {
	case err == nil:
		if s.logger != nil {
			s.logger.DebugContext(ctx, "job deleted", "id", id)
		}
		return nil
	case errors.Is(err, data.ErrJobNotFound):
		return apperrors.NotFoundf("job %s not found", id)
	case errors.Is(err, data.ErrJobNotDeletable):
		return apperrors.Conflict("job must be done or error before deletion")
	default:
		return fmt.Errorf("delete job %s: %w", id, err)
	}
}

// Subscribe creates a subscription for job change notifications.
// Returns an unsubscribe function and a channel that receives changes.
func (s *JobService) Subscribe() (func(), <-chan model.JobChange) {
	if s.notifier == nil {
		ch := make(chan model.JobChange)
		close(ch)
		return func() {}, ch
	}
	return s.notifier.Subscribe()
}

// StopAllListeners stops the notification listener and closes all subscriber channels.
// Call during graceful shutdown.
func (s *JobService) StopAllListeners() {
	if s.notifier != nil {
		s.notifier.StopAll()
	}
}

// JobFailureDetails captures optional context for failure notifications.
type JobFailureDetails struct {
	ErrorClass string
	Metadata   map[string]string
	Severity   string
	OccurredAt time.Time
}

// NotifyFailure fans a job failure out to the configured notification sinks.
// Callers record the failure on the job first; this only handles the alerting.
func (s *JobService) NotifyFailure(ctx context.Context, job *model.Job, errMsg string, details JobFailureDetails) {
	if s.failureNotifier == nil || !s.failureNotifier.Enabled() {
		return
	}

	payload := notify.JobFailurePayload{
		Error:      errMsg,
		ErrorClass: details.ErrorClass,
		Severity:   details.Severity,
		OccurredAt: details.OccurredAt,
		Metadata:   copyMetadata(details.Metadata),
	}
	if job != nil {
		payload.JobID = job.ID
		payload.ProjectID = job.ProjectID
		payload.ProjectTitle = job.Title
	}
	if payload.Severity == "" {
		payload.Severity = notify.SeverityCritical
	}
	if payload.OccurredAt.IsZero() {
		payload.OccurredAt = time.Now()
	}
	if payload.ErrorClass != "" {
		payload.Metadata = mergeMetadata(payload.Metadata, map[string]string{
			"error_class": payload.ErrorClass,
		})
	}
	if len(payload.Metadata) == 0 {
		payload.Metadata = nil
	}

	s.failureNotifier.NotifyJobFailure(ctx, payload)
}

func copyMetadata(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

func mergeMetadata(dst, extra map[string]string) map[string]string {
	if len(extra) == 0 {
		return dst
	}
	if dst == nil {
		dst = make(map[string]string, len(extra))
	}
	for k, v := range extra {
		if _, ok := dst[k]; !ok {
			dst[k] = v
		}
	}
	return dst
}
