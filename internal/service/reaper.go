package service

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/linkforge/linkforge-api/config"
	"github.com/linkforge/linkforge-api/internal/core"
	domainjob "github.com/linkforge/linkforge-api/internal/domain/job"
	obserrors "github.com/linkforge/linkforge-api/internal/observability/errors"
	"github.com/linkforge/linkforge-api/internal/observability/metrics"
	"github.com/linkforge/linkforge-api/internal/observability/statsd"
)

// ReaperServiceOptions groups dependencies for ReaperService.
type ReaperServiceOptions struct {
	Jobs    core.JobRepository // Required: job repository
	Orgs    core.OrgRepository // Required: org repository (expired invites)
	Config  config.ReaperConfig
	Logger  *slog.Logger // Optional: structured logger
	Metrics statsd.Sink  // Optional: metrics sink (StatsD-compatible)
}

// ReaperService provides periodic cleanup of state nobody else will touch.
//
// This service manages:
// - Reclaiming jobs stuck in processing after an engine crash or lost callback.
// - Deleting expired, unaccepted organization invites.
type ReaperService struct {
	jobs    core.JobRepository
	orgs    core.OrgRepository
	config  config.ReaperConfig
	policy  domainjob.ReclaimPolicy
	logger  *slog.Logger
	metrics statsd.Sink
}

// NewReaperService constructs a new ReaperService.
func NewReaperService(opts ReaperServiceOptions) (*ReaperService, error) {
	if opts.Jobs == nil {
		return nil, errors.New("JobRepository is required")
	}
	if opts.Orgs == nil {
		return nil, errors.New("OrgRepository is required")
	}

	policy := domainjob.NewReclaimPolicy(opts.Config.ProcessingMaxAge, opts.Config.MaxAttempts)

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "reaper_service")
		logger.Debug("ReaperService initialized",
			"interval", opts.Config.Interval,
			"processing_max_age", policy.Window(),
			"max_age_source", policy.Source(),
			"max_attempts", policy.AttemptBudget(),
		)
	}

	return &ReaperService{
		jobs:    opts.Jobs,
		orgs:    opts.Orgs,
		config:  opts.Config,
		policy:  policy,
		logger:  logger,
		metrics: opts.Metrics,
	}, nil
}

// MustNewReaperService constructs a new ReaperService and panics on error.
func MustNewReaperService(opts ReaperServiceOptions) *ReaperService {
	svc, err := NewReaperService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create ReaperService: %v", err))
	}
	return svc
}

// Run starts the reaper loop and runs until the context is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *ReaperService) Run(ctx context.Context) error {
	if s.logger != nil {
		s.logger.InfoContext(ctx, "starting reaper service", "interval", s.config.Interval)
	}

	// Add jitter to prevent thundering herd if multiple instances start together
	s.waitWithJitter(ctx)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	// Run cleanup immediately after jitter
	if err := s.RunCleanup(ctx); err != nil {
		s.logCleanupError(err, "initial cleanup")
	}

	return s.runLoop(ctx, ticker)
}

// waitWithJitter adds a random delay up to 10% of the interval to prevent thundering herd.
func (s *ReaperService) waitWithJitter(ctx context.Context) {
	maxJitter := int64(s.config.Interval / 10)
	if maxJitter <= 0 {
		return
	}

	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// If crypto/rand fails, skip jitter rather than failing startup
		if s.logger != nil {
			s.logger.WarnContext(ctx, "failed to generate jitter, skipping", "error", err)
		}
		return
	}

	// Use modulo on uint64 before converting to avoid overflow
	jitterNanos := binary.BigEndian.Uint64(buf[:]) % uint64(maxJitter)
	jitter := time.Duration(int64(jitterNanos)) // #nosec G115 - bounded by maxJitter which is int64

	select {
	case <-time.After(jitter):
	case <-ctx.Done():
		// Graceful shutdown during jitter
	}
}

// runLoop runs the cleanup loop until context is cancelled.
func (s *ReaperService) runLoop(ctx context.Context, ticker *time.Ticker) error {
	for {
		select {
		case <-ctx.Done():
			if s.logger != nil {
				s.logger.InfoContext(ctx, "reaper service stopping", "reason", ctx.Err())
			}
			// Return nil on graceful shutdown to avoid treating it as a failure
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()

		case <-ticker.C:
			if err := s.RunCleanup(ctx); err != nil {
				s.logCleanupError(err, "cleanup")
				if isContextCancellation(err) {
					continue
				}
				// Continue running despite errors
			}
		}
	}
}

// RunCleanup performs all cleanup operations once.
func (s *ReaperService) RunCleanup(ctx context.Context) error {
	start := time.Now()
	var (
		errs               []error
		allContextCanceled = true
		metricsData        = cleanupMetrics{}
	)

	steps := []cleanupStep{
		{
			fn:        s.reclaimStaleProcessing,
			label:     "reclaim stale processing jobs",
			count:     &metricsData.ReclaimedCount,
			metricErr: &metricsData.ReclaimedErr,
		},
		{
			fn:        s.deleteExpiredInvites,
			label:     "delete expired invites",
			count:     &metricsData.InvitesCount,
			metricErr: &metricsData.InvitesErr,
		},
	}

	for _, step := range steps {
		outcome := s.executeCleanupStep(ctx, step.fn, step.label)
		*step.count = outcome.count
		*step.metricErr = outcome.metricErr
		if outcome.aggregateErr != nil {
			errs = append(errs, outcome.aggregateErr)
			allContextCanceled = allContextCanceled && outcome.canceled
		}
	}

	metricsData.Elapsed = time.Since(start)
	s.emitCleanupMetrics(metricsData)

	if len(errs) > 0 {
		joined := errors.Join(errs...)
		if allContextCanceled && isContextCancellation(joined) {
			return context.Canceled
		}
		return fmt.Errorf("cleanup failed: %w", joined)
	}

	return nil
}

type cleanupFunc func(context.Context) (int64, error)

type cleanupStep struct {
	fn        cleanupFunc
	label     string
	count     *int64
	metricErr *error
}

type cleanupStepOutcome struct {
	count        int64
	metricErr    error
	aggregateErr error
	canceled     bool
}

func (s *ReaperService) executeCleanupStep(
	ctx context.Context,
	fn cleanupFunc,
	label string,
) cleanupStepOutcome {
	count, err := fn(ctx)
	outcome := cleanupStepOutcome{
		count:     count,
		metricErr: suppressContextCancellation(err),
		canceled:  isContextCancellation(err),
	}
	if err != nil {
		outcome.aggregateErr = fmt.Errorf("%s: %w", label, err)
	}
	return outcome
}

// reclaimStaleProcessing requeues or errors jobs stuck in processing.
// Loops until no more rows are affected to handle large backlogs in batches.
func (s *ReaperService) reclaimStaleProcessing(ctx context.Context) (int64, error) {
	var (
		totalRequeued int64
		totalErrored  int64
	)
	for {
		result, err := s.jobs.ReclaimStaleProcessing(ctx, core.ReclaimStaleJobsParams{
			MaxAge:      s.policy.Window(),
			MaxAttempts: s.policy.AttemptBudget(),
			BatchSize:   s.config.BatchSize,
		})
		if err != nil {
			return totalRequeued + totalErrored, err
		}
		totalRequeued += result.Requeued
		totalErrored += result.Errored
		if result.Total() == 0 {
			break
		}
		// Check context between batches
		if ctx.Err() != nil {
			return totalRequeued + totalErrored, ctx.Err()
		}
	}

	if totalRequeued > 0 {
		s.emitReclaim(metrics.TransitionRequeued, totalRequeued)
	}
	if totalErrored > 0 {
		s.emitReclaim(metrics.TransitionErrored, totalErrored)
	}

	total := totalRequeued + totalErrored
	if total > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "reclaimed stale processing jobs",
			"requeued", totalRequeued,
			"errored", totalErrored,
			"max_age", s.config.ProcessingMaxAge,
		)
	}

	return total, nil
}

// deleteExpiredInvites removes unaccepted invites past their expiry.
// Loops until no more rows are affected to handle large backlogs in batches.
func (s *ReaperService) deleteExpiredInvites(ctx context.Context) (int64, error) {
	var totalCount int64
	for {
		count, err := s.orgs.DeleteExpiredInvites(ctx, s.config.BatchSize)
		if err != nil {
			return totalCount, err
		}
		totalCount += count
		if count == 0 {
			break
		}
		// Check context between batches
		if ctx.Err() != nil {
			return totalCount, ctx.Err()
		}
	}

	if totalCount > 0 && s.logger != nil {
		s.logger.InfoContext(ctx, "deleted expired invites", "count", totalCount)
	}

	return totalCount, nil
}

func (s *ReaperService) emitReclaim(transition string, count int64) {
	if s.metrics == nil {
		return
	}
	s.metrics.Count("job.transition", count, map[string]string{
		"transition": transition,
		"result":     metrics.ResultSuccess,
	})
}

type cleanupMetrics struct {
	ReclaimedCount int64
	ReclaimedErr   error
	InvitesCount   int64
	InvitesErr     error
	Elapsed        time.Duration
}

func (s *ReaperService) emitCleanupMetrics(m cleanupMetrics) {
	if s.metrics == nil {
		return
	}

	totalCount := m.ReclaimedCount + m.InvitesCount
	firstErr := firstError(m.ReclaimedErr, m.InvitesErr)

	result := metrics.ResultSuccess
	if firstErr != nil {
		result = metrics.ResultError
	} else if totalCount == 0 {
		result = metrics.ResultNoop
	}

	tags := map[string]string{
		"result": result,
	}

	if firstErr != nil {
		if class := obserrors.Classify(firstErr); class != "" {
			tags["error_class"] = class
		}
	}

	s.metrics.Count("reaper.cleanup", 1, tags)

	if m.Elapsed > 0 {
		s.metrics.Timing("reaper.cleanup_duration", m.Elapsed, metrics.CloneTags(tags))
	}

	s.emitCleanupOperationMetric("reclaim_processing", m.ReclaimedCount, m.ReclaimedErr)
	s.emitCleanupOperationMetric("delete_invites", m.InvitesCount, m.InvitesErr)

	if firstErr == nil {
		s.metrics.Gauge("reaper.last_success_epoch", float64(time.Now().Unix()), nil)
	}
}

func (s *ReaperService) emitCleanupOperationMetric(operation string, count int64, err error) {
	if s.metrics == nil {
		return
	}

	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	} else if count == 0 {
		result = metrics.ResultNoop
	}

	tags := map[string]string{
		"operation": operation,
		"result":    result,
	}

	if err != nil {
		if class := obserrors.Classify(err); class != "" {
			tags["error_class"] = class
		}
	}

	s.metrics.Count("reaper.cleanup_operation", 1, tags)

	if err == nil && count > 0 {
		s.metrics.Count("reaper.rows_processed", count, metrics.CloneTags(tags))
	}
}

func (s *ReaperService) logCleanupError(err error, label string) {
	if err == nil || s.logger == nil {
		return
	}

	if isContextCancellation(err) {
		s.logger.Debug(label+" cancelled by context", "error", err)
		return
	}

	s.logger.Error(label+" failed", "error", err)
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func isContextCancellation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func suppressContextCancellation(err error) error {
	if isContextCancellation(err) {
		return nil
	}
	return err
}
