package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/linkforge/linkforge-api/internal/core"
)

// SchedulerServiceOptions groups dependencies for SchedulerService.
type SchedulerServiceOptions struct {
	Repo      core.JobRepository // Required: job repository
	Dispatch  *DispatchService   // Required: dispatcher for claimed jobs
	BatchSize int                // Optional: jobs per batch (default 10)
	PaceDelay time.Duration      // Optional: delay between dispatches (default 1s)
	Logger    *slog.Logger       // Optional: structured logger
}

// SchedulerService drains the queued backlog in small, paced batches.
//
// Jobs are taken oldest first and dispatched sequentially with a short delay
// between them so a burst of creations doesn't hammer the workflow engine.
// Per-job failures are recorded on the job and reported in the batch result;
// they never abort the batch.
type SchedulerService struct {
	repo      core.JobRepository
	dispatch  *DispatchService
	batchSize int
	paceDelay time.Duration
	logger    *slog.Logger
}

// BatchJobResult is the outcome of one job within a scheduler batch.
type BatchJobResult struct {
	JobID  string `json:"job_id"`
	Title  string `json:"title"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// BatchResult summarises a scheduler pass over the queued backlog.
type BatchResult struct {
	ProcessedCount int              `json:"processed_count"`
	SuccessCount   int              `json:"success_count"`
	ErrorCount     int              `json:"error_count"`
	Results        []BatchJobResult `json:"results"`
}

// NewSchedulerService constructs a new SchedulerService.
func NewSchedulerService(opts SchedulerServiceOptions) (*SchedulerService, error) {
	if opts.Repo == nil {
		return nil, errors.New("JobRepository is required")
	}
	if opts.Dispatch == nil {
		return nil, errors.New("DispatchService is required")
	}

	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = 10
	}
	paceDelay := opts.PaceDelay
	if paceDelay <= 0 {
		paceDelay = time.Second
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "scheduler_service")
	}

	return &SchedulerService{
		repo:      opts.Repo,
		dispatch:  opts.Dispatch,
		batchSize: batchSize,
		paceDelay: paceDelay,
		logger:    logger,
	}, nil
}

// MustNewSchedulerService constructs a new SchedulerService and panics on error.
func MustNewSchedulerService(opts SchedulerServiceOptions) *SchedulerService {
	svc, err := NewSchedulerService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create SchedulerService: %v", err))
	}
	return svc
}

// RunBatch dispatches up to one batch of queued jobs, oldest first.
func (s *SchedulerService) RunBatch(ctx context.Context) (*BatchResult, error) {
	queued, err := s.repo.ListQueued(ctx, s.batchSize)
	if err != nil {
		return nil, fmt.Errorf("list queued jobs: %w", err)
	}

	result := &BatchResult{Results: make([]BatchJobResult, 0, len(queued))}

	for i, job := range queued {
		if i > 0 {
			select {
			case <-time.After(s.paceDelay):
			case <-ctx.Done():
				return result, ctx.Err()
			}
		}

		entry := BatchJobResult{JobID: job.ID, Title: job.Title}
		dispatched, dispatchErr := s.dispatch.Dispatch(ctx, job.ID)
		if dispatchErr != nil {
			entry.Status = "error"
			entry.Error = dispatchErr.Error()
			result.ErrorCount++
		} else {
			entry.Status = string(dispatched.Status)
			result.SuccessCount++
		}
		result.ProcessedCount++
		result.Results = append(result.Results, entry)

		if ctx.Err() != nil {
			return result, ctx.Err()
		}
	}

	if s.logger != nil && result.ProcessedCount > 0 {
		s.logger.InfoContext(ctx, "scheduler batch complete",
			"processed", result.ProcessedCount,
			"success", result.SuccessCount,
			"errors", result.ErrorCount,
		)
	}

	return result, nil
}

// Run starts the scheduler loop and runs until the context is cancelled.
// Returns nil on graceful shutdown (context.Canceled), error otherwise.
func (s *SchedulerService) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}

	if s.logger != nil {
		s.logger.InfoContext(ctx, "starting scheduler service", "interval", interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case <-ticker.C:
			if _, err := s.RunBatch(ctx); err != nil {
				if isContextCancellation(err) {
					continue
				}
				if s.logger != nil {
					s.logger.ErrorContext(ctx, "scheduler batch failed", "error", err)
				}
			}
		}
	}
}
