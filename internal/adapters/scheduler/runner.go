// Package scheduler provides the adapter for running the batch dispatch loop.
package scheduler

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/linkforge/linkforge-api/internal/adapters/workflow"
	"github.com/linkforge/linkforge-api/internal/core"
	"github.com/linkforge/linkforge-api/internal/data"
	"github.com/linkforge/linkforge-api/internal/observability/statsd"
	"github.com/linkforge/linkforge-api/internal/service"
)

// Runner wires the scheduler service and runs its interval loop.
type Runner struct {
	scheduler *service.SchedulerService
	interval  time.Duration
	logger    *slog.Logger
}

// RunnerOptions holds the dependencies for creating a Runner.
type RunnerOptions struct {
	DB        *sql.DB
	Engine    workflow.Engine
	Interval  time.Duration
	BatchSize int
	PaceDelay time.Duration
	Logger    *slog.Logger
	Metrics   statsd.Sink

	// Optional dependency injection for testing/decoupling
	Jobs core.JobRepository
}

// NewRunner creates a new scheduler runner with the given options.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if err := validateRunnerOptions(&opts); err != nil {
		return nil, err
	}

	scheduler, err := wireSchedulerService(opts)
	if err != nil {
		return nil, fmt.Errorf("wire scheduler service: %w", err)
	}

	return &Runner{
		scheduler: scheduler,
		interval:  opts.Interval,
		logger:    opts.Logger,
	}, nil
}

// validateRunnerOptions validates and sets defaults for RunnerOptions.
func validateRunnerOptions(opts *RunnerOptions) error {
	if opts.DB == nil && opts.Jobs == nil {
		return errors.New("database connection is required")
	}
	if opts.Engine == nil {
		return errors.New("workflow engine is required")
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return nil
}

// wireSchedulerService wires up all dependencies for the scheduler service.
func wireSchedulerService(opts RunnerOptions) (*service.SchedulerService, error) {
	jobs := opts.Jobs
	if jobs == nil {
		jobs = data.NewJobRepo(opts.DB, data.RepoConfig{})
	}

	dispatch, err := service.NewDispatchService(service.DispatchServiceOptions{
		Repo:    jobs,
		Engine:  opts.Engine,
		Logger:  opts.Logger,
		Metrics: opts.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("create dispatch service: %w", err)
	}

	return service.NewSchedulerService(service.SchedulerServiceOptions{
		Repo:      jobs,
		Dispatch:  dispatch,
		BatchSize: opts.BatchSize,
		PaceDelay: opts.PaceDelay,
		Logger:    opts.Logger,
	})
}

// Run starts the scheduler loop and runs until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting scheduler runner", "interval", r.interval)
	return r.scheduler.Run(ctx, r.interval)
}
