package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/linkforge/linkforge-api/config"
	"github.com/linkforge/linkforge-api/internal/adapters/reaper"
	schedrunner "github.com/linkforge/linkforge-api/internal/adapters/scheduler"
	"github.com/linkforge/linkforge-api/internal/adapters/workflow"
	"github.com/linkforge/linkforge-api/internal/observability/statsd"
)

// SchedulerConfig contains configuration for the scheduler loop.
type SchedulerConfig struct {
	DB        *sql.DB
	Engine    config.EngineConfig
	Logger    *slog.Logger
	BatchSize int
	PaceDelay time.Duration
	Interval  time.Duration
	Metrics   statsd.Sink
}

// RunScheduler starts the batch dispatch loop.
func RunScheduler(ctx context.Context, cfg SchedulerConfig) error {
	engine := buildEngine(cfg.Engine, cfg.Logger)

	runner, err := schedrunner.NewRunner(schedrunner.RunnerOptions{
		DB:        cfg.DB,
		Engine:    engine,
		Interval:  cfg.Interval,
		BatchSize: cfg.BatchSize,
		PaceDelay: cfg.PaceDelay,
		Logger:    cfg.Logger,
		Metrics:   cfg.Metrics,
	})
	if err != nil {
		return fmt.Errorf("create scheduler runner: %w", err)
	}

	return runner.Run(ctx)
}

//nolint:ireturn // Returning Engine lets callers swap the unconfigured stand-in.
func buildEngine(cfg config.EngineConfig, logger *slog.Logger) workflow.Engine {
	if !cfg.IsConfigured() {
		if logger != nil {
			logger.Warn("workflow engine is not configured; scheduled dispatches will fail")
		}
		return workflow.Unconfigured{}
	}
	return workflow.MustNewClient(workflow.ClientOptions{
		WebhookURL: cfg.WebhookURL,
		Secret:     cfg.Secret,
		Logger:     logger,
	})
}

// ReaperConfig contains configuration for reaper.
type ReaperConfig struct {
	DB      *sql.DB
	Logger  *slog.Logger
	Config  config.ReaperConfig
	Metrics statsd.Sink
}

// RunReaper starts the reaper service.
func RunReaper(ctx context.Context, cfg ReaperConfig) error {
	runner, err := reaper.NewRunner(reaper.RunnerOptions{
		DB:      cfg.DB,
		Config:  cfg.Config,
		Logger:  cfg.Logger,
		Metrics: cfg.Metrics,
	})
	if err != nil {
		return fmt.Errorf("create reaper runner: %w", err)
	}

	return runner.Run(ctx)
}
