package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/linkforge/linkforge-api/config"
	"github.com/linkforge/linkforge-api/internal/adapters/billing"
	"github.com/linkforge/linkforge-api/internal/adapters/blobstore"
	redisadapter "github.com/linkforge/linkforge-api/internal/adapters/redis"
	"github.com/linkforge/linkforge-api/internal/adapters/workflow"
	"github.com/linkforge/linkforge-api/internal/core"
	"github.com/linkforge/linkforge-api/internal/data"
	"github.com/linkforge/linkforge-api/internal/observability/notify/pagerduty"
	"github.com/linkforge/linkforge-api/internal/observability/notify/slack"
	"github.com/linkforge/linkforge-api/internal/observability/statsd"
	"github.com/linkforge/linkforge-api/internal/service"
	"github.com/linkforge/linkforge-api/internal/service/failurenotifier"
	"github.com/redis/go-redis/v9"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Auth          *service.AuthService
	Jobs          *service.JobService
	Projects      *service.ProjectService
	Orgs          *service.OrgService
	Usage         *service.UsageService
	Dispatch      *service.DispatchService
	Scheduler     *service.SchedulerService
	Ingest        *service.IngestService
	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink     *statsd.Client
	MetricsConfig   config.ObservabilityMetricsConfig
	FailureNotifier *failurenotifier.Service
	NotifierConfig  config.ObservabilityNotificationsConfig
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config      *config.AppConfig
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

// serviceRepositories groups data adapters backing service ports.
type serviceRepositories struct {
	DB          *sql.DB
	Redis       redis.UniversalClient
	JobRepo     *data.JobRepo
	ProjectRepo *data.ProjectRepo
	UserRepo    *data.UserRepo
	PlanRepo    core.PlanRepository
	UsageRepo   *data.UsageRepo
	OrgRepo     *data.OrgRepo
}

// serviceAdapters groups outbound integration adapters.
type serviceAdapters struct {
	Engine    workflow.Engine
	Snapshots blobstore.Store
	Verifier  billing.Verifier
	Gateway   billing.Gateway
	Sessions  *redisadapter.SessionStore
}

// buildObservability configures metrics and notification adapters.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	var metricsSink *statsd.Client
	if cfg.Metrics.IsEnabled() {
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Metrics.StatsdAddress,
			Prefix:  "linkforge",
			Logger:  obsLogger,
		})
		if err != nil {
			obsLogger.Error("failed to initialise statsd client", "error", err)
		} else {
			metricsSink = client
		}
	}

	failureNotifier := buildFailureNotifier(obsLogger, cfg.Notifications)

	return ObservabilityContainer{
		MetricsSink:     metricsSink,
		MetricsConfig:   cfg.Metrics,
		FailureNotifier: failureNotifier,
		NotifierConfig:  cfg.Notifications,
	}
}

// buildRepositories builds repositories backing service ports; no business rules here.
func buildRepositories(db *sql.DB, redisClient redis.UniversalClient) *serviceRepositories {
	var planRepo core.PlanRepository = data.NewPlanRepo(db)
	if redisClient != nil {
		planRepo = core.NewCachedPlanRepository(core.CachedPlanRepositoryOptions{
			Cache:  data.NewRedisCacheRepo(redisClient),
			Plans:  planRepo,
			Config: core.DefaultPlanCacheConfig(),
		})
	}

	return &serviceRepositories{
		DB:          db,
		Redis:       redisClient,
		JobRepo:     data.NewJobRepo(db, data.RepoConfig{}),
		ProjectRepo: data.NewProjectRepo(db),
		UserRepo:    data.NewUserRepo(db),
		PlanRepo:    planRepo,
		UsageRepo:   data.NewUsageRepo(db, data.RepoConfig{}),
		OrgRepo:     data.NewOrgRepo(db, data.RepoConfig{}),
	}
}

// buildAdapters wires outbound integrations from configuration. Unconfigured
// integrations degrade rather than fail: dispatch reports an upstream error,
// snapshots are skipped, billing events are rejected.
func buildAdapters(cfg *config.AppConfig, redisClient redis.UniversalClient, logger *slog.Logger) serviceAdapters {
	adapters := serviceAdapters{
		Engine:   workflow.Unconfigured{},
		Sessions: redisadapter.NewSessionStore(redisClient),
	}

	if cfg.Engine.IsConfigured() {
		adapters.Engine = workflow.MustNewClient(workflow.ClientOptions{
			WebhookURL: cfg.Engine.WebhookURL,
			Secret:     cfg.Engine.Secret,
			Logger:     logger,
		})
	} else {
		logger.Warn("workflow engine is not configured; job dispatch will fail")
	}

	if cfg.Storage.IsConfigured() {
		store, err := blobstore.NewSupabaseStore(blobstore.SupabaseOptions{
			URL:        cfg.Storage.URL,
			ServiceKey: cfg.Storage.ServiceKey,
			Bucket:     cfg.Storage.Bucket,
		})
		if err != nil {
			logger.Error("failed to initialise snapshot store", "error", err)
		} else {
			adapters.Snapshots = store
		}
	}

	if cfg.Billing.IsConfigured() {
		verifier, err := billing.NewStripeVerifier(cfg.Billing.WebhookSecret)
		if err != nil {
			logger.Error("failed to initialise billing verifier", "error", err)
		} else {
			adapters.Verifier = verifier
		}
		gateway, err := billing.NewStripeGateway(cfg.Billing.APIKey)
		if err != nil {
			logger.Error("failed to initialise billing gateway", "error", err)
		} else {
			adapters.Gateway = gateway
		}
	}

	return adapters
}

// DomainServicesOptions groups inputs for buildDomainServices.
type DomainServicesOptions struct {
	Repos         *serviceRepositories
	Adapters      serviceAdapters
	Observability ObservabilityContainer
	Config        *config.AppConfig
	Logger        *slog.Logger
}

// buildDomainServices wires business services using repositories and adapters.
func buildDomainServices(opts *DomainServicesOptions) ServiceContainer {
	if opts == nil {
		return ServiceContainer{}
	}
	svcLogger := opts.Logger
	if svcLogger == nil {
		svcLogger = slog.Default()
	}

	appCfg := opts.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	usageService := service.MustNewUsageService(service.UsageServiceOptions{
		Usage:    opts.Repos.UsageRepo,
		Users:    opts.Repos.UserRepo,
		Plans:    opts.Repos.PlanRepo,
		Verifier: opts.Adapters.Verifier,
		Gateway:  opts.Adapters.Gateway,
		Logger:   svcLogger,
	})

	jobService := service.MustNewJobService(service.JobServiceOptions{
		Repo:            opts.Repos.JobRepo,
		Quota:           usageService,
		Logger:          svcLogger,
		FailureNotifier: opts.Observability.FailureNotifier,
	})

	dispatchService := service.MustNewDispatchService(service.DispatchServiceOptions{
		Repo:    opts.Repos.JobRepo,
		Engine:  opts.Adapters.Engine,
		Jobs:    jobService,
		Logger:  svcLogger,
		Metrics: opts.Observability.MetricsSink,
	})

	schedulerService := service.MustNewSchedulerService(service.SchedulerServiceOptions{
		Repo:      opts.Repos.JobRepo,
		Dispatch:  dispatchService,
		BatchSize: appCfg.Scheduler.BatchSize,
		PaceDelay: appCfg.Scheduler.PaceDelay,
		Logger:    svcLogger,
	})

	ingestService := service.MustNewIngestService(service.IngestServiceOptions{
		Repo:      opts.Repos.JobRepo,
		Snapshots: opts.Adapters.Snapshots,
		Jobs:      jobService,
		Logger:    svcLogger,
		Metrics:   opts.Observability.MetricsSink,
	})

	projectService := service.MustNewProjectService(service.ProjectServiceOptions{
		Repo:   opts.Repos.ProjectRepo,
		Logger: svcLogger,
	})

	orgService := service.MustNewOrgService(service.OrgServiceOptions{
		Repo:   opts.Repos.OrgRepo,
		Logger: svcLogger,
	})

	authService := service.MustNewAuthService(service.AuthServiceOptions{
		Users:      opts.Repos.UserRepo,
		Sessions:   opts.Adapters.Sessions,
		SessionTTL: appCfg.Auth.SessionTTL,
		Logger:     svcLogger,
	})

	return ServiceContainer{
		Auth:          authService,
		Jobs:          jobService,
		Projects:      projectService,
		Orgs:          orgService,
		Usage:         usageService,
		Dispatch:      dispatchService,
		Scheduler:     schedulerService,
		Ingest:        ingestService,
		Observability: opts.Observability,
	}
}

// NewServices wires the full service container from shared dependencies.
func NewServices(deps *ServiceDeps) ServiceContainer {
	if deps == nil {
		return ServiceContainer{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	appCfg := deps.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
	}

	observability := buildObservability(logger, appCfg.Observability)
	repos := buildRepositories(deps.DB, deps.RedisClient)
	adapters := buildAdapters(appCfg, deps.RedisClient, logger)
	return buildDomainServices(&DomainServicesOptions{
		Repos:         repos,
		Adapters:      adapters,
		Observability: observability,
		Config:        appCfg,
		Logger:        logger,
	})
}

func buildFailureNotifier(logger *slog.Logger, cfg config.ObservabilityNotificationsConfig) *failurenotifier.Service {
	baseLogger := logger
	if baseLogger == nil {
		baseLogger = slog.Default()
	}

	if !cfg.Enabled {
		return failurenotifier.NewService(failurenotifier.Options{
			Logger: baseLogger.With("component", "failure_notifier"),
		})
	}

	sinks := make([]failurenotifier.SinkRegistration, 0, 2)

	if cfg.Slack.Enabled {
		client, err := slack.NewClient(slack.Config{
			WebhookURL:       cfg.Slack.WebhookURL,
			Channel:          cfg.Slack.Channel,
			Username:         cfg.Slack.Username,
			Timeout:          cfg.Timeout,
			RetryLimit:       cfg.RetryLimit,
			ProjectURLPrefix: cfg.Slack.ProjectURLPrefix,
		})
		if err != nil {
			baseLogger.Error("failed to initialise slack notifier", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{
				Name: "slack",
				Sink: client,
			})
		}
	}

	if cfg.PagerDuty.Enabled {
		client, err := pagerduty.NewClient(pagerduty.Config{
			RoutingKey: cfg.PagerDuty.RoutingKey,
			Source:     cfg.PagerDuty.Source,
			Component:  cfg.PagerDuty.Component,
			Timeout:    cfg.Timeout,
			RetryLimit: cfg.RetryLimit,
		})
		if err != nil {
			baseLogger.Error("failed to initialise pagerduty notifier", "error", err)
		} else {
			sinks = append(sinks, failurenotifier.SinkRegistration{
				Name: "pagerduty",
				Sink: client,
			})
		}
	}

	return failurenotifier.NewService(failurenotifier.Options{
		Logger: baseLogger.With("component", "failure_notifier"),
		Sinks:  sinks,
	})
}

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config      *config.AppConfig
	Services    ServiceContainer
	DB          *sql.DB
	RedisClient redis.UniversalClient
	Logger      *slog.Logger
}

const (
	// shutdownWaitTimeout is the maximum time to wait for services to stop gracefully.
	shutdownWaitTimeout = 15 * time.Second
)

// serviceStartupDeps groups dependencies for service startup.
type serviceStartupDeps struct {
	ctx             context.Context
	cfg             *ServiceOrchestrationConfig
	logger          *slog.Logger
	enabledServices map[config.ServiceMode]bool
	errCh           chan error
}

// backgroundService describes a startable background component.
type backgroundService struct {
	mode  config.ServiceMode
	name  string
	start func(context.Context) error
}

// backgroundServiceHandle tracks a running background service.
type backgroundServiceHandle struct {
	mode config.ServiceMode
	name string
	done <-chan struct{}
}

// startHTTPServerIfEnabled starts the HTTP server if enabled.
func startHTTPServerIfEnabled(deps *serviceStartupDeps) *http.Server {
	if deps == nil || deps.cfg == nil || !deps.enabledServices[config.ServiceModeHTTP] {
		return nil
	}
	return StartHTTPServer(&HTTPServerConfig{
		Config:   deps.cfg.Config,
		Services: deps.cfg.Services,
		DB:       deps.cfg.DB,
		Logger:   deps.logger,
	})
}

func launchBackground(ctx context.Context, deps *serviceStartupDeps, descriptor backgroundService) <-chan struct{} {
	if deps == nil || !deps.enabledServices[descriptor.mode] {
		return nil
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := descriptor.start(ctx); err != nil {
			errMsg := fmt.Errorf("%s failed: %w", descriptor.name, err)
			select {
			case deps.errCh <- errMsg:
			case <-ctx.Done():
			default:
				if deps.logger != nil {
					deps.logger.WarnContext(
						ctx,
						"dropping background service error",
						"service",
						descriptor.name,
						"error",
						errMsg,
					)
				} else {
					slog.Default().WarnContext(ctx, "dropping background service error", "service", descriptor.name, "error", errMsg)
				}
			}
		}
	}()

	if deps.logger != nil {
		deps.logger.InfoContext(ctx, "background service started", "service", descriptor.name, "mode", descriptor.mode)
	} else {
		slog.Default().InfoContext(ctx, "background service started", "service", descriptor.name, "mode", descriptor.mode)
	}

	return done
}

func startBackgroundServices(deps *serviceStartupDeps, services []backgroundService) []backgroundServiceHandle {
	if deps == nil {
		return nil
	}
	handles := make([]backgroundServiceHandle, 0, len(services))

	for _, svc := range services {
		done := launchBackground(deps.ctx, deps, svc)
		if done == nil {
			continue
		}

		handles = append(handles, backgroundServiceHandle{
			mode: svc.mode,
			name: svc.name,
			done: done,
		})
	}

	return handles
}

func newSchedulerBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		mode: config.ServiceModeScheduler,
		name: "scheduler",
		start: func(ctx context.Context) error {
			if deps == nil || deps.cfg == nil {
				return nil
			}
			schedulerCfg := config.SchedulerConfig{}
			engineCfg := config.EngineConfig{}
			if deps.cfg.Config != nil {
				schedulerCfg = deps.cfg.Config.Scheduler
				engineCfg = deps.cfg.Config.Engine
			}
			return RunScheduler(ctx, SchedulerConfig{
				DB:        deps.cfg.DB,
				Engine:    engineCfg,
				Logger:    deps.logger,
				BatchSize: schedulerCfg.BatchSize,
				PaceDelay: schedulerCfg.PaceDelay,
				Interval:  schedulerCfg.Interval,
				Metrics:   deps.cfg.Services.Observability.MetricsSink,
			})
		},
	}
}

func newReaperBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		mode: config.ServiceModeReaper,
		name: "reaper",
		start: func(ctx context.Context) error {
			if deps == nil || deps.cfg == nil {
				return nil
			}
			var reaperCfg config.ReaperConfig
			if deps.cfg.Config != nil {
				reaperCfg = deps.cfg.Config.Reaper
			}
			return RunReaper(ctx, ReaperConfig{
				DB:      deps.cfg.DB,
				Logger:  deps.logger,
				Config:  reaperCfg,
				Metrics: deps.cfg.Services.Observability.MetricsSink,
			})
		},
	}
}

func buildBackgroundServices(deps *serviceStartupDeps) []backgroundService {
	if deps == nil {
		return nil
	}
	return []backgroundService{
		newSchedulerBackgroundService(deps),
		newReaperBackgroundService(deps),
	}
}

// ServiceStartupResult holds the results of starting all services.
type ServiceStartupResult struct {
	HTTPServer *http.Server
	Background []backgroundServiceHandle
}

// startServices starts all enabled services and returns their completion channels.
func startServices(deps *serviceStartupDeps) ServiceStartupResult {
	return ServiceStartupResult{
		HTTPServer: startHTTPServerIfEnabled(deps),
		Background: startBackgroundServices(deps, buildBackgroundServices(deps)),
	}
}

// RunServicesWithShutdown starts all enabled services and manages their lifecycle.
// This function blocks until a shutdown signal is received or a service fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	ctx := context.Background()
	serviceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}

	// Determine which services are enabled
	enabledServices, err := cfg.Config.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("determine enabled services: %w", err)
	}
	errCh := make(chan error, errorChannelBufferSize(enabledServices))

	// Start all enabled services
	result := startServices(&serviceStartupDeps{
		ctx:             serviceCtx,
		cfg:             cfg,
		logger:          logger,
		enabledServices: enabledServices,
		errCh:           errCh,
	})

	// Wait for shutdown signal or error
	return waitForShutdown(shutdownConfig{
		ctx:         serviceCtx,
		cancel:      cancel,
		errCh:       errCh,
		httpServer:  result.HTTPServer,
		jobService:  cfg.Services.Jobs,
		logger:      logger,
		backgrounds: result.Background,
	})
}

func errorChannelCapacity(enabled map[config.ServiceMode]bool) int {
	modes := []config.ServiceMode{
		config.ServiceModeHTTP,
		config.ServiceModeScheduler,
		config.ServiceModeReaper,
	}

	count := 0
	for _, mode := range modes {
		if enabled[mode] {
			count++
		}
	}
	return count
}

func errorChannelBufferSize(enabled map[config.ServiceMode]bool) int {
	size := errorChannelCapacity(enabled) + 1
	if size < 1 {
		return 1
	}
	return size
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	ctx         context.Context
	cancel      context.CancelFunc
	errCh       <-chan error
	httpServer  *http.Server
	jobService  *service.JobService
	logger      *slog.Logger
	backgrounds []backgroundServiceHandle
}

// waitForShutdown waits for shutdown signal or service error.
func waitForShutdown(cfg shutdownConfig) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		cfg.logger.Info("shutting down services...")
		cfg.cancel() // Cancel service context before waiting
		return gracefulStop(cfg)
	case err := <-cfg.errCh:
		cfg.logger.Error("service error", "error", err)
		cfg.cancel() // Cancel service context before waiting
		if stopErr := gracefulStop(cfg); stopErr != nil {
			cfg.logger.Error("graceful stop failed", "error", stopErr)
		}
		return err
	}
}

// gracefulStop attempts to gracefully stop all services.
func gracefulStop(cfg shutdownConfig) error {
	// Gracefully stop HTTP server if running
	if cfg.httpServer != nil {
		// Create a timeout context for HTTP shutdown
		shutdownCtx, cancel := context.WithTimeout(cfg.ctx, shutdownWaitTimeout)
		defer cancel()

		if err := ShutdownHTTPServer(ShutdownConfig{
			Context:    shutdownCtx,
			Server:     cfg.httpServer,
			JobService: cfg.jobService,
			Logger:     cfg.logger,
		}); err != nil {
			return err
		}
	}

	// Wait for background services to finish
	for _, svc := range cfg.backgrounds {
		waitForService(svc.done, svc.name, cfg.logger)
	}

	return nil
}

// waitForService waits for a service to finish with timeout.
func waitForService(done <-chan struct{}, name string, logger *slog.Logger) {
	if done == nil {
		return
	}
	select {
	case <-done:
		logger.Info(name + " stopped")
	case <-time.After(shutdownWaitTimeout):
		logger.Warn("timeout waiting for " + name + " to stop")
	}
}
