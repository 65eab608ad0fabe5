// Package bootstrap wires configuration, services and background workers into a
// running PDF conversion server.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/webcloud7/wcs.pdfserver/config"
	"github.com/webcloud7/wcs.pdfserver/internal/adapters/jobrunner"
	"github.com/webcloud7/wcs.pdfserver/internal/core"
	"github.com/webcloud7/wcs.pdfserver/internal/data"
	"github.com/webcloud7/wcs.pdfserver/internal/observability/statsd"
	"github.com/webcloud7/wcs.pdfserver/internal/service"
)

// ServiceContainer holds all application services.
type ServiceContainer struct {
	Jobs          *data.JobStore
	Pool          *jobrunner.Pool
	Renderer      core.Renderer
	Conversion    *service.ConversionService
	Sweeper       *service.SweeperService
	Observability ObservabilityContainer
}

// ObservabilityContainer groups shared observability dependencies.
type ObservabilityContainer struct {
	MetricsSink   *statsd.Client
	MetricsConfig config.ObservabilityMetricsConfig
}

// Sink returns the metrics sink, or nil when metrics are disabled.
//
//nolint:ireturn // callers take the Sink interface so a nil client must stay a nil interface.
func (o ObservabilityContainer) Sink() statsd.Sink {
	if o.MetricsSink == nil {
		return nil
	}
	return o.MetricsSink
}

// Close flushes and releases the metrics client.
func (o ObservabilityContainer) Close() error {
	return o.MetricsSink.Close()
}

// ServiceDeps groups dependencies for service initialization.
type ServiceDeps struct {
	Config *config.AppConfig
	Logger *slog.Logger
	// Renderer overrides the WeasyPrint renderer (optional).
	Renderer core.Renderer
}

// buildObservability configures the metrics adapter.
func buildObservability(logger *slog.Logger, cfg config.ObservabilityConfig) ObservabilityContainer {
	obsLogger := logger
	if obsLogger == nil {
		obsLogger = slog.Default()
	}

	var metricsSink *statsd.Client
	if cfg.Metrics.IsEnabled() {
		prefix := cfg.Metrics.Prefix
		if prefix == "" {
			prefix = statsd.DefaultPrefix
		}
		client, err := statsd.NewClient(statsd.Config{
			Enabled: true,
			Address: cfg.Metrics.StatsdAddress,
			Prefix:  prefix,
			Logger:  obsLogger,
		})
		if err != nil {
			obsLogger.Error("failed to initialise statsd client", "error", err)
		} else {
			metricsSink = client
		}
	}

	return ObservabilityContainer{
		MetricsSink:   metricsSink,
		MetricsConfig: cfg.Metrics,
	}
}

// NewServices creates the job store, worker pool, renderer, conversion service and sweeper.
func NewServices(deps *ServiceDeps) (ServiceContainer, error) {
	if deps == nil || deps.Config == nil {
		return ServiceContainer{}, errors.New("service deps with config are required")
	}
	cfg := deps.Config
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	observability := buildObservability(logger, cfg.Observability)
	sink := observability.Sink()

	renderer := deps.Renderer
	if renderer == nil {
		wp, err := NewRenderer(RendererConfig{Config: cfg.Render, Logger: logger})
		if err != nil {
			return ServiceContainer{}, errors.Join(err, observability.Close())
		}
		renderer = wp
	}

	store := data.NewJobStore(data.JobStoreConfig{
		Logger:      logger,
		KeepRunning: cfg.Jobs.KeepRunning,
	})

	pool := jobrunner.NewPool(jobrunner.PoolOptions{
		Size:    cfg.Jobs.Workers,
		Logger:  logger,
		Metrics: sink,
	})

	conversion := service.MustNewConversionService(service.ConversionServiceOptions{
		Store:         store,
		Runner:        pool,
		Renderer:      renderer,
		RenderTimeout: cfg.Render.Timeout,
		Logger:        logger,
		Metrics:       sink,
	})

	sweeper, err := service.NewSweeperService(service.SweeperServiceOptions{
		Store:   store,
		Config:  cfg.Jobs,
		Logger:  logger,
		Metrics: sink,
	})
	if err != nil {
		return ServiceContainer{}, errors.Join(fmt.Errorf("create sweeper: %w", err), observability.Close())
	}

	return ServiceContainer{
		Jobs:          store,
		Pool:          pool,
		Renderer:      renderer,
		Conversion:    conversion,
		Sweeper:       sweeper,
		Observability: observability,
	}, nil
}

// ServiceOrchestrationConfig contains configuration for service orchestration.
type ServiceOrchestrationConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
	// Context stops the services when cancelled, like SIGINT/SIGTERM (optional).
	Context context.Context
}

const (
	// shutdownWaitTimeout is the maximum time to wait for services to stop gracefully.
	shutdownWaitTimeout = 15 * time.Second
)

// serviceStartupDeps groups dependencies for service startup.
type serviceStartupDeps struct {
	ctx    context.Context
	cfg    *ServiceOrchestrationConfig
	logger *slog.Logger
	errCh  chan error
}

// backgroundService describes a startable background component.
type backgroundService struct {
	name  string
	start func(context.Context) error
}

// backgroundServiceHandle tracks a running background service.
type backgroundServiceHandle struct {
	name string
	done <-chan struct{}
}

func launchBackground(ctx context.Context, deps *serviceStartupDeps, descriptor backgroundService) <-chan struct{} {
	if deps == nil || descriptor.start == nil {
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
				deps.logger.WarnContext(ctx, "dropping background service error",
					"service", descriptor.name,
					"error", errMsg)
			}
		}
	}()

	deps.logger.InfoContext(ctx, "background service started", "service", descriptor.name)

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
			name: svc.name,
			done: done,
		})
	}

	return handles
}

func newWorkerPoolBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		name: "worker pool",
		start: func(ctx context.Context) error {
			return RunWorkerPool(ctx, deps.cfg.Services.Pool)
		},
	}
}

func newSweeperBackgroundService(deps *serviceStartupDeps) backgroundService {
	return backgroundService{
		name: "expiry sweeper",
		start: func(ctx context.Context) error {
			return RunSweeper(ctx, deps.cfg.Services.Sweeper)
		},
	}
}

func buildBackgroundServices(deps *serviceStartupDeps) []backgroundService {
	if deps == nil || deps.cfg == nil {
		return nil
	}
	return []backgroundService{
		newWorkerPoolBackgroundService(deps),
		newSweeperBackgroundService(deps),
	}
}

// ServiceStartupResult holds the results of starting all services.
type ServiceStartupResult struct {
	HTTPServer *http.Server
	Background []backgroundServiceHandle
}

// startServices starts the background workers, then the HTTP server.
func startServices(deps *serviceStartupDeps, backgrounds []backgroundService) (ServiceStartupResult, error) {
	result := ServiceStartupResult{
		Background: startBackgroundServices(deps, backgrounds),
	}

	server, err := StartHTTPServer(&HTTPServerConfig{
		Config:   deps.cfg.Config,
		Services: deps.cfg.Services,
		Logger:   deps.logger,
		ErrCh:    deps.errCh,
	})
	if err != nil {
		return result, err
	}
	result.HTTPServer = server
	return result, nil
}

// RunServicesWithShutdown starts all services and manages their lifecycle.
// This function blocks until a shutdown signal is received or a service fails.
func RunServicesWithShutdown(cfg *ServiceOrchestrationConfig) error {
	if cfg == nil {
		return errors.New("service orchestration config is required")
	}
	if cfg.Config == nil {
		return errors.New("service orchestration config missing AppConfig")
	}

	parent := cfg.Context
	if parent == nil {
		parent = context.Background()
	}
	serviceCtx, cancel := context.WithCancel(parent)
	defer cancel()

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	deps := &serviceStartupDeps{
		ctx:    serviceCtx,
		cfg:    cfg,
		logger: logger,
	}
	backgrounds := buildBackgroundServices(deps)
	deps.errCh = make(chan error, errorChannelBufferSize(backgrounds))

	stop := shutdownConfig{
		ctx:        serviceCtx,
		cancel:     cancel,
		errCh:      deps.errCh,
		conversion: cfg.Services.Conversion,
		metrics:    cfg.Services.Observability,
		logger:     logger,
	}

	result, err := startServices(deps, backgrounds)
	stop.httpServer = result.HTTPServer
	stop.backgrounds = result.Background
	if err != nil {
		cancel()
		if stopErr := gracefulStop(stop); stopErr != nil {
			logger.Error("graceful stop failed", "error", stopErr)
		}
		return err
	}

	// Wait for shutdown signal or error
	return waitForShutdown(stop)
}

// errorChannelCapacity counts the services that may report a fatal error: the
// HTTP server plus every background service.
func errorChannelCapacity(backgrounds []backgroundService) int {
	return len(backgrounds) + 1
}

func errorChannelBufferSize(backgrounds []backgroundService) int {
	return errorChannelCapacity(backgrounds) + 1
}

// shutdownConfig contains dependencies for graceful shutdown.
type shutdownConfig struct {
	ctx         context.Context
	cancel      context.CancelFunc
	errCh       <-chan error
	httpServer  *http.Server
	conversion  *service.ConversionService
	metrics     ObservabilityContainer
	logger      *slog.Logger
	backgrounds []backgroundServiceHandle
}

// waitForShutdown waits for shutdown signal, parent cancellation or service error.
func waitForShutdown(cfg shutdownConfig) error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(quit)

	select {
	case <-quit:
		cfg.logger.Info("shutting down services...")
		cfg.cancel() // Cancel service context before waiting
		return gracefulStop(cfg)
	case <-cfg.ctx.Done():
		cfg.logger.Info("shutting down services...", "reason", cfg.ctx.Err())
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

// gracefulStop drains HTTP, waits for the background services and closes the
// metrics client. The service context is already cancelled, so the worker pool
// accepts no new work while in-flight renders finish.
func gracefulStop(cfg shutdownConfig) error {
	var stopErr error

	if cfg.httpServer != nil {
		stopErr = ShutdownHTTPServer(ShutdownConfig{
			Context:    context.Background(),
			Server:     cfg.httpServer,
			Conversion: cfg.conversion,
			Logger:     cfg.logger,
		})
	} else if cfg.conversion != nil {
		cfg.conversion.Close()
	}

	// Wait for background services to finish
	for _, svc := range cfg.backgrounds {
		waitForService(svc.done, svc.name, cfg.logger)
	}

	if err := cfg.metrics.Close(); err != nil {
		cfg.logger.Warn("close metrics client failed", "error", err)
	}

	return stopErr
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
