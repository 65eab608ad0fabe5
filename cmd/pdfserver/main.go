package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/webcloud7/wcs.pdfserver/config"
	"github.com/webcloud7/wcs.pdfserver/internal/bootstrap"
)

func main() {
	ctx := context.Background()
	logger := bootstrap.InitLogger()
	if err := run(ctx, logger); err != nil {
		logger.ErrorContext(ctx, "fatal error", "error", err)
		os.Exit(1) //nolint:forbidigo // Main entrypoint should exit with non-zero status on fatal errors.
	}
}

func run(ctx context.Context, logger *slog.Logger) error {
	cfg, err := bootstrap.LoadConfig()
	if err != nil {
		return err
	}
	logger = bootstrap.ConfigureLogger(&cfg)

	logStartupInfo(ctx, logger, &cfg)

	services, err := bootstrap.NewServices(&bootstrap.ServiceDeps{
		Config: &cfg,
		Logger: logger,
	})
	if err != nil {
		return err
	}

	return bootstrap.RunServicesWithShutdown(&bootstrap.ServiceOrchestrationConfig{
		Config:   &cfg,
		Services: services,
		Logger:   logger,
		Context:  ctx,
	})
}

func logStartupInfo(ctx context.Context, logger *slog.Logger, cfg *config.AppConfig) {
	logger.InfoContext(ctx, "starting pdfserver",
		"addr", cfg.HTTP.Addr,
		"workers", cfg.Jobs.Workers,
		"job_ttl", cfg.Jobs.TTL,
		"sweep_interval", cfg.Jobs.SweepInterval,
		"weasyprint", cfg.Render.WeasyPrintBin,
		"metrics_enabled", cfg.Observability.Metrics.IsEnabled())
}
