package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/webcloud7/wcs.pdfserver/config"
	"github.com/webcloud7/wcs.pdfserver/internal/adapters/jobrunner"
	"github.com/webcloud7/wcs.pdfserver/internal/adapters/render"
	"github.com/webcloud7/wcs.pdfserver/internal/service"
)

// RendererConfig contains configuration for the WeasyPrint renderer.
type RendererConfig struct {
	Config config.RenderConfig
	Logger *slog.Logger
}

// NewRenderer builds the fetcher and the WeasyPrint renderer it feeds.
func NewRenderer(cfg RendererConfig) (*render.WeasyPrintRenderer, error) {
	fetcherOpts := render.FetcherOptions{
		Timeout:  cfg.Config.FetchTimeout,
		MaxBytes: cfg.Config.FetchMaxBytes,
		Logger:   cfg.Logger,
	}
	if cfg.Config.HasCredentials() {
		fetcherOpts.Username = cfg.Config.Username
		fetcherOpts.Password = cfg.Config.Password
	}

	renderer, err := render.NewWeasyPrintRenderer(render.WeasyPrintOptions{
		Binary:  cfg.Config.WeasyPrintBin,
		Fetcher: render.NewFetcher(fetcherOpts),
		Logger:  cfg.Logger,
	})
	if err != nil {
		return nil, fmt.Errorf("create weasyprint renderer: %w", err)
	}
	return renderer, nil
}

// RunWorkerPool runs the conversion worker pool until ctx is cancelled.
func RunWorkerPool(ctx context.Context, pool *jobrunner.Pool) error {
	if pool == nil {
		return nil
	}
	return pool.Run(ctx)
}

// RunSweeper runs the expiry sweeper until ctx is cancelled.
func RunSweeper(ctx context.Context, sweeper *service.SweeperService) error {
	if sweeper == nil {
		return nil
	}
	return sweeper.Run(ctx)
}
