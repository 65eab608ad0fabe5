package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/webcloud7/wcs.pdfserver/config"
	"github.com/webcloud7/wcs.pdfserver/internal/adapters/jobrunner"
	httpx "github.com/webcloud7/wcs.pdfserver/internal/http"
	"github.com/webcloud7/wcs.pdfserver/internal/service"
)

// httpShutdownTimeout bounds draining in-flight requests.
const httpShutdownTimeout = 10 * time.Second

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services ServiceContainer
	Logger   *slog.Logger
	// ErrCh receives the error if the server stops unexpectedly (optional).
	ErrCh chan<- error
}

// StartHTTPServer binds the listen address and serves in the background.
// Returns the server instance for graceful shutdown; Addr holds the bound address.
func StartHTTPServer(cfg *HTTPServerConfig) (*http.Server, error) {
	if cfg == nil {
		return nil, errors.New("http server config is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	appCfg := cfg.Config
	if appCfg == nil {
		appCfg = &config.AppConfig{}
		appCfg.HTTP.Sanitize()
	}

	handler := buildHTTPHandler(httpHandlerConfig{
		Logger: logger,
		Services: httpx.RouterServices{
			Conversion:   cfg.Services.Conversion,
			Workers:      workerStats(cfg.Services.Pool),
			MaxBodyBytes: appCfg.HTTP.MaxBodyBytes,
			Logger:       logger,
		},
	})

	return startServer(serverConfig{
		Logger:  logger,
		Handler: handler,
		HTTP:    appCfg.HTTP,
		ErrCh:   cfg.ErrCh,
	})
}

//nolint:ireturn // a nil pool must stay a nil interface.
func workerStats(pool *jobrunner.Pool) httpx.WorkerStatsProvider {
	if pool == nil {
		return nil
	}
	return pool
}

type httpHandlerConfig struct {
	Logger   *slog.Logger
	Services httpx.RouterServices
}

func buildHTTPHandler(cfg httpHandlerConfig) http.Handler {
	// Order: Recover -> Logging -> Router
	h := httpx.NewRouter(cfg.Services)
	h = httpx.Logging(cfg.Logger)(h)
	h = httpx.Recover(cfg.Logger)(h)
	return h
}

type serverConfig struct {
	Logger  *slog.Logger
	Handler http.Handler
	HTTP    config.HTTPConfig
	ErrCh   chan<- error
}

func startServer(cfg serverConfig) (*http.Server, error) {
	addr := cfg.HTTP.Addr
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8040"
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	server := &http.Server{
		Addr:              ln.Addr().String(),
		Handler:           cfg.Handler,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
	}

	go func() {
		cfg.Logger.Info("starting HTTP server", "addr", server.Addr)
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			cfg.Logger.Error("HTTP server failed", "error", err)
			if cfg.ErrCh != nil {
				select {
				case cfg.ErrCh <- fmt.Errorf("http server failed: %w", err):
				default:
				}
			}
		}
	}()

	return server, nil
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Context    context.Context
	Server     *http.Server
	Conversion *service.ConversionService
	Logger     *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server. Status long-polls are
// released first so they do not hold the drain open.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}

	if cfg.Conversion != nil {
		cfg.Conversion.Close()
	}

	parent := cfg.Context
	if parent == nil {
		parent = context.Background()
	}
	shutdownCtx, cancel := context.WithTimeout(parent, httpShutdownTimeout)
	defer cancel()

	if err := cfg.Server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("HTTP server stopped")
	}

	return nil
}
