package config

import (
	"log/slog"
	"os"
	"strings"
	"time"
)

const syncWriteSlack = 10 * time.Second

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - http.go: HTTP server configuration
//   - jobs.go: worker pool and job expiry configuration
//   - render.go: document fetching and PDF rendering configuration
//   - observability.go: metrics configuration
type AppConfig struct {
	// IsDev switches the logger to a human-readable text handler.
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// LogLevel is the minimum level written by the logger (debug, info, warn, error).
	LogLevel slog.Level `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server configuration
	HTTP HTTPConfig

	// Job lifecycle configuration
	Jobs JobsConfig

	// Renderer configuration
	Render RenderConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.HTTP.Sanitize()
	c.Jobs.Sanitize()
	c.Render.Sanitize()
	c.Observability.Sanitize()

	// A synchronous conversion must be able to finish writing after a full render.
	if floor := c.Render.Timeout + syncWriteSlack; c.HTTP.WriteTimeout < floor {
		c.HTTP.WriteTimeout = floor
	}

	c.detectDevMode()
}

// detectDevMode falls back to NODE_ENV when DEV is unset.
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}
