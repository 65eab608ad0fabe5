package config

import (
	"strings"
	"time"
)

const (
	defaultWeasyPrintBin = "weasyprint"
	defaultRenderTimeout = 120 * time.Second
	defaultFetchTimeout  = 120 * time.Second
	defaultFetchMaxBytes = 32 << 20
)

// RenderConfig controls how source documents are fetched and rendered.
type RenderConfig struct {
	// WeasyPrintBin is the weasyprint executable, resolved via PATH when relative.
	WeasyPrintBin string `env:"RENDER_WEASYPRINT_BIN" envDefault:"weasyprint"`

	// Timeout bounds a single render, fetching included.
	Timeout time.Duration `env:"RENDER_TIMEOUT" envDefault:"120s"`

	// FetchTimeout bounds a single document or stylesheet download.
	FetchTimeout time.Duration `env:"RENDER_FETCH_TIMEOUT" envDefault:"120s"`

	// FetchMaxBytes caps the decoded size of a fetched resource.
	FetchMaxBytes int64 `env:"RENDER_FETCH_MAX_BYTES" envDefault:"33554432"`

	// Username and Password are sent as HTTP Basic credentials when both are set.
	Username string `env:"REMOTE_USERNAME"`
	Password string `env:"REMOTE_PASSWORD"`
}

// Sanitize applies guardrails to render configuration values.
func (c *RenderConfig) Sanitize() {
	if c.WeasyPrintBin = strings.TrimSpace(c.WeasyPrintBin); c.WeasyPrintBin == "" {
		c.WeasyPrintBin = defaultWeasyPrintBin
	}
	if c.Timeout <= 0 {
		c.Timeout = defaultRenderTimeout
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = defaultFetchTimeout
	}
	if c.FetchTimeout > c.Timeout {
		c.FetchTimeout = c.Timeout
	}
	if c.FetchMaxBytes <= 0 {
		c.FetchMaxBytes = defaultFetchMaxBytes
	}
}

// HasCredentials reports whether Basic auth should be sent on fetches.
func (c *RenderConfig) HasCredentials() bool {
	return c.Username != "" && c.Password != ""
}
