package config

import "strings"

// ObservabilityConfig holds the metrics settings of the conversion service.
type ObservabilityConfig struct {
	Metrics ObservabilityMetricsConfig
}

// Sanitize normalises the metrics settings.
func (c *ObservabilityConfig) Sanitize() {
	c.Metrics.Sanitize()
}

// ObservabilityMetricsConfig points job, pool and sweeper metrics at a StatsD
// daemon. Metrics are off unless explicitly enabled.
type ObservabilityMetricsConfig struct {
	Enabled       bool   `env:"OBSERVABILITY_METRICS_ENABLED"        envDefault:"false"`
	StatsdAddress string `env:"OBSERVABILITY_METRICS_STATSD_ADDRESS" envDefault:"127.0.0.1:8125"`

	// Prefix is prepended to every metric name; an empty prefix falls back to the client default.
	Prefix string `env:"OBSERVABILITY_METRICS_PREFIX" envDefault:"pdfserver"`
}

// Sanitize trims the address and prefix. A blank address turns metrics off.
func (c *ObservabilityMetricsConfig) Sanitize() {
	c.StatsdAddress = strings.TrimSpace(c.StatsdAddress)
	c.Prefix = strings.TrimSpace(c.Prefix)
	c.Enabled = c.Enabled && c.StatsdAddress != ""
}

// IsEnabled reports whether a StatsD client should be built.
func (c *ObservabilityMetricsConfig) IsEnabled() bool {
	return c.Enabled && c.StatsdAddress != ""
}
