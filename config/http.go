package config

import "time"

const (
	defaultHTTPAddr         = ":8040"
	defaultHTTPReadTimeout  = 30 * time.Second
	defaultHTTPWriteTimeout = 30 * time.Second
	defaultHTTPIdleTimeout  = 120 * time.Second
)

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8040"`

	// ReadTimeout bounds reading a full request, body included.
	ReadTimeout time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`

	// WriteTimeout bounds writing a response. /convert_sync renders inside this
	// window, so AppConfig.Sanitize raises it above the render timeout.
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`

	// IdleTimeout bounds keep-alive connections.
	IdleTimeout time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`

	// MaxBodyBytes caps the size of a conversion request body.
	MaxBodyBytes int64 `env:"HTTP_MAX_BODY_BYTES" envDefault:"1048576"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	if h.Addr == "" {
		h.Addr = defaultHTTPAddr
	}
	if h.ReadTimeout <= 0 {
		h.ReadTimeout = defaultHTTPReadTimeout
	}
	if h.WriteTimeout <= 0 {
		h.WriteTimeout = defaultHTTPWriteTimeout
	}
	if h.IdleTimeout <= 0 {
		h.IdleTimeout = defaultHTTPIdleTimeout
	}
	if h.MaxBodyBytes <= 0 {
		h.MaxBodyBytes = 1 << 20
	}
}
