package httpx

import (
	"log/slog"
	"net/http"

	"github.com/webcloud7/wcs.pdfserver/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Conversion *service.ConversionService
	Workers    WorkerStatsProvider // Optional: worker pool counts on /healthz
	// MaxBodyBytes caps request bodies; zero disables the cap.
	MaxBodyBytes int64
	Logger       *slog.Logger // Logger for HTTP errors (optional)
}

// NewRouter creates and configures the HTTP router. Callers add Recover and
// Logging around it.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conversionHandlers := &ConversionHandlers{Svc: services.Conversion, Logger: logger}
	registerConversionRoutes(mux, conversionHandlers, services.MaxBodyBytes)

	health := &HealthHandlers{Workers: services.Workers}
	if services.Conversion != nil {
		health.Jobs = services.Conversion
	}
	mux.Handle("GET /healthz", http.HandlerFunc(health.Health))
	mux.Handle("HEAD /healthz", http.HandlerFunc(health.Health))
	mux.Handle("GET /health", http.HandlerFunc(livenessHandler))
	mux.Handle("HEAD /health", http.HandlerFunc(livenessHandler))
	mux.Handle("GET /{$}", http.HandlerFunc(indexHandler))

	return mux
}

func registerConversionRoutes(mux *http.ServeMux, h *ConversionHandlers, maxBody int64) {
	limit := BodyLimit(maxBody)
	mux.Handle("POST /convert", limit(http.HandlerFunc(h.Convert)))
	mux.Handle("POST /convert_sync", limit(http.HandlerFunc(h.ConvertSync)))
	mux.Handle("GET /status/{id}", http.HandlerFunc(h.Status))
	mux.Handle("GET /pdf/{id}", http.HandlerFunc(h.Download))
	mux.Handle("HEAD /pdf/{id}", http.HandlerFunc(h.Download))
}
