package httpx

import (
	"net/http"

	"github.com/webcloud7/wcs.pdfserver/internal/adapters/jobrunner"
	"github.com/webcloud7/wcs.pdfserver/internal/domain/model"
)

// JobStatsProvider reports job counts per status.
type JobStatsProvider interface {
	Stats() model.JobStats
}

// WorkerStatsProvider reports worker pool occupancy.
type WorkerStatsProvider interface {
	Stats() jobrunner.PoolStats
}

type healthResponse struct {
	Status  string               `json:"status"`
	Jobs    *model.JobStats      `json:"jobs,omitempty"`
	Workers *jobrunner.PoolStats `json:"workers,omitempty"`
}

// HealthHandlers serves /healthz with job and worker counts when available.
type HealthHandlers struct {
	Jobs    JobStatsProvider
	Workers WorkerStatsProvider
}

// Health returns 200 with a JSON summary for readiness/liveness checks.
func (h *HealthHandlers) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodHead {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		return
	}

	resp := healthResponse{Status: "ok"}
	if h.Jobs != nil {
		stats := h.Jobs.Stats()
		resp.Jobs = &stats
	}
	if h.Workers != nil {
		stats := h.Workers.Stats()
		resp.Workers = &stats
	}
	WriteJSON(w, http.StatusOK, resp)
}
