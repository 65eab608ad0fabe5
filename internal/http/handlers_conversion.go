// Package httpx provides the HTTP API of the PDF conversion service.
package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/webcloud7/wcs.pdfserver/internal/domain/model"
	apperrors "github.com/webcloud7/wcs.pdfserver/internal/errors"
	"github.com/webcloud7/wcs.pdfserver/internal/service"
)

// messageNotFound is the body message for unknown or evicted job ids.
const messageNotFound = "PDF not found"

// ConversionHandlers provides HTTP handlers for conversion jobs.
type ConversionHandlers struct {
	Svc    *service.ConversionService
	Logger *slog.Logger
}

type submitResponse struct {
	UID      string          `json:"uid"`
	Filename string          `json:"filename"`
	Status   model.JobStatus `json:"status"`
}

type statusResponse struct {
	UID       string          `json:"uid"`
	Filename  string          `json:"filename"`
	Status    model.JobStatus `json:"status"`
	Message   string          `json:"message"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	// Timestamp is UpdatedAt in fractional Unix seconds.
	Timestamp float64 `json:"timestamp"`
	Download  string  `json:"download,omitempty"`
}

func newStatusResponse(job *model.Job) statusResponse {
	resp := statusResponse{
		UID:       job.ID,
		Filename:  job.Name,
		Status:    job.Status,
		Message:   job.Message,
		CreatedAt: job.CreatedAt.UTC(),
		UpdatedAt: job.UpdatedAt.UTC(),
		Timestamp: float64(job.UpdatedAt.UnixMicro()) / 1e6,
	}
	if job.Status == model.JobStatusCompleted {
		resp.Download = "/pdf/" + job.ID
	}
	return resp
}

// Convert handles POST /convert: it records a RUNNING job and renders in the background.
func (h *ConversionHandlers) Convert(w http.ResponseWriter, r *http.Request) {
	var req model.ConvertRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	job, err := h.Svc.Submit(r.Context(), &req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, submitResponse{UID: job.ID, Filename: job.Name, Status: job.Status})
}

// ConvertSync handles POST /convert_sync: it renders on the request and returns the PDF.
func (h *ConversionHandlers) ConvertSync(w http.ResponseWriter, r *http.Request) {
	var req model.ConvertRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	pdf, err := h.Svc.ConvertSync(r.Context(), &req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	writePDF(w, r, req.Filename, pdf)
}

// Status handles GET /status/{id}. With ?wait=<duration> it holds the request
// until the job finishes or the wait elapses, then reports the latest state.
func (h *ConversionHandlers) Status(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	wait, err := parseWaitQuery(r)
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: string(apperrors.ErrCodeValidation), Err: err})
		return
	}

	var job *model.Job
	if wait > 0 {
		job, err = h.waitForJob(r.Context(), id, wait)
	} else {
		job, err = h.Svc.GetStatus(r.Context(), id)
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	WriteJSON(w, http.StatusOK, newStatusResponse(job))
}

func (h *ConversionHandlers) waitForJob(ctx context.Context, id string, wait time.Duration) (*model.Job, error) {
	ctx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()

	job, err := h.Svc.WaitForCompletion(ctx, id)
	if job != nil && err != nil {
		// Timing out or shutting down still leaves a valid snapshot to report.
		if ctx.Err() != nil || errors.Is(err, service.ErrNotificationsStopped) {
			return job, nil
		}
	}
	return job, err
}

// Download handles GET /pdf/{id}.
func (h *ConversionHandlers) Download(w http.ResponseWriter, r *http.Request) {
	dl, err := h.Svc.GetArtifact(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", strconv.Itoa(dl.Artifact.Len()))
	w.Header().Set("Content-Disposition", contentDisposition(dl.Filename))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := dl.Artifact.WriteTo(w); err != nil {
		h.logger().DebugContext(r.Context(), "pdf download interrupted", "job_id", dl.JobID, "error", err)
	}
}

func writePDF(w http.ResponseWriter, r *http.Request, filename string, pdf []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Length", strconv.Itoa(len(pdf)))
	w.Header().Set("Content-Disposition", contentDisposition(filename))
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write(pdf); err != nil {
		// Client went away.
		return
	}
}

func (h *ConversionHandlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, errCode := statusForError(err)

	message := apperrors.Message(err)
	switch code {
	case http.StatusNotFound:
		message = messageNotFound
	case http.StatusInternalServerError:
		h.logger().ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		message = "internal server error"
	}

	WriteError(w, ErrorParams{Code: code, ErrCode: errCode, Err: errors.New(message), Field: apperrors.GetField(err)})
}

func (h *ConversionHandlers) logger() *slog.Logger {
	if h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

const (
	indexResponse  = "WeasyPrint PDF Conversion Service"
	livenessResult = "OK"
)

func indexHandler(w http.ResponseWriter, r *http.Request) {
	writePlain(w, r, indexResponse)
}

// livenessHandler answers GET /health with a plain-text OK.
func livenessHandler(w http.ResponseWriter, r *http.Request) {
	writePlain(w, r, livenessResult)
}

func writePlain(w http.ResponseWriter, r *http.Request, body string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := w.Write([]byte(body)); err != nil {
		return
	}
}
