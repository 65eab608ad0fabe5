package model

import (
	"errors"
	"strings"
)

// DefaultFilename is used when a conversion request does not name its output.
const DefaultFilename = "output.pdf"

// Failure messages recorded on FAILED jobs.
const (
	// MessageFetchFailed marks a job whose source document or stylesheet could not be retrieved.
	MessageFetchFailed = "Failed to fetch URL"
	// MessageRenderFailed marks a job that failed for any other reason.
	MessageRenderFailed = "Error generating PDF"
)

var (
	// ErrFetchFailed is wrapped by renderers when a remote resource could not be fetched.
	ErrFetchFailed = errors.New("fetch failed")
	// ErrURLRequired is returned when a conversion request has no source URL.
	ErrURLRequired = errors.New("URL is required")
)

// ConvertRequest is the payload accepted by the conversion endpoints.
type ConvertRequest struct {
	URL      string   `json:"url"`
	CSS      []string `json:"css,omitempty"`
	Filename string   `json:"filename,omitempty"`
}

// Normalize trims whitespace, drops empty stylesheet entries, and applies the default filename.
func (r *ConvertRequest) Normalize() {
	r.URL = strings.TrimSpace(r.URL)
	r.Filename = strings.TrimSpace(r.Filename)
	if r.Filename == "" {
		r.Filename = DefaultFilename
	}

	css := make([]string, 0, len(r.CSS))
	for _, c := range r.CSS {
		if c = strings.TrimSpace(c); c != "" {
			css = append(css, c)
		}
	}
	r.CSS = css
}

// Validate validates the ConvertRequest fields.
func (r *ConvertRequest) Validate() error {
	if strings.TrimSpace(r.URL) == "" {
		return ErrURLRequired
	}
	return nil
}

// RenderRequest returns the renderer input for this request.
func (r *ConvertRequest) RenderRequest() RenderRequest {
	return RenderRequest{
		URL:         r.URL,
		Stylesheets: append([]string(nil), r.CSS...),
	}
}

// RenderRequest describes a document to render and the stylesheets to apply to it.
type RenderRequest struct {
	URL         string
	Stylesheets []string
}

// FailureMessage maps a computation error to the message stored on the failed job.
func FailureMessage(err error) string {
	if errors.Is(err, ErrFetchFailed) {
		return MessageFetchFailed
	}
	return MessageRenderFailed
}
