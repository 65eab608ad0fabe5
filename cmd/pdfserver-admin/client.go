package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/webcloud7/wcs.pdfserver/internal/domain/model"
)

// maxStatusWait mirrors the server-side cap on /status long-polls.
const maxStatusWait = 30 * time.Second

// apiClient talks to a running pdfserver over its HTTP API.
type apiClient struct {
	base string
	http *http.Client
}

type apiError struct {
	Status  int
	Code    string `json:"error"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.Status)
	}
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

type submitResult struct {
	UID      string          `json:"uid"`
	Filename string          `json:"filename"`
	Status   model.JobStatus `json:"status"`
}

type statusResult struct {
	UID       string          `json:"uid"`
	Filename  string          `json:"filename"`
	Status    model.JobStatus `json:"status"`
	Message   string          `json:"message"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Download  string          `json:"download"`
}

func newAPIClient(server string, timeout time.Duration) (*apiClient, error) {
	server = strings.TrimRight(strings.TrimSpace(server), "/")
	u, err := url.Parse(server)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q", server)
	}
	return &apiClient{base: server, http: &http.Client{Timeout: timeout}}, nil
}

func (c *apiClient) Convert(ctx context.Context, req model.ConvertRequest) (submitResult, error) {
	var out submitResult
	resp, err := c.postJSON(ctx, "/convert", req)
	if err != nil {
		return out, err
	}
	defer closeBody(resp)

	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode convert response: %w", err)
	}
	return out, nil
}

// Status fetches the job state. A positive wait asks the server to hold the
// request until the job finishes or the wait elapses.
func (c *apiClient) Status(ctx context.Context, id string, wait time.Duration) (statusResult, error) {
	var out statusResult
	path := "/status/" + url.PathEscape(id)
	if wait > 0 {
		path += "?wait=" + url.QueryEscape(wait.String())
	}
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return out, err
	}
	defer closeBody(resp)

	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return out, fmt.Errorf("decode status response: %w", err)
	}
	return out, nil
}

// WaitForCompletion long-polls Status until the job leaves RUNNING.
func (c *apiClient) WaitForCompletion(ctx context.Context, id string) (statusResult, error) {
	for {
		st, err := c.Status(ctx, id, maxStatusWait)
		if err != nil {
			return st, err
		}
		if st.Status != model.JobStatusRunning {
			return st, nil
		}
		if err := ctx.Err(); err != nil {
			return st, err
		}
	}
}

// Download copies the PDF of a completed job into w.
func (c *apiClient) Download(ctx context.Context, id string, w io.Writer) (int64, error) {
	resp, err := c.do(ctx, http.MethodGet, "/pdf/"+url.PathEscape(id), nil)
	if err != nil {
		return 0, err
	}
	defer closeBody(resp)
	return io.Copy(w, resp.Body)
}

// ConvertSync renders on the request and copies the PDF into w.
func (c *apiClient) ConvertSync(ctx context.Context, req model.ConvertRequest, w io.Writer) (int64, error) {
	resp, err := c.postJSON(ctx, "/convert_sync", req)
	if err != nil {
		return 0, err
	}
	defer closeBody(resp)
	return io.Copy(w, resp.Body)
}

func (c *apiClient) postJSON(ctx context.Context, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(payload))
}

// do sends the request and turns any non-200 answer into an *apiError.
func (c *apiClient) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if resp.StatusCode == http.StatusOK {
		return resp, nil
	}
	defer closeBody(resp)

	apiErr := &apiError{Status: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if jerr := json.Unmarshal(raw, apiErr); jerr != nil {
		apiErr.Message = strings.TrimSpace(string(raw))
	}
	return nil, apiErr
}

func closeBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
}

func isNotFound(err error) bool {
	var apiErr *apiError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}
