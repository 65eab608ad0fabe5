package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/webcloud7/wcs.pdfserver/internal/core"
	"github.com/webcloud7/wcs.pdfserver/internal/domain/model"
)

const (
	defaultBinary  = "weasyprint"
	stderrLimit    = 8 << 10
	processGrace   = 5 * time.Second
	pdfMagicHeader = "%PDF-"
)

// ErrNotPDF is returned when the renderer exits cleanly but its output is not a PDF.
var ErrNotPDF = errors.New("renderer output is not a PDF document")

// ResourceFetcher retrieves documents and stylesheets.
type ResourceFetcher interface {
	Fetch(ctx context.Context, rawURL string) (*Resource, error)
}

// RenderError describes a failed weasyprint invocation.
type RenderError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *RenderError) Error() string {
	msg := "weasyprint failed"
	if e.ExitCode > 0 {
		msg += " with exit code " + strconv.Itoa(e.ExitCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}
	return msg
}

func (e *RenderError) Unwrap() error { return e.Err }

// WeasyPrintOptions configures a WeasyPrintRenderer.
type WeasyPrintOptions struct {
	Binary  string          // Optional: executable name or path; defaults to "weasyprint"
	Fetcher ResourceFetcher // Required: used for the document and every stylesheet
	TempDir string          // Optional: parent for per-render scratch directories
	Logger  *slog.Logger    // Optional: structured logger
}

// WeasyPrintRenderer renders documents by piping them through the weasyprint CLI.
type WeasyPrintRenderer struct {
	binary  string
	fetcher ResourceFetcher
	tempDir string
	logger  *slog.Logger
}

var _ core.Renderer = (*WeasyPrintRenderer)(nil)

// NewWeasyPrintRenderer builds a renderer.
func NewWeasyPrintRenderer(opts WeasyPrintOptions) (*WeasyPrintRenderer, error) {
	if opts.Fetcher == nil {
		return nil, errors.New("ResourceFetcher is required")
	}
	binary := strings.TrimSpace(opts.Binary)
	if binary == "" {
		binary = defaultBinary
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &WeasyPrintRenderer{
		binary:  binary,
		fetcher: opts.Fetcher,
		tempDir: opts.TempDir,
		logger:  logger.With("component", "weasyprint"),
	}, nil
}

// Render fetches req.URL and its stylesheets and returns the PDF bytes. Fetch failures
// wrap model.ErrFetchFailed; everything else is a *RenderError or a plain error.
func (r *WeasyPrintRenderer) Render(ctx context.Context, req model.RenderRequest) ([]byte, error) {
	doc, err := r.fetcher.Fetch(ctx, req.URL)
	if err != nil {
		return nil, err
	}

	scratch, err := os.MkdirTemp(r.tempDir, "pdfserver-*")
	if err != nil {
		return nil, fmt.Errorf("create scratch dir: %w", err)
	}
	defer func() {
		if rmErr := os.RemoveAll(scratch); rmErr != nil {
			r.logger.WarnContext(ctx, "could not remove scratch dir", "dir", scratch, "error", rmErr)
		}
	}()

	args := []string{"--base-url", doc.URL, "--encoding", "utf-8"}
	for i, sheetURL := range req.Stylesheets {
		path, err := r.writeStylesheet(ctx, scratch, i, sheetURL)
		if err != nil {
			return nil, err
		}
		args = append(args, "-s", path)
	}
	args = append(args, "-", "-")

	return r.run(ctx, doc, args)
}

func (r *WeasyPrintRenderer) writeStylesheet(ctx context.Context, dir string, index int, sheetURL string) (string, error) {
	sheet, err := r.fetcher.Fetch(ctx, sheetURL)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("style-%02d.css", index))
	if err := os.WriteFile(path, absolutizeStylesheet(sheet.Body, sheet.URL), 0o600); err != nil {
		return "", fmt.Errorf("write stylesheet %s: %w", sheetURL, err)
	}
	return path, nil
}

func (r *WeasyPrintRenderer) run(ctx context.Context, doc *Resource, args []string) ([]byte, error) {
	var stdout bytes.Buffer
	stderr := &tailBuffer{limit: stderrLimit}

	cmd := exec.CommandContext(ctx, r.binary, args...)
	cmd.Stdin = bytes.NewReader(doc.Body)
	cmd.Stdout = &stdout
	cmd.Stderr = stderr
	cmd.WaitDelay = processGrace

	start := time.Now()
	err := cmd.Run()
	elapsed := time.Since(start)

	if err != nil {
		renderErr := &RenderError{Err: err, Stderr: strings.TrimSpace(stderr.String())}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			renderErr.ExitCode = exitErr.ExitCode()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			renderErr.Err = fmt.Errorf("%w (%w)", ctxErr, err)
		}
		r.logger.WarnContext(ctx, "weasyprint failed",
			"url", doc.URL,
			"exit_code", renderErr.ExitCode,
			"duration", elapsed,
			"stderr", renderErr.Stderr)
		return nil, renderErr
	}

	out := stdout.Bytes()
	if !bytes.HasPrefix(out, []byte(pdfMagicHeader)) {
		return nil, &RenderError{Err: ErrNotPDF, Stderr: strings.TrimSpace(stderr.String())}
	}

	r.logger.DebugContext(ctx, "rendered pdf", "url", doc.URL, "bytes", len(out), "duration", elapsed)
	return out, nil
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	limit int
	buf   []byte
}

func (t *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	t.buf = append(t.buf, p...)
	if over := len(t.buf) - t.limit; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
	return n, nil
}

func (t *tailBuffer) String() string { return string(t.buf) }
