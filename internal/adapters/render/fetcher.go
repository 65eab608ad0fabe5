// Package render fetches source documents and turns them into PDFs with WeasyPrint.
package render

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/html/charset"

	"github.com/webcloud7/wcs.pdfserver/internal/domain/model"
)

const (
	defaultFetchTimeout  = 120 * time.Second
	defaultFetchMaxBytes = 32 << 20
	defaultUserAgent     = "wcs.pdfserver (WeasyPrint)"
)

var (
	// ErrNotAbsoluteURI rejects relative, schemeless and non-HTTP(S) URLs.
	ErrNotAbsoluteURI = errors.New("Not an absolute URI")
	// ErrResourceTooLarge is returned when a body exceeds the configured cap.
	ErrResourceTooLarge = errors.New("resource exceeds size limit")
)

// FetcherOptions configures a Fetcher.
type FetcherOptions struct {
	Client    *http.Client  // Optional: defaults to a client with Timeout
	Timeout   time.Duration // Optional: per-request timeout
	MaxBytes  int64         // Optional: cap on the decoded body
	Username  string        // Optional: Basic auth user, used only with Password
	Password  string        // Optional: Basic auth password
	UserAgent string        // Optional
	Logger    *slog.Logger  // Optional: structured logger
}

// Resource is a fetched document or stylesheet.
type Resource struct {
	// URL is the final location after redirects; relative references resolve against it.
	URL       string
	MediaType string
	// Charset is the encoding the server declared or that was detected. Text bodies
	// are converted to UTF-8 regardless.
	Charset string
	Body    []byte
}

// Fetcher retrieves remote resources over HTTP(S).
type Fetcher struct {
	client    *http.Client
	maxBytes  int64
	username  string
	password  string
	userAgent string
	logger    *slog.Logger
}

// NewFetcher builds a Fetcher.
func NewFetcher(opts FetcherOptions) *Fetcher {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultFetchTimeout
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultFetchMaxBytes
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	userAgent := strings.TrimSpace(opts.UserAgent)
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Fetcher{
		client:    client,
		maxBytes:  maxBytes,
		username:  opts.Username,
		password:  opts.Password,
		userAgent: userAgent,
		logger:    logger.With("component", "fetcher"),
	}
}

// Fetch downloads rawURL. Every failure wraps model.ErrFetchFailed.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Resource, error) {
	target, err := parseAbsolute(rawURL)
	if err != nil {
		return nil, fetchError(rawURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, fetchError(rawURL, err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "*/*")
	// Setting Accept-Encoding turns off the transport's transparent gzip, so
	// decoding happens in decodeBody for both gzip and deflate.
	req.Header.Set("Accept-Encoding", "gzip, deflate")
	if f.username != "" && f.password != "" {
		req.SetBasicAuth(f.username, f.password)
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fetchError(rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, fetchError(rawURL, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	body, err := f.decodeBody(resp)
	if err != nil {
		return nil, fetchError(rawURL, err)
	}

	res := &Resource{URL: resp.Request.URL.String(), Body: body}
	contentType := resp.Header.Get("Content-Type")
	if mediaType, params, parseErr := mime.ParseMediaType(contentType); parseErr == nil {
		res.MediaType = mediaType
		res.Charset = params["charset"]
	}
	if isText(res.MediaType) {
		if err := res.toUTF8(contentType); err != nil {
			return nil, fetchError(rawURL, err)
		}
	}

	f.logger.DebugContext(ctx, "fetched resource",
		"url", res.URL,
		"media_type", res.MediaType,
		"bytes", len(res.Body),
		"duration", time.Since(start))
	return res, nil
}

func (f *Fetcher) decodeBody(resp *http.Response) ([]byte, error) {
	// Read one byte past the cap so an oversize body is detected rather than truncated.
	raw, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(raw)) > f.maxBytes {
		return nil, ErrResourceTooLarge
	}

	var decoded io.Reader
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "", "identity":
		return raw, nil
	case "gzip", "x-gzip":
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, fmt.Errorf("gzip: %w", err)
		}
		defer zr.Close()
		decoded = zr
	case "deflate":
		return f.inflate(raw)
	default:
		return nil, fmt.Errorf("unsupported content encoding %q", resp.Header.Get("Content-Encoding"))
	}
	return f.readCapped(decoded)
}

// inflate accepts both zlib-wrapped and raw deflate streams; servers disagree on
// what "deflate" means.
func (f *Fetcher) inflate(raw []byte) ([]byte, error) {
	if zr, err := zlib.NewReader(bytes.NewReader(raw)); err == nil {
		defer zr.Close()
		if out, readErr := f.readCapped(zr); readErr == nil || errors.Is(readErr, ErrResourceTooLarge) {
			return out, readErr
		}
	}
	fr := flate.NewReader(bytes.NewReader(raw))
	defer fr.Close()
	out, err := f.readCapped(fr)
	if err != nil && !errors.Is(err, ErrResourceTooLarge) {
		return nil, fmt.Errorf("deflate: %w", err)
	}
	return out, err
}

func (f *Fetcher) readCapped(r io.Reader) ([]byte, error) {
	out, err := io.ReadAll(io.LimitReader(r, f.maxBytes+1))
	if err != nil {
		return nil, err
	}
	if int64(len(out)) > f.maxBytes {
		return nil, ErrResourceTooLarge
	}
	return out, nil
}

func (r *Resource) toUTF8(contentType string) error {
	reader, err := charset.NewReader(bytes.NewReader(r.Body), contentType)
	if err != nil {
		return fmt.Errorf("charset: %w", err)
	}
	converted, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("charset: %w", err)
	}
	if r.Charset == "" {
		_, r.Charset, _ = charset.DetermineEncoding(r.Body, contentType)
	}
	r.Body = converted
	return nil
}

func isText(mediaType string) bool {
	return strings.HasPrefix(mediaType, "text/") ||
		mediaType == "application/xhtml+xml" ||
		mediaType == "image/svg+xml"
}

func parseAbsolute(rawURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrNotAbsoluteURI, rawURL)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return nil, fmt.Errorf("%w: %q", ErrNotAbsoluteURI, rawURL)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrNotAbsoluteURI, rawURL)
	}
	return u, nil
}

func fetchError(rawURL string, err error) error {
	return fmt.Errorf("%w: %s: %w", model.ErrFetchFailed, rawURL, err)
}
