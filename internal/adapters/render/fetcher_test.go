package render

import (
	"bytes"
	"compress/flate"
	"compress/gzip"
	"compress/zlib"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/webcloud7/wcs.pdfserver/internal/domain/model"
	"github.com/webcloud7/wcs.pdfserver/internal/testutil"
)

func newTestFetcher(opts FetcherOptions) *Fetcher {
	opts.Logger = testutil.DiscardLogger()
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Second
	}
	return NewFetcher(opts)
}

func TestFetcher_PlainBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "gzip, deflate", r.Header.Get("Accept-Encoding"))
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		_, _, hasAuth := r.BasicAuth()
		assert.False(t, hasAuth)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte("<h1>hello</h1>"))
	}))
	defer srv.Close()

	res, err := newTestFetcher(FetcherOptions{}).Fetch(context.Background(), srv.URL+"/doc")
	require.NoError(t, err)
	assert.Equal(t, "<h1>hello</h1>", string(res.Body))
	assert.Equal(t, "text/html", res.MediaType)
	assert.Equal(t, "utf-8", res.Charset)
	assert.Equal(t, srv.URL+"/doc", res.URL)
}

func TestFetcher_BasicAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "svc" || pass != "s3cret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte("secret doc"))
	}))
	defer srv.Close()

	_, err := newTestFetcher(FetcherOptions{}).Fetch(context.Background(), srv.URL)
	require.ErrorIs(t, err, model.ErrFetchFailed)
	assert.Contains(t, err.Error(), "unexpected status 401")

	// A username alone is not enough to send credentials.
	_, err = newTestFetcher(FetcherOptions{Username: "svc"}).Fetch(context.Background(), srv.URL)
	require.ErrorIs(t, err, model.ErrFetchFailed)

	res, err := newTestFetcher(FetcherOptions{Username: "svc", Password: "s3cret"}).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "secret doc", string(res.Body))
}

func TestFetcher_ContentEncodings(t *testing.T) {
	payload := []byte(strings.Repeat("body { color: red; }\n", 20))

	var gz, zl, raw bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, _ = gw.Write(payload)
	require.NoError(t, gw.Close())
	zw := zlib.NewWriter(&zl)
	_, _ = zw.Write(payload)
	require.NoError(t, zw.Close())
	fw, err := flate.NewWriter(&raw, flate.DefaultCompression)
	require.NoError(t, err)
	_, _ = fw.Write(payload)
	require.NoError(t, fw.Close())

	tests := []struct {
		name     string
		encoding string
		body     []byte
	}{
		{name: "gzip", encoding: "gzip", body: gz.Bytes()},
		{name: "zlib deflate", encoding: "deflate", body: zl.Bytes()},
		{name: "raw deflate", encoding: "deflate", body: raw.Bytes()},
		{name: "identity", encoding: "", body: payload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/css")
				if tt.encoding != "" {
					w.Header().Set("Content-Encoding", tt.encoding)
				}
				_, _ = w.Write(tt.body)
			}))
			defer srv.Close()

			res, err := newTestFetcher(FetcherOptions{}).Fetch(context.Background(), srv.URL+"/style.css")
			require.NoError(t, err)
			assert.Equal(t, payload, res.Body)
		})
	}
}

func TestFetcher_UnsupportedEncoding(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Encoding", "br")
		_, _ = w.Write([]byte("???"))
	}))
	defer srv.Close()

	_, err := newTestFetcher(FetcherOptions{}).Fetch(context.Background(), srv.URL)
	require.ErrorIs(t, err, model.ErrFetchFailed)
	assert.Contains(t, err.Error(), `unsupported content encoding "br"`)
}

func TestFetcher_ConvertsCharsetToUTF8(t *testing.T) {
	// "café" in ISO-8859-1.
	latin1 := []byte{'c', 'a', 'f', 0xe9}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=ISO-8859-1")
		_, _ = w.Write(latin1)
	}))
	defer srv.Close()

	res, err := newTestFetcher(FetcherOptions{}).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "café", string(res.Body))
	assert.Equal(t, "ISO-8859-1", res.Charset)
}

func TestFetcher_BinaryBodyUntouched(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', 0xff, 0xfe}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}))
	defer srv.Close()

	res, err := newTestFetcher(FetcherOptions{}).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, png, res.Body)
}

func TestFetcher_FollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/old", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/new/", http.StatusFound)
	})
	mux.HandleFunc("/new/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("moved"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	res, err := newTestFetcher(FetcherOptions{}).Fetch(context.Background(), srv.URL+"/old")
	require.NoError(t, err)
	assert.Equal(t, srv.URL+"/new/", res.URL)
}

func TestFetcher_SizeLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(bytes.Repeat([]byte("x"), 2048))
	}))
	defer srv.Close()

	_, err := newTestFetcher(FetcherOptions{MaxBytes: 1024}).Fetch(context.Background(), srv.URL)
	require.ErrorIs(t, err, model.ErrFetchFailed)
	require.ErrorIs(t, err, ErrResourceTooLarge)

	res, err := newTestFetcher(FetcherOptions{MaxBytes: 2048}).Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Len(t, res.Body, 2048)
}

func TestFetcher_SizeLimitAppliesAfterDecompression(t *testing.T) {
	var gz bytes.Buffer
	gw := gzip.NewWriter(&gz)
	_, _ = gw.Write(bytes.Repeat([]byte("a"), 64<<10))
	require.NoError(t, gw.Close())

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write(gz.Bytes())
	}))
	defer srv.Close()

	_, err := newTestFetcher(FetcherOptions{MaxBytes: 4 << 10}).Fetch(context.Background(), srv.URL)
	require.ErrorIs(t, err, ErrResourceTooLarge)
}

func TestFetcher_RejectsNonAbsoluteURLs(t *testing.T) {
	f := newTestFetcher(FetcherOptions{})
	for _, raw := range []string{"", "/relative/path", "example.com/doc", "file:///etc/passwd", "ftp://example.com/a", "http://"} {
		t.Run(raw, func(t *testing.T) {
			_, err := f.Fetch(context.Background(), raw)
			require.ErrorIs(t, err, model.ErrFetchFailed)
			require.ErrorIs(t, err, ErrNotAbsoluteURI)
			assert.Contains(t, err.Error(), "Not an absolute URI")
		})
	}
}

func TestFetcher_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := newTestFetcher(FetcherOptions{}).Fetch(context.Background(), addr)
	require.ErrorIs(t, err, model.ErrFetchFailed)
}

func TestFetcher_HonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := newTestFetcher(FetcherOptions{}).Fetch(ctx, srv.URL)
	require.ErrorIs(t, err, model.ErrFetchFailed)
	assert.Less(t, time.Since(start), 2*time.Second)
}
