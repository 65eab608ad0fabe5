package httpx

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/webcloud7/wcs.pdfserver/internal/errors"
)

func TestParseWaitQuery(t *testing.T) {
	tests := []struct {
		query   string
		want    time.Duration
		wantErr bool
	}{
		{query: "", want: 0},
		{query: "wait=", want: 0},
		{query: "wait=250ms", want: 250 * time.Millisecond},
		{query: "wait=5", want: 5 * time.Second},
		{query: "wait=0", want: 0},
		{query: "wait=2m", want: MaxStatusWait},
		{query: "wait=120", want: MaxStatusWait},
		{query: "wait=18446744074", want: MaxStatusWait},
		{query: "wait=9223372036854775807", want: MaxStatusWait},
		{query: "wait=-1s", wantErr: true},
		{query: "wait=-9223372037", wantErr: true},
		{query: "wait=later", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/status/x?"+tt.query, nil)
			got, err := parseWaitQuery(r)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err     error
		code    int
		errCode string
	}{
		{err: apperrors.NotFound("job not found"), code: http.StatusNotFound, errCode: "not_found"},
		{err: fmt.Errorf("job x is running: %w", apperrors.Conflict("artifact not ready")), code: http.StatusConflict, errCode: "conflict"},
		{err: apperrors.Validation("URL is required"), code: http.StatusBadRequest, errCode: "validation"},
		{err: apperrors.Wrap(errors.New("dns"), apperrors.ErrCodeFetchFailed, "Failed to fetch URL"), code: http.StatusBadRequest, errCode: "fetch_failed"},
		{err: apperrors.Wrap(errors.New("exit 1"), apperrors.ErrCodeRenderFailed, "Error generating PDF"), code: http.StatusBadRequest, errCode: "render_failed"},
		{err: apperrors.Unavailable("service shutting down"), code: http.StatusServiceUnavailable, errCode: "unavailable"},
		{err: apperrors.Wrap(errors.New("slow"), apperrors.ErrCodeTimeout, "timed out"), code: http.StatusGatewayTimeout, errCode: "timeout"},
		{err: errors.New("boom"), code: http.StatusInternalServerError, errCode: "internal"},
	}

	for _, tt := range tests {
		code, errCode := statusForError(tt.err)
		assert.Equal(t, tt.code, code, tt.err.Error())
		assert.Equal(t, tt.errCode, errCode, tt.err.Error())
	}
}

func TestContentDisposition(t *testing.T) {
	assert.Equal(t, `attachment; filename="a.pdf"`, contentDisposition("a.pdf"))
	assert.Equal(t, `attachment; filename="evil.pdf"`, contentDisposition("ev\"il\r\n.pdf"))
	assert.Equal(t, `attachment; filename="a b.pdf"`, contentDisposition(`a b\.pdf`))
	assert.Equal(t,
		`attachment; filename="bericht-ä.pdf"; filename*=UTF-8''bericht-%C3%A4.pdf`,
		contentDisposition("bericht-ä.pdf"))
}

func TestRecoverMiddleware(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	h := Recover(logger)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("kaboom")
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal","message":"internal server error"}`, w.Body.String())
	assert.Contains(t, logs.String(), "kaboom")
}

func TestRecoverMiddleware_RepanicsAbortHandler(t *testing.T) {
	h := Recover(slog.New(slog.DiscardHandler))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	assert.PanicsWithValue(t, http.ErrAbortHandler, func() {
		h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	})
}

func TestLoggingMiddleware(t *testing.T) {
	var logs bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&logs, nil))

	h := Logging(logger)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = w.Write([]byte("short and stout"))
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/pot", nil))

	line := logs.String()
	assert.Contains(t, line, `"status":418`)
	assert.Contains(t, line, `"bytes":15`)
	assert.Contains(t, line, `"path":"/pot"`)
}

func TestBodyLimit(t *testing.T) {
	var readErr error
	h := BodyLimit(4)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		_, readErr = new(bytes.Buffer).ReadFrom(r.Body)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader("123456")))

	var tooLarge *http.MaxBytesError
	require.ErrorAs(t, readErr, &tooLarge)
	assert.EqualValues(t, 4, tooLarge.Limit)

	// A zero limit leaves the body alone.
	h = BodyLimit(0)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		_, readErr = new(bytes.Buffer).ReadFrom(r.Body)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/", strings.NewReader("123456")))
	require.NoError(t, readErr)
}
