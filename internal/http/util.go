package httpx

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
	"unicode"

	apperrors "github.com/webcloud7/wcs.pdfserver/internal/errors"
)

// MaxStatusWait caps the long-poll window of GET /status/{id}.
const MaxStatusWait = 30 * time.Second

var errInvalidWait = errors.New("wait must be a non-negative duration or number of seconds")

// parseWaitQuery reads the wait query param as a Go duration ("5s") or whole
// seconds ("5"). Missing means no wait; values above MaxStatusWait are clamped.
func parseWaitQuery(r *http.Request) (time.Duration, error) {
	v := strings.TrimSpace(r.URL.Query().Get("wait"))
	if v == "" {
		return 0, nil
	}

	d, err := time.ParseDuration(v)
	if err != nil {
		secs, atoiErr := strconv.Atoi(v)
		if atoiErr != nil || secs < 0 {
			return 0, errInvalidWait
		}
		// Clamp before multiplying so large values cannot overflow.
		if secs > int(MaxStatusWait/time.Second) {
			return MaxStatusWait, nil
		}
		d = time.Duration(secs) * time.Second
	}
	if d < 0 {
		return 0, errInvalidWait
	}
	if d > MaxStatusWait {
		d = MaxStatusWait
	}
	return d, nil
}

// statusForError maps an application error code to an HTTP status and error code.
func statusForError(err error) (int, string) {
	if apperrors.IsConversionFailure(err) {
		return http.StatusBadRequest, string(apperrors.GetCode(err))
	}

	switch code := apperrors.GetCode(err); code {
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound, string(code)
	case apperrors.ErrCodeConflict:
		return http.StatusConflict, string(code)
	case apperrors.ErrCodeValidation:
		return http.StatusBadRequest, string(code)
	case apperrors.ErrCodeUnavailable:
		return http.StatusServiceUnavailable, string(code)
	case apperrors.ErrCodeTimeout:
		return http.StatusGatewayTimeout, string(code)
	default:
		return http.StatusInternalServerError, string(apperrors.ErrCodeInternal)
	}
}

// contentDisposition builds an attachment header for filename. Quotes,
// backslashes and control characters are dropped; non-ASCII names also get
// an RFC 5987 filename* parameter.
func contentDisposition(filename string) string {
	clean := strings.Map(func(r rune) rune {
		if r == '"' || r == '\\' || unicode.IsControl(r) {
			return -1
		}
		return r
	}, filename)

	header := `attachment; filename="` + clean + `"`
	for _, r := range clean {
		if r > unicode.MaxASCII {
			header += "; filename*=UTF-8''" + url.PathEscape(clean)
			break
		}
	}
	return header
}
