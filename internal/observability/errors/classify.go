// Package errors derives low-cardinality labels from errors for metric tags and log fields.
package errors

import (
	"context"
	goerrors "errors"
	"reflect"
	"strings"

	"github.com/webcloud7/wcs.pdfserver/internal/domain/model"
	apperrors "github.com/webcloud7/wcs.pdfserver/internal/errors"
)

// Well-known classes. Anything else falls back to the innermost concrete type name.
const (
	ClassFetch    = "fetch"
	ClassTimeout  = "timeout"
	ClassCanceled = "canceled"
	ClassUnknown  = "unknown"
)

// Classify returns a label for err suitable for metric tags. Sentinels the service
// cares about are matched first; otherwise the innermost concrete type name is used.
func Classify(err error) string {
	switch {
	case err == nil:
		return ""
	case goerrors.Is(err, model.ErrFetchFailed):
		return ClassFetch
	case goerrors.Is(err, context.DeadlineExceeded):
		return ClassTimeout
	case goerrors.Is(err, context.Canceled):
		return ClassCanceled
	}
	if code := apperrors.GetCode(err); code != "" {
		return string(code)
	}

	for {
		unwrapped := goerrors.Unwrap(err)
		if unwrapped == nil {
			break
		}
		err = unwrapped
	}

	t := reflect.TypeOf(err)
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil {
		return ClassUnknown
	}

	name := strings.ToLower(t.String())
	name = strings.ReplaceAll(name, ".", "_")
	if name == "" {
		return ClassUnknown
	}
	return name
}
