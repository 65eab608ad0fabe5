package errors

import (
	"context"
	goerrors "errors"
	"fmt"
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/webcloud7/wcs.pdfserver/internal/domain/model"
	apperrors "github.com/webcloud7/wcs.pdfserver/internal/errors"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "fetch", err: fmt.Errorf("get css: %w", model.ErrFetchFailed), want: ClassFetch},
		{name: "deadline", err: fmt.Errorf("render: %w", context.DeadlineExceeded), want: ClassTimeout},
		{name: "canceled", err: context.Canceled, want: ClassCanceled},
		{name: "app error", err: apperrors.NotFound("job not found"), want: "not_found"},
		{name: "plain", err: goerrors.New("x"), want: "errors_errorstring"},
		{name: "exec", err: fmt.Errorf("run: %w", &exec.Error{Name: "weasyprint", Err: exec.ErrNotFound}), want: "errors_errorstring"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
