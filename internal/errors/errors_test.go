package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppError_Error(t *testing.T) {
	assert.Equal(t, "job not found", NotFound("job not found").Error())
	assert.Equal(t,
		"Error generating PDF: exit status 1",
		Wrap(errors.New("exit status 1"), ErrCodeRenderFailed, "Error generating PDF").Error())
}

func TestAppError_UnwrapSupportsIs(t *testing.T) {
	err := Wrap(context.DeadlineExceeded, ErrCodeTimeout, "render timed out")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, ErrCodeTimeout, GetCode(err))
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		err  *AppError
		code ErrorCode
	}{
		{NotFound("m"), ErrCodeNotFound},
		{Conflict("m"), ErrCodeConflict},
		{Validation("m"), ErrCodeValidation},
		{Unavailable("m"), ErrCodeUnavailable},
		{Internal("m"), ErrCodeInternal},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			assert.Equal(t, tt.code, tt.err.Code)
			assert.Equal(t, "m", tt.err.Message)
			assert.NoError(t, tt.err.Cause)
		})
	}
}

func TestValidationField(t *testing.T) {
	err := ValidationField("url", "URL is required")
	assert.True(t, IsValidation(err))
	assert.Equal(t, "url", GetField(err))
	assert.Empty(t, GetField(errors.New("plain")))
}

func TestWrap_NilError(t *testing.T) {
	assert.Nil(t, Wrap(nil, ErrCodeInternal, "ignored"))
}

func TestIsHelpersThroughWrapping(t *testing.T) {
	wrapped := fmt.Errorf("complete job abc: %w", NotFound("job not found"))

	assert.True(t, IsNotFound(wrapped))
	assert.False(t, IsConflict(wrapped))
	assert.False(t, IsValidation(wrapped))
	assert.False(t, IsUnavailable(wrapped))
	assert.False(t, IsNotFound(errors.New("plain")))
	assert.False(t, IsNotFound(nil))
	assert.Equal(t, ErrorCode(""), GetCode(errors.New("plain")))
}

func TestIsConversionFailure(t *testing.T) {
	assert.True(t, IsConversionFailure(Wrap(errors.New("dns"), ErrCodeFetchFailed, "Failed to fetch URL")))
	assert.True(t, IsConversionFailure(fmt.Errorf("sync: %w", Wrap(errors.New("exit 1"), ErrCodeRenderFailed, "x"))))
	assert.False(t, IsConversionFailure(Validation("URL is required")))
	assert.False(t, IsConversionFailure(errors.New("plain")))
}

func TestMessage(t *testing.T) {
	err := Wrap(errors.New("exit status 1"), ErrCodeRenderFailed, "Error generating PDF")
	assert.Equal(t, "Error generating PDF", Message(fmt.Errorf("convert: %w", err)))
	assert.Equal(t, "plain", Message(errors.New("plain")))
	assert.Empty(t, Message(nil))
}
