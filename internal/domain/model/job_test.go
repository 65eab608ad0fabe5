package model

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobStatus_Valid(t *testing.T) {
	assert.True(t, JobStatusRunning.Valid())
	assert.True(t, JobStatusCompleted.Valid())
	assert.True(t, JobStatusFailed.Valid())
	assert.False(t, JobStatus("pending").Valid())
}

func TestJobStatus_IsTerminal(t *testing.T) {
	assert.False(t, JobStatusRunning.IsTerminal())
	assert.True(t, JobStatusCompleted.IsTerminal())
	assert.True(t, JobStatusFailed.IsTerminal())
}

func TestJobStatus_UnmarshalText(t *testing.T) {
	var s JobStatus
	require.NoError(t, s.UnmarshalText([]byte(" Completed ")))
	assert.Equal(t, JobStatusCompleted, s)

	err := s.UnmarshalText([]byte("queued"))
	require.Error(t, err)
	assert.Equal(t, JobStatusCompleted, s)
}

func TestJob_CloneIsIndependent(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	orig := &Job{ID: "abc", Name: "a.pdf", Status: JobStatusRunning, CreatedAt: now, UpdatedAt: now}

	cp := orig.Clone()
	cp.Status = JobStatusFailed
	cp.Message = "boom"

	assert.Equal(t, JobStatusRunning, orig.Status)
	assert.Empty(t, orig.Message)
	assert.Nil(t, (*Job)(nil).Clone())
}

func TestJob_Age(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	j := &Job{UpdatedAt: now.Add(-90 * time.Second)}
	assert.Equal(t, 90*time.Second, j.Age(now))
}

func TestArtifact_CopiesInput(t *testing.T) {
	src := []byte("%PDF-1.7 body")
	a := NewArtifact(src)
	src[0] = 'X'

	assert.Equal(t, "%PDF-1.7 body", string(a.Bytes()))
	assert.Equal(t, len(src), a.Len())

	out := a.Bytes()
	out[0] = 'Y'
	assert.Equal(t, "%PDF-1.7 body", string(a.Bytes()))
}

func TestArtifact_NilSafe(t *testing.T) {
	var a *Artifact
	assert.Equal(t, 0, a.Len())
	assert.Nil(t, a.Bytes())
	assert.Equal(t, int64(0), a.NewReader().Size())
}

func TestConvertRequest_Normalize(t *testing.T) {
	req := &ConvertRequest{
		URL: "  https://example.com/doc  ",
		CSS: []string{"", " https://example.com/a.css ", "   "},
	}
	req.Normalize()

	assert.Equal(t, "https://example.com/doc", req.URL)
	assert.Equal(t, DefaultFilename, req.Filename)
	assert.Equal(t, []string{"https://example.com/a.css"}, req.CSS)
}

func TestConvertRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     ConvertRequest
		wantErr error
	}{
		{name: "missing url", req: ConvertRequest{}, wantErr: ErrURLRequired},
		{name: "blank url", req: ConvertRequest{URL: "   "}, wantErr: ErrURLRequired},
		{name: "valid", req: ConvertRequest{URL: "https://example.com"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestFailureMessage(t *testing.T) {
	fetchErr := fmt.Errorf("get https://example.com: %w", ErrFetchFailed)
	assert.Equal(t, MessageFetchFailed, FailureMessage(fetchErr))
	assert.Equal(t, MessageRenderFailed, FailureMessage(errors.New("weasyprint exited 1")))
	assert.NotEqual(t, MessageFetchFailed, MessageRenderFailed)
}
