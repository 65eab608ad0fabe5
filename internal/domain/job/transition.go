// Package job holds the job state machine and completion notifications.
package job

import (
	"errors"
	"fmt"

	"github.com/webcloud7/wcs.pdfserver/internal/domain/model"
)

// ErrInvalidTransition indicates a status change that the state machine does not allow.
var ErrInvalidTransition = errors.New("invalid job status transition")

// TransitionError describes a rejected status change.
type TransitionError struct {
	From model.JobStatus
	To   model.JobStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: %s -> %s", ErrInvalidTransition.Error(), e.From, e.To)
}

// Unwrap lets errors.Is match ErrInvalidTransition.
func (e *TransitionError) Unwrap() error {
	return ErrInvalidTransition
}

// transitions lists every allowed edge. Terminal states have no outgoing edges.
var transitions = map[model.JobStatus][]model.JobStatus{
	model.JobStatusRunning: {model.JobStatusCompleted, model.JobStatusFailed},
}

// CanTransition reports whether a job may move from one status to another.
func CanTransition(from, to model.JobStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns a *TransitionError when the change is not allowed.
func ValidateTransition(from, to model.JobStatus) error {
	if CanTransition(from, to) {
		return nil
	}
	return &TransitionError{From: from, To: to}
}
