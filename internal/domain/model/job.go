// Package model defines the core data types shared by the conversion service.
package model

import (
	"fmt"
	"strings"
	"time"
)

// JobStatus represents the current status of a conversion job.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type JobStatus string

const (
	// JobStatusRunning indicates a job has been accepted and its artifact is being produced.
	JobStatusRunning JobStatus = "running"
	// JobStatusCompleted indicates a job finished successfully and holds an artifact.
	JobStatusCompleted JobStatus = "completed"
	// JobStatusFailed indicates a job finished without an artifact.
	JobStatusFailed JobStatus = "failed"
)

// Valid returns true if the JobStatus is valid.
func (s JobStatus) Valid() bool {
	return s == JobStatusRunning || s == JobStatusCompleted || s == JobStatusFailed
}

// IsTerminal reports whether no further transition is allowed out of the status.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// UnmarshalText implements encoding.TextUnmarshaler for JobStatus.
func (s *JobStatus) UnmarshalText(text []byte) error {
	v := JobStatus(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid JobStatus: %q", v)
	}
	*s = v
	return nil
}

// Job is a single conversion job tracked by the job store.
//
// Artifact is non-nil if and only if Status is JobStatusCompleted.
// Message is only set when Status is JobStatusFailed.
type Job struct {
	ID        string
	Name      string
	Status    JobStatus
	CreatedAt time.Time
	UpdatedAt time.Time
	Message   string
	Artifact  *Artifact
}

// Clone returns a snapshot of the job. The artifact is shared because it is immutable.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	cp := *j
	return &cp
}

// Age returns how long ago the job was last updated relative to now.
func (j *Job) Age(now time.Time) time.Duration {
	if j == nil {
		return 0
	}
	return now.Sub(j.UpdatedAt)
}

// JobStats represents counts of jobs per status.
type JobStats struct {
	Running   int `json:"running"`
	Completed int `json:"completed"`
	Failed    int `json:"failed"`
	Total     int `json:"total"`
}
