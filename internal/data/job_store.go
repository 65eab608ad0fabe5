package data

import (
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	domainjob "github.com/webcloud7/wcs.pdfserver/internal/domain/job"
	"github.com/webcloud7/wcs.pdfserver/internal/domain/model"
	apperrors "github.com/webcloud7/wcs.pdfserver/internal/errors"
)

// JobStoreConfig holds configuration options for the in-memory job store.
type JobStoreConfig struct {
	Logger       *slog.Logger
	TimeProvider TimeProvider

	// KeepRunning exempts RUNNING jobs from EvictOlderThan.
	KeepRunning bool

	// NewID overrides id generation. Defaults to 32 hex chars of a random UUIDv4.
	NewID func() string
}

// JobStore is the single source of truth for job state. It is safe for concurrent use;
// every operation holds one lock for its whole duration and never calls out while holding it.
type JobStore struct {
	mu   sync.RWMutex
	jobs map[string]*model.Job

	timeProvider TimeProvider
	logger       *slog.Logger
	keepRunning  bool
	newID        func() string
}

// NewJobStore creates an empty JobStore.
func NewJobStore(cfg JobStoreConfig) *JobStore {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = RealTimeProvider{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	newID := cfg.NewID
	if newID == nil {
		newID = newJobID
	}

	return &JobStore{
		jobs:         make(map[string]*model.Job),
		timeProvider: tp,
		logger:       logger.With("component", "job_store"),
		keepRunning:  cfg.KeepRunning,
		newID:        newID,
	}
}

// newJobID returns 128 random bits as lowercase hex. uuid.New panics if the
// system entropy source fails, which is treated as fatal.
func newJobID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// Create inserts a new RUNNING job and returns a snapshot of it.
func (s *JobStore) Create(name string) *model.Job {
	now := s.timeProvider.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.newID()
	for {
		if _, exists := s.jobs[id]; !exists {
			break
		}
		s.logger.Warn("job id collision, regenerating", "job_id", id)
		id = s.newID()
	}

	job := &model.Job{
		ID:        id,
		Name:      name,
		Status:    model.JobStatusRunning,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.jobs[id] = job

	return job.Clone()
}

// Get returns a snapshot of the job with the given id.
func (s *JobStore) Get(id string) (*model.Job, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("get job %s: %w", id, ErrJobNotFound)
	}
	return job.Clone(), nil
}

// Complete moves a RUNNING job to COMPLETED and attaches a copy of artifact.
func (s *JobStore) Complete(id string, artifact []byte) (*model.Job, error) {
	if len(artifact) == 0 {
		return nil, fmt.Errorf("complete job %s: %w", id, ErrEmptyArtifact)
	}
	payload := model.NewArtifact(artifact)
	now := s.timeProvider.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.lookupForTransitionLocked(id, model.JobStatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("complete job %s: %w", id, err)
	}

	job.Status = model.JobStatusCompleted
	job.Artifact = payload
	job.Message = ""
	job.UpdatedAt = notBefore(now, job.CreatedAt)

	return job.Clone(), nil
}

// Fail moves a RUNNING job to FAILED with the given message.
func (s *JobStore) Fail(id, message string) (*model.Job, error) {
	now := s.timeProvider.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	job, err := s.lookupForTransitionLocked(id, model.JobStatusFailed)
	if err != nil {
		return nil, fmt.Errorf("fail job %s: %w", id, err)
	}

	job.Status = model.JobStatusFailed
	job.Message = message
	job.Artifact = nil
	job.UpdatedAt = notBefore(now, job.CreatedAt)

	return job.Clone(), nil
}

func (s *JobStore) lookupForTransitionLocked(id string, to model.JobStatus) (*model.Job, error) {
	job, ok := s.jobs[id]
	if !ok {
		return nil, ErrJobNotFound
	}
	if err := domainjob.ValidateTransition(job.Status, to); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeConflict, "job is already "+string(job.Status))
	}
	return job, nil
}

// EvictOlderThan removes every job whose last update is more than ttl before now
// and returns how many were removed.
func (s *JobStore) EvictOlderThan(ttl time.Duration, now time.Time) (int, error) {
	if ttl <= 0 {
		return 0, fmt.Errorf("evict jobs: %w", ErrInvalidTTL)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, job := range s.jobs {
		if s.keepRunning && job.Status == model.JobStatusRunning {
			continue
		}
		if job.Age(now) > ttl {
			delete(s.jobs, id)
			evicted++
			s.logger.Debug("evicted expired job", "job_id", id, "status", job.Status)
		}
	}

	return evicted, nil
}

// Stats returns job counts per status.
func (s *JobStore) Stats() model.JobStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := model.JobStats{Total: len(s.jobs)}
	for _, job := range s.jobs {
		switch job.Status {
		case model.JobStatusRunning:
			stats.Running++
		case model.JobStatusCompleted:
			stats.Completed++
		case model.JobStatusFailed:
			stats.Failed++
		}
	}
	return stats
}

func notBefore(t, floor time.Time) time.Time {
	if t.Before(floor) {
		return floor
	}
	return t
}
