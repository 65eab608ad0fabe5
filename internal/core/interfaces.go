package core

import (
	"context"
	"time"

	"github.com/webcloud7/wcs.pdfserver/internal/domain/model"
)

// This file contains the port definitions (hexagonal architecture) between the
// service layer and its adapters. Services depend on these interfaces, not on
// concrete implementations.

// JobStore defines the operations on the shared job table.
type JobStore interface {
	Create(name string) *model.Job
	Get(id string) (*model.Job, error)
	Complete(id string, artifact []byte) (*model.Job, error)
	Fail(id, message string) (*model.Job, error)
	EvictOlderThan(ttl time.Duration, now time.Time) (int, error)
	Stats() model.JobStats
}

// ExpiryRepository is the subset of JobStore used by the expiry sweeper.
type ExpiryRepository interface {
	EvictOlderThan(ttl time.Duration, now time.Time) (int, error)
	Stats() model.JobStats
}

// Renderer turns a document reference into PDF bytes. Implementations wrap
// model.ErrFetchFailed when a remote resource could not be retrieved.
type Renderer interface {
	Render(ctx context.Context, req model.RenderRequest) ([]byte, error)
}

// Clock supplies the current time. data.TimeProvider implementations satisfy it.
type Clock interface {
	Now() time.Time
}
