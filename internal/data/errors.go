package data

import (
	apperrors "github.com/webcloud7/wcs.pdfserver/internal/errors"
)

// Shared sentinel errors for the job store. They are AppErrors so callers can use
// either errors.Is or the apperrors.Is* helpers.
var (
	// ErrJobNotFound is returned when a job id is unknown, was evicted, or never existed.
	ErrJobNotFound = apperrors.NotFound("job not found")
	// ErrEmptyArtifact is returned when Complete is called without a payload.
	ErrEmptyArtifact = apperrors.ValidationField("artifact", "artifact must not be empty")
	// ErrInvalidTTL is returned when an eviction is requested with a non-positive TTL.
	ErrInvalidTTL = apperrors.ValidationField("ttl", "ttl must be positive")
)
