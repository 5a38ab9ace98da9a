package core

import (
	"context"
	"time"
)

// DataBackend stores import jobs, their source files and the entities an
// executed import produces. Implementations live in internal/store.
//
// Every method that changes a job's status is a compare-and-set: it only
// applies when the stored status still equals the expected one, and returns
// ErrStatusConflict otherwise. Lookups of unknown jobs return ErrJobNotFound.
type DataBackend interface {
	// Name identifies the backend in logs and health output.
	Name() string
	Ping(ctx context.Context) error
	Close()

	// CreateJob stores a new queued job. source may be nil.
	CreateJob(ctx context.Context, job *ImportJob, source []byte) error

	// GetJob returns a job. A non-empty orgID must match the job's organization.
	GetJob(ctx context.Context, id, orgID string) (*ImportJob, error)

	// ListJobs returns one page of jobs, newest first, and the total match count.
	// filter.Page and filter.Limit are already normalized.
	ListJobs(ctx context.Context, filter JobFilter) ([]ImportJob, int, error)

	// LoadSource returns the uploaded file bytes, or ErrSourceNotFound.
	LoadSource(ctx context.Context, id string) ([]byte, error)

	// TransitionStatus moves a job from one status to another.
	TransitionStatus(ctx context.Context, id string, from, to JobStatus) (*ImportJob, error)

	// SaveValidation writes validation results and moves validating to validated.
	SaveValidation(ctx context.Context, id string, outcome ValidationOutcome) (*ImportJob, error)

	// InsertEntities persists one batch of mapped rows for a processing job
	// and sets its processedRecords, both in one transaction.
	InsertEntities(ctx context.Context, job *ImportJob, entities []Entity, processed int) error

	// DeleteEntities removes everything a job inserted. Used on cancel and failure.
	DeleteEntities(ctx context.Context, job *ImportJob) (int64, error)

	// CountEntities reports how many entities a job inserted.
	CountEntities(ctx context.Context, job *ImportJob) (int64, error)

	// CompleteJob moves processing to completed and stamps completedAt.
	CompleteJob(ctx context.Context, id string, processed int) (*ImportJob, error)

	// AbortJob moves any non-terminal job to failed or cancelled, recording
	// reason in metadata["failureReason"] when non-empty.
	AbortJob(ctx context.Context, id string, to JobStatus, reason string) (*ImportJob, error)

	// ListStale returns processing jobs last updated before cutoff.
	ListStale(ctx context.Context, cutoff time.Time) ([]ImportJob, error)
}

// NormalizeFilter applies pagination defaults and bounds.
func NormalizeFilter(f JobFilter) JobFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	switch {
	case f.Limit == 0:
		f.Limit = DefaultPageLimit
	case f.Limit < 1:
		f.Limit = 1
	case f.Limit > MaxPageLimit:
		f.Limit = MaxPageLimit
	}
	return f
}

// Pagination defaults for ListImportJobs.
const (
	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// NewPagination builds the page envelope for a normalized filter.
func NewPagination(f JobFilter, total int) Pagination {
	totalPages := 0
	if total > 0 {
		totalPages = (total + f.Limit - 1) / f.Limit
	}
	return Pagination{
		Page:       f.Page,
		Limit:      f.Limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    f.Page < totalPages,
		HasPrev:    f.Page > 1,
	}
}
