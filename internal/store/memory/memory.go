// Package memory is the in-process DataBackend used when the service runs
// without a database (SKIP_DATABASE=true) and in tests.
//
// All state sits behind one mutex, so every status change is trivially a
// compare-and-set. Returned jobs are clones; callers never share memory
// with the store.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sellybase/importer/internal/core"
)

// StoredEntity is one imported record.
type StoredEntity struct {
	ID             string
	OrganizationID string
	ImportJobID    string
	Fields         core.Entity
	CreatedAt      time.Time
}

// Backend implements core.DataBackend in memory.
type Backend struct {
	mu       sync.Mutex
	jobs     map[string]*core.ImportJob
	sources  map[string][]byte
	entities map[core.EntityType][]StoredEntity
	now      func() time.Time
}

var _ core.DataBackend = (*Backend)(nil)

// New returns an empty backend.
func New() *Backend {
	return &Backend{
		jobs:     make(map[string]*core.ImportJob),
		sources:  make(map[string][]byte),
		entities: make(map[core.EntityType][]StoredEntity),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (b *Backend) Name() string {
	return "memory"
}

func (b *Backend) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (b *Backend) Close() {}

func (b *Backend) CreateJob(ctx context.Context, job *core.ImportJob, source []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, exists := b.jobs[job.ID]; exists {
		return fmt.Errorf("duplicate key: import job %s", job.ID)
	}
	b.jobs[job.ID] = job.Clone()
	if source != nil {
		b.sources[job.ID] = append([]byte(nil), source...)
	}
	return nil
}

func (b *Backend) GetJob(ctx context.Context, id, orgID string) (*core.ImportJob, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	job, ok := b.jobs[id]
	if !ok || (orgID != "" && job.OrganizationID != orgID) {
		return nil, fmt.Errorf("%w: %s", core.ErrJobNotFound, id)
	}
	return job.Clone(), nil
}

func (b *Backend) ListJobs(ctx context.Context, filter core.JobFilter) ([]core.ImportJob, int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	matched := make([]*core.ImportJob, 0, len(b.jobs))
	for _, job := range b.jobs {
		if filter.Status != "" && job.Status != filter.Status {
			continue
		}
		if filter.OrganizationID != "" && job.OrganizationID != filter.OrganizationID {
			continue
		}
		matched = append(matched, job)
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].CreatedAt.After(matched[j].CreatedAt)
		}
		return matched[i].ID > matched[j].ID
	})

	total := len(matched)
	start := (filter.Page - 1) * filter.Limit
	if start > total {
		start = total
	}
	end := start + filter.Limit
	if end > total {
		end = total
	}

	page := make([]core.ImportJob, 0, end-start)
	for _, job := range matched[start:end] {
		page = append(page, *job.Clone())
	}
	return page, total, nil
}

func (b *Backend) LoadSource(ctx context.Context, id string) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.jobs[id]; !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrJobNotFound, id)
	}
	data, ok := b.sources[id]
	if !ok {
		return nil, core.ErrSourceNotFound
	}
	return append([]byte(nil), data...), nil
}

// update applies fn to a job whose status equals from. It must be called
// with b.mu held.
func (b *Backend) update(id string, from core.JobStatus, fn func(job *core.ImportJob)) (*core.ImportJob, error) {
	job, ok := b.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrJobNotFound, id)
	}
	if job.Status != from {
		return nil, fmt.Errorf("%w: job is %s, expected %s", core.ErrStatusConflict, job.Status, from)
	}
	fn(job)
	job.UpdatedAt = b.now()
	return job.Clone(), nil
}

func (b *Backend) TransitionStatus(ctx context.Context, id string, from, to core.JobStatus) (*core.ImportJob, error) {
	if !core.CanTransition(from, to) {
		return nil, fmt.Errorf("%w: %s to %s", core.ErrStatusConflict, from, to)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	return b.update(id, from, func(job *core.ImportJob) {
		job.Status = to
	})
}

func (b *Backend) SaveValidation(ctx context.Context, id string, outcome core.ValidationOutcome) (*core.ImportJob, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.update(id, core.StatusValidating, func(job *core.ImportJob) {
		job.Status = core.StatusValidated
		job.TotalRecords = outcome.TotalRecords
		job.ValidRecords = outcome.ValidRecords
		job.ErrorRecords = outcome.ErrorRecords
		job.Errors = append([]core.ValidationError{}, outcome.Errors...)
		job.Warnings = append([]core.ValidationError{}, outcome.Warnings...)
		if job.Metadata == nil {
			job.Metadata = make(map[string]any)
		}
		for k, v := range outcome.Metadata {
			job.Metadata[k] = v
		}
	})
}

func (b *Backend) InsertEntities(ctx context.Context, job *core.ImportJob, entities []core.Entity, processed int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	_, err := b.update(job.ID, core.StatusProcessing, func(stored *core.ImportJob) {
		now := b.now()
		for _, e := range entities {
			fields := make(core.Entity, len(e))
			for k, v := range e {
				fields[k] = v
			}
			b.entities[job.EntityType] = append(b.entities[job.EntityType], StoredEntity{
				ID:             uuid.NewString(),
				OrganizationID: stored.OrganizationID,
				ImportJobID:    job.ID,
				Fields:         fields,
				CreatedAt:      now,
			})
		}
		stored.ProcessedRecords = processed
	})
	return err
}

func (b *Backend) DeleteEntities(ctx context.Context, job *core.ImportJob) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	all := b.entities[job.EntityType]
	kept := all[:0]
	var removed int64
	for _, e := range all {
		if e.ImportJobID == job.ID {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	b.entities[job.EntityType] = kept
	return removed, nil
}

func (b *Backend) CountEntities(ctx context.Context, job *core.ImportJob) (int64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var n int64
	for _, e := range b.entities[job.EntityType] {
		if e.ImportJobID == job.ID {
			n++
		}
	}
	return n, nil
}

func (b *Backend) CompleteJob(ctx context.Context, id string, processed int) (*core.ImportJob, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.update(id, core.StatusProcessing, func(job *core.ImportJob) {
		now := b.now()
		job.Status = core.StatusCompleted
		job.ProcessedRecords = processed
		job.CompletedAt = &now
	})
}

func (b *Backend) AbortJob(ctx context.Context, id string, to core.JobStatus, reason string) (*core.ImportJob, error) {
	if to != core.StatusFailed && to != core.StatusCancelled {
		return nil, fmt.Errorf("abort to %s: %w", to, core.ErrStatusConflict)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	job, ok := b.jobs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrJobNotFound, id)
	}
	if job.Status.Terminal() {
		return nil, fmt.Errorf("%w: job is already %s", core.ErrStatusConflict, job.Status)
	}
	return b.update(id, job.Status, func(job *core.ImportJob) {
		job.Status = to
		if reason != "" {
			if job.Metadata == nil {
				job.Metadata = make(map[string]any)
			}
			job.Metadata["failureReason"] = reason
		}
	})
}

func (b *Backend) ListStale(ctx context.Context, cutoff time.Time) ([]core.ImportJob, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	var stale []core.ImportJob
	for _, job := range b.jobs {
		if job.Status == core.StatusProcessing && job.UpdatedAt.Before(cutoff) {
			stale = append(stale, *job.Clone())
		}
	}
	return stale, nil
}

// Entities returns a copy of the records imported for an entity type.
func (b *Backend) Entities(entityType core.EntityType) []StoredEntity {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]StoredEntity(nil), b.entities[entityType]...)
}
