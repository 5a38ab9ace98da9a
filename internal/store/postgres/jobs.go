package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/sellybase/importer/internal/core"
)

const jobColumns = `id, filename, entity_type, status, total_records, processed_records,
	valid_records, error_records, uploaded_by, organization_id, errors, warnings,
	metadata, created_at, updated_at, completed_at`

func scanJob(row pgx.Row) (*core.ImportJob, error) {
	var (
		id                 pgtype.UUID
		entityType, status string
		errs, warns, meta  []byte
		completedAt        pgtype.Timestamptz
		job                core.ImportJob
	)
	err := row.Scan(
		&id, &job.Filename, &entityType, &status,
		&job.TotalRecords, &job.ProcessedRecords, &job.ValidRecords, &job.ErrorRecords,
		&job.UploadedBy, &job.OrganizationID,
		&errs, &warns, &meta,
		&job.CreatedAt, &job.UpdatedAt, &completedAt,
	)
	if err != nil {
		return nil, err
	}

	job.ID = uuidString(id)
	job.EntityType = core.EntityType(entityType)
	job.Status = core.JobStatus(status)
	job.CreatedAt = job.CreatedAt.UTC()
	job.UpdatedAt = job.UpdatedAt.UTC()
	if completedAt.Valid {
		t := completedAt.Time.UTC()
		job.CompletedAt = &t
	}

	if err := json.Unmarshal(errs, &job.Errors); err != nil {
		return nil, fmt.Errorf("unmarshal errors: %w", err)
	}
	if err := json.Unmarshal(warns, &job.Warnings); err != nil {
		return nil, fmt.Errorf("unmarshal warnings: %w", err)
	}
	if err := json.Unmarshal(meta, &job.Metadata); err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}
	if job.Errors == nil {
		job.Errors = []core.ValidationError{}
	}
	if job.Warnings == nil {
		job.Warnings = []core.ValidationError{}
	}
	if job.Metadata == nil {
		job.Metadata = map[string]any{}
	}
	return &job, nil
}

func uuidString(id pgtype.UUID) string {
	if !id.Valid {
		return ""
	}
	return uuid.UUID(id.Bytes).String()
}

func marshalFindings(findings []core.ValidationError) ([]byte, error) {
	if findings == nil {
		findings = []core.ValidationError{}
	}
	return json.Marshal(findings)
}

func (s *Store) CreateJob(ctx context.Context, job *core.ImportJob, source []byte) error {
	id, err := parseID(job.ID)
	if err != nil {
		return fmt.Errorf("create job: invalid id %q", job.ID)
	}
	errs, err := marshalFindings(job.Errors)
	if err != nil {
		return fmt.Errorf("marshal errors: %w", err)
	}
	warns, err := marshalFindings(job.Warnings)
	if err != nil {
		return fmt.Errorf("marshal warnings: %w", err)
	}
	meta, err := json.Marshal(job.Metadata)
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	return s.withTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO import_jobs (
				id, filename, entity_type, status, uploaded_by, organization_id,
				errors, warnings, metadata, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
			id, job.Filename, string(job.EntityType), string(job.Status),
			job.UploadedBy, job.OrganizationID, errs, warns, meta,
			job.CreatedAt, job.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert import job: %w", err)
		}

		if source == nil {
			return nil
		}
		if _, err := tx.Exec(ctx, `INSERT INTO import_job_sources (job_id, data) VALUES ($1, $2)`, id, source); err != nil {
			return fmt.Errorf("insert import source: %w", err)
		}
		return nil
	})
}

func (s *Store) GetJob(ctx context.Context, id, orgID string) (*core.ImportJob, error) {
	pgID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	job, err := scanJob(s.pool.QueryRow(ctx,
		`SELECT `+jobColumns+` FROM import_jobs
		 WHERE id = $1 AND ($2::text = '' OR organization_id = $2)`,
		pgID, orgID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, notFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("get import job: %w", err)
	}
	return job, nil
}

func (s *Store) ListJobs(ctx context.Context, filter core.JobFilter) ([]core.ImportJob, int, error) {
	const where = `WHERE ($1::text = '' OR status = $1) AND ($2::text = '' OR organization_id = $2)`
	status, org := string(filter.Status), filter.OrganizationID

	var total int
	if err := s.pool.QueryRow(ctx, `SELECT count(*) FROM import_jobs `+where, status, org).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count import jobs: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM import_jobs `+where+`
		 ORDER BY created_at DESC, id DESC
		 LIMIT $3 OFFSET $4`,
		status, org, filter.Limit, (filter.Page-1)*filter.Limit,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list import jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]core.ImportJob, 0, filter.Limit)
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan import job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate import jobs: %w", err)
	}
	return jobs, total, nil
}

func (s *Store) LoadSource(ctx context.Context, id string) ([]byte, error) {
	pgID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var data []byte
	err = s.pool.QueryRow(ctx, `SELECT data FROM import_job_sources WHERE job_id = $1`, pgID).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		var exists bool
		if err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM import_jobs WHERE id = $1)`, pgID).Scan(&exists); err != nil {
			return nil, fmt.Errorf("check import job: %w", err)
		}
		if !exists {
			return nil, notFound(id)
		}
		return nil, core.ErrSourceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load import source: %w", err)
	}
	return data, nil
}

func (s *Store) TransitionStatus(ctx context.Context, id string, from, to core.JobStatus) (*core.ImportJob, error) {
	if !core.CanTransition(from, to) {
		return nil, fmt.Errorf("%w: cannot move from %s to %s", core.ErrStatusConflict, from, to)
	}
	pgID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	job, err := scanJob(s.pool.QueryRow(ctx,
		`UPDATE import_jobs SET status = $3, updated_at = now()
		 WHERE id = $1 AND status = $2
		 RETURNING `+jobColumns,
		pgID, string(from), string(to),
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, conflictOrMissing(ctx, s.pool, pgID, id, string(from))
	}
	if err != nil {
		return nil, fmt.Errorf("transition import job: %w", err)
	}
	return job, nil
}

func (s *Store) SaveValidation(ctx context.Context, id string, outcome core.ValidationOutcome) (*core.ImportJob, error) {
	pgID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	errs, err := marshalFindings(outcome.Errors)
	if err != nil {
		return nil, fmt.Errorf("marshal errors: %w", err)
	}
	warns, err := marshalFindings(outcome.Warnings)
	if err != nil {
		return nil, fmt.Errorf("marshal warnings: %w", err)
	}
	meta := outcome.Metadata
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("marshal metadata: %w", err)
	}

	job, err := scanJob(s.pool.QueryRow(ctx,
		`UPDATE import_jobs SET
			status = 'validated',
			total_records = $2,
			valid_records = $3,
			error_records = $4,
			errors = $5,
			warnings = $6,
			metadata = metadata || $7::jsonb,
			updated_at = now()
		 WHERE id = $1 AND status = 'validating'
		 RETURNING `+jobColumns,
		pgID, outcome.TotalRecords, outcome.ValidRecords, outcome.ErrorRecords,
		errs, warns, metaJSON,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, conflictOrMissing(ctx, s.pool, pgID, id, string(core.StatusValidating))
	}
	if err != nil {
		return nil, fmt.Errorf("save validation: %w", err)
	}
	return job, nil
}

func (s *Store) CompleteJob(ctx context.Context, id string, processed int) (*core.ImportJob, error) {
	pgID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	job, err := scanJob(s.pool.QueryRow(ctx,
		`UPDATE import_jobs SET
			status = 'completed',
			processed_records = $2,
			completed_at = now(),
			updated_at = now()
		 WHERE id = $1 AND status = 'processing'
		 RETURNING `+jobColumns,
		pgID, processed,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, conflictOrMissing(ctx, s.pool, pgID, id, string(core.StatusProcessing))
	}
	if err != nil {
		return nil, fmt.Errorf("complete import job: %w", err)
	}
	return job, nil
}

func (s *Store) AbortJob(ctx context.Context, id string, to core.JobStatus, reason string) (*core.ImportJob, error) {
	if to != core.StatusFailed && to != core.StatusCancelled {
		return nil, fmt.Errorf("%w: cannot abort to %s", core.ErrStatusConflict, to)
	}
	pgID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	job, err := scanJob(s.pool.QueryRow(ctx,
		`UPDATE import_jobs SET
			status = $2,
			metadata = CASE WHEN $3::text = '' THEN metadata
			                ELSE metadata || jsonb_build_object('failureReason', $3::text) END,
			updated_at = now()
		 WHERE id = $1 AND status NOT IN ('completed', 'failed', 'cancelled')
		 RETURNING `+jobColumns,
		pgID, string(to), reason,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, conflictOrMissing(ctx, s.pool, pgID, id, "a non-terminal status")
	}
	if err != nil {
		return nil, fmt.Errorf("abort import job: %w", err)
	}
	return job, nil
}

func (s *Store) ListStale(ctx context.Context, cutoff time.Time) ([]core.ImportJob, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM import_jobs
		 WHERE status = 'processing' AND updated_at < $1
		 ORDER BY updated_at`,
		cutoff,
	)
	if err != nil {
		return nil, fmt.Errorf("list stale import jobs: %w", err)
	}
	defer rows.Close()

	var jobs []core.ImportJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan import job: %w", err)
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}
