package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/sellybase/importer/internal/core"
)

// entityTable resolves the destination table and template columns of a job.
func entityTable(job *core.ImportJob) (core.EntityTemplate, error) {
	tmpl, ok := core.Lookup(job.EntityType)
	if !ok {
		return core.EntityTemplate{}, fmt.Errorf("unknown entity type %q", job.EntityType)
	}
	return tmpl, nil
}

// InsertEntities copies one batch into the entity table and records progress
// in the same transaction. The job row is locked so a concurrent cancel or
// sweep cannot interleave with the batch.
func (s *Store) InsertEntities(ctx context.Context, job *core.ImportJob, entities []core.Entity, processed int) error {
	tmpl, jobID, err := s.entityTarget(job)
	if err != nil {
		return err
	}

	columns := make([]string, 0, len(tmpl.Columns)+2)
	columns = append(columns, "organization_id", "import_job_id")
	for _, col := range tmpl.Columns {
		columns = append(columns, col.DBColumn)
	}

	rows := make([][]any, len(entities))
	for i, entity := range entities {
		row := make([]any, 0, len(columns))
		row = append(row, job.OrganizationID, jobID)
		for _, col := range tmpl.Columns {
			if v, ok := entity[col.Field]; ok && v != "" {
				row = append(row, v)
			} else {
				row = append(row, nil)
			}
		}
		rows[i] = row
	}

	return s.withTx(ctx, func(tx pgx.Tx) error {
		var status string
		err := tx.QueryRow(ctx, `SELECT status FROM import_jobs WHERE id = $1 FOR UPDATE`, jobID).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return notFound(job.ID)
		}
		if err != nil {
			return fmt.Errorf("lock import job: %w", err)
		}
		if core.JobStatus(status) != core.StatusProcessing {
			return fmt.Errorf("%w: job is %s, expected %s", core.ErrStatusConflict, status, core.StatusProcessing)
		}

		if len(rows) > 0 {
			n, err := tx.CopyFrom(ctx, pgx.Identifier{tmpl.Table}, columns, pgx.CopyFromRows(rows))
			if err != nil {
				return fmt.Errorf("copy %s: %w", tmpl.Table, err)
			}
			if int(n) != len(rows) {
				return fmt.Errorf("copy %s: wrote %d of %d rows", tmpl.Table, n, len(rows))
			}
		}

		if _, err := tx.Exec(ctx,
			`UPDATE import_jobs SET processed_records = $2, updated_at = now() WHERE id = $1`,
			jobID, processed,
		); err != nil {
			return fmt.Errorf("update progress: %w", err)
		}
		return nil
	})
}

// DeleteEntities removes every row the job inserted.
func (s *Store) DeleteEntities(ctx context.Context, job *core.ImportJob) (int64, error) {
	tmpl, jobID, err := s.entityTarget(job)
	if err != nil {
		return 0, err
	}

	tag, err := s.pool.Exec(ctx,
		`DELETE FROM `+pgx.Identifier{tmpl.Table}.Sanitize()+` WHERE import_job_id = $1`,
		jobID,
	)
	if err != nil {
		return 0, fmt.Errorf("delete %s rows: %w", tmpl.Table, err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) CountEntities(ctx context.Context, job *core.ImportJob) (int64, error) {
	tmpl, jobID, err := s.entityTarget(job)
	if err != nil {
		return 0, err
	}

	var n int64
	err = s.pool.QueryRow(ctx,
		`SELECT count(*) FROM `+pgx.Identifier{tmpl.Table}.Sanitize()+` WHERE import_job_id = $1`,
		jobID,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count %s rows: %w", tmpl.Table, err)
	}
	return n, nil
}

func (s *Store) entityTarget(job *core.ImportJob) (core.EntityTemplate, pgtype.UUID, error) {
	tmpl, err := entityTable(job)
	if err != nil {
		return tmpl, pgtype.UUID{}, err
	}
	jobID, err := parseID(job.ID)
	return tmpl, jobID, err
}
