package core

// runner.go executes one import job in the background.
//
// The runner owns the job from processing to its terminal status. It
// re-parses the stored file, skips rows with blocking findings, maps the
// rest with MapRowToEntity and inserts them in batches. On success the job
// is completed with a compare-and-set on status=processing. On cancel,
// timeout, shutdown or error every entity the job inserted is deleted and
// the job is moved to cancelled or failed.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/sellybase/importer/internal/logging"
)

// finalizeTimeout bounds the rollback and status write after a run ends.
const finalizeTimeout = 30 * time.Second

func (s *Service) run(ctx context.Context, job *ImportJob, exec *execution) {
	defer close(exec.done)
	defer s.limiter.Release()
	defer s.forget(job.ID)

	log := logging.WithJob(ctx, job.ID, "entity_type", job.EntityType)
	start := time.Now()

	runCtx, cancel := context.WithTimeout(ctx, s.opts.ExecTimeout)
	defer cancel()

	err := func() (err error) {
		defer func() {
			if r := recover(); r != nil {
				log.Error("panic in import runner", "panic", r)
				err = fmt.Errorf("internal error: %v", r)
			}
		}()
		return s.execute(runCtx, job, log)
	}()

	if err == nil {
		exec.cancel(nil)
		log.Info("import completed", "duration_ms", time.Since(start).Milliseconds())
		return
	}

	// Interrupted runs report why the context ended, not the error it produced.
	status, reason := StatusFailed, err.Error()
	switch cause := context.Cause(runCtx); {
	case errors.Is(cause, errCancelledByUser):
		status, reason = StatusCancelled, cause.Error()
	case errors.Is(cause, errShuttingDown):
		reason = cause.Error()
	case errors.Is(runCtx.Err(), context.DeadlineExceeded):
		reason = fmt.Sprintf("import timed out after %s", s.opts.ExecTimeout)
	}
	exec.cancel(nil)

	s.finalize(job, status, reason, log)
}

// finalize rolls back a run's inserts and records the terminal status.
func (s *Service) finalize(job *ImportJob, status JobStatus, reason string, log *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), finalizeTimeout)
	defer cancel()

	removed, err := s.backend.DeleteEntities(ctx, job)
	if err != nil {
		log.Error("rollback import entities", "error", err)
	}
	if left, err := s.backend.CountEntities(ctx, job); err != nil {
		log.Error("count entities after rollback", "error", err)
	} else if left > 0 {
		log.Error("rollback incomplete", "entities_remaining", left)
		reason = fmt.Sprintf("%s; %d imported records could not be rolled back", reason, left)
	}

	if _, err := s.backend.AbortJob(ctx, job.ID, status, reason); err != nil {
		log.Error("record import outcome", "status", status, "error", err)
		return
	}

	log.Warn("import stopped",
		"status", status,
		"reason", reason,
		"entities_rolled_back", removed,
	)
}

// execute does the work of one run. A nil return means the job is completed.
func (s *Service) execute(ctx context.Context, job *ImportJob, log *slog.Logger) error {
	parsed, err := s.loadParsed(ctx, job)
	if err != nil {
		return err
	}

	batch := make([]Entity, 0, s.opts.BatchSize)
	processed := 0
	skipped := 0

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.backend.InsertEntities(ctx, job, batch, processed); err != nil {
			return fmt.Errorf("insert batch: %w", err)
		}
		log.Debug("import batch inserted", "rows", len(batch), "processed", processed)
		batch = batch[:0]
		return nil
	}

	for i, row := range parsed.Rows {
		if err := ctx.Err(); err != nil {
			return err
		}
		if HasErrors(ValidateRow(row, i+1, job.EntityType)) {
			skipped++
			continue
		}
		batch = append(batch, MapRowToEntity(row, job.EntityType))
		processed++
		if len(batch) >= s.opts.BatchSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := flush(); err != nil {
		return err
	}

	if _, err := s.backend.CompleteJob(ctx, job.ID, processed); err != nil {
		return fmt.Errorf("complete job: %w", err)
	}

	log.Info("import rows written", "processed", processed, "skipped", skipped)
	return nil
}
