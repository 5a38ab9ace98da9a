package core

// sweeper.go recovers jobs left in processing by a process that died.
//
// A job stays in processing only while a runner owns it. After a crash or
// restart nothing will ever finish those jobs, so the sweeper periodically
// looks for processing jobs that have not been touched for StaleAfter, rolls
// back their partial inserts and fails them. Jobs owned by a runner in this
// process are skipped.

import (
	"context"
	"log/slog"
	"time"
)

const staleReason = "execution interrupted: no active runner"

// SweepConfig holds settings for the stale job sweeper.
type SweepConfig struct {
	StaleAfter time.Duration // Processing jobs idle this long are stale (default: 30m)
	Interval   time.Duration // How often to sweep (default: 5m)
}

func (c SweepConfig) withDefaults() SweepConfig {
	if c.StaleAfter <= 0 {
		c.StaleAfter = 30 * time.Minute
	}
	if c.Interval <= 0 {
		c.Interval = 5 * time.Minute
	}
	return c
}

// StartSweeper runs a sweep immediately and then every Interval until ctx
// is cancelled. It blocks; run it in its own goroutine.
func (s *Service) StartSweeper(ctx context.Context, cfg SweepConfig) {
	cfg = cfg.withDefaults()
	slog.Info("stale import sweeper started",
		"stale_after", cfg.StaleAfter,
		"interval", cfg.Interval,
	)

	s.sweepAndLog(ctx, cfg.StaleAfter)

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("stale import sweeper stopped")
			return
		case <-ticker.C:
			s.sweepAndLog(ctx, cfg.StaleAfter)
		}
	}
}

func (s *Service) sweepAndLog(ctx context.Context, staleAfter time.Duration) {
	start := time.Now()
	failed, err := s.SweepStale(ctx, staleAfter)
	if err != nil {
		slog.Error("sweep stale imports", "error", err)
		return
	}
	if failed > 0 {
		slog.Info("failed stale imports",
			"jobs", failed,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// SweepStale fails processing jobs idle for longer than staleAfter that no
// runner in this process owns. It returns how many jobs it failed.
func (s *Service) SweepStale(ctx context.Context, staleAfter time.Duration) (int, error) {
	jobs, err := s.backend.ListStale(ctx, s.now().Add(-staleAfter))
	if err != nil {
		return 0, classify("list stale imports", err)
	}

	failed := 0
	for i := range jobs {
		job := &jobs[i]
		if s.Running(job.ID) {
			continue
		}
		if _, err := s.backend.DeleteEntities(ctx, job); err != nil {
			slog.Error("rollback stale import", "job_id", job.ID, "error", err)
			continue
		}
		if _, err := s.backend.AbortJob(ctx, job.ID, StatusFailed, staleReason); err != nil {
			slog.Warn("fail stale import", "job_id", job.ID, "error", err)
			continue
		}
		failed++
	}
	return failed, nil
}
