package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sellybase/importer/internal/logging"
)

// Default execution settings, used when Options leaves a field zero.
const (
	DefaultBatchSize   = 500
	DefaultExecTimeout = 10 * time.Minute
	DefaultMaxFileSize = 100 << 20
)

var (
	errCancelledByUser = errors.New("cancelled by user")
	errShuttingDown    = errors.New("interrupted by server shutdown")
)

// Options tunes the orchestrator.
type Options struct {
	MaxFileSize   int64         // Upload size limit in bytes
	BatchSize     int           // Entities inserted per backend call
	ExecTimeout   time.Duration // Upper bound for one execution
	MaxConcurrent int           // Concurrent executions
	MaxWait       time.Duration // How long Execute waits for a free slot
}

func (o Options) withDefaults() Options {
	if o.MaxFileSize <= 0 {
		o.MaxFileSize = DefaultMaxFileSize
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.ExecTimeout <= 0 {
		o.ExecTimeout = DefaultExecTimeout
	}
	return o
}

// Service drives import jobs through their lifecycle:
//
//	queued → validating → validated → processing → completed
//
// with failed and cancelled as terminal exits. All state lives in the
// DataBackend; the service only tracks the executions it is running.
type Service struct {
	backend DataBackend
	limiter *ExecutionLimiter
	opts    Options
	now     func() time.Time

	baseCtx    context.Context
	baseCancel context.CancelCauseFunc

	mu   sync.Mutex
	runs map[string]*execution
}

// execution is the handle of one running import.
type execution struct {
	cancel context.CancelCauseFunc
	done   chan struct{}
}

// NewService creates a Service over the given backend.
func NewService(backend DataBackend, opts Options) *Service {
	opts = opts.withDefaults()
	ctx, cancel := context.WithCancelCause(context.Background())
	return &Service{
		backend:    backend,
		limiter:    NewExecutionLimiter(opts.MaxConcurrent, opts.MaxWait),
		opts:       opts,
		now:        func() time.Time { return time.Now().UTC() },
		baseCtx:    ctx,
		baseCancel: cancel,
		runs:       make(map[string]*execution),
	}
}

// Backend returns the backend the service was built with.
func (s *Service) Backend() DataBackend {
	return s.backend
}

// LimiterStatus reports execution slot usage.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// CreateImportJob records a queued job and stores its source file.
func (s *Service) CreateImportJob(ctx context.Context, in CreateJobInput) (*ImportJob, error) {
	const op = "create import job"

	filename := strings.TrimSpace(in.Filename)
	if filename == "" {
		return nil, invalidInput(op, errors.New("filename is required"))
	}
	if !SupportedExtension(filename) {
		return nil, invalidInput(op, unsupportedFormat(strings.ToLower(filepath.Ext(filename))))
	}

	entityType := in.EntityType
	if entityType == "" {
		entityType = EntityCompanies
	}
	if _, ok := Lookup(entityType); !ok {
		return nil, invalidInput(op, fmt.Errorf("unknown entity type %q", entityType))
	}

	if int64(len(in.Data)) > s.opts.MaxFileSize {
		return nil, invalidInput(op, fmt.Errorf("file too large: %d bytes exceeds limit of %d", len(in.Data), s.opts.MaxFileSize))
	}

	uploadedBy := strings.TrimSpace(in.UploadedBy)
	if uploadedBy == "" {
		uploadedBy = ActorFromContext(ctx)
	}

	now := s.now()
	job := &ImportJob{
		ID:             uuid.NewString(),
		Filename:       filename,
		EntityType:     entityType,
		Status:         StatusQueued,
		UploadedBy:     uploadedBy,
		OrganizationID: strings.TrimSpace(in.OrganizationID),
		Errors:         []ValidationError{},
		Warnings:       []ValidationError{},
		Metadata: map[string]any{
			"fileSize":  len(in.Data),
			"hasSource": in.Data != nil,
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.backend.CreateJob(ctx, job, in.Data); err != nil {
		return nil, classify(op, err)
	}

	logging.WithJob(ctx, job.ID,
		"entity_type", job.EntityType,
		"organization_id", job.OrganizationID,
	).Info("import job created", "filename", job.Filename, "bytes", len(in.Data))

	return job, nil
}

// ListImportJobs returns one page of jobs, newest first.
func (s *Service) ListImportJobs(ctx context.Context, filter JobFilter) (*JobPage, error) {
	filter = NormalizeFilter(filter)

	jobs, total, err := s.backend.ListJobs(ctx, filter)
	if err != nil {
		return nil, classify("list import jobs", err)
	}
	if jobs == nil {
		jobs = []ImportJob{}
	}

	return &JobPage{
		Data:       jobs,
		Pagination: NewPagination(filter, total),
	}, nil
}

// GetImportJob returns one job. A non-empty orgID scopes the lookup.
func (s *Service) GetImportJob(ctx context.Context, id, orgID string) (*ImportJob, error) {
	const op = "get import job"

	if _, err := uuid.Parse(id); err != nil {
		return nil, newError(KindNotFound, op, fmt.Errorf("%w: %s", ErrJobNotFound, id))
	}

	job, err := s.backend.GetJob(ctx, id, orgID)
	if err != nil {
		return nil, classify(op, err)
	}
	return job, nil
}

// ValidateImportData validates a queued job's file and stores the findings.
// A job that is already validated returns its stored summary.
func (s *Service) ValidateImportData(ctx context.Context, id, orgID string) (*ValidationSummary, error) {
	const op = "validate import"

	job, err := s.GetImportJob(ctx, id, orgID)
	if err != nil {
		return nil, err
	}

	switch job.Status {
	case StatusValidated:
		return summaryOf(job), nil
	case StatusQueued:
	default:
		return nil, newError(KindConflict, op, fmt.Errorf("%w: job is %s", ErrStatusConflict, job.Status))
	}

	job, err = s.validate(ctx, job)
	if err != nil {
		return nil, err
	}
	return summaryOf(job), nil
}

// validate runs one validation pass over a queued job.
func (s *Service) validate(ctx context.Context, job *ImportJob) (*ImportJob, error) {
	const op = "validate import"
	log := logging.WithJob(ctx, job.ID, "entity_type", job.EntityType)

	if _, err := s.backend.TransitionStatus(ctx, job.ID, StatusQueued, StatusValidating); err != nil {
		return nil, classify(op, err)
	}

	parsed, err := s.loadParsed(ctx, job)
	if err != nil {
		log.Warn("validation failed", "error", err)
		s.failValidation(ctx, job.ID, err, log)
		return nil, classify(op, err)
	}

	report := ValidateParsed(parsed, job.EntityType)
	validated, err := s.backend.SaveValidation(ctx, job.ID, report.Outcome())
	if err != nil {
		log.Error("save validation results", "error", err)
		s.failValidation(ctx, job.ID, fmt.Errorf("save validation results: %w", err), log)
		return nil, classify(op, err)
	}

	log.Info("import validated",
		"total", report.TotalRecords,
		"valid", report.ValidRecords,
		"errors", report.ErrorCount,
		"warnings", report.WarningCount,
	)
	return validated, nil
}

// failValidation moves a job that is still validating to failed. It runs
// even when the request context is already cancelled.
func (s *Service) failValidation(ctx context.Context, id string, cause error, log *slog.Logger) {
	if _, err := s.backend.AbortJob(context.WithoutCancel(ctx), id, StatusFailed, cause.Error()); err != nil {
		log.Error("mark job failed", "error", err)
	}
}

// loadParsed fetches a job's stored file and parses it.
func (s *Service) loadParsed(ctx context.Context, job *ImportJob) (*ParsedData, error) {
	data, err := s.backend.LoadSource(ctx, job.ID)
	if err != nil {
		if errors.Is(err, ErrSourceNotFound) {
			return nil, invalidInput("load source", err)
		}
		return nil, err
	}
	return ParseFile(data, job.Filename)
}

// ExecuteImportJob starts importing a validated job in the background.
// Queued jobs are validated first. It returns once the job is processing.
func (s *Service) ExecuteImportJob(ctx context.Context, id, orgID string) (*ExecuteResult, error) {
	const op = "execute import"

	job, err := s.GetImportJob(ctx, id, orgID)
	if err != nil {
		return nil, err
	}

	if job.Status == StatusQueued {
		if job, err = s.validate(ctx, job); err != nil {
			return nil, err
		}
	}
	if job.Status != StatusValidated {
		return nil, newError(KindConflict, op, fmt.Errorf("%w: job is %s, expected %s", ErrStatusConflict, job.Status, StatusValidated))
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, classify(op, err)
	}

	runCtx, cancel := context.WithCancelCause(s.baseCtx)
	run := &execution{cancel: cancel, done: make(chan struct{})}

	s.mu.Lock()
	if _, busy := s.runs[job.ID]; busy {
		s.mu.Unlock()
		cancel(nil)
		s.limiter.Release()
		return nil, newError(KindConflict, op, fmt.Errorf("%w: job is already executing", ErrStatusConflict))
	}
	s.runs[job.ID] = run
	s.mu.Unlock()

	processing, err := s.backend.TransitionStatus(ctx, job.ID, StatusValidated, StatusProcessing)
	if err != nil {
		s.forget(job.ID)
		cancel(nil)
		close(run.done)
		s.limiter.Release()
		return nil, classify(op, err)
	}
	job = processing

	go s.run(runCtx, job, run)

	logging.WithJob(ctx, job.ID, "entity_type", job.EntityType).
		Info("import execution started", "valid_records", job.ValidRecords)

	return &ExecuteResult{
		ID:      job.ID,
		Status:  StatusProcessing,
		Message: fmt.Sprintf("Import started for %d valid records", job.ValidRecords),
	}, nil
}

// CancelImportJob stops a running execution or cancels a job that has not
// started executing. Terminal jobs cannot be cancelled.
func (s *Service) CancelImportJob(ctx context.Context, id, orgID string) (*ImportJob, error) {
	const op = "cancel import"

	job, err := s.GetImportJob(ctx, id, orgID)
	if err != nil {
		return nil, err
	}
	if job.Status.Terminal() {
		return nil, newError(KindConflict, op, fmt.Errorf("%w: job is already %s", ErrStatusConflict, job.Status))
	}

	s.mu.Lock()
	run, running := s.runs[job.ID]
	s.mu.Unlock()

	if running {
		run.cancel(errCancelledByUser)
		select {
		case <-run.done:
		case <-ctx.Done():
			return nil, classify(op, ctx.Err())
		}
		if job, err = s.GetImportJob(ctx, id, orgID); err != nil || job.Status.Terminal() {
			return job, err
		}
		// The execution ended before it took the job over.
	}

	cancelled, err := s.backend.AbortJob(ctx, job.ID, StatusCancelled, errCancelledByUser.Error())
	if err != nil {
		return nil, classify(op, err)
	}

	logging.WithJob(ctx, job.ID).Info("import cancelled", "from_status", job.Status)
	return cancelled, nil
}

// Running reports whether this process is executing the job.
func (s *Service) Running(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.runs[id]
	return ok
}

func (s *Service) forget(id string) {
	s.mu.Lock()
	delete(s.runs, id)
	s.mu.Unlock()
}

// Shutdown interrupts running executions and waits for them to record
// their outcome and release their limiter slots, or for ctx to expire.
func (s *Service) Shutdown(ctx context.Context) error {
	s.baseCancel(errShuttingDown)
	return s.limiter.WaitForDrain(ctx)
}

// summaryOf builds the validation summary from a job's stored results.
func summaryOf(job *ImportJob) *ValidationSummary {
	warningCount := len(job.Warnings)
	if n, ok := metaInt(job.Metadata, "warningCount"); ok {
		warningCount = n
	}
	errs := job.Errors
	if errs == nil {
		errs = []ValidationError{}
	}
	warns := job.Warnings
	if warns == nil {
		warns = []ValidationError{}
	}
	return &ValidationSummary{
		JobID:        job.ID,
		Status:       job.Status,
		TotalRecords: job.TotalRecords,
		ValidRecords: job.ValidRecords,
		ErrorRecords: job.ErrorRecords,
		WarningCount: warningCount,
		Errors:       errs,
		Warnings:     warns,
	}
}

// metaInt reads an integer from metadata that may have round-tripped through JSON.
func metaInt(meta map[string]any, key string) (int, bool) {
	switch v := meta[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	}
	return 0, false
}
