package core

import (
	"fmt"
	"strings"
	"time"
)

// EntityType identifies one of the importable record kinds.
type EntityType string

const (
	EntityCompanies  EntityType = "companies"
	EntityContacts   EntityType = "contacts"
	EntityActivities EntityType = "activities"
)

// EntityTypes returns every importable entity type in display order.
func EntityTypes() []EntityType {
	return []EntityType{EntityCompanies, EntityContacts, EntityActivities}
}

// ParseEntityType converts user input into an EntityType.
func ParseEntityType(s string) (EntityType, error) {
	et := EntityType(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range EntityTypes() {
		if et == known {
			return et, nil
		}
	}
	return "", invalidInput("parse entity type", fmt.Errorf("unknown entity type %q (expected companies, contacts or activities)", s))
}

// TemplateFormat is the file format of a downloadable template.
type TemplateFormat string

const (
	FormatCSV  TemplateFormat = "csv"
	FormatXLSX TemplateFormat = "xlsx"
)

// ParseTemplateFormat converts user input into a TemplateFormat. Empty input means CSV.
func ParseTemplateFormat(s string) (TemplateFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return FormatCSV, nil
	case "xlsx":
		return FormatXLSX, nil
	default:
		return "", invalidInput("parse template format", fmt.Errorf("unknown template format %q (expected csv or xlsx)", s))
	}
}

// JobStatus is the lifecycle state of an import job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusValidating JobStatus = "validating"
	StatusValidated  JobStatus = "validated"
	StatusProcessing JobStatus = "processing"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusCancelled  JobStatus = "cancelled"
)

// statusRank orders the forward path. Failed and cancelled sit outside it.
var statusRank = map[JobStatus]int{
	StatusQueued:     1,
	StatusValidating: 2,
	StatusValidated:  3,
	StatusProcessing: 4,
	StatusCompleted:  5,
}

// ParseJobStatus converts a query value into a JobStatus.
func ParseJobStatus(s string) (JobStatus, error) {
	st := JobStatus(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := statusRank[st]; ok || st == StatusFailed || st == StatusCancelled {
		return st, nil
	}
	return "", invalidInput("parse status", fmt.Errorf("unknown job status %q", s))
}

// Terminal reports whether no further transitions are possible.
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusCancelled
}

// CanTransition reports whether a job may move from one status to another.
// Forward moves along the main path must be exactly one step; failed and
// cancelled can be entered from any non-terminal status.
func CanTransition(from, to JobStatus) bool {
	if from.Terminal() {
		return false
	}
	if to == StatusFailed || to == StatusCancelled {
		return true
	}
	fr, ok1 := statusRank[from]
	tr, ok2 := statusRank[to]
	return ok1 && ok2 && tr == fr+1
}

// Severity distinguishes blocking findings from informational ones.
type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

// ValidationError is one finding against one cell. Row is 1-based and
// excludes the header; row 0 marks a finding about the header itself.
type ValidationError struct {
	Row      int      `json:"row"`
	Column   string   `json:"column"`
	Value    string   `json:"value,omitempty"`
	Message  string   `json:"message"`
	Severity Severity `json:"severity"`
}

// TemplateColumn describes one importable field of an entity type.
type TemplateColumn struct {
	Field       string `json:"field"`
	Label       string `json:"label"`
	Required    bool   `json:"required"`
	Example     string `json:"example"`
	Description string `json:"description,omitempty"`
	DBColumn    string `json:"-"`
}

// Row is one parsed data row keyed by header (or by field name once mapped).
type Row map[string]string

// ParsedData is the uniform tabular shape produced by ParseFile.
type ParsedData struct {
	Columns   []string `json:"columns"`
	Rows      []Row    `json:"rows"`
	TotalRows int      `json:"totalRows"`
}

// Entity is a mapped record keyed by internal field name.
type Entity map[string]string

// ImportJob tracks one file-upload-to-ingestion attempt.
type ImportJob struct {
	ID               string            `json:"id"`
	Filename         string            `json:"filename"`
	EntityType       EntityType        `json:"entityType"`
	Status           JobStatus         `json:"status"`
	TotalRecords     int               `json:"totalRecords"`
	ProcessedRecords int               `json:"processedRecords"`
	ValidRecords     int               `json:"validRecords"`
	ErrorRecords     int               `json:"errorRecords"`
	UploadedBy       string            `json:"uploadedBy,omitempty"`
	OrganizationID   string            `json:"organizationId,omitempty"`
	Errors           []ValidationError `json:"errors"`
	Warnings         []ValidationError `json:"warnings"`
	Metadata         map[string]any    `json:"metadata"`
	CreatedAt        time.Time         `json:"createdAt"`
	UpdatedAt        time.Time         `json:"updatedAt"`
	CompletedAt      *time.Time        `json:"completedAt,omitempty"`
}

// Clone returns a deep copy so callers can mutate freely.
func (j *ImportJob) Clone() *ImportJob {
	if j == nil {
		return nil
	}
	c := *j
	c.Errors = append([]ValidationError(nil), j.Errors...)
	c.Warnings = append([]ValidationError(nil), j.Warnings...)
	c.Metadata = make(map[string]any, len(j.Metadata))
	for k, v := range j.Metadata {
		c.Metadata[k] = v
	}
	if j.CompletedAt != nil {
		t := *j.CompletedAt
		c.CompletedAt = &t
	}
	return &c
}

// ValidationOutcome is what a validation pass writes back onto a job.
type ValidationOutcome struct {
	TotalRecords int
	ValidRecords int
	ErrorRecords int
	Errors       []ValidationError
	Warnings     []ValidationError
	Metadata     map[string]any
}

// ValidationSummary is returned to callers of ValidateImportData.
type ValidationSummary struct {
	JobID        string            `json:"jobId"`
	Status       JobStatus         `json:"status"`
	TotalRecords int               `json:"totalRecords"`
	ValidRecords int               `json:"validRecords"`
	ErrorRecords int               `json:"errorRecords"`
	WarningCount int               `json:"warningCount"`
	Errors       []ValidationError `json:"errors"`
	Warnings     []ValidationError `json:"warnings"`
}

// ExecuteResult is returned once execution has been handed to the runner.
type ExecuteResult struct {
	ID      string    `json:"id"`
	Status  JobStatus `json:"status"`
	Message string    `json:"message"`
}

// CreateJobInput carries everything needed to record a new import job.
type CreateJobInput struct {
	Filename       string
	EntityType     EntityType
	OrganizationID string
	UploadedBy     string
	Data           []byte
}

// JobFilter selects a page of import jobs.
type JobFilter struct {
	Status         JobStatus
	OrganizationID string
	Page           int
	Limit          int
}

// Pagination is the page envelope returned with list results.
type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// JobPage is one page of import jobs.
type JobPage struct {
	Data       []ImportJob `json:"data"`
	Pagination Pagination  `json:"pagination"`
}
