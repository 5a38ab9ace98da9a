package memory

import (
	"time"

	"github.com/sellybase/importer/internal/core"
)

// DemoOrganization owns every seeded fixture job.
const DemoOrganization = "demo-org"

// Fixture job IDs, stable across restarts so demos can link to them.
const (
	FixtureCompletedID = "6f1c2a9e-3b7d-4e5a-9c1f-0a2b3c4d5e01"
	FixtureValidatedID = "6f1c2a9e-3b7d-4e5a-9c1f-0a2b3c4d5e02"
	FixtureQueuedID    = "6f1c2a9e-3b7d-4e5a-9c1f-0a2b3c4d5e03"
	FixtureFailedID    = "6f1c2a9e-3b7d-4e5a-9c1f-0a2b3c4d5e04"
)

const fixtureContactsCSV = `First Name,Last Name,Email,Phone,Title,Department,Company Name
Somchai,Jaidee,somchai@acme.co.th,081-234-5678,Purchasing Manager,Procurement,Acme Corporation Ltd.
Suda,Wongsa,suda@beta.co.th,02 555 0199,CFO,Finance,Beta Trading Co.
Anan,,anan@gamma,123,Engineer,R&D,Gamma Industries
`

const fixtureActivitiesCSV = `Activity Type,Subject,Date,Company Name,Contact Email,Notes
meeting,Quarterly review,2024-01-15,Acme Corporation Ltd.,somchai@acme.co.th,Discussed renewal terms
call,Intro call,01/22/2024,Beta Trading Co.,suda@beta.co.th,
`

// Seed loads demo jobs for DemoOrganization, one per interesting status.
func Seed(b *Backend) {
	base := time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)
	completedAt := base.Add(3 * time.Minute)

	jobs := []struct {
		job    core.ImportJob
		source string
	}{
		{
			job: core.ImportJob{
				ID:               FixtureCompletedID,
				Filename:         "companies_january.csv",
				EntityType:       core.EntityCompanies,
				Status:           core.StatusCompleted,
				TotalRecords:     120,
				ProcessedRecords: 115,
				ValidRecords:     115,
				ErrorRecords:     5,
				UploadedBy:       "demo-user",
				Errors: []core.ValidationError{
					{Row: 14, Column: "Email", Value: "info@", Message: "Invalid email format", Severity: core.SeverityError},
					{Row: 52, Column: "Employee Count", Value: "about 40", Message: "Employee count must be a number", Severity: core.SeverityError},
				},
				Warnings: []core.ValidationError{
					{Row: 7, Column: "Website", Value: "acme", Message: "Invalid website URL format", Severity: core.SeverityWarning},
				},
				Metadata:    map[string]any{"errorCount": 5, "warningCount": 1},
				CreatedAt:   base,
				UpdatedAt:   completedAt,
				CompletedAt: &completedAt,
			},
		},
		{
			job: core.ImportJob{
				ID:           FixtureValidatedID,
				Filename:     "contacts.csv",
				EntityType:   core.EntityContacts,
				Status:       core.StatusValidated,
				TotalRecords: 3,
				ValidRecords: 2,
				ErrorRecords: 1,
				UploadedBy:   "demo-user",
				Errors: []core.ValidationError{
					{Row: 3, Column: "Last Name", Message: "Last Name is required", Severity: core.SeverityError},
					{Row: 3, Column: "Email", Value: "anan@gamma", Message: "Invalid email format", Severity: core.SeverityError},
				},
				Warnings: []core.ValidationError{
					{Row: 3, Column: "Phone", Value: "123", Message: "Phone number should contain at least 7 digits", Severity: core.SeverityWarning},
				},
				Metadata:  map[string]any{"errorCount": 2, "warningCount": 1},
				CreatedAt: base.Add(24 * time.Hour),
				UpdatedAt: base.Add(24*time.Hour + time.Minute),
			},
			source: fixtureContactsCSV,
		},
		{
			job: core.ImportJob{
				ID:         FixtureQueuedID,
				Filename:   "activities.csv",
				EntityType: core.EntityActivities,
				Status:     core.StatusQueued,
				UploadedBy: "demo-user",
				Metadata:   map[string]any{},
				CreatedAt:  base.Add(48 * time.Hour),
				UpdatedAt:  base.Add(48 * time.Hour),
			},
			source: fixtureActivitiesCSV,
		},
		{
			job: core.ImportJob{
				ID:         FixtureFailedID,
				Filename:   "legacy_export.txt",
				EntityType: core.EntityCompanies,
				Status:     core.StatusFailed,
				UploadedBy: "demo-user",
				Metadata:   map[string]any{"failureReason": "no source file stored for import job"},
				CreatedAt:  base.Add(72 * time.Hour),
				UpdatedAt:  base.Add(72 * time.Hour),
			},
		},
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, f := range jobs {
		job := f.job
		job.OrganizationID = DemoOrganization
		if job.Errors == nil {
			job.Errors = []core.ValidationError{}
		}
		if job.Warnings == nil {
			job.Warnings = []core.ValidationError{}
		}
		b.jobs[job.ID] = job.Clone()
		if f.source != "" {
			b.sources[job.ID] = []byte(f.source)
		}
	}
}

// NewSeeded returns a backend preloaded with the demo fixtures.
func NewSeeded() *Backend {
	b := New()
	Seed(b)
	return b
}
