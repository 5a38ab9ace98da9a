package views

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellybase/importer/internal/core"
)

func TestErrorAlert_Escapes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ErrorAlert("<b>bad</b>", "Try again", "FILE002").Render(context.Background(), &buf))

	out := buf.String()
	assert.Contains(t, out, "&lt;b&gt;bad&lt;/b&gt;")
	assert.NotContains(t, out, "<b>")
	assert.Contains(t, out, `data-code="FILE002"`)
	assert.Contains(t, out, "Try again")
}

func TestErrorAlert_NoAction(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ErrorAlert("Oops", "", "ERR000").Render(context.Background(), &buf))
	assert.NotContains(t, buf.String(), "alert-action")
}

func TestImportReport(t *testing.T) {
	job := &core.ImportJob{
		ID:           "5b7c0d84-0000-4000-8000-000000000001",
		Filename:     "contacts.csv",
		EntityType:   core.EntityContacts,
		Status:       core.StatusValidated,
		TotalRecords: 3,
		ValidRecords: 2,
		ErrorRecords: 1,
		Errors: []core.ValidationError{
			{Row: 2, Column: "Email", Value: "<script>", Message: "Invalid email format", Severity: core.SeverityError},
		},
		Warnings: []core.ValidationError{
			{Row: 0, Column: "Fax", Message: "Column \"Fax\" is not part of the contacts template and will be ignored", Severity: core.SeverityWarning},
		},
		Metadata: map[string]any{},
	}

	var buf bytes.Buffer
	require.NoError(t, ImportReport(job).Render(context.Background(), &buf))
	out := buf.String()

	assert.Contains(t, out, "<h1>contacts.csv</h1>")
	assert.Contains(t, out, "<dd>2</dd>")
	assert.Contains(t, out, "Errors (1)")
	assert.Contains(t, out, "&lt;script&gt;")
	assert.NotContains(t, out, "<script>")
	assert.Contains(t, out, "<td>header</td>")
	assert.Contains(t, out, "/imports/5b7c0d84-0000-4000-8000-000000000001/errors.csv")
}

func TestImportReport_FailureReason(t *testing.T) {
	job := &core.ImportJob{
		ID:       "5b7c0d84-0000-4000-8000-000000000002",
		Filename: "companies.xlsx",
		Status:   core.StatusFailed,
		Metadata: map[string]any{"failureReason": "import timed out after 10m0s"},
	}

	var buf bytes.Buffer
	require.NoError(t, ImportReport(job).Render(context.Background(), &buf))
	assert.Contains(t, buf.String(), "import timed out after 10m0s")
	assert.NotContains(t, buf.String(), "errors.csv")
}
