package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sellybase/importer/internal/config"
	"github.com/sellybase/importer/internal/core"
	"github.com/sellybase/importer/internal/store/memory"
	"github.com/sellybase/importer/internal/web"
)

const contactsCSV = `First Name,Last Name,Email
Somchai,Jaidee,somchai@acme.co.th
Suda,Wongsa,suda@beta.co.th
`

func testConfig() *config.Config {
	return &config.Config{
		Server: config.ServerConfig{RequestTimeout: 10 * time.Second},
		Upload: config.UploadConfig{MaxFileSize: 1 << 20},
		Security: config.SecurityConfig{
			EnableCSP: true,
		},
	}
}

type harness struct {
	server  *web.Server
	backend *memory.Backend
	service *core.Service
}

func newHarness(t *testing.T, cfg *config.Config) *harness {
	t.Helper()
	backend := memory.NewSeeded()
	service := core.NewService(backend, core.Options{BatchSize: 10})
	server := web.NewServer(service, cfg)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
		_ = service.Shutdown(ctx)
	})
	return &harness{server: server, backend: backend, service: service}
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.server.Router().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func multipartUpload(t *testing.T, target, filename, content string, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		part, err := mw.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHealth(t *testing.T) {
	h := newHarness(t, testConfig())

	rec := h.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]any](t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "memory", body["backend"])
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rec.Header().Get("Content-Security-Policy"))
}

func TestListImports(t *testing.T) {
	h := newHarness(t, testConfig())

	t.Run("scoped to organization", func(t *testing.T) {
		rec := h.do(httptest.NewRequest(http.MethodGet, "/imports?organizationId="+memory.DemoOrganization+"&limit=2", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		page := decode[core.JobPage](t, rec)
		assert.Len(t, page.Data, 2)
		assert.Equal(t, 4, page.Pagination.Total)
		assert.Equal(t, 2, page.Pagination.TotalPages)
		assert.True(t, page.Pagination.HasNext)
	})

	t.Run("status filter", func(t *testing.T) {
		rec := h.do(httptest.NewRequest(http.MethodGet, "/imports?status=validated", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		page := decode[core.JobPage](t, rec)
		require.Len(t, page.Data, 1)
		assert.Equal(t, memory.FixtureValidatedID, page.Data[0].ID)
	})

	t.Run("unknown status", func(t *testing.T) {
		rec := h.do(httptest.NewRequest(http.MethodGet, "/imports?status=done", nil))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VAL003", decode[web.ErrorResponse](t, rec).Code)
	})

	t.Run("other organization sees nothing", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/imports", nil)
		req.Header.Set("X-Organization-ID", "other-org")
		rec := h.do(req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, decode[core.JobPage](t, rec).Data)
	})
}

func TestGetImport(t *testing.T) {
	h := newHarness(t, testConfig())

	rec := h.do(httptest.NewRequest(http.MethodGet, "/imports/"+memory.FixtureCompletedID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	job := decode[core.ImportJob](t, rec)
	assert.Equal(t, core.StatusCompleted, job.Status)
	assert.Equal(t, 115, job.ProcessedRecords)

	rec = h.do(httptest.NewRequest(http.MethodGet, "/imports/"+memory.FixtureCompletedID+"?organizationId=other-org", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "IMP001", decode[web.ErrorResponse](t, rec).Code)

	rec = h.do(httptest.NewRequest(http.MethodGet, "/imports/not-a-uuid", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateImport_Multipart(t *testing.T) {
	h := newHarness(t, testConfig())

	req := multipartUpload(t, "/imports", "contacts.csv", contactsCSV, map[string]string{
		"entityType":     "contacts",
		"organizationId": "acme",
		"uploadedBy":     "somchai",
	})
	rec := h.do(req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	job := decode[core.ImportJob](t, rec)
	assert.Equal(t, core.StatusQueued, job.Status)
	assert.Equal(t, core.EntityContacts, job.EntityType)
	assert.Equal(t, "acme", job.OrganizationID)
	assert.Equal(t, "somchai", job.UploadedBy)
	assert.Equal(t, "/imports/"+job.ID, rec.Header().Get("Location"))
}

func TestCreateImport_JSON(t *testing.T) {
	h := newHarness(t, testConfig())

	body, err := json.Marshal(map[string]any{
		"filename":   "contacts.csv",
		"entityType": "contacts",
		"data":       []byte(contactsCSV),
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/imports", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Organization-ID", "acme")
	rec := h.do(req)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	job := decode[core.ImportJob](t, rec)
	assert.Equal(t, "acme", job.OrganizationID)

	// The stored source validates like an uploaded file
	rec = h.do(httptest.NewRequest(http.MethodPost, "/imports/"+job.ID+"/validate", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	summary := decode[core.ValidationSummary](t, rec)
	assert.Equal(t, core.StatusValidated, summary.Status)
	assert.Equal(t, 2, summary.ValidRecords)
}

func TestCreateImport_Rejects(t *testing.T) {
	h := newHarness(t, testConfig())

	tests := []struct {
		name     string
		req      *http.Request
		wantCode string
	}{
		{
			name:     "no file",
			req:      multipartUpload(t, "/imports", "", "", map[string]string{"entityType": "contacts"}),
			wantCode: "FILE007",
		},
		{
			name:     "unsupported format",
			req:      multipartUpload(t, "/imports", "contacts.pdf", contactsCSV, nil),
			wantCode: "FILE004",
		},
		{
			name:     "unknown entity type",
			req:      multipartUpload(t, "/imports", "contacts.csv", contactsCSV, map[string]string{"entityType": "leads"}),
			wantCode: "VAL001",
		},
		{
			name:     "missing filename",
			req:      httptest.NewRequest(http.MethodPost, "/imports", strings.NewReader(`{"entityType":"contacts"}`)),
			wantCode: "VAL004",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := h.do(tt.req)
			require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantCode, decode[web.ErrorResponse](t, rec).Code)
		})
	}
}

func TestCreateImport_TooLarge(t *testing.T) {
	cfg := testConfig()
	cfg.Upload.MaxFileSize = 64
	h := newHarness(t, cfg)

	rec := h.do(multipartUpload(t, "/imports", "contacts.csv", strings.Repeat(contactsCSV, 100), nil))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "FILE001", decode[web.ErrorResponse](t, rec).Code)
}

func TestPreviewImport(t *testing.T) {
	h := newHarness(t, testConfig())

	csv := contactsCSV + "Anan,,anan@gamma\n"
	rec := h.do(multipartUpload(t, "/imports/preview", "contacts.csv", csv, map[string]string{"entityType": "contacts"}))

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	preview := decode[core.PreviewResponse](t, rec)
	assert.Equal(t, 3, preview.TotalRecords)
	assert.Equal(t, 2, preview.ValidRecords)
	assert.Equal(t, 1, preview.ErrorRecords)
	assert.Len(t, preview.SampleRows, 3)

	// Preview never creates a job
	page, err := h.service.ListImportJobs(context.Background(), core.JobFilter{})
	require.NoError(t, err)
	assert.Equal(t, 4, page.Pagination.Total)
}

func TestExecuteImport(t *testing.T) {
	h := newHarness(t, testConfig())

	rec := h.do(httptest.NewRequest(http.MethodPost, "/imports/"+memory.FixtureValidatedID+"/execute", nil))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	result := decode[core.ExecuteResult](t, rec)
	assert.Equal(t, memory.FixtureValidatedID, result.ID)
	assert.Equal(t, core.StatusProcessing, result.Status)

	require.Eventually(t, func() bool {
		job, err := h.service.GetImportJob(context.Background(), memory.FixtureValidatedID, "")
		return err == nil && job.Status == core.StatusCompleted
	}, 5*time.Second, 10*time.Millisecond)

	assert.Len(t, h.backend.Entities(core.EntityContacts), 2)

	// A completed job cannot run again
	rec = h.do(httptest.NewRequest(http.MethodPost, "/imports/"+memory.FixtureValidatedID+"/execute", nil))
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "IMP002", decode[web.ErrorResponse](t, rec).Code)
}

func TestCancelImport(t *testing.T) {
	h := newHarness(t, testConfig())

	rec := h.do(httptest.NewRequest(http.MethodPost, "/imports/"+memory.FixtureQueuedID+"/cancel", nil))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, core.StatusCancelled, decode[core.ImportJob](t, rec).Status)

	rec = h.do(httptest.NewRequest(http.MethodPost, "/imports/"+memory.FixtureCompletedID+"/cancel", nil))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestExportFindings(t *testing.T) {
	h := newHarness(t, testConfig())

	rec := h.do(httptest.NewRequest(http.MethodGet, "/imports/"+memory.FixtureCompletedID+"/errors.csv", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "import_"+memory.FixtureCompletedID+"_findings.csv")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "Row,Column,Value,Severity,Message", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "7,Website"), lines[1])
}

func TestImportReport(t *testing.T) {
	h := newHarness(t, testConfig())

	rec := h.do(httptest.NewRequest(http.MethodGet, "/imports/"+memory.FixtureFailedID+"/report", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), "legacy_export.txt")
	assert.Contains(t, rec.Body.String(), "no source file stored for import job")
}

func TestTemplates(t *testing.T) {
	h := newHarness(t, testConfig())

	t.Run("csv download", func(t *testing.T) {
		rec := h.do(httptest.NewRequest(http.MethodGet, "/imports/templates/contacts", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
		assert.True(t, strings.HasPrefix(rec.Body.String(), "First Name,Last Name"), rec.Body.String())
	})

	t.Run("xlsx download", func(t *testing.T) {
		rec := h.do(httptest.NewRequest(http.MethodGet, "/imports/templates/companies?format=xlsx", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", rec.Header().Get("Content-Type"))
		assert.True(t, bytes.HasPrefix(rec.Body.Bytes(), []byte("PK")))
	})

	t.Run("unknown format", func(t *testing.T) {
		rec := h.do(httptest.NewRequest(http.MethodGet, "/imports/templates/companies?format=pdf", nil))
		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "VAL002", decode[web.ErrorResponse](t, rec).Code)
	})

	t.Run("columns", func(t *testing.T) {
		rec := h.do(httptest.NewRequest(http.MethodGet, "/imports/templates/activities/columns", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var body struct {
			EntityType string                `json:"entityType"`
			Columns    []core.TemplateColumn `json:"columns"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "activities", body.EntityType)
		require.NotEmpty(t, body.Columns)
		assert.Equal(t, "activityType", body.Columns[0].Field)
	})

	t.Run("columns are a copy", func(t *testing.T) {
		rec := h.do(httptest.NewRequest(http.MethodGet, "/imports/templates/contacts/columns", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		tmpl, ok := core.Lookup(core.EntityContacts)
		require.True(t, ok)
		var body struct {
			Label   string                `json:"label"`
			Columns []core.TemplateColumn `json:"columns"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, tmpl.Label, body.Label)
		require.Len(t, body.Columns, len(tmpl.Columns))
		for i, col := range tmpl.Columns {
			assert.Equal(t, col.Field, body.Columns[i].Field)
			assert.Equal(t, col.Label, body.Columns[i].Label)
			assert.Equal(t, col.Required, body.Columns[i].Required)
		}
	})

	t.Run("listing", func(t *testing.T) {
		rec := h.do(httptest.NewRequest(http.MethodGet, "/imports/templates", nil))
		require.Equal(t, http.StatusOK, rec.Code)

		var body []struct {
			EntityType string   `json:"entityType"`
			Label      string   `json:"label"`
			Columns    int      `json:"columns"`
			Required   []string `json:"required"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body, len(core.EntityTypes()))
		for i := 1; i < len(body); i++ {
			assert.Less(t, body[i-1].EntityType, body[i].EntityType)
		}
		for _, entry := range body {
			if entry.EntityType == "contacts" {
				assert.Contains(t, entry.Required, "First Name")
				assert.Positive(t, entry.Columns)
			}
		}
	})
}

func TestErrorFragmentForHTMX(t *testing.T) {
	h := newHarness(t, testConfig())

	req := httptest.NewRequest(http.MethodGet, "/imports/6f1c2a9e-0000-4000-8000-000000000000", nil)
	req.Header.Set("HX-Request", "true")
	rec := h.do(req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `data-code="IMP001"`)
}

func TestAPIKeyRequired(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RequireAPIKey = true
	cfg.Security.APIKeys = []string{"ci:secret"}
	h := newHarness(t, cfg)

	rec := h.do(httptest.NewRequest(http.MethodGet, "/imports", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	req := multipartUpload(t, "/imports", "contacts.csv", contactsCSV, map[string]string{"entityType": "contacts"})
	req.Header.Set("X-API-Key", "secret")
	rec = h.do(req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "api-key:ci", decode[core.ImportJob](t, rec).UploadedBy)

	// Health stays open for probes
	rec = h.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.Rate = config.RateLimitConfig{Enabled: true, RequestsPerMinute: 100, UploadLimit: 2}
	h := newHarness(t, cfg)

	for i := 0; i < 2; i++ {
		rec := h.do(multipartUpload(t, "/imports/preview", "contacts.csv", contactsCSV, map[string]string{"entityType": "contacts"}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	}

	rec := h.do(multipartUpload(t, "/imports/preview", "contacts.csv", contactsCSV, map[string]string{"entityType": "contacts"}))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "RATE001", decode[web.ErrorResponse](t, rec).Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	// Reads use the general limit
	rec = h.do(httptest.NewRequest(http.MethodGet, "/imports", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestCORS(t *testing.T) {
	cfg := testConfig()
	cfg.Security.AllowedOrigins = []string{"https://app.example.com"}
	h := newHarness(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/imports", nil)
	req.Header.Set("Origin", "https://app.example.com")
	rec := h.do(req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "https://app.example.com", rec.Header().Get("Access-Control-Allow-Origin"))
}
