package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/sellybase/importer/internal/core"
)

// createImportRequest is the JSON body of POST /imports. Data carries the
// file as base64; a job created without it has no source to validate.
type createImportRequest struct {
	Filename       string `json:"filename"`
	EntityType     string `json:"entityType"`
	OrganizationID string `json:"organizationId"`
	UploadedBy     string `json:"uploadedBy"`
	Data           []byte `json:"data"`
}

// handleListImports returns one page of jobs.
func (s *Server) handleListImports(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var status core.JobStatus
	if raw := q.Get("status"); raw != "" {
		parsed, err := core.ParseJobStatus(raw)
		if err != nil {
			fail(w, r, err)
			return
		}
		status = parsed
	}

	page, err := s.service.ListImportJobs(r.Context(), core.JobFilter{
		Status:         status,
		OrganizationID: organizationID(r),
		Page:           parseIntParam(r, "page", 1),
		Limit:          parseIntParam(r, "limit", core.DefaultPageLimit),
	})
	if err != nil {
		fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// handleCreateImport records a new job from a multipart upload or a JSON body.
func (s *Server) handleCreateImport(w http.ResponseWriter, r *http.Request) {
	var in core.CreateJobInput

	if isMultipart(r) {
		data, filename, err := s.readUpload(w, r)
		if err != nil {
			respondError(w, r, err, http.StatusBadRequest)
			return
		}
		in = core.CreateJobInput{
			Filename:       filename,
			EntityType:     core.EntityType(strings.TrimSpace(r.FormValue("entityType"))),
			OrganizationID: r.FormValue("organizationId"),
			UploadedBy:     r.FormValue("uploadedBy"),
			Data:           data,
		}
	} else {
		var req createImportRequest
		r.Body = http.MaxBytesReader(w, r.Body, s.maxBodySize())
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, r, fmt.Errorf("invalid request body: %w", err), http.StatusBadRequest)
			return
		}
		in = core.CreateJobInput{
			Filename:       req.Filename,
			EntityType:     core.EntityType(strings.TrimSpace(req.EntityType)),
			OrganizationID: req.OrganizationID,
			UploadedBy:     req.UploadedBy,
			Data:           req.Data,
		}
	}

	if in.OrganizationID == "" {
		in.OrganizationID = organizationID(r)
	}

	job, err := s.service.CreateImportJob(r.Context(), in)
	if err != nil {
		fail(w, r, err)
		return
	}

	w.Header().Set("Location", "/imports/"+job.ID)
	writeJSON(w, http.StatusCreated, job)
}

// handlePreviewImport parses and validates an upload without creating a job.
func (s *Server) handlePreviewImport(w http.ResponseWriter, r *http.Request) {
	data, filename, err := s.readUpload(w, r)
	if err != nil {
		respondError(w, r, err, http.StatusBadRequest)
		return
	}

	entityType, err := core.ParseEntityType(r.FormValue("entityType"))
	if err != nil {
		fail(w, r, err)
		return
	}

	preview, err := core.PreviewFile(data, filename, entityType)
	if err != nil {
		fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, preview)
}

func (s *Server) handleGetImport(w http.ResponseWriter, r *http.Request) {
	job, err := s.service.GetImportJob(r.Context(), chi.URLParam(r, "id"), organizationID(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleValidateImport(w http.ResponseWriter, r *http.Request) {
	summary, err := s.service.ValidateImportData(r.Context(), chi.URLParam(r, "id"), organizationID(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// handleExecuteImport hands the job to a background runner and returns
// immediately. Clients poll GET /imports/{id} for the outcome.
func (s *Server) handleExecuteImport(w http.ResponseWriter, r *http.Request) {
	result, err := s.service.ExecuteImportJob(r.Context(), chi.URLParam(r, "id"), organizationID(r))
	if err != nil {
		if core.KindOf(err) == core.KindUnavailable {
			w.Header().Set("Retry-After", "5")
		}
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, result)
}

func (s *Server) handleCancelImport(w http.ResponseWriter, r *http.Request) {
	job, err := s.service.CancelImportJob(r.Context(), chi.URLParam(r, "id"), organizationID(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

// handleExportFindings downloads a job's errors and warnings as CSV.
func (s *Server) handleExportFindings(w http.ResponseWriter, r *http.Request) {
	data, job, err := s.service.ExportFindings(r.Context(), chi.URLParam(r, "id"), organizationID(r))
	if err != nil {
		fail(w, r, err)
		return
	}
	writeDownload(w, "text/csv; charset=utf-8", core.FindingsFilename(job), data)
}

// readUpload reads the "file" part of a multipart request within the
// configured size limit.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	maxSize := s.maxBodySize()
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, "", fmt.Errorf("file too large: limit is %d bytes", s.cfg.Upload.MaxFileSize)
		}
		return nil, "", errNoFile
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, "", errNoFile
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	return data, header.Filename, nil
}

// maxBodySize leaves room for multipart framing and base64 on top of the
// file size limit. CreateImportJob enforces the exact limit.
func (s *Server) maxBodySize() int64 {
	return s.cfg.Upload.MaxFileSize*4/3 + 1<<20
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// writeDownload sends data as a file attachment.
func writeDownload(w http.ResponseWriter, contentType, filename string, data []byte) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	_, _ = w.Write(data)
}
