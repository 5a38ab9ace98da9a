package web

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sellybase/importer/internal/core"
	"github.com/sellybase/importer/internal/web/views"
)

// handleImportReport renders the HTML validation report of a job.
func (s *Server) handleImportReport(w http.ResponseWriter, r *http.Request) {
	job, err := s.service.GetImportJob(r.Context(), chi.URLParam(r, "id"), organizationID(r))
	if err != nil {
		fail(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := views.ImportReport(job).Render(r.Context(), w); err != nil {
		respondError(w, r, err, http.StatusInternalServerError)
	}
}

// healthResponse is the body of GET /healthz.
type healthResponse struct {
	Status  string             `json:"status"`
	Backend string             `json:"backend"`
	Limiter core.LimiterStatus `json:"limiter"`
	Error   string             `json:"error,omitempty"`
}

// handleHealth reports whether the backend is reachable.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	backend := s.service.Backend()
	resp := healthResponse{
		Status:  "ok",
		Backend: backend.Name(),
		Limiter: s.service.LimiterStatus(),
	}
	status := http.StatusOK
	if err := backend.Ping(ctx); err != nil {
		resp.Status = "unavailable"
		resp.Error = core.MapError(err).Message
		status = http.StatusServiceUnavailable
	}

	writeJSON(w, status, resp)
}
