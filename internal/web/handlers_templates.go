package web

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"

	"github.com/sellybase/importer/internal/core"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// templateColumnsResponse describes the importable columns of an entity type.
type templateColumnsResponse struct {
	EntityType core.EntityType       `json:"entityType"`
	Label      string                `json:"label"`
	Columns    []core.TemplateColumn `json:"columns"`
}

// handleDownloadTemplate serves a blank import template as CSV or XLSX.
func (s *Server) handleDownloadTemplate(w http.ResponseWriter, r *http.Request) {
	entityType, err := core.ParseEntityType(chi.URLParam(r, "entityType"))
	if err != nil {
		fail(w, r, err)
		return
	}
	format, err := core.ParseTemplateFormat(r.URL.Query().Get("format"))
	if err != nil {
		fail(w, r, err)
		return
	}

	data, err := core.GenerateTemplate(entityType, format)
	if err != nil {
		fail(w, r, err)
		return
	}

	contentType := "text/csv; charset=utf-8"
	if format == core.FormatXLSX {
		contentType = xlsxContentType
	}
	writeDownload(w, contentType, core.TemplateFilename(entityType, format), data)
}

// handleTemplateColumns returns the column mapping of an entity type.
func (s *Server) handleTemplateColumns(w http.ResponseWriter, r *http.Request) {
	entityType, err := core.ParseEntityType(chi.URLParam(r, "entityType"))
	if err != nil {
		fail(w, r, err)
		return
	}

	tmpl, ok := core.Lookup(entityType)
	if !ok {
		respondError(w, r, fmt.Errorf("unknown entity type %q", entityType), http.StatusNotFound)
		return
	}

	writeJSON(w, http.StatusOK, templateColumnsResponse{
		EntityType: entityType,
		Label:      tmpl.Label,
		Columns:    slices.Clone(tmpl.Columns),
	})
}

// templateSummary is one entry of the template listing.
type templateSummary struct {
	EntityType core.EntityType `json:"entityType"`
	Label      string          `json:"label"`
	Columns    int             `json:"columns"`
	Required   []string        `json:"required"`
}

// handleListTemplates lists every importable entity type.
func (s *Server) handleListTemplates(w http.ResponseWriter, r *http.Request) {
	all := core.All()
	out := make([]templateSummary, 0, len(all))
	for _, tmpl := range all {
		required := []string{}
		for _, col := range tmpl.Columns {
			if col.Required {
				required = append(required, col.Label)
			}
		}
		out = append(out, templateSummary{
			EntityType: tmpl.Entity,
			Label:      tmpl.Label,
			Columns:    len(tmpl.Columns),
			Required:   required,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
