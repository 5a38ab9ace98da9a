// Package views holds the HTML fragments served by the web layer. Components
// are templ components so handlers render them the same way whether they
// are returned whole or swapped in by HTMX.
//
// Edit views.templ and run templ generate; views_templ.go is generated.
package views

import (
	"fmt"
	"strconv"

	"github.com/sellybase/importer/internal/core"
)

func rowLabel(f core.ValidationError) string {
	if f.Row == 0 {
		return "header"
	}
	return strconv.Itoa(f.Row)
}

func failureReason(job *core.ImportJob) string {
	reason, _ := job.Metadata["failureReason"].(string)
	return reason
}

func findingsHref(id string) string {
	return fmt.Sprintf("/imports/%s/errors.csv", id)
}
