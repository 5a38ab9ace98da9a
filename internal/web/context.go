package web

import (
	"net/http"
	"strings"
)

// organizationHeader scopes requests to one tenant when no query param is given.
const organizationHeader = "X-Organization-ID"

// organizationID returns the tenant a request is scoped to, or "" for none.
// The organizationId query parameter wins over the header.
func organizationID(r *http.Request) string {
	if org := strings.TrimSpace(r.URL.Query().Get("organizationId")); org != "" {
		return org
	}
	return strings.TrimSpace(r.Header.Get(organizationHeader))
}
