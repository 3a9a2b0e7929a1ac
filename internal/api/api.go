// Package api wraps the tenant REST endpoints for each exportable resource.
//
// Every type takes an explicit *tenant.Session; objects travel as
// json.RawMessage and are never reshaped here beyond what the wire requires.
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/nvinuesa/tenantporter/internal/tenant"
)

// API versions sent in Accept-API-Version.
const (
	amServiceVersion = "protocol=2.1,resource=1.0"
	amScriptVersion  = "protocol=2.0,resource=1.0"
	esvVersion       = "protocol=1.0,resource=1.0"
)

// queryResult is the CREST envelope returned by _queryFilter and actions.
type queryResult struct {
	Result             []json.RawMessage `json:"result"`
	PagedResultsCookie string            `json:"pagedResultsCookie"`
}

func notFound(what, id string) error {
	return &tenant.Error{
		Status:  http.StatusNotFound,
		Reason:  "Not Found",
		Message: fmt.Sprintf("%s %q not found", what, id),
	}
}

func esc(s string) string {
	return url.PathEscape(s)
}
