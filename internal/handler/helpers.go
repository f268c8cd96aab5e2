package handler

import (
	"net/http"
	"strconv"

	"arbor/internal/domain"
	models "arbor/internal/domain/models/tree"
	"arbor/internal/httputil"
)

// PathParam reads a required path value, responding 400 when it is blank.
func PathParam(w http.ResponseWriter, r *http.Request, name, label string) (string, bool) {
	value := r.PathValue(name)
	if value == "" {
		badRequest(w, label+" is required")
		return "", false
	}
	return value, true
}

// requireTenant reads the tenant set by the auth middleware. A request that
// reached a handler without one is a wiring bug, reported as 401.
func requireTenant(w http.ResponseWriter, r *http.Request) (string, bool) {
	tenantID := httputil.GetTenantID(r)
	if tenantID == "" {
		httputil.RespondError(w, http.StatusUnauthorized, string(domain.CodeUnauthorized), "tenant not resolved")
		return "", false
	}
	return tenantID, true
}

// boolQuery parses an optional boolean query parameter.
func boolQuery(r *http.Request, name string) (bool, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}

// deleteResponse is returned by subtree deletes.
type deleteResponse struct {
	Deleted int `json:"deleted"`
}

// reorderRequest is the body of the reorder endpoints.
type reorderRequest struct {
	Items []models.ReorderItem `json:"items"`
}
