// internal/httpapi/role_handlers.go
//
// Permission readback endpoints.  The permissions blob is returned
// verbatim—this service stores it, the dashboard interprets it.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stationhouse/citysync/internal/roles"
)

func (a *API) rolePermissions(w http.ResponseWriter, r *http.Request) {
	org := orgFrom(r.Context())
	roleName := chi.URLParam(r, "role")

	rec, err := roles.ByName(r.Context(), a.DB, org.ID, roleName)
	if err != nil {
		writeError(w, http.StatusNotFound, "role not found")
		return
	}

	members, err := a.Roles.Members(r.Context(), org.ID, roleName)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "member lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"name":        rec.Name,
		"permissions": json.RawMessage(rec.Permissions),
		"members":     members,
	})
}

func (a *API) checkMember(w http.ResponseWriter, r *http.Request) {
	org := orgFrom(r.Context())
	roleName := chi.URLParam(r, "role")
	memberID := chi.URLParam(r, "memberID")

	// A point query beats pulling the whole member list through the cache
	// for a single yes/no answer.
	has, err := roles.HasRole(r.Context(), a.DB, org.ID, memberID, roleName)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "member lookup failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"member":  memberID,
		"role":    roleName,
		"hasRole": has,
	})
}
