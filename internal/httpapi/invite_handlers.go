// internal/httpapi/invite_handlers.go
//
// Invite-link endpoints.  Creation and revocation live behind orgAuth;
// resolution and acceptance are public (the token is the credential).
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stationhouse/citysync/internal/invite"
)

type createInviteRequest struct {
	Role          string `json:"role"          validate:"required"`
	CreatedBy     string `json:"createdBy"     validate:"required"`
	MaxUses       int    `json:"maxUses"       validate:"min=1"`
	ExpiresInHours int   `json:"expiresInHours" validate:"min=1,max=720"`
}

func (a *API) createInvite(w http.ResponseWriter, r *http.Request) {
	var req createInviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	org := orgFrom(r.Context())
	rec := &invite.Record{
		OrgID:     org.ID,
		Role:      req.Role,
		MaxUses:   req.MaxUses,
		ExpiresAt: time.Now().Add(time.Duration(req.ExpiresInHours) * time.Hour),
		CreatedBy: req.CreatedBy,
	}
	id, err := invite.Create(r.Context(), a.DB, rec)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "create failed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"id":    id,
		"token": rec.Token,
	})
}

func (a *API) resolveInvite(w http.ResponseWriter, r *http.Request) {
	rec, err := invite.ByToken(r.Context(), a.DB, chi.URLParam(r, "token"))
	if err != nil {
		if errors.Is(err, invite.ErrInvalid) {
			writeError(w, http.StatusNotFound, "invite not valid")
			return
		}
		writeError(w, http.StatusInternalServerError, "resolve failed")
		return
	}
	// The resolution payload is what a join screen needs, no more.
	writeJSON(w, http.StatusOK, map[string]any{
		"orgId":     rec.OrgID,
		"role":      rec.Role,
		"expiresAt": rec.ExpiresAt,
	})
}

func (a *API) acceptInvite(w http.ResponseWriter, r *http.Request) {
	rec, err := invite.Accept(r.Context(), a.DB, chi.URLParam(r, "token"))
	if err != nil {
		if errors.Is(err, invite.ErrInvalid) {
			writeError(w, http.StatusGone, "invite not valid")
			return
		}
		writeError(w, http.StatusInternalServerError, "accept failed")
		return
	}

	// Membership writes happen in the dashboard after acceptance; the
	// member cache entry for the granted role is stale either way.
	if a.Roles != nil {
		a.Roles.Invalidate(rec.OrgID, rec.Role)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"orgId": rec.OrgID,
		"role":  rec.Role,
	})
}

func (a *API) revokeInvite(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "inviteID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad invite id")
		return
	}
	org := orgFrom(r.Context())
	if err := invite.Revoke(r.Context(), a.DB, org.ID, id); err != nil {
		writeError(w, http.StatusInternalServerError, "revoke failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
