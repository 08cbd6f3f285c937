// internal/httpapi/fine_handlers.go
//
// Fine lifecycle endpoints: issue, pay, void, list.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/stationhouse/citysync/internal/fine"
)

var validate = validator.New()

type issueFineRequest struct {
	CitizenID string  `json:"citizenId" validate:"required"`
	IssuedBy  string  `json:"issuedBy"  validate:"required"`
	Reason    string  `json:"reason"    validate:"required"`
	Amount    float64 `json:"amount"    validate:"gt=0"`
}

func (a *API) issueFine(w http.ResponseWriter, r *http.Request) {
	var req issueFineRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed body")
		return
	}
	if err := validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	rec := orgFrom(r.Context())
	id, err := fine.Issue(r.Context(), a.DB, &fine.Record{
		OrgID:     rec.ID,
		CitizenID: req.CitizenID,
		IssuedBy:  req.IssuedBy,
		Reason:    req.Reason,
		Amount:    req.Amount,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "issue failed")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]uint64{"id": id})
}

func (a *API) payFine(w http.ResponseWriter, r *http.Request) {
	a.settleFine(w, r, fine.Pay)
}

func (a *API) voidFine(w http.ResponseWriter, r *http.Request) {
	a.settleFine(w, r, fine.Void)
}

// settleFine factors the shared id-parse / state-conflict handling of the
// two terminal transitions.
func (a *API) settleFine(
	w http.ResponseWriter,
	r *http.Request,
	op func(ctx context.Context, db *sqlx.DB, orgID string, id uint64) error,
) {
	id, err := strconv.ParseUint(chi.URLParam(r, "fineID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad fine id")
		return
	}

	rec := orgFrom(r.Context())
	switch err := op(r.Context(), a.DB, rec.ID, id); {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	case errors.Is(err, fine.ErrNotOpen):
		writeError(w, http.StatusConflict, "fine is not open")
	default:
		writeError(w, http.StatusInternalServerError, "update failed")
	}
}

func (a *API) listFines(w http.ResponseWriter, r *http.Request) {
	rec := orgFrom(r.Context())
	limit, offset := pageParams(r)
	rows, err := fine.ByOrg(r.Context(), a.DB, rec.ID, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing failed")
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (a *API) citizenFines(w http.ResponseWriter, r *http.Request) {
	rec := orgFrom(r.Context())
	rows, err := fine.ByCitizen(r.Context(), a.DB, rec.ID, chi.URLParam(r, "citizenID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing failed")
		return
	}
	writeJSON(w, http.StatusOK, rows)
}
