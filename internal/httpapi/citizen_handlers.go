// internal/httpapi/citizen_handlers.go
//
// Read-only citizen and vehicle endpoints.  Listings flow through the
// generation-stamped cache; point lookups go straight to the store.
package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/stationhouse/citysync/internal/citizen"
	"github.com/stationhouse/citysync/internal/vehicle"
)

func (a *API) listCitizens(w http.ResponseWriter, r *http.Request) {
	a.cachedListing(w, r, "citizens", func(limit, offset int) (any, error) {
		rec := orgFrom(r.Context())
		return citizen.ByOrg(r.Context(), a.DB, rec.ID, limit, offset)
	})
}

func (a *API) getCitizen(w http.ResponseWriter, r *http.Request) {
	rec := orgFrom(r.Context())
	cit, err := citizen.ByCitizenID(r.Context(), a.DB, rec.ID, chi.URLParam(r, "citizenID"))
	if err != nil {
		writeError(w, http.StatusNotFound, "citizen not found")
		return
	}
	writeJSON(w, http.StatusOK, cit)
}

func (a *API) citizenVehicles(w http.ResponseWriter, r *http.Request) {
	rec := orgFrom(r.Context())
	rows, err := vehicle.ByCitizen(r.Context(), a.DB, rec.ID, chi.URLParam(r, "citizenID"))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "vehicle lookup failed")
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (a *API) getVehicle(w http.ResponseWriter, r *http.Request) {
	rec := orgFrom(r.Context())
	veh, err := vehicle.ByPlate(r.Context(), a.DB, rec.ID, chi.URLParam(r, "plate"))
	if err != nil {
		writeError(w, http.StatusNotFound, "vehicle not found")
		return
	}
	writeJSON(w, http.StatusOK, veh)
}

func (a *API) listVehicles(w http.ResponseWriter, r *http.Request) {
	a.cachedListing(w, r, "vehicles", func(limit, offset int) (any, error) {
		rec := orgFrom(r.Context())
		return vehicle.ByOrg(r.Context(), a.DB, rec.ID, limit, offset)
	})
}

// cachedListing renders one listing through the ListingCache.  A nil
// Listings field disables caching entirely (tests, dev).
func (a *API) cachedListing(
	w http.ResponseWriter,
	r *http.Request,
	path string,
	load func(limit, offset int) (any, error),
) {
	rec := orgFrom(r.Context())
	query := r.URL.RawQuery

	if a.Listings != nil {
		if body, ok := a.Listings.Get(rec.ID, path, query); ok {
			w.Header().Set("Content-Type", "application/json; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			w.Write(body)
			return
		}
	}

	limit, offset := pageParams(r)
	rows, err := load(limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "listing failed")
		return
	}

	body, err := json.Marshal(rows)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encode failed")
		return
	}
	if a.Listings != nil {
		a.Listings.Put(rec.ID, path, query, body)
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}
