// internal/httpapi/sync_handler.go
//
// Manual sync trigger.
//
// Behaviour contract: run-level failures (configuration, citizen-phase
// transport) return 500 with the error message.  Everything else returns
// 200 with the statistics payload—even when individual records failed.
// Callers inspect stats.*.errors to detect partial failure.
package httpapi

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/stationhouse/citysync/internal/org"
	"github.com/stationhouse/citysync/internal/sync"
)

func (a *API) triggerSync(w http.ResponseWriter, r *http.Request) {
	rec := orgFrom(r.Context())

	// A run can outlive the server-wide WriteTimeout.  Lift the write
	// deadline for this response; the run carries its own timeout, so the
	// connection is still bounded.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil {
		zap.S().Debugw("write deadline not adjustable", "err", err)
	}

	cfg, err := org.SyncConfigOf(rec, a.DefaultInterval)
	if err != nil {
		// Bad persisted settings are the caller's problem, not a server
		// fault: 422, with enough detail to fix the settings screen.
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	res := a.Orch.SyncCitizens(r.Context(), cfg)
	if res.Status != sync.StatusIdle {
		writeJSON(w, http.StatusInternalServerError, res)
		return
	}

	if err := org.TouchLastSynced(r.Context(), a.DB, rec.ID); err != nil {
		// The sync itself succeeded; a failed freshness stamp is logged,
		// not surfaced.
		zap.S().Warnw("touch last_synced_at failed", "org", rec.ID, "err", err)
	}

	writeJSON(w, http.StatusOK, res)
}
