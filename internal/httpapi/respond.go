// internal/httpapi/respond.go
//
// JSON response helpers shared by every handler.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

// writeJSON encodes v with the given status.  Encoding failures are logged
// but not surfaced; the status line is already gone.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.S().Errorw("response encode failed", "err", err)
	}
}

// writeError is the uniform error envelope.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// pageParams reads ?limit= and ?offset= with sane bounds.
func pageParams(r *http.Request) (limit, offset int) {
	limit = 50
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			limit = min(n, 200)
		}
	}
	if s := r.URL.Query().Get("offset"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
