package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/erazemk/najdeno/internal/store"
)

// jsonResponse writes a JSON response with the given status code.
func jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			slog.Error("encoding response", "error", err)
		}
	}
}

// jsonError writes a JSON error response.
func jsonError(w http.ResponseWriter, status int, message string) {
	jsonResponse(w, status, map[string]string{"error": message})
}

// decodeJSON decodes a JSON request body into the given target.
func decodeJSON(r *http.Request, target any) error {
	defer r.Body.Close()
	return json.NewDecoder(r.Body).Decode(target)
}

// storeError maps store errors to HTTP responses. Conflicts carry the
// lock expiry so clients can show the remaining wait.
func storeError(w http.ResponseWriter, err error, fallback string) {
	var ce *store.ConflictError
	switch {
	case errors.Is(err, store.ErrNotFound):
		jsonError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrDenied):
		jsonError(w, http.StatusForbidden, "not allowed")
	case errors.As(err, &ce):
		payload := map[string]any{"error": ce.Error()}
		if ce.LockedUntil != nil {
			payload["locked_until"] = ce.LockedUntil
		}
		jsonResponse(w, http.StatusConflict, payload)
	default:
		slog.Error(fallback, "error", err)
		jsonError(w, http.StatusInternalServerError, fallback)
	}
}
