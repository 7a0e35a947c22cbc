package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"memoryd/pkg/errors"
)

// respondJSON writes a JSON response with the given status code
func respondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// respondError writes an error response in the shared envelope
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]interface{}{
		"error":   true,
		"message": message,
		"code":    status,
	})
}

// respondAppError maps a service error to its HTTP status. Unknown errors
// become opaque 500s so internals never leak to clients.
func respondAppError(w http.ResponseWriter, logger *zap.Logger, err error) {
	if appErr := errors.GetAppError(err); appErr != nil {
		if appErr.HTTPStatus >= http.StatusInternalServerError {
			logger.Error("Request failed", zap.Error(err))
		}
		respondError(w, appErr.HTTPStatus, appErr.Message)
		return
	}
	logger.Error("Request failed", zap.Error(err))
	respondError(w, http.StatusInternalServerError, "Internal server error")
}

// queryInt parses an optional integer query parameter; ok is false when the
// parameter is present but unparseable
func queryInt(r *http.Request, name string) (val int, set bool, ok bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, true, false
	}
	return v, true, true
}

// queryFloat parses an optional float query parameter
func queryFloat(r *http.Request, name string) (val float64, set bool, ok bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, false, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, true, false
	}
	return v, true, true
}
