package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/roasbeef/planreview/internal/review"
)

// errorResponse is the exact wire shape spec §6 mandates:
// {"error":"..."}, no nested code/message object.
type errorResponse struct {
	Error string `json:"error"`
}

// writeJSON marshals v as the response body with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError classifies err against the taxonomy in review/errors.go
// and writes the matching HTTP status, per spec §7's propagation
// policy: the Control Plane maps each error category to a status.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, review.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, review.ErrValidation),
		errors.Is(err, review.ErrInvalidTransition):
		status = http.StatusBadRequest
	case errors.Is(err, review.ErrStore):
		status = http.StatusInternalServerError
	}

	writeJSON(w, status, errorResponse{Error: err.Error()})
}
