package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"example.com/policy-portal/internal/lifecycle"
)

type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, message string, err error) {
	resp := errorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	respondJSON(w, status, resp)
}

// statusFor maps the lifecycle error taxonomy onto HTTP. Built-in protection
// is reported as 400.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, lifecycle.ErrValidation):
		return http.StatusBadRequest, "invalid request"
	case errors.Is(err, lifecycle.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, lifecycle.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, lifecycle.ErrForbidden):
		return http.StatusBadRequest, "built-in entities cannot be modified"
	case errors.Is(err, lifecycle.ErrUnauthenticated):
		return http.StatusUnauthorized, "authentication required"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func respondServiceError(w http.ResponseWriter, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		respondError(w, status, msg, nil)
		return
	}
	respondError(w, status, msg, err)
}
