package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"example.com/habittracker/internal/domain"
)

// Error kinds returned in the "type" field of error bodies.
const (
	kindValidation       = "validation_error"
	kindInvalidInput     = "invalid_input"
	kindNotFound         = "not_found"
	kindForbidden        = "forbidden"
	kindUnauthenticated  = "unauthenticated"
	kindConflict         = "conflict"
	kindMethodNotAllowed = "method_not_allowed"
	kindServerError      = "server_error"
)

// writeDomainError maps service errors onto HTTP status codes and error kinds.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, kindValidation, err.Error())
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, kindInvalidInput, err.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, kindNotFound, err.Error())
	case errors.Is(err, domain.ErrForbidden):
		writeError(w, http.StatusForbidden, kindForbidden, err.Error())
	case errors.Is(err, domain.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, kindUnauthenticated, err.Error())
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, kindConflict, err.Error())
	default:
		h.logger.Error().Err(err).Str("method", r.Method).Str("path", r.URL.Path).Msg("request failed")
		writeError(w, http.StatusInternalServerError, kindServerError, "internal server error")
	}
}

func writeError(w http.ResponseWriter, status int, code, detail string) {
	payload := map[string]string{
		"type":   code,
		"detail": detail,
	}
	writeJSON(w, status, payload)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func methodNotAllowed(w http.ResponseWriter, allowed ...string) {
	for _, m := range allowed {
		w.Header().Add("Allow", m)
	}
	writeError(w, http.StatusMethodNotAllowed, kindMethodNotAllowed, "unsupported method")
}
