package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fleema/fleetcore/internal/domain"
	"github.com/fleema/fleetcore/internal/service"
	"github.com/fleema/fleetcore/internal/store"
	"go.uber.org/zap"
)

const maxBodyBytes = 1 << 20

const (
	detailInvalidCredentials = "Invalid email or password."
	detailNotAuthenticated   = "Authentication credentials were not provided."
	detailForbidden          = "You do not have permission to perform this action."
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDetail is the body shape used for 401, 403 and plain acknowledgements.
func writeDetail(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"detail": msg})
}

type validationResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields"`
}

// writeServiceError maps service and domain errors onto status codes.
// Anything unrecognised is logged and reported as a 500.
func writeServiceError(w http.ResponseWriter, logger *zap.Logger, err error) {
	if verr, ok := domain.AsValidationError(err); ok {
		writeJSON(w, http.StatusBadRequest, validationResponse{Error: "validation failed", Fields: verr.Fields})
		return
	}

	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		writeDetail(w, http.StatusUnauthorized, detailInvalidCredentials)
	case errors.Is(err, domain.ErrUnauthenticated):
		writeDetail(w, http.StatusUnauthorized, detailNotAuthenticated)
	case errors.Is(err, domain.ErrForbidden):
		writeDetail(w, http.StatusForbidden, detailForbidden)
	case errors.Is(err, service.ErrRecordNotFound),
		errors.Is(err, service.ErrTenantNotFound),
		errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrValueTooLong):
		writeError(w, http.StatusBadRequest, "value too long")
	default:
		logger.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeJSON reads a bounded JSON body into v. It writes the 400 itself and
// reports false when the body is malformed.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}
