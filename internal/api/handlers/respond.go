// Package handlers holds the HTTP handlers behind the API router.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/wonny/delphi/v2/backend/internal/contracts"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// statusForError maps a pipeline error kind to an HTTP status.
// Retryable provider failures surface as 502 so callers know a retry
// with the same idempotency key is worthwhile.
func statusForError(err error) int {
	switch contracts.KindOf(err) {
	case contracts.KindValidation:
		return http.StatusBadRequest
	case contracts.KindPreconditionFailed, contracts.KindInsufficientSignal:
		return http.StatusUnprocessableEntity
	case contracts.KindExternalProvider:
		return http.StatusBadGateway
	case contracts.KindConfiguration:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
