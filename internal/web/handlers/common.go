package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/kozaktomas/visionauth/internal/auth"
)

// errInvalidRequestBody is a shared error message for invalid JSON request bodies.
const errInvalidRequestBody = "invalid request body"

// sanitizeForLog removes newlines and carriage returns to prevent log injection.
func sanitizeForLog(s string) string {
	return strings.NewReplacer("\n", "", "\r", "").Replace(s)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondAuthError maps controller errors to HTTP statuses.
// Anything unrecognized is a storage failure and is logged.
func respondAuthError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, auth.ErrBusy),
		errors.Is(err, auth.ErrInvalidTransition),
		errors.Is(err, auth.ErrAlreadyEnrolled),
		errors.Is(err, auth.ErrDiscarded):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, auth.ErrNotEnrolled):
		respondError(w, http.StatusPreconditionFailed, err.Error())
	default:
		log.Printf("Auth error: %s", sanitizeForLog(err.Error()))
		respondError(w, http.StatusInternalServerError, "failed to persist state")
	}
}

// HealthCheck handles the health check endpoint.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
	})
}
