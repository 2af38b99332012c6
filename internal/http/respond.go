package httpapi

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/andreasstove999/ecommerce-system/storefront-go/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeMessage(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusOK, map[string]string{"message": msg})
}

// writeAppError maps domain errors to their HTTP status. Anything it does not
// recognize is logged and reported as a 500 without detail.
func writeAppError(w http.ResponseWriter, logger *log.Logger, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Printf("internal error: %v", err)
		writeError(w, status, "internal error")
		return
	}
	writeError(w, status, apperr.Message(err))
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrOutOfStock),
		errors.Is(err, apperr.ErrInsufficientStock),
		errors.Is(err, apperr.ErrInvalidTransition),
		errors.Is(err, apperr.ErrMissingData),
		errors.Is(err, apperr.ErrWindowExpired),
		errors.Is(err, apperr.ErrInvalidRange),
		errors.Is(err, apperr.ErrInvalidStatus),
		errors.Is(err, apperr.ErrInvalidInput),
		errors.Is(err, apperr.ErrEmptyCart):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
