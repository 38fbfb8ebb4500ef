package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/bcnelson/host-dashboard/internal/domain"
	"github.com/bcnelson/host-dashboard/internal/validation"
	"github.com/rs/zerolog/log"
)

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Warn().Err(err).Msg("Failed to write JSON response")
		}
	}
}

// respondError writes a JSON error response.
func respondError(w http.ResponseWriter, status int, message, errCode string) {
	respondJSON(w, status, &domain.APIError{
		Code:    status,
		Message: message,
		ErrCode: errCode,
	})
}

// handleError converts domain errors to HTTP errors.
func handleError(w http.ResponseWriter, err error) {
	switch {
	// A failed submit wraps the cluster error; report the submit itself.
	case errors.Is(err, domain.ErrSubmitFailed):
		respondError(w, http.StatusBadGateway, "submit failed", domain.ErrCodeSubmitFailed)
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found", domain.ErrCodeResourceNotFound)
	case errors.Is(err, domain.ErrAlreadyExists):
		respondError(w, http.StatusConflict, "already exists", domain.ErrCodeResourceAlreadyExists)
	case errors.Is(err, domain.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, err.Error(), domain.ErrCodeInvalidInput)
	case errors.Is(err, domain.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, "unauthorized", domain.ErrCodeUnauthorized)
	case errors.Is(err, domain.ErrUnavailable):
		respondError(w, http.StatusBadGateway, "cluster unavailable", domain.ErrCodeClusterUnavailable)
	default:
		log.Error().Err(err).Msg("Unhandled API error")
		respondError(w, http.StatusInternalServerError, "internal server error", domain.ErrCodeInternalError)
	}
}

// decodeJSON decodes JSON from request body.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("invalid request body: %w", domain.ErrInvalidInput)
	}
	return nil
}

// respondValidationErrors writes a JSON response for validation errors.
func respondValidationErrors(w http.ResponseWriter, errs validation.ValidationErrors) {
	respondJSON(w, http.StatusBadRequest, map[string]any{
		"code":       http.StatusBadRequest,
		"error_code": domain.ErrCodeValidationError,
		"errors":     errs,
	})
}

// redirectResponse tells API clients where the UI would navigate next.
type redirectResponse struct {
	Redirect string `json:"redirect"`
}

// routeRecorder is the form navigator for a single API request.
type routeRecorder struct {
	route string
}

func (n *routeRecorder) Navigate(route string) { n.route = route }
