package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/aretw0/surface/internal/validator"
	"github.com/aretw0/surface/pkg/catalog"
	"github.com/aretw0/surface/pkg/domain"
)

// ErrorResponse is the JSON body of every error answer.
type ErrorResponse struct {
	Error string `json:"error"`
}

// respondWithError maps domain errors to status codes.
// Validation-class messages are passed through; anything else becomes a generic 500.
func (s *Server) respondWithError(w http.ResponseWriter, err error) {
	var status int
	var message string

	switch {
	case errors.Is(err, validator.ErrValidation):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, domain.ErrMissingPublishingContext):
		status = http.StatusBadRequest
		message = err.Error()
	case errors.Is(err, catalog.ErrUnknownComponent), errors.Is(err, catalog.ErrInvalidProps):
		status = http.StatusUnprocessableEntity
		message = err.Error()
	case errors.Is(err, domain.ErrSessionNotFound):
		status = http.StatusNotFound
		message = "conversation not found"
	default:
		status = http.StatusInternalServerError
		message = "internal server error"
	}

	s.Logger.Warn("Responding with error", "status", status, "client_message", message, "err", err)
	respondWithJSON(w, s.Logger, status, ErrorResponse{Error: message})
}

func respondWithJSON(w http.ResponseWriter, logger *slog.Logger, code int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		logger.Error("Failed to marshal JSON response", "err", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if _, err := w.Write(body); err != nil {
		logger.Warn("Failed to write JSON response", "err", err)
	}
}
