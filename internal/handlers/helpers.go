package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/ternarybob/corpus/internal/models"
)

// validate is the shared request validator
var validate = validator.New()

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	return json.NewEncoder(w).Encode(data)
}

// WriteError writes a standard error JSON response.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{
		"status": "error",
		"error":  message,
	})
}

// DecodeAndValidate decodes the JSON body into dst and runs struct
// validation. Writes the 400 response itself on failure.
func DecodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		WriteError(w, http.StatusBadRequest, "Invalid JSON body: "+err.Error())
		return false
	}
	if err := validate.Struct(dst); err != nil {
		WriteError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return false
	}
	return true
}

// WriteServiceError maps service errors onto HTTP status codes
func WriteServiceError(w http.ResponseWriter, err error) {
	var insufficientErr *models.InsufficientCreditsError
	var limitErr *models.PlanLimitExceededError
	var transitionErr *models.InvalidTransitionError

	switch {
	case errors.As(err, &insufficientErr):
		WriteError(w, http.StatusPaymentRequired, insufficientErr.Error())
	case errors.Is(err, models.ErrUnauthorizedKnowledgeBase):
		WriteError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, models.ErrJobNotFound),
		errors.Is(err, models.ErrDocumentNotFound),
		errors.Is(err, models.ErrAccountNotFound):
		WriteError(w, http.StatusNotFound, err.Error())
	case errors.As(err, &limitErr):
		WriteError(w, http.StatusRequestEntityTooLarge, limitErr.Error())
	case errors.As(err, &transitionErr):
		WriteError(w, http.StatusConflict, transitionErr.Error())
	default:
		WriteError(w, http.StatusInternalServerError, err.Error())
	}
}
