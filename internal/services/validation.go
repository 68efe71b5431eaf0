package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

// ErrorResponse is the JSON error envelope every endpoint returns.
type ErrorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"` // per-field validation failures
}

// ValidationHelper wraps the shared validator instance used for request
// payloads.
type ValidationHelper struct {
	validator *validator.Validate
}

func NewValidationHelper() *ValidationHelper {
	return &ValidationHelper{
		validator: validator.New(),
	}
}

func (vh *ValidationHelper) ValidateStruct(s any) error {
	return vh.validator.Struct(s)
}

// SendErrorResponse writes the error envelope with optional validation
// details.
func SendErrorResponse(w http.ResponseWriter, message string, statusCode int, validationErr error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	errorResp := ErrorResponse{Error: message}

	var fieldErrs validator.ValidationErrors
	if errors.As(validationErr, &fieldErrs) {
		errorResp.Details = make(map[string]string, len(fieldErrs))
		for _, fieldErr := range fieldErrs {
			errorResp.Details[fieldErr.Field()] = fieldMessage(fieldErr)
		}
	}

	json.NewEncoder(w).Encode(errorResp)
}

func fieldMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "This field is required"
	case "email":
		return "Must be a valid email address"
	case "gt":
		return fmt.Sprintf("Must be greater than %s", err.Param())
	case "min":
		return fmt.Sprintf("Must be at least %s characters", err.Param())
	default:
		return fmt.Sprintf("Field Validation Failed on '%s' tag", err.Tag())
	}
}
