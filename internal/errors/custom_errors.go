package customerrors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/akashipov/userdirectory/internal/validation"
)

var (
	ErrNotFound       = errors.New("user not found")
	ErrInvalidID      = errors.New("invalid user id")
	ErrDuplicateEmail = errors.New("email already exists")
)

type CustomError struct {
	Status     int                    `json:"-"`
	Message    string                 `json:"message"`
	Field      string                 `json:"field,omitempty"`
	Cause      string                 `json:"error,omitempty"`
	Violations []validation.Violation `json:"errors,omitempty"`
}

func (e *CustomError) Error() string {
	if e.Cause != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Cause)
	}
	return e.Message
}

func (e *CustomError) ReportError(w http.ResponseWriter) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.Status)
	return json.NewEncoder(w).Encode(e)
}

// FromError maps a service error onto its HTTP outcome. action names the
// operation for unclassified failures, e.g. "creating".
func FromError(err error, action string) *CustomError {
	var cErr *CustomError
	if errors.As(err, &cErr) {
		return cErr
	}
	var vErr *validation.Error
	switch {
	case errors.As(err, &vErr):
		return &CustomError{
			Status:     http.StatusBadRequest,
			Message:    "Validation failed",
			Violations: vErr.Violations,
		}
	case errors.Is(err, ErrInvalidID):
		return &CustomError{Status: http.StatusBadRequest, Message: "Invalid user ID"}
	case errors.Is(err, ErrNotFound):
		return &CustomError{Status: http.StatusNotFound, Message: "User not found"}
	case errors.Is(err, ErrDuplicateEmail):
		return &CustomError{Status: http.StatusConflict, Message: "Email already exists", Field: "email"}
	}
	return &CustomError{
		Status:  http.StatusInternalServerError,
		Message: fmt.Sprintf("Error %s user", action),
		Cause:   err.Error(),
	}
}
