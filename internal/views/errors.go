package views

import (
	"errors"
	"fmt"
)

// ErrAdminOnly is returned by intents reserved for the admin role.
var ErrAdminOnly = errors.New("admin role required")

// ValidationError rejects user input before any request is sent.
type ValidationError struct {
	// Field is the offending input field, empty when the rule spans fields.
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// IsValidationError reports whether err is or wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

func invalid(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Message: msg}
}
