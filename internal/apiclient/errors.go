package apiclient

import (
	"errors"
	"fmt"
	"net/http"
)

const genericMessage = "request failed"

// RequestError is a failed call to the backend. StatusCode is 0 when no HTTP
// response was received.
type RequestError struct {
	Method     string
	Path       string
	StatusCode int
	// Message is the server supplied error text, or a generic fallback.
	Message string
	Err     error
}

func (e *RequestError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Message)
	}
	return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

func (e *RequestError) Unwrap() error { return e.Err }

// IsUnauthorized reports whether err is a 401 from the backend.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// StatusCode extracts the HTTP status of a *RequestError, or 0.
func StatusCode(err error) int {
	var re *RequestError
	if errors.As(err, &re) {
		return re.StatusCode
	}
	return 0
}

// Message returns the text to show a user for err: the server message of a
// *RequestError, otherwise err.Error().
func Message(err error) string {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Message
	}
	return err.Error()
}

// errorBody covers the error shapes the backend is known to return.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (b errorBody) text() string {
	if b.Error != "" {
		return b.Error
	}
	return b.Message
}
