package salonapi

import (
	"errors"
	"fmt"
)

// ErrNotFound marks 404 responses: no availability, professional or company
// for the given inputs.
var ErrNotFound = errors.New("salonapi: not found")

// APIError is a non-success response from the booking backend, carrying the
// message from its error envelope.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("salonapi: status %d", e.StatusCode)
	}
	return fmt.Sprintf("salonapi: status %d: %s", e.StatusCode, e.Message)
}

// IsServerError reports whether err is a 5xx response from the backend. Its
// error message describes an internal backend failure, not something the
// booking user can act on.
func IsServerError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode >= 500
}
