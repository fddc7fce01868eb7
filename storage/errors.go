package storage

import (
	"errors"
	"fmt"
)

var ErrValidation = errors.New("validation failed")
var ErrUnauthorized = errors.New("unauthorized")
var ErrForbiddenAccess = errors.New("forbidden access")
var ErrNotFound = errors.New("not found")
var ErrBadRequest = errors.New("bad request")

// ValidationError carries the offending field so the caller can surface a
// field-level message. errors.Is(err, ErrValidation) holds.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error {
	return ErrValidation
}
