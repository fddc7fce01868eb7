package wire

import (
	"errors"
	"fmt"

	"feedsync/feed"
	"feedsync/storage"
)

type Code string

const (
	CodeValidation   Code = "validation"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeNotFound     Code = "not_found"
	CodeBadRequest   Code = "bad_request"
	CodeInternal     Code = "internal"
)

// Error is the structured failure shape crossing the wire boundary.
type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field %s)", e.Code, e.Message, e.Field)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Is lets callers on the client side keep matching the storage sentinels
// with errors.Is after the error has been flattened into a wire shape.
func (e *Error) Is(target error) bool {
	switch target {
	case storage.ErrValidation:
		return e.Code == CodeValidation
	case storage.ErrUnauthorized:
		return e.Code == CodeUnauthorized
	case storage.ErrForbiddenAccess:
		return e.Code == CodeForbidden
	case storage.ErrNotFound:
		return e.Code == CodeNotFound
	case storage.ErrBadRequest:
		return e.Code == CodeBadRequest
	}
	return false
}

func wrap(err error) error {
	if err == nil {
		return nil
	}
	var we *Error
	if errors.As(err, &we) {
		return we
	}
	out := &Error{Code: CodeInternal, Message: err.Error()}
	var ve *storage.ValidationError
	switch {
	case errors.As(err, &ve):
		out.Code = CodeValidation
		out.Field = ve.Field
		out.Message = ve.Reason
	case errors.Is(err, storage.ErrValidation):
		out.Code = CodeValidation
	case errors.Is(err, storage.ErrUnauthorized):
		out.Code = CodeUnauthorized
	case errors.Is(err, storage.ErrForbiddenAccess):
		out.Code = CodeForbidden
	case errors.Is(err, storage.ErrNotFound):
		out.Code = CodeNotFound
	case errors.Is(err, storage.ErrBadRequest),
		errors.Is(err, feed.ErrUnknownFilter),
		errors.Is(err, feed.ErrMissingSubject):
		out.Code = CodeBadRequest
	}
	return out
}

// CodeOf classifies any error produced by this package.
func CodeOf(err error) Code {
	var we *Error
	if errors.As(err, &we) {
		return we.Code
	}
	return CodeInternal
}
