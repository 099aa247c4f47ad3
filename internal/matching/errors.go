package matching

import (
	"errors"
	"fmt"
)

// ErrInvalidRequest marks input the assembler refuses to score.
var ErrInvalidRequest = errors.New("matching: invalid request")

// RequestError names the field that failed validation.
type RequestError struct {
	Field  string
	Reason string
}

func (e *RequestError) Error() string {
	return fmt.Sprintf("matching: invalid %s: %s", e.Field, e.Reason)
}

func (e *RequestError) Unwrap() error { return ErrInvalidRequest }

func invalid(field, reason string) error {
	return &RequestError{Field: field, Reason: reason}
}
