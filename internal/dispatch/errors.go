package dispatch

import (
	"errors"
	"fmt"
)

// ErrInvalidInput marks requests rejected before any computation.
var ErrInvalidInput = errors.New("invalid input")

// InputError names the offending field. errors.Is(err, ErrInvalidInput)
// holds for every InputError.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

func missing(field string) error { return &InputError{Field: field, Reason: "required"} }
