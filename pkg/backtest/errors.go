package backtest

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfiguration is returned when search inputs are out of range
var ErrInvalidConfiguration = errors.New("invalid configuration")

// ErrDegenerateBounds is returned when no short/long window pair can satisfy
// LongWindow > ShortWindow, i.e. MaxLong <= MinShort
var ErrDegenerateBounds = errors.New("degenerate window bounds")

// ValidationError describes a single rejected input.
// Kind is ErrInvalidConfiguration or ErrDegenerateBounds.
type ValidationError struct {
	Field   string
	Message string
	Kind    error
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap exposes the error kind to errors.Is
func (e ValidationError) Unwrap() error {
	return e.Kind
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (ve ValidationErrors) Error() string {
	if len(ve) == 0 {
		return ""
	}
	if len(ve) == 1 {
		return fmt.Sprintf("%v: %s", ve[0].Kind, ve[0].Error())
	}
	var msgs []string
	for _, err := range ve {
		msgs = append(msgs, err.Error())
	}
	return fmt.Sprintf("%d validation errors: %s", len(ve), strings.Join(msgs, "; "))
}

// Unwrap lets errors.Is and errors.As match any contained error
func (ve ValidationErrors) Unwrap() []error {
	errs := make([]error, len(ve))
	for i, err := range ve {
		errs[i] = err
	}
	return errs
}

func (ve *ValidationErrors) invalid(field, format string, args ...interface{}) {
	*ve = append(*ve, ValidationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
		Kind:    ErrInvalidConfiguration,
	})
}

func (ve *ValidationErrors) degenerate(field, format string, args ...interface{}) {
	*ve = append(*ve, ValidationError{
		Field:   field,
		Message: fmt.Sprintf(format, args...),
		Kind:    ErrDegenerateBounds,
	})
}

// orNil returns nil when no errors were collected
func (ve ValidationErrors) orNil() error {
	if len(ve) == 0 {
		return nil
	}
	return ve
}
