package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrParse is returned when a string cannot become a typed value.
	ErrParse = errors.New("parse error")

	// ErrValidation is returned when a well-formed value violates its configured constraints.
	ErrValidation = errors.New("validation error")

	// ErrNotFound is returned for an unknown vertex, edge, port or field id.
	ErrNotFound = errors.New("not found")

	// ErrStructural is returned when an edge would violate direction, fan-in or self-loop rules.
	ErrStructural = errors.New("structural error")

	// ErrAlreadyExists is returned when a create or clone request reuses an id.
	ErrAlreadyExists = errors.New("already exists")

	// ErrIncompatibleDiff is returned when a diff is applied or undone against a mismatched state.
	ErrIncompatibleDiff = errors.New("incompatible diff")

	// ErrUnknownType is returned when a layer type tag is not registered.
	ErrUnknownType = errors.New("unknown layer type")

	// ErrUnknownField is returned when a serialized layer names a field the layer does not have.
	ErrUnknownField = errors.New("unknown field")

	// ErrReadonlyField is returned when a caller tries to write a derived (output) field.
	ErrReadonlyField = errors.New("readonly field")

	// ErrCompute marks a failure of a layer's own computation, as opposed to a bad field value.
	ErrCompute = errors.New("layer computation failed")

	// ErrSessionNotFound is returned when a saved session cannot be found in the store.
	ErrSessionNotFound = errors.New("session not found")
)

// ParseError reports a string that is not syntactically valid for a value type.
type ParseError struct {
	Input string
	Type  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("cannot parse %q as %s", e.Input, e.Type)
}

func (e *ParseError) Unwrap() error { return ErrParse }

// ValidationError carries one or more constraint violations.
type ValidationError struct {
	Messages []string
}

// NewValidationError builds a ValidationError from the given messages.
func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Messages: messages}
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Messages, "; ")
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// IncompatibleDiffError signals that history and state have drifted apart.
type IncompatibleDiffError struct {
	Path   string
	Reason string
}

func (e *IncompatibleDiffError) Error() string {
	if e.Path == "" {
		return "incompatible diff: " + e.Reason
	}
	return fmt.Sprintf("incompatible diff at %s: %s", e.Path, e.Reason)
}

func (e *IncompatibleDiffError) Unwrap() error { return ErrIncompatibleDiff }
