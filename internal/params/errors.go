package params

import (
	"errors"
	"fmt"
)

// Sentinel errors matched by the typed errors below through errors.Is.
var (
	// ErrMissingArgument indicates a mandatory parameter received no value.
	ErrMissingArgument = errors.New("missing task argument")

	// ErrInvalidArgumentValue indicates a value failed its type's validation.
	ErrInvalidArgumentValue = errors.New("invalid argument value")
)

// MissingArgumentError is returned when a mandatory parameter is absent.
type MissingArgumentError struct {
	Param string
}

func (e *MissingArgumentError) Error() string {
	return fmt.Sprintf("missing task argument %s", e.Param)
}

func (e *MissingArgumentError) Is(target error) bool {
	return target == ErrMissingArgument
}

// ValidationError is returned when a supplied value fails the validation of
// its parameter's type. Err holds the originating failure, if any.
type ValidationError struct {
	Param string
	Type  string
	Value interface{}
	Err   error
}

func (e *ValidationError) Error() string {
	msg := fmt.Sprintf("invalid value %v for argument %s of type %s", e.Value, e.Param, e.Type)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidArgumentValue
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}
