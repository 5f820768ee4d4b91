package convert

import (
	"errors"
	"fmt"

	"db-migrate/internal/schema"
)

var (
	errNotInteger  = errors.New("not an integer")
	errNotNumber   = errors.New("not a number")
	errOutOfRange  = errors.New("out of range")
	errUnsupported = errors.New("unsupported source value")
)

// ConversionError means a value could not be coerced into its target column.
type ConversionError struct {
	Column string
	Value  string
	Target schema.Type
	Err    error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("cannot convert %q to %s for column %s: %v", e.Value, e.Target, e.Column, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }
