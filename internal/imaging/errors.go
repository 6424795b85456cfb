package imaging

import (
	"fmt"
	"math"
)

// ValidationError reports a malformed numeric parameter. It is returned before
// any raster work begins.
type ValidationError struct {
	// Field is the parameter name as the caller knows it (e.g. "kernel_size").
	Field string

	// Value is the rejected value.
	Value interface{}

	// Reason is a short human-readable constraint, e.g. "must be >= 1".
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %v: %s", e.Field, e.Value, e.Reason)
}

// IOError reports a raster that could not be read or written.
type IOError struct {
	Op   string // "open", "decode", "encode" or "save"
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("failed to %s image %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// checkThreshold rejects negative, NaN and infinite threshold values.
func checkThreshold(field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return &ValidationError{Field: field, Value: v, Reason: "must be a finite number"}
	}
	if v < 0 {
		return &ValidationError{Field: field, Value: v, Reason: "must not be negative"}
	}
	return nil
}

// checkPositive rejects integers below 1.
func checkPositive(field string, v int) error {
	if v < 1 {
		return &ValidationError{Field: field, Value: v, Reason: "must be a positive integer"}
	}
	return nil
}
