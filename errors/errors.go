// Package errors provides error handling for Obscura.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging
//   - Error wrapping and context
//   - PII-safe error formatting
//
// Usage:
//
//	// Create new error
//	err := errors.New("something went wrong")
//
//	// Wrap with context
//	if err := doSomething(); err != nil {
//	    return errors.Wrap(err, "failed to do something")
//	}
//
//	// Check errors
//	if errors.Is(err, errors.ErrServiceUnavailable) {
//	    // handle unreachable inference backend
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// User-facing messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is        = crdb.Is
	IsAny     = crdb.IsAny
	As        = crdb.As
	Unwrap    = crdb.Unwrap
	UnwrapAll = crdb.UnwrapAll
)

// Assertions
var (
	AssertionFailedf = crdb.AssertionFailedf
)

// Sentinel errors for the processing pipeline.
// Use these with errors.Is() for type-safe error checking.
// Wrap these with errors.Wrap() to add context while preserving the type.
var (
	// ErrServiceUnavailable indicates the inference backend could not be
	// reached after the configured number of retries.
	ErrServiceUnavailable = New("inference service unavailable")

	// ErrInvalidResponse indicates the inference backend answered but the
	// response did not parse as the expected structured shape, even after
	// retries.
	ErrInvalidResponse = New("invalid inference response")

	// ErrTimeout indicates a stage exceeded its deadline.
	ErrTimeout = New("operation timed out")

	// ErrNoCapableWorker indicates no healthy agent exposes the capability a
	// stage requires.
	ErrNoCapableWorker = New("no capable worker")

	// ErrValidation indicates an entity record is missing a required field or
	// carries an uncoercible value. Validation failures drop the record and
	// are never fatal to a stage.
	ErrValidation = New("entity validation failed")
)

// IsServiceUnavailable checks if an error is or wraps ErrServiceUnavailable.
func IsServiceUnavailable(err error) bool {
	return err != nil && Is(err, ErrServiceUnavailable)
}

// IsInvalidResponse checks if an error is or wraps ErrInvalidResponse.
func IsInvalidResponse(err error) bool {
	return err != nil && Is(err, ErrInvalidResponse)
}

// IsTimeout checks if an error is or wraps ErrTimeout.
func IsTimeout(err error) bool {
	return err != nil && Is(err, ErrTimeout)
}

// WrapServiceUnavailable wraps an error as a service-unavailable failure with
// context while preserving the sentinel for errors.Is checks.
func WrapServiceUnavailable(err error, context string) error {
	return Wrap(Wrap(ErrServiceUnavailable, err.Error()), context)
}

// WrapInvalidResponse wraps an error as an invalid-response failure with
// context while preserving the sentinel for errors.Is checks.
func WrapInvalidResponse(err error, context string) error {
	return Wrap(Wrap(ErrInvalidResponse, err.Error()), context)
}

// NewValidationError creates a validation error with a formatted message.
func NewValidationError(format string, args ...interface{}) error {
	return Wrap(ErrValidation, Newf(format, args...).Error())
}
