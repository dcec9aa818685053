package main

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a failed signing request so the HTTP layer can map it
// to a status code and metrics can count it by cause.
type ErrorKind string

const (
	ErrKindAuth       ErrorKind = "authentication_failure"
	ErrKindValidation ErrorKind = "validation_failure"
	ErrKindPolicy     ErrorKind = "policy_failure"
	ErrKindConfig     ErrorKind = "configuration_failure"
	ErrKindTimeout    ErrorKind = "timeout"
	ErrKindBroadcast  ErrorKind = "broadcast_failure"
	ErrKindInternal   ErrorKind = "internal_failure"
)

const defaultErrorMessage = "an error occurred while processing the request"

// GatewayError is an error that should be sent back to the client verbatim.
// Unlike generic errors, GatewayError messages are guaranteed to be included
// in the error response.
//
// Use GatewayError for failures the caller can act on. For internal errors
// that should not be exposed to clients, use regular errors instead.
//
// Example:
//
//	// Client will receive this exact error message
//	return GatewayErrorf(ErrKindValidation, "invalid destination address: %s", addr)
//
//	// Client will receive a generic error message
//	return fmt.Errorf("database connection failed")
type GatewayError struct {
	Kind ErrorKind
	err  error
}

// GatewayErrorf creates a new GatewayError with a formatted error message that
// will be sent to the client. The message should be clear, actionable, and
// safe to expose to external callers. Avoid including sensitive information
// like internal system details, file paths, or database specifics.
func GatewayErrorf(kind ErrorKind, format string, args ...any) GatewayError {
	return GatewayError{
		Kind: kind,
		err:  fmt.Errorf(format, args...),
	}
}

// Error implements the error interface for GatewayError
func (e GatewayError) Error() string {
	return e.err.Error()
}

// Unwrap exposes the wrapped error for errors.Is / errors.As.
func (e GatewayError) Unwrap() error {
	return e.err
}

// ErrorKindOf extracts the kind from an error chain. Non-gateway errors are
// classified as internal.
func ErrorKindOf(err error) ErrorKind {
	var ge GatewayError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return ErrKindInternal
}

// HTTPStatusForKind maps an error kind to the HTTP status code of the response.
// Timeout is reported as 500 alongside broadcast failures, but keeps its own
// kind so callers and metrics can tell the two apart.
func HTTPStatusForKind(kind ErrorKind) int {
	switch kind {
	case ErrKindAuth:
		return http.StatusUnauthorized
	case ErrKindValidation, ErrKindConfig:
		return http.StatusBadRequest
	case ErrKindPolicy:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// ClientErrorMessage returns the message that is safe to show to the caller.
func ClientErrorMessage(err error) string {
	var ge GatewayError
	if errors.As(err, &ge) {
		return ge.Error()
	}
	return defaultErrorMessage
}
