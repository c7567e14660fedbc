package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorType represents the classification of errors surfaced by askview.
type ErrorType int

const (
	// ErrorTypePermanent - the caller sent something that will never decode
	// or validate; retrying the same input is pointless.
	ErrorTypePermanent ErrorType = iota
	// ErrorTypeDegraded - processing continued with a fallback value.
	ErrorTypeDegraded
	// ErrorTypeInternal - unexpected failure inside askview.
	ErrorTypeInternal
)

func (t ErrorType) String() string {
	switch t {
	case ErrorTypePermanent:
		return "permanent"
	case ErrorTypeDegraded:
		return "degraded"
	case ErrorTypeInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// PermanentError represents an invalid request or input.
type PermanentError struct {
	Err        error
	StatusCode int    // HTTP status code if applicable
	Message    string // caller-facing message
}

func (e *PermanentError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("permanent error: %v", e.Err)
}

func (e *PermanentError) Unwrap() error {
	return e.Err
}

// DegradedError represents a failure where processing continues with
// FallbackContent, e.g. a payload string that was expected to hold JSON.
type DegradedError struct {
	Err             error
	FallbackContent string // Alternative content to use
	Message         string
}

func (e *DegradedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("degraded error: %v", e.Err)
}

func (e *DegradedError) Unwrap() error {
	return e.Err
}

// IsPermanent checks if an error was caused by invalid input.
func IsPermanent(err error) bool {
	var permanentErr *PermanentError
	return errors.As(err, &permanentErr)
}

// IsDegraded checks if an error allows degraded service
func IsDegraded(err error) bool {
	var degradedErr *DegradedError
	return errors.As(err, &degradedErr)
}

// FallbackContent returns the fallback carried by a DegradedError in err's
// chain.
func FallbackContent(err error) (string, bool) {
	var degradedErr *DegradedError
	if errors.As(err, &degradedErr) {
		return degradedErr.FallbackContent, true
	}
	return "", false
}

// GetErrorType classifies an error
func GetErrorType(err error) ErrorType {
	switch {
	case err == nil:
		return ErrorTypeInternal
	case IsDegraded(err):
		return ErrorTypeDegraded
	case IsPermanent(err):
		return ErrorTypePermanent
	default:
		return ErrorTypeInternal
	}
}

// HTTPStatus maps an error to the status code the delivery layer responds
// with.
func HTTPStatus(err error) int {
	var permanentErr *PermanentError
	if errors.As(err, &permanentErr) {
		if permanentErr.StatusCode > 0 {
			return permanentErr.StatusCode
		}
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

// FormatForUser converts an error to a short caller-facing message.
func FormatForUser(err error) string {
	if err == nil {
		return ""
	}

	var permanentErr *PermanentError
	if errors.As(err, &permanentErr) && permanentErr.Message != "" {
		return permanentErr.Message
	}

	var degradedErr *DegradedError
	if errors.As(err, &degradedErr) && degradedErr.Message != "" {
		return degradedErr.Message
	}

	lowerErr := strings.ToLower(err.Error())
	if strings.Contains(lowerErr, "context canceled") || strings.Contains(lowerErr, "deadline exceeded") {
		return "Request was cancelled before decoding finished."
	}
	return "Internal error while decoding tool output."
}

// Helper constructors

// NewPermanentError creates a new permanent error with a caller-facing message
func NewPermanentError(err error, message string) *PermanentError {
	return &PermanentError{
		Err:     err,
		Message: message,
	}
}

// NewValidationError creates a permanent error answered with 400.
func NewValidationError(err error, message string) *PermanentError {
	return &PermanentError{
		Err:        err,
		StatusCode: http.StatusBadRequest,
		Message:    message,
	}
}

// NewDegradedError creates a new degraded error with fallback content
func NewDegradedError(err error, message, fallback string) *DegradedError {
	return &DegradedError{
		Err:             err,
		Message:         message,
		FallbackContent: fallback,
	}
}
