package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"
)

func TestIsPermanent(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "explicit permanent error",
			err:      NewPermanentError(errors.New("test"), "permanent"),
			expected: true,
		},
		{
			name:     "wrapped validation error",
			err:      fmt.Errorf("decode request: %w", NewValidationError(errors.New("bad"), "bad body")),
			expected: true,
		},
		{
			name:     "degraded error",
			err:      NewDegradedError(errors.New("test"), "degraded", "raw"),
			expected: false,
		},
		{
			name:     "plain error",
			err:      errors.New("boom"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := IsPermanent(tt.err)
			if result != tt.expected {
				t.Errorf("IsPermanent(%v) = %v, want %v", tt.err, result, tt.expected)
			}
		})
	}
}

func TestGetErrorType(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected ErrorType
	}{
		{
			name:     "permanent error",
			err:      NewPermanentError(errors.New("test"), "permanent"),
			expected: ErrorTypePermanent,
		},
		{
			name:     "degraded error",
			err:      NewDegradedError(errors.New("test"), "degraded", "fallback"),
			expected: ErrorTypeDegraded,
		},
		{
			name:     "wrapped degraded error",
			err:      fmt.Errorf("parse: %w", NewDegradedError(errors.New("test"), "", "fallback")),
			expected: ErrorTypeDegraded,
		},
		{
			name:     "unknown error",
			err:      errors.New("boom"),
			expected: ErrorTypeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := GetErrorType(tt.err)
			if result != tt.expected {
				t.Errorf("GetErrorType(%v) = %v, want %v", tt.err, result, tt.expected)
			}
		})
	}
}

func TestFallbackContent(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewDegradedError(errors.New("invalid character"), "", "<ask>hi</ask>"))
	fallback, ok := FallbackContent(err)
	if !ok {
		t.Fatalf("expected fallback content to be found")
	}
	if fallback != "<ask>hi</ask>" {
		t.Errorf("unexpected fallback %q", fallback)
	}

	if _, ok := FallbackContent(errors.New("plain")); ok {
		t.Errorf("plain errors carry no fallback")
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"validation", NewValidationError(errors.New("x"), "x"), http.StatusBadRequest},
		{"permanent without status", NewPermanentError(errors.New("x"), "x"), http.StatusBadRequest},
		{"permanent with status", &PermanentError{Err: errors.New("x"), StatusCode: http.StatusRequestEntityTooLarge}, http.StatusRequestEntityTooLarge},
		{"internal", errors.New("x"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HTTPStatus(tt.err); got != tt.expected {
				t.Errorf("HTTPStatus(%v) = %d, want %d", tt.err, got, tt.expected)
			}
		})
	}
}

func TestFormatForUser(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		contains string
	}{
		{
			name:     "nil error",
			err:      nil,
			contains: "",
		},
		{
			name:     "custom permanent message",
			err:      NewPermanentError(errors.New("test"), "items must not be empty"),
			contains: "items must not be empty",
		},
		{
			name:     "custom degraded message",
			err:      NewDegradedError(errors.New("test"), "output kept as text", "raw"),
			contains: "output kept as text",
		},
		{
			name:     "cancelled",
			err:      fmt.Errorf("batch: %w", errors.New("context canceled")),
			contains: "cancelled",
		},
		{
			name:     "unknown",
			err:      errors.New("boom"),
			contains: "Internal error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FormatForUser(tt.err)
			if tt.contains == "" {
				if result != "" {
					t.Errorf("FormatForUser(nil) = %q, want empty", result)
				}
				return
			}
			if !strings.Contains(result, tt.contains) {
				t.Errorf("FormatForUser(%v) = %q, want substring %q", tt.err, result, tt.contains)
			}
		})
	}
}

func TestErrorTypeString(t *testing.T) {
	if ErrorTypeDegraded.String() != "degraded" {
		t.Errorf("unexpected string %q", ErrorTypeDegraded.String())
	}
	if ErrorType(42).String() != "unknown" {
		t.Errorf("unexpected string for unknown type")
	}
}
