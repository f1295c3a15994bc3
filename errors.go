// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package empower

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrNoXML is wrapped by ConfigurationError when a method definition has no xml key
var ErrNoXML = errors.New("no xml found in method definition")

// ErrUnexpectedResponse is wrapped when the server answers with a body the
// client cannot interpret (missing results, duplicate fields, ...)
var ErrUnexpectedResponse = errors.New("unexpected response")

// ErrInvalidField is wrapped for every sample field that cannot be sent to Empower
var ErrInvalidField = errors.New("invalid sample field")

// MissingKeyError is returned when a tag does not occur in the method xml
type MissingKeyError struct {
	Key string
}

func (e *MissingKeyError) Error() string {
	return fmt.Sprintf("empower: could not find key %s", e.Key)
}

// AmbiguousKeyError is returned when a tag occurs more than once in the method xml.
//
// Use InstrumentMethod.QueueReplace on the whole tag text when a tag is
// intentionally repeated.
type AmbiguousKeyError struct {
	Key string
}

func (e *AmbiguousKeyError) Error() string {
	return fmt.Sprintf("empower: found more than one match for key %s", e.Key)
}

// ConfigurationError is returned when a method definition cannot support
// the requested operation, e.g. edits against a definition without xml.
type ConfigurationError struct {
	// Op is the method operation that failed (Current, Get, Set)
	Op string

	// Err is the underlying cause
	Err error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("empower: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying cause
func (e *ConfigurationError) Unwrap() error {
	return e.Err
}

// EmpowerError represents a failed Empower API call with operation context
type EmpowerError struct {
	// Operation name that failed
	Operation string

	// StatusCode is the HTTP status code (0 if no response was received)
	StatusCode int

	// Errors parsed from the response body
	Errors []ErrorModel

	// Human-readable error message
	Message string

	// InternalMsg contains detailed error information for internal logging
	InternalMsg string

	// Number of retry attempts made
	Retries int

	// IsTransient indicates if the error is transient and was retried
	IsTransient bool
}

// Error implements the error interface
func (e *EmpowerError) Error() string {
	if e.Retries > 0 {
		return fmt.Sprintf("empower: %s failed: %s (retries: %d)", e.Operation, e.Message, e.Retries)
	}
	return fmt.Sprintf("empower: %s failed: %s", e.Operation, e.Message)
}

// DetailedError returns the full error message including internal details
//
// This should only be used in secure logging contexts where sensitive information
// disclosure is acceptable (e.g., server-side logs, debug output).
//
// Example:
//
//	if err != nil {
//	    var apiErr *empower.EmpowerError
//	    if errors.As(err, &apiErr) {
//	        log.Print(apiErr.DetailedError())
//	    }
//	}
func (e *EmpowerError) DetailedError() string {
	if e.InternalMsg == "" {
		return e.Error()
	}
	if e.Retries > 0 {
		return fmt.Sprintf("empower: %s failed: %s (internal: %s, retries: %d)",
			e.Operation, e.Message, e.InternalMsg, e.Retries)
	}
	return fmt.Sprintf("empower: %s failed: %s (internal: %s)",
		e.Operation, e.Message, e.InternalMsg)
}

// ErrorModel represents one error reported by the Empower API
type ErrorModel struct {
	// Code is the HTTP status code
	Code int

	// Message is the error message
	Message string

	// Details contains additional error information
	Details string
}

// TransientError defines patterns for detecting transient errors that should be retried
type TransientError struct {
	// StatusCode is the HTTP status code to match
	StatusCode int
}

// TransientErrors defines the HTTP status codes that trigger automatic retry
//
// These are typically caused by temporary conditions such as:
//   - Rate limiting (too many requests)
//   - Gateway errors from a proxy in front of the Empower web API
//   - Service unavailable while the Empower services restart
//
// NOTE: 500 Internal Server Error is excluded. Empower reports many permanent
// failures (invalid field values, locked projects) as 500, and retrying them
// only delays the error.
var TransientErrors = []TransientError{
	// Rate limiting
	{StatusCode: http.StatusTooManyRequests},

	// Proxy could not reach the service
	{StatusCode: http.StatusBadGateway},

	// Service temporarily unavailable
	{StatusCode: http.StatusServiceUnavailable},

	// Proxy timed out waiting for the service
	{StatusCode: http.StatusGatewayTimeout},
}
