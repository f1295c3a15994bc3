// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package empower

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"
)

// TestEmpowerError_Error tests the Error() method of EmpowerError
func TestEmpowerError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      EmpowerError
		expected string
	}{
		{
			name: "error without retries",
			err: EmpowerError{
				Operation: "get node names",
				Message:   "400 Bad Request",
				Retries:   0,
			},
			expected: "empower: get node names failed: 400 Bad Request",
		},
		{
			name: "error with retries",
			err: EmpowerError{
				Operation: "post experiment",
				Message:   "503 Service Unavailable",
				Retries:   3,
			},
			expected: "empower: post experiment failed: 503 Service Unavailable (retries: 3)",
		},
		{
			name: "error with single retry",
			err: EmpowerError{
				Operation: "login",
				Message:   "request failed",
				Retries:   1,
			},
			expected: "empower: login failed: request failed (retries: 1)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.Error()
			if got != tt.expected {
				t.Errorf("Error() = %q, want %q", got, tt.expected)
			}
		})
	}
}

// TestEmpowerError_DetailedError tests the DetailedError() method
func TestEmpowerError_DetailedError(t *testing.T) {
	tests := []struct {
		name     string
		err      EmpowerError
		expected string
	}{
		{
			name: "error without internal message or retries",
			err: EmpowerError{
				Operation: "get method list",
				Message:   "404 Not Found",
			},
			expected: "empower: get method list failed: 404 Not Found",
		},
		{
			name: "error with internal message, no retries",
			err: EmpowerError{
				Operation:   "get method list",
				Message:     "404 Not Found",
				InternalMsg: `{"message":"project not found"}`,
			},
			expected: `empower: get method list failed: 404 Not Found (internal: {"message":"project not found"})`,
		},
		{
			name: "error with internal message and retries",
			err: EmpowerError{
				Operation:   "run experiment",
				Message:     "503 Service Unavailable",
				InternalMsg: "maintenance",
				Retries:     2,
			},
			expected: "empower: run experiment failed: 503 Service Unavailable (internal: maintenance, retries: 2)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.err.DetailedError()
			if got != tt.expected {
				t.Errorf("DetailedError() = %q, want %q", got, tt.expected)
			}
		})
	}
}

// TestEmpowerError_As tests that wrapped EmpowerErrors are found with errors.As
func TestEmpowerError_As(t *testing.T) {
	err := fmt.Errorf("node HPLC01: %w", &EmpowerError{Operation: "get system names", StatusCode: 500})

	var apiErr *EmpowerError
	if !errors.As(err, &apiErr) {
		t.Fatal("errors.As() failed")
	}
	if apiErr.StatusCode != 500 {
		t.Errorf("StatusCode = %d, want 500", apiErr.StatusCode)
	}
}

// TestConfigurationError tests message and unwrapping of ConfigurationError
func TestConfigurationError(t *testing.T) {
	err := &ConfigurationError{Op: "current", Err: ErrNoXML}

	if got := err.Error(); got != "empower: current: no xml found in method definition" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, ErrNoXML) {
		t.Errorf("errors.Is(err, ErrNoXML) = false")
	}
}

// TestAmbiguousKeyError tests the message of AmbiguousKeyError
func TestAmbiguousKeyError(t *testing.T) {
	err := &AmbiguousKeyError{Key: "ColumnTemperature"}
	if got := err.Error(); got != "empower: found more than one match for key ColumnTemperature" {
		t.Errorf("Error() = %q", got)
	}
}

// timeoutError is a net.Error that reports a timeout
type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

// TestIsTransient tests transient error classification
func TestIsTransient(t *testing.T) {
	client, err := NewClient("https://empower.example.com:3076", Username("system"), Password("secret"))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	tests := []struct {
		name       string
		err        error
		statusCode int
		expected   bool
	}{
		{name: "200 OK", statusCode: http.StatusOK, expected: false},
		{name: "400 Bad Request (permanent)", statusCode: http.StatusBadRequest, expected: false},
		{name: "401 Unauthorized (permanent)", statusCode: http.StatusUnauthorized, expected: false},
		{name: "404 Not Found (permanent)", statusCode: http.StatusNotFound, expected: false},
		{name: "429 Too Many Requests (transient)", statusCode: http.StatusTooManyRequests, expected: true},
		{name: "500 Internal Server Error (permanent - intentionally excluded)", statusCode: http.StatusInternalServerError, expected: false},
		{name: "502 Bad Gateway (transient)", statusCode: http.StatusBadGateway, expected: true},
		{name: "503 Service Unavailable (transient)", statusCode: http.StatusServiceUnavailable, expected: true},
		{name: "504 Gateway Timeout (transient)", statusCode: http.StatusGatewayTimeout, expected: true},
		{name: "network timeout (transient)", err: fmt.Errorf("read: %w", timeoutError{}), expected: true},
		{name: "connection refused (transient)", err: &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, expected: true},
		{name: "other error (permanent)", err: errors.New("malformed response"), expected: false},
		{name: "context canceled (permanent)", err: context.Canceled, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := client.isTransient(tt.err, tt.statusCode)
			if got != tt.expected {
				t.Errorf("isTransient(%v, %d) = %v, want %v", tt.err, tt.statusCode, got, tt.expected)
			}
		})
	}
}

// TestTransientErrors_Coverage tests that all retried status codes are server side
func TestTransientErrors_Coverage(t *testing.T) {
	for _, te := range TransientErrors {
		if te.StatusCode != http.StatusTooManyRequests && te.StatusCode < 500 {
			t.Errorf("unexpected transient status code %d", te.StatusCode)
		}
		if te.StatusCode == http.StatusInternalServerError {
			t.Errorf("500 must not be retried")
		}
	}
}
