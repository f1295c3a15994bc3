// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package empower

import (
	"net/http"
	"net/url"
	"time"
)

// Client configuration options using the functional options pattern

// Username sets the Empower username used to log in
func Username(username string) func(*Client) {
	return func(c *Client) {
		c.username = username
	}
}

// Password sets the Empower password used to log in
func Password(password string) func(*Client) {
	return func(c *Client) {
		c.password = password
	}
}

// Project sets the Empower project the session is opened in
//
// Nested projects are written with a backslash, e.g. `Mobile\Stability`.
func Project(project string) func(*Client) {
	return func(c *Client) {
		c.Project = project
	}
}

// Service sets the Empower database service name (default: WebAPI)
func Service(service string) func(*Client) {
	return func(c *Client) {
		c.Service = service
	}
}

// VerifyCertificate enables or disables TLS certificate verification (default: true)
//
// WARNING: Disabling certificate verification makes the connection vulnerable
// to Man-in-the-Middle attacks. Empower web API servers frequently run with
// self-signed certificates; install the CA instead where possible.
//
// Ignored when a custom HTTP client is set with WithHTTPClient.
func VerifyCertificate(verify bool) func(*Client) {
	return func(c *Client) {
		c.VerifyCertificate = verify
	}
}

// RequestTimeout sets the per-attempt request timeout (default: 30s)
func RequestTimeout(duration time.Duration) func(*Client) {
	return func(c *Client) {
		c.RequestTimeout = duration
	}
}

// MaxRetries sets the maximum number of retry attempts for transient errors (default: 3)
func MaxRetries(retries int) func(*Client) {
	return func(c *Client) {
		c.MaxRetries = retries
	}
}

// BackoffMinDelay sets the minimum backoff delay (default: 1s)
func BackoffMinDelay(duration time.Duration) func(*Client) {
	return func(c *Client) {
		c.BackoffMinDelay = duration
	}
}

// BackoffMaxDelay sets the maximum backoff delay (default: 60s)
func BackoffMaxDelay(duration time.Duration) func(*Client) {
	return func(c *Client) {
		c.BackoffMaxDelay = duration
	}
}

// BackoffDelayFactor sets the backoff multiplication factor (default: 2.0)
func BackoffDelayFactor(factor float64) func(*Client) {
	return func(c *Client) {
		c.BackoffDelayFactor = factor
	}
}

// WithHTTPClient sets the HTTP client used for all requests
//
// Use this to configure proxies, custom CAs or transports. The client's own
// Timeout should be zero or larger than RequestTimeout.
func WithHTTPClient(httpClient *http.Client) func(*Client) {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithLogger configures a custom logger for the client
//
// By default, the client uses NoOpLogger which discards all log messages.
// The logger is also passed to every instrument method the client creates,
// so no-op edits are reported through it.
//
// Example:
//
//	logger := empower.NewDefaultLogger(empower.LogLevelInfo)
//	client, _ := empower.NewClient("https://empower.example.com:3076",
//	    empower.Username("system"),
//	    empower.Password("secret"),
//	    empower.WithLogger(logger))
func WithLogger(logger Logger) func(*Client) {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPrettyPrintLogs enables/disables JSON pretty printing in debug logs (default: false)
func WithPrettyPrintLogs(enabled bool) func(*Client) {
	return func(c *Client) {
		c.prettyPrintLogs = enabled
	}
}

// WithMethodType registers an instrument method variant for a module name
//
// Example:
//
//	client, _ := empower.NewClient(address,
//	    empower.WithMethodType("rAcquityCM", func(def map[string]string, opts ...empower.MethodOption) empower.Method {
//	        return empower.NewColumnMethod(def, "SetTemperature", opts...)
//	    }))
func WithMethodType(name string, ctor MethodConstructor) func(*Client) {
	return func(c *Client) {
		if c.methodTypes == nil {
			c.methodTypes = map[string]MethodConstructor{}
		}
		c.methodTypes[name] = ctor
	}
}

// Request modifiers for individual operations

// Timeout returns a request modifier that sets a custom timeout for each attempt.
//
// The timeout priority model is:
//  1. Request-specific timeout (this modifier) - highest priority
//  2. Context deadline (if already set) - medium priority
//  3. Client.RequestTimeout - fallback default
//
// Example:
//
//	// Sample set creation can be slow on large projects
//	err := client.PostExperiment(ctx, "Stability_T0", samples, plates, "created by LIMS",
//	    empower.Timeout(2*time.Minute))
func Timeout(duration time.Duration) func(*Req) {
	return func(req *Req) {
		req.Timeout = duration
	}
}

// Query returns a request modifier that adds a query parameter to the request
func Query(key, value string) func(*Req) {
	return func(req *Req) {
		if req.Query == nil {
			req.Query = url.Values{}
		}
		req.Query.Add(key, value)
	}
}
