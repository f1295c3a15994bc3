// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package empower

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/tls"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"sync"
	"time"
)

// Default client configuration values
const (
	DefaultService            = "WebAPI"
	DefaultMaxRetries         = 3
	DefaultBackoffMinDelay    = 1 * time.Second
	DefaultBackoffMaxDelay    = 60 * time.Second
	DefaultBackoffDelayFactor = 2
	DefaultRequestTimeout     = 30 * time.Second
	DefaultVerifyCertificate  = true
	DefaultPrettyPrintLogs    = false
)

// Security limits for JSON processing and logging
const (
	MaxJSONSizeForLogging = 1 * 1024 * 1024 // 1MB limit to prevent ReDoS attacks
	MaxSensitiveFields    = 1000            // Max redaction operations to prevent DoS
)

// Logging message constants
const (
	JSONTooLargeMessage     = "[JSON TOO LARGE FOR LOGGING]"
	JSONTooManySensitiveMsg = "[JSON CONTAINS TOO MANY SENSITIVE FIELDS]"
)

// sensitiveFields are the JSON fields redacted from logged bodies
var sensitiveFields = []string{"password", "token", "secret", "auth"}

// defaultRedactionPatterns contains regex patterns for redacting sensitive data in logs
var defaultRedactionPatterns = func() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, 0, len(sensitiveFields))
	for _, field := range sensitiveFields {
		patterns = append(patterns, regexp.MustCompile(`"`+field+`"\s*:\s*"[^"]*"`))
	}
	return patterns
}()

// Client is a session with an Empower web API service
//
// The Client is safe for concurrent use. The session token is obtained
// lazily on the first request and renewed once when the server answers
// 401 Unauthorized.
type Client struct {
	httpClient *http.Client

	// RWMutex to synchronize access to the session
	mu sync.RWMutex

	// Session state
	token     string
	sessionID string

	// Connection parameters
	Address  string
	Project  string
	Service  string
	username string // unexported for security
	password string // unexported for security

	// TLS options
	VerifyCertificate bool

	// Timeout configuration
	RequestTimeout time.Duration

	// Retry configuration
	MaxRetries         int
	BackoffMinDelay    time.Duration
	BackoffMaxDelay    time.Duration
	BackoffDelayFactor float64

	// Instrument method variants
	methods     *MethodFactory
	methodTypes map[string]MethodConstructor

	// Logging configuration
	logger            Logger
	prettyPrintLogs   bool
	redactionPatterns []*regexp.Regexp
}

// NewClient creates a new Empower client for the web API at address
//
// The client does NOT log in immediately. The session is created on the
// first request (lazy login). Use Login to verify credentials explicitly.
//
// Example:
//
//	client, err := empower.NewClient(
//	    "https://empower.example.com:3076",
//	    empower.Username("system"),
//	    empower.Password("secret"),
//	    empower.Project("Mobile"),
//	)
//	if err != nil {
//	    log.Fatal(err) // Configuration error
//	}
//	defer client.Close()
//
//	methods, err := client.GetMethodList(ctx, "")
//
// Returns a configured Client or an error if configuration validation fails.
func NewClient(address string, opts ...func(*Client)) (*Client, error) {
	client := &Client{
		Address:            strings.TrimRight(strings.TrimSpace(address), "/"),
		Service:            DefaultService,
		VerifyCertificate:  DefaultVerifyCertificate,
		RequestTimeout:     DefaultRequestTimeout,
		MaxRetries:         DefaultMaxRetries,
		BackoffMinDelay:    DefaultBackoffMinDelay,
		BackoffMaxDelay:    DefaultBackoffMaxDelay,
		BackoffDelayFactor: DefaultBackoffDelayFactor,
		logger:             &NoOpLogger{},
		prettyPrintLogs:    DefaultPrettyPrintLogs,
		redactionPatterns:  defaultRedactionPatterns,
	}
	for _, opt := range opts {
		opt(client)
	}

	if err := client.validateConfig(); err != nil {
		return nil, err
	}

	if client.httpClient == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if !client.VerifyCertificate {
			//nolint:gosec // G402: explicitly requested by the caller
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
		}
		client.httpClient = &http.Client{Transport: transport}
	}

	client.methods = NewMethodFactory(client.logger)
	for name, ctor := range client.methodTypes {
		client.methods.Register(name, ctor)
	}

	client.logger.Info(context.Background(), "Empower client created",
		"address", client.Address,
		"project", client.Project,
		"session", "lazy")

	return client, nil
}

// Methods returns the factory used to wrap instrument method modules
func (c *Client) Methods() *MethodFactory {
	return c.methods
}

// HasCredentials returns true if credentials are configured
//
// This method only indicates if credentials exist without exposing
// the actual values.
func (c *Client) HasCredentials() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.username != "" || c.password != ""
}

// HasSession returns true if the client currently holds a session token
func (c *Client) HasSession() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token != ""
}

// Close logs out and discards the session (terminal operation).
//
// Safe to call multiple times; subsequent calls are no-ops.
func (c *Client) Close() error {
	if !c.HasSession() {
		return nil
	}
	return c.Logout(context.Background())
}

// Backoff calculates the backoff delay for retry attempt using exponential backoff with jitter
//
// The formula is: delay = min(minDelay * (factor ^ attempt) + jitter, maxDelay)
// where jitter is a cryptographically secure random value in [0, delay * 0.1].
//
// If crypto/rand fails, falls back to timestamp-based jitter.
//
// Parameters:
//   - attempt: The retry attempt number (0-indexed)
//
// Returns the duration to wait before retrying.
func (c *Client) Backoff(attempt int) time.Duration {
	delay := float64(c.BackoffMinDelay) * math.Pow(c.BackoffDelayFactor, float64(attempt))

	if math.IsInf(delay, 1) || delay > float64(c.BackoffMaxDelay) {
		delay = float64(c.BackoffMaxDelay)
	}

	baseDelay := delay

	// Jitter (0-10% of delay) to prevent thundering herd
	jitterMax := int64(delay * 0.1)
	var jitterVal int64
	if jitterMax > 0 {
		var jitterBytes [8]byte
		if _, err := rand.Read(jitterBytes[:]); err == nil {
			//nolint:gosec // G115: masked to prevent overflow
			jitterVal = int64(binary.BigEndian.Uint64(jitterBytes[:]) & 0x7FFFFFFFFFFFFFFF)
			jitterVal = jitterVal % jitterMax
			delay += float64(jitterVal)
		} else {
			timestamp := time.Now().UnixNano()
			jitterVal = (timestamp%jitterMax + jitterMax) % jitterMax
			delay += float64(jitterVal)

			c.logger.Warn(context.Background(), "crypto/rand failed, using timestamp-based jitter",
				"error", err.Error(),
				"attempt", attempt,
				"jitter_ms", time.Duration(jitterVal).Milliseconds())
		}
	}

	finalDelay := time.Duration(delay)

	c.logger.Debug(context.Background(), "Backoff calculated",
		"attempt", attempt,
		"base_delay_ms", time.Duration(baseDelay).Milliseconds(),
		"jitter_ms", time.Duration(jitterVal).Milliseconds(),
		"final_delay_ms", finalDelay.Milliseconds())

	return finalDelay
}

// prepareJSONForLogging redacts sensitive data and formats JSON for logging
//
//  1. Validates JSON size to prevent ReDoS attacks (max 1MB)
//  2. Checks sensitive field count to prevent DoS (max 1000 fields)
//  3. Redacts passwords and tokens
//  4. Pretty-prints JSON if prettyPrintLogs is enabled
func (c *Client) prepareJSONForLogging(jsonStr string) string {
	if len(jsonStr) > MaxJSONSizeForLogging {
		return JSONTooLargeMessage
	}

	sensitiveCount := 0
	for _, field := range sensitiveFields {
		sensitiveCount += strings.Count(jsonStr, `"`+field+`"`)
	}
	if sensitiveCount > MaxSensitiveFields {
		c.logger.Warn(context.Background(), "Too many sensitive fields detected",
			"count", sensitiveCount,
			"max", MaxSensitiveFields)
		return JSONTooManySensitiveMsg
	}

	redacted := c.redactSensitiveData(jsonStr)

	if c.prettyPrintLogs {
		var buf bytes.Buffer
		if err := json.Indent(&buf, []byte(redacted), "", "  "); err == nil {
			return buf.String()
		}
	}

	return redacted
}

// redactSensitiveData replaces sensitive values in JSON with [REDACTED]
func (c *Client) redactSensitiveData(json string) string {
	result := json
	for i, pattern := range c.redactionPatterns {
		result = pattern.ReplaceAllString(result, `"`+sensitiveFields[i]+`":"[REDACTED]"`)
	}
	return result
}

// validateConfig validates client configuration
//
// Validates:
//   - Address is an absolute http or https URL
//   - Positive request timeout
//   - Retry params (MaxRetries >= 0, BackoffMinDelay > 0, BackoffMaxDelay > BackoffMinDelay)
//   - BackoffDelayFactor >= 1.0
//
// Returns an error if validation fails.
func (c *Client) validateConfig() error {
	if c.Address == "" {
		return fmt.Errorf("address cannot be empty")
	}
	u, err := url.Parse(c.Address)
	if err != nil {
		return fmt.Errorf("invalid address: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("invalid address scheme: %q (must be http or https)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("address must include a host: %s", c.Address)
	}

	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive, got: %v", c.RequestTimeout)
	}

	if c.MaxRetries < 0 {
		return fmt.Errorf("max retries must be non-negative, got: %d", c.MaxRetries)
	}
	if c.BackoffMinDelay <= 0 {
		return fmt.Errorf("backoff min delay must be positive, got: %v", c.BackoffMinDelay)
	}
	if c.BackoffMaxDelay <= c.BackoffMinDelay {
		return fmt.Errorf("backoff max delay (%v) must be greater than min delay (%v)",
			c.BackoffMaxDelay, c.BackoffMinDelay)
	}
	if c.BackoffDelayFactor < 1.0 {
		return fmt.Errorf("backoff delay factor must be >= 1.0, got: %f", c.BackoffDelayFactor)
	}

	if !c.VerifyCertificate {
		c.logger.Warn(context.Background(), "TLS certificate verification disabled",
			"address", c.Address,
			"security_risk", "Man-in-the-Middle attacks possible",
			"recommendation", "Use only in testing environments")
	}

	if u.Scheme == "http" {
		c.logger.Warn(context.Background(), "TLS disabled - connection is not encrypted",
			"address", c.Address,
			"security_risk", "Credentials transmitted in clear text",
			"recommendation", "Use https for production use")
	}

	if c.username == "" || c.password == "" {
		c.logger.Warn(context.Background(), "Credentials incomplete",
			"address", c.Address,
			"message", "login will likely be rejected")
	}

	return nil
}
