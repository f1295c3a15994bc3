// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package empower

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RequestIDHeader carries a per-attempt request id for correlation with server logs
const RequestIDHeader = "X-Request-ID"

// call describes one logical API call
type call struct {
	operation string
	method    string
	endpoint  string
	body      string

	// auth sends the session token (logging in first if needed)
	auth bool

	// relogin renews the session once on 401 Unauthorized
	relogin bool
}

// Do performs an authenticated request against the Empower web API
//
// The endpoint is relative to the client address, e.g. "acquisition/nodes".
// The body is sent as JSON when not empty. Transient failures are retried,
// and the session is renewed once if the server answers 401.
//
// Example:
//
//	res, err := client.Do(ctx, http.MethodGet, "project/fields?fieldType=Sample", "")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, field := range res.Results() {
//	    fmt.Println(field.Get("name").String())
//	}
func (c *Client) Do(ctx context.Context, method, endpoint, body string, mods ...func(*Req)) (Res, error) {
	return c.do(ctx, call{
		operation: method + " " + endpoint,
		method:    method,
		endpoint:  endpoint,
		body:      body,
		auth:      true,
		relogin:   true,
	}, mods...)
}

// Login opens a session with the configured credentials and project
//
// Login is called automatically before the first request; call it
// explicitly to verify credentials early.
func (c *Client) Login(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loginLocked(ctx)
}

// loginLocked performs the login request and stores the session.
//
// PRECONDITION: Caller must hold c.mu.Lock() (write lock).
func (c *Client) loginLocked(ctx context.Context) error {
	body, err := Body{}.
		Set("service", c.Service).
		Set("password", c.password).
		Set("username", c.username).
		Set("project", c.Project).
		String()
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}

	res, err := c.do(ctx, call{
		operation: "login",
		method:    http.MethodPost,
		endpoint:  "authentication/login",
		body:      body,
	})
	if err != nil {
		return err
	}

	token := res.GetValue("results.0.token").String()
	if token == "" {
		return fmt.Errorf("login: no token in response: %w", ErrUnexpectedResponse)
	}
	c.token = token
	c.sessionID = res.GetValue("results.0.id").String()

	c.logger.Info(ctx, "Empower session opened",
		"address", c.Address,
		"project", c.Project,
		"username", c.username)

	return nil
}

// Logout closes the current session
//
// The session is discarded even if the server rejects the logout request.
func (c *Client) Logout(ctx context.Context) error {
	c.mu.RLock()
	sessionID := c.sessionID
	hasSession := c.token != ""
	c.mu.RUnlock()

	if !hasSession {
		return nil
	}

	_, err := c.do(ctx, call{
		operation: "logout",
		method:    http.MethodDelete,
		endpoint:  endpoint("authentication/logout", "sessionInfoID", sessionID),
		auth:      true,
	})

	c.mu.Lock()
	c.token = ""
	c.sessionID = ""
	c.mu.Unlock()

	if err != nil {
		return err
	}

	c.logger.Info(ctx, "Empower session closed",
		"address", c.Address)

	return nil
}

// ensureSession logs in if no session exists (lazy login)
func (c *Client) ensureSession(ctx context.Context) error {
	if c.HasSession() {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Another goroutine may have logged in while waiting for the lock
	if c.token != "" {
		return nil
	}

	c.logger.Debug(ctx, "Opening Empower session",
		"address", c.Address)

	return c.loginLocked(ctx)
}

// renewSession logs in again unless another goroutine already replaced staleToken
func (c *Client) renewSession(ctx context.Context, staleToken string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.token != staleToken {
		return nil
	}

	c.logger.Warn(ctx, "Empower session rejected, logging in again",
		"address", c.Address)

	c.token = ""
	c.sessionID = ""
	return c.loginLocked(ctx)
}

// currentToken returns the session token
func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// do executes a call with lazy login, retries and re-login
func (c *Client) do(ctx context.Context, cl call, mods ...func(*Req)) (Res, error) {
	if err := checkContextCancellation(ctx); err != nil {
		return Res{
			OK:     false,
			Errors: []ErrorModel{{Message: err.Error()}},
		}, fmt.Errorf("%s: %w", cl.operation, err)
	}

	req := newReq(mods)
	ep := withQuery(cl.endpoint, req.Query)

	if cl.auth {
		if err := c.ensureSession(ctx); err != nil {
			return Res{
				OK:     false,
				Errors: []ErrorModel{{Message: err.Error()}},
			}, fmt.Errorf("%s: %w", cl.operation, err)
		}
	}

	c.logger.Debug(ctx, "Empower request",
		"operation", cl.operation,
		"method", cl.method,
		"endpoint", ep)
	if cl.body != "" {
		c.logger.Debug(ctx, "Empower request body",
			"operation", cl.operation,
			"body", c.prepareJSONForLogging(cl.body))
	}

	var (
		statusCode int
		respBody   string
		requestID  string
		lastErr    error
		transient  bool
		retries    int
		renewed    bool
	)

	for attempt := 0; attempt <= c.MaxRetries; attempt++ {
		if err := checkContextCancellation(ctx); err != nil {
			return Res{
				OK:     false,
				Errors: []ErrorModel{{Message: fmt.Sprintf("context canceled: %s", err.Error())}},
			}, fmt.Errorf("%s: %w", cl.operation, err)
		}

		token := ""
		if cl.auth {
			token = c.currentToken()
		}

		attemptCtx, attemptCancel := c.createAttemptContext(ctx, req)
		requestID = uuid.NewString()
		statusCode, respBody, lastErr = c.send(attemptCtx, cl.method, ep, cl.body, token, requestID)
		attemptCancel()

		if lastErr == nil && statusCode >= 200 && statusCode < 300 {
			c.logger.Debug(ctx, "Empower response",
				"operation", cl.operation,
				"status", statusCode,
				"request_id", requestID,
				"body", c.prepareJSONForLogging(respBody))
			return Res{
				StatusCode: statusCode,
				Body:       respBody,
				RequestID:  requestID,
				OK:         true,
			}, nil
		}

		if lastErr == nil && statusCode == http.StatusUnauthorized && cl.auth && cl.relogin && !renewed {
			renewed = true
			if err := c.renewSession(ctx, token); err != nil {
				c.logger.Error(ctx, "Empower re-login failed",
					"operation", cl.operation,
					"error", err.Error())
				return Res{
					OK:     false,
					Errors: []ErrorModel{{Code: statusCode, Message: fmt.Sprintf("session rejected and re-login failed: %s", err.Error())}},
				}, fmt.Errorf("%s: re-login failed: %w", cl.operation, err)
			}
			// The renewed attempt does not count as a retry
			attempt--
			continue
		}

		transient = c.isTransient(lastErr, statusCode)
		if !transient || attempt >= c.MaxRetries {
			break
		}

		retries++
		backoff := c.Backoff(attempt)
		c.logger.Warn(ctx, "transient error, retrying",
			"operation", cl.operation,
			"attempt", attempt+1,
			"max_retries", c.MaxRetries,
			"backoff", backoff,
			"status", statusCode,
			"request_id", requestID)

		select {
		case <-time.After(backoff):
			continue
		case <-ctx.Done():
			return Res{
				OK:     false,
				Errors: []ErrorModel{{Message: fmt.Sprintf("context canceled during backoff: %s", ctx.Err().Error())}},
			}, fmt.Errorf("%s: context canceled during backoff: %w", cl.operation, ctx.Err())
		}
	}

	apiErr := &EmpowerError{
		Operation:   cl.operation,
		StatusCode:  statusCode,
		Retries:     retries,
		IsTransient: transient,
	}
	if lastErr != nil {
		apiErr.Errors = []ErrorModel{{Message: lastErr.Error()}}
		apiErr.Message = "request failed"
		apiErr.InternalMsg = lastErr.Error()
	} else {
		apiErr.Errors = errorModels(statusCode, respBody)
		apiErr.Message = fmt.Sprintf("%d %s", statusCode, apiErr.Errors[0].Message)
		apiErr.InternalMsg = truncateBody(respBody)
	}

	c.logger.Error(ctx, "Empower request failed",
		"operation", cl.operation,
		"status", statusCode,
		"request_id", requestID,
		"error", apiErr.DetailedError())

	return Res{
		StatusCode: statusCode,
		Body:       respBody,
		RequestID:  requestID,
		OK:         false,
		Errors:     apiErr.Errors,
	}, apiErr
}

// send performs a single HTTP exchange
func (c *Client) send(ctx context.Context, method, ep, body, token, requestID string) (int, string, error) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.Address+"/"+strings.TrimLeft(ep, "/"), reader)
	if err != nil {
		return 0, "", fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != "" {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	httpReq.Header.Set(RequestIDHeader, requestID)
	if token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close() //nolint:errcheck // read errors are reported below

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, "", fmt.Errorf("failed to read body: %w", err)
	}
	return resp.StatusCode, string(data), nil
}

// isTransient reports whether a failed attempt should be retried
//
// Transient failures are the status codes in TransientErrors, network
// timeouts and refused connections (the Empower services restarting).
func (c *Client) isTransient(err error, statusCode int) bool {
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			c.logger.Debug(context.Background(), "Network timeout is transient",
				"error", err.Error())
			return true
		}
		var opErr *net.OpError
		if errors.As(err, &opErr) && opErr.Op == "dial" {
			c.logger.Debug(context.Background(), "Dial error is transient",
				"error", err.Error())
			return true
		}
		return false
	}

	for _, pattern := range TransientErrors {
		if pattern.StatusCode == statusCode {
			return true
		}
	}
	return false
}

// checkContextCancellation returns the context error if ctx is done
func checkContextCancellation(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

// createAttemptContext creates a new context for a single attempt with timeout
//
// Timeout priority model:
//  1. Request-specific timeout (req.Timeout > 0) - highest priority
//  2. Existing context deadline (ctx.Deadline() set) - medium priority
//  3. Client default timeout (c.RequestTimeout) - fallback
//
// Caller MUST call the returned cancel function after the attempt.
func (c *Client) createAttemptContext(ctx context.Context, req *Req) (context.Context, context.CancelFunc) {
	if req.Timeout > 0 {
		if req.Timeout < time.Second {
			c.logger.Warn(ctx, "request timeout is very short (may not complete)",
				"timeout", req.Timeout.String(),
				"address", c.Address)
		}
		return context.WithTimeout(ctx, req.Timeout)
	}

	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return context.WithCancel(ctx)
	}

	return context.WithTimeout(ctx, c.RequestTimeout)
}

// truncateBody shortens a response body for error messages
func truncateBody(body string) string {
	if len(body) <= 200 {
		return body
	}
	return body[:200] + "..."
}

// httpStatusText returns the status text or a generic message for unknown codes
func httpStatusText(code int) string {
	if text := http.StatusText(code); text != "" {
		return text
	}
	return fmt.Sprintf("status %d", code)
}
