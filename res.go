// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package empower

import (
	"github.com/tidwall/gjson"
)

// Res represents an Empower web API response
type Res struct {
	// StatusCode is the HTTP status code
	StatusCode int

	// Body is the raw JSON response body
	Body string

	// RequestID is the X-Request-ID sent with the final attempt
	RequestID string

	// OK indicates if the operation succeeded
	OK bool

	// Errors contains any error information
	Errors []ErrorModel
}

// GetValue retrieves a value from the response body using a gjson path.
//
// Example paths:
//   - "results.0.token" - session token of a login response
//   - "results.#.fields.#(name==\"Name\").value" - method names of a method list
//
// Example:
//
//	res, err := client.Do(ctx, http.MethodGet, "acquisition/nodes", "")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	first := res.GetValue("results.0").String()
func (r Res) GetValue(path string) gjson.Result {
	if r.Body == "" {
		return gjson.Result{}
	}
	return gjson.Get(r.Body, path)
}

// Results returns the elements of the "results" array of the body
func (r Res) Results() []gjson.Result {
	return r.GetValue("results").Array()
}

// Strings returns the "results" array as strings
func (r Res) Strings() []string {
	results := r.Results()
	out := make([]string, 0, len(results))
	for _, result := range results {
		out = append(out, result.String())
	}
	return out
}

// errorModels extracts error messages from an error response body.
//
// Empower reports errors as {"message": "..."} or {"errors": [{"message": "..."}]}
// depending on the endpoint.
func errorModels(statusCode int, body string) []ErrorModel {
	if !gjson.Valid(body) {
		if body == "" {
			return []ErrorModel{{Code: statusCode, Message: httpStatusText(statusCode)}}
		}
		return []ErrorModel{{Code: statusCode, Message: body}}
	}

	var models []ErrorModel
	for _, e := range gjson.Get(body, "errors").Array() {
		models = append(models, ErrorModel{
			Code:    statusCode,
			Message: e.Get("message").String(),
			Details: e.Raw,
		})
	}
	if len(models) > 0 {
		return models
	}

	message := gjson.Get(body, "message").String()
	if message == "" {
		message = httpStatusText(statusCode)
	}
	return []ErrorModel{{Code: statusCode, Message: message, Details: body}}
}
