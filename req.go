// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package empower

import (
	"net/url"
	"strings"
	"time"
)

// Req represents an Empower request modifier
//
// This struct is used to apply request-specific options via functional modifiers.
// Operation parameters are passed directly to methods.
type Req struct {
	// Timeout is the request-specific timeout
	// Overrides client default timeout if set
	Timeout time.Duration

	// Query holds additional query parameters
	Query url.Values
}

// newReq applies modifiers to a request with empty defaults
func newReq(mods []func(*Req)) *Req {
	req := &Req{Query: url.Values{}}
	for _, mod := range mods {
		mod(req)
	}
	return req
}

// endpoint joins a path and query parameters into an API endpoint.
//
// Parameters are encoded in the given order, e.g.
// endpoint("acquisition/chromatographic-systems", "nodeName", "HPLC01")
// returns "acquisition/chromatographic-systems?nodeName=HPLC01".
func endpoint(path string, keysAndValues ...string) string {
	var parts []string
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		parts = append(parts, url.QueryEscape(keysAndValues[i])+"="+url.QueryEscape(keysAndValues[i+1]))
	}
	if len(parts) == 0 {
		return path
	}
	return path + "?" + strings.Join(parts, "&")
}

// withQuery appends the modifier query parameters to an endpoint
func withQuery(ep string, query url.Values) string {
	if len(query) == 0 {
		return ep
	}
	sep := "?"
	if strings.Contains(ep, "?") {
		sep = "&"
	}
	return ep + sep + query.Encode()
}
