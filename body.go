// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package empower

import (
	"fmt"

	"github.com/tidwall/sjson"
)

// Body provides a fluent interface for building Empower request payloads
// using sjson for path-based manipulation.
//
// The Body builder tracks the first error internally to enable method
// chaining; check it with String() or Err().
//
// Example:
//
//	body, err := empower.Body{}.
//	    Set("sampleSetMethodName", "Stability_T0").
//	    Set("nodeName", "HPLC-NODE-01").
//	    Set("systemName", "Acquity01").
//	    SetRaw("sampleSetName", "null").
//	    String()
//	if err != nil {
//	    log.Fatal(err)
//	}
type Body struct {
	// str contains the JSON string being built
	str string
	// err tracks the first error encountered during building
	err error
}

// NewBody starts a Body from an existing JSON document, e.g. a method
// definition returned by the server that is edited and posted back.
func NewBody(json string) Body {
	return Body{str: json}
}

// Set sets a value at the specified path and returns a new Body
//
// The path uses sjson dot notation ("plates.0.plateTypeName"); "-1" as the
// last element appends to an array.
//
// Once an error occurs, all subsequent operations are no-ops that preserve the error.
func (b Body) Set(path string, value any) Body {
	if b.err != nil {
		return b
	}

	result, err := sjson.Set(b.str, path, value)
	if err != nil {
		return Body{str: b.str, err: fmt.Errorf("Set(%q): %w", path, err)}
	}
	return Body{str: result}
}

// SetRaw sets raw JSON at the specified path and returns a new Body
//
// Use this for null, nested documents obtained from another Body, and
// decimal numbers that must keep their exact digits.
func (b Body) SetRaw(path, raw string) Body {
	if b.err != nil {
		return b
	}

	result, err := sjson.SetRaw(b.str, path, raw)
	if err != nil {
		return Body{str: b.str, err: fmt.Errorf("SetRaw(%q): %w", path, err)}
	}
	return Body{str: result}
}

// Append adds raw JSON to the end of the array at path.
//
// The array must exist; start it with SetRaw(path, "[]").
func (b Body) Append(path, raw string) Body {
	return b.SetRaw(path+".-1", raw)
}

// Delete removes a value at the specified path and returns a new Body
func (b Body) Delete(path string) Body {
	if b.err != nil {
		return b
	}

	result, err := sjson.Delete(b.str, path)
	if err != nil {
		return Body{str: b.str, err: fmt.Errorf("Delete(%q): %w", path, err)}
	}
	return Body{str: result}
}

// String returns the JSON string and any error encountered during building
func (b Body) String() (string, error) {
	return b.str, b.err
}

// Err returns any error that occurred during the building process
func (b Body) Err() error {
	return b.err
}

// Res returns the JSON string, or an empty string if building failed
func (b Body) Res() string {
	if b.err != nil {
		return ""
	}
	return b.str
}
