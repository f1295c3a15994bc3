// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package empower

import (
	"testing"

	"github.com/tidwall/gjson"
)

// TestBodySet tests basic Set operation
func TestBodySet(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		value    any
		wantJSON string
	}{
		{name: "set string value", path: "nodeName", value: "HPLC01", wantJSON: `{"nodeName":"HPLC01"}`},
		{name: "set integer value", path: "value", value: 5, wantJSON: `{"value":5}`},
		{name: "set float value", path: "value", value: 2.3, wantJSON: `{"value":2.3}`},
		{name: "set nested value", path: "run.nodeName", value: "HPLC01", wantJSON: `{"run":{"nodeName":"HPLC01"}}`},
		{name: "set map value", path: "value", value: map[string]any{"member": "Unknown"}, wantJSON: `{"value":{"member":"Unknown"}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			json, err := Body{}.Set(tt.path, tt.value).String()
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if json != tt.wantJSON {
				t.Errorf("Expected JSON %s, got %s", tt.wantJSON, json)
			}
		})
	}
}

// TestBodySetRaw tests raw JSON values
func TestBodySetRaw(t *testing.T) {
	tests := []struct {
		name     string
		path     string
		raw      string
		wantJSON string
	}{
		{name: "null", path: "sampleSetName", raw: "null", wantJSON: `{"sampleSetName":null}`},
		{name: "exact decimal", path: "value", raw: "40.50", wantJSON: `{"value":40.50}`},
		{name: "empty array", path: "plates", raw: "[]", wantJSON: `{"plates":[]}`},
		{name: "object", path: "line", raw: `{"fields":[]}`, wantJSON: `{"line":{"fields":[]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			json, err := Body{}.SetRaw(tt.path, tt.raw).String()
			if err != nil {
				t.Fatalf("Expected no error, got: %v", err)
			}
			if json != tt.wantJSON {
				t.Errorf("Expected JSON %s, got %s", tt.wantJSON, json)
			}
		})
	}
}

// TestBodyAppend tests appending to arrays
func TestBodyAppend(t *testing.T) {
	json, err := Body{}.
		SetRaw("plates", "[]").
		Append("plates", `{"plateLayoutPosition":"1"}`).
		Append("plates", `{"plateLayoutPosition":"2"}`).
		String()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	plates := gjson.Get(json, "plates").Array()
	if len(plates) != 2 {
		t.Fatalf("plates = %s", json)
	}
	if plates[1].Get("plateLayoutPosition").String() != "2" {
		t.Errorf("append order wrong: %s", json)
	}
}

// TestBodyNewBody tests editing an existing document
func TestBodyNewBody(t *testing.T) {
	doc := `{"name":"IM","modules":[{"name":"rAcquityFTN","xml":"<A>1</A>","nodeType":3}]}`

	json, err := NewBody(doc).Set("modules.0.xml", "<A>2</A>").String()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	want := `{"name":"IM","modules":[{"name":"rAcquityFTN","xml":"<A>2</A>","nodeType":3}]}`
	if json != want {
		t.Errorf("Expected JSON %s, got %s", want, json)
	}
}

// TestBodyDelete tests removing values
func TestBodyDelete(t *testing.T) {
	json, err := Body{}.
		Set("name", "Stability_T0").
		Set("comment", "draft").
		Delete("comment").
		String()
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if json != `{"name":"Stability_T0"}` {
		t.Errorf("Expected JSON %s, got %s", `{"name":"Stability_T0"}`, json)
	}
}

// TestBodyErrorPropagation tests that the first error stops the chain
func TestBodyErrorPropagation(t *testing.T) {
	body := Body{}.
		Set("name", "ok").
		Set("", "invalid").
		Set("other", "ignored")

	if body.Err() == nil {
		t.Fatal("Expected error for empty path")
	}
	json, err := body.String()
	if err == nil {
		t.Errorf("String() returned no error")
	}
	if json != `{"name":"ok"}` {
		t.Errorf("JSON after error = %s", json)
	}
	if body.Res() != "" {
		t.Errorf("Res() = %q, want empty on error", body.Res())
	}
}

// TestBodyImmutability tests that Set returns a new Body
func TestBodyImmutability(t *testing.T) {
	base := Body{}.Set("name", "base")
	_ = base.Set("extra", "value")

	if base.Res() != `{"name":"base"}` {
		t.Errorf("base modified: %s", base.Res())
	}
}

// TestBodyEmptyBody tests the zero value
func TestBodyEmptyBody(t *testing.T) {
	json, err := Body{}.String()
	if err != nil || json != "" {
		t.Errorf("String() = %q, %v; want empty", json, err)
	}
}
