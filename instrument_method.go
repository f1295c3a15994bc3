// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package empower

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/tidwall/gjson"
)

// InstrumentMethodDefinition is an instrument method as stored in Empower
//
// Each module of the method is wrapped in a Method created by the client's
// MethodFactory, so a "rAcquityFTN" module is a *SampleManager. Edits made
// through the modules are written back by Render; everything else in the
// server document is posted back unchanged.
type InstrumentMethodDefinition struct {
	// Name is the instrument method name
	Name string

	// Modules holds one Method per module, in server order
	Modules []Method

	// raw is the method document as received
	raw string
}

// NewInstrumentMethodDefinition parses an instrument method document
//
// Module values that are not JSON strings are passed to the factory as their
// raw JSON text. A nil factory uses the default method types.
func NewInstrumentMethodDefinition(document string, factory *MethodFactory) (*InstrumentMethodDefinition, error) {
	if !gjson.Valid(document) {
		return nil, fmt.Errorf("instrument method: invalid JSON: %w", ErrUnexpectedResponse)
	}
	if factory == nil {
		factory = NewMethodFactory(nil)
	}

	doc := gjson.Parse(document)
	if !doc.IsObject() {
		return nil, fmt.Errorf("instrument method: document is not an object: %w", ErrUnexpectedResponse)
	}

	def := &InstrumentMethodDefinition{
		Name: doc.Get("name").String(),
		raw:  document,
	}
	for _, module := range doc.Get("modules").Array() {
		record := map[string]string{}
		module.ForEach(func(key, value gjson.Result) bool {
			if value.Type == gjson.String {
				record[key.String()] = value.String()
			} else {
				record[key.String()] = value.Raw
			}
			return true
		})
		def.Modules = append(def.Modules, factory.New(record))
	}
	return def, nil
}

// Module returns the first module of the given module type
func (d *InstrumentMethodDefinition) Module(moduleType string) (Method, bool) {
	for _, m := range d.Modules {
		if m.Original()[NameKey] == moduleType {
			return m, true
		}
	}
	return nil, false
}

// ColumnHandlers returns every module that exposes a column temperature
func (d *InstrumentMethodDefinition) ColumnHandlers() []ColumnHandler {
	var out []ColumnHandler
	for _, m := range d.Modules {
		if h, ok := m.(ColumnHandler); ok {
			out = append(out, h)
		}
	}
	return out
}

// Render returns the method document with the current state of every module
//
// Only module values that differ from the received definition are written,
// so unknown fields keep their original JSON.
func (d *InstrumentMethodDefinition) Render() (string, error) {
	b := NewBody(d.raw)
	if d.Name != gjson.Get(d.raw, "name").String() {
		b = b.Set("name", d.Name)
	}

	for i, m := range d.Modules {
		current, err := m.Current()
		if err != nil {
			return "", fmt.Errorf("module %d: %w", i, err)
		}
		original := m.Original()
		for key, value := range current {
			if value == original[key] {
				continue
			}
			b = b.Set("modules."+strconv.Itoa(i)+"."+escapePathKey(key), value)
		}
	}
	return b.String()
}

// escapePathKey escapes the sjson path characters in a single key
func escapePathKey(key string) string {
	out := make([]byte, 0, len(key))
	for i := 0; i < len(key); i++ {
		switch key[i] {
		case '.', '*', '?', '|', '#', '@', '\\':
			out = append(out, '\\')
		}
		out = append(out, key[i])
	}
	return string(out)
}

// GetInstrumentMethod fetches an instrument method by name
//
// Example:
//
//	method, err := client.GetInstrumentMethod(ctx, "Assay_Gradient_IM")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, h := range method.ColumnHandlers() {
//	    _ = h.SetColumnTemperature("45.0")
//	}
//	err = client.PostInstrumentMethod(ctx, method, empower.PostMethodOptions{Overwrite: true})
func (c *Client) GetInstrumentMethod(ctx context.Context, name string, mods ...func(*Req)) (*InstrumentMethodDefinition, error) {
	if err := validateName("instrument method name", name); err != nil {
		return nil, fmt.Errorf("get instrument method: %w", err)
	}

	res, err := c.do(ctx, call{
		operation: "get instrument method",
		method:    http.MethodGet,
		endpoint:  endpoint("project/methods/instrument-method", "name", name),
		auth:      true,
		relogin:   true,
	}, mods...)
	if err != nil {
		return nil, err
	}

	document := res.GetValue("results.0")
	if !document.Exists() {
		return nil, fmt.Errorf("get instrument method %s: no results in response: %w", name, ErrUnexpectedResponse)
	}

	def, err := NewInstrumentMethodDefinition(document.Raw, c.methods)
	if err != nil {
		return nil, fmt.Errorf("get instrument method %s: %w", name, err)
	}

	c.logger.Debug(ctx, "Instrument method loaded",
		"name", def.Name,
		"modules", len(def.Modules))
	return def, nil
}

// PostMethodOptions control how an instrument method is saved
type PostMethodOptions struct {
	// Overwrite replaces an existing method with the same name
	Overwrite bool

	// AuditTrailComment is recorded in the Empower audit trail
	AuditTrailComment string
}

// PostInstrumentMethod saves an instrument method with all queued module edits
//
// Set def.Name before posting to save a copy under a new name.
func (c *Client) PostInstrumentMethod(ctx context.Context, def *InstrumentMethodDefinition, opts PostMethodOptions, mods ...func(*Req)) error {
	if def == nil {
		return fmt.Errorf("post instrument method: definition cannot be nil")
	}
	if err := validateName("instrument method name", def.Name); err != nil {
		return fmt.Errorf("post instrument method: %w", err)
	}

	body, err := def.Render()
	if err != nil {
		return fmt.Errorf("post instrument method %s: %w", def.Name, err)
	}

	_, err = c.post(ctx, "post instrument method",
		endpoint("project/methods/instrument-method",
			"overWriteExisting", strconv.FormatBool(opts.Overwrite),
			"auditTrailComment", opts.AuditTrailComment),
		body, mods...)
	if err != nil {
		return err
	}

	c.logger.Info(ctx, "Instrument method saved",
		"name", def.Name,
		"overwrite", opts.Overwrite)
	return nil
}
