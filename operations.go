// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package empower

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"unicode"

	"golang.org/x/sync/errgroup"
)

// DefaultMethodType is the method type listed by GetMethodList when none is given
const DefaultMethodType = "MethodSetMethod"

// DefaultNodeConcurrency is the number of nodes GetNodeSystems queries at once
const DefaultNodeConcurrency = 4

// MaxNameLength is the maximum length of Empower object names (methods, nodes, systems)
const MaxNameLength = 255

// Input validation functions

// validateName validates the name of an Empower object
//
// Checks:
//   - Name is not empty or whitespace only
//   - Name length does not exceed MaxNameLength
//   - Name contains no control characters (null bytes, line breaks)
func validateName(kind, name string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("%s cannot be empty", kind)
	}
	if len(name) > MaxNameLength {
		return fmt.Errorf("%s exceeds maximum length of %d characters", kind, MaxNameLength)
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("%s contains control character %U", kind, r)
		}
	}
	return nil
}

// getStrings performs a GET and returns the "results" array as strings
func (c *Client) getStrings(ctx context.Context, operation, ep string, mods ...func(*Req)) ([]string, error) {
	res, err := c.do(ctx, call{
		operation: operation,
		method:    http.MethodGet,
		endpoint:  ep,
		auth:      true,
		relogin:   true,
	}, mods...)
	if err != nil {
		return nil, err
	}
	if !res.GetValue("results").IsArray() {
		return nil, fmt.Errorf("%s: no results in response: %w", operation, ErrUnexpectedResponse)
	}
	return res.Strings(), nil
}

// post performs an authenticated POST with a JSON body
func (c *Client) post(ctx context.Context, operation, ep, body string, mods ...func(*Req)) (Res, error) {
	return c.do(ctx, call{
		operation: operation,
		method:    http.MethodPost,
		endpoint:  ep,
		body:      body,
		auth:      true,
		relogin:   true,
	}, mods...)
}

// GetMethodList returns the names of all methods of a method type in the project
//
// An empty methodType lists sample set methods ("MethodSetMethod"). Every
// returned method must carry exactly one "Name" field, otherwise the
// response is rejected with ErrUnexpectedResponse.
//
// Example:
//
//	names, err := client.GetMethodList(ctx, "InstrumentMethod")
func (c *Client) GetMethodList(ctx context.Context, methodType string, mods ...func(*Req)) ([]string, error) {
	if methodType == "" {
		methodType = DefaultMethodType
	}

	res, err := c.do(ctx, call{
		operation: "get method list",
		method:    http.MethodGet,
		endpoint:  endpoint("project/methods", "methodTypes", methodType),
		auth:      true,
		relogin:   true,
	}, mods...)
	if err != nil {
		return nil, err
	}

	results := res.Results()
	names := make([]string, 0, len(results))
	for i, result := range results {
		values := result.Get(`fields.#(name=="Name")#.value`).Array()
		if len(values) != 1 {
			return nil, fmt.Errorf("get method list: method %d has %d Name fields: %w",
				i, len(values), ErrUnexpectedResponse)
		}
		names = append(names, values[0].String())
	}
	return names, nil
}

// GetSampleSetMethods returns the names of all sample set methods in the project
func (c *Client) GetSampleSetMethods(ctx context.Context, mods ...func(*Req)) ([]string, error) {
	return c.getStrings(ctx, "get sample set methods", "project/methods/sample-set-method-list", mods...)
}

// GetPlateTypeNames returns the names of the configured plate types
//
// A non-empty filter only returns plate types whose name contains it.
func (c *Client) GetPlateTypeNames(ctx context.Context, filter string, mods ...func(*Req)) ([]string, error) {
	ep := "configuration/plate-type-names"
	if filter != "" {
		ep = endpoint(ep, "stringFilter", filter)
	}
	return c.getStrings(ctx, "get plate type names", ep, mods...)
}

// GetNodeNames returns the names of the acquisition nodes
func (c *Client) GetNodeNames(ctx context.Context, mods ...func(*Req)) ([]string, error) {
	return c.getStrings(ctx, "get node names", "acquisition/nodes", mods...)
}

// GetSystemNames returns the names of the chromatographic systems on a node
func (c *Client) GetSystemNames(ctx context.Context, node string, mods ...func(*Req)) ([]string, error) {
	if err := validateName("node name", node); err != nil {
		return nil, fmt.Errorf("get system names: %w", err)
	}
	return c.getStrings(ctx, "get system names",
		endpoint("acquisition/chromatographic-systems", "nodeName", node), mods...)
}

// GetNodeSystems returns the chromatographic systems of every acquisition node
//
// Nodes are queried concurrently (at most DefaultNodeConcurrency at a time).
// The first failing node cancels the remaining queries and its error is
// returned.
//
// Example:
//
//	systems, err := client.GetNodeSystems(ctx)
//	for node, names := range systems {
//	    fmt.Println(node, names)
//	}
func (c *Client) GetNodeSystems(ctx context.Context, mods ...func(*Req)) (map[string][]string, error) {
	nodes, err := c.GetNodeNames(ctx, mods...)
	if err != nil {
		return nil, err
	}

	systems := make([][]string, len(nodes))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(DefaultNodeConcurrency)
	for i, node := range nodes {
		i, node := i, node
		g.Go(func() error {
			names, err := c.GetSystemNames(gctx, node, mods...)
			if err != nil {
				return fmt.Errorf("node %s: %w", node, err)
			}
			systems[i] = names
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[string][]string, len(nodes))
	for i, node := range nodes {
		out[node] = systems[i]
	}
	return out, nil
}

// PostExperiment creates a sample set method from samples and plates
//
// Plates map a plate layout position to a plate type name, e.g.
// {"1": "ANSI-48Vial2mLHolder"}. Sample keys are translated with
// EmpowerFieldName. All invalid sample fields are reported in one
// error; nothing is sent in that case.
//
// Example:
//
//	err := client.PostExperiment(ctx, "Stability_T0",
//	    []empower.Sample{{
//	        "Method":          "Assay_Gradient",
//	        "SamplePos":       "1:A,1",
//	        "SampleName":      "Batch 42",
//	        "InjectionVolume": 5,
//	    }},
//	    map[string]string{"1": "ANSI-48Vial2mLHolder"},
//	    "created by LIMS")
func (c *Client) PostExperiment(ctx context.Context, name string, samples []Sample, plates map[string]string, auditTrailComment string, mods ...func(*Req)) error {
	if err := validateName("sample set method name", name); err != nil {
		return fmt.Errorf("post experiment: %w", err)
	}

	body, err := sampleSetMethodBody(name, samples, PlatesFromMap(plates))
	if err != nil {
		return fmt.Errorf("post experiment %s: %w", name, err)
	}

	_, err = c.post(ctx, "post experiment",
		endpoint("project/methods/sample-set-method", "auditTrailComment", auditTrailComment),
		body, mods...)
	if err != nil {
		return err
	}

	c.logger.Info(ctx, "Sample set method created",
		"name", name,
		"samples", len(samples),
		"plates", len(plates))
	return nil
}

// RunRequest describes a sample set run
type RunRequest struct {
	// SampleSetMethod is the sample set method to run
	SampleSetMethod string

	// Node is the acquisition node
	Node string

	// System is the chromatographic system on the node
	System string

	// SampleSetName names the acquired sample set; empty lets Empower choose
	SampleSetName string
}

// RunExperiment starts acquisition of a sample set method on a system
func (c *Client) RunExperiment(ctx context.Context, run RunRequest, mods ...func(*Req)) error {
	if err := validateName("sample set method name", run.SampleSetMethod); err != nil {
		return fmt.Errorf("run experiment: %w", err)
	}
	if err := validateName("node name", run.Node); err != nil {
		return fmt.Errorf("run experiment: %w", err)
	}
	if err := validateName("system name", run.System); err != nil {
		return fmt.Errorf("run experiment: %w", err)
	}

	b := Body{}.
		Set("sampleSetMethodName", run.SampleSetMethod).
		Set("nodeName", run.Node).
		Set("systemName", run.System)
	if run.SampleSetName == "" {
		b = b.SetRaw("sampleSetName", "null")
	} else {
		b = b.Set("sampleSetName", run.SampleSetName)
	}
	body, err := b.String()
	if err != nil {
		return fmt.Errorf("run experiment: %w", err)
	}

	if _, err := c.post(ctx, "run experiment", "acquisition/run-sample-set-method", body, mods...); err != nil {
		return err
	}

	c.logger.Info(ctx, "Sample set run started",
		"sample_set_method", run.SampleSetMethod,
		"node", run.Node,
		"system", run.System)
	return nil
}
