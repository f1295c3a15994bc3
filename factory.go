// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package empower

import (
	"context"
	"maps"
)

// SampleManagerFTN is the module name of an Acquity FTN sample manager
const SampleManagerFTN = "rAcquityFTN"

// MethodConstructor builds a Method variant from a method definition
type MethodConstructor func(def map[string]string, opts ...MethodOption) Method

// MethodFactory selects the Method variant for a definition by its name key
//
// Unknown or missing names produce a generic InstrumentMethod. Register a
// constructor to support a new module type:
//
//	f := empower.NewMethodFactory(nil)
//	f.Register("rAcquityCM", func(def map[string]string, opts ...empower.MethodOption) empower.Method {
//	    return empower.NewColumnMethod(def, "SetTemperature", opts...)
//	})
//	m := f.New(def)
//
// A MethodFactory is not safe for concurrent Register calls.
type MethodFactory struct {
	types  map[string]MethodConstructor
	logger Logger
}

// defaultMethodTypes lists the module types known without registration
func defaultMethodTypes() map[string]MethodConstructor {
	return map[string]MethodConstructor{
		SampleManagerFTN: func(def map[string]string, opts ...MethodOption) Method {
			return NewSampleManager(def, opts...)
		},
	}
}

// NewMethodFactory creates a factory with the built-in module types.
// A nil logger discards log messages.
func NewMethodFactory(logger Logger) *MethodFactory {
	if logger == nil {
		logger = &NoOpLogger{}
	}
	return &MethodFactory{
		types:  defaultMethodTypes(),
		logger: logger,
	}
}

// Register binds a module name to a constructor, replacing any previous binding
func (f *MethodFactory) Register(name string, ctor MethodConstructor) {
	if ctor == nil {
		delete(f.types, name)
		return
	}
	f.types[name] = ctor
}

// Types returns a copy of the registered module names and constructors
func (f *MethodFactory) Types() map[string]MethodConstructor {
	return maps.Clone(f.types)
}

// New creates the Method variant registered for def["name"].
//
// If the name is missing or not registered, a generic InstrumentMethod is
// returned. This never fails.
func (f *MethodFactory) New(def map[string]string) Method {
	ctx := context.Background()
	opts := []MethodOption{MethodLogger(f.logger)}

	name, ok := def[NameKey]
	if !ok {
		f.logger.Debug(ctx, "method definition has no name, creating a generic InstrumentMethod")
		return NewInstrumentMethod(def, opts...)
	}

	ctor, ok := f.types[name]
	if !ok {
		f.logger.Debug(ctx, "unknown instrument method, creating a generic InstrumentMethod",
			"name", name)
		return NewInstrumentMethod(def, opts...)
	}

	f.logger.Debug(ctx, "creating specialized instrument method",
		"name", name)
	return ctor(def, opts...)
}

// NewMethod creates the Method variant for def using the built-in module types
func NewMethod(def map[string]string) Method {
	return NewMethodFactory(nil).New(def)
}
