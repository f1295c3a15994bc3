// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package empower

import (
	"context"
	"maps"
	"regexp"
	"strings"
)

// XMLKey is the key of a method definition holding the module xml
const XMLKey = "xml"

// NameKey is the key of a method definition holding the module type
const NameKey = "name"

// Method is the editing interface shared by all instrument method variants
type Method interface {
	// Original returns a copy of the definition as received
	Original() map[string]string

	// Current returns the definition with all queued edits applied
	Current() (map[string]string, error)

	// QueueReplace queues a replacement of every occurrence of original in the xml
	QueueReplace(original, updated string)

	// Get returns the value between <key> and </key>
	Get(key string) (string, error)

	// Set queues a change of the value between <key> and </key>
	Set(key, value string) error
}

// replacement is one queued textual substitution
type replacement struct {
	original string
	new      string
}

// InstrumentMethod is a generic Empower instrument method module.
//
// Parameters inside the module xml are read and written by tag name with
// Get and Set, e.g. Set("ColumnTemperature", "50.03") replaces the value of
// the single <ColumnTemperature> element. This only works if the tag occurs
// exactly once. For repeated tags use QueueReplace, which substitutes every
// occurrence of a string in the xml.
//
// Edits are queued and only applied when Current is called. The original
// definition is copied at construction and never changes.
//
// If the definition has no xml key, the method is read-only: Current returns
// the original, and any edit makes Current fail with a ConfigurationError.
//
// An InstrumentMethod is not safe for concurrent use.
type InstrumentMethod struct {
	original map[string]string
	changes  []replacement
	logger   Logger
}

// MethodOption configures an InstrumentMethod
type MethodOption func(*InstrumentMethod)

// MethodLogger sets the logger used to report edits (default: NoOpLogger)
func MethodLogger(logger Logger) MethodOption {
	return func(m *InstrumentMethod) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewInstrumentMethod creates a generic instrument method from a definition.
//
// The definition should contain at least an xml key. It is copied, so later
// changes to def are not seen by the method.
func NewInstrumentMethod(def map[string]string, opts ...MethodOption) *InstrumentMethod {
	m := &InstrumentMethod{
		original: maps.Clone(def),
		logger:   &NoOpLogger{},
	}
	if m.original == nil {
		m.original = map[string]string{}
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Original returns a copy of the definition as received
func (m *InstrumentMethod) Original() map[string]string {
	return maps.Clone(m.original)
}

// QueueReplace queues replacing every occurrence of original with updated.
//
// The edit is not validated; a search text that does not occur is skipped
// (and logged) when Current is computed.
func (m *InstrumentMethod) QueueReplace(original, updated string) {
	m.changes = append(m.changes, replacement{original: original, new: updated})
}

// PendingEdits returns the number of queued edits
func (m *InstrumentMethod) PendingEdits() int {
	return len(m.changes)
}

// Current returns the definition with the queued edits applied in order.
//
// Returns a ConfigurationError wrapping ErrNoXML if edits are queued but the
// definition has no xml key.
func (m *InstrumentMethod) Current() (map[string]string, error) {
	return alterMethod(m.logger, m.original, m.changes)
}

// Get returns the value between <key> and </key> in the current xml.
//
// Returns:
//   - *MissingKeyError if the tag does not occur
//   - *AmbiguousKeyError if the tag occurs more than once
//   - *ConfigurationError if the definition has no xml
func (m *InstrumentMethod) Get(key string) (string, error) {
	current, err := m.Current()
	if err != nil {
		return "", err
	}
	xml, ok := current[XMLKey]
	if !ok {
		return "", &ConfigurationError{Op: "get " + key, Err: ErrNoXML}
	}
	return findTagValue(xml, key)
}

// Set queues replacing the value of the single <key> element with value.
//
// The tag must already occur exactly once; Set cannot add tags. Errors are
// the same as for Get.
func (m *InstrumentMethod) Set(key, value string) error {
	currentValue, err := m.Get(key)
	if err != nil {
		return err
	}
	m.QueueReplace(wrapTag(key, currentValue), wrapTag(key, value))
	return nil
}

// findTagValue extracts the value of the single <key> element.
//
// The match is greedy, so with repeated tags the captured span runs from the
// first opening to the last closing tag. A captured span that contains
// another opening tag therefore means the tag is not unique. The search is
// single-line; a value with a line break is not found.
func findTagValue(xml, key string) (string, error) {
	quoted := regexp.QuoteMeta(key)
	re := regexp.MustCompile("<" + quoted + ">(.*)</" + quoted + ">")
	match := re.FindStringSubmatch(xml)
	if match == nil {
		return "", &MissingKeyError{Key: key}
	}
	if strings.Contains(match[1], "<"+key+">") {
		return "", &AmbiguousKeyError{Key: key}
	}
	return match[1], nil
}

func wrapTag(key, value string) string {
	return "<" + key + ">" + value + "</" + key + ">"
}

// alterMethod applies changes to a copy of def.
func alterMethod(logger Logger, def map[string]string, changes []replacement) (map[string]string, error) {
	method := maps.Clone(def)
	if method == nil {
		method = map[string]string{}
	}
	xml, ok := method[XMLKey]
	if !ok {
		if len(changes) > 0 {
			return nil, &ConfigurationError{Op: "current", Err: ErrNoXML}
		}
		return method, nil
	}

	ctx := context.Background()
	for i, change := range changes {
		count := 0
		if change.original != "" {
			count = strings.Count(xml, change.original)
		}
		if count == 0 {
			logger.Warn(ctx, "no-op edit, search text not found in method xml",
				"index", i,
				"search", change.original,
				"method", method[NameKey])
			continue
		}
		xml = strings.ReplaceAll(xml, change.original, change.new)
		logger.Debug(ctx, "applied method edit",
			"index", i,
			"count", count,
			"search", change.original,
			"replacement", change.new)
	}
	method[XMLKey] = xml
	return method, nil
}
