// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package empower

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// ColumnTemperatureKey is the tag holding the column temperature of a sample manager
const ColumnTemperatureKey = "ColumnTemperature"

// ColumnHandler is implemented by instrument methods that have a column temperature
//
// Example:
//
//	m := empower.NewMethod(def)
//	if ch, ok := m.(empower.ColumnHandler); ok {
//	    if err := ch.SetColumnTemperature("55"); err != nil {
//	        log.Fatal(err)
//	    }
//	}
type ColumnHandler interface {
	Method
	ColumnTemperature() (string, error)
	SetColumnTemperature(value string) error
}

// ColumnMethod is an instrument method whose column temperature is stored in
// a single tag. Errors are those of Get and Set on that tag.
type ColumnMethod struct {
	*InstrumentMethod
	temperatureKey string
}

// NewColumnMethod creates a ColumnMethod with the column temperature bound to temperatureKey
func NewColumnMethod(def map[string]string, temperatureKey string, opts ...MethodOption) *ColumnMethod {
	return &ColumnMethod{
		InstrumentMethod: NewInstrumentMethod(def, opts...),
		temperatureKey:   temperatureKey,
	}
}

// TemperatureKey returns the tag the column temperature is bound to
func (c *ColumnMethod) TemperatureKey() string {
	return c.temperatureKey
}

// ColumnTemperature returns the current column temperature as written in the xml
func (c *ColumnMethod) ColumnTemperature() (string, error) {
	return c.Get(c.temperatureKey)
}

// SetColumnTemperature queues a change of the column temperature
func (c *ColumnMethod) SetColumnTemperature(value string) error {
	return c.Set(c.temperatureKey, value)
}

// ColumnTemperatureDecimal returns the column temperature parsed as a decimal
func (c *ColumnMethod) ColumnTemperatureDecimal() (decimal.Decimal, error) {
	value, err := c.ColumnTemperature()
	if err != nil {
		return decimal.Decimal{}, err
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("column temperature %q is not a number: %w", value, err)
	}
	return d, nil
}

// SetColumnTemperatureDecimal queues a change of the column temperature.
//
// The value is written with decimal.Decimal.String, which drops trailing
// zeros (40.50 becomes "40.5"). Use SetColumnTemperature with StringFixed
// when the instrument expects a fixed number of digits.
func (c *ColumnMethod) SetColumnTemperatureDecimal(value decimal.Decimal) error {
	return c.SetColumnTemperature(value.String())
}

// SampleManager is an instrument method controlling an Acquity sample
// manager (FTN). Its column temperature is the ColumnTemperature tag.
type SampleManager struct {
	*ColumnMethod
}

// NewSampleManager creates a SampleManager from a method definition
func NewSampleManager(def map[string]string, opts ...MethodOption) *SampleManager {
	return &SampleManager{ColumnMethod: NewColumnMethod(def, ColumnTemperatureKey, opts...)}
}
