// SPDX-License-Identifier: MPL-2.0
// Copyright (c) 2025 Daniel Schmidt

package empower

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/hashicorp/go-multierror"
	"github.com/shopspring/decimal"
)

// DataType is the Empower data type of a sample set line field
type DataType string

// Data types accepted by the sample set method endpoint
const (
	// DataTypeString is used for Go strings
	DataTypeString DataType = "String"

	// DataTypeDouble is used for all Go numbers and decimal.Decimal
	DataTypeDouble DataType = "Double"

	// DataTypeEnumerator is used for maps (Empower enumerated values)
	DataTypeEnumerator DataType = "Enumerator"
)

// ValidDataTypes contains the list of valid data types
var ValidDataTypes = []DataType{
	DataTypeString,
	DataTypeDouble,
	DataTypeEnumerator,
}

// ValidateDataType checks if the data type is one Empower accepts
func ValidateDataType(dt DataType) error {
	for _, valid := range ValidDataTypes {
		if dt == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid data type: %s (valid values: String, Double, Enumerator)", dt)
}

// Friendly sample keys and the Empower field they are sent as
var sampleFieldAliases = map[string]string{
	"Method":          "MethodSetOrReportMethod",
	"SamplePos":       "Vial",
	"InjectionVolume": "InjVol",
}

// EmpowerFieldName returns the Empower field name for a sample key
//
// "Method", "SamplePos" and "InjectionVolume" are translated to
// "MethodSetOrReportMethod", "Vial" and "InjVol"; other keys are returned
// unchanged.
func EmpowerFieldName(key string) string {
	if name, ok := sampleFieldAliases[key]; ok {
		return name
	}
	return key
}

// DataField is one field of a sample set line
type DataField struct {
	Name     string
	Value    any
	DataType DataType
}

// NewDataField creates a field with the data type inferred from value
func NewDataField(name string, value any) (DataField, error) {
	dt, err := inferDataType(value)
	if err != nil {
		return DataField{}, fmt.Errorf("field %q: %w", name, err)
	}
	return DataField{Name: name, Value: value, DataType: dt}, nil
}

// JSON renders the field as {"name": ..., "value": ..., "dataType": ...}
func (f DataField) JSON() (string, error) {
	if err := ValidateDataType(f.DataType); err != nil {
		return "", fmt.Errorf("field %q: %w: %w", f.Name, ErrInvalidField, err)
	}

	b := Body{}.Set("name", f.Name)
	switch v := f.Value.(type) {
	case decimal.Decimal:
		b = b.SetRaw("value", v.String())
	case *decimal.Decimal:
		if v == nil {
			b = b.SetRaw("value", "null")
		} else {
			b = b.SetRaw("value", v.String())
		}
	default:
		b = b.Set("value", v)
	}
	return b.Set("dataType", string(f.DataType)).String()
}

func inferDataType(value any) (DataType, error) {
	switch value.(type) {
	case string:
		return DataTypeString, nil
	case int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64, decimal.Decimal, *decimal.Decimal:
		return DataTypeDouble, nil
	case map[string]any, map[string]string:
		return DataTypeEnumerator, nil
	default:
		return "", fmt.Errorf("%w: unsupported value type %T", ErrInvalidField, value)
	}
}

// Sample is one line of a sample set, keyed by field name
//
// Keys may be Empower field names or the friendly aliases accepted by
// EmpowerFieldName:
//
//	empower.Sample{
//	    "Method":          "Assay_Gradient",
//	    "SamplePos":       "1:A,1",
//	    "SampleName":      "Batch 42 T0",
//	    "InjectionVolume": 5,
//	    "Temperature":     decimal.RequireFromString("25.0"),
//	}
type Sample map[string]any

// Fields converts the sample to data fields sorted by Empower name.
//
// All invalid fields are reported together.
func (s Sample) Fields() ([]DataField, error) {
	keys := make([]string, 0, len(s))
	for key := range s {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var result *multierror.Error
	seen := make(map[string]string, len(s))
	fields := make([]DataField, 0, len(s))
	for _, key := range keys {
		name := EmpowerFieldName(key)
		if other, dup := seen[name]; dup {
			result = multierror.Append(result,
				fmt.Errorf("%w: %q and %q both set %s", ErrInvalidField, other, key, name))
			continue
		}
		seen[name] = key

		field, err := NewDataField(name, s[key])
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		fields = append(fields, field)
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Name < fields[j].Name })

	if err := result.ErrorOrNil(); err != nil {
		return nil, err
	}
	return fields, nil
}

// Plate places a plate type at a plate layout position
type Plate struct {
	TypeName string
	Position string
}

// PlatesFromMap converts a position to plate type mapping to plates ordered by position
//
// Positions that are integers sort numerically, others lexically after them.
func PlatesFromMap(plates map[string]string) []Plate {
	out := make([]Plate, 0, len(plates))
	for pos, name := range plates {
		out = append(out, Plate{TypeName: name, Position: pos})
	}
	sort.Slice(out, func(i, j int) bool {
		a, errA := strconv.Atoi(out[i].Position)
		b, errB := strconv.Atoi(out[j].Position)
		switch {
		case errA == nil && errB == nil:
			return a < b
		case errA == nil:
			return true
		case errB == nil:
			return false
		default:
			return out[i].Position < out[j].Position
		}
	})
	return out
}

// sampleSetMethodBody builds the body of a sample set method creation request
func sampleSetMethodBody(name string, samples []Sample, plates []Plate) (string, error) {
	b := Body{}.
		Set("name", name).
		SetRaw("plates", "[]").
		SetRaw("sampleSetLines", "[]")

	for _, plate := range plates {
		raw, err := Body{}.
			Set("plateTypeName", plate.TypeName).
			Set("plateLayoutPosition", plate.Position).
			String()
		if err != nil {
			return "", err
		}
		b = b.Append("plates", raw)
	}

	var result *multierror.Error
	for i, sample := range samples {
		fields, err := sample.Fields()
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("sample %d: %w", i, err))
			continue
		}

		line := Body{}.SetRaw("fields", "[]")
		for _, field := range fields {
			raw, err := field.JSON()
			if err != nil {
				result = multierror.Append(result, fmt.Errorf("sample %d: %w", i, err))
				continue
			}
			line = line.Append("fields", raw)
		}
		raw, err := line.String()
		if err != nil {
			return "", err
		}
		b = b.Append("sampleSetLines", raw)
	}
	if err := result.ErrorOrNil(); err != nil {
		return "", err
	}

	return b.String()
}
