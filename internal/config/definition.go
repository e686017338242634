package config

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"
)

// Definition declares one setting of a config file.
type Definition struct {
	// Section groups settings in the file (e.g., "logging").
	Section string

	// Key is the name within the section (e.g., "level").
	Key string

	// Type is the setting's data type.
	Type Type

	// Default is the default value. It is converted to the canonical Go
	// type of Type when bound.
	Default any

	// Description is human-readable documentation.
	Description string

	// DisplayName overrides the key in a settings UI.
	DisplayName string

	// Advanced hides the setting behind a "show advanced" toggle.
	Advanced bool

	// Browsable explicitly shows or hides the setting; nil leaves it unset.
	Browsable *bool

	// ReadOnly rejects writes through Entry.SetValue.
	ReadOnly bool

	// Enum lists allowed values for TypeEnum.
	Enum []any

	// Minimum for numeric types (nil means no minimum).
	Minimum *float64

	// Maximum for numeric types (nil means no maximum).
	Maximum *float64

	// Order sorts settings within a section.
	Order int
}

// Path returns the dot-separated path "section.key", or the key alone when
// there is no section.
func (d Definition) Path() string {
	if d.Section == "" {
		return d.Key
	}
	return d.Section + "." + d.Key
}

// Validate checks if a value is valid for this setting. The value must
// already be of the canonical Go type.
func (d *Definition) Validate(value any) error {
	if err := d.validateType(value); err != nil {
		return err
	}

	if d.Type == TypeEnum && len(d.Enum) > 0 && !containsValue(d.Enum, value) {
		return &ValidationError{
			Path:    d.Path(),
			Message: fmt.Sprintf("value must be one of: %v", d.Enum),
			Value:   value,
			Code:    ErrCodeInvalidEnum,
		}
	}

	if d.Type == TypeInt || d.Type == TypeFloat {
		return d.validateRange(value)
	}
	return nil
}

// validateType checks if the value has the canonical type.
func (d *Definition) validateType(value any) error {
	want := d.Type.GoType()
	if value == nil || reflect.TypeOf(value) != want {
		return &ValidationError{
			Path:    d.Path(),
			Message: fmt.Sprintf("expected %s, got %T", d.Type, value),
			Value:   value,
			Code:    ErrCodeTypeMismatch,
		}
	}
	return nil
}

// validateRange checks if a numeric value is within the allowed range.
func (d *Definition) validateRange(value any) error {
	var f float64
	switch v := value.(type) {
	case int64:
		f = float64(v)
	case float64:
		f = v
	default:
		return nil
	}

	if d.Minimum != nil && f < *d.Minimum {
		return &ValidationError{
			Path:    d.Path(),
			Message: fmt.Sprintf("value is less than minimum %v", *d.Minimum),
			Value:   value,
			Code:    ErrCodeOutOfRange,
		}
	}
	if d.Maximum != nil && f > *d.Maximum {
		return &ValidationError{
			Path:    d.Path(),
			Message: fmt.Sprintf("value is greater than maximum %v", *d.Maximum),
			Value:   value,
			Code:    ErrCodeOutOfRange,
		}
	}
	return nil
}

// Type represents the data type of a setting.
type Type uint8

const (
	// TypeString represents a string value.
	TypeString Type = iota
	// TypeInt represents an integer value (int64).
	TypeInt
	// TypeFloat represents a floating-point value (float64).
	TypeFloat
	// TypeBool represents a boolean value.
	TypeBool
	// TypeDuration represents a time.Duration.
	TypeDuration
	// TypeEnum represents a string from a fixed set.
	TypeEnum
	// TypeList represents a list of strings.
	TypeList
)

var goTypes = [...]reflect.Type{
	TypeString:   reflect.TypeOf(""),
	TypeInt:      reflect.TypeOf(int64(0)),
	TypeFloat:    reflect.TypeOf(float64(0)),
	TypeBool:     reflect.TypeOf(false),
	TypeDuration: reflect.TypeOf(time.Duration(0)),
	TypeEnum:     reflect.TypeOf(""),
	TypeList:     reflect.TypeOf([]string(nil)),
}

// GoType returns the canonical Go type values of this type are stored as.
func (t Type) GoType() reflect.Type {
	if int(t) < len(goTypes) {
		return goTypes[t]
	}
	return reflect.TypeOf((*any)(nil)).Elem()
}

// String returns the string representation of the type.
func (t Type) String() string {
	switch t {
	case TypeString:
		return "string"
	case TypeInt:
		return "integer"
	case TypeFloat:
		return "number"
	case TypeBool:
		return "boolean"
	case TypeDuration:
		return "duration"
	case TypeEnum:
		return "enum"
	case TypeList:
		return "list"
	default:
		return "unknown"
	}
}

// ParseType parses a type name as written in plugin manifests. JSON Schema
// names (number, boolean, array) are accepted as well.
func ParseType(name string) (Type, error) {
	switch strings.ToLower(name) {
	case "", "string":
		return TypeString, nil
	case "int", "integer":
		return TypeInt, nil
	case "float", "number":
		return TypeFloat, nil
	case "bool", "boolean":
		return TypeBool, nil
	case "duration":
		return TypeDuration, nil
	case "enum":
		return TypeEnum, nil
	case "list", "array":
		return TypeList, nil
	default:
		return 0, fmt.Errorf("%w: unknown type %q", ErrInvalidDefinition, name)
	}
}

// Coerce converts a decoded value (from TOML, YAML or JSON) to the
// canonical Go type of t.
func (t Type) Coerce(value any) (any, error) {
	switch t {
	case TypeString, TypeEnum:
		if s, ok := value.(string); ok {
			return s, nil
		}
	case TypeInt:
		switch v := value.(type) {
		case int64:
			return v, nil
		case int:
			return int64(v), nil
		case int32:
			return int64(v), nil
		case uint64:
			if v <= math.MaxInt64 {
				return int64(v), nil
			}
		case float64:
			// 1<<63 is exact as a float64; MaxInt64 is not.
			if v == math.Trunc(v) && v >= -(1<<63) && v < 1<<63 {
				return int64(v), nil
			}
		}
	case TypeFloat:
		switch v := value.(type) {
		case float64:
			return v, nil
		case float32:
			return float64(v), nil
		case int64:
			return float64(v), nil
		case int:
			return float64(v), nil
		}
	case TypeBool:
		if b, ok := value.(bool); ok {
			return b, nil
		}
	case TypeDuration:
		switch v := value.(type) {
		case time.Duration:
			return v, nil
		case string:
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", ErrTypeMismatch, err)
			}
			return d, nil
		}
	case TypeList:
		switch v := value.(type) {
		case []string:
			return v, nil
		case []any:
			out := make([]string, 0, len(v))
			for _, item := range v {
				s, ok := item.(string)
				if !ok {
					return nil, fmt.Errorf("%w: list item %T is not a string", ErrTypeMismatch, item)
				}
				out = append(out, s)
			}
			return out, nil
		}
	}
	return nil, fmt.Errorf("%w: cannot use %T as %s", ErrTypeMismatch, value, t)
}

// encode converts a canonical value into what the file codecs write.
func (t Type) encode(value any) any {
	if d, ok := value.(time.Duration); ok && t == TypeDuration {
		return d.String()
	}
	return value
}

// containsValue checks if a slice contains a value.
func containsValue(slice []any, value any) bool {
	for _, v := range slice {
		if v == value {
			return true
		}
	}
	return false
}

// MinValue creates a pointer to a float64 for use as Minimum.
func MinValue(v float64) *float64 {
	return &v
}

// MaxValue creates a pointer to a float64 for use as Maximum.
func MaxValue(v float64) *float64 {
	return &v
}

// BoolPtr creates a pointer to a bool for use as Browsable.
func BoolPtr(b bool) *bool {
	return &b
}
