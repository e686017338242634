package settings

import (
	"fmt"
	"reflect"
)

// ConfigRecord is one key of a file-backed configuration store.
type ConfigRecord interface {
	Key() string
	Type() reflect.Type
	Value() any
	SetValue(v any) error
	Attributes() Attributes
}

// ConfigEntry is an Entry backed by a ConfigRecord.
type ConfigEntry struct {
	base
	record ConfigRecord
	owner  Plugin
}

// NewConfigEntry wraps record. owner is nil for host-core records; the
// caller then sets the identity with SetPlugin.
func NewConfigEntry(record ConfigRecord, owner Plugin) *ConfigEntry {
	e := &ConfigEntry{
		record: record,
		owner:  owner,
	}
	attrs := record.Attributes()
	e.apply(attrs)
	e.readOnly = attrs.ReadOnly
	if owner != nil {
		e.plugin = owner.Info()
	}
	return e
}

// DisplayName returns the override, or the record key.
func (e *ConfigEntry) DisplayName() string {
	return e.displayName(e.record.Key())
}

// Owner returns the owning plugin, or nil for host-core entries.
func (e *ConfigEntry) Owner() Plugin { return e.owner }

// Type returns the record's declared type.
func (e *ConfigEntry) Type() reflect.Type { return e.record.Type() }

// Default returns the record default when the record declares one.
func (e *ConfigEntry) Default() (any, bool) {
	if d, ok := e.record.(Defaulter); ok {
		return d.Default(), true
	}
	return nil, false
}

// AcceptableValues returns the allowed values of an enumerated record.
func (e *ConfigEntry) AcceptableValues() []any {
	if c, ok := e.record.(Constrained); ok {
		return c.AcceptableValues()
	}
	return nil
}

// Range returns the numeric bounds of the record.
func (e *ConfigEntry) Range() (min, max *float64) {
	if c, ok := e.record.(Constrained); ok {
		return c.Range()
	}
	return nil, nil
}

// Get returns the current value.
func (e *ConfigEntry) Get() (any, error) {
	return e.record.Value(), nil
}

// Set stores v after checking it against the declared type.
func (e *ConfigEntry) Set(v any) error {
	if e.readOnly {
		return fmt.Errorf("%s: %w", e.record.Key(), ErrNotWritable)
	}
	if err := checkAssignable(e.record.Key(), e.record.Type(), v); err != nil {
		return err
	}
	return e.record.SetValue(v)
}
