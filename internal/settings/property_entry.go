package settings

import (
	"fmt"
	"reflect"
)

// PropertyEntry is an Entry backed by a property of a live plugin instance.
type PropertyEntry struct {
	base
	instance any
	prop     Property
}

// NewPropertyEntry binds prop on instance, owned by the given plugin.
//
// Metadata comes from the property's attributes. Without an explicit
// browsable attribute the entry is browsable when the property is both
// readable and writable. ReadOnly mirrors CanWrite: a writable property is
// reported read-only. Renderers rely on that value as-is, so it is kept.
func NewPropertyEntry(instance any, prop Property, owner PluginInfo) *PropertyEntry {
	e := &PropertyEntry{
		instance: instance,
		prop:     prop,
	}
	e.apply(prop.Attributes())
	if !e.browsable.IsSet() {
		e.browsable = TristateOf(prop.CanRead() && prop.CanWrite())
	}
	e.readOnly = prop.CanWrite()
	e.plugin = owner
	return e
}

// DisplayName returns the override, or the property name.
func (e *PropertyEntry) DisplayName() string {
	return e.displayName(e.prop.Name())
}

// Property returns the underlying accessor.
func (e *PropertyEntry) Property() Property { return e.prop }

// Instance returns the instance the property is read from.
func (e *PropertyEntry) Instance() any { return e.instance }

// Type returns the property type.
func (e *PropertyEntry) Type() reflect.Type { return e.prop.Type() }

// Default reports no default; properties do not declare one.
func (e *PropertyEntry) Default() (any, bool) { return nil, false }

// AcceptableValues returns nil; properties are unconstrained.
func (e *PropertyEntry) AcceptableValues() []any { return nil }

// Range returns no bounds.
func (e *PropertyEntry) Range() (min, max *float64) { return nil, nil }

// Get reads the property from the stored instance.
func (e *PropertyEntry) Get() (any, error) {
	if !e.prop.CanRead() {
		return nil, fmt.Errorf("%s: %w", e.prop.Name(), ErrNotReadable)
	}
	if staleInstance(e.instance) {
		return nil, fmt.Errorf("%s: %w", e.prop.Name(), ErrStaleInstance)
	}
	return e.prop.Get(e.instance)
}

// Set writes v through the property. The accessor's own writability decides,
// not the ReadOnly flag.
func (e *PropertyEntry) Set(v any) error {
	if !e.prop.CanWrite() {
		return fmt.Errorf("%s: %w", e.prop.Name(), ErrNotWritable)
	}
	if err := checkAssignable(e.prop.Name(), e.prop.Type(), v); err != nil {
		return err
	}
	if staleInstance(e.instance) {
		return fmt.Errorf("%s: %w", e.prop.Name(), ErrStaleInstance)
	}
	return e.prop.Set(e.instance, v)
}
