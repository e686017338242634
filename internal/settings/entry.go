package settings

import (
	"fmt"
	"reflect"
)

// PluginInfo identifies the plugin that owns an entry.
type PluginInfo struct {
	ID      string
	Name    string
	Version string
}

// String returns "Name vVersion", or just the name when no version is known.
func (p PluginInfo) String() string {
	if p.Version == "" {
		return p.Name
	}
	return fmt.Sprintf("%s v%s", p.Name, p.Version)
}

// Entry describes one user-adjustable value, independent of where it is
// stored. The only implementations are *PropertyEntry and *ConfigEntry.
type Entry interface {
	// DisplayName returns the override set with SetDisplayName, or the
	// declared name of the underlying property or key.
	DisplayName() string
	SetDisplayName(name string)

	Description() string
	SetDescription(desc string)

	IsAdvanced() bool
	SetAdvanced(advanced bool)

	// Browsable reports whether the entry should be shown at all.
	Browsable() Tristate

	ReadOnly() bool
	Category() string
	Order() int

	// Plugin returns the owning plugin's identity.
	Plugin() PluginInfo

	// Type returns the declared value type.
	Type() reflect.Type

	// Default returns the default value, if the backing store knows one.
	Default() (any, bool)

	// AcceptableValues lists the allowed values for enumerated settings.
	AcceptableValues() []any

	// Range returns the numeric bounds; nil means unbounded.
	Range() (min, max *float64)

	Get() (any, error)
	Set(v any) error

	entry()
}

// Defaulter is implemented by config records that know their default value.
type Defaulter interface {
	Default() any
}

// Constrained is implemented by config records with value constraints.
type Constrained interface {
	AcceptableValues() []any
	Range() (min, max *float64)
}

// Staler is implemented by instances that can outlive their plugin, such as
// a plugin host that has been unloaded.
type Staler interface {
	Stale() bool
}

// base holds the metadata shared by every entry kind.
type base struct {
	dispName    string
	description string
	advanced    bool
	browsable   Tristate
	readOnly    bool
	category    string
	order       int
	plugin      PluginInfo
}

func (b *base) apply(attrs Attributes) {
	b.advanced = attrs.Advanced
	b.description = attrs.Description
	b.dispName = attrs.DisplayName
	b.browsable = attrs.Browsable
	b.category = attrs.Category
	b.order = attrs.Order
}

func (b *base) displayName(declared string) string {
	if b.dispName == "" {
		return declared
	}
	return b.dispName
}

// SetDisplayName overrides the displayed name. An empty name restores the
// declared name.
func (b *base) SetDisplayName(name string) { b.dispName = name }

// Description returns the entry description.
func (b *base) Description() string { return b.description }

// SetDescription sets the entry description.
func (b *base) SetDescription(desc string) { b.description = desc }

// IsAdvanced reports whether the entry is hidden behind "show advanced".
func (b *base) IsAdvanced() bool { return b.advanced }

// SetAdvanced sets the advanced flag.
func (b *base) SetAdvanced(advanced bool) { b.advanced = advanced }

// Browsable reports whether the entry should be shown.
func (b *base) Browsable() Tristate { return b.browsable }

// ReadOnly reports whether the entry is flagged read-only.
func (b *base) ReadOnly() bool { return b.readOnly }

// Category returns the UI grouping.
func (b *base) Category() string { return b.category }

// Order returns the sort position within the category.
func (b *base) Order() int { return b.order }

// Plugin returns the owning plugin's identity.
func (b *base) Plugin() PluginInfo { return b.plugin }

// SetPlugin changes the owning plugin identity.
func (b *base) SetPlugin(info PluginInfo) { b.plugin = info }

func (b *base) entry() {}

// staleInstance reports whether instance can no longer be used.
func staleInstance(instance any) bool {
	if instance == nil {
		return true
	}
	rv := reflect.ValueOf(instance)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
		if rv.IsNil() {
			return true
		}
	}
	if s, ok := instance.(Staler); ok {
		return s.Stale()
	}
	return false
}
