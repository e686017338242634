package settings

import (
	"fmt"
	"reflect"
)

// Property is an accessor for one named value of a plugin instance.
type Property interface {
	// Name returns the declared name.
	Name() string

	// Type returns the declared value type.
	Type() reflect.Type

	CanRead() bool
	CanWrite() bool

	// Attributes returns the metadata declared for the property.
	Attributes() Attributes

	// Get reads the value from instance.
	Get(instance any) (any, error)

	// Set writes v to instance. v must already be assignable to Type().
	Set(instance, v any) error
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// LookupProperty resolves the method-pair property called name on instance.
//
// The getter is a method Name() returning T or (T, error) and the setter is
// SetName(T), optionally returning error. Either half may be missing, but
// not both.
func LookupProperty(instance any, name string) (Property, error) {
	if instance == nil {
		return nil, fmt.Errorf("lookup %s: %w", name, ErrStaleInstance)
	}
	t := reflect.TypeOf(instance)

	p, err := lookupMethodProperty(t, name)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: %s on %s", ErrPropertyNotFound, name, t)
	}
	return p, nil
}

// methodProperty calls a Name()/SetName(v) method pair.
type methodProperty struct {
	name        string
	typ         reflect.Type
	getter      bool
	getterError bool
	setter      bool
	setterError bool
}

// lookupMethodProperty returns nil, nil when t has no usable method pair.
func lookupMethodProperty(t reflect.Type, name string) (*methodProperty, error) {
	p := &methodProperty{name: name}

	if m, ok := t.MethodByName(name); ok {
		mt := m.Type
		switch {
		case mt.NumIn() == 1 && mt.NumOut() == 1:
			p.getter = true
		case mt.NumIn() == 1 && mt.NumOut() == 2 && mt.Out(1) == errorType:
			p.getter = true
			p.getterError = true
		}
		if p.getter {
			p.typ = mt.Out(0)
		}
	}

	if m, ok := t.MethodByName("Set" + name); ok {
		mt := m.Type
		switch {
		case mt.NumIn() == 2 && mt.NumOut() == 0:
			p.setter = true
		case mt.NumIn() == 2 && mt.NumOut() == 1 && mt.Out(0) == errorType:
			p.setter = true
			p.setterError = true
		}
		if p.setter {
			in := mt.In(1)
			if p.typ != nil && p.typ != in {
				return nil, fmt.Errorf("property %s on %s: getter returns %s but setter takes %s", name, t, p.typ, in)
			}
			p.typ = in
		}
	}

	if !p.getter && !p.setter {
		return nil, nil
	}
	return p, nil
}

func (p *methodProperty) Name() string           { return p.name }
func (p *methodProperty) Type() reflect.Type     { return p.typ }
func (p *methodProperty) CanRead() bool          { return p.getter }
func (p *methodProperty) CanWrite() bool         { return p.setter }
func (p *methodProperty) Attributes() Attributes { return Attributes{} }

func (p *methodProperty) Get(instance any) (any, error) {
	if !p.getter {
		return nil, fmt.Errorf("%s: %w", p.name, ErrNotReadable)
	}
	out := reflect.ValueOf(instance).MethodByName(p.name).Call(nil)
	if p.getterError && !out[1].IsNil() {
		return nil, out[1].Interface().(error)
	}
	return out[0].Interface(), nil
}

func (p *methodProperty) Set(instance, v any) error {
	if !p.setter {
		return fmt.Errorf("%s: %w", p.name, ErrNotWritable)
	}
	out := reflect.ValueOf(instance).MethodByName("Set" + p.name).Call([]reflect.Value{valueFor(p.typ, v)})
	if p.setterError && !out[0].IsNil() {
		return out[0].Interface().(error)
	}
	return nil
}

// valueFor wraps v for reflective assignment; nil becomes the zero value.
func valueFor(typ reflect.Type, v any) reflect.Value {
	if v == nil {
		return reflect.Zero(typ)
	}
	return reflect.ValueOf(v)
}
