package settings

import (
	"errors"
	"fmt"
	"reflect"
)

// Settings errors.
var (
	// ErrNotReadable is returned when reading a property without a getter.
	ErrNotReadable = errors.New("setting is not readable")

	// ErrNotWritable is returned when writing a property without a setter
	// or a read-only config record.
	ErrNotWritable = errors.New("setting is not writable")

	// ErrStaleInstance is returned when the instance behind a property
	// entry is nil or no longer live.
	ErrStaleInstance = errors.New("setting instance is stale")

	// ErrPropertyNotFound is returned by LookupProperty when the instance
	// has no getter/setter pair with the given name.
	ErrPropertyNotFound = errors.New("property not found")
)

// TypeError is returned when a value of the wrong type is written to an entry.
type TypeError struct {
	Setting  string
	Expected reflect.Type
	Actual   reflect.Type
}

// Error implements the error interface.
func (e *TypeError) Error() string {
	actual := "nil"
	if e.Actual != nil {
		actual = e.Actual.String()
	}
	return fmt.Sprintf("setting %s: expected %s, got %s", e.Setting, e.Expected, actual)
}

// checkAssignable reports a *TypeError when v cannot be stored in a value of
// type typ. A nil v is accepted for nillable kinds only.
func checkAssignable(name string, typ reflect.Type, v any) error {
	if typ == nil {
		return nil
	}
	if v == nil {
		switch typ.Kind() {
		case reflect.Interface, reflect.Pointer, reflect.Map, reflect.Slice, reflect.Func, reflect.Chan:
			return nil
		}
		return &TypeError{Setting: name, Expected: typ}
	}
	if vt := reflect.TypeOf(v); !vt.AssignableTo(typ) {
		return &TypeError{Setting: name, Expected: typ, Actual: vt}
	}
	return nil
}
