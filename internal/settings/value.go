package settings

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"
)

var durationType = reflect.TypeOf(time.Duration(0))

// ParseValue converts text typed by a user into a value of typ. Lists are
// comma separated.
func ParseValue(typ reflect.Type, s string) (any, error) {
	if typ == durationType {
		d, err := time.ParseDuration(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("parsing %q as duration: %w", s, err)
		}
		return d, nil
	}

	v := reflect.New(typ).Elem()
	switch typ.Kind() {
	case reflect.String:
		v.SetString(s)
	case reflect.Bool:
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return nil, fmt.Errorf("parsing %q as bool: %w", s, err)
		}
		v.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, typ.Bits())
		if err != nil {
			return nil, fmt.Errorf("parsing %q as %s: %w", s, typ, err)
		}
		v.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := strconv.ParseUint(strings.TrimSpace(s), 10, typ.Bits())
		if err != nil {
			return nil, fmt.Errorf("parsing %q as %s: %w", s, typ, err)
		}
		v.SetUint(n)
	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), typ.Bits())
		if err != nil {
			return nil, fmt.Errorf("parsing %q as %s: %w", s, typ, err)
		}
		v.SetFloat(f)
	case reflect.Slice:
		if typ.Elem().Kind() != reflect.String {
			return nil, fmt.Errorf("cannot parse text into %s", typ)
		}
		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		v = reflect.MakeSlice(typ, len(parts), len(parts))
		for i, p := range parts {
			v.Index(i).SetString(p)
		}
	default:
		return nil, fmt.Errorf("cannot parse text into %s", typ)
	}
	return v.Interface(), nil
}

// FormatValue renders a value for display.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []string:
		return strings.Join(x, ", ")
	case time.Duration:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
