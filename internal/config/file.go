package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/dshills/confman/internal/config/notify"
	"github.com/dshills/confman/internal/settings"
)

// File is an ordered set of typed settings persisted to one TOML or YAML
// file. Settings are bound with Bind in display order; values found in the
// file for unbound paths are kept and written back on Save.
type File struct {
	mu      sync.RWMutex
	path    string
	entries []*Entry
	index   map[string]*Entry
	orphans map[string]any

	notifier *notify.Notifier
}

// NewFile creates an empty config file bound to path. Nothing is read until
// Load is called.
func NewFile(path string) *File {
	return &File{
		path:     path,
		index:    make(map[string]*Entry),
		orphans:  make(map[string]any),
		notifier: notify.New(),
	}
}

// Notifier returns the notifier that reports value changes of this file.
// Loads report each changed value followed by one reload event.
func (f *File) Notifier() *notify.Notifier {
	return f.notifier
}

// Path returns the file path.
func (f *File) Path() string {
	return f.path
}

// Bind adds a setting definition and returns its entry. If the file was
// already loaded and holds a valid value for the path, that value is adopted.
func (f *File) Bind(def Definition) (*Entry, error) {
	if def.Key == "" {
		return nil, fmt.Errorf("%w: empty key", ErrInvalidDefinition)
	}
	if def.Type.String() == "unknown" {
		return nil, fmt.Errorf("%w: %s has unknown type", ErrInvalidDefinition, def.Path())
	}

	if def.Default == nil {
		def.Default = zeroValue(def.Type)
	} else {
		v, err := def.Type.Coerce(def.Default)
		if err != nil {
			return nil, fmt.Errorf("%w: default of %s: %v", ErrInvalidDefinition, def.Path(), err)
		}
		def.Default = v
	}
	if err := def.Validate(def.Default); err != nil {
		return nil, fmt.Errorf("%w: default of %s: %v", ErrInvalidDefinition, def.Path(), err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	path := def.Path()
	if _, exists := f.index[path]; exists {
		return nil, fmt.Errorf("%w: %s", ErrSettingAlreadyRegistered, path)
	}

	e := &Entry{file: f, def: def, value: cloneValue(def.Default)}
	if raw, ok := f.orphans[path]; ok {
		if v, err := def.Type.Coerce(raw); err == nil && def.Validate(v) == nil {
			e.value = v
			delete(f.orphans, path)
		}
	}

	f.entries = append(f.entries, e)
	f.index[path] = e
	return e, nil
}

// MustBind binds a setting and panics on error.
// Useful for built-in settings.
func (f *File) MustBind(def Definition) *Entry {
	e, err := f.Bind(def)
	if err != nil {
		panic(err)
	}
	return e
}

// Entry returns the entry bound at path.
func (f *File) Entry(path string) (*Entry, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	e, ok := f.index[path]
	return e, ok
}

// Entries returns all entries in bind order.
func (f *File) Entries() []*Entry {
	f.mu.RLock()
	defer f.mu.RUnlock()
	result := make([]*Entry, len(f.entries))
	copy(result, f.entries)
	return result
}

// Records returns the entries as settings records, in bind order.
func (f *File) Records() []settings.ConfigRecord {
	entries := f.Entries()
	records := make([]settings.ConfigRecord, len(entries))
	for i, e := range entries {
		records[i] = e
	}
	return records
}

// Len returns the number of bound settings.
func (f *File) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.entries)
}

// Get returns the value at path.
func (f *File) Get(path string) (any, error) {
	e, ok := f.Entry(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSettingNotFound, path)
	}
	return e.Value(), nil
}

// Set validates and stores the value at path.
func (f *File) Set(path string, value any) error {
	e, ok := f.Entry(path)
	if !ok {
		return fmt.Errorf("%w: %s", ErrSettingNotFound, path)
	}
	return e.SetValue(value)
}

// Load reads the file and applies its values. A missing file is not an
// error; every setting keeps or returns to its default. Invalid values are
// reported together after the valid ones have been applied.
func (f *File) Load() error {
	format, err := FormatFor(f.path)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(f.path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("reading config file %s: %w", f.path, err)
	}

	values := map[string]any{}
	if len(data) > 0 {
		doc, err := decode(f.path, format, data)
		if err != nil {
			return err
		}
		values = flatten(doc)
	}

	batch := f.notifier.NewBatch()
	f.mu.Lock()

	var errs []error
	for _, e := range f.entries {
		path := e.def.Path()
		old := e.value
		raw, ok := values[path]
		if !ok {
			e.value = cloneValue(e.def.Default)
			e.record(batch, notify.ChangeReset, old)
			continue
		}
		delete(values, path)

		v, err := e.def.Type.Coerce(raw)
		if err == nil {
			err = e.def.Validate(v)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", path, err))
			e.value = cloneValue(e.def.Default)
			e.record(batch, notify.ChangeReset, old)
			continue
		}
		e.value = v
		e.record(batch, notify.ChangeSet, old)
	}
	f.orphans = values
	f.mu.Unlock()

	batch.Add(notify.Change{File: f.path, Type: notify.ChangeReload})
	batch.Commit()

	return errors.Join(errs...)
}

// Reload is Load; it exists for readability at call sites driven by a watcher.
func (f *File) Reload() error {
	return f.Load()
}

// Save writes every value, and any unbound values read earlier, to the file.
// The file is replaced atomically.
func (f *File) Save() error {
	format, err := FormatFor(f.path)
	if err != nil {
		return err
	}

	doc := make(map[string]any)
	f.mu.RLock()
	for path, v := range f.orphans {
		section, key := splitPath(path)
		setPath(doc, section, key, v)
	}
	for _, e := range f.entries {
		setPath(doc, e.def.Section, e.def.Key, e.def.Type.encode(e.value))
	}
	f.mu.RUnlock()

	data, err := encode(format, doc)
	if err != nil {
		return fmt.Errorf("encoding config file %s: %w", f.path, err)
	}

	if err := os.MkdirAll(filepath.Dir(f.path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(f.path), "."+filepath.Base(f.path)+".*")
	if err != nil {
		return fmt.Errorf("writing config file %s: %w", f.path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing config file %s: %w", f.path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing config file %s: %w", f.path, err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("writing config file %s: %w", f.path, err)
	}
	return nil
}

// GetString returns a string value at the given path.
func (f *File) GetString(path string) (string, error) {
	v, err := f.Get(path)
	if err != nil {
		return "", err
	}
	s, ok := v.(string)
	if !ok {
		return "", typeError(path, "string", v)
	}
	return s, nil
}

// GetInt returns an integer value at the given path.
func (f *File) GetInt(path string) (int64, error) {
	v, err := f.Get(path)
	if err != nil {
		return 0, err
	}
	n, ok := v.(int64)
	if !ok {
		return 0, typeError(path, "integer", v)
	}
	return n, nil
}

// GetFloat returns a float value at the given path.
func (f *File) GetFloat(path string) (float64, error) {
	v, err := f.Get(path)
	if err != nil {
		return 0, err
	}
	n, ok := v.(float64)
	if !ok {
		return 0, typeError(path, "number", v)
	}
	return n, nil
}

// GetBool returns a boolean value at the given path.
func (f *File) GetBool(path string) (bool, error) {
	v, err := f.Get(path)
	if err != nil {
		return false, err
	}
	b, ok := v.(bool)
	if !ok {
		return false, typeError(path, "boolean", v)
	}
	return b, nil
}

// GetDuration returns a duration value at the given path.
func (f *File) GetDuration(path string) (time.Duration, error) {
	v, err := f.Get(path)
	if err != nil {
		return 0, err
	}
	d, ok := v.(time.Duration)
	if !ok {
		return 0, typeError(path, "duration", v)
	}
	return d, nil
}

// GetStrings returns a list value at the given path.
func (f *File) GetStrings(path string) ([]string, error) {
	v, err := f.Get(path)
	if err != nil {
		return nil, err
	}
	l, ok := v.([]string)
	if !ok {
		return nil, typeError(path, "list", v)
	}
	return l, nil
}

func typeError(path, expected string, v any) error {
	return &ValidationError{
		Path:    path,
		Message: fmt.Sprintf("expected %s, got %T", expected, v),
		Value:   v,
		Code:    ErrCodeTypeMismatch,
	}
}

// zeroValue returns the canonical zero value of t.
func zeroValue(t Type) any {
	switch t {
	case TypeInt:
		return int64(0)
	case TypeFloat:
		return float64(0)
	case TypeBool:
		return false
	case TypeDuration:
		return time.Duration(0)
	case TypeList:
		return []string{}
	default:
		return ""
	}
}

// splitPath splits "section.key" at the first dot.
func splitPath(path string) (section, key string) {
	if i := strings.IndexByte(path, '.'); i >= 0 {
		return path[:i], path[i+1:]
	}
	return "", path
}
