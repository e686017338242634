package config

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/dshills/confman/internal/config/notify"
	"github.com/dshills/confman/internal/settings"
)

// Entry is one bound setting of a File. It implements settings.ConfigRecord.
// Values are guarded by the owning File's lock.
type Entry struct {
	file  *File
	def   Definition
	value any
}

// Key returns the key within the section.
func (e *Entry) Key() string { return e.def.Key }

// Path returns the full "section.key" path.
func (e *Entry) Path() string { return e.def.Path() }

// Definition returns a copy of the entry's definition.
func (e *Entry) Definition() Definition { return e.def }

// Type returns the canonical Go type of the value.
func (e *Entry) Type() reflect.Type { return e.def.Type.GoType() }

// Value returns the current value.
func (e *Entry) Value() any {
	e.file.mu.RLock()
	defer e.file.mu.RUnlock()
	return cloneValue(e.value)
}

// SetValue validates and stores v.
func (e *Entry) SetValue(v any) error {
	if e.def.ReadOnly {
		return fmt.Errorf("%s: %w", e.Path(), ErrReadOnly)
	}
	if err := e.def.Validate(v); err != nil {
		return err
	}

	batch := e.file.notifier.NewBatch()
	e.file.mu.Lock()
	old := e.value
	e.value = cloneValue(v)
	e.record(batch, notify.ChangeSet, old)
	e.file.mu.Unlock()

	batch.Commit()
	return nil
}

// Reset restores the default value.
func (e *Entry) Reset() {
	batch := e.file.notifier.NewBatch()
	e.file.mu.Lock()
	old := e.value
	e.value = cloneValue(e.def.Default)
	e.record(batch, notify.ChangeReset, old)
	e.file.mu.Unlock()

	batch.Commit()
}

// record adds a change to batch when the value differs from old. The
// caller holds the file lock.
func (e *Entry) record(batch *notify.Batch, typ notify.ChangeType, old any) {
	if reflect.DeepEqual(old, e.value) {
		return
	}
	batch.Add(notify.Change{
		File:     e.file.path,
		Path:     e.def.Path(),
		Type:     typ,
		OldValue: old,
		NewValue: cloneValue(e.value),
	})
}

// Default returns the default value.
func (e *Entry) Default() any { return cloneValue(e.def.Default) }

// AcceptableValues returns the allowed values of an enum setting.
func (e *Entry) AcceptableValues() []any {
	if e.def.Type != TypeEnum {
		return nil
	}
	return slices.Clone(e.def.Enum)
}

// Range returns the numeric bounds.
func (e *Entry) Range() (min, max *float64) {
	return e.def.Minimum, e.def.Maximum
}

// Attributes returns the display metadata of the setting.
func (e *Entry) Attributes() settings.Attributes {
	attrs := settings.Attributes{
		Advanced:    e.def.Advanced,
		Description: e.def.Description,
		DisplayName: e.def.DisplayName,
		ReadOnly:    e.def.ReadOnly,
		Category:    e.def.Section,
		Order:       e.def.Order,
	}
	if e.def.Browsable != nil {
		attrs.Browsable = settings.TristateOf(*e.def.Browsable)
	}
	return attrs
}

// cloneValue copies list values so callers can't alias stored state.
func cloneValue(v any) any {
	if l, ok := v.([]string); ok {
		return slices.Clone(l)
	}
	return v
}
