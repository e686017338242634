package app

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/dshills/confman/internal/config"
	"github.com/dshills/confman/internal/settings"
)

// Assignment is a parsed "[plugin:]section.key=value" string. Plugin is
// empty for core settings. A plugin's Path may also be the Enabled
// property.
type Assignment struct {
	Plugin string
	Path   string
	Value  string
}

// ParseAssignment parses s as "[plugin:]section.key=value".
func ParseAssignment(s string) (Assignment, error) {
	target, value, ok := strings.Cut(s, "=")
	if !ok {
		return Assignment{}, fmt.Errorf("%w: %q: missing '='", ErrInvalidAssignment, s)
	}

	var a Assignment
	a.Value = value
	if name, path, scoped := strings.Cut(target, ":"); scoped {
		if name = strings.TrimSpace(name); name == "" {
			return Assignment{}, fmt.Errorf("%w: %q: empty plugin name", ErrInvalidAssignment, s)
		}
		a.Plugin = name
		target = path
	}
	a.Path = strings.TrimSpace(target)
	if a.Path == "" {
		return Assignment{}, fmt.Errorf("%w: %q: empty setting path", ErrInvalidAssignment, s)
	}
	return a, nil
}

// String returns the assignment target, e.g. "clock:display.format".
func (a Assignment) String() string {
	if a.Plugin == "" {
		return a.Path
	}
	return a.Plugin + ":" + a.Path
}

// Set parses and applies an assignment.
func (app *Application) Set(s string) error {
	a, err := ParseAssignment(s)
	if err != nil {
		return err
	}
	return app.Apply(a)
}

// Apply converts the assignment value to the setting's type and stores it
// through the same entry a settings list would show. Changed files are
// written by Save.
func (app *Application) Apply(a Assignment) error {
	entry, file, err := app.resolve(a)
	if err != nil {
		return &OperationError{Op: "set", Target: a.String(), Err: err}
	}

	v, err := settings.ParseValue(entry.Type(), a.Value)
	if err != nil {
		return &OperationError{Op: "set", Target: a.String(), Err: err}
	}
	if err := entry.Set(v); err != nil {
		return &OperationError{Op: "set", Target: a.String(), Err: err}
	}

	app.logger("settings").WithFields(logrus.Fields{
		"setting": a.String(),
		"value":   settings.FormatValue(v),
	}).Info("setting changed")

	if file == nil {
		return nil
	}
	app.mu.Lock()
	app.dirty[file] = true
	app.mu.Unlock()
	return nil
}

// resolve finds the entry an assignment targets and the file backing it.
// The Enabled property has no backing file.
func (app *Application) resolve(a Assignment) (settings.Entry, *config.File, error) {
	if a.Plugin == "" {
		rec, ok := app.core.Entry(a.Path)
		if !ok {
			return nil, nil, fmt.Errorf("%w: %s", config.ErrSettingNotFound, a.Path)
		}
		return settings.NewConfigEntry(rec, nil), app.core, nil
	}

	host, ok := app.plugins.Get(a.Plugin)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", ErrUnknownPlugin, a.Plugin)
	}

	if a.Path == settings.EnabledProperty {
		prop, err := settings.LookupProperty(host, settings.EnabledProperty)
		if err != nil {
			return nil, nil, err
		}
		return settings.NewPropertyEntry(host, prop, host.Info()), nil, nil
	}

	file := host.Config()
	rec, ok := file.Entry(a.Path)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s", config.ErrSettingNotFound, a.Path)
	}
	return settings.NewConfigEntry(rec, &pluginAdapter{host: host}), file, nil
}

// Save writes every config file changed since the last Save.
func (app *Application) Save() error {
	app.mu.Lock()
	files := make([]*config.File, 0, len(app.dirty))
	for f := range app.dirty {
		files = append(files, f)
	}
	clear(app.dirty)
	app.mu.Unlock()

	var errs []error
	for _, f := range files {
		if err := f.Save(); err != nil {
			errs = append(errs, &OperationError{Op: "save", Target: f.Path(), Err: err})
			app.mu.Lock()
			app.dirty[f] = true
			app.mu.Unlock()
			continue
		}
		app.logger("config").WithField("file", f.Path()).Info("config saved")
	}
	return errors.Join(errs...)
}

// Dirty reports whether Set changed a file that has not been saved.
func (app *Application) Dirty() bool {
	app.mu.Lock()
	defer app.mu.Unlock()
	return len(app.dirty) > 0
}
