package plugin

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"regexp"
	"slices"

	"github.com/dshills/confman/internal/config"
	"github.com/dshills/confman/internal/settings"
)

// DefaultSection holds schema properties that name no section.
const DefaultSection = "general"

// Manifest describes a plugin's metadata and configuration schema.
type Manifest struct {
	// Identity
	Name        string `json:"name"`        // Unique identifier (e.g., "audio-mixer")
	Version     string `json:"version"`     // Semver (e.g., "1.2.0")
	DisplayName string `json:"displayName"` // Human-readable name
	Description string `json:"description"` // Short description
	Author      string `json:"author"`      // Author name or org
	Homepage    string `json:"homepage"`    // URL to plugin homepage

	// Entry point
	Main string `json:"main"` // Relative path to main Lua file (default: "init.lua")

	// Browsable false hides the whole plugin from the settings list.
	Browsable *bool `json:"browsable"`

	// Advanced marks every setting of the plugin as advanced.
	Advanced bool `json:"advanced"`

	// Configuration schema, keyed by setting key
	ConfigSchema map[string]ConfigProperty `json:"configSchema"`

	// Internal: path to the plugin directory
	path string
}

// ConfigProperty describes a configuration option.
type ConfigProperty struct {
	Section     string   `json:"section"`     // File section (default: "general")
	Type        string   `json:"type"`        // string, integer, number, boolean, duration, enum, array
	Default     any      `json:"default"`     // Default value
	Description string   `json:"description"` // Property description
	DisplayName string   `json:"displayName"` // Label shown instead of the key
	Advanced    bool     `json:"advanced"`    // Hidden unless advanced settings are shown
	Browsable   *bool    `json:"browsable"`   // false hides the setting
	ReadOnly    bool     `json:"readOnly"`    // Rejects writes
	Enum        []any    `json:"enum"`        // Allowed values for enum types
	Minimum     *float64 `json:"minimum"`     // Minimum value for numbers
	Maximum     *float64 `json:"maximum"`     // Maximum value for numbers
	Order       int      `json:"order"`       // Display order within the section
}

// Validation errors.
var (
	ErrMissingName       = errors.New("manifest: name is required")
	ErrInvalidName       = errors.New("manifest: name must be alphanumeric with hyphens")
	ErrMissingVersion    = errors.New("manifest: version is required")
	ErrInvalidVersion    = errors.New("manifest: version must be valid semver")
	ErrInvalidMain       = errors.New("manifest: main must be a .lua file")
	ErrInvalidConfigType = errors.New("manifest: invalid config property type")
)

// namePattern validates plugin names.
var namePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*[a-z0-9]$|^[a-z]$`)

// semverPattern validates version strings (simplified semver).
var semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-zA-Z0-9.-]+)?(\+[a-zA-Z0-9.-]+)?$`)

// LoadManifest loads and validates a plugin manifest from a file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	m.path = filepath.Dir(path)
	m.applyDefaults()

	if err := m.Validate(); err != nil {
		return nil, err
	}

	return &m, nil
}

// NewManifestMinimal creates a minimal manifest for plugins without plugin.json.
func NewManifestMinimal(name, path string) *Manifest {
	return &Manifest{
		Name:    name,
		Version: "0.0.0",
		Main:    "init.lua",
		path:    path,
	}
}

// applyDefaults sets default values for optional fields.
func (m *Manifest) applyDefaults() {
	if m.Main == "" {
		m.Main = "init.lua"
	}
	if m.Version == "" {
		m.Version = "0.0.0"
	}
}

// Validate checks that the manifest is valid.
func (m *Manifest) Validate() error {
	if m.Name == "" {
		return ErrMissingName
	}
	if !namePattern.MatchString(m.Name) {
		return fmt.Errorf("%w: %s", ErrInvalidName, m.Name)
	}

	if m.Version == "" {
		return ErrMissingVersion
	}
	if !semverPattern.MatchString(m.Version) {
		return fmt.Errorf("%w: %s", ErrInvalidVersion, m.Version)
	}

	if m.Main != "" && filepath.Ext(m.Main) != ".lua" {
		return fmt.Errorf("%w: %s", ErrInvalidMain, m.Main)
	}

	for key, prop := range m.ConfigSchema {
		if _, err := config.ParseType(prop.Type); err != nil {
			return fmt.Errorf("%w: %s.%s has type %q", ErrInvalidConfigType, m.Name, key, prop.Type)
		}
	}

	return nil
}

// Path returns the path to the plugin directory.
func (m *Manifest) Path() string {
	return m.path
}

// MainPath returns the full path to the main Lua file.
func (m *Manifest) MainPath() string {
	return filepath.Join(m.path, m.Main)
}

// Title returns the display name, or the name when none is set.
func (m *Manifest) Title() string {
	return cmp.Or(m.DisplayName, m.Name)
}

// Info returns the identity shown next to the plugin's settings.
func (m *Manifest) Info() settings.PluginInfo {
	return settings.PluginInfo{ID: m.Name, Name: m.Title(), Version: m.Version}
}

// Attributes returns the plugin-level settings metadata.
func (m *Manifest) Attributes() settings.Attributes {
	attrs := settings.Attributes{
		Advanced:    m.Advanced,
		Description: m.Description,
		DisplayName: m.DisplayName,
	}
	if m.Browsable != nil {
		attrs.Browsable = settings.TristateOf(*m.Browsable)
	}
	return attrs
}

// Definitions converts the config schema into setting definitions, sorted
// by section, then order, then key. A manifest-level Advanced flag marks
// every definition advanced.
func (m *Manifest) Definitions() ([]config.Definition, error) {
	defs := make([]config.Definition, 0, len(m.ConfigSchema))
	for _, key := range slices.Sorted(maps.Keys(m.ConfigSchema)) {
		prop := m.ConfigSchema[key]
		typ, err := config.ParseType(prop.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: %s.%s has type %q", ErrInvalidConfigType, m.Name, key, prop.Type)
		}
		defs = append(defs, config.Definition{
			Section:     cmp.Or(prop.Section, DefaultSection),
			Key:         key,
			Type:        typ,
			Default:     prop.Default,
			Description: prop.Description,
			DisplayName: prop.DisplayName,
			Advanced:    prop.Advanced || m.Advanced,
			Browsable:   prop.Browsable,
			ReadOnly:    prop.ReadOnly,
			Enum:        prop.Enum,
			Minimum:     prop.Minimum,
			Maximum:     prop.Maximum,
			Order:       prop.Order,
		})
	}

	slices.SortStableFunc(defs, func(a, b config.Definition) int {
		return cmp.Or(
			cmp.Compare(a.Section, b.Section),
			cmp.Compare(a.Order, b.Order),
			cmp.Compare(a.Key, b.Key),
		)
	})
	return defs, nil
}
