package plugin

import (
	"cmp"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Loader discovers plugins on the filesystem.
type Loader struct {
	// Search paths for plugins (checked in order)
	paths []string

	// Discovered plugins cache
	discovered map[string]*Candidate
}

// Candidate is a plugin found on disk but not necessarily loaded.
type Candidate struct {
	Name     string
	Path     string
	Manifest *Manifest
	Error    error
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithPaths sets the plugin search paths.
func WithPaths(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.paths = paths
	}
}

// NewLoader creates a new plugin loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		paths:      DefaultPluginPaths(),
		discovered: make(map[string]*Candidate),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// DefaultPluginPaths returns the default plugin search paths.
func DefaultPluginPaths() []string {
	paths := make([]string, 0, 2)

	// User plugins: ~/.config/confman/plugins/
	if dir, err := os.UserConfigDir(); err == nil {
		paths = append(paths, filepath.Join(dir, "confman", "plugins"))
	}

	// Working directory plugins: .confman/plugins/
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, ".confman", "plugins"))
	}

	return paths
}

// Discover finds all plugins in the search paths. When two paths hold a
// plugin of the same name, the earlier path wins. Results are sorted by
// name.
func (l *Loader) Discover() ([]*Candidate, error) {
	l.discovered = make(map[string]*Candidate)

	var errs []error
	for _, basePath := range l.paths {
		if err := l.discoverInPath(basePath); err != nil {
			errs = append(errs, err)
		}
	}

	plugins := make([]*Candidate, 0, len(l.discovered))
	for _, c := range l.discovered {
		plugins = append(plugins, c)
	}
	slices.SortFunc(plugins, func(a, b *Candidate) int {
		return cmp.Compare(a.Name, b.Name)
	})

	if len(errs) > 0 {
		return plugins, fmt.Errorf("scanning plugin paths: %w", errs[0])
	}
	return plugins, nil
}

// discoverInPath finds plugins in a single directory.
func (l *Loader) discoverInPath(basePath string) error {
	entries, err := os.ReadDir(basePath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			if filepath.Ext(entry.Name()) == ".lua" {
				name := strings.TrimSuffix(entry.Name(), ".lua")
				l.addSingleFile(name, filepath.Join(basePath, entry.Name()))
			}
			continue
		}

		c := l.inspect(entry.Name(), filepath.Join(basePath, entry.Name()))
		if _, exists := l.discovered[c.Name]; !exists {
			l.discovered[c.Name] = c
		}
	}

	return nil
}

// addSingleFile adds a single-file plugin.
func (l *Loader) addSingleFile(name, luaPath string) {
	if _, exists := l.discovered[name]; exists {
		return
	}
	l.discovered[name] = singleFile(name, luaPath)
}

func singleFile(name, luaPath string) *Candidate {
	manifest := NewManifestMinimal(name, filepath.Dir(luaPath))
	manifest.Main = filepath.Base(luaPath)
	return &Candidate{
		Name:     name,
		Path:     filepath.Dir(luaPath),
		Manifest: manifest,
	}
}

// inspect examines a plugin directory.
func (l *Loader) inspect(name, path string) *Candidate {
	c := &Candidate{Name: name, Path: path}

	manifestPath := filepath.Join(path, "plugin.json")
	if _, err := os.Stat(manifestPath); err == nil {
		manifest, err := LoadManifest(manifestPath)
		if err != nil {
			c.Error = fmt.Errorf("invalid manifest: %w", err)
			return c
		}
		c.Manifest = manifest
		c.Name = manifest.Name
		return c
	}

	for _, main := range []string{"init.lua", "plugin.lua"} {
		if _, err := os.Stat(filepath.Join(path, main)); err == nil {
			c.Manifest = NewManifestMinimal(name, path)
			c.Manifest.Main = main
			return c
		}
	}

	c.Error = ErrNoEntryPoint
	return c
}

// FindPlugin searches for a plugin by name across all paths and returns
// the first match.
func (l *Loader) FindPlugin(name string) (*Candidate, error) {
	if c, ok := l.discovered[name]; ok {
		if c.Error != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrInvalidPlugin, name, c.Error)
		}
		return c, nil
	}

	for _, basePath := range l.paths {
		pluginPath := filepath.Join(basePath, name)
		if stat, err := os.Stat(pluginPath); err == nil && stat.IsDir() {
			c := l.inspect(name, pluginPath)
			if c.Error == nil {
				l.discovered[name] = c
				return c, nil
			}
		}

		luaPath := filepath.Join(basePath, name+".lua")
		if _, err := os.Stat(luaPath); err == nil {
			c := singleFile(name, luaPath)
			l.discovered[name] = c
			return c, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrPluginNotFound, name)
}
