package plugin

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Manager manages the lifecycle of all plugins.
// It handles discovery, loading, activation, frame dispatch and events.
type Manager struct {
	mu sync.RWMutex

	// Loader for plugin discovery
	loader *Loader

	// Loaded plugins by name
	plugins map[string]*Host

	// Plugin load order (for deterministic iteration)
	loadOrder []string

	// Event handlers (protected by mu)
	eventHandlers []EventHandler

	// Configuration
	config ManagerConfig
	log    logrus.FieldLogger
}

// ManagerConfig configures the plugin manager.
type ManagerConfig struct {
	// PluginPaths are directories to search for plugins
	PluginPaths []string

	// ConfigDir holds one config file per plugin. Empty means each
	// plugin's own directory.
	ConfigDir string

	// AutoActivate plugins on load
	AutoActivate bool

	// ExecutionTimeout bounds each Lua call (zero uses the default)
	ExecutionTimeout time.Duration

	// Logger receives lifecycle and plugin output (nil uses the standard logger)
	Logger logrus.FieldLogger
}

// EventHandler handles plugin manager events. Handlers run synchronously
// without the registry lock held, so they may call back into the Manager.
// Panics in handlers are recovered.
type EventHandler func(event ManagerEvent)

// ManagerEvent represents a plugin manager event.
type ManagerEvent struct {
	Type   ManagerEventType
	Plugin string
	Error  error

	// Host is the plugin's host. For EventPluginUnloaded it is already stale.
	Host *Host
}

// ManagerEventType is the type of manager event.
type ManagerEventType int

const (
	// EventPluginLoaded is emitted when a plugin is loaded.
	EventPluginLoaded ManagerEventType = iota
	// EventPluginUnloaded is emitted when a plugin is unloaded.
	EventPluginUnloaded
	// EventPluginActivated is emitted when a plugin is activated.
	EventPluginActivated
	// EventPluginDeactivated is emitted when a plugin is deactivated.
	EventPluginDeactivated
	// EventPluginError is emitted when a plugin encounters an error.
	EventPluginError
)

// String returns a string representation of the event type.
func (t ManagerEventType) String() string {
	switch t {
	case EventPluginLoaded:
		return "loaded"
	case EventPluginUnloaded:
		return "unloaded"
	case EventPluginActivated:
		return "activated"
	case EventPluginDeactivated:
		return "deactivated"
	case EventPluginError:
		return "error"
	default:
		return "unknown"
	}
}

// NewManager creates a new plugin manager.
func NewManager(config ManagerConfig) *Manager {
	log := config.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Manager{
		loader:    NewLoader(WithPaths(config.PluginPaths...)),
		plugins:   make(map[string]*Host),
		loadOrder: make([]string, 0),
		config:    config,
		log:       log.WithField("component", "plugins"),
	}
}

// Load loads a plugin by name.
// If the plugin is already loaded, returns ErrAlreadyLoaded.
func (m *Manager) Load(ctx context.Context, name string) (*Host, error) {
	m.mu.RLock()
	_, exists := m.plugins[name]
	m.mu.RUnlock()
	if exists {
		return nil, fmt.Errorf("plugin %q: %w", name, ErrAlreadyLoaded)
	}

	c, err := m.loader.FindPlugin(name)
	if err != nil {
		return nil, err
	}

	host, err := NewHost(c.Manifest, m.hostOptions()...)
	if err != nil {
		return nil, err
	}

	// Lua execution happens outside the registry lock.
	if err := host.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load plugin %q: %w", name, err)
	}

	m.mu.Lock()
	if _, exists := m.plugins[name]; exists {
		m.mu.Unlock()
		_ = host.Unload(ctx)
		return nil, fmt.Errorf("plugin %q: %w", name, ErrAlreadyLoaded)
	}
	m.plugins[name] = host
	m.loadOrder = append(m.loadOrder, name)
	m.mu.Unlock()

	m.log.WithFields(logrus.Fields{
		"plugin":  name,
		"version": c.Manifest.Version,
		"path":    c.Path,
	}).Info("plugin loaded")
	m.emitEvent(ManagerEvent{Type: EventPluginLoaded, Plugin: name, Host: host})

	if m.config.AutoActivate {
		if err := host.Activate(ctx); err != nil {
			m.log.WithError(err).WithField("plugin", name).Warn("plugin activation failed")
			m.emitEvent(ManagerEvent{Type: EventPluginError, Plugin: name, Host: host, Error: err})
		} else {
			m.emitEvent(ManagerEvent{Type: EventPluginActivated, Plugin: name, Host: host})
		}
	}

	return host, nil
}

func (m *Manager) hostOptions() []HostOption {
	opts := []HostOption{
		WithHostConfigDir(m.config.ConfigDir),
		WithHostLogger(m.log),
	}
	if m.config.ExecutionTimeout > 0 {
		opts = append(opts, WithHostExecutionTimeout(m.config.ExecutionTimeout))
	}
	return opts
}

// LoadAll loads all discovered plugins. Failing plugins are skipped and
// reported together.
func (m *Manager) LoadAll(ctx context.Context) error {
	candidates, err := m.loader.Discover()
	if err != nil {
		m.log.WithError(err).Warn("plugin discovery incomplete")
	}

	var loadErrors []error
	for _, c := range candidates {
		if c.Error != nil {
			loadErrors = append(loadErrors, fmt.Errorf("%s: %w", c.Name, c.Error))
			continue
		}
		if _, err := m.Load(ctx, c.Name); err != nil {
			loadErrors = append(loadErrors, fmt.Errorf("%s: %w", c.Name, err))
		}
	}

	if len(loadErrors) > 0 {
		return fmt.Errorf("failed to load %d plugins: %w", len(loadErrors), errors.Join(loadErrors...))
	}
	return nil
}

// Unload unloads a plugin by name. Settings entries still bound to the host
// report it as stale afterwards.
func (m *Manager) Unload(ctx context.Context, name string) error {
	m.mu.Lock()
	host, exists := m.plugins[name]
	if !exists {
		m.mu.Unlock()
		return fmt.Errorf("plugin %q: %w", name, ErrPluginNotFound)
	}
	delete(m.plugins, name)
	m.loadOrder = slices.DeleteFunc(m.loadOrder, func(n string) bool { return n == name })
	m.mu.Unlock()

	if host.State() == StateActive {
		if err := host.Deactivate(ctx); err != nil {
			m.emitEvent(ManagerEvent{Type: EventPluginError, Plugin: name, Host: host, Error: err})
		} else {
			m.emitEvent(ManagerEvent{Type: EventPluginDeactivated, Plugin: name, Host: host})
		}
	}

	if err := host.Unload(ctx); err != nil {
		return fmt.Errorf("failed to unload plugin %q: %w", name, err)
	}

	m.log.WithField("plugin", name).Info("plugin unloaded")
	m.emitEvent(ManagerEvent{Type: EventPluginUnloaded, Plugin: name, Host: host})
	return nil
}

// UnloadAll unloads all plugins in reverse load order.
func (m *Manager) UnloadAll(ctx context.Context) error {
	m.mu.RLock()
	names := slices.Clone(m.loadOrder)
	m.mu.RUnlock()
	slices.Reverse(names)

	var unloadErrors []error
	for _, name := range names {
		if err := m.Unload(ctx, name); err != nil {
			unloadErrors = append(unloadErrors, fmt.Errorf("%s: %w", name, err))
		}
	}

	if len(unloadErrors) > 0 {
		return fmt.Errorf("failed to unload %d plugins: %w", len(unloadErrors), errors.Join(unloadErrors...))
	}
	return nil
}

// Get returns a plugin by name.
func (m *Manager) Get(name string) (*Host, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	host, exists := m.plugins[name]
	return host, exists
}

// List returns a snapshot of the loaded plugins in load order. The snapshot
// is taken under the registry read lock, so it is consistent even while
// other goroutines load or unload plugins.
func (m *Manager) List() []*Host {
	m.mu.RLock()
	defer m.mu.RUnlock()

	result := make([]*Host, 0, len(m.loadOrder))
	for _, name := range m.loadOrder {
		if host, exists := m.plugins[name]; exists {
			result = append(result, host)
		}
	}
	return result
}

// Frame runs one frame of every plugin's per-frame callbacks. A plugin
// whose callback fails is reported and skipped on later frames.
func (m *Manager) Frame(dt float64) {
	for _, host := range m.List() {
		if err := host.Frame(dt); err != nil {
			m.log.WithError(err).WithField("plugin", host.Name()).Error("plugin frame callback failed")
			m.emitEvent(ManagerEvent{Type: EventPluginError, Plugin: host.Name(), Host: host, Error: err})
		}
	}
}

// Subscribe adds an event handler.
// Returns an unsubscribe function to remove the handler.
func (m *Manager) Subscribe(handler EventHandler) func() {
	if handler == nil {
		return func() {}
	}

	m.mu.Lock()
	m.eventHandlers = append(m.eventHandlers, handler)
	index := len(m.eventHandlers) - 1
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		// Set to nil instead of removing to avoid index shifting issues
		if index < len(m.eventHandlers) {
			m.eventHandlers[index] = nil
		}
	}
}

// Count returns the number of loaded plugins.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.plugins)
}

// Errors returns all plugins in error state with their errors.
func (m *Manager) Errors() map[string]error {
	errs := make(map[string]error)
	for _, host := range m.List() {
		if host.State() == StateError && host.Error() != nil {
			errs[host.Name()] = host.Error()
		}
	}
	return errs
}

// emitEvent sends an event to all handlers.
// Handlers are called outside any locks and panics are recovered.
func (m *Manager) emitEvent(event ManagerEvent) {
	m.mu.RLock()
	handlers := slices.Clone(m.eventHandlers)
	m.mu.RUnlock()

	for _, handler := range handlers {
		if handler == nil {
			continue
		}
		func() {
			defer func() {
				if r := recover(); r != nil {
					m.log.WithField("panic", r).Error("plugin event handler panicked")
				}
			}()
			handler(event)
		}()
	}
}
