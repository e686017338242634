package plugin

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/confman/internal/config"
	plua "github.com/dshills/confman/internal/plugin/lua"
	"github.com/dshills/confman/internal/settings"
)

// ModuleName is the global Lua table through which plugins reach the host.
const ModuleName = "confman"

// Host manages a single plugin's Lua state, configuration and lifecycle.
// A Host is the live instance behind a plugin's settings: its Enabled
// property is the per-frame run toggle, and Stale reports when the Lua
// state has been released.
type Host struct {
	mu sync.RWMutex

	// Identity
	name     string
	manifest *Manifest

	// Lua runtime
	state *plua.State

	// State
	pluginState State
	err         error
	enabled     bool
	frames      uint64

	// Configuration
	config *config.File

	// Options
	executionTimeout time.Duration
	configDir        string
	log              logrus.FieldLogger
}

// HostOption configures a Host.
type HostOption func(*Host)

// WithHostExecutionTimeout sets the execution timeout for plugin calls.
func WithHostExecutionTimeout(d time.Duration) HostOption {
	return func(h *Host) {
		h.executionTimeout = d
	}
}

// WithHostConfigDir sets the directory holding the plugin's config file.
// The default is the plugin directory.
func WithHostConfigDir(dir string) HostOption {
	return func(h *Host) {
		h.configDir = dir
	}
}

// WithHostLogger sets the logger for plugin output and diagnostics.
func WithHostLogger(log logrus.FieldLogger) HostOption {
	return func(h *Host) {
		if log != nil {
			h.log = log
		}
	}
}

// NewHost creates a new plugin host for the given manifest and binds the
// manifest's config schema to <configDir>/<name>.toml.
func NewHost(manifest *Manifest, opts ...HostOption) (*Host, error) {
	if manifest == nil {
		return nil, ErrNilManifest
	}

	h := &Host{
		name:             manifest.Name,
		manifest:         manifest,
		pluginState:      StateUnloaded,
		enabled:          true,
		executionTimeout: plua.DefaultExecutionTimeout,
		log:              logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(h)
	}
	h.log = h.log.WithField("plugin", manifest.Name)

	dir := h.configDir
	if dir == "" {
		dir = manifest.Path()
	}
	h.config = config.NewFile(filepath.Join(dir, manifest.Name+".toml"))

	defs, err := manifest.Definitions()
	if err != nil {
		return nil, err
	}
	for _, def := range defs {
		if _, err := h.config.Bind(def); err != nil {
			return nil, fmt.Errorf("plugin %q: %w", manifest.Name, err)
		}
	}

	return h, nil
}

// Name returns the plugin name.
func (h *Host) Name() string {
	return h.name
}

// Manifest returns the plugin manifest.
func (h *Host) Manifest() *Manifest {
	return h.manifest
}

// State returns the current plugin state.
func (h *Host) State() State {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.pluginState
}

// Error returns any error that occurred.
func (h *Host) Error() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.err
}

// Config returns the plugin's config file.
func (h *Host) Config() *config.File {
	return h.config
}

// Enabled reports whether per-frame callbacks run.
func (h *Host) Enabled() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.enabled
}

// SetEnabled turns per-frame callbacks on or off. The flag is not persisted.
func (h *Host) SetEnabled(enabled bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == nil {
		return fmt.Errorf("plugin %q: %w", h.name, ErrNotLoaded)
	}
	if h.enabled != enabled {
		h.log.WithField("enabled", enabled).Info("plugin frame callbacks toggled")
	}
	h.enabled = enabled
	return nil
}

// Stale reports whether the host no longer has a live Lua state.
func (h *Host) Stale() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.state == nil
}

// Frames returns how many frames have run the plugin's callbacks.
func (h *Host) Frames() uint64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.frames
}

// Load reads the config file, initializes the Lua state and runs the
// plugin's main file.
func (h *Host) Load(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.pluginState != StateUnloaded {
		return ErrAlreadyLoaded
	}

	if err := h.config.Load(); err != nil {
		var perr *config.ParseError
		if errors.As(err, &perr) {
			h.pluginState = StateError
			h.err = err
			return err
		}
		h.log.WithError(err).Warn("invalid plugin config values replaced by defaults")
	}

	state := plua.NewState(
		plua.WithExecutionTimeout(h.executionTimeout),
		plua.WithPrint(func(s string) { h.log.Info(s) }),
	)
	state.RegisterModule(ModuleName, h.module())

	if err := state.DoFile(h.manifest.MainPath()); err != nil {
		state.Close()
		h.pluginState = StateError
		h.err = fmt.Errorf("failed to load plugin: %w", err)
		return h.err
	}

	h.state = state
	h.pluginState = StateLoaded
	h.enabled = true
	h.err = nil
	return nil
}

// Activate calls the plugin's setup(config) and activate() functions.
func (h *Host) Activate(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.pluginState != StateLoaded {
		return ErrNotLoaded
	}

	h.pluginState = StateActivating

	if err := h.callOptional("setup", plua.ToLua(h.state.L, h.configTable())); err != nil {
		h.pluginState = StateError
		h.err = err
		return err
	}
	if err := h.callOptional("activate"); err != nil {
		h.pluginState = StateError
		h.err = err
		return err
	}

	h.pluginState = StateActive
	h.err = nil
	return nil
}

// Deactivate calls the plugin's deactivate function.
func (h *Host) Deactivate(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.pluginState != StateActive {
		return nil
	}

	h.pluginState = StateDeactivating
	if err := h.callOptional("deactivate"); err != nil {
		h.err = err
	}
	h.pluginState = StateLoaded
	return nil
}

// Unload closes the Lua state. Afterwards the host is stale.
func (h *Host) Unload(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.pluginState == StateUnloaded {
		return nil
	}

	if h.pluginState == StateActive {
		h.pluginState = StateDeactivating
		_ = h.callOptional("deactivate")
	}

	if h.state != nil {
		h.state.Close()
		h.state = nil
	}

	h.pluginState = StateUnloaded
	h.err = nil
	return nil
}

// Functions returns the names of the global functions the plugin defines.
func (h *Host) Functions() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.state == nil {
		return nil
	}
	return h.state.Functions()
}

// HasFunction returns true if the plugin has the named global function.
func (h *Host) HasFunction(name string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.state == nil {
		return false
	}
	return h.state.HasFunction(name)
}

// Frame runs the plugin's per-frame callbacks with the elapsed time in
// seconds. It does nothing unless the plugin is active and enabled. A failing
// callback puts the plugin into the error state.
func (h *Host) Frame(dt float64) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.pluginState != StateActive || !h.enabled {
		return nil
	}

	var ran bool
	for _, fn := range settings.FrameCallbacks() {
		if !h.state.HasFunction(fn) {
			continue
		}
		ran = true
		if _, err := h.state.Call(fn, lua.LNumber(dt)); err != nil {
			h.pluginState = StateError
			h.err = fmt.Errorf("%s: %w", fn, err)
			return h.err
		}
	}
	if ran {
		h.frames++
	}
	return nil
}

// Info returns the plugin identity.
func (h *Host) Info() settings.PluginInfo {
	return h.manifest.Info()
}

// Attributes returns the plugin-level settings metadata.
func (h *Host) Attributes() settings.Attributes {
	return h.manifest.Attributes()
}

// callOptional calls fn if the plugin defines it. Must be called with mu held.
func (h *Host) callOptional(fn string, args ...lua.LValue) error {
	if h.state == nil || !h.state.HasFunction(fn) {
		return nil
	}
	_, err := h.state.Call(fn, args...)
	return err
}

// configTable returns the config values as section tables.
func (h *Host) configTable() map[string]any {
	out := make(map[string]any)
	for _, e := range h.config.Entries() {
		def := e.Definition()
		section, ok := out[def.Section].(map[string]any)
		if !ok {
			section = make(map[string]any)
			out[def.Section] = section
		}
		section[def.Key] = e.Value()
	}
	return out
}

// module returns the functions of the confman Lua table. They run inside
// Lua calls, so they must not take h.mu.
func (h *Host) module() map[string]lua.LGFunction {
	return map[string]lua.LGFunction{
		"get": func(L *lua.LState) int {
			v, err := h.config.Get(L.CheckString(1))
			if err != nil {
				L.Push(lua.LNil)
				L.Push(lua.LString(err.Error()))
				return 2
			}
			L.Push(plua.ToLua(L, v))
			return 1
		},
		"set": func(L *lua.LState) int {
			path := L.CheckString(1)
			if err := h.setFromLua(path, plua.ToGo(L.Get(2))); err != nil {
				L.Push(lua.LFalse)
				L.Push(lua.LString(err.Error()))
				return 2
			}
			L.Push(lua.LTrue)
			return 1
		},
		"log": func(L *lua.LState) int {
			h.log.Info(L.CheckString(1))
			return 0
		},
	}
}

func (h *Host) setFromLua(path string, v any) error {
	e, ok := h.config.Entry(path)
	if !ok {
		return fmt.Errorf("%w: %s", config.ErrSettingNotFound, path)
	}
	coerced, err := e.Definition().Type.Coerce(v)
	if err != nil {
		return err
	}
	return e.SetValue(coerced)
}
