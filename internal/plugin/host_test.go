package plugin

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"

	plua "github.com/dshills/confman/internal/plugin/lua"
	"github.com/dshills/confman/internal/settings"
)

func quietLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func createTestPlugin(t *testing.T, name, luaCode string, schema map[string]ConfigProperty) *Manifest {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "init.lua"), []byte(luaCode), 0644))
	return &Manifest{
		Name:         name,
		Version:      "1.0.0",
		Main:         "init.lua",
		ConfigSchema: schema,
		path:         dir,
	}
}

func newLoadedHost(t *testing.T, manifest *Manifest) *Host {
	t.Helper()
	host, err := NewHost(manifest, WithHostLogger(quietLogger()), WithHostConfigDir(t.TempDir()))
	require.NoError(t, err)
	require.NoError(t, host.Load(context.Background()))
	t.Cleanup(func() { _ = host.Unload(context.Background()) })
	return host
}

// callLua runs a global function of a loaded plugin and converts the results.
func callLua(t *testing.T, h *Host, fn string, args ...any) []any {
	t.Helper()
	h.mu.Lock()
	defer h.mu.Unlock()
	require.NotNil(t, h.state, "plugin %s is not loaded", h.name)

	luaArgs := make([]lua.LValue, len(args))
	for i, arg := range args {
		luaArgs[i] = plua.ToLua(h.state.L, arg)
	}
	results, err := h.state.Call(fn, luaArgs...)
	require.NoError(t, err, "calling %s", fn)

	out := make([]any, len(results))
	for i, r := range results {
		out[i] = plua.ToGo(r)
	}
	return out
}

func TestNewHost(t *testing.T) {
	_, err := NewHost(nil)
	assert.ErrorIs(t, err, ErrNilManifest)

	manifest := createTestPlugin(t, "test", "", map[string]ConfigProperty{
		"volume": {Section: "audio", Type: "number", Default: 0.5},
	})
	configDir := t.TempDir()
	host, err := NewHost(manifest, WithHostConfigDir(configDir))
	require.NoError(t, err)

	assert.Equal(t, "test", host.Name())
	assert.Equal(t, StateUnloaded, host.State())
	assert.True(t, host.Stale(), "host is stale before Load")
	assert.Equal(t, filepath.Join(configDir, "test.toml"), host.Config().Path())

	v, err := host.Config().GetFloat("audio.volume")
	require.NoError(t, err)
	assert.Equal(t, 0.5, v)
}

func TestNewHostInvalidDefault(t *testing.T) {
	manifest := createTestPlugin(t, "test", "", map[string]ConfigProperty{
		"volume": {Type: "number", Default: "loud"},
	})
	_, err := NewHost(manifest)
	assert.Error(t, err, "a default of the wrong type is rejected")
}

func TestHostLifecycle(t *testing.T) {
	code := `
calls = {}
function setup(config) table.insert(calls, "setup:" .. config.audio.volume) end
function activate() table.insert(calls, "activate") end
function deactivate() table.insert(calls, "deactivate") end
function trace() return table.concat(calls, ",") end
`
	manifest := createTestPlugin(t, "life", code, map[string]ConfigProperty{
		"volume": {Section: "audio", Type: "number", Default: 0.25},
	})
	host := newLoadedHost(t, manifest)
	ctx := context.Background()

	require.Equal(t, StateLoaded, host.State())
	assert.False(t, host.Stale())
	assert.ErrorIs(t, host.Load(ctx), ErrAlreadyLoaded)

	require.NoError(t, host.Activate(ctx))
	require.NoError(t, host.Deactivate(ctx))
	assert.Equal(t, []any{"setup:0.25,activate,deactivate"}, callLua(t, host, "trace"))

	require.NoError(t, host.Unload(ctx))
	assert.True(t, host.Stale())
	assert.ErrorIs(t, host.SetEnabled(false), ErrNotLoaded)
}

func TestHostLoadError(t *testing.T) {
	manifest := createTestPlugin(t, "broken", "this is not lua", nil)
	host, err := NewHost(manifest, WithHostLogger(quietLogger()))
	require.NoError(t, err)

	assert.Error(t, host.Load(context.Background()))
	assert.Equal(t, StateError, host.State())
	assert.Error(t, host.Error())
}

func TestHostFunctions(t *testing.T) {
	code := `
function update(dt) end
function on_gui() end
function helper() end
`
	host := newLoadedHost(t, createTestPlugin(t, "funcs", code, nil))

	assert.Equal(t, []string{"helper", "on_gui", "update"}, host.Functions())
	assert.True(t, host.HasFunction("update"))
	assert.False(t, host.HasFunction("fixed_update"))
}

func TestHostFrameRespectsEnabled(t *testing.T) {
	code := `
ticks = 0
function update(dt) ticks = ticks + 1 end
function late_update(dt) ticks = ticks + 1 end
function count() return ticks end
`
	host := newLoadedHost(t, createTestPlugin(t, "ticker", code, nil))

	// Not active yet: frames are skipped.
	require.NoError(t, host.Frame(0.016))
	assert.Zero(t, host.Frames())

	require.NoError(t, host.Activate(context.Background()))
	for range 3 {
		require.NoError(t, host.Frame(0.016))
	}

	require.NoError(t, host.SetEnabled(false))
	assert.False(t, host.Enabled())
	require.NoError(t, host.Frame(0.016))

	assert.Equal(t, uint64(3), host.Frames())
	assert.Equal(t, []any{int64(6)}, callLua(t, host, "count"))
}

func TestHostFrameErrorStopsPlugin(t *testing.T) {
	host := newLoadedHost(t, createTestPlugin(t, "crash", `function update() error("boom") end`, nil))
	require.NoError(t, host.Activate(context.Background()))

	assert.Error(t, host.Frame(0.016))
	assert.Equal(t, StateError, host.State())
	assert.NoError(t, host.Frame(0.016), "an errored plugin is skipped")
}

func TestHostConfigModule(t *testing.T) {
	code := `
function bump()
	local v = confman.get("audio.volume")
	local ok, err = confman.set("audio.volume", v + 0.25)
	return ok
end
function bad()
	return confman.set("audio.volume", "loud")
end
function missing()
	return confman.get("audio.nope")
end
`
	host := newLoadedHost(t, createTestPlugin(t, "cfg", code, map[string]ConfigProperty{
		"volume": {Section: "audio", Type: "number", Default: 0.5},
	}))

	assert.Equal(t, []any{true}, callLua(t, host, "bump"))
	v, err := host.Config().GetFloat("audio.volume")
	require.NoError(t, err)
	assert.Equal(t, 0.75, v)

	res := callLua(t, host, "bad")
	require.NotEmpty(t, res)
	assert.Equal(t, false, res[0])

	res = callLua(t, host, "missing")
	require.Len(t, res, 2)
	assert.Nil(t, res[0])
	assert.NotEmpty(t, res[1])
}

func TestHostReadsConfigFileOnLoad(t *testing.T) {
	manifest := createTestPlugin(t, "cfg", "", map[string]ConfigProperty{
		"retries": {Section: "net", Type: "integer", Default: 1},
	})
	configDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(configDir, "cfg.toml"), []byte("[net]\nretries = 5\n"), 0644))

	host, err := NewHost(manifest, WithHostConfigDir(configDir), WithHostLogger(quietLogger()))
	require.NoError(t, err)
	require.NoError(t, host.Load(context.Background()))
	defer host.Unload(context.Background())

	v, err := host.Config().GetInt("net.retries")
	require.NoError(t, err)
	assert.Equal(t, int64(5), v)
}

func TestHostEnabledIsASettingsProperty(t *testing.T) {
	host := newLoadedHost(t, createTestPlugin(t, "prop", `function update() end`, nil))

	prop, err := settings.LookupProperty(host, settings.EnabledProperty)
	require.NoError(t, err)
	assert.True(t, prop.CanRead())
	assert.True(t, prop.CanWrite())

	entry := settings.NewPropertyEntry(host, prop, host.Info())
	require.NoError(t, entry.Set(false))
	assert.False(t, host.Enabled())

	_ = host.Unload(context.Background())
	_, err = entry.Get()
	assert.ErrorIs(t, err, settings.ErrStaleInstance)
}
