package plugin

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/confman/internal/config"
	"github.com/dshills/confman/internal/settings"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plugin.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadManifest(t *testing.T) {
	path := writeManifest(t, `{
		"name": "audio-mixer",
		"version": "1.2.0",
		"displayName": "Audio Mixer",
		"description": "Mixes audio",
		"browsable": false,
		"advanced": true
	}`)

	m, err := LoadManifest(path)
	require.NoError(t, err)

	assert.Equal(t, "audio-mixer", m.Name)
	assert.Equal(t, "init.lua", m.Main, "main defaults to init.lua")
	assert.Equal(t, filepath.Dir(path), m.Path())
	assert.Equal(t, "Audio Mixer", m.Title())

	attrs := m.Attributes()
	assert.Equal(t, settings.False, attrs.Browsable)
	assert.True(t, attrs.Advanced)

	want := settings.PluginInfo{ID: "audio-mixer", Name: "Audio Mixer", Version: "1.2.0"}
	assert.Equal(t, want, m.Info())
}

func TestLoadManifestInvalidJSON(t *testing.T) {
	_, err := LoadManifest(writeManifest(t, `{"name": `))
	assert.Error(t, err)
}

func TestManifestValidate(t *testing.T) {
	tests := []struct {
		name     string
		manifest Manifest
		wantErr  error
	}{
		{"valid", Manifest{Name: "ok", Version: "1.0.0"}, nil},
		{"missing name", Manifest{Version: "1.0.0"}, ErrMissingName},
		{"bad name", Manifest{Name: "Bad_Name", Version: "1.0.0"}, ErrInvalidName},
		{"missing version", Manifest{Name: "ok"}, ErrMissingVersion},
		{"bad version", Manifest{Name: "ok", Version: "v1"}, ErrInvalidVersion},
		{"bad main", Manifest{Name: "ok", Version: "1.0.0", Main: "main.py"}, ErrInvalidMain},
		{
			"bad config type",
			Manifest{Name: "ok", Version: "1.0.0", ConfigSchema: map[string]ConfigProperty{"x": {Type: "object"}}},
			ErrInvalidConfigType,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.manifest.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestManifestDefinitions(t *testing.T) {
	path := writeManifest(t, `{
		"name": "audio-mixer",
		"version": "1.0.0",
		"configSchema": {
			"volume": {"section": "audio", "type": "number", "default": 0.8, "minimum": 0, "maximum": 1, "order": 2},
			"muted": {"section": "audio", "type": "boolean", "order": 1},
			"device": {"section": "audio", "type": "string", "default": "default", "order": 1},
			"rate": {"type": "integer", "default": 44100, "readOnly": true, "browsable": false},
			"mode": {"section": "audio", "type": "enum", "default": "stereo", "enum": ["mono", "stereo"], "order": 3}
		}
	}`)

	m, err := LoadManifest(path)
	require.NoError(t, err)

	defs, err := m.Definitions()
	require.NoError(t, err)

	var paths []string
	for _, d := range defs {
		paths = append(paths, d.Path())
	}
	require.Equal(t, []string{"audio.device", "audio.muted", "audio.volume", "audio.mode", "general.rate"}, paths)

	rate := defs[4]
	assert.Equal(t, config.TypeInt, rate.Type)
	assert.True(t, rate.ReadOnly)
	require.NotNil(t, rate.Browsable)
	assert.False(t, *rate.Browsable)

	// JSON numbers are coerced to the declared types when bound.
	f := config.NewFile(filepath.Join(t.TempDir(), "x.toml"))
	for _, d := range defs {
		_, err := f.Bind(d)
		assert.NoError(t, err, d.Path())
	}
}

func TestManifestDefinitionsRejectOverflowingDefault(t *testing.T) {
	m := &Manifest{
		Name:         "big",
		Version:      "1.0.0",
		ConfigSchema: map[string]ConfigProperty{"n": {Type: "integer", Default: 1e19}},
	}
	defs, err := m.Definitions()
	require.NoError(t, err)

	f := config.NewFile(filepath.Join(t.TempDir(), "big.toml"))
	_, err = f.Bind(defs[0])
	assert.ErrorIs(t, err, config.ErrInvalidDefinition)
}

func TestManifestAdvancedAppliesToAllSettings(t *testing.T) {
	m := &Manifest{
		Name:         "x",
		Version:      "1.0.0",
		Advanced:     true,
		ConfigSchema: map[string]ConfigProperty{"a": {Type: "string"}},
	}
	defs, err := m.Definitions()
	require.NoError(t, err)
	assert.True(t, defs[0].Advanced, "definitions inherit the manifest's advanced flag")
}
