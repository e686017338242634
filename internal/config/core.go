package config

import (
	"os"
	"path/filepath"
)

// CoreName identifies the host core in settings lists and log lines.
const CoreName = "confman"

// CoreDefinitions returns the built-in host settings in display order.
func CoreDefinitions() []Definition {
	return []Definition{
		{
			Section:     "logging",
			Key:         "level",
			Type:        TypeEnum,
			Default:     "info",
			Enum:        []any{"debug", "info", "warn", "error"},
			DisplayName: "Log level",
			Description: "Minimum level of messages written to the log.",
			Order:       1,
		},
		{
			Section:     "logging",
			Key:         "file",
			Type:        TypeString,
			Default:     "",
			DisplayName: "Log file",
			Description: "Write logs to this file instead of stderr. Empty disables file logging.",
			Order:       2,
		},
		{
			Section:     "logging",
			Key:         "maxSizeMB",
			Type:        TypeInt,
			Default:     10,
			Minimum:     MinValue(1),
			Maximum:     MaxValue(1024),
			DisplayName: "Log file size limit (MB)",
			Description: "Size at which the log file is rotated.",
			Order:       3,
		},
		{
			Section:     "plugins",
			Key:         "paths",
			Type:        TypeList,
			Default:     []string{defaultPluginDir()},
			DisplayName: "Plugin search paths",
			Description: "Directories scanned for plugins, in priority order.",
			Order:       1,
		},
		{
			Section:     "plugins",
			Key:         "configDir",
			Type:        TypeString,
			Default:     defaultConfigDir(),
			DisplayName: "Plugin config directory",
			Description: "Directory holding one config file per plugin.",
			Order:       2,
		},
		{
			Section:     "plugins",
			Key:         "autoActivate",
			Type:        TypeBool,
			Default:     true,
			DisplayName: "Activate plugins on load",
			Order:       3,
		},
		{
			Section:     "gui",
			Key:         "showAdvanced",
			Type:        TypeBool,
			Default:     false,
			DisplayName: "Show advanced settings",
			Order:       1,
		},
		{
			Section:     "gui",
			Key:         "showDebug",
			Type:        TypeBool,
			Default:     false,
			DisplayName: "Show debug settings",
			Description: "Also list per-frame toggles for plugins that run every frame.",
			Order:       2,
		},
		{
			Section:     "gui",
			Key:         "frameRate",
			Type:        TypeInt,
			Default:     60,
			Minimum:     MinValue(1),
			Maximum:     MaxValue(240),
			DisplayName: "Frame rate",
			Description: "Frames per second used to drive plugin update callbacks.",
			Advanced:    true,
			Order:       3,
		},
	}
}

// NewCoreFile returns a File with the core definitions bound. The file is
// not loaded.
func NewCoreFile(path string) *File {
	f := NewFile(path)
	for _, def := range CoreDefinitions() {
		f.MustBind(def)
	}
	return f
}

// DefaultCorePath returns the default location of the core config file.
func DefaultCorePath() string {
	return filepath.Join(userConfigDir(), "config.toml")
}

func userConfigDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, CoreName)
	}
	return filepath.Join(".", "."+CoreName)
}

func defaultPluginDir() string {
	return filepath.Join(userConfigDir(), "plugins")
}

func defaultConfigDir() string {
	return filepath.Join(userConfigDir(), "plugin-config")
}
