package app

import (
	"github.com/dshills/confman/internal/config"
	"github.com/dshills/confman/internal/plugin"
	"github.com/dshills/confman/internal/settings"
)

// Compile-time interface checks.
var (
	_ settings.Host   = (*hostAdapter)(nil)
	_ settings.Plugin = (*pluginAdapter)(nil)
)

// hostAdapter exposes the application to the settings searcher.
type hostAdapter struct {
	app *Application
}

// CoreInfo identifies confman itself as the owner of core settings.
func (a *hostAdapter) CoreInfo() settings.PluginInfo {
	return settings.PluginInfo{
		ID:      config.CoreName,
		Name:    config.CoreName,
		Version: a.app.opts.Version,
	}
}

func (a *hostAdapter) CoreConfig() ([]settings.ConfigRecord, error) {
	return a.app.core.Records(), nil
}

// Plugins adapts the manager's load-order snapshot.
func (a *hostAdapter) Plugins() ([]settings.Plugin, error) {
	hosts := a.app.plugins.List()
	out := make([]settings.Plugin, 0, len(hosts))
	for _, h := range hosts {
		out = append(out, &pluginAdapter{host: h})
	}
	return out, nil
}

// pluginAdapter exposes one plugin host to the settings searcher.
type pluginAdapter struct {
	host *plugin.Host
}

func (a *pluginAdapter) Info() settings.PluginInfo {
	return a.host.Info()
}

func (a *pluginAdapter) Attributes() (settings.Attributes, error) {
	return a.host.Attributes(), nil
}

func (a *pluginAdapter) Config() ([]settings.ConfigRecord, error) {
	return a.host.Config().Records(), nil
}

// Methods returns the global Lua functions. An unloaded plugin has none.
func (a *pluginAdapter) Methods() ([]string, error) {
	return a.host.Functions(), nil
}

// Instance returns the host, which carries the Enabled property.
func (a *pluginAdapter) Instance() any {
	return a.host
}

