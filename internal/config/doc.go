// Package config provides file-backed, typed settings for the host core and
// for each plugin.
//
// A File is an ordered set of settings. Each setting is declared with a
// Definition (section, key, type, default and display metadata) and bound
// with File.Bind; bind order is display order. Values are validated against
// their definition on every write and on load.
//
// Files are TOML by default. A .yaml or .yml extension selects YAML:
//
//	[logging]
//	level = "debug"
//	maxSizeMB = 20
//
//	[gui]
//	showAdvanced = true
//
// # Basic Usage
//
//	f := config.NewCoreFile(config.DefaultCorePath())
//	if err := f.Load(); err != nil {
//	    log.Printf("config: %v", err)
//	}
//
//	level, _ := f.GetString("logging.level")
//	_ = f.Set("gui.showAdvanced", true)
//	_ = f.Save()
//
// # Live Reload
//
// A Watcher reloads files when they change on disk:
//
//	w, _ := config.NewWatcher(logger, config.WithReloadFunc(onReload))
//	_ = w.Add(f)
//	go w.Run(ctx)
//
// # Settings Discovery
//
// Entry implements settings.ConfigRecord, so the entries of a File can be
// handed to the settings searcher directly.
package config
