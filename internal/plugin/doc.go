// Package plugin provides the Lua plugin registry.
//
// Each plugin runs in its own sandboxed Lua state and owns one config file
// built from the configSchema of its manifest. The Manager keeps loaded
// plugins in load order and hands out consistent snapshots with List.
//
// # Plugin Structure
//
// Plugins can be either single-file or directory-based:
//
// Single-file plugin:
//
//	~/.config/confman/plugins/clock.lua
//
// Directory plugin:
//
//	~/.config/confman/plugins/audio-mixer/
//	├── plugin.json    # Manifest
//	└── init.lua       # Entry point
//
// # Manifest
//
//	{
//	    "name": "audio-mixer",
//	    "version": "1.0.0",
//	    "displayName": "Audio Mixer",
//	    "browsable": true,
//	    "configSchema": {
//	        "volume": {
//	            "section": "audio",
//	            "type": "number",
//	            "default": 0.8,
//	            "minimum": 0,
//	            "maximum": 1,
//	            "description": "Master volume"
//	        }
//	    }
//	}
//
// Setting "browsable" to false hides the plugin from the settings list.
//
// # Lifecycle
//
// A plugin may define any of these global functions:
//
//	function setup(config)    -- config.audio.volume etc.
//	function activate()
//	function deactivate()
//	function update(dt)       -- per-frame callbacks, called by Host.Frame
//	function fixed_update(dt)
//	function late_update(dt)
//	function on_gui(dt)
//
// Plugins that define a per-frame callback can be paused through the
// host's Enabled property. Inside Lua, the confman table gives access to
// the plugin's own settings:
//
//	local v = confman.get("audio.volume")
//	confman.set("audio.volume", 0.5)
//	confman.log("volume changed")
package plugin
