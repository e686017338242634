// Package lua provides the Lua runtime used by plugin hosts.
//
// This package wraps the gopher-lua library to provide:
//   - A sandboxed state with only the safe standard libraries
//   - Execution timeouts through the state's context
//   - Go-Lua value conversion
//
// # State
//
//	state := lua.NewState(
//	    lua.WithExecutionTimeout(2 * time.Second),
//	    lua.WithPrint(func(s string) { log.Info(s) }),
//	)
//	defer state.Close()
//
//	if err := state.DoFile("plugin.lua"); err != nil {
//	    return err
//	}
//	if state.HasFunction("update") {
//	    _, err := state.Call("update", glua.LNumber(dt))
//	}
//
// The io, os, debug and package libraries are never opened, and the chunk
// loaders (dofile, loadfile, load, loadstring, require, module) are removed.
//
// # Conversion
//
// ToLua and ToGo convert between Go values and Lua values:
//
//	tbl := lua.ToLua(state.L, map[string]any{"volume": 0.5})
//	v := lua.ToGo(tbl) // map[string]any{"volume": 0.5}
package lua
