package lua

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	glua "github.com/yuin/gopher-lua"
)

func TestStateDoString(t *testing.T) {
	state := NewState()
	defer state.Close()

	require.NoError(t, state.DoString(`x = 1 + 1`))

	num, ok := state.GetGlobal("x").(glua.LNumber)
	require.True(t, ok, "x is %T", state.GetGlobal("x"))
	assert.Equal(t, glua.LNumber(2), num)
}

func TestStateDoStringSyntaxError(t *testing.T) {
	state := NewState()
	defer state.Close()

	assert.Error(t, state.DoString(`invalid lua code !!!`))
}

func TestStateUnsafeLibrariesMissing(t *testing.T) {
	state := NewState()
	defer state.Close()

	for _, name := range []string{"io", "os", "debug", "require", "dofile", "loadfile", "load", "loadstring"} {
		assert.Equal(t, glua.LNil, state.GetGlobal(name), "global %q should be nil", name)
	}
	for _, name := range []string{"string", "table", "math", "pairs"} {
		assert.NotEqual(t, glua.LNil, state.GetGlobal(name), "global %q should be available", name)
	}
}

func TestStateFunctions(t *testing.T) {
	state := NewState()
	defer state.Close()

	state.RegisterModule("host", map[string]glua.LGFunction{
		"noop": func(*glua.LState) int { return 0 },
	})

	code := `
function update(dt) end
function on_gui() end
local function helper() end
count = 3
`
	require.NoError(t, state.DoString(code))

	assert.Equal(t, []string{"on_gui", "update"}, state.Functions())
	assert.True(t, state.HasFunction("update"))
	assert.False(t, state.HasFunction("count"), "a number is not a function")
}

func TestStateCall(t *testing.T) {
	state := NewState()
	defer state.Close()

	require.NoError(t, state.DoString(`function add(a, b) return a + b, "done" end`))

	results, err := state.Call("add", glua.LNumber(2), glua.LNumber(3))
	require.NoError(t, err)
	assert.Equal(t, []glua.LValue{glua.LNumber(5), glua.LString("done")}, results)

	_, err = state.Call("missing")
	assert.ErrorIs(t, err, ErrFunctionNotFound)
}

func TestStateCallRuntimeError(t *testing.T) {
	state := NewState()
	defer state.Close()

	require.NoError(t, state.DoString(`function fail() error("boom") end`))
	_, err := state.Call("fail")
	assert.ErrorContains(t, err, "boom")
}

func TestStateExecutionTimeout(t *testing.T) {
	state := NewState(WithExecutionTimeout(50 * time.Millisecond))
	defer state.Close()

	assert.ErrorIs(t, state.DoString(`while true do end`), ErrExecutionTimeout)
	assert.NoError(t, state.DoString(`y = 1`), "state unusable after timeout")
}

func TestStatePrint(t *testing.T) {
	var lines []string
	state := NewState(WithPrint(func(s string) { lines = append(lines, s) }))
	defer state.Close()

	require.NoError(t, state.DoString(`print("hello", 42)`))
	assert.Equal(t, []string{"hello\t42"}, lines)
}

func TestStateClose(t *testing.T) {
	state := NewState()
	require.NoError(t, state.Close())
	assert.True(t, state.IsClosed())
	assert.NoError(t, state.Close(), "second Close")
	assert.ErrorIs(t, state.DoString(`x = 1`), ErrStateClosed)
	assert.Nil(t, state.Functions())
}

func TestConvertRoundTrip(t *testing.T) {
	state := NewState()
	defer state.Close()

	in := map[string]any{
		"name":    "mixer",
		"volume":  0.5,
		"count":   int64(3),
		"enabled": true,
		"tags":    []string{"a", "b"},
		"timeout": 2 * time.Second,
	}
	want := map[string]any{
		"name":    "mixer",
		"volume":  0.5,
		"count":   int64(3),
		"enabled": true,
		"tags":    []any{"a", "b"},
		"timeout": "2s",
	}
	assert.Equal(t, want, ToGo(ToLua(state.L, in)))
}

func TestToGoCycle(t *testing.T) {
	state := NewState()
	defer state.Close()

	require.NoError(t, state.DoString(`t = {name = "x"}; t.self = t`))
	m, ok := ToGo(state.GetGlobal("t")).(map[string]any)
	require.True(t, ok, "ToGo(t) is %T", ToGo(state.GetGlobal("t")))
	assert.Equal(t, "x", m["name"])
	assert.Nil(t, m["self"])
}
