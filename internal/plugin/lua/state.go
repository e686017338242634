package lua

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"
)

// DefaultExecutionTimeout bounds every DoFile, DoString and Call.
const DefaultExecutionTimeout = 5 * time.Second

// State wraps a gopher-lua state opened with the safe standard libraries
// only (base, table, string, math). The chunk and module loaders (dofile,
// loadfile, load, loadstring, require, module) are removed.
//
// gopher-lua's LState is not goroutine-safe; State serializes access with
// a mutex.
type State struct {
	L *lua.LState

	mu sync.Mutex

	timeout  time.Duration
	print    func(string)
	builtins map[string]bool
	closed   bool
}

// StateOption configures a State.
type StateOption func(*State)

// WithExecutionTimeout sets the limit for a single execution. Zero disables it.
func WithExecutionTimeout(d time.Duration) StateOption {
	return func(s *State) {
		if d >= 0 {
			s.timeout = d
		}
	}
}

// WithPrint routes the Lua print function to fn.
func WithPrint(fn func(string)) StateOption {
	return func(s *State) {
		s.print = fn
	}
}

// NewState creates a new sandboxed Lua state.
func NewState(opts ...StateOption) *State {
	s := &State{timeout: DefaultExecutionTimeout}
	for _, opt := range opts {
		opt(s)
	}

	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	lua.OpenBase(L)
	lua.OpenTable(L)
	lua.OpenString(L)
	lua.OpenMath(L)

	for _, name := range []string{"dofile", "loadfile", "load", "loadstring", "require", "module"} {
		L.SetGlobal(name, lua.LNil)
	}
	if s.print != nil {
		L.SetGlobal("print", L.NewFunction(s.luaPrint))
	}

	s.L = L
	s.builtins = make(map[string]bool)
	globals(L).ForEach(func(k, _ lua.LValue) {
		if ks, ok := k.(lua.LString); ok {
			s.builtins[string(ks)] = true
		}
	})
	return s
}

func (s *State) luaPrint(L *lua.LState) int {
	n := L.GetTop()
	parts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	s.print(strings.Join(parts, "\t"))
	return 0
}

// DoFile executes a Lua file.
func (s *State) DoFile(path string) error {
	return s.run(func(L *lua.LState) error {
		return L.DoFile(path)
	})
}

// DoString executes a Lua chunk.
func (s *State) DoString(code string) error {
	return s.run(func(L *lua.LState) error {
		return L.DoString(code)
	})
}

// Call calls a global Lua function. It returns an empty slice, not nil,
// when the function returns no values.
func (s *State) Call(fn string, args ...lua.LValue) ([]lua.LValue, error) {
	var results []lua.LValue
	err := s.run(func(L *lua.LState) error {
		fnVal := L.GetGlobal(fn)
		if fnVal.Type() != lua.LTFunction {
			return fmt.Errorf("%w: %s", ErrFunctionNotFound, fn)
		}

		top := L.GetTop()
		L.Push(fnVal)
		for _, arg := range args {
			L.Push(arg)
		}
		if err := L.PCall(len(args), lua.MultRet, nil); err != nil {
			return err
		}

		n := L.GetTop() - top
		results = make([]lua.LValue, n)
		for i := range n {
			results[i] = L.Get(top + i + 1)
		}
		L.Pop(n)
		return nil
	})
	return results, err
}

// HasFunction reports whether name is a global function.
func (s *State) HasFunction(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	return s.L.GetGlobal(name).Type() == lua.LTFunction
}

// Functions returns the sorted names of global functions defined by loaded
// code. Library functions are excluded.
func (s *State) Functions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}

	var names []string
	globals(s.L).ForEach(func(k, v lua.LValue) {
		ks, ok := k.(lua.LString)
		if !ok || s.builtins[string(ks)] || v.Type() != lua.LTFunction {
			return
		}
		names = append(names, string(ks))
	})
	slices.Sort(names)
	return names
}

// GetGlobal returns a global variable value.
func (s *State) GetGlobal(name string) lua.LValue {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return lua.LNil
	}
	return s.L.GetGlobal(name)
}

// SetGlobal sets a global variable.
func (s *State) SetGlobal(name string, value lua.LValue) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.L.SetGlobal(name, value)
	s.builtins[name] = true
}

// RegisterModule installs a global table of Go functions.
func (s *State) RegisterModule(name string, funcs map[string]lua.LGFunction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.L.SetGlobal(name, s.L.SetFuncs(s.L.NewTable(), funcs))
	s.builtins[name] = true
}

// IsClosed returns true if the state has been closed.
func (s *State) IsClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close releases the Lua state. Later calls return ErrStateClosed.
func (s *State) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.L.Close()
	s.closed = true
	return nil
}

// run executes fn under the lock with the execution timeout and panic
// recovery applied.
func (s *State) run(fn func(L *lua.LState) error) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStateClosed
	}

	if s.timeout > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		s.L.SetContext(ctx)
		defer s.L.RemoveContext()
		defer func() {
			if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
				err = fmt.Errorf("%w: %v", ErrExecutionTimeout, err)
			}
		}()
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("lua panic: %v", r)
		}
	}()
	return fn(s.L)
}

func globals(L *lua.LState) *lua.LTable {
	return L.Get(lua.GlobalsIndex).(*lua.LTable)
}
