package lua

import "errors"

// Errors for Lua state operations.
var (
	// ErrStateClosed is returned when operating on a closed state.
	ErrStateClosed = errors.New("lua state is closed")

	// ErrExecutionTimeout is returned when execution exceeds the timeout.
	ErrExecutionTimeout = errors.New("lua execution timeout")

	// ErrFunctionNotFound is returned by Call for a missing global function.
	ErrFunctionNotFound = errors.New("lua function not found")
)
