package app

import (
	"errors"
	"fmt"
)

// Application errors.
var (
	// ErrAlreadyRunning indicates the application is already running.
	ErrAlreadyRunning = errors.New("application already running")

	// ErrInvalidAssignment indicates a malformed "[plugin:]section.key=value" string.
	ErrInvalidAssignment = errors.New("invalid assignment")

	// ErrUnknownPlugin indicates an assignment names a plugin that is not loaded.
	ErrUnknownPlugin = errors.New("unknown plugin")
)

// InitError represents an initialization error.
type InitError struct {
	Component string
	Err       error
}

func (e *InitError) Error() string {
	return "init " + e.Component + ": " + e.Err.Error()
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// OperationError represents an error that occurred during a specific operation.
type OperationError struct {
	Op     string // Operation name (e.g., "set", "save")
	Target string // Target of the operation (e.g., setting path, file)
	Err    error  // Underlying error
}

func (e *OperationError) Error() string {
	msg := e.Op
	if e.Target != "" {
		msg = fmt.Sprintf("%s %s", e.Op, e.Target)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *OperationError) Unwrap() error {
	return e.Err
}
