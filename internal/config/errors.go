package config

import (
	"errors"
	"fmt"
)

// Errors returned by configuration operations.
var (
	// ErrSettingNotFound indicates the setting path isn't bound in the file.
	ErrSettingNotFound = errors.New("setting not found")

	// ErrTypeMismatch indicates the value type doesn't match the declared type.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrValidationFailed indicates the value fails its definition's constraints.
	ErrValidationFailed = errors.New("validation failed")

	// ErrReadOnly indicates a write to a read-only setting.
	ErrReadOnly = errors.New("setting is read-only")

	// ErrSettingAlreadyRegistered indicates an attempt to bind a duplicate setting.
	ErrSettingAlreadyRegistered = errors.New("setting already registered")

	// ErrInvalidDefinition indicates a definition that can't be bound.
	ErrInvalidDefinition = errors.New("invalid setting definition")

	// ErrUnsupportedFormat indicates a config file extension with no codec.
	ErrUnsupportedFormat = errors.New("unsupported config file format")
)

// ParseError represents an error while parsing a configuration file.
type ParseError struct {
	// Path is the file path that failed to parse.
	Path string
	// Line is the line number where the error occurred (if available).
	Line int
	// Column is the column number where the error occurred (if available).
	Column int
	// Message describes the parse error.
	Message string
	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	if e.Line > 0 && e.Column > 0 {
		return fmt.Sprintf("parse error in %s at line %d, column %d: %s", e.Path, e.Line, e.Column, e.Message)
	}
	if e.Line > 0 {
		return fmt.Sprintf("parse error in %s at line %d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("parse error in %s: %s", e.Path, e.Message)
}

// Unwrap returns the underlying error.
func (e *ParseError) Unwrap() error {
	return e.Err
}

// ValidationError describes a validation failure for a setting.
type ValidationError struct {
	// Path is the setting path that failed validation.
	Path string
	// Message describes the validation error.
	Message string
	// Value is the invalid value.
	Value any
	// Code categorizes the validation error.
	Code ValidationErrorCode
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (value: %v)", e.Path, e.Message, e.Value)
}

// Is matches ErrValidationFailed, and ErrTypeMismatch for type errors.
func (e *ValidationError) Is(target error) bool {
	if target == ErrValidationFailed {
		return true
	}
	return target == ErrTypeMismatch && e.Code == ErrCodeTypeMismatch
}

// ValidationErrorCode categorizes validation errors.
type ValidationErrorCode uint8

const (
	// ErrCodeTypeMismatch indicates the value type is wrong.
	ErrCodeTypeMismatch ValidationErrorCode = iota
	// ErrCodeOutOfRange indicates a numeric value is out of range.
	ErrCodeOutOfRange
	// ErrCodeInvalidEnum indicates the value is not in the allowed enum.
	ErrCodeInvalidEnum
)

// String returns a human-readable name for the error code.
func (c ValidationErrorCode) String() string {
	switch c {
	case ErrCodeTypeMismatch:
		return "type_mismatch"
	case ErrCodeOutOfRange:
		return "out_of_range"
	case ErrCodeInvalidEnum:
		return "invalid_enum"
	default:
		return "unknown"
	}
}
