// Package errors defines the typed errors returned across budgetmap. Each type
// matches a sentinel with errors.Is, so callers can branch on the kind of
// failure without importing the concrete type.
package errors

import (
	"errors"
	"fmt"
)

// Re-exported so callers need a single errors import.
var (
	New  = errors.New
	Is   = errors.Is
	As   = errors.As
	Join = errors.Join
)

// Sentinels matched by the typed errors below.
var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
	// ErrStructure marks a document missing a marker or layout element.
	ErrStructure = errors.New("unexpected document structure")
)

// NotFoundError reports a registry lookup miss.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// NewNotFoundError creates a NotFoundError.
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError reports a rejected value, from configuration, operator
// input or a registry record.
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Message
	}
	return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }

// NewValidationError creates a ValidationError.
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// StructureError reports a document region without the layout the extractors
// need, such as a missing marker or the wrong number of fiscal year columns.
// It abandons one section, never the run.
type StructureError struct {
	Section string // org code or file name
	Element string // "marker", "fiscal-years", ...
	Message string
}

func (e *StructureError) Error() string {
	where := ""
	if e.Section != "" {
		where = " in " + e.Section
	}
	return fmt.Sprintf("structure error%s (%s): %s", where, e.Element, e.Message)
}

func (e *StructureError) Is(target error) bool { return target == ErrStructure }

// NewStructureError creates a StructureError.
func NewStructureError(section, element, message string) *StructureError {
	return &StructureError{Section: section, Element: element, Message: message}
}

// ConfigError reports unusable configuration.
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

func (e *ConfigError) Error() string {
	if e.Component == "" {
		return "configuration error: " + e.Message
	}
	return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// NewConfigError creates a ConfigError.
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{Component: component, Message: message, Err: err}
}

// ParseError reports an unreadable registry file, decision script or table.
type ParseError struct {
	Format  string // "yaml", "json", "csv"
	File    string
	Line    int
	Column  int
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	switch {
	case e.File != "" && e.Line > 0:
		return fmt.Sprintf("parse error in %s at %s:%d:%d: %s", e.Format, e.File, e.Line, e.Column, e.Message)
	case e.File != "":
		return fmt.Sprintf("parse error in %s file %s: %s", e.Format, e.File, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

func (e *ParseError) Unwrap() error { return e.Err }

// IOError reports a failed filesystem operation. Persist failures after the
// initial load are counted and never fatal.
type IOError struct {
	Operation string // "read", "write", "rename", ...
	Path      string
	Err       error
}

func (e *IOError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("IO error during %s: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("IO error during %s of %s: %v", e.Operation, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ResourceError reports a failed operation on a named resource.
type ResourceError struct {
	Operation string // "load", "open", "persist", ...
	Resource  string // "registry", "config", ...
	ID        string
	Err       error
}

func (e *ResourceError) Error() string {
	target := e.Resource
	if e.ID != "" {
		target += " " + e.ID
	}
	return fmt.Sprintf("failed to %s %s: %v", e.Operation, target, e.Err)
}

func (e *ResourceError) Unwrap() error { return e.Err }

// IsNotFound reports whether err is a not-found error.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsValidationError reports whether err is a validation error.
func IsValidationError(err error) bool { return errors.Is(err, ErrInvalidInput) }

// IsStructureError reports whether err is a document structure error.
func IsStructureError(err error) bool { return errors.Is(err, ErrStructure) }

// WrapValidation converts err into a ValidationError for field. Nil stays nil.
func WrapValidation(field string, err error) error {
	if err == nil {
		return nil
	}
	return &ValidationError{Field: field, Message: err.Error()}
}

// WrapIO wraps err as an IOError. Nil stays nil.
func WrapIO(operation, path string, err error) error {
	if err == nil {
		return nil
	}
	return &IOError{Operation: operation, Path: path, Err: err}
}

// WrapResource wraps err as a ResourceError. Nil stays nil.
func WrapResource(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return &ResourceError{Operation: operation, Resource: resource, ID: id, Err: err}
}

// WrapParse wraps err as a ParseError. Nil stays nil.
func WrapParse(format, file string, err error) error {
	if err == nil {
		return nil
	}
	return &ParseError{Format: format, File: file, Message: err.Error(), Err: err}
}
