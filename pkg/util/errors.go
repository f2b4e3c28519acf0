// Package util provides logging helpers and common error types.
package util

import (
	"errors"
	"fmt"
)

// Sentinel errors for run and confirmation failures
var (
	ErrSelection       = errors.New("invalid device selection")
	ErrInvalidConfig   = errors.New("invalid configuration")
	ErrRenderFailed    = errors.New("rendering failed")
	ErrTransportFailed = errors.New("transport operation failed")

	// Confirmation protocol aborts. The three reasons are distinct on
	// purpose: downstream tooling tells operator-declined apart from
	// protocol-violated aborts.
	ErrNotInteractive  = errors.New("not attached to an interactive terminal, cannot confirm")
	ErrAbort           = errors.New("commit aborted by operator")
	ErrTooManyAttempts = errors.New("too many invalid answers")
)

// SelectionError represents an invalid device selection query
type SelectionError struct {
	Query  string
	Reason string
}

func (e *SelectionError) Error() string {
	return fmt.Sprintf("invalid query %q: %s", e.Query, e.Reason)
}

func (e *SelectionError) Unwrap() error {
	return ErrSelection
}

// NewSelectionError creates a new selection error
func NewSelectionError(query, reason string) *SelectionError {
	return &SelectionError{Query: query, Reason: reason}
}

// DeviceError wraps a per-device pipeline failure with the stage it
// happened in. These are always non-fatal to the run.
type DeviceError struct {
	FQDN  string
	Stage string // "assemble", "render", "write", "connect", "commit-check", "commit"
	Err   error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s: %s failed: %v", e.FQDN, e.Stage, e.Err)
}

func (e *DeviceError) Unwrap() error {
	return e.Err
}

// NewDeviceError creates a per-device error for the given pipeline stage
func NewDeviceError(fqdn, stage string, err error) *DeviceError {
	return &DeviceError{FQDN: fqdn, Stage: stage, Err: err}
}

// RenderError represents a template loading or rendering failure
type RenderError struct {
	Role   string
	Detail string
	Err    error
}

func (e *RenderError) Error() string {
	msg := fmt.Sprintf("could not render template for role '%s'", e.Role)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RenderError) Unwrap() error {
	return ErrRenderFailed
}

// NewRenderError creates a render error for the given role
func NewRenderError(role, detail string, err error) *RenderError {
	return &RenderError{Role: role, Detail: detail, Err: err}
}
