// Copyright 2025 John Wang. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcptoolbox

import (
	"errors"
	"fmt"
)

// ErrCapability is returned when a request targets an operation that the
// server's negotiated capabilities do not permit.
var ErrCapability = errors.New("capability not supported")

// ErrUnknownTool is returned when a call names a tool that is not in the catalog.
var ErrUnknownTool = errors.New("unknown tool")

// ErrInvalidParams is returned when call arguments do not satisfy the target
// tool's input shape.
var ErrInvalidParams = errors.New("invalid params")

// ErrSerialization is returned when a structured tool's output cannot be
// serialized to JSON.
var ErrSerialization = errors.New("serialization failed")

// ErrTimeout is returned when a request does not complete within the
// configured timeout.
var ErrTimeout = errors.New("request timed out")

// ErrDuplicateTool is returned by [NewToolbox] when two definitions share a name.
var ErrDuplicateTool = errors.New("duplicate tool")

// ToolError is a business error reported by a tool. Its message is surfaced
// verbatim to the caller as the call error.
type ToolError struct {
	msg string
	err error
}

// NewToolError returns a ToolError with the given message.
func NewToolError(msg string) *ToolError {
	return &ToolError{msg: msg}
}

// ToolErrorf formats a ToolError. %w verbs in format are honored, so
// errors.Is and errors.As see through the result.
func ToolErrorf(format string, args ...any) *ToolError {
	err := fmt.Errorf(format, args...)
	return &ToolError{msg: err.Error(), err: err}
}

// AsToolError normalizes err into a ToolError. Nil stays nil.
func AsToolError(err error) *ToolError {
	if err == nil {
		return nil
	}
	var te *ToolError
	if errors.As(err, &te) {
		return te
	}
	return &ToolError{msg: err.Error(), err: err}
}

func (e *ToolError) Error() string { return e.msg }

func (e *ToolError) Unwrap() error { return e.err }

// BootstrapError reports that a transport failed to bind or start. It is
// terminal: the server does not retry.
type BootstrapError struct {
	Transport TransportMode
	Addr      string
	Err       error
}

func (e *BootstrapError) Error() string {
	if e.Addr == "" {
		return fmt.Sprintf("starting %s transport: %v", e.Transport, e.Err)
	}
	return fmt.Sprintf("starting %s transport on %s: %v", e.Transport, e.Addr, e.Err)
}

func (e *BootstrapError) Unwrap() error { return e.Err }
