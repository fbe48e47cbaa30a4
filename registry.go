// Copyright 2025 John Wang. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcptoolbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// CallRequest is an incoming tool call: a tool name and its raw arguments.
// Nil or null Arguments are treated as an empty object.
type CallRequest struct {
	Name      string
	Arguments json.RawMessage
}

// route holds one tool's descriptor and its variant constructor.
type route struct {
	tool *mcp.Tool
	kind Kind
	bind func(args json.RawMessage) (Variant, error)
}

// Toolbox is the fixed set of tools a server exposes.
//
// A Toolbox is built once by [NewToolbox] and has no mutation API, so it can
// be shared freely across concurrent requests.
type Toolbox struct {
	order  []string
	routes map[string]route
}

// NewToolbox collects definitions into a Toolbox. Names must be non-empty
// and unique; an invalid definition (for example an input type whose schema
// is not an object) is reported here.
func NewToolbox(defs ...Definition) (*Toolbox, error) {
	tb := &Toolbox{
		order:  make([]string, 0, len(defs)),
		routes: make(map[string]route, len(defs)),
	}

	var errs []error
	for i, def := range defs {
		if def.err != nil {
			errs = append(errs, def.err)
			continue
		}
		if def.tool == nil || def.bind == nil {
			errs = append(errs, fmt.Errorf("definition %d: not created by a tool constructor", i))
			continue
		}
		name := def.tool.Name
		if name == "" {
			errs = append(errs, fmt.Errorf("definition %d: tool name required", i))
			continue
		}
		if _, exists := tb.routes[name]; exists {
			errs = append(errs, fmt.Errorf("%w: %q", ErrDuplicateTool, name))
			continue
		}
		tb.order = append(tb.order, name)
		tb.routes[name] = route{tool: def.tool, kind: def.kind, bind: def.bind}
	}

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return tb, nil
}

// MustToolbox is like [NewToolbox] but panics on error. It is intended for
// package-level tool declarations.
func MustToolbox(defs ...Definition) *Toolbox {
	tb, err := NewToolbox(defs...)
	if err != nil {
		panic("mcptoolbox: " + err.Error())
	}
	return tb
}

// Catalog returns one descriptor per tool in declaration order. The
// descriptors are copies; modifying them does not affect the Toolbox.
func (tb *Toolbox) Catalog() []*mcp.Tool {
	tools := make([]*mcp.Tool, 0, len(tb.order))
	for _, name := range tb.order {
		t := *tb.routes[name].tool
		tools = append(tools, &t)
	}
	return tools
}

// Names returns the tool names in declaration order.
func (tb *Toolbox) Names() []string {
	return append([]string(nil), tb.order...)
}

// Len returns the number of tools.
func (tb *Toolbox) Len() int { return len(tb.order) }

// Lookup returns a copy of the descriptor for name.
func (tb *Toolbox) Lookup(name string) (*mcp.Tool, bool) {
	r, ok := tb.routes[name]
	if !ok {
		return nil, false
	}
	t := *r.tool
	return &t, true
}

// Route resolves req to a Variant ready to invoke.
//
// An unknown name yields an error wrapping [ErrUnknownTool]. Arguments that
// fail to decode against the tool's input schema yield an error wrapping
// [ErrInvalidParams].
func (tb *Toolbox) Route(req CallRequest) (Variant, error) {
	r, ok := tb.routes[req.Name]
	if !ok {
		return Variant{}, fmt.Errorf("%w: %s", ErrUnknownTool, req.Name)
	}
	v, err := r.bind(req.Arguments)
	if err != nil {
		return Variant{}, fmt.Errorf("tool %s: %w", req.Name, err)
	}
	return v, nil
}

// Call invokes a tool by name in-process, without any transport.
//
// The args parameter should be a map[string]any, a json.RawMessage, or a
// struct that marshals to JSON matching the tool's input schema.
//
// Routing failures are returned as errors. Failures of the tool itself are
// returned as a result with IsError set, matching what a remote caller sees.
func (tb *Toolbox) Call(ctx context.Context, name string, args any) (*mcp.CallToolResult, error) {
	var rawArgs json.RawMessage
	switch a := args.(type) {
	case nil:
	case json.RawMessage:
		rawArgs = a
	default:
		var err error
		rawArgs, err = json.Marshal(args)
		if err != nil {
			return nil, fmt.Errorf("%w: marshaling tool arguments: %w", ErrInvalidParams, err)
		}
	}

	v, err := tb.Route(CallRequest{Name: name, Arguments: rawArgs})
	if err != nil {
		return nil, err
	}
	res, err := v.Call(ctx)
	if err != nil {
		return ErrorResult(err), nil
	}
	return res.CallToolResult(), nil
}
