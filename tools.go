// Copyright 2025 John Wang. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcptoolbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// ToolSpec declares a tool's identity and presentation.
type ToolSpec struct {
	// Name is the unique, stable identifier clients call the tool by.
	Name string

	// Title is an optional human-readable name.
	Title string

	// Description is an optional explanation of what the tool does.
	Description string

	// Hints are optional behavioral annotations.
	Hints Hints
}

// Hints describe a tool's behavior to clients. They are advisory only.
//
// Destructive and OpenWorld are pointers because the protocol treats their
// absence as true; use [Hint] to set them.
type Hints struct {
	Idempotent  bool
	ReadOnly    bool
	Destructive *bool
	OpenWorld   *bool
}

// Hint returns a pointer to b, for the pointer fields of [Hints].
func Hint(b bool) *bool { return &b }

func (h Hints) annotations(title string) *mcp.ToolAnnotations {
	if h == (Hints{}) {
		return nil
	}
	return &mcp.ToolAnnotations{
		Title:           title,
		IdempotentHint:  h.Idempotent,
		ReadOnlyHint:    h.ReadOnly,
		DestructiveHint: h.Destructive,
		OpenWorldHint:   h.OpenWorld,
	}
}

// Definition is a declared tool: its descriptor plus the constructor that
// turns raw call arguments into a [Variant]. Definitions are created with
// [Text], [AsyncText], [Structured] and [AsyncStructured] and collected by
// [NewToolbox].
type Definition struct {
	tool *mcp.Tool
	kind Kind
	bind func(args json.RawMessage) (Variant, error)
	err  error
}

// Tool returns the descriptor of the definition.
func (d Definition) Tool() *mcp.Tool { return d.tool }

// Kind returns the callable shape of the definition.
func (d Definition) Kind() Kind { return d.kind }

// Text declares a synchronous tool producing text. The output is coerced
// with [TextOutput], so Out is typically string.
//
// The input schema is inferred from In, which must be a struct or map.
//
// Example:
//
//	type greetInput struct {
//		Name string `json:"name" jsonschema:"who to greet"`
//	}
//
//	mcptoolbox.Text(mcptoolbox.ToolSpec{Name: "greet"}, func(in greetInput) (string, error) {
//		return "Hello, " + in.Name, nil
//	})
func Text[In, Out any](spec ToolSpec, fn func(In) (Out, error)) Definition {
	return define(spec, KindText, func(in In) Variant {
		return TextVariant(func() (any, error) {
			out, err := fn(in)
			return out, err
		})
	})
}

// AsyncText declares an asynchronous tool producing text. The callable
// receives the request context, which carries the configured timeout.
func AsyncText[In, Out any](spec ToolSpec, fn func(context.Context, In) (Out, error)) Definition {
	return define(spec, KindAsyncText, func(in In) Variant {
		return AsyncTextVariant(func(ctx context.Context) (any, error) {
			out, err := fn(ctx, in)
			return out, err
		})
	})
}

// Structured declares a synchronous tool producing a serializable value.
// See [StructuredOutput] for how the value becomes the result payload.
func Structured[In, Out any](spec ToolSpec, fn func(In) (Out, error)) Definition {
	return define(spec, KindStructured, func(in In) Variant {
		return StructuredVariant(func() (any, error) {
			out, err := fn(in)
			return out, err
		})
	})
}

// AsyncStructured declares an asynchronous tool producing a serializable value.
func AsyncStructured[In, Out any](spec ToolSpec, fn func(context.Context, In) (Out, error)) Definition {
	return define(spec, KindAsyncStructured, func(in In) Variant {
		return AsyncStructuredVariant(func(ctx context.Context) (any, error) {
			out, err := fn(ctx, in)
			return out, err
		})
	})
}

func define[In any](spec ToolSpec, kind Kind, bind func(In) Variant) Definition {
	def := Definition{
		tool: &mcp.Tool{
			Name:        spec.Name,
			Title:       spec.Title,
			Description: spec.Description,
			Annotations: spec.Hints.annotations(spec.Title),
		},
		kind: kind,
	}

	schema, err := jsonschema.For[In](nil)
	if err != nil {
		def.err = fmt.Errorf("tool %q: inferring input schema: %w", spec.Name, err)
		return def
	}
	if schema.Type != "object" {
		def.err = fmt.Errorf("tool %q: input schema must have type \"object\", got %q", spec.Name, schema.Type)
		return def
	}
	resolved, err := schema.Resolve(nil)
	if err != nil {
		def.err = fmt.Errorf("tool %q: resolving input schema: %w", spec.Name, err)
		return def
	}
	def.tool.InputSchema = schema

	def.bind = func(args json.RawMessage) (Variant, error) {
		in, err := decodeArguments[In](resolved, args)
		if err != nil {
			return Variant{}, err
		}
		return bind(in), nil
	}
	return def
}

var emptyArguments = json.RawMessage("{}")

// normalizeArguments treats absent or null arguments as an empty object.
func normalizeArguments(args json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(args)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return emptyArguments
	}
	return trimmed
}

func decodeArguments[In any](schema *jsonschema.Resolved, args json.RawMessage) (In, error) {
	var in In
	args = normalizeArguments(args)

	var instance any
	if err := json.Unmarshal(args, &instance); err != nil {
		return in, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	if _, ok := instance.(map[string]any); !ok {
		return in, fmt.Errorf("%w: arguments must be a JSON object", ErrInvalidParams)
	}
	if err := schema.Validate(instance); err != nil {
		return in, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return in, fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	return in, nil
}
