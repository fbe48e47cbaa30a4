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

// Kind identifies which of the four callable shapes a [Variant] holds.
type Kind int

const (
	// KindText is a synchronous tool producing text.
	KindText Kind = iota
	// KindAsyncText is an asynchronous tool producing text.
	KindAsyncText
	// KindStructured is a synchronous tool producing a serializable value.
	KindStructured
	// KindAsyncStructured is an asynchronous tool producing a serializable value.
	KindAsyncStructured
)

func (k Kind) String() string {
	switch k {
	case KindText:
		return "text"
	case KindAsyncText:
		return "async_text"
	case KindStructured:
		return "structured"
	case KindAsyncStructured:
		return "async_structured"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Async reports whether the shape is awaited rather than run inline.
func (k Kind) Async() bool {
	return k == KindAsyncText || k == KindAsyncStructured
}

// Structured reports whether the shape produces a structured payload.
func (k Kind) Structured() bool {
	return k == KindStructured || k == KindAsyncStructured
}

// Variant is a single tool invocation ready to run. It owns exactly one
// callable, which has already been bound to its decoded arguments.
//
// Variants are built fresh for each request by [Toolbox.Route] and are not
// meant to be reused.
type Variant struct {
	kind  Kind
	sync  func() (any, error)
	async func(context.Context) (any, error)
}

// TextVariant wraps a synchronous text-producing callable.
func TextVariant(fn func() (any, error)) Variant {
	return Variant{kind: KindText, sync: fn}
}

// AsyncTextVariant wraps an asynchronous text-producing callable.
func AsyncTextVariant(fn func(context.Context) (any, error)) Variant {
	return Variant{kind: KindAsyncText, async: fn}
}

// StructuredVariant wraps a synchronous callable producing a serializable value.
func StructuredVariant(fn func() (any, error)) Variant {
	return Variant{kind: KindStructured, sync: fn}
}

// AsyncStructuredVariant wraps an asynchronous callable producing a
// serializable value.
func AsyncStructuredVariant(fn func(context.Context) (any, error)) Variant {
	return Variant{kind: KindAsyncStructured, async: fn}
}

// Kind returns the variant's shape.
func (v Variant) Kind() Kind { return v.kind }

var errEmptyVariant = errors.New("variant has no callable")

// Call invokes the callable and coerces its output.
//
// Synchronous shapes run to completion on the calling goroutine. Asynchronous
// shapes run on their own goroutine and are awaited against ctx; if ctx ends
// first the call is abandoned and an error wrapping [ErrTimeout] (for a
// deadline) or ctx.Err() is returned.
//
// Call never panics: a panic in the callable or while coercing its output
// becomes a [ToolError].
func (v Variant) Call(ctx context.Context) (Result, error) {
	var (
		raw any
		err error
	)
	switch {
	case v.kind.Async() && v.async != nil:
		raw, err = await(ctx, v.async)
	case !v.kind.Async() && v.sync != nil:
		raw, err = invoke(v.sync)
	default:
		return Result{}, errEmptyVariant
	}

	return coerce(v.kind, raw, err)
}

// coerce converts raw output for kind. Output types may run user code while
// being coerced (MarshalJSON, String), so a panic there becomes a ToolError.
func coerce(kind Kind, raw any, callErr error) (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{}
			if kind.Structured() {
				err = ToolErrorf("%w: %v", ErrSerialization, r)
			} else {
				err = ToolErrorf("converting text output: %v", r)
			}
		}
	}()

	if kind.Structured() {
		payload, err := CoerceStructured(raw, callErr)
		if err != nil {
			return Result{}, err
		}
		return StructuredResult(payload), nil
	}

	text, err := CoerceText(raw, callErr)
	if err != nil {
		return Result{}, err
	}
	return TextResult(text), nil
}

func invoke(fn func() (any, error)) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, ToolErrorf("tool panicked: %v", r)
		}
	}()
	return fn()
}

type outcome struct {
	out any
	err error
}

func await(ctx context.Context, fn func(context.Context) (any, error)) (any, error) {
	done := make(chan outcome, 1)
	go func() {
		out, err := invoke(func() (any, error) { return fn(ctx) })
		done <- outcome{out: out, err: err}
	}()

	select {
	case o := <-done:
		return o.out, o.err
	case <-ctx.Done():
		return nil, contextError(ctx)
	}
}

func contextError(ctx context.Context) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", ErrTimeout, ctx.Err())
	}
	return ctx.Err()
}

// ResultKind identifies which protocol shape a [Result] carries.
type ResultKind int

const (
	// ResultText carries plain text content.
	ResultText ResultKind = iota
	// ResultStructured carries a JSON object payload.
	ResultStructured
)

// Result is the normalized outcome of a successful call.
type Result struct {
	Kind    ResultKind
	Text    string
	Payload map[string]any
}

// TextResult returns a text Result.
func TextResult(text string) Result {
	return Result{Kind: ResultText, Text: text}
}

// StructuredResult returns a structured Result.
func StructuredResult(payload map[string]any) Result {
	return Result{Kind: ResultStructured, Payload: payload}
}

// CallToolResult converts r to the protocol result.
//
// Structured results also carry their JSON encoding as text content for
// clients that ignore structured content.
func (r Result) CallToolResult() *mcp.CallToolResult {
	if r.Kind == ResultText {
		return &mcp.CallToolResult{
			Content: []mcp.Content{&mcp.TextContent{Text: r.Text}},
		}
	}

	payload := r.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	res := &mcp.CallToolResult{StructuredContent: payload}
	if data, err := json.Marshal(payload); err == nil {
		res.Content = []mcp.Content{&mcp.TextContent{Text: string(data)}}
	}
	return res
}

// ErrorResult converts a call error to a protocol result with IsError set.
func ErrorResult(err error) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: err.Error()}},
		IsError: true,
	}
}
