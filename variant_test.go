// Copyright 2025 John Wang. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcptoolbox

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func TestVariantCall(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		v    Variant
		want Result
	}{
		{
			name: "text",
			v:    TextVariant(func() (any, error) { return "hi", nil }),
			want: TextResult("hi"),
		},
		{
			name: "async text",
			v:    AsyncTextVariant(func(context.Context) (any, error) { return "later", nil }),
			want: TextResult("later"),
		},
		{
			name: "structured object",
			v:    StructuredVariant(func() (any, error) { return map[string]string{"a": "b"}, nil }),
			want: StructuredResult(map[string]any{"a": "b"}),
		},
		{
			name: "async structured scalar",
			v:    AsyncStructuredVariant(func(context.Context) (any, error) { return "x", nil }),
			want: StructuredResult(map[string]any{ResultKey: "x"}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.v.Call(ctx)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("result mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestKind(t *testing.T) {
	tests := []struct {
		kind       Kind
		name       string
		async      bool
		structured bool
	}{
		{KindText, "text", false, false},
		{KindAsyncText, "async_text", true, false},
		{KindStructured, "structured", false, true},
		{KindAsyncStructured, "async_structured", true, true},
	}
	for _, tt := range tests {
		if tt.kind.String() != tt.name {
			t.Errorf("expected %q, got %q", tt.name, tt.kind.String())
		}
		if tt.kind.Async() != tt.async {
			t.Errorf("%s: expected Async()=%v", tt.name, tt.async)
		}
		if tt.kind.Structured() != tt.structured {
			t.Errorf("%s: expected Structured()=%v", tt.name, tt.structured)
		}
	}
}

func TestVariantCall_BusinessError(t *testing.T) {
	v := AsyncTextVariant(func(context.Context) (any, error) {
		return nil, errors.New("division by zero")
	})
	_, err := v.Call(context.Background())
	var te *ToolError
	if !errors.As(err, &te) {
		t.Fatalf("expected *ToolError, got %v", err)
	}
	if te.Error() != "division by zero" {
		t.Errorf("expected message to be kept, got %q", te.Error())
	}
}

func TestVariantCall_RecoversPanic(t *testing.T) {
	for _, v := range []Variant{
		TextVariant(func() (any, error) { panic("sync boom") }),
		AsyncStructuredVariant(func(context.Context) (any, error) { panic("async boom") }),
	} {
		_, err := v.Call(context.Background())
		var te *ToolError
		if !errors.As(err, &te) {
			t.Errorf("%s: expected *ToolError, got %v", v.Kind(), err)
		}
	}
}

type panickingJSON struct{}

func (panickingJSON) MarshalJSON() ([]byte, error) { panic("marshal boom") }

type panickingStringer struct{}

func (panickingStringer) String() string { panic("string boom") }

type nameRef struct{ name *string }

func (n *nameRef) String() string { return *n.name }

func TestVariantCall_RecoversCoercionPanic(t *testing.T) {
	tests := []struct {
		name          string
		v             Variant
		serialization bool
	}{
		{
			name:          "MarshalJSON",
			v:             StructuredVariant(func() (any, error) { return panickingJSON{}, nil }),
			serialization: true,
		},
		{
			name:          "async MarshalJSON",
			v:             AsyncStructuredVariant(func(context.Context) (any, error) { return []any{panickingJSON{}}, nil }),
			serialization: true,
		},
		{
			name: "String",
			v:    TextVariant(func() (any, error) { return panickingStringer{}, nil }),
		},
		{
			name: "typed nil Stringer",
			v:    AsyncTextVariant(func(context.Context) (any, error) { return (*nameRef)(nil), nil }),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tt.v.Call(context.Background())
			var te *ToolError
			if !errors.As(err, &te) {
				t.Fatalf("expected *ToolError, got %v (%+v)", err, res)
			}
			if errors.Is(err, ErrSerialization) != tt.serialization {
				t.Errorf("expected ErrSerialization=%v, got %v", tt.serialization, err)
			}
		})
	}
}

func TestVariantCall_AsyncTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	v := AsyncTextVariant(func(context.Context) (any, error) {
		<-release
		return "too late", nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := v.Call(ctx)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected context.DeadlineExceeded in chain, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("call was not abandoned at the deadline, took %v", elapsed)
	}
}

func TestVariantCall_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v := AsyncStructuredVariant(func(ctx context.Context) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	_, err := v.Call(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if errors.Is(err, ErrTimeout) {
		t.Error("cancellation must not be reported as a timeout")
	}
}

func TestVariantCall_Empty(t *testing.T) {
	if _, err := (Variant{}).Call(context.Background()); err == nil {
		t.Error("expected error for a variant without a callable")
	}
}

func TestResult_CallToolResult(t *testing.T) {
	text := TextResult("plain").CallToolResult()
	if text.IsError || text.StructuredContent != nil {
		t.Errorf("unexpected text result: %+v", text)
	}
	if got := text.Content[0].(*mcp.TextContent).Text; got != "plain" {
		t.Errorf("expected plain, got %q", got)
	}

	structured := StructuredResult(map[string]any{"sum": 3}).CallToolResult()
	if diff := cmp.Diff(map[string]any{"sum": 3}, structured.StructuredContent); diff != "" {
		t.Errorf("structured content mismatch (-want +got):\n%s", diff)
	}
	if got := structured.Content[0].(*mcp.TextContent).Text; got != `{"sum":3}` {
		t.Errorf("expected JSON text content, got %q", got)
	}

	failed := ErrorResult(NewToolError("nope"))
	if !failed.IsError {
		t.Error("expected IsError")
	}
	if got := failed.Content[0].(*mcp.TextContent).Text; got != "nope" {
		t.Errorf("expected nope, got %q", got)
	}
}
