// Copyright 2025 John Wang. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcptoolbox

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func emptyToolbox(t *testing.T) *Toolbox {
	t.Helper()
	tb, err := NewToolbox()
	if err != nil {
		t.Fatalf("NewToolbox failed: %v", err)
	}
	return tb
}

func TestCapabilities(t *testing.T) {
	if CapabilitiesFor(emptyToolbox(t)).Tools {
		t.Error("empty toolbox must not advertise tools")
	}
	if CapabilitiesFor(nil).Tools {
		t.Error("nil toolbox must not advertise tools")
	}
	caps := CapabilitiesFor(newTestToolbox(t))
	if !caps.Tools {
		t.Fatal("non-empty toolbox must advertise tools")
	}
	if caps.ServerCapabilities().Tools == nil {
		t.Error("expected tools capability descriptor")
	}
	if (Capabilities{}).ServerCapabilities().Tools != nil {
		t.Error("expected no tools capability descriptor")
	}

	for _, method := range []string{methodListTools, methodCallTool} {
		if err := (Capabilities{}).Permits(method); !errors.Is(err, ErrCapability) {
			t.Errorf("%s: expected ErrCapability, got %v", method, err)
		}
		if err := caps.Permits(method); err != nil {
			t.Errorf("%s: unexpected error %v", method, err)
		}
	}
	if err := (Capabilities{}).Permits("initialize"); err != nil {
		t.Errorf("initialize must not be gated: %v", err)
	}
}

func TestHandler_ListTools(t *testing.T) {
	h := NewHandler(newTestToolbox(t), 0, discardLogger())

	res, err := h.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools failed: %v", err)
	}
	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	if diff := cmp.Diff([]string{"add", "greet", "count", "fail"}, names); diff != "" {
		t.Errorf("list order mismatch (-want +got):\n%s", diff)
	}

	_, err = NewHandler(emptyToolbox(t), 0, discardLogger()).ListTools(context.Background(), nil)
	if !errors.Is(err, ErrCapability) {
		t.Errorf("expected ErrCapability, got %v", err)
	}
}

func callRequest(name, args string) *mcp.CallToolRequest {
	return &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{Name: name, Arguments: json.RawMessage(args)}}
}

func TestHandler_CallTool(t *testing.T) {
	h := NewHandler(newTestToolbox(t), time.Second, discardLogger())
	ctx := context.Background()

	tests := []struct {
		name    string
		req     *mcp.CallToolRequest
		isError bool
	}{
		{"success", callRequest("add", `{"a":1,"b":1}`), false},
		{"unknown tool", callRequest("nope", `{}`), true},
		{"invalid params", callRequest("add", `{"a":true}`), true},
		{"business error", callRequest("fail", ``), true},
		{"nil request", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := h.CallTool(ctx, tt.req)
			if err != nil {
				t.Fatalf("CallTool must report failures in the result, got %v", err)
			}
			if res.IsError != tt.isError {
				t.Errorf("expected IsError=%v, got %+v", tt.isError, res)
			}
		})
	}

	res, _ := NewHandler(emptyToolbox(t), 0, discardLogger()).CallTool(ctx, callRequest("add", `{}`))
	if !res.IsError {
		t.Error("expected capability failure result")
	}
}

func TestHandler_Defaults(t *testing.T) {
	h := NewHandler(emptyToolbox(t), -time.Second, nil)
	if h.timeout != DefaultTimeout {
		t.Errorf("expected %v, got %v", DefaultTimeout, h.timeout)
	}
	if h.logger == nil {
		t.Error("expected default logger")
	}
}

func TestMiddleware_RejectsBeforeDispatch(t *testing.T) {
	h := NewHandler(emptyToolbox(t), time.Second, discardLogger())
	called := false
	next := func(context.Context, string, mcp.Request) (mcp.Result, error) {
		called = true
		return nil, nil
	}

	_, err := h.Middleware()(next)(context.Background(), methodListTools, &mcp.ListToolsRequest{})
	if !errors.Is(err, ErrCapability) {
		t.Fatalf("expected ErrCapability, got %v", err)
	}
	if called {
		t.Error("next must not run when the capability check fails")
	}
}

func TestMiddleware_Timeout(t *testing.T) {
	h := NewHandler(newTestToolbox(t), 20*time.Millisecond, discardLogger())
	release := make(chan struct{})
	defer close(release)

	next := func(ctx context.Context, _ string, _ mcp.Request) (mcp.Result, error) {
		<-release
		return nil, nil
	}

	start := time.Now()
	_, err := h.Middleware()(next)(context.Background(), "ping", nil)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("middleware did not give up at the timeout, took %v", elapsed)
	}
}

func TestMiddleware_CallTimeoutIsErrorResult(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	tb, err := NewToolbox(AsyncText(ToolSpec{Name: "slow"}, func(context.Context, optionalInput) (string, error) {
		<-release
		return "done", nil
	}))
	if err != nil {
		t.Fatalf("NewToolbox failed: %v", err)
	}
	h := NewHandler(tb, 20*time.Millisecond, discardLogger())

	res, err := h.Middleware()(nil)(context.Background(), methodCallTool, callRequest("slow", `{}`))
	if err != nil {
		t.Fatalf("expected error result, got protocol error %v", err)
	}
	ctr, ok := res.(*mcp.CallToolResult)
	if !ok || !ctr.IsError {
		t.Fatalf("expected IsError result, got %#v", res)
	}
}

func TestMiddleware_PassesOtherMethods(t *testing.T) {
	h := NewHandler(emptyToolbox(t), time.Second, discardLogger())
	want := &mcp.ListToolsResult{}
	next := func(context.Context, string, mcp.Request) (mcp.Result, error) {
		return want, nil
	}

	for _, method := range []string{"ping", "notifications/initialized"} {
		got, err := h.Middleware()(next)(context.Background(), method, nil)
		if err != nil {
			t.Fatalf("%s: unexpected error %v", method, err)
		}
		if got != want {
			t.Errorf("%s: expected next's result", method)
		}
	}
}

func TestMiddleware_RecoversPanic(t *testing.T) {
	h := NewHandler(newTestToolbox(t), time.Second, discardLogger())
	next := func(context.Context, string, mcp.Request) (mcp.Result, error) {
		panic("next boom")
	}

	if _, err := h.Middleware()(next)(context.Background(), "ping", nil); err == nil {
		t.Error("expected error from a panicking handler")
	}
}
