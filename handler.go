// Copyright 2025 John Wang. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcptoolbox

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	methodListTools = "tools/list"
	methodCallTool  = "tools/call"
)

// Capabilities is the server capability set derived from a Toolbox.
type Capabilities struct {
	// Tools is set iff the catalog is non-empty.
	Tools bool
}

// CapabilitiesFor derives the capabilities a server built on tb advertises.
func CapabilitiesFor(tb *Toolbox) Capabilities {
	return Capabilities{Tools: tb != nil && tb.Len() > 0}
}

// Permits reports whether method may be served. Methods outside the tools
// family are not gated here.
func (c Capabilities) Permits(method string) error {
	switch method {
	case methodListTools, methodCallTool:
		if !c.Tools {
			return fmt.Errorf("%w: server does not support tools (%s)", ErrCapability, method)
		}
	}
	return nil
}

// ServerCapabilities returns the protocol capability descriptor.
func (c Capabilities) ServerCapabilities() *mcp.ServerCapabilities {
	caps := &mcp.ServerCapabilities{}
	if c.Tools {
		caps.Tools = &mcp.ToolCapabilities{}
	}
	return caps
}

// Handler serves tools/list and tools/call for a Toolbox. It holds no
// per-request state.
type Handler struct {
	toolbox *Toolbox
	caps    Capabilities
	timeout time.Duration
	logger  *slog.Logger
}

// NewHandler returns a Handler for tb. A nil logger means slog.Default();
// a non-positive timeout means DefaultTimeout.
func NewHandler(tb *Toolbox, timeout time.Duration, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Handler{
		toolbox: tb,
		caps:    CapabilitiesFor(tb),
		timeout: timeout,
		logger:  logger,
	}
}

// Capabilities returns the capabilities the handler enforces.
func (h *Handler) Capabilities() Capabilities { return h.caps }

// ListTools returns the catalog verbatim after the capability check.
func (h *Handler) ListTools(_ context.Context, _ *mcp.ListToolsRequest) (*mcp.ListToolsResult, error) {
	if err := h.caps.Permits(methodListTools); err != nil {
		return nil, err
	}
	return &mcp.ListToolsResult{Tools: h.toolbox.Catalog()}, nil
}

// CallTool routes and invokes a tool call. Every failure, including a
// capability failure, is returned as a result with IsError set; the error
// return is always nil.
func (h *Handler) CallTool(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.caps.Permits(methodCallTool); err != nil {
		return ErrorResult(err), nil
	}

	var call CallRequest
	if req != nil && req.Params != nil {
		call = CallRequest{Name: req.Params.Name, Arguments: req.Params.Arguments}
	}

	v, err := h.toolbox.Route(call)
	if err != nil {
		h.logger.WarnContext(ctx, "tool routing failed", "tool", call.Name, "error", err)
		return ErrorResult(err), nil
	}

	res, err := v.Call(ctx)
	if err != nil {
		h.logger.InfoContext(ctx, "tool call failed", "tool", call.Name, "kind", v.Kind().String(), "error", err)
		return ErrorResult(err), nil
	}
	return res.CallToolResult(), nil
}

// Middleware returns receiving middleware for the protocol server.
//
// It checks capabilities before any other work and bounds every request by
// the configured timeout. tools/list and tools/call are answered by the
// Handler itself, so the catalog keeps declaration order and an unknown tool
// is reported like any other call failure.
func (h *Handler) Middleware() mcp.Middleware {
	return func(next mcp.MethodHandler) mcp.MethodHandler {
		return func(ctx context.Context, method string, req mcp.Request) (mcp.Result, error) {
			if err := h.caps.Permits(method); err != nil {
				h.logger.WarnContext(ctx, "request rejected", "method", method, "error", err)
				return nil, err
			}
			if strings.HasPrefix(method, "notifications/") {
				return next(ctx, method, req)
			}

			start := time.Now()
			res, err := h.bounded(ctx, method, req, next)
			if err != nil {
				h.logger.WarnContext(ctx, "request failed", "method", method, "duration", time.Since(start), "error", err)
			} else {
				h.logger.DebugContext(ctx, "request served", "method", method, "duration", time.Since(start))
			}
			return res, err
		}
	}
}

type methodOutcome struct {
	res mcp.Result
	err error
}

// bounded runs one request under the handler timeout. The caller is released
// when the timeout fires even if the request keeps running. A timed out
// tools/call is reported as an error result.
func (h *Handler) bounded(ctx context.Context, method string, req mcp.Request, next mcp.MethodHandler) (mcp.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	done := make(chan methodOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				h.logger.ErrorContext(ctx, "request panicked", "method", method, "panic", r)
				err := fmt.Errorf("%s: internal error: %v", method, r)
				if method == methodCallTool {
					done <- methodOutcome{res: ErrorResult(err)}
					return
				}
				done <- methodOutcome{err: err}
			}
		}()
		res, err := h.dispatch(ctx, method, req, next)
		done <- methodOutcome{res: res, err: err}
	}()

	select {
	case o := <-done:
		return o.res, o.err
	case <-ctx.Done():
		err := fmt.Errorf("%s: %w", method, contextError(ctx))
		if method == methodCallTool {
			return ErrorResult(err), nil
		}
		return nil, err
	}
}

// dispatch serves the tools methods directly and hands the rest to next.
func (h *Handler) dispatch(ctx context.Context, method string, req mcp.Request, next mcp.MethodHandler) (mcp.Result, error) {
	switch r := req.(type) {
	case *mcp.ListToolsRequest:
		res, err := h.ListTools(ctx, r)
		if err != nil {
			return nil, err
		}
		return res, nil
	case *mcp.CallToolRequest:
		return h.CallTool(ctx, r)
	}
	return next(ctx, method, req)
}
