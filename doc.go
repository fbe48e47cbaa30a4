// Copyright 2025 John Wang. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package mcptoolbox declares a fixed set of tools once and serves them over
// the Model Context Protocol, either on stdio or on a streamable HTTP
// listener.
//
// mcptoolbox builds on the official MCP Go SDK
// (github.com/modelcontextprotocol/go-sdk), which supplies the wire protocol.
// It adds a uniform dispatch layer so tools of different shapes are
// registered, listed and invoked the same way.
//
// # Tool Shapes
//
// A tool is declared from a typed function whose input type provides the
// JSON schema of its arguments:
//
//   - [Text] for synchronous tools producing text
//   - [AsyncText] for context-aware tools producing text
//   - [Structured] for synchronous tools producing a JSON-serializable value
//   - [AsyncStructured] for context-aware tools producing a serializable value
//
// Structured output that serializes to a JSON object becomes the result
// payload as is. Any other shape is wrapped as {"result": value}.
//
// # Quick Start
//
//	type sumInput struct {
//		Values []float64 `json:"values" jsonschema:"numbers to add"`
//	}
//
//	toolbox := mcptoolbox.MustToolbox(
//		mcptoolbox.Structured(mcptoolbox.ToolSpec{
//			Name:        "sum",
//			Description: "Add numbers",
//		}, func(in sumInput) (float64, error) {
//			var total float64
//			for _, v := range in.Values {
//				total += v
//			}
//			return total, nil
//		}),
//	)
//
//	srv := mcptoolbox.NewBuilder().
//		WithName("calculator").
//		WithVersion("v1.0.0").
//		Build(toolbox)
//
//	// Library mode: call directly
//	result, err := toolbox.Call(ctx, "sum", map[string]any{"values": []float64{1, 2}})
//
//	// Server mode: stdio, or HTTP when a host or port is given
//	err = srv.Start(ctx, mcptoolbox.SelectTransport(nil, nil))
//
// The cli subpackage wraps this in a ready-made command line.
package mcptoolbox
