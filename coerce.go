// Copyright 2025 John Wang. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package mcptoolbox

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
)

// ResultKey is the payload key under which structured output that is not a
// JSON object is placed.
const ResultKey = "result"

// TextOutput converts the raw output of a text tool into its text.
//
// Accepted values are string, *string, []byte, fmt.Stringer and any type whose
// underlying kind is string. An error value is treated as a failure. Any
// other value is rejected rather than formatted, so a text tool can never
// produce malformed text silently.
func TextOutput(v any) (string, error) {
	switch out := v.(type) {
	case nil:
		return "", NewToolError("text tool produced no output")
	case string:
		return out, nil
	case *string:
		if out == nil {
			return "", NewToolError("text tool produced a nil string")
		}
		return *out, nil
	case []byte:
		return string(out), nil
	case error:
		return "", AsToolError(out)
	case fmt.Stringer:
		return out.String(), nil
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.String {
		return rv.String(), nil
	}
	return "", ToolErrorf("unsupported text output type %T", v)
}

// CoerceText converts a success/failure pair from a text tool. A non-nil
// err short-circuits and is normalized into a [ToolError].
func CoerceText(v any, err error) (string, error) {
	if err != nil {
		return "", AsToolError(err)
	}
	return TextOutput(v)
}

// StructuredOutput serializes the raw output of a structured tool into a
// JSON object payload.
//
// If v serializes to a JSON object its fields become the payload directly.
// Any other shape (scalar, array, null) is wrapped under [ResultKey].
// Numbers are kept as [json.Number] so no precision is lost.
func StructuredOutput(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, ToolErrorf("%w: %w", ErrSerialization, err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, ToolErrorf("%w: %w", ErrSerialization, err)
	}

	if obj, ok := tree.(map[string]any); ok {
		return obj, nil
	}
	return map[string]any{ResultKey: tree}, nil
}

// CoerceStructured converts a success/failure pair from a structured tool.
func CoerceStructured(v any, err error) (map[string]any, error) {
	if err != nil {
		return nil, AsToolError(err)
	}
	return StructuredOutput(v)
}
