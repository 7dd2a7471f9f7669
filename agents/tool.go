// Copyright 2025 The NLP Odyssey Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/openai/openai-go/v2/packages/param"
)

// FunctionTool is a tool that wraps a Go function.
// Use NewFunctionTool to derive the parameters schema from a struct type.
type FunctionTool struct {
	// The name of the tool, as shown to the LLM.
	Name string

	// A description of the tool, as shown to the LLM.
	Description string

	// The JSON schema for the tool's parameters.
	ParamsJSONSchema map[string]any

	// Whether the JSON schema is in strict mode. Defaults to true if omitted.
	StrictJSONSchema param.Opt[bool]

	// OnInvokeTool receives the raw JSON arguments produced by the model.
	// The returned value is converted to a string before being sent back.
	OnInvokeTool func(ctx context.Context, arguments string) (any, error)

	// FailureErrorFunction turns a tool error into the message sent back
	// to the model. When nil, DefaultToolErrorFunction is used.
	FailureErrorFunction func(ctx context.Context, err error) string
}

// DefaultToolErrorFunction is the default message sent to the model when a
// tool invocation fails.
func DefaultToolErrorFunction(_ context.Context, err error) string {
	return fmt.Sprintf("An error occurred while running the tool. Please try again. Error: %s", err)
}

// NewFunctionTool creates a FunctionTool whose parameters are described by T.
// The schema honors `json` and `jsonschema` struct tags and is strict.
//
//	type SearchArgs struct {
//	    Query string `json:"query" jsonschema:"description=The search query"`
//	}
//
//	tool := agents.NewFunctionTool("search", "Search the web", search)
//
// It panics if T cannot be expressed as a strict schema.
func NewFunctionTool[T, R any](name, description string, handler func(ctx context.Context, args T) (R, error)) FunctionTool {
	var zero T
	schema, err := reflectSchema(&zero, false)
	if err == nil {
		schema, err = EnsureStrictJSONSchema(schema)
	}
	if err != nil {
		panic(fmt.Errorf("tool %q: invalid parameters type %T: %w", name, zero, err))
	}

	return FunctionTool{
		Name:             name,
		Description:      description,
		ParamsJSONSchema: schema,
		StrictJSONSchema: param.NewOpt(true),
		OnInvokeTool: func(ctx context.Context, arguments string) (any, error) {
			var args T
			if err := json.Unmarshal([]byte(arguments), &args); err != nil {
				return nil, ModelBehaviorErrorf("invalid JSON input for tool %s: %w", name, err)
			}
			return handler(ctx, args)
		},
	}
}

func (t FunctionTool) isStrict() bool {
	return t.StrictJSONSchema.Or(true)
}

// invoke runs the tool and returns the text sent back to the model.
// Errors coming from the tool itself are reported to the model rather than
// failing the run.
func (t FunctionTool) invoke(ctx context.Context, arguments string) string {
	if t.OnInvokeTool == nil {
		return t.failure(ctx, NewUserError("tool has no implementation"))
	}
	out, err := t.OnInvokeTool(ctx, arguments)
	if err != nil {
		Logger().Debug("Tool invocation failed", "tool", t.Name, "error", err)
		return t.failure(ctx, err)
	}
	return formatToolOutput(out)
}

func (t FunctionTool) failure(ctx context.Context, err error) string {
	if t.FailureErrorFunction != nil {
		return t.FailureErrorFunction(ctx, err)
	}
	return DefaultToolErrorFunction(ctx, err)
}

func formatToolOutput(v any) string {
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	case []byte:
		return string(v)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}
