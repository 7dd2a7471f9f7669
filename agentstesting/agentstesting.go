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

// Package agentstesting provides fakes and helpers for testing code built
// on the agents package.
package agentstesting

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/nlpodyssey/account-research/agents"
)

var callCounter atomic.Uint64

func GetTextMessage(content string) agents.Message {
	return agents.Message{Role: agents.RoleAssistant, Content: content}
}

// GetFinalOutputMessage returns an assistant message carrying structured
// output as JSON text.
func GetFinalOutputMessage(args string) agents.Message {
	return GetTextMessage(args)
}

// GetFunctionToolCall returns a tool call with a unique ID.
func GetFunctionToolCall(name string, arguments string) agents.ToolCall {
	return agents.ToolCall{
		ID:        fmt.Sprintf("call_%d", callCounter.Add(1)),
		Name:      name,
		Arguments: arguments,
	}
}

// GetToolCallsMessage returns an assistant message requesting the given calls.
func GetToolCallsMessage(calls ...agents.ToolCall) agents.Message {
	return agents.Message{Role: agents.RoleAssistant, ToolCalls: calls}
}

func emptyParams(name string) map[string]any {
	return map[string]any{
		"title":                name + "_args",
		"type":                 "object",
		"required":             []string{},
		"additionalProperties": false,
		"properties":           map[string]any{},
	}
}

func GetFunctionTool(name string, returnValue string) agents.FunctionTool {
	return agents.FunctionTool{
		Name:             name,
		ParamsJSONSchema: emptyParams(name),
		OnInvokeTool: func(context.Context, string) (any, error) {
			return returnValue, nil
		},
	}
}

func GetFunctionToolErr(name string, returnErr error) agents.FunctionTool {
	return agents.FunctionTool{
		Name:             name,
		ParamsJSONSchema: emptyParams(name),
		OnInvokeTool: func(context.Context, string) (any, error) {
			return nil, returnErr
		},
	}
}
