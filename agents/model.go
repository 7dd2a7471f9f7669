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

	"github.com/nlpodyssey/account-research/usage"
	"github.com/openai/openai-go/v2/packages/param"
)

// Model is the interface for calling an LLM.
type Model interface {
	// GetResponse gets a response from the model.
	GetResponse(ctx context.Context, req ModelRequest) (*ModelResponse, error)
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry of the conversation exchanged with a model.
type Message struct {
	Role    Role
	Content string

	// Tool calls requested by the model. Only set on assistant messages.
	ToolCalls []ToolCall

	// The call this message answers. Only set on tool messages.
	ToolCallID string
}

// ToolCall is a function call requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

type ModelRequest struct {
	// The system instructions to use.
	SystemInstructions string

	// The conversation so far, starting with the user input.
	Input []Message

	// The tools available to the model.
	Tools []FunctionTool

	// The output type to use. Nil or plain text means free-form text.
	OutputType OutputTypeInterface

	// The model settings to use.
	ModelSettings ModelSettings
}

type ModelResponse struct {
	// The assistant message produced by the model.
	Output Message

	// The usage information for the response.
	Usage usage.Usage
}

// ModelSettings holds optional model configuration parameters.
// Zero values mean "use the provider default".
type ModelSettings struct {
	Temperature param.Opt[float64]
	TopP        param.Opt[float64]
	MaxTokens   param.Opt[int64]

	// Either "auto", "required", "none", or the name of a tool.
	ToolChoice string

	ParallelToolCalls param.Opt[bool]
}

// Resolve produces a new ModelSettings by overlaying any non-zero values
// from override on top of ms.
func (ms ModelSettings) Resolve(override ModelSettings) ModelSettings {
	out := ms
	if override.Temperature.Valid() {
		out.Temperature = override.Temperature
	}
	if override.TopP.Valid() {
		out.TopP = override.TopP
	}
	if override.MaxTokens.Valid() {
		out.MaxTokens = override.MaxTokens
	}
	if override.ToolChoice != "" {
		out.ToolChoice = override.ToolChoice
	}
	if override.ParallelToolCalls.Valid() {
		out.ParallelToolCalls = override.ParallelToolCalls
	}
	return out
}
