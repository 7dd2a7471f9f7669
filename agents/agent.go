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
	"slices"
)

// An Agent is an LLM configured with instructions, tools and an optional
// structured output type.
type Agent struct {
	// The name of the agent.
	Name string

	// The instructions for the agent. Will be used as the "system prompt"
	// when this agent is invoked.
	Instructions string

	// A list of tools that the agent can use.
	Tools []FunctionTool

	// Optional output type. If not provided, the output will be a plain string.
	OutputType OutputTypeInterface

	// The model implementation to use when invoking the LLM.
	// If nil, the Runner's default model is used.
	Model Model

	// Configures model-specific tuning parameters (e.g. temperature, top_p).
	ModelSettings ModelSettings
}

// New creates a new Agent with the given name.
//
// The returned Agent can be further configured using the builder methods.
func New(name string) *Agent {
	return &Agent{Name: name}
}

// WithInstructions sets the Agent instructions.
func (a *Agent) WithInstructions(instr string) *Agent {
	a.Instructions = instr
	return a
}

// WithTools sets the list of tools available to the agent.
func (a *Agent) WithTools(t ...FunctionTool) *Agent {
	a.Tools = append([]FunctionTool{}, t...)
	return a
}

// AddTool appends a tool to the agent's tool list.
func (a *Agent) AddTool(t FunctionTool) *Agent {
	a.Tools = append(a.Tools, t)
	return a
}

// WithOutputType sets the output type.
func (a *Agent) WithOutputType(outputType OutputTypeInterface) *Agent {
	a.OutputType = outputType
	return a
}

// WithModel sets the model implementation.
func (a *Agent) WithModel(m Model) *Agent {
	a.Model = m
	return a
}

// WithModelSettings sets model-specific settings.
func (a *Agent) WithModelSettings(settings ModelSettings) *Agent {
	a.ModelSettings = settings
	return a
}

// Clone returns a shallow copy of the agent with its own tool list.
func (a *Agent) Clone() *Agent {
	c := *a
	c.Tools = slices.Clone(a.Tools)
	return &c
}

func (a *Agent) tool(name string) (FunctionTool, bool) {
	for _, t := range a.Tools {
		if t.Name == name {
			return t, true
		}
	}
	return FunctionTool{}, false
}
