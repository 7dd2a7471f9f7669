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
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/nlpodyssey/account-research/asynctask"
	"github.com/nlpodyssey/account-research/usage"
)

const DefaultMaxTurns = 10

// DefaultRunner is the runner used by the package-level Run function.
var DefaultRunner = Runner{}

// RunConfig configures settings for the entire agent run.
type RunConfig struct {
	// The model to use for agents that don't set their own.
	Model Model

	// Global model settings. Any non-zero values override the
	// agent-specific model settings.
	ModelSettings ModelSettings

	// The maximum number of turns to run the agent for.
	// A turn is defined as one model invocation.
	// Default (when left zero): DefaultMaxTurns.
	MaxTurns uint64

	// Optional object that receives callbacks on various lifecycle events.
	Hooks RunHooks
}

// Runner executes agents using the configured RunConfig.
//
// The zero value is valid, provided every agent sets its own model.
type Runner struct {
	Config RunConfig
}

type RunResult struct {
	// The original input.
	Input string

	// The output of the last agent: a string for plain-text agents, or the
	// decoded value of the agent's output type.
	FinalOutput any

	// The assistant and tool messages generated during the run.
	NewItems []Message

	// The raw model responses, one per turn.
	RawResponses []ModelResponse

	// The agent that produced the final output.
	LastAgent *Agent

	// Usage aggregated over every model call of the run.
	Usage usage.Usage
}

// Run runs agent with the given input using the DefaultRunner.
func Run(ctx context.Context, agent *Agent, input string) (*RunResult, error) {
	return DefaultRunner.Run(ctx, agent, input)
}

// FinalOutputAs returns the final output of a run converted to T.
func FinalOutputAs[T any](result *RunResult) (T, error) {
	v, ok := result.FinalOutput.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("final output has type %T, expected %T", result.FinalOutput, zero)
	}
	return v, nil
}

// Run runs agent with the given input.
//
// The agent runs in a loop until a final output is generated:
//  1. The model is invoked with the conversation so far.
//  2. If the model requests tool calls, the tools run in parallel and
//     their outputs are appended to the conversation; then the loop repeats.
//  3. Otherwise the message is the final output, validated against the
//     agent's output type if it has one.
//
// A MaxTurnsExceededError is returned if the model is invoked more than
// MaxTurns times. A ModelBehaviorError is returned if the model calls an
// unknown tool or produces invalid structured output.
func (r Runner) Run(ctx context.Context, agent *Agent, input string) (*RunResult, error) {
	if agent == nil {
		return nil, NewUserError("agent must not be nil")
	}
	model := agent.Model
	if model == nil {
		model = r.Config.Model
	}
	if model == nil {
		return nil, UserErrorf("no model configured for agent %q", agent.Name)
	}

	hooks := r.Config.Hooks
	if hooks == nil {
		hooks = NoOpRunHooks{}
	}
	run := RunInfo{ID: "run_" + uuid.NewString(), Agent: agent}

	if err := hooks.OnAgentStart(ctx, run); err != nil {
		return nil, err
	}

	result, err := r.loop(ctx, run, model, hooks, input)

	var output any
	if result != nil {
		output = result.FinalOutput
	}
	if hookErr := hooks.OnAgentEnd(ctx, run, output, err); hookErr != nil && err == nil {
		err = hookErr
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r Runner) loop(ctx context.Context, run RunInfo, model Model, hooks RunHooks, input string) (*RunResult, error) {
	agent := run.Agent
	maxTurns := cmp.Or(r.Config.MaxTurns, DefaultMaxTurns)
	settings := agent.ModelSettings.Resolve(r.Config.ModelSettings)

	result := &RunResult{Input: input, LastAgent: agent}
	conversation := []Message{{Role: RoleUser, Content: input}}

	for turn := uint64(1); ; turn++ {
		if turn > maxTurns {
			return nil, MaxTurnsExceededErrorf("max turns (%d) exceeded", maxTurns)
		}
		Logger().Debug("Running agent", "agent", agent.Name, "turn", turn)

		req := ModelRequest{
			SystemInstructions: agent.Instructions,
			Input:              slices.Clone(conversation),
			Tools:              agent.Tools,
			OutputType:         agent.OutputType,
			ModelSettings:      settings,
		}
		if err := hooks.OnLLMStart(ctx, run, req); err != nil {
			return nil, err
		}
		resp, err := model.GetResponse(ctx, req)
		if err != nil {
			return nil, err
		}
		result.Usage.Add(resp.Usage)
		result.RawResponses = append(result.RawResponses, *resp)
		if err = hooks.OnLLMEnd(ctx, run, *resp); err != nil {
			return nil, err
		}

		msg := resp.Output
		msg.Role = RoleAssistant
		conversation = append(conversation, msg)
		result.NewItems = append(result.NewItems, msg)

		if len(msg.ToolCalls) == 0 {
			result.FinalOutput, err = finalOutput(agent, msg.Content)
			if err != nil {
				return nil, err
			}
			return result, nil
		}

		toolMessages, err := runTools(ctx, run, hooks, msg.ToolCalls)
		if err != nil {
			return nil, err
		}
		conversation = append(conversation, toolMessages...)
		result.NewItems = append(result.NewItems, toolMessages...)

		// Forcing a tool on every turn would loop forever.
		if settings.ToolChoice != "" && settings.ToolChoice != "auto" && settings.ToolChoice != "none" {
			settings.ToolChoice = ""
		}
	}
}

func finalOutput(agent *Agent, content string) (any, error) {
	if agent.OutputType == nil || agent.OutputType.IsPlainText() {
		return content, nil
	}
	return agent.OutputType.ValidateJSON(content)
}

// runTools invokes every requested tool concurrently. The returned messages
// follow the order of calls.
func runTools(ctx context.Context, run RunInfo, hooks RunHooks, calls []ToolCall) ([]Message, error) {
	tools := make([]FunctionTool, len(calls))
	for i, call := range calls {
		t, ok := run.Agent.tool(call.Name)
		if !ok {
			return nil, ModelBehaviorErrorf("tool %s not found in agent %s", call.Name, run.Agent.Name)
		}
		tools[i] = t
	}

	tasks := make([]*asynctask.Task[string], len(calls))
	for i, call := range calls {
		tool := tools[i]
		tasks[i] = asynctask.CreateTask(ctx, func(ctx context.Context) (string, error) {
			if err := hooks.OnToolStart(ctx, run, tool, call); err != nil {
				return "", err
			}
			output := tool.invoke(ctx, call.Arguments)
			if err := hooks.OnToolEnd(ctx, run, tool, call, output); err != nil {
				return "", err
			}
			return output, nil
		})
	}

	messages := make([]Message, len(calls))
	var errs []error
	for i, task := range tasks {
		res := task.Await()
		if res.Error != nil {
			errs = append(errs, fmt.Errorf("tool %s: %w", calls[i].Name, res.Error))
			continue
		}
		messages[i] = Message{Role: RoleTool, Content: res.Value, ToolCallID: calls[i].ID}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return messages, nil
}
