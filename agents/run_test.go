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

package agents_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/nlpodyssey/account-research/agents"
	"github.com/nlpodyssey/account-research/agentstesting"
	"github.com/nlpodyssey/account-research/usage"
	"github.com/openai/openai-go/v2/packages/param"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSimpleFirstRun(t *testing.T) {
	model := agentstesting.NewFakeModel(agentstesting.FakeModelTurnOutput{
		Value: agentstesting.GetTextMessage("first"),
	})
	agent := agents.New("test").WithInstructions("be brief").WithModel(model)

	result, err := agents.Run(t.Context(), agent, "test")
	require.NoError(t, err)
	assert.Equal(t, "test", result.Input)
	assert.Equal(t, "first", result.FinalOutput)
	assert.Same(t, agent, result.LastAgent)
	require.Len(t, result.NewItems, 1)
	assert.Equal(t, agents.RoleAssistant, result.NewItems[0].Role)
	assert.Equal(t, uint64(1), result.Usage.Requests)

	req := model.LastRequest()
	assert.Equal(t, "be brief", req.SystemInstructions)
	assert.Equal(t, []agents.Message{{Role: agents.RoleUser, Content: "test"}}, req.Input)
}

func TestRunnerUsesConfigModelAsFallback(t *testing.T) {
	model := agentstesting.NewFakeModel(agentstesting.FakeModelTurnOutput{
		Value: agentstesting.GetTextMessage("done"),
	})
	runner := agents.Runner{Config: agents.RunConfig{Model: model}}

	result, err := runner.Run(t.Context(), agents.New("test"), "hi")
	require.NoError(t, err)
	assert.Equal(t, "done", result.FinalOutput)
}

func TestMissingModel(t *testing.T) {
	_, err := agents.Run(t.Context(), agents.New("test"), "hi")
	assert.ErrorAs(t, err, &agents.UserError{})
}

func TestToolCallRuns(t *testing.T) {
	model := agentstesting.NewFakeModel()
	agent := agents.New("test").
		WithModel(model).
		WithTools(agentstesting.GetFunctionTool("foo", "tool_result"))

	call := agentstesting.GetFunctionToolCall("foo", `{"a": "b"}`)
	model.AddMultipleTurnOutputs([]agentstesting.FakeModelTurnOutput{
		{Value: agentstesting.GetToolCallsMessage(call)},
		{Value: agentstesting.GetTextMessage("done")},
	})

	result, err := agents.Run(t.Context(), agent, "user_message")
	require.NoError(t, err)
	assert.Equal(t, "done", result.FinalOutput)
	assert.Equal(t, uint64(2), result.Usage.Requests)

	// assistant call, tool output, final message
	require.Len(t, result.NewItems, 3)
	assert.Equal(t, agents.Message{
		Role:       agents.RoleTool,
		Content:    "tool_result",
		ToolCallID: call.ID,
	}, result.NewItems[1])

	requests := model.Requests()
	require.Len(t, requests, 2)
	assert.Len(t, requests[0].Input, 1)
	require.Len(t, requests[1].Input, 3)
	assert.Equal(t, "tool_result", requests[1].Input[2].Content)
}

func TestParallelToolCallsKeepCallOrder(t *testing.T) {
	slow := agents.FunctionTool{
		Name:             "slow",
		ParamsJSONSchema: map[string]any{"type": "object"},
		OnInvokeTool: func(context.Context, string) (any, error) {
			time.Sleep(50 * time.Millisecond)
			return "slow_result", nil
		},
	}
	model := agentstesting.NewFakeModel()
	agent := agents.New("test").
		WithModel(model).
		WithTools(slow, agentstesting.GetFunctionTool("fast", "fast_result"))

	model.AddMultipleTurnOutputs([]agentstesting.FakeModelTurnOutput{
		{Value: agentstesting.GetToolCallsMessage(
			agentstesting.GetFunctionToolCall("slow", "{}"),
			agentstesting.GetFunctionToolCall("fast", "{}"),
		)},
		{Value: agentstesting.GetTextMessage("done")},
	})

	result, err := agents.Run(t.Context(), agent, "go")
	require.NoError(t, err)
	require.Len(t, result.NewItems, 4)
	assert.Equal(t, "slow_result", result.NewItems[1].Content)
	assert.Equal(t, "fast_result", result.NewItems[2].Content)
}

func TestToolErrorIsReportedToModel(t *testing.T) {
	model := agentstesting.NewFakeModel()
	agent := agents.New("test").
		WithModel(model).
		WithTools(agentstesting.GetFunctionToolErr("broken", errors.New("boom")))

	model.AddMultipleTurnOutputs([]agentstesting.FakeModelTurnOutput{
		{Value: agentstesting.GetToolCallsMessage(agentstesting.GetFunctionToolCall("broken", "{}"))},
		{Value: agentstesting.GetTextMessage("recovered")},
	})

	result, err := agents.Run(t.Context(), agent, "go")
	require.NoError(t, err)
	assert.Equal(t, "recovered", result.FinalOutput)
	assert.Equal(t,
		"An error occurred while running the tool. Please try again. Error: boom",
		result.NewItems[1].Content,
	)
}

func TestUnknownToolIsModelBehaviorError(t *testing.T) {
	model := agentstesting.NewFakeModel(agentstesting.FakeModelTurnOutput{
		Value: agentstesting.GetToolCallsMessage(agentstesting.GetFunctionToolCall("missing", "{}")),
	})
	agent := agents.New("test").WithModel(model)

	_, err := agents.Run(t.Context(), agent, "go")
	assert.ErrorAs(t, err, &agents.ModelBehaviorError{})
}

func TestMaxTurnsExceeded(t *testing.T) {
	model := agentstesting.NewFakeModel()
	model.Respond = func(agents.ModelRequest) agentstesting.FakeModelTurnOutput {
		return agentstesting.FakeModelTurnOutput{
			Value: agentstesting.GetToolCallsMessage(agentstesting.GetFunctionToolCall("some_function", `{"a": "b"}`)),
		}
	}
	agent := agents.New("test").
		WithModel(model).
		WithTools(agentstesting.GetFunctionTool("some_function", "result"))

	_, err := agents.Runner{Config: agents.RunConfig{MaxTurns: 3}}.Run(t.Context(), agent, "user_message")
	assert.ErrorAs(t, err, &agents.MaxTurnsExceededError{})
	assert.Len(t, model.Requests(), 3)
}

func TestModelErrorIsReturned(t *testing.T) {
	modelErr := errors.New("rate limited")
	model := agentstesting.NewFakeModel(agentstesting.FakeModelTurnOutput{Error: modelErr})

	_, err := agents.Run(t.Context(), agents.New("test").WithModel(model), "go")
	assert.ErrorIs(t, err, modelErr)
}

type structuredOutput struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestStructuredOutput(t *testing.T) {
	model := agentstesting.NewFakeModel(agentstesting.FakeModelTurnOutput{
		Value: agentstesting.GetFinalOutputMessage(`{"name": "acme", "count": 3}`),
	})
	agent := agents.New("test").
		WithModel(model).
		WithOutputType(agents.OutputType[structuredOutput]())

	result, err := agents.Run(t.Context(), agent, "go")
	require.NoError(t, err)

	out, err := agents.FinalOutputAs[structuredOutput](result)
	require.NoError(t, err)
	assert.Equal(t, structuredOutput{Name: "acme", Count: 3}, out)

	_, err = agents.FinalOutputAs[string](result)
	assert.Error(t, err)
}

func TestInvalidStructuredOutput(t *testing.T) {
	model := agentstesting.NewFakeModel(agentstesting.FakeModelTurnOutput{
		Value: agentstesting.GetFinalOutputMessage(`{"name": 42}`),
	})
	agent := agents.New("test").
		WithModel(model).
		WithOutputType(agents.OutputType[structuredOutput]())

	_, err := agents.Run(t.Context(), agent, "go")
	assert.ErrorAs(t, err, &agents.ModelBehaviorError{})
}

func TestToolChoiceResetsAfterToolUse(t *testing.T) {
	model := agentstesting.NewFakeModel()
	agent := agents.New("test").
		WithModel(model).
		WithTools(agentstesting.GetFunctionTool("foo", "result")).
		WithModelSettings(agents.ModelSettings{ToolChoice: "required"})

	model.AddMultipleTurnOutputs([]agentstesting.FakeModelTurnOutput{
		{Value: agentstesting.GetToolCallsMessage(agentstesting.GetFunctionToolCall("foo", "{}"))},
		{Value: agentstesting.GetTextMessage("done")},
	})

	_, err := agents.Run(t.Context(), agent, "go")
	require.NoError(t, err)

	requests := model.Requests()
	require.Len(t, requests, 2)
	assert.Equal(t, "required", requests[0].ModelSettings.ToolChoice)
	assert.Equal(t, "", requests[1].ModelSettings.ToolChoice)
}

func TestRunConfigModelSettingsOverride(t *testing.T) {
	model := agentstesting.NewFakeModel(agentstesting.FakeModelTurnOutput{
		Value: agentstesting.GetTextMessage("done"),
	})
	agent := agents.New("test").
		WithModel(model).
		WithModelSettings(agents.ModelSettings{
			Temperature: param.NewOpt(0.1),
			TopP:        param.NewOpt(0.5),
		})
	runner := agents.Runner{Config: agents.RunConfig{
		ModelSettings: agents.ModelSettings{Temperature: param.NewOpt(0.9)},
	}}

	_, err := runner.Run(t.Context(), agent, "go")
	require.NoError(t, err)

	settings := model.LastRequest().ModelSettings
	assert.Equal(t, param.NewOpt(0.9), settings.Temperature)
	assert.Equal(t, param.NewOpt(0.5), settings.TopP)
}

func TestUsageIsAggregated(t *testing.T) {
	model := agentstesting.NewFakeModel()
	model.SetHardcodedUsage(usage.Usage{Requests: 1, InputTokens: 10, OutputTokens: 5, TotalTokens: 15})
	model.AddMultipleTurnOutputs([]agentstesting.FakeModelTurnOutput{
		{Value: agentstesting.GetToolCallsMessage(agentstesting.GetFunctionToolCall("foo", "{}"))},
		{Value: agentstesting.GetTextMessage("done")},
	})
	agent := agents.New("test").
		WithModel(model).
		WithTools(agentstesting.GetFunctionTool("foo", "result"))

	result, err := agents.Run(t.Context(), agent, "go")
	require.NoError(t, err)
	assert.Equal(t, usage.Usage{Requests: 2, InputTokens: 20, OutputTokens: 10, TotalTokens: 30}, result.Usage)
}

type recordingHooks struct {
	agents.NoOpRunHooks
	mu     sync.Mutex
	events []string
	runIDs map[string]struct{}
	fail   error
}

func (h *recordingHooks) record(run agents.RunInfo, event string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.runIDs == nil {
		h.runIDs = make(map[string]struct{})
	}
	h.runIDs[run.ID] = struct{}{}
	h.events = append(h.events, event)
}

func (h *recordingHooks) OnAgentStart(_ context.Context, run agents.RunInfo) error {
	h.record(run, "agent_start:"+run.Agent.Name)
	return h.fail
}

func (h *recordingHooks) OnAgentEnd(_ context.Context, run agents.RunInfo, output any, err error) error {
	h.record(run, fmt.Sprintf("agent_end:%v:%v", output, err))
	return nil
}

func (h *recordingHooks) OnLLMStart(_ context.Context, run agents.RunInfo, _ agents.ModelRequest) error {
	h.record(run, "llm_start")
	return nil
}

func (h *recordingHooks) OnLLMEnd(_ context.Context, run agents.RunInfo, _ agents.ModelResponse) error {
	h.record(run, "llm_end")
	return nil
}

func (h *recordingHooks) OnToolStart(_ context.Context, run agents.RunInfo, tool agents.FunctionTool, _ agents.ToolCall) error {
	h.record(run, "tool_start:"+tool.Name)
	return nil
}

func (h *recordingHooks) OnToolEnd(_ context.Context, run agents.RunInfo, tool agents.FunctionTool, _ agents.ToolCall, output string) error {
	h.record(run, "tool_end:"+tool.Name+":"+output)
	return nil
}

func TestRunHooks(t *testing.T) {
	model := agentstesting.NewFakeModel()
	model.AddMultipleTurnOutputs([]agentstesting.FakeModelTurnOutput{
		{Value: agentstesting.GetToolCallsMessage(agentstesting.GetFunctionToolCall("foo", "{}"))},
		{Value: agentstesting.GetTextMessage("done")},
	})
	agent := agents.New("hooked").
		WithModel(model).
		WithTools(agentstesting.GetFunctionTool("foo", "result"))

	hooks := &recordingHooks{}
	other := &recordingHooks{}
	runner := agents.Runner{Config: agents.RunConfig{Hooks: agents.MultiRunHooks{hooks, other}}}

	_, err := runner.Run(t.Context(), agent, "go")
	require.NoError(t, err)

	expected := []string{
		"agent_start:hooked",
		"llm_start",
		"llm_end",
		"tool_start:foo",
		"tool_end:foo:result",
		"llm_start",
		"llm_end",
		"agent_end:done:<nil>",
	}
	assert.Equal(t, expected, hooks.events)
	assert.Equal(t, expected, other.events)
	assert.Len(t, hooks.runIDs, 1)
}

func TestRunHookErrorAbortsRun(t *testing.T) {
	hookErr := errors.New("hook failed")
	model := agentstesting.NewFakeModel(agentstesting.FakeModelTurnOutput{
		Value: agentstesting.GetTextMessage("done"),
	})
	runner := agents.Runner{Config: agents.RunConfig{Hooks: &recordingHooks{fail: hookErr}}}

	_, err := runner.Run(t.Context(), agents.New("test").WithModel(model), "go")
	assert.ErrorIs(t, err, hookErr)
	assert.Empty(t, model.Requests())
}
