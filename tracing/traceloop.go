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

package tracing

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/nlpodyssey/account-research/agents"
	sdk "github.com/traceloop/go-openllmetry/traceloop-sdk"
)

const DefaultTraceloopBaseURL = "api.traceloop.com"

// TraceloopParams configures the Traceloop exporter.
type TraceloopParams struct {
	// Traceloop API key. Required.
	APIKey string

	// Traceloop base URL. Defaults to DefaultTraceloopBaseURL.
	BaseURL string

	// Name of the model reported on LLM spans.
	Model string

	Logger *slog.Logger
}

// TraceloopExporter sends job traces to Traceloop: one workflow per job,
// one task per agent run and per tool call, and an LLM span per model call.
type TraceloopExporter struct {
	client  *sdk.Traceloop
	backend backend
	model   string
	logger  *slog.Logger
}

func NewTraceloopExporter(ctx context.Context, params TraceloopParams) (*TraceloopExporter, error) {
	if params.APIKey == "" {
		return nil, fmt.Errorf("traceloop: missing API key")
	}
	baseURL := params.BaseURL
	if baseURL == "" {
		baseURL = DefaultTraceloopBaseURL
	}

	client, err := sdk.NewClient(ctx, sdk.Config{
		BaseURL: baseURL,
		APIKey:  params.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Traceloop client: %w", err)
	}
	e := newTraceloopExporter(sdkBackend{client: client}, params.Model, params.Logger)
	e.client = client
	return e, nil
}

func newTraceloopExporter(b backend, model string, logger *slog.Logger) *TraceloopExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &TraceloopExporter{backend: b, model: model, logger: logger}
}

func (e *TraceloopExporter) StartJob(ctx context.Context, info JobInfo) JobTrace {
	props := map[string]string{
		"job_id":         info.JobID,
		"target_account": info.TargetAccount,
		"topics":         strings.Join(info.Topics, ", "),
	}
	return &traceloopTrace{
		workflow:  e.backend.startWorkflow(ctx, "account_research", props),
		model:     e.model,
		logger:    e.logger.With(slog.String("job_id", info.JobID)),
		runs:      make(map[string]taskHandle),
		llmCalls:  make(map[string]llmHandle),
		toolCalls: make(map[string]taskHandle),
	}
}

func (e *TraceloopExporter) Shutdown(ctx context.Context) error {
	if e.client != nil {
		e.client.Shutdown(ctx)
	}
	return nil
}

type traceloopTrace struct {
	workflow workflowHandle
	model    string
	logger   *slog.Logger

	mu        sync.Mutex
	runs      map[string]taskHandle // by run ID
	llmCalls  map[string]llmHandle  // by run ID
	toolCalls map[string]taskHandle // by tool call ID
	ended     bool
}

func (t *traceloopTrace) OnAgentStart(_ context.Context, run agents.RunInfo) error {
	task := t.workflow.newTask("agent_" + run.Agent.Name)
	t.mu.Lock()
	t.runs[run.ID] = task
	t.mu.Unlock()
	return nil
}

func (t *traceloopTrace) OnAgentEnd(_ context.Context, run agents.RunInfo, _ any, _ error) error {
	t.mu.Lock()
	task, ok := t.runs[run.ID]
	delete(t.runs, run.ID)
	delete(t.llmCalls, run.ID)
	t.mu.Unlock()
	if ok {
		task.end()
	}
	return nil
}

func (t *traceloopTrace) OnLLMStart(_ context.Context, run agents.RunInfo, req agents.ModelRequest) error {
	t.mu.Lock()
	task, ok := t.runs[run.ID]
	t.mu.Unlock()
	if !ok {
		return nil
	}

	prompt := sdk.Prompt{
		Vendor:   "openai",
		Mode:     "chat",
		Model:    t.model,
		Messages: promptMessages(req),
	}
	span, err := task.logPrompt(prompt)
	if err != nil {
		t.logger.Warn("Failed to log prompt", slog.String("error", err.Error()))
		return nil
	}
	t.mu.Lock()
	t.llmCalls[run.ID] = span
	t.mu.Unlock()
	return nil
}

func (t *traceloopTrace) OnLLMEnd(ctx context.Context, run agents.RunInfo, resp agents.ModelResponse) error {
	t.mu.Lock()
	span, ok := t.llmCalls[run.ID]
	delete(t.llmCalls, run.ID)
	t.mu.Unlock()
	if !ok {
		return nil
	}

	completion := sdk.Completion{
		Model: t.model,
		Messages: []sdk.Message{{
			Index:   0,
			Content: completionContent(resp.Output),
			Role:    string(agents.RoleAssistant),
		}},
	}
	span.logCompletion(ctx, completion, sdk.Usage{
		TotalTokens:      int(resp.Usage.TotalTokens),
		PromptTokens:     int(resp.Usage.InputTokens),
		CompletionTokens: int(resp.Usage.OutputTokens),
	})
	return nil
}

func (t *traceloopTrace) OnToolStart(_ context.Context, _ agents.RunInfo, tool agents.FunctionTool, call agents.ToolCall) error {
	task := t.workflow.newTask("tool_" + tool.Name)
	t.mu.Lock()
	t.toolCalls[call.ID] = task
	t.mu.Unlock()
	return nil
}

func (t *traceloopTrace) OnToolEnd(_ context.Context, _ agents.RunInfo, _ agents.FunctionTool, call agents.ToolCall, _ string) error {
	t.mu.Lock()
	task, ok := t.toolCalls[call.ID]
	delete(t.toolCalls, call.ID)
	t.mu.Unlock()
	if ok {
		task.end()
	}
	return nil
}

func (t *traceloopTrace) End(err error) {
	t.mu.Lock()
	if t.ended {
		t.mu.Unlock()
		return
	}
	t.ended = true
	t.mu.Unlock()

	if err != nil {
		t.logger.Debug("Ending trace of failed job", slog.String("error", err.Error()))
	}
	t.workflow.end()
}

func promptMessages(req agents.ModelRequest) []sdk.Message {
	messages := make([]sdk.Message, 0, len(req.Input)+1)
	if req.SystemInstructions != "" {
		messages = append(messages, sdk.Message{Index: 0, Content: req.SystemInstructions, Role: "system"})
	}
	for _, msg := range req.Input {
		messages = append(messages, sdk.Message{
			Index:   len(messages),
			Content: completionContent(msg),
			Role:    string(msg.Role),
		})
	}
	return messages
}

// completionContent renders tool calls as text, since Traceloop messages
// only carry a string.
func completionContent(msg agents.Message) string {
	if len(msg.ToolCalls) == 0 {
		return msg.Content
	}
	var sb strings.Builder
	sb.WriteString(msg.Content)
	for _, call := range msg.ToolCalls {
		if sb.Len() > 0 {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "%s(%s)", call.Name, call.Arguments)
	}
	return sb.String()
}

// The interfaces below decouple the trace bookkeeping from the SDK types.

type backend interface {
	startWorkflow(ctx context.Context, name string, props map[string]string) workflowHandle
}

type workflowHandle interface {
	newTask(name string) taskHandle
	end()
}

type taskHandle interface {
	logPrompt(prompt sdk.Prompt) (llmHandle, error)
	end()
}

type llmHandle interface {
	logCompletion(ctx context.Context, completion sdk.Completion, usage sdk.Usage)
}

type sdkBackend struct {
	client *sdk.Traceloop
}

func (b sdkBackend) startWorkflow(ctx context.Context, name string, props map[string]string) workflowHandle {
	return sdkWorkflow{b.client.NewWorkflow(ctx, sdk.WorkflowAttributes{
		Name:                  name,
		AssociationProperties: props,
	})}
}

type sdkWorkflow struct{ w *sdk.Workflow }

func (w sdkWorkflow) newTask(name string) taskHandle { return sdkTask{w.w.NewTask(name)} }
func (w sdkWorkflow) end()                           { w.w.End() }

type sdkTask struct{ t *sdk.Task }

func (t sdkTask) logPrompt(prompt sdk.Prompt) (llmHandle, error) {
	span, err := t.t.LogPrompt(prompt)
	if err != nil {
		return nil, err
	}
	return sdkLLMSpan{&span}, nil
}

func (t sdkTask) end() { t.t.End() }

type sdkLLMSpan struct{ s *sdk.LLMSpan }

func (s sdkLLMSpan) logCompletion(ctx context.Context, completion sdk.Completion, usage sdk.Usage) {
	s.s.LogCompletion(ctx, completion, usage)
}
