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
	"errors"
)

// RunInfo identifies a single Runner.Run invocation. Concurrent runs of the
// same agent get distinct IDs.
type RunInfo struct {
	ID    string
	Agent *Agent
}

// RunHooks is implemented by an object that receives callbacks on various
// lifecycle events in an agent run.
// A non-nil error returned by any hook aborts the run.
type RunHooks interface {
	// OnAgentStart is called before the agent is invoked.
	OnAgentStart(ctx context.Context, run RunInfo) error

	// OnAgentEnd is called once the run is over, with either the final
	// output or the error that stopped it.
	OnAgentEnd(ctx context.Context, run RunInfo, output any, err error) error

	// OnLLMStart is called just before invoking the model.
	OnLLMStart(ctx context.Context, run RunInfo, req ModelRequest) error

	// OnLLMEnd is called immediately after the model returns.
	OnLLMEnd(ctx context.Context, run RunInfo, resp ModelResponse) error

	// OnToolStart is called before a tool is invoked.
	OnToolStart(ctx context.Context, run RunInfo, tool FunctionTool, call ToolCall) error

	// OnToolEnd is called after a tool is invoked.
	OnToolEnd(ctx context.Context, run RunInfo, tool FunctionTool, call ToolCall, output string) error
}

type NoOpRunHooks struct{}

func (NoOpRunHooks) OnAgentStart(context.Context, RunInfo) error {
	return nil
}
func (NoOpRunHooks) OnAgentEnd(context.Context, RunInfo, any, error) error {
	return nil
}
func (NoOpRunHooks) OnLLMStart(context.Context, RunInfo, ModelRequest) error {
	return nil
}
func (NoOpRunHooks) OnLLMEnd(context.Context, RunInfo, ModelResponse) error {
	return nil
}
func (NoOpRunHooks) OnToolStart(context.Context, RunInfo, FunctionTool, ToolCall) error {
	return nil
}
func (NoOpRunHooks) OnToolEnd(context.Context, RunInfo, FunctionTool, ToolCall, string) error {
	return nil
}

// MultiRunHooks fans every callback out to each hook in order.
// All hooks are called; their errors are joined.
type MultiRunHooks []RunHooks

func (m MultiRunHooks) each(fn func(RunHooks) error) error {
	var errs []error
	for _, h := range m {
		if h == nil {
			continue
		}
		if err := fn(h); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m MultiRunHooks) OnAgentStart(ctx context.Context, run RunInfo) error {
	return m.each(func(h RunHooks) error { return h.OnAgentStart(ctx, run) })
}

func (m MultiRunHooks) OnAgentEnd(ctx context.Context, run RunInfo, output any, err error) error {
	return m.each(func(h RunHooks) error { return h.OnAgentEnd(ctx, run, output, err) })
}

func (m MultiRunHooks) OnLLMStart(ctx context.Context, run RunInfo, req ModelRequest) error {
	return m.each(func(h RunHooks) error { return h.OnLLMStart(ctx, run, req) })
}

func (m MultiRunHooks) OnLLMEnd(ctx context.Context, run RunInfo, resp ModelResponse) error {
	return m.each(func(h RunHooks) error { return h.OnLLMEnd(ctx, run, resp) })
}

func (m MultiRunHooks) OnToolStart(ctx context.Context, run RunInfo, tool FunctionTool, call ToolCall) error {
	return m.each(func(h RunHooks) error { return h.OnToolStart(ctx, run, tool, call) })
}

func (m MultiRunHooks) OnToolEnd(ctx context.Context, run RunInfo, tool FunctionTool, call ToolCall, output string) error {
	return m.each(func(h RunHooks) error { return h.OnToolEnd(ctx, run, tool, call, output) })
}
