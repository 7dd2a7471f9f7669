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
	"testing"

	"github.com/nlpodyssey/account-research/agents"
	"github.com/nlpodyssey/account-research/agentstesting"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type searchArgs struct {
	Query      string `json:"query" jsonschema:"description=The search query"`
	NumResults int    `json:"num_results"`
}

type searchHit struct {
	URL string `json:"url"`
}

func TestNewFunctionToolSchema(t *testing.T) {
	tool := agents.NewFunctionTool("search", "Search the web",
		func(context.Context, searchArgs) ([]searchHit, error) { return nil, nil })

	assert.Equal(t, "search", tool.Name)
	assert.Equal(t, "Search the web", tool.Description)
	assert.True(t, tool.StrictJSONSchema.Value)

	schema := tool.ParamsJSONSchema
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, false, schema["additionalProperties"])
	assert.Equal(t, []string{"num_results", "query"}, schema["required"])
	assert.NotContains(t, schema, "$schema")
	assert.NotContains(t, schema, "$id")

	query := schema["properties"].(map[string]any)["query"].(map[string]any)
	assert.Equal(t, "string", query["type"])
	assert.Equal(t, "The search query", query["description"])
}

func TestFunctionToolInvocation(t *testing.T) {
	var got searchArgs
	tool := agents.NewFunctionTool("search", "",
		func(_ context.Context, args searchArgs) ([]searchHit, error) {
			got = args
			return []searchHit{{URL: "https://example.com"}}, nil
		})

	model := agentstesting.NewFakeModel(
		agentstesting.FakeModelTurnOutput{Value: agentstesting.GetToolCallsMessage(
			agentstesting.GetFunctionToolCall("search", `{"query": "acme", "num_results": 2}`),
		)},
		agentstesting.FakeModelTurnOutput{Value: agentstesting.GetTextMessage("done")},
	)
	result, err := agents.Run(t.Context(), agents.New("test").WithModel(model).WithTools(tool), "go")
	require.NoError(t, err)

	assert.Equal(t, searchArgs{Query: "acme", NumResults: 2}, got)
	assert.Equal(t, `[{"url":"https://example.com"}]`, result.NewItems[1].Content)
}

func TestFunctionToolInvalidArguments(t *testing.T) {
	called := false
	tool := agents.NewFunctionTool("search", "",
		func(context.Context, searchArgs) (string, error) {
			called = true
			return "", nil
		})

	model := agentstesting.NewFakeModel(
		agentstesting.FakeModelTurnOutput{Value: agentstesting.GetToolCallsMessage(
			agentstesting.GetFunctionToolCall("search", `{"query": `),
		)},
		agentstesting.FakeModelTurnOutput{Value: agentstesting.GetTextMessage("done")},
	)
	result, err := agents.Run(t.Context(), agents.New("test").WithModel(model).WithTools(tool), "go")
	require.NoError(t, err)
	assert.False(t, called)
	assert.Contains(t, result.NewItems[1].Content, "invalid JSON input for tool search")
}

func TestCustomFailureErrorFunction(t *testing.T) {
	tool := agentstesting.GetFunctionToolErr("broken", errors.New("boom"))
	tool.FailureErrorFunction = func(_ context.Context, err error) string {
		return "custom: " + err.Error()
	}

	model := agentstesting.NewFakeModel(
		agentstesting.FakeModelTurnOutput{Value: agentstesting.GetToolCallsMessage(
			agentstesting.GetFunctionToolCall("broken", "{}"),
		)},
		agentstesting.FakeModelTurnOutput{Value: agentstesting.GetTextMessage("done")},
	)
	result, err := agents.Run(t.Context(), agents.New("test").WithModel(model).WithTools(tool), "go")
	require.NoError(t, err)
	assert.Equal(t, "custom: boom", result.NewItems[1].Content)
}

func TestAgentClone(t *testing.T) {
	original := agents.New("a").WithTools(agentstesting.GetFunctionTool("foo", "x"))
	clone := original.Clone().AddTool(agentstesting.GetFunctionTool("bar", "y"))

	assert.Len(t, original.Tools, 1)
	assert.Len(t, clone.Tools, 2)
	assert.Equal(t, "a", clone.Name)
}
