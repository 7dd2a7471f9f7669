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
	"log/slog"

	"github.com/nlpodyssey/account-research/usage"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/packages/param"
	"github.com/openai/openai-go/v2/shared/constant"
)

// OpenAIChatCompletionsModel implements Model on top of the OpenAI Chat
// Completions API.
type OpenAIChatCompletionsModel struct {
	Model  openai.ChatModel
	client openai.Client
}

func NewOpenAIChatCompletionsModel(model openai.ChatModel, client openai.Client) OpenAIChatCompletionsModel {
	return OpenAIChatCompletionsModel{
		Model:  model,
		client: client,
	}
}

// NewOpenAIClient creates a client for the given API key. An empty baseURL
// selects the default endpoint.
func NewOpenAIClient(apiKey, baseURL string, opts ...option.RequestOption) openai.Client {
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return openai.NewClient(opts...)
}

func (m OpenAIChatCompletionsModel) GetResponse(ctx context.Context, req ModelRequest) (*ModelResponse, error) {
	params, err := m.prepareRequest(req)
	if err != nil {
		return nil, err
	}

	response, err := m.client.Chat.Completions.New(ctx, *params)
	if err != nil {
		return nil, err
	}
	if len(response.Choices) == 0 {
		return nil, NewModelBehaviorError("model returned no choices")
	}
	message := response.Choices[0].Message

	if DontLogModelData {
		Logger().Debug("LLM responded")
	} else {
		Logger().Debug("LLM responded", slog.String("message", message.RawJSON()))
	}

	if message.Refusal != "" && message.Content == "" && len(message.ToolCalls) == 0 {
		return nil, ModelBehaviorErrorf("model refused to answer: %s", message.Refusal)
	}

	out := Message{Role: RoleAssistant, Content: message.Content}
	for _, tc := range message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	return &ModelResponse{
		Output: out,
		Usage: usage.Usage{
			Requests:     1,
			InputTokens:  uint64(response.Usage.PromptTokens),
			OutputTokens: uint64(response.Usage.CompletionTokens),
			TotalTokens:  uint64(response.Usage.TotalTokens),
		},
	}, nil
}

func (m OpenAIChatCompletionsModel) prepareRequest(req ModelRequest) (*openai.ChatCompletionNewParams, error) {
	var messages []openai.ChatCompletionMessageParamUnion
	if req.SystemInstructions != "" {
		messages = append(messages, openai.ChatCompletionMessageParamUnion{
			OfSystem: &openai.ChatCompletionSystemMessageParam{
				Content: openai.ChatCompletionSystemMessageParamContentUnion{
					OfString: param.NewOpt(req.SystemInstructions),
				},
				Role: constant.ValueOf[constant.System](),
			},
		})
	}
	for _, msg := range req.Input {
		converted, err := convertMessage(msg)
		if err != nil {
			return nil, err
		}
		messages = append(messages, converted)
	}

	// Left nil without tools: the API rejects an empty "tools" array.
	var tools []openai.ChatCompletionToolUnionParam
	for _, t := range req.Tools {
		tools = append(tools, convertTool(t))
	}

	responseFormat, err := convertResponseFormat(req.OutputType)
	if err != nil {
		return nil, err
	}

	settings := req.ModelSettings
	var (
		parallelToolCalls param.Opt[bool]
		toolChoice        openai.ChatCompletionToolChoiceOptionUnionParam
	)
	if len(tools) > 0 {
		parallelToolCalls = settings.ParallelToolCalls
		toolChoice = convertToolChoice(settings.ToolChoice)
	}

	if DontLogModelData {
		Logger().Debug("Calling LLM")
	} else {
		b, _ := json.Marshal(messages)
		Logger().Debug("Calling LLM", slog.String("model", string(m.Model)), slog.String("messages", string(b)))
	}

	return &openai.ChatCompletionNewParams{
		Model:             m.Model,
		Messages:          messages,
		Tools:             tools,
		Temperature:       settings.Temperature,
		TopP:              settings.TopP,
		MaxTokens:         settings.MaxTokens,
		ToolChoice:        toolChoice,
		ResponseFormat:    responseFormat,
		ParallelToolCalls: parallelToolCalls,
	}, nil
}

func convertMessage(msg Message) (openai.ChatCompletionMessageParamUnion, error) {
	switch msg.Role {
	case RoleUser:
		return openai.ChatCompletionMessageParamUnion{
			OfUser: &openai.ChatCompletionUserMessageParam{
				Content: openai.ChatCompletionUserMessageParamContentUnion{
					OfString: param.NewOpt(msg.Content),
				},
				Role: constant.ValueOf[constant.User](),
			},
		}, nil
	case RoleAssistant:
		assistant := &openai.ChatCompletionAssistantMessageParam{
			Role: constant.ValueOf[constant.Assistant](),
		}
		if msg.Content != "" {
			assistant.Content = openai.ChatCompletionAssistantMessageParamContentUnion{
				OfString: param.NewOpt(msg.Content),
			}
		}
		for _, tc := range msg.ToolCalls {
			assistant.ToolCalls = append(assistant.ToolCalls, openai.ChatCompletionMessageToolCallUnionParam{
				OfFunction: &openai.ChatCompletionMessageFunctionToolCallParam{
					ID: tc.ID,
					Function: openai.ChatCompletionMessageFunctionToolCallFunctionParam{
						Name:      tc.Name,
						Arguments: tc.Arguments,
					},
					Type: constant.ValueOf[constant.Function](),
				},
			})
		}
		return openai.ChatCompletionMessageParamUnion{OfAssistant: assistant}, nil
	case RoleTool:
		return openai.ChatCompletionMessageParamUnion{
			OfTool: &openai.ChatCompletionToolMessageParam{
				Content: openai.ChatCompletionToolMessageParamContentUnion{
					OfString: param.NewOpt(msg.Content),
				},
				ToolCallID: msg.ToolCallID,
				Role:       constant.ValueOf[constant.Tool](),
			},
		}, nil
	default:
		return openai.ChatCompletionMessageParamUnion{}, UserErrorf("unexpected message role %q", msg.Role)
	}
}

func convertTool(t FunctionTool) openai.ChatCompletionToolUnionParam {
	var description param.Opt[string]
	if t.Description != "" {
		description = param.NewOpt(t.Description)
	}
	return openai.ChatCompletionFunctionTool(
		openai.FunctionDefinitionParam{
			Name:        t.Name,
			Description: description,
			Parameters:  t.ParamsJSONSchema,
			Strict:      param.NewOpt(t.isStrict()),
		},
	)
}

func convertToolChoice(toolChoice string) openai.ChatCompletionToolChoiceOptionUnionParam {
	switch toolChoice {
	case "":
		return openai.ChatCompletionToolChoiceOptionUnionParam{}
	case "auto", "required", "none":
		return openai.ChatCompletionToolChoiceOptionUnionParam{
			OfAuto: param.NewOpt(toolChoice),
		}
	default:
		return openai.ChatCompletionToolChoiceOptionUnionParam{
			OfFunctionToolChoice: &openai.ChatCompletionNamedToolChoiceParam{
				Function: openai.ChatCompletionNamedToolChoiceFunctionParam{
					Name: toolChoice,
				},
				Type: constant.ValueOf[constant.Function](),
			},
		}
	}
}

func convertResponseFormat(outputType OutputTypeInterface) (openai.ChatCompletionNewParamsResponseFormatUnion, error) {
	if outputType == nil || outputType.IsPlainText() {
		return openai.ChatCompletionNewParamsResponseFormatUnion{}, nil
	}
	schema, err := outputType.JSONSchema()
	if err != nil {
		return openai.ChatCompletionNewParamsResponseFormatUnion{}, err
	}
	return openai.ChatCompletionNewParamsResponseFormatUnion{
		OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
			JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
				Name:   "final_output",
				Strict: param.NewOpt(outputType.IsStrictJSONSchema()),
				Schema: schema,
			},
			Type: constant.ValueOf[constant.JSONSchema](),
		},
	}, nil
}
