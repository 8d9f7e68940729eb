// Package openaiadapter implements llm.Client against the OpenAI Chat
// Completions API via github.com/sashabaranov/go-openai, grounded on
// features/model/openai/client.go.
package openaiadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kairos-run/orchestrator/llm"
	"github.com/kairos-run/orchestrator/scenario"
)

// ChatClient captures the subset of the go-openai client this adapter uses,
// so tests can substitute a fake.
type ChatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// Options configures the OpenAI adapter.
type Options struct {
	Client           ChatClient
	SupportedModels  []string
}

// Client implements llm.Client via the OpenAI Chat Completions API.
type Client struct {
	chat   ChatClient
	models []string
}

var _ llm.Client = (*Client)(nil)

// New builds an OpenAI-backed llm.Client.
func New(opts Options) (*Client, error) {
	if opts.Client == nil {
		return nil, errors.New("openai client is required")
	}
	if len(opts.SupportedModels) == 0 {
		return nil, errors.New("at least one supported model is required")
	}
	return &Client{chat: opts.Client, models: opts.SupportedModels}, nil
}

// NewFromAPIKey constructs a client using the default go-openai HTTP client.
func NewFromAPIKey(apiKey string, supportedModels []string) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("api key is required")
	}
	return New(Options{Client: openai.NewClient(apiKey), SupportedModels: supportedModels})
}

// SupportedModels implements llm.Client.
func (c *Client) SupportedModels() []string { return c.models }

// Complete implements llm.Client.
func (c *Client) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	messages := make([]openai.ChatCompletionMessage, len(req.Messages))
	for i, m := range req.Messages {
		messages[i] = openai.ChatCompletionMessage{
			Role:       m.Role,
			Content:    m.Content,
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
			ToolCalls:  encodeToolCalls(m.ToolCalls),
		}
	}

	tools, err := encodeTools(req.Tools)
	if err != nil {
		return llm.Response{}, err
	}

	request := openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		Temperature: float32(req.Temperature),
		TopP:        float32(req.TopP),
		MaxTokens:   req.MaxTokens,
		Tools:       tools,
	}
	if rf := encodeResponseFormat(req.Response); rf != nil {
		request.ResponseFormat = rf
	}
	if tc := encodeToolChoice(req.FunctionCall); tc != nil {
		request.ToolChoice = tc
	}

	resp, err := c.chat.CreateChatCompletion(ctx, request)
	if err != nil {
		return llm.Response{}, fmt.Errorf("openai chat completion: %w", err)
	}
	return translateResponse(resp), nil
}

func encodeTools(defs []scenario.ResolvedFunction) ([]openai.Tool, error) {
	if len(defs) == 0 {
		return nil, nil
	}
	tools := make([]openai.Tool, 0, len(defs))
	for _, def := range defs {
		var params json.RawMessage
		if def.Parameters != "" {
			params = json.RawMessage(def.Parameters)
		} else {
			params = json.RawMessage(`{}`)
		}
		tools = append(tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        def.Name,
				Description: def.Description,
				Parameters:  params,
			},
		})
	}
	return tools, nil
}

// encodeToolCalls re-encodes the assistant-requested tool calls an Adapter
// replays into the next request's assistant message, so the provider sees
// the tool_use block its own tool_result messages are answering.
func encodeToolCalls(calls []llm.ToolCallRequest) []openai.ToolCall {
	if len(calls) == 0 {
		return nil
	}
	out := make([]openai.ToolCall, 0, len(calls))
	for _, call := range calls {
		out = append(out, openai.ToolCall{
			ID:   call.ID,
			Type: openai.ToolTypeFunction,
			Function: openai.FunctionCall{
				Name:      call.Name,
				Arguments: string(call.Arguments),
			},
		})
	}
	return out
}

func encodeResponseFormat(rf *scenario.ResponseFormat) *openai.ChatCompletionResponseFormat {
	if rf == nil {
		return nil
	}
	switch rf.Type {
	case scenario.ResponseFormatJsonObject:
		return &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	case scenario.ResponseFormatJsonSchema:
		var schema json.RawMessage
		if rf.Schema != "" {
			schema = json.RawMessage(rf.Schema)
		}
		return &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONSchema,
			JSONSchema: &openai.ChatCompletionResponseFormatJSONSchema{
				Name:   "response",
				Schema: schema,
				Strict: true,
			},
		}
	default:
		return nil
	}
}

func encodeToolChoice(policy scenario.FunctionCallPolicy) any {
	switch policy.Mode {
	case scenario.FunctionCallNone:
		return "none"
	case scenario.FunctionCallSpecific:
		return openai.ToolChoice{Type: openai.ToolTypeFunction, Function: openai.ToolFunction{Name: policy.Name}}
	default:
		return nil
	}
}

func translateResponse(resp openai.ChatCompletionResponse) llm.Response {
	var content string
	var toolCalls []llm.ToolCallRequest
	var finishReason string
	if len(resp.Choices) > 0 {
		choice := resp.Choices[0]
		content = choice.Message.Content
		finishReason = string(choice.FinishReason)
		for _, call := range choice.Message.ToolCalls {
			toolCalls = append(toolCalls, llm.ToolCallRequest{
				ID:        call.ID,
				Name:      call.Function.Name,
				Arguments: json.RawMessage(call.Function.Arguments),
			})
		}
	}
	input, output, total := resp.Usage.PromptTokens, resp.Usage.CompletionTokens, resp.Usage.TotalTokens
	return llm.Response{
		ID:           resp.ID,
		Model:        resp.Model,
		Content:      content,
		FinishReason: finishReason,
		ToolCalls:    toolCalls,
		Usage: llm.Usage{
			InputTokens:  &input,
			OutputTokens: &output,
			TotalTokens:  &total,
		},
	}
}
