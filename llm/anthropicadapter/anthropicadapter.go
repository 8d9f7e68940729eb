// Package anthropicadapter implements llm.Client against the Anthropic
// Claude Messages API via github.com/anthropics/anthropic-sdk-go, grounded
// on features/model/anthropic/client.go.
package anthropicadapter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/kairos-run/orchestrator/llm"
	"github.com/kairos-run/orchestrator/scenario"
)

// MessagesClient captures the subset of the Anthropic SDK client this
// adapter uses, so tests can substitute a fake.
type MessagesClient interface {
	New(ctx context.Context, body sdk.MessageNewParams, opts ...option.RequestOption) (*sdk.Message, error)
}

// Options configures the Anthropic adapter.
type Options struct {
	Client          MessagesClient
	SupportedModels []string
	MaxTokens       int
}

// Client implements llm.Client via the Anthropic Messages API.
type Client struct {
	msg       MessagesClient
	models    []string
	maxTokens int
}

var _ llm.Client = (*Client)(nil)

// New builds an Anthropic-backed llm.Client.
func New(opts Options) (*Client, error) {
	if opts.Client == nil {
		return nil, errors.New("anthropic client is required")
	}
	if len(opts.SupportedModels) == 0 {
		return nil, errors.New("at least one supported model is required")
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}
	return &Client{msg: opts.Client, models: opts.SupportedModels, maxTokens: maxTokens}, nil
}

// NewFromAPIKey constructs a client using the default Anthropic HTTP client.
func NewFromAPIKey(apiKey string, supportedModels []string) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("api key is required")
	}
	ac := sdk.NewClient(option.WithAPIKey(apiKey))
	return New(Options{Client: &ac.Messages, SupportedModels: supportedModels})
}

// SupportedModels implements llm.Client.
func (c *Client) SupportedModels() []string { return c.models }

// Complete implements llm.Client.
func (c *Client) Complete(ctx context.Context, req llm.Request) (llm.Response, error) {
	params, err := c.prepareRequest(req)
	if err != nil {
		return llm.Response{}, err
	}
	msg, err := c.msg.New(ctx, *params)
	if err != nil {
		return llm.Response{}, fmt.Errorf("anthropic messages.new: %w", err)
	}
	return translateResponse(msg), nil
}

func (c *Client) prepareRequest(req llm.Request) (*sdk.MessageNewParams, error) {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}

	var system []sdk.TextBlockParam
	var conversation []sdk.MessageParam
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			if m.Content != "" {
				system = append(system, sdk.TextBlockParam{Text: m.Content})
			}
		case "user":
			conversation = append(conversation, sdk.NewUserMessage(sdk.NewTextBlock(m.Content)))
		case "assistant":
			conversation = append(conversation, sdk.NewAssistantMessage(encodeAssistantBlocks(m)...))
		case "tool":
			conversation = append(conversation, sdk.NewUserMessage(sdk.NewToolResultBlock(m.ToolCallID, m.Content, false)))
		default:
			return nil, fmt.Errorf("anthropic: unsupported message role %q", m.Role)
		}
	}
	if len(conversation) == 0 {
		return nil, errors.New("anthropic: at least one user/assistant message is required")
	}

	params := sdk.MessageNewParams{
		MaxTokens: int64(maxTokens),
		Messages:  conversation,
		Model:     sdk.Model(req.Model),
	}
	if len(system) > 0 {
		params.System = system
	}
	if req.Temperature > 0 {
		params.Temperature = sdk.Float(req.Temperature)
	}
	if tools := encodeTools(req.Tools); len(tools) > 0 {
		params.Tools = tools
	}
	return &params, nil
}

// encodeAssistantBlocks rebuilds an assistant turn's content blocks,
// including a tool_use block per replayed tool call, so a later tool-role
// message's tool_result block answers a tool_use block the API actually
// saw in this conversation (the API rejects an orphaned tool_result).
func encodeAssistantBlocks(m llm.Message) []sdk.ContentBlockParamUnion {
	blocks := make([]sdk.ContentBlockParamUnion, 0, 1+len(m.ToolCalls))
	if m.Content != "" {
		blocks = append(blocks, sdk.NewTextBlock(m.Content))
	}
	for _, call := range m.ToolCalls {
		var input any
		if len(call.Arguments) > 0 {
			_ = json.Unmarshal(call.Arguments, &input)
		}
		blocks = append(blocks, sdk.NewToolUseBlock(call.ID, input, call.Name))
	}
	return blocks
}

func encodeTools(defs []scenario.ResolvedFunction) []sdk.ToolUnionParam {
	if len(defs) == 0 {
		return nil
	}
	tools := make([]sdk.ToolUnionParam, 0, len(defs))
	for _, def := range defs {
		var schema any
		if def.Parameters != "" {
			var decoded map[string]any
			if err := json.Unmarshal([]byte(def.Parameters), &decoded); err == nil {
				schema = decoded
			}
		}
		tools = append(tools, sdk.ToolUnionParam{
			OfTool: &sdk.ToolParam{
				Name:        def.Name,
				Description: sdk.String(def.Description),
				InputSchema: sdk.ToolInputSchemaParam{Properties: schema},
			},
		})
	}
	return tools
}

func translateResponse(msg *sdk.Message) llm.Response {
	var content string
	var toolCalls []llm.ToolCallRequest
	for _, block := range msg.Content {
		switch variant := block.AsAny().(type) {
		case sdk.TextBlock:
			content += variant.Text
		case sdk.ToolUseBlock:
			args, _ := json.Marshal(variant.Input)
			toolCalls = append(toolCalls, llm.ToolCallRequest{
				ID:        variant.ID,
				Name:      variant.Name,
				Arguments: args,
			})
		}
	}
	input := int(msg.Usage.InputTokens)
	output := int(msg.Usage.OutputTokens)
	total := input + output
	return llm.Response{
		ID:           msg.ID,
		Model:        string(msg.Model),
		Content:      content,
		FinishReason: string(msg.StopReason),
		ToolCalls:    toolCalls,
		Usage: llm.Usage{
			InputTokens:  &input,
			OutputTokens: &output,
			TotalTokens:  &total,
		},
	}
}
