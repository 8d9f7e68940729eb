package anthropicadapter_test

import (
	"context"
	"encoding/json"
	"testing"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kairos-run/orchestrator/llm"
	"github.com/kairos-run/orchestrator/llm/anthropicadapter"
)

// fakeMessages implements anthropicadapter.MessagesClient, replaying one
// fixed response unmarshalled from a raw Anthropic API payload.
type fakeMessages struct {
	body     []byte
	lastReq  sdk.MessageNewParams
	captured bool
}

func (f *fakeMessages) New(_ context.Context, body sdk.MessageNewParams, _ ...option.RequestOption) (*sdk.Message, error) {
	f.lastReq = body
	f.captured = true
	var msg sdk.Message
	if err := json.Unmarshal(f.body, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

const terminalResponseJSON = `{
	"id": "msg_1",
	"model": "claude-3-5-sonnet-20241022",
	"role": "assistant",
	"stop_reason": "end_turn",
	"content": [{"type": "text", "text": "it is sunny"}],
	"usage": {"input_tokens": 12, "output_tokens": 4}
}`

const toolUseResponseJSON = `{
	"id": "msg_2",
	"model": "claude-3-5-sonnet-20241022",
	"role": "assistant",
	"stop_reason": "tool_use",
	"content": [{"type": "tool_use", "id": "call-1", "name": "lookup", "input": {"q": "weather"}}],
	"usage": {"input_tokens": 20, "output_tokens": 8}
}`

func TestCompleteTranslatesTerminalTextResponse(t *testing.T) {
	fake := &fakeMessages{body: []byte(terminalResponseJSON)}
	client, err := anthropicadapter.New(anthropicadapter.Options{
		Client:          fake,
		SupportedModels: []string{"claude-3-5-sonnet-20241022"},
	})
	require.NoError(t, err)

	resp, err := client.Complete(context.Background(), llmRequest("claude-3-5-sonnet-20241022", "what is the weather?"))
	require.NoError(t, err)
	assert.Equal(t, "it is sunny", resp.Content)
	assert.Equal(t, "end_turn", resp.FinishReason)
	require.NotNil(t, resp.Usage.InputTokens)
	assert.Equal(t, 12, *resp.Usage.InputTokens)
	assert.Equal(t, 16, *resp.Usage.TotalTokens)
}

func TestCompleteTranslatesToolUseResponse(t *testing.T) {
	fake := &fakeMessages{body: []byte(toolUseResponseJSON)}
	client, err := anthropicadapter.New(anthropicadapter.Options{
		Client:          fake,
		SupportedModels: []string{"claude-3-5-sonnet-20241022"},
	})
	require.NoError(t, err)

	resp, err := client.Complete(context.Background(), llmRequest("claude-3-5-sonnet-20241022", "weather?"))
	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "lookup", resp.ToolCalls[0].Name)
	assert.Equal(t, "call-1", resp.ToolCalls[0].ID)
	assert.JSONEq(t, `{"q":"weather"}`, string(resp.ToolCalls[0].Arguments))
}

func TestCompleteEncodesAssistantToolUseBeforeToolResult(t *testing.T) {
	fake := &fakeMessages{body: []byte(terminalResponseJSON)}
	client, err := anthropicadapter.New(anthropicadapter.Options{
		Client:          fake,
		SupportedModels: []string{"claude-3-5-sonnet-20241022"},
	})
	require.NoError(t, err)

	req := llm.Request{
		Model: "claude-3-5-sonnet-20241022",
		Messages: []llm.Message{
			{Role: "user", Content: "weather?"},
			{
				Role:    "assistant",
				Content: "looking that up",
				ToolCalls: []llm.ToolCallRequest{
					{ID: "call-1", Name: "lookup", Arguments: json.RawMessage(`{"q":"weather"}`)},
				},
			},
			{Role: "tool", Content: `{"forecast":"sunny"}`, Name: "lookup", ToolCallID: "call-1"},
		},
	}
	_, err = client.Complete(context.Background(), req)
	require.NoError(t, err)

	encoded, err := json.Marshal(fake.lastReq.Messages)
	require.NoError(t, err)
	wire := string(encoded)

	// The assistant turn must carry a tool_use block for "call-1" — without
	// it, the API rejects the following tool_result as orphaned.
	assert.Contains(t, wire, `"type":"tool_use"`)
	assert.Contains(t, wire, `"id":"call-1"`)
	assert.Contains(t, wire, `"name":"lookup"`)
	assert.Contains(t, wire, `"type":"tool_result"`)
	assert.Contains(t, wire, `"tool_use_id":"call-1"`)
}

func TestCompleteRejectsRequestWithNoMessages(t *testing.T) {
	fake := &fakeMessages{body: []byte(terminalResponseJSON)}
	client, err := anthropicadapter.New(anthropicadapter.Options{
		Client:          fake,
		SupportedModels: []string{"claude-3-5-sonnet-20241022"},
	})
	require.NoError(t, err)

	_, err = client.Complete(context.Background(), llm.Request{Model: "claude-3-5-sonnet-20241022"})
	assert.Error(t, err)
	assert.False(t, fake.captured)
}

func TestNewRejectsMissingClientOrModels(t *testing.T) {
	_, err := anthropicadapter.New(anthropicadapter.Options{SupportedModels: []string{"x"}})
	assert.Error(t, err)

	_, err = anthropicadapter.New(anthropicadapter.Options{Client: &fakeMessages{}})
	assert.Error(t, err)
}

func llmRequest(model, userContent string) llm.Request {
	return llm.Request{
		Model: model,
		Messages: []llm.Message{
			{Role: "system", Content: "be concise"},
			{Role: "user", Content: userContent},
		},
	}
}
