// Package llm defines the provider-facing LLM client contract and the
// provider-agnostic Adapter that drives the bounded tool-calling
// conversation loop on top of it.
package llm

import (
	"context"
	"encoding/json"

	"github.com/kairos-run/orchestrator/scenario"
)

// Message is one entry in a provider chat request.
type Message struct {
	Role       string // system|user|assistant|tool
	Content    string
	Name       string
	ToolCallID string            // set on tool-role messages, echoing the call they answer
	ToolCalls  []ToolCallRequest // set on assistant messages that requested tool calls, so the adapter can replay them into the next round
}

// ToolCallRequest is one function call a provider response asked for.
type ToolCallRequest struct {
	ID        string
	Name      string
	Arguments json.RawMessage
}

// Usage reports provider-counted token usage, when available.
type Usage struct {
	InputTokens  *int
	OutputTokens *int
	TotalTokens  *int
}

// Request is one provider completion request.
type Request struct {
	Model        string
	Messages     []Message
	Temperature  float64
	TopP         float64
	MaxTokens    int
	Response     *scenario.ResponseFormat
	Functions    []scenario.ResolvedFunction
	Tools        []scenario.ResolvedFunction
	FunctionCall scenario.FunctionCallPolicy
}

// Response is one provider completion response.
type Response struct {
	ID           string
	Model        string
	Content      string
	FinishReason string
	ToolCalls    []ToolCallRequest
	Usage        Usage
}

// Client is the minimal contract a provider-specific adapter implements. It
// performs exactly one request/response exchange; Adapter owns the
// tool-calling loop and retries above it. Adapter applies no per-request
// timeout of its own; the only deadline is the one carried by ctx.
type Client interface {
	// SupportedModels lists the model identifiers this client serves.
	SupportedModels() []string
	// Complete sends req to the provider and returns its response.
	Complete(ctx context.Context, req Request) (Response, error)
}
