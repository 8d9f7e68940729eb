package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kairos-run/orchestrator/functionregistry"
	"github.com/kairos-run/orchestrator/orcherr"
	"github.com/kairos-run/orchestrator/scenario"
	"github.com/kairos-run/orchestrator/schema"
	"github.com/kairos-run/orchestrator/telemetry"
)

const (
	defaultMaxTokens     = 4096
	defaultTemperature   = 1.0
	defaultTopP          = 1.0
	defaultMaxToolRounds = 8
	defaultMaxRetries    = 5
)

// AdapterConfig configures an Adapter's bounded tool-calling loop and retry
// policy. Model-specific client configuration (the provider client and its
// supported models) lives in each provider package's own Options. No
// request timeout is configured here.
type AdapterConfig struct {
	// MaxToolRounds caps the number of model<->tool round trips per
	// CompleteAsync call. Exceeding it fails the call with ProviderError.
	// Defaults to 8 when zero.
	MaxToolRounds int
	// MaxRetries bounds provider-transport retries. Defaults to 5 when zero;
	// capped at 5 regardless of a larger configured value.
	MaxRetries int
	// AllowParallelToolCalls lets tool calls within one response execute
	// concurrently via errgroup.Group. When false, they run serially in
	// response order.
	AllowParallelToolCalls bool
}

// Adapter multiplexes CompleteAsync across one Client per supported model
// and runs the shared, provider-agnostic tool-calling conversation loop.
type Adapter struct {
	clients   map[string]Client
	functions *functionregistry.Registry
	logger    telemetry.Logger
	cfg       AdapterConfig
}

// NewAdapter builds an Adapter over the given clients, indexed by every
// model each client reports supporting. functions resolves tool calls the
// model requests during the conversation loop.
func NewAdapter(clients []Client, functions *functionregistry.Registry, logger telemetry.Logger, cfg AdapterConfig) *Adapter {
	if cfg.MaxToolRounds <= 0 {
		cfg.MaxToolRounds = defaultMaxToolRounds
	}
	if cfg.MaxRetries <= 0 || cfg.MaxRetries > defaultMaxRetries {
		cfg.MaxRetries = defaultMaxRetries
	}
	if logger == nil {
		logger = telemetry.NoopLogger{}
	}
	byModel := make(map[string]Client)
	for _, c := range clients {
		for _, m := range c.SupportedModels() {
			byModel[m] = c
		}
	}
	return &Adapter{clients: byModel, functions: functions, logger: logger, cfg: cfg}
}

// CompleteAsync runs the bounded tool-calling conversation loop for one
// stage turn and returns its CompletionResult. systemPrompt may be empty.
// When AllowParallelToolCalls is set, the tool-call audits in the result's
// metadata are appended in completion order, not in the order the provider
// requested the calls.
func (a *Adapter) CompleteAsync(ctx context.Context, sessionID string, stage scenario.RuntimeStage, turn scenario.PromptTurn, model, systemPrompt string) (scenario.CompletionResult, error) {
	if turn.Role != scenario.RoleUser {
		return scenario.CompletionResult{}, orcherr.Newf(orcherr.InvalidInput, "turn role must be user, got %q", turn.Role)
	}
	client, ok := a.clients[model]
	if !ok {
		return scenario.CompletionResult{}, orcherr.Newf(orcherr.ProviderError, "no client configured for model %q", model)
	}

	messages := buildInitialMessages(systemPrompt, turn)
	req := buildRequest(model, messages, turn.Parameters)
	schemas := toolSchemas(turn.Parameters)

	var auditAll []scenario.ToolCallAudit
	for round := 0; ; round++ {
		if round >= a.cfg.MaxToolRounds {
			return scenario.CompletionResult{}, orcherr.Newf(orcherr.ProviderError,
				"tool-call loop exceeded %d rounds", a.cfg.MaxToolRounds).WithSession(sessionID)
		}

		resp, err := a.completeWithRetry(ctx, client, req)
		if err != nil {
			return scenario.CompletionResult{}, err
		}

		if len(resp.ToolCalls) == 0 {
			return scenario.CompletionResult{
				SessionID:    sessionID,
				SystemPrompt: systemPrompt,
				UserPrompt:   turn,
				Content:      resp.Content,
				Metadata: scenario.CompletionMetadata{
					ID:           resp.ID,
					Model:        resp.Model,
					FinishReason: resp.FinishReason,
					ToolCalls:    auditAll,
					InputTokens:  resp.Usage.InputTokens,
					OutputTokens: resp.Usage.OutputTokens,
					TotalTokens:  resp.Usage.TotalTokens,
				},
			}, nil
		}

		audits, toolMessages, err := a.runToolCalls(ctx, resp.ToolCalls, schemas)
		if err != nil {
			return scenario.CompletionResult{}, err
		}
		auditAll = append(auditAll, audits...)

		req.Messages = append(req.Messages, Message{Role: "assistant", Content: resp.Content, ToolCalls: resp.ToolCalls})
		req.Messages = append(req.Messages, toolMessages...)
	}
}

// runToolCalls invokes every requested tool call, in parallel when
// configured, and returns audit entries appended in completion order (per
// design decision 9.2) alongside the tool-role reply messages.
func (a *Adapter) runToolCalls(ctx context.Context, calls []ToolCallRequest, schemas map[string]string) ([]scenario.ToolCallAudit, []Message, error) {
	if !a.cfg.AllowParallelToolCalls {
		audits := make([]scenario.ToolCallAudit, 0, len(calls))
		messages := make([]Message, 0, len(calls))
		for _, call := range calls {
			audit, msg, err := a.invokeToolCall(ctx, call, schemas)
			if err != nil {
				return nil, nil, err
			}
			audits = append(audits, audit)
			messages = append(messages, msg)
		}
		return audits, messages, nil
	}

	type outcome struct {
		audit scenario.ToolCallAudit
		msg   Message
	}
	results := make(chan outcome, len(calls))
	g, gctx := errgroup.WithContext(ctx)
	for _, call := range calls {
		call := call
		g.Go(func() error {
			audit, msg, err := a.invokeToolCall(gctx, call, schemas)
			if err != nil {
				return err
			}
			results <- outcome{audit: audit, msg: msg}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	close(results)

	audits := make([]scenario.ToolCallAudit, 0, len(calls))
	messages := make([]Message, 0, len(calls))
	for o := range results {
		audits = append(audits, o.audit)
		messages = append(messages, o.msg)
	}
	return audits, messages, nil
}

// toolSchemas indexes a turn's function/tool definitions by name so
// invokeToolCall can validate a requested call's arguments against the
// schema the scenario actually registered for it (§4.6: all function
// schemas are strict).
func toolSchemas(params scenario.TurnParameters) map[string]string {
	schemas := make(map[string]string, len(params.Functions)+len(params.Tools))
	for _, fn := range params.Functions {
		schemas[fn.Name] = fn.Parameters
	}
	for _, fn := range params.Tools {
		schemas[fn.Name] = fn.Parameters
	}
	return schemas
}

func (a *Adapter) invokeToolCall(ctx context.Context, call ToolCallRequest, schemas map[string]string) (scenario.ToolCallAudit, Message, error) {
	fn, err := a.functions.Get(call.Name)
	if err != nil {
		return scenario.ToolCallAudit{}, Message{}, err
	}
	if schemaDoc, ok := schemas[call.Name]; ok && schemaDoc != "" && schemaDoc != "{}" {
		if err := schema.ValidateJSON([]byte(schemaDoc), call.Arguments); err != nil {
			return scenario.ToolCallAudit{}, Message{}, orcherr.New(orcherr.InvalidInput, fmt.Errorf("tool %q: arguments failed schema validation: %w", call.Name, err))
		}
	}
	result, err := fn(ctx, call.Arguments)
	if err != nil {
		return scenario.ToolCallAudit{}, Message{}, orcherr.New(orcherr.ProviderError, fmt.Errorf("tool %q: %w", call.Name, err))
	}
	id := call.ID
	if id == "" {
		id = uuid.NewString()
	}
	audit := scenario.ToolCallAudit{ID: id, FunctionName: call.Name, Arguments: call.Arguments, Result: result}
	msg := Message{Role: "tool", Content: string(result), Name: call.Name, ToolCallID: id}
	return audit, msg, nil
}

// completeWithRetry retries provider-transport errors up to MaxRetries times
// with linear backoff, respecting ctx cancellation between attempts.
func (a *Adapter) completeWithRetry(ctx context.Context, client Client, req Request) (Response, error) {
	var lastErr error
	for attempt := 0; attempt <= a.cfg.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return Response{}, orcherr.New(orcherr.Cancelled, err)
		}
		resp, err := client.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		a.logger.Warn(ctx, "llm provider call failed, retrying", "attempt", attempt, "error", err.Error())
		if attempt < a.cfg.MaxRetries {
			select {
			case <-ctx.Done():
				return Response{}, orcherr.New(orcherr.Cancelled, ctx.Err())
			case <-time.After(time.Duration(attempt+1) * 50 * time.Millisecond):
			}
		}
	}
	return Response{}, orcherr.New(orcherr.ProviderError, lastErr)
}

func buildInitialMessages(systemPrompt string, turn scenario.PromptTurn) []Message {
	var messages []Message
	if systemPrompt != "" {
		messages = append(messages, Message{Role: "system", Content: systemPrompt})
	}
	messages = append(messages, Message{Role: "user", Content: turn.Content, Name: turn.Name})
	return messages
}

func buildRequest(model string, messages []Message, params scenario.TurnParameters) Request {
	req := Request{
		Model:        model,
		Messages:     messages,
		Temperature:  defaultTemperature,
		TopP:         defaultTopP,
		MaxTokens:    defaultMaxTokens,
		Functions:    params.Functions,
		Tools:        params.Tools,
		FunctionCall: params.FunctionCall,
		Response:     params.ResponseFormat,
	}
	if params.Temperature != nil {
		req.Temperature = *params.Temperature
	}
	if params.TopP != nil {
		req.TopP = *params.TopP
	}
	if params.MaxTokens != nil {
		req.MaxTokens = *params.MaxTokens
	}
	return req
}
