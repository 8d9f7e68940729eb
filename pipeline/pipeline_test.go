package pipeline_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kairos-run/orchestrator/contextstore/memstore"
	"github.com/kairos-run/orchestrator/functionregistry"
	"github.com/kairos-run/orchestrator/llm"
	"github.com/kairos-run/orchestrator/orcherr"
	"github.com/kairos-run/orchestrator/pipeline"
	"github.com/kairos-run/orchestrator/router"
	"github.com/kairos-run/orchestrator/scenario"
	"github.com/kairos-run/orchestrator/telemetry"
)

type scriptedClient struct {
	models    []string
	responses []llm.Response
	calls     int
}

func (c *scriptedClient) SupportedModels() []string { return c.models }

func (c *scriptedClient) Complete(_ context.Context, _ llm.Request) (llm.Response, error) {
	resp := c.responses[c.calls]
	c.calls++
	return resp, nil
}

func buildPipeline(client llm.Client) (*pipeline.Pipeline, *memstore.Store) {
	store := memstore.New(memstore.Options{})
	adapter := llm.NewAdapter([]llm.Client{client}, functionregistry.New(), telemetry.NoopLogger{}, llm.AdapterConfig{})
	p := pipeline.Standard(router.Default{}, adapter, store, telemetry.NoopLogger{}, telemetry.NoopMetrics{})
	return p, store
}

func TestPipelineRunPersistsInputAndOutputKeys(t *testing.T) {
	client := &scriptedClient{
		models:    []string{"gpt-4o"},
		responses: []llm.Response{{Content: "hi", ID: "r1", Model: "gpt-4o", FinishReason: "stop"}},
	}
	p, store := buildPipeline(client)

	stage := scenario.RuntimeStage{
		ID:    1,
		Model: "gpt-4o",
		Turns: []scenario.PromptTurn{
			{Role: scenario.RoleUser, Content: "Hello {{sessionId}}", Name: "user-0"},
		},
	}
	execCtx := &pipeline.StageExecutionContext{SessionID: "sid-1", Scenario: "echo", Stage: stage}

	err := p.Run(context.Background(), execCtx)
	require.NoError(t, err)
	require.Len(t, execCtx.Results, 1)
	assert.Equal(t, "hi", execCtx.Results[0].Content)
	assert.Equal(t, "Hello sid-1", execCtx.Results[0].UserPrompt.Content)

	output, ok, err := store.LoadItemString(context.Background(), "sid-1", "stage:1-1:output")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "hi", output)

	userPrompt, ok, err := store.LoadItemString(context.Background(), "sid-1", "stage:1-1:input:user_prompt")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Hello sid-1", userPrompt)

	model, ok, err := store.LoadItemString(context.Background(), "sid-1", "stage:1-1:metadata:output_model")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "gpt-4o", model)
}

func TestPipelineRunPersistsExecutionMetadataAsInputParams(t *testing.T) {
	client := &scriptedClient{
		models:    []string{"gpt-4o"},
		responses: []llm.Response{{Content: "hi", ID: "r1", Model: "gpt-4o"}},
	}
	p, store := buildPipeline(client)

	stage := scenario.RuntimeStage{
		ID:    1,
		Model: "gpt-4o",
		Turns: []scenario.PromptTurn{
			{Role: scenario.RoleUser, Content: "hello", Name: "user-0"},
		},
	}
	execCtx := &pipeline.StageExecutionContext{
		SessionID: "sid-1",
		Scenario:  "echo",
		Stage:     stage,
		Metadata:  map[string]any{"requestedBy": "cli"},
	}

	require.NoError(t, p.Run(context.Background(), execCtx))

	requestedBy, ok, err := store.LoadItemString(context.Background(), "sid-1", "stage:1-1:input:params:requestedBy")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "cli", requestedBy)
}

func TestPipelineFailsOnUnresolvedParameterMarker(t *testing.T) {
	client := &scriptedClient{models: []string{"gpt-4o"}}
	p, _ := buildPipeline(client)

	stage := scenario.RuntimeStage{
		ID:    1,
		Model: "gpt-4o",
		Turns: []scenario.PromptTurn{
			{Role: scenario.RoleUser, Content: "search for {missingParam}", Name: "user-0"},
		},
	}
	execCtx := &pipeline.StageExecutionContext{SessionID: "sid-1", Scenario: "broken", Stage: stage}

	err := p.Run(context.Background(), execCtx)
	require.Error(t, err)
	assert.True(t, orcherr.Is(err, orcherr.UnresolvedPlaceholder))
	assert.Equal(t, 0, client.calls)
}

func TestPipelineSkipsEmptySystemPromptKey(t *testing.T) {
	client := &scriptedClient{
		models:    []string{"gpt-4o"},
		responses: []llm.Response{{Content: "ok", ID: "r1", Model: "gpt-4o"}},
	}
	p, store := buildPipeline(client)

	stage := scenario.RuntimeStage{
		ID:    2,
		Model: "gpt-4o",
		Turns: []scenario.PromptTurn{
			{Role: scenario.RoleUser, Content: "hi", Name: "user-0"},
		},
	}
	execCtx := &pipeline.StageExecutionContext{SessionID: "sid-1", Scenario: "echo", Stage: stage}

	require.NoError(t, p.Run(context.Background(), execCtx))

	_, ok, err := store.LoadItemString(context.Background(), "sid-1", "stage:2-1:input:system_prompt")
	require.NoError(t, err)
	assert.False(t, ok)
}
