package orchestrator_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ctxmemstore "github.com/kairos-run/orchestrator/contextstore/memstore"
	"github.com/kairos-run/orchestrator/functionregistry"
	"github.com/kairos-run/orchestrator/llm"
	"github.com/kairos-run/orchestrator/orcherr"
	"github.com/kairos-run/orchestrator/orchestrator"
	"github.com/kairos-run/orchestrator/pipeline"
	"github.com/kairos-run/orchestrator/router"
	"github.com/kairos-run/orchestrator/scenario"
	"github.com/kairos-run/orchestrator/scenarioregistry"
	regmemstore "github.com/kairos-run/orchestrator/scenarioregistry/memstore"
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

func twoStageScenario() *scenario.RuntimeScenario {
	return &scenario.RuntimeScenario{
		Name: "cross-stage",
		Stages: []scenario.RuntimeStage{
			{
				ID:    1,
				Model: "gpt-4o",
				Turns: []scenario.PromptTurn{
					{Role: scenario.RoleUser, Content: "give JSON {x:1}", Name: "user-0"},
				},
			},
			{
				ID:    2,
				Model: "gpt-4o",
				Turns: []scenario.PromptTurn{
					{Role: scenario.RoleUser, Content: "echo {{1-1:output:x}}", Name: "user-0"},
				},
			},
		},
	}
}

func TestExecuteScenarioRunsStagesSequentiallyWithCrossStageReference(t *testing.T) {
	client := &scriptedClient{
		models: []string{"gpt-4o"},
		responses: []llm.Response{
			{Content: `{"x":1}`, ID: "r1", Model: "gpt-4o"},
			{Content: "echo 1 received", ID: "r2", Model: "gpt-4o"},
		},
	}
	store := ctxmemstore.New(ctxmemstore.Options{})
	adapter := llm.NewAdapter([]llm.Client{client}, functionregistry.New(), telemetry.NoopLogger{}, llm.AdapterConfig{})
	p := pipeline.Standard(router.Default{}, adapter, store, telemetry.NoopLogger{}, telemetry.NoopMetrics{})

	regStore := regmemstore.New()
	require.NoError(t, regStore.SaveScenario(context.Background(), twoStageScenario()))
	registry := scenarioregistry.New(context.Background(), regStore)

	orc := orchestrator.New(registry, p)
	results, err := orc.ExecuteScenario(context.Background(), "sid-1", "cross-stage")
	require.NoError(t, err)
	require.Len(t, results, 2)
	require.Len(t, results[1], 1)
	assert.Equal(t, "echo 1 received", results[1][0].Content)
	assert.Equal(t, "echo 1", results[1][0].UserPrompt.Content)
}

func TestExecuteScenarioDoesNotMutateCachedScenarioTurns(t *testing.T) {
	client := &scriptedClient{
		models: []string{"gpt-4o"},
		responses: []llm.Response{
			{Content: `{"x":1}`, ID: "r1", Model: "gpt-4o"},
			{Content: "echo 1 received", ID: "r2", Model: "gpt-4o"},
		},
	}
	store := ctxmemstore.New(ctxmemstore.Options{})
	adapter := llm.NewAdapter([]llm.Client{client}, functionregistry.New(), telemetry.NoopLogger{}, llm.AdapterConfig{})
	p := pipeline.Standard(router.Default{}, adapter, store, telemetry.NoopLogger{}, telemetry.NoopMetrics{})

	regStore := regmemstore.New()
	require.NoError(t, regStore.SaveScenario(context.Background(), twoStageScenario()))
	registry := scenarioregistry.New(context.Background(), regStore)

	orc := orchestrator.New(registry, p)
	_, err := orc.ExecuteScenario(context.Background(), "sid-1", "cross-stage")
	require.NoError(t, err)

	cached, err := registry.GetScenario(context.Background(), "cross-stage")
	require.NoError(t, err)
	assert.Equal(t, "give JSON {x:1}", cached.Stages[0].Turns[0].Content)
	assert.Equal(t, "echo {{1-1:output:x}}", cached.Stages[1].Turns[0].Content)
}

func TestExecuteScenarioUnknownScenarioFailsNotFound(t *testing.T) {
	store := ctxmemstore.New(ctxmemstore.Options{})
	adapter := llm.NewAdapter(nil, functionregistry.New(), telemetry.NoopLogger{}, llm.AdapterConfig{})
	p := pipeline.Standard(router.Default{}, adapter, store, telemetry.NoopLogger{}, telemetry.NoopMetrics{})
	registry := scenarioregistry.New(context.Background(), regmemstore.New())

	orc := orchestrator.New(registry, p)
	_, err := orc.ExecuteScenario(context.Background(), "sid-1", "missing")
	assert.True(t, orcherr.Is(err, orcherr.NotFound))
}

func TestExecuteStageUnknownStageFailsNotFound(t *testing.T) {
	store := ctxmemstore.New(ctxmemstore.Options{})
	adapter := llm.NewAdapter(nil, functionregistry.New(), telemetry.NoopLogger{}, llm.AdapterConfig{})
	p := pipeline.Standard(router.Default{}, adapter, store, telemetry.NoopLogger{}, telemetry.NoopMetrics{})

	regStore := regmemstore.New()
	require.NoError(t, regStore.SaveScenario(context.Background(), twoStageScenario()))
	registry := scenarioregistry.New(context.Background(), regStore)

	orc := orchestrator.New(registry, p)
	_, err := orc.ExecuteStage(context.Background(), "sid-1", "cross-stage", 99)
	assert.True(t, orcherr.Is(err, orcherr.NotFound))
}
