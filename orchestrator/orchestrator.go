// Package orchestrator drives a scenario's stages, in order, through the
// stage execution pipeline.
package orchestrator

import (
	"context"

	"github.com/kairos-run/orchestrator/orcherr"
	"github.com/kairos-run/orchestrator/pipeline"
	"github.com/kairos-run/orchestrator/scenario"
	"github.com/kairos-run/orchestrator/scenarioregistry"
)

// Orchestrator resolves scenarios from a Registry and runs their stages
// through a Pipeline.
type Orchestrator struct {
	registry *scenarioregistry.Registry
	pipeline *pipeline.Pipeline
}

// New builds an Orchestrator over the given Registry and Pipeline.
func New(registry *scenarioregistry.Registry, p *pipeline.Pipeline) *Orchestrator {
	return &Orchestrator{registry: registry, pipeline: p}
}

// ExecuteScenario runs every stage of scenarioName, in declared order,
// returning one CompletionResult list per stage. Stages run sequentially:
// a later stage's placeholder resolution may depend on an earlier stage's
// persisted output.
func (o *Orchestrator) ExecuteScenario(ctx context.Context, sessionID, scenarioName string) ([][]scenario.CompletionResult, error) {
	runtimeScenario, err := o.registry.GetScenario(ctx, scenarioName)
	if err != nil {
		return nil, err
	}

	results := make([][]scenario.CompletionResult, 0, len(runtimeScenario.Stages))
	for _, stage := range runtimeScenario.Stages {
		execCtx := &pipeline.StageExecutionContext{
			SessionID: sessionID,
			Scenario:  scenarioName,
			Stage:     cloneStage(stage),
			Metadata:  make(map[string]any),
		}
		if err := o.pipeline.Run(ctx, execCtx); err != nil {
			return nil, err
		}
		results = append(results, execCtx.Results)
	}
	return results, nil
}

// ExecuteStage runs a single named stage of scenarioName and returns its
// CompletionResult list.
func (o *Orchestrator) ExecuteStage(ctx context.Context, sessionID, scenarioName string, stageID int) ([]scenario.CompletionResult, error) {
	runtimeScenario, err := o.registry.GetScenario(ctx, scenarioName)
	if err != nil {
		return nil, err
	}

	stage, ok := findStage(runtimeScenario, stageID)
	if !ok {
		return nil, orcherr.Newf(orcherr.NotFound, "scenario %q has no stage %d", scenarioName, stageID).WithScenarioName(scenarioName)
	}

	execCtx := &pipeline.StageExecutionContext{
		SessionID: sessionID,
		Scenario:  scenarioName,
		Stage:     cloneStage(stage),
		Metadata:  make(map[string]any),
	}
	if err := o.pipeline.Run(ctx, execCtx); err != nil {
		return nil, err
	}
	return execCtx.Results, nil
}

func findStage(s *scenario.RuntimeScenario, stageID int) (scenario.RuntimeStage, bool) {
	for _, stage := range s.Stages {
		if stage.ID == stageID {
			return stage, true
		}
	}
	return scenario.RuntimeStage{}, false
}

// cloneStage deep-copies the parts of a RuntimeStage that
// ContextPopulationMiddleware mutates or reads before mutating, so running
// a stage never writes back into the Registry's cached scenario. The
// Registry hands out a shared *RuntimeScenario (§3: "cached keyed by
// name"); a RuntimeStage copied by value still shares its Turns slice's
// backing array and its Parameters map with every other session running
// the same scenario unless those are independently copied here.
func cloneStage(s scenario.RuntimeStage) scenario.RuntimeStage {
	s.Turns = append([]scenario.PromptTurn(nil), s.Turns...)
	if s.Parameters != nil {
		params := make(map[string]any, len(s.Parameters))
		for k, v := range s.Parameters {
			params[k] = v
		}
		s.Parameters = params
	}
	return s
}
