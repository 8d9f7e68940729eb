// Package pipeline implements the stage execution pipeline: a Russian-doll
// middleware chain that populates placeholders, invokes the LLM Adapter,
// logs, and persists results for one scenario stage.
package pipeline

import (
	"context"

	"github.com/kairos-run/orchestrator/contextstore"
	"github.com/kairos-run/orchestrator/llm"
	"github.com/kairos-run/orchestrator/router"
	"github.com/kairos-run/orchestrator/scenario"
	"github.com/kairos-run/orchestrator/telemetry"
)

// StageExecutionContext carries the mutable state a pipeline run threads
// through its middleware chain. Stage is mutated in place by
// ContextPopulationMiddleware; Results accumulates one CompletionResult per
// user turn.
type StageExecutionContext struct {
	SessionID string
	Scenario  string
	Stage     scenario.RuntimeStage
	Metadata  map[string]any
	Results   []scenario.CompletionResult
}

// Middleware is one link in the Russian-doll chain: it may run logic
// before and/or after calling next.
type Middleware interface {
	Invoke(ctx context.Context, execCtx *StageExecutionContext, next func(context.Context) error) error
}

// MiddlewareFunc adapts a plain function to Middleware.
type MiddlewareFunc func(ctx context.Context, execCtx *StageExecutionContext, next func(context.Context) error) error

// Invoke implements Middleware.
func (f MiddlewareFunc) Invoke(ctx context.Context, execCtx *StageExecutionContext, next func(context.Context) error) error {
	return f(ctx, execCtx, next)
}

// Pipeline composes an ordered chain of Middleware, innermost last.
type Pipeline struct {
	chain []Middleware
}

// New builds a Pipeline in the given execution order: the first Middleware
// runs outermost (first before next(), last after next() returns).
func New(chain ...Middleware) *Pipeline {
	return &Pipeline{chain: chain}
}

// Run drives the chain to completion for one StageExecutionContext.
func (p *Pipeline) Run(ctx context.Context, execCtx *StageExecutionContext) error {
	return p.invoke(ctx, execCtx, 0)
}

func (p *Pipeline) invoke(ctx context.Context, execCtx *StageExecutionContext, index int) error {
	if index >= len(p.chain) {
		return nil
	}
	return p.chain[index].Invoke(ctx, execCtx, func(ctx context.Context) error {
		return p.invoke(ctx, execCtx, index+1)
	})
}

// Standard builds the pipeline's standard middleware order: context
// population, placeholder validation, the LLM request, logging, and
// context-store persistence.
func Standard(modelRouter router.ModelRouter, adapter *llm.Adapter, store contextstore.Store, logger telemetry.Logger, metrics telemetry.Metrics) *Pipeline {
	return New(
		NewContextPopulationMiddleware(store),
		NewPlaceholderValidationMiddleware(),
		NewLlmRequestMiddleware(modelRouter, adapter),
		NewLoggingMiddleware(logger, metrics),
		NewContextStoreMiddleware(store),
	)
}
