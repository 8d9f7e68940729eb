package pipeline

import (
	"context"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kairos-run/orchestrator/contextstore"
	"github.com/kairos-run/orchestrator/llm"
	"github.com/kairos-run/orchestrator/orcherr"
	"github.com/kairos-run/orchestrator/placeholder"
	"github.com/kairos-run/orchestrator/router"
	"github.com/kairos-run/orchestrator/scenario"
	"github.com/kairos-run/orchestrator/telemetry"
)

var keys contextstore.KeyBuilder

// ContextPopulationMiddleware rewrites each user turn's content into its
// resolved form (§4.8) before the rest of the chain runs.
type ContextPopulationMiddleware struct {
	store contextstore.ItemStore
}

// NewContextPopulationMiddleware builds a ContextPopulationMiddleware.
func NewContextPopulationMiddleware(store contextstore.ItemStore) *ContextPopulationMiddleware {
	return &ContextPopulationMiddleware{store: store}
}

// Invoke implements Middleware.
func (m *ContextPopulationMiddleware) Invoke(ctx context.Context, execCtx *StageExecutionContext, next func(context.Context) error) error {
	for i, turn := range execCtx.Stage.Turns {
		if turn.Role != scenario.RoleUser {
			continue
		}
		resolved, err := placeholder.Resolve(ctx, execCtx.SessionID, turn.Content, execCtx.Stage.Parameters, m.store)
		if err != nil {
			return orcherr.New(orcherr.StorageUnavailable, err).WithSession(execCtx.SessionID)
		}
		execCtx.Stage.Turns[i].Content = resolved
	}
	return next(ctx)
}

// PlaceholderValidationMiddleware asserts no marker survives population.
type PlaceholderValidationMiddleware struct{}

// NewPlaceholderValidationMiddleware builds a PlaceholderValidationMiddleware.
func NewPlaceholderValidationMiddleware() *PlaceholderValidationMiddleware {
	return &PlaceholderValidationMiddleware{}
}

// Invoke implements Middleware.
func (m *PlaceholderValidationMiddleware) Invoke(ctx context.Context, execCtx *StageExecutionContext, next func(context.Context) error) error {
	for _, turn := range execCtx.Stage.Turns {
		if turn.Role != scenario.RoleUser {
			continue
		}
		if placeholder.HasUnresolved(turn.Content) {
			return orcherr.Newf(orcherr.UnresolvedPlaceholder, "stage %d turn %q still contains an unresolved marker", execCtx.Stage.ID, turn.Name).
				WithSession(execCtx.SessionID)
		}
	}
	return next(ctx)
}

// LlmRequestMiddleware invokes the LLM Adapter once per user turn, in
// order, appending each CompletionResult to execCtx.Results.
type LlmRequestMiddleware struct {
	router  router.ModelRouter
	adapter *llm.Adapter
}

// NewLlmRequestMiddleware builds an LlmRequestMiddleware.
func NewLlmRequestMiddleware(modelRouter router.ModelRouter, adapter *llm.Adapter) *LlmRequestMiddleware {
	return &LlmRequestMiddleware{router: modelRouter, adapter: adapter}
}

// Invoke implements Middleware.
func (m *LlmRequestMiddleware) Invoke(ctx context.Context, execCtx *StageExecutionContext, next func(context.Context) error) error {
	model, err := m.router.ResolveModel(execCtx.Stage)
	if err != nil {
		return err
	}

	systemPrompt := ""
	for _, turn := range execCtx.Stage.Turns {
		if turn.Role == scenario.RoleSystem {
			systemPrompt = turn.Content
			break
		}
	}

	for _, turn := range execCtx.Stage.Turns {
		if turn.Role != scenario.RoleUser {
			continue
		}
		result, err := m.adapter.CompleteAsync(ctx, execCtx.SessionID, execCtx.Stage, turn, model, systemPrompt)
		if err != nil {
			return err
		}
		execCtx.Results = append(execCtx.Results, result)
	}
	return next(ctx)
}

// LoggingMiddleware brackets next() with start/finish log lines and a
// duration measurement tagged by scenario/stage.
type LoggingMiddleware struct {
	logger  telemetry.Logger
	metrics telemetry.Metrics
}

// NewLoggingMiddleware builds a LoggingMiddleware.
func NewLoggingMiddleware(logger telemetry.Logger, metrics telemetry.Metrics) *LoggingMiddleware {
	if logger == nil {
		logger = telemetry.NoopLogger{}
	}
	if metrics == nil {
		metrics = telemetry.NoopMetrics{}
	}
	return &LoggingMiddleware{logger: logger, metrics: metrics}
}

// Invoke implements Middleware.
func (m *LoggingMiddleware) Invoke(ctx context.Context, execCtx *StageExecutionContext, next func(context.Context) error) error {
	stageID := strconv.Itoa(execCtx.Stage.ID)
	m.logger.Info(ctx, "stage execution started", "scenario", execCtx.Scenario, "stage", stageID, "session", execCtx.SessionID)
	start := time.Now()
	err := next(ctx)
	duration := time.Since(start)
	m.metrics.RecordTimer("stage_execution_duration", duration, "scenario", execCtx.Scenario, "stage", stageID)
	if err != nil {
		m.logger.Error(ctx, "stage execution failed", "scenario", execCtx.Scenario, "stage", stageID, "error", err.Error())
		return err
	}
	m.logger.Info(ctx, "stage execution finished", "scenario", execCtx.Scenario, "stage", stageID, "duration", duration.String())
	return nil
}

// ContextStoreMiddleware persists every result of the stage into the
// Context Store after next() returns, per §4.9's key schema. All writes
// for one result go out concurrently; writes already in flight are not
// rolled back if one fails.
type ContextStoreMiddleware struct {
	store contextstore.ItemStore
}

// NewContextStoreMiddleware builds a ContextStoreMiddleware.
func NewContextStoreMiddleware(store contextstore.ItemStore) *ContextStoreMiddleware {
	return &ContextStoreMiddleware{store: store}
}

// Invoke implements Middleware.
func (m *ContextStoreMiddleware) Invoke(ctx context.Context, execCtx *StageExecutionContext, next func(context.Context) error) error {
	if err := next(ctx); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	for i, result := range execCtx.Results {
		stageKey := keys.StageKey(execCtx.Stage.ID, i)
		result := result
		if result.SystemPrompt != "" {
			g.Go(func() error {
				return m.store.SaveItem(gctx, execCtx.SessionID, keys.Input(stageKey, "system_prompt"), result.SystemPrompt, 0)
			})
		}
		g.Go(func() error {
			return m.store.SaveItem(gctx, execCtx.SessionID, keys.Input(stageKey, "user_prompt"), result.UserPrompt.Content, 0)
		})
		for metadataKey, metadataValue := range execCtx.Metadata {
			metadataKey, metadataValue := metadataKey, metadataValue
			g.Go(func() error {
				return m.store.SaveItem(gctx, execCtx.SessionID, keys.InputParam(stageKey, metadataKey), metadataValue, 0)
			})
		}
		g.Go(func() error {
			return m.store.SaveItem(gctx, execCtx.SessionID, keys.Output(stageKey), result.Content, 0)
		})

		executionID := result.Metadata.ID
		if executionID == "" {
			executionID = stageKey
		}
		g.Go(func() error {
			return m.store.SaveItem(gctx, execCtx.SessionID, keys.OutputParam(stageKey, "execution_id"), executionID, 0)
		})
		g.Go(func() error {
			return m.store.SaveItem(gctx, execCtx.SessionID, keys.Metadata(stageKey, "output_model"), result.Metadata.Model, 0)
		})
		if result.Metadata.FinishReason != "" {
			g.Go(func() error {
				return m.store.SaveItem(gctx, execCtx.SessionID, keys.Metadata(stageKey, "finish_reason"), result.Metadata.FinishReason, 0)
			})
		}
		for _, tc := range result.Metadata.ToolCalls {
			tc := tc
			g.Go(func() error {
				return m.store.SaveItem(gctx, execCtx.SessionID, keys.Tool(stageKey, tc.FunctionName, tc.ID), tc, 0)
			})
		}
		if result.Metadata.InputTokens != nil {
			v := *result.Metadata.InputTokens
			g.Go(func() error {
				return m.store.SaveItem(gctx, execCtx.SessionID, keys.Metadata(stageKey, "input_tokens"), v, 0)
			})
		}
		if result.Metadata.OutputTokens != nil {
			v := *result.Metadata.OutputTokens
			g.Go(func() error {
				return m.store.SaveItem(gctx, execCtx.SessionID, keys.Metadata(stageKey, "output_tokens"), v, 0)
			})
		}
		if result.Metadata.TotalTokens != nil {
			v := *result.Metadata.TotalTokens
			g.Go(func() error {
				return m.store.SaveItem(gctx, execCtx.SessionID, keys.Metadata(stageKey, "total_tokens"), v, 0)
			})
		}
	}
	return g.Wait()
}
