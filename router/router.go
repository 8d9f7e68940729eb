// Package router resolves which model identifier a stage's LLM calls should
// target.
package router

import (
	"github.com/kairos-run/orchestrator/orcherr"
	"github.com/kairos-run/orchestrator/scenario"
)

// ModelRouter resolves the model identifier to use for a stage's calls. The
// stage is always passed explicitly; implementations must not rely on any
// context.Context side-channel for it.
type ModelRouter interface {
	ResolveModel(stage scenario.RuntimeStage) (string, error)
}

// Default resolves stage.Model when set, falling back to the scenario's
// first valid model (stage.ValidModel). It never consults load or cost
// signals; a pluggable router may wrap Default to add that.
type Default struct{}

var _ ModelRouter = Default{}

// ResolveModel implements ModelRouter.
func (Default) ResolveModel(stage scenario.RuntimeStage) (string, error) {
	if stage.Model != "" {
		return stage.Model, nil
	}
	if stage.ValidModel != "" {
		return stage.ValidModel, nil
	}
	return "", orcherr.Newf(orcherr.InvalidDefinition, "stage %d declares no model and no valid model fallback", stage.ID)
}
