// Package scenarioregistry aggregates one or more Scenario Stores behind a
// concurrent, case-insensitive cache: the Go rendition of the teacher's
// registry/store package, generalized from Toolset metadata to
// scenario.RuntimeScenario.
package scenarioregistry

import (
	"context"
	"errors"

	"github.com/kairos-run/orchestrator/scenario"
)

// ErrNotFound is returned by a Store when a scenario name has no entry.
var ErrNotFound = errors.New("scenario not found")

// Store is the persistence layer for runtime scenarios. Implementations must
// be safe for concurrent use. The aggregating Registry relies on
// GetScenario, GetAllScenarios, and ListScenarioNames; SaveScenario and
// DeleteScenario back administrative flows.
type Store interface {
	SaveScenario(ctx context.Context, rs *scenario.RuntimeScenario) error
	GetScenario(ctx context.Context, name string) (*scenario.RuntimeScenario, error)
	DeleteScenario(ctx context.Context, name string) error
	ListScenarioNames(ctx context.Context) ([]string, error)
	GetAllScenarios(ctx context.Context) ([]*scenario.RuntimeScenario, error)
}
