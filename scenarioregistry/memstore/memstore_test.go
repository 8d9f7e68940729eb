package memstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kairos-run/orchestrator/scenario"
	"github.com/kairos-run/orchestrator/scenarioregistry"
	"github.com/kairos-run/orchestrator/scenarioregistry/memstore"
)

func TestSaveGetDeleteIsCaseInsensitive(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	require.NoError(t, s.SaveScenario(ctx, &scenario.RuntimeScenario{Name: "Echo"}))

	rs, err := s.GetScenario(ctx, "ECHO")
	require.NoError(t, err)
	assert.Equal(t, "Echo", rs.Name)

	require.NoError(t, s.DeleteScenario(ctx, "echo"))
	_, err = s.GetScenario(ctx, "Echo")
	assert.ErrorIs(t, err, scenarioregistry.ErrNotFound)
}

func TestGetAllAndListScenarioNames(t *testing.T) {
	s := memstore.New()
	ctx := context.Background()
	require.NoError(t, s.SaveScenario(ctx, &scenario.RuntimeScenario{Name: "B"}))
	require.NoError(t, s.SaveScenario(ctx, &scenario.RuntimeScenario{Name: "A"}))

	names, err := s.ListScenarioNames(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, names)

	all, err := s.GetAllScenarios(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}
