package functionregistry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kairos-run/orchestrator/functionregistry"
	"github.com/kairos-run/orchestrator/orcherr"
)

func echo(_ context.Context, args []byte) ([]byte, error) { return args, nil }

func TestRegisterAndGetCaseInsensitive(t *testing.T) {
	r := functionregistry.New()
	require.NoError(t, r.Register("LookupWeather", echo))

	fn, err := r.Get("lookupweather")
	require.NoError(t, err)
	out, err := fn(context.Background(), []byte(`{"city":"nyc"}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"city":"nyc"}`, string(out))
}

func TestGetUnknownReturnsToolMissing(t *testing.T) {
	r := functionregistry.New()
	_, err := r.Get("nope")
	assert.True(t, orcherr.Is(err, orcherr.ToolMissing))
}

func TestRegisterRejectsEmptyNameOrNilFunc(t *testing.T) {
	r := functionregistry.New()
	assert.Error(t, r.Register("", echo))
	assert.Error(t, r.Register("x", nil))
}

func TestRegisteredNamesReflectsLastRegistration(t *testing.T) {
	r := functionregistry.New()
	require.NoError(t, r.Register("A", echo))
	require.NoError(t, r.Register("B", echo))
	assert.ElementsMatch(t, []string{"a", "b"}, r.RegisteredNames())
}
