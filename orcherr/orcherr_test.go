package orcherr_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kairos-run/orchestrator/orcherr"
)

func TestIsMatchesKindThroughWrap(t *testing.T) {
	cause := errors.New("boom")
	err := orcherr.New(orcherr.StorageUnavailable, cause).WithStage("1-1").WithSession("s1")

	wrapped := errors.Join(err)

	assert.True(t, orcherr.Is(err, orcherr.StorageUnavailable))
	assert.True(t, orcherr.Is(wrapped, orcherr.StorageUnavailable))
	assert.False(t, orcherr.Is(err, orcherr.NotFound))
	assert.ErrorIs(t, err, cause)
}

func TestNewfFormatsMessage(t *testing.T) {
	err := orcherr.Newf(orcherr.NotFound, "scenario %q not found", "echo")
	assert.Contains(t, err.Error(), "scenario \"echo\" not found")
	assert.True(t, orcherr.Is(err, orcherr.NotFound))
}
