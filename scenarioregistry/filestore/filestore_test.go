package filestore_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kairos-run/orchestrator/scenarioregistry/filestore"
	"github.com/kairos-run/orchestrator/schema"
)

const echoYAML = `
name: echo
version: "1"
validModels: ["gpt-4o"]
stages:
  - id: 1
    name: say-hi
    userPrompts:
      - template: "hello {{name}}"
`

func TestOpenLoadsAndServesDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "echo.yaml"), []byte(echoYAML), 0o644))

	store, err := filestore.Open(dir, schema.NewRegistry())
	require.NoError(t, err)

	rs, err := store.GetScenario(context.Background(), "echo")
	require.NoError(t, err)
	assert.Equal(t, "echo", rs.Name)
	require.Len(t, rs.Stages, 1)
}

func TestOpenRejectsInvalidDefinition(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.yaml"), []byte("name: \"\"\n"), 0o644))

	_, err := filestore.Open(dir, schema.NewRegistry())
	assert.Error(t, err)
}

func TestDeleteScenarioRemovesFileAndCacheEntry(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "echo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(echoYAML), 0o644))

	store, err := filestore.Open(dir, schema.NewRegistry())
	require.NoError(t, err)

	require.NoError(t, store.DeleteScenario(context.Background(), "echo"))
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))

	_, err = store.GetScenario(context.Background(), "echo")
	assert.Error(t, err)
}
