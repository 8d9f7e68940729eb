package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kairos-run/orchestrator/config"
	"github.com/kairos-run/orchestrator/orcherr"
)

func TestLLMAdapterFromEnvDefaults(t *testing.T) {
	t.Setenv("ACME_API_KEY", "sk-test")
	t.Setenv("ACME_SUPPORTED_MODELS", "gpt-4o, gpt-4o-mini")

	cfg := config.LLMAdapterFromEnv("ACME_")
	assert.Equal(t, "sk-test", cfg.APIKey)
	assert.Equal(t, []string{"gpt-4o", "gpt-4o-mini"}, cfg.SupportedModels)
	assert.Equal(t, 30, cfg.TimeoutSeconds)
	assert.Equal(t, 8, cfg.MaxToolRounds)
	assert.NoError(t, cfg.Validate())
}

func TestLLMAdapterConfigValidateRejectsMissingAPIKey(t *testing.T) {
	cfg := config.LLMAdapterConfig{SupportedModels: []string{"gpt-4o"}, TimeoutSeconds: 30, MaxToolRounds: 8}
	err := cfg.Validate()
	assert.True(t, orcherr.Is(err, orcherr.InvalidInput))
}

func TestTurnStoreConfigValidateRejectsMissingPrefix(t *testing.T) {
	cfg := config.TurnStoreConfig{DefaultTTL: 0}
	err := cfg.Validate()
	assert.True(t, orcherr.Is(err, orcherr.InvalidInput))
}

func TestRegistryConfigValidateRejectsEmptyStores(t *testing.T) {
	err := config.RegistryConfig{}.Validate()
	assert.True(t, orcherr.Is(err, orcherr.InvalidInput))
}
