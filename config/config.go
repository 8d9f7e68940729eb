// Package config loads the orchestrator's process-level configuration
// surface from plain structs and environment variables, in the same
// envOr/envIntOr style the registry command uses — no configuration
// framework.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kairos-run/orchestrator/orcherr"
)

// LLMAdapterConfig configures a provider-backed llm.Client plus the
// Adapter's bounded tool-calling loop.
type LLMAdapterConfig struct {
	APIKey                 string
	BaseURL                string
	SupportedModels        []string
	OrganizationID         string
	ProjectID              string
	TimeoutSeconds         int
	AllowParallelToolCalls bool
	MaxToolRounds          int
}

// Validate checks the required fields and numeric ranges named in the
// configuration surface.
func (c LLMAdapterConfig) Validate() error {
	if c.APIKey == "" {
		return orcherr.Newf(orcherr.InvalidInput, "llm adapter: apiKey is required")
	}
	if len(c.SupportedModels) == 0 {
		return orcherr.Newf(orcherr.InvalidInput, "llm adapter: supportedModels must be non-empty")
	}
	if c.TimeoutSeconds <= 0 {
		return orcherr.Newf(orcherr.InvalidInput, "llm adapter: timeoutSeconds must be > 0")
	}
	if c.MaxToolRounds <= 0 {
		return orcherr.Newf(orcherr.InvalidInput, "llm adapter: maxToolRounds must be > 0")
	}
	return nil
}

// TurnStoreConfig configures a contextstore.TurnStore backend.
type TurnStoreConfig struct {
	KeyPrefix       string
	DefaultTTL      time.Duration
	DefaultMaxTurns int
}

// Validate checks the required fields named in the configuration surface.
func (c TurnStoreConfig) Validate() error {
	if c.KeyPrefix == "" {
		return orcherr.Newf(orcherr.InvalidInput, "turn store: keyPrefix is required")
	}
	if c.DefaultTTL <= 0 {
		return orcherr.Newf(orcherr.InvalidInput, "turn store: defaultTtl must be > 0")
	}
	if c.DefaultMaxTurns <= 0 {
		return orcherr.Newf(orcherr.InvalidInput, "turn store: defaultMaxTurns must be > 0")
	}
	return nil
}

// RegistryConfig names the ordered list of scenario-store backends a
// scenarioregistry.Registry should warm up from, by identifier (e.g.
// "file:/etc/scenarios", "redis"). Wiring an identifier to a concrete
// scenarioregistry.Store is left to the process entry point.
type RegistryConfig struct {
	Stores []string
}

// Validate checks the required fields named in the configuration surface.
func (c RegistryConfig) Validate() error {
	if len(c.Stores) == 0 {
		return orcherr.Newf(orcherr.InvalidInput, "registry: stores must be non-empty")
	}
	return nil
}

// LLMAdapterFromEnv loads an LLMAdapterConfig from environment variables,
// prefixed by prefix (e.g. "OPENAI_" or "ANTHROPIC_").
func LLMAdapterFromEnv(prefix string) LLMAdapterConfig {
	return LLMAdapterConfig{
		APIKey:                 os.Getenv(prefix + "API_KEY"),
		BaseURL:                os.Getenv(prefix + "BASE_URL"),
		SupportedModels:        envListOr(prefix+"SUPPORTED_MODELS", nil),
		OrganizationID:         os.Getenv(prefix + "ORGANIZATION_ID"),
		ProjectID:              os.Getenv(prefix + "PROJECT_ID"),
		TimeoutSeconds:         envIntOr(prefix+"TIMEOUT_SECONDS", 30),
		AllowParallelToolCalls: envBoolOr(prefix+"ALLOW_PARALLEL_TOOL_CALLS", false),
		MaxToolRounds:          envIntOr(prefix+"MAX_TOOL_ROUNDS", 8),
	}
}

// TurnStoreFromEnv loads a TurnStoreConfig from environment variables.
func TurnStoreFromEnv() TurnStoreConfig {
	return TurnStoreConfig{
		KeyPrefix:       envOr("CONTEXT_STORE_KEY_PREFIX", "orchestrator:"),
		DefaultTTL:      envDurationOr("CONTEXT_STORE_DEFAULT_TTL", 24*time.Hour),
		DefaultMaxTurns: envIntOr("CONTEXT_STORE_DEFAULT_MAX_TURNS", 50),
	}
}

// RegistryFromEnv loads a RegistryConfig from a comma-separated env var.
func RegistryFromEnv() RegistryConfig {
	return RegistryConfig{Stores: envListOr("SCENARIO_REGISTRY_STORES", []string{"file"})}
}

func envOr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envIntOr(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func envBoolOr(key string, defaultVal bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultVal
}

func envDurationOr(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return defaultVal
}

func envListOr(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
