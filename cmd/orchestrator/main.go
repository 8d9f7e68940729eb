// Command orchestrator runs a scenario against a directory of scenario
// files, printing each stage's completion results as JSON.
//
// # Configuration
//
// Environment variables:
//
//	SCENARIO_DIR                  - directory of .yaml/.yml/.json scenario files (required)
//	SESSION_ID                    - session id to run under (default: "cli-session")
//	SCENARIO_NAME                 - scenario to run (required)
//	OPENAI_API_KEY                - OpenAI API key (required unless ANTHROPIC_API_KEY is set)
//	OPENAI_SUPPORTED_MODELS       - comma-separated model list (default: "gpt-4o,gpt-4o-mini")
//	ANTHROPIC_API_KEY             - Anthropic API key (required unless OPENAI_API_KEY is set)
//	ANTHROPIC_SUPPORTED_MODELS    - comma-separated model list (default: "claude-3-5-sonnet-20241022")
//
// # Example
//
//	SCENARIO_DIR=./scenarios SCENARIO_NAME=echo OPENAI_API_KEY=sk-... go run ./cmd/orchestrator
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/redis/go-redis/v9"

	"github.com/kairos-run/orchestrator/config"
	contextredisstore "github.com/kairos-run/orchestrator/contextstore/redisstore"
	"github.com/kairos-run/orchestrator/functionregistry"
	"github.com/kairos-run/orchestrator/llm"
	"github.com/kairos-run/orchestrator/llm/anthropicadapter"
	"github.com/kairos-run/orchestrator/llm/openaiadapter"
	"github.com/kairos-run/orchestrator/orchestrator"
	"github.com/kairos-run/orchestrator/pipeline"
	"github.com/kairos-run/orchestrator/router"
	"github.com/kairos-run/orchestrator/schema"
	"github.com/kairos-run/orchestrator/scenarioregistry"
	"github.com/kairos-run/orchestrator/scenarioregistry/filestore"
	"github.com/kairos-run/orchestrator/telemetry"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx := context.Background()

	scenarioDir := os.Getenv("SCENARIO_DIR")
	if scenarioDir == "" {
		return fmt.Errorf("SCENARIO_DIR is required")
	}
	scenarioName := os.Getenv("SCENARIO_NAME")
	if scenarioName == "" {
		return fmt.Errorf("SCENARIO_NAME is required")
	}
	sessionID := envOr("SESSION_ID", "cli-session")

	clients, err := buildClients()
	if err != nil {
		return err
	}

	schemas := schema.NewRegistry()
	store, err := filestore.Open(scenarioDir, schemas)
	if err != nil {
		return fmt.Errorf("open scenario directory: %w", err)
	}
	registry := scenarioregistry.New(ctx, store)

	functions := functionregistry.New()
	logger := telemetry.NoopLogger{}
	adapter := llm.NewAdapter(clients, functions, logger, llm.AdapterConfig{})

	turnStore, err := buildContextStore()
	if err != nil {
		return err
	}

	p := pipeline.Standard(router.Default{}, adapter, turnStore, logger, telemetry.NoopMetrics{})
	orc := orchestrator.New(registry, p)

	results, err := orc.ExecuteScenario(ctx, sessionID, scenarioName)
	if err != nil {
		return fmt.Errorf("execute scenario %q: %w", scenarioName, err)
	}

	encoded, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("encode results: %w", err)
	}
	fmt.Println(string(encoded))
	return nil
}

func buildClients() ([]llm.Client, error) {
	var clients []llm.Client

	if cfg := config.LLMAdapterFromEnv("OPENAI_"); cfg.APIKey != "" {
		models := cfg.SupportedModels
		if len(models) == 0 {
			models = []string{"gpt-4o", "gpt-4o-mini"}
		}
		client, err := openaiadapter.NewFromAPIKey(cfg.APIKey, models)
		if err != nil {
			return nil, fmt.Errorf("build openai client: %w", err)
		}
		clients = append(clients, client)
	}

	if cfg := config.LLMAdapterFromEnv("ANTHROPIC_"); cfg.APIKey != "" {
		models := cfg.SupportedModels
		if len(models) == 0 {
			models = []string{"claude-3-5-sonnet-20241022"}
		}
		client, err := anthropicadapter.NewFromAPIKey(cfg.APIKey, models)
		if err != nil {
			return nil, fmt.Errorf("build anthropic client: %w", err)
		}
		clients = append(clients, client)
	}

	if len(clients) == 0 {
		return nil, fmt.Errorf("at least one of OPENAI_API_KEY, ANTHROPIC_API_KEY is required")
	}
	return clients, nil
}

func buildContextStore() (*contextredisstore.Store, error) {
	cfg := config.TurnStoreFromEnv()
	rdb := redis.NewClient(&redis.Options{Addr: envOr("REDIS_ADDR", "localhost:6379")})
	return contextredisstore.New(rdb, contextredisstore.Options{
		KeyPrefix:  cfg.KeyPrefix,
		DefaultTTL: cfg.DefaultTTL,
		MaxWindow:  int64(cfg.DefaultMaxTurns),
	})
}

func envOr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}
