// Package schema resolves structured-output and function-parameter schemas:
// either a literal JSON schema handed to the Scenario Builder verbatim, or a
// named Go type looked up in a pre-registered reflection-backed registry.
package schema

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"
	jsonschemav6 "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/kairos-run/orchestrator/orcherr"
)

// Registry maps a type name to its reflection-generated JSON schema,
// computed once at registration time rather than per request. See
// RegisterType.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]string
}

// NewRegistry creates an empty schema Registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]string)}
}

// RegisterType reflects over an instance of T (a zero value is sufficient)
// and stores its generated JSON schema under name. Call this at process
// start-up for every named response/parameter type a scenario file may
// reference; runtime lookups never invoke reflection.
func RegisterType[T any](r *Registry, name string) error {
	var zero T
	reflector := &jsonschema.Reflector{
		ExpandedStruct:            true,
		DoNotReference:            true,
		AllowAdditionalProperties: false,
	}
	schema := reflector.Reflect(zero)
	raw, err := json.Marshal(schema)
	if err != nil {
		return orcherr.New(orcherr.InvalidDefinition, fmt.Errorf("reflect schema for %q: %w", name, err))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[name] = string(raw)
	return nil
}

// Resolve returns the JSON schema registered under name.
func (r *Registry) Resolve(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[name]
	return s, ok
}

// ResolveResponseType implements the Scenario Builder's JsonSchema-by-name
// policy: resolve name from the registry, or report failure so the caller
// can downgrade to JsonObject per §4.3's build rule.
func (r *Registry) ResolveResponseType(name string) (string, error) {
	s, ok := r.Resolve(name)
	if !ok {
		return "", orcherr.Newf(orcherr.NotFound, "no schema registered for response type %q", name)
	}
	return s, nil
}

// ValidateJSON validates the JSON value in payload against the JSON schema
// document in schemaJSON. The schema is compiled anew on every call; no
// compiled schema is cached.
func ValidateJSON(schemaJSON, payload []byte) error {
	if len(schemaJSON) == 0 {
		return nil
	}
	var schemaDoc any
	if err := json.Unmarshal(schemaJSON, &schemaDoc); err != nil {
		return orcherr.New(orcherr.InvalidDefinition, fmt.Errorf("unmarshal schema: %w", err))
	}
	var payloadDoc any
	if err := json.Unmarshal(payload, &payloadDoc); err != nil {
		return orcherr.New(orcherr.InvalidInput, fmt.Errorf("unmarshal payload: %w", err))
	}

	c := jsonschemav6.NewCompiler()
	if err := c.AddResource("schema.json", schemaDoc); err != nil {
		return orcherr.New(orcherr.InvalidDefinition, fmt.Errorf("add schema resource: %w", err))
	}
	compiled, err := c.Compile("schema.json")
	if err != nil {
		return orcherr.New(orcherr.InvalidDefinition, fmt.Errorf("compile schema: %w", err))
	}
	if err := compiled.Validate(payloadDoc); err != nil {
		return orcherr.New(orcherr.InvalidInput, err)
	}
	return nil
}
