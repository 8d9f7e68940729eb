// Package replicatedstore persists runtime scenarios in a replicated map,
// grounded on registry/store/replicated/replicated.go. The teacher's Map is
// satisfied by Pulse's rmap.Map; since Pulse is out of scope here (see
// DESIGN.md), Map is instead satisfied by RedisMap, a thin shim over a
// single Redis hash.
package replicatedstore

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/kairos-run/orchestrator/orcherr"
	"github.com/kairos-run/orchestrator/scenario"
	"github.com/kairos-run/orchestrator/scenarioregistry"
)

// Map is the minimal replicated-map contract the replicated store needs.
// Implementations must be safe for concurrent use.
type Map interface {
	Delete(ctx context.Context, key string) (string, error)
	Get(key string) (string, bool)
	Keys() []string
	Set(ctx context.Context, key, value string) (string, error)
}

const scenarioKeyPrefix = "registry:scenario:"

// Store persists runtime scenarios in a replicated Map.
type Store struct {
	m Map
}

var _ scenarioregistry.Store = (*Store)(nil)

// New creates a replicated store backed by m.
func New(m Map) *Store {
	return &Store{m: m}
}

// SaveScenario stores or updates rs.
func (s *Store) SaveScenario(ctx context.Context, rs *scenario.RuntimeScenario) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b, err := json.Marshal(rs)
	if err != nil {
		return orcherr.New(orcherr.InvalidDefinition, fmt.Errorf("marshal scenario %q: %w", rs.Name, err))
	}
	if _, err := s.m.Set(ctx, scenarioKey(rs.Name), string(b)); err != nil {
		return orcherr.New(orcherr.StorageUnavailable, fmt.Errorf("store scenario %q: %w", rs.Name, err))
	}
	return nil
}

// GetScenario retrieves a scenario by name.
func (s *Store) GetScenario(ctx context.Context, name string) (*scenario.RuntimeScenario, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	val, ok := s.m.Get(scenarioKey(name))
	if !ok {
		return nil, scenarioregistry.ErrNotFound
	}
	var rs scenario.RuntimeScenario
	if err := json.Unmarshal([]byte(val), &rs); err != nil {
		return nil, orcherr.New(orcherr.StorageUnavailable, fmt.Errorf("unmarshal scenario %q: %w", name, err))
	}
	return &rs, nil
}

// DeleteScenario removes a scenario by name.
func (s *Store) DeleteScenario(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := scenarioKey(name)
	if _, ok := s.m.Get(key); !ok {
		return scenarioregistry.ErrNotFound
	}
	if _, err := s.m.Delete(ctx, key); err != nil {
		return orcherr.New(orcherr.StorageUnavailable, fmt.Errorf("delete scenario %q: %w", name, err))
	}
	return nil
}

// ListScenarioNames returns every stored scenario's name, sorted.
func (s *Store) ListScenarioNames(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	names := make([]string, 0)
	for _, k := range s.m.Keys() {
		if name, ok := strings.CutPrefix(k, scenarioKeyPrefix); ok {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return names, nil
}

// GetAllScenarios returns every stored scenario.
func (s *Store) GetAllScenarios(ctx context.Context) ([]*scenario.RuntimeScenario, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	names, err := s.ListScenarioNames(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*scenario.RuntimeScenario, 0, len(names))
	for _, name := range names {
		rs, err := s.GetScenario(ctx, name)
		if err != nil {
			return nil, err
		}
		out = append(out, rs)
	}
	return out, nil
}

func scenarioKey(name string) string {
	return scenarioKeyPrefix + name
}
