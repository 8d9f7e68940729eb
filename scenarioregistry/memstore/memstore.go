// Package memstore is an in-memory scenarioregistry.Store, grounded on
// registry/store/memory/memory.go's locking and ctx-cancellation idiom.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/kairos-run/orchestrator/scenario"
	"github.com/kairos-run/orchestrator/scenarioregistry"
)

// Store is an in-memory implementation of scenarioregistry.Store. Safe for
// concurrent use.
type Store struct {
	mu        sync.RWMutex
	scenarios map[string]*scenario.RuntimeScenario
}

var _ scenarioregistry.Store = (*Store)(nil)

// New creates an empty in-memory scenario store.
func New() *Store {
	return &Store{scenarios: make(map[string]*scenario.RuntimeScenario)}
}

// SaveScenario stores or replaces rs, keyed case-insensitively by name.
func (s *Store) SaveScenario(ctx context.Context, rs *scenario.RuntimeScenario) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenarios[strings.ToLower(rs.Name)] = rs
	return nil
}

// GetScenario retrieves a scenario by name.
func (s *Store) GetScenario(ctx context.Context, name string) (*scenario.RuntimeScenario, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rs, ok := s.scenarios[strings.ToLower(name)]
	if !ok {
		return nil, scenarioregistry.ErrNotFound
	}
	return rs, nil
}

// DeleteScenario removes a scenario by name.
func (s *Store) DeleteScenario(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(name)
	if _, ok := s.scenarios[key]; !ok {
		return scenarioregistry.ErrNotFound
	}
	delete(s.scenarios, key)
	return nil
}

// ListScenarioNames returns every stored scenario's name, sorted.
func (s *Store) ListScenarioNames(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.scenarios))
	for _, rs := range s.scenarios {
		names = append(names, rs.Name)
	}
	sort.Strings(names)
	return names, nil
}

// GetAllScenarios returns every stored scenario.
func (s *Store) GetAllScenarios(ctx context.Context) ([]*scenario.RuntimeScenario, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*scenario.RuntimeScenario, 0, len(s.scenarios))
	for _, rs := range s.scenarios {
		out = append(out, rs)
	}
	return out, nil
}
