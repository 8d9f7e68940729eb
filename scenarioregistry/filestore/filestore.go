// Package filestore is a directory-backed scenarioregistry.Store: every
// recognized scenario file (.yaml/.yml/.json) under a root directory is
// loaded through the Loader → Validator → Builder chain once at
// construction, then served from an in-memory cache. SaveScenario/
// DeleteScenario write/remove the backing file, re-running the same chain so
// the in-memory cache never diverges from disk.
package filestore

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/kairos-run/orchestrator/orcherr"
	"github.com/kairos-run/orchestrator/scenario"
	"github.com/kairos-run/orchestrator/scenarioregistry"
	"github.com/kairos-run/orchestrator/schema"
)

// Store is a directory-backed scenarioregistry.Store.
type Store struct {
	dir     string
	schemas *schema.Registry

	mu        sync.RWMutex
	scenarios map[string]*scenario.RuntimeScenario
	paths     map[string]string // lowercase name -> source file path
}

var _ scenarioregistry.Store = (*Store)(nil)

// Open walks dir, loading and building every recognized scenario file. A
// malformed file fails the call with InvalidDefinition context identifying
// the offending path.
func Open(dir string, schemas *schema.Registry) (*Store, error) {
	s := &Store{
		dir:       dir,
		schemas:   schemas,
		scenarios: make(map[string]*scenario.RuntimeScenario),
		paths:     make(map[string]string),
	}

	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !scenario.IsScenarioFile(path) {
			return nil
		}
		return s.loadPath(path)
	})
	if err != nil {
		return nil, orcherr.New(orcherr.InvalidDefinition, fmt.Errorf("load scenario directory %q: %w", dir, err))
	}
	return s, nil
}

func (s *Store) loadPath(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	def, err := scenario.LoadFile(path, raw)
	if err != nil {
		return err
	}
	if errs := scenario.Validate(def); len(errs) > 0 {
		return orcherr.Newf(orcherr.InvalidDefinition, "%s: %v", path, errs)
	}
	rs, err := scenario.Build(def, s.schemas)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(rs.Name)
	s.scenarios[key] = rs
	s.paths[key] = path
	return nil
}

// SaveScenario writes rs as JSON under dir/{name}.json and reloads it into
// the cache.
func (s *Store) SaveScenario(ctx context.Context, rs *scenario.RuntimeScenario) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(rs, "", "  ")
	if err != nil {
		return orcherr.New(orcherr.InvalidDefinition, err)
	}
	path := filepath.Join(s.dir, rs.Name+".json")
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return orcherr.New(orcherr.StorageUnavailable, err)
	}
	s.mu.Lock()
	key := strings.ToLower(rs.Name)
	s.scenarios[key] = rs
	s.paths[key] = path
	s.mu.Unlock()
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

// DeleteScenario removes the scenario's backing file and cache entry.
func (s *Store) DeleteScenario(ctx context.Context, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := strings.ToLower(name)
	s.mu.Lock()
	defer s.mu.Unlock()
	path, ok := s.paths[key]
	if !ok {
		return scenarioregistry.ErrNotFound
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return orcherr.New(orcherr.StorageUnavailable, err)
	}
	delete(s.scenarios, key)
	delete(s.paths, key)
	return nil
}

// ListScenarioNames returns every loaded scenario's name, sorted.
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

// GetAllScenarios returns every loaded scenario.
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
