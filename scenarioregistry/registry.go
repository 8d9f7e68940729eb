package scenarioregistry

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/kairos-run/orchestrator/orcherr"
	"github.com/kairos-run/orchestrator/scenario"
)

// Registry aggregates an ordered list of Stores behind a single concurrent,
// case-insensitive cache. It is the Go rendition of the teacher's
// registry.Service cache-plus-multi-store shape, generalized to
// scenario.RuntimeScenario.
type Registry struct {
	stores []Store

	mu    sync.RWMutex
	cache map[string]*scenario.RuntimeScenario

	ready     chan struct{}
	readyOnce sync.Once
	warmErr   error
}

// New creates a Registry over stores (declaration order fixes
// last-writer-wins precedence on name collisions during warm-up) and starts
// an asynchronous warm-up that loads every store concurrently.
func New(ctx context.Context, stores ...Store) *Registry {
	r := &Registry{
		stores: stores,
		cache:  make(map[string]*scenario.RuntimeScenario),
		ready:  make(chan struct{}),
	}
	go r.warmUp(ctx)
	return r
}

func (r *Registry) warmUp(ctx context.Context) {
	defer r.readyOnce.Do(func() { close(r.ready) })

	loaded := make([][]*scenario.RuntimeScenario, len(r.stores))
	g, gctx := errgroup.WithContext(ctx)
	for i, store := range r.stores {
		i, store := i, store
		g.Go(func() error {
			all, err := store.GetAllScenarios(gctx)
			if err != nil {
				return err
			}
			loaded[i] = all
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		r.warmErr = err
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	for _, all := range loaded {
		for _, rs := range all {
			r.cache[strings.ToLower(rs.Name)] = rs
		}
	}
}

// awaitWarmUp blocks until warm-up completes or ctx is cancelled.
func (r *Registry) awaitWarmUp(ctx context.Context) error {
	select {
	case <-r.ready:
		return r.warmErr
	case <-ctx.Done():
		return orcherr.New(orcherr.Cancelled, ctx.Err())
	}
}

// GetScenario returns the scenario named name, checking the cache first and
// falling back to a concurrent fan-out across every store on a miss.
func (r *Registry) GetScenario(ctx context.Context, name string) (*scenario.RuntimeScenario, error) {
	if err := r.awaitWarmUp(ctx); err != nil {
		return nil, err
	}

	key := strings.ToLower(name)
	if rs, ok := r.cacheGet(key); ok {
		return rs, nil
	}

	type found struct {
		rs *scenario.RuntimeScenario
	}
	results := make([]found, len(r.stores))
	g, gctx := errgroup.WithContext(ctx)
	for i, store := range r.stores {
		i, store := i, store
		g.Go(func() error {
			rs, err := store.GetScenario(gctx, name)
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			results[i] = found{rs: rs}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, orcherr.New(orcherr.StorageUnavailable, err).WithScenarioName(name)
	}

	r.mu.Lock()
	for _, f := range results {
		if f.rs != nil {
			r.cache[strings.ToLower(f.rs.Name)] = f.rs
		}
	}
	r.mu.Unlock()

	if rs, ok := r.cacheGet(key); ok {
		return rs, nil
	}
	return nil, orcherr.Newf(orcherr.NotFound, "scenario %q not found", name).WithScenarioName(name)
}

// ListScenarioNames returns the cache's scenario names, sorted. It does not
// trigger a store fan-out beyond warm-up.
func (r *Registry) ListScenarioNames(ctx context.Context) ([]string, error) {
	if err := r.awaitWarmUp(ctx); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.cache))
	for _, rs := range r.cache {
		names = append(names, rs.Name)
	}
	sort.Strings(names)
	return names, nil
}

func (r *Registry) cacheGet(key string) (*scenario.RuntimeScenario, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rs, ok := r.cache[key]
	return rs, ok
}
