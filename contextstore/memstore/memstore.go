// Package memstore provides an in-memory implementation of contextstore.Store.
//
// Suitable for development, testing, and single-process deployments where
// context does not need to survive a restart.
package memstore

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/kairos-run/orchestrator/contextstore"
	"github.com/kairos-run/orchestrator/orcherr"
)

// Options configures the default TTL for a Store.
type Options struct {
	// DefaultTTL is used when SaveTurn/SaveItem is called with ttl == 0.
	DefaultTTL time.Duration
}

// Store is a sync.Mutex-guarded in-memory implementation of
// contextstore.Store. Safe for concurrent use.
type Store struct {
	mu         sync.Mutex
	defaultTTL time.Duration
	turns      map[string]*turnList
	items      map[string]*item
}

type turnList struct {
	entries []contextstore.Turn
	expires time.Time
}

type item struct {
	raw     json.RawMessage
	expires time.Time
}

// Compile-time check that Store implements contextstore.Store.
var _ contextstore.Store = (*Store)(nil)

// New creates a new in-memory context store.
func New(opts Options) *Store {
	ttl := opts.DefaultTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Store{
		defaultTTL: ttl,
		turns:      make(map[string]*turnList),
		items:      make(map[string]*item),
	}
}

// SaveTurn prepends turn to sessionID's list and resets its TTL.
func (s *Store) SaveTurn(ctx context.Context, sessionID string, turn contextstore.Turn, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return orcherr.New(orcherr.Cancelled, err)
	}
	if ttl < 0 {
		return orcherr.Newf(orcherr.InvalidInput, "ttl must be non-negative")
	}
	if ttl == 0 {
		ttl = s.defaultTTL
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	list, ok := s.turns[sessionID]
	if !ok || isExpired(list.expires) {
		list = &turnList{}
		s.turns[sessionID] = list
	}
	list.entries = append([]contextstore.Turn{turn}, list.entries...)
	list.expires = time.Now().Add(ttl)
	return nil
}

// LoadTurns returns the newest maxTurns entries for sessionID, trimming the
// stored list to that window as a side effect.
func (s *Store) LoadTurns(ctx context.Context, sessionID string, maxTurns int) ([]contextstore.Turn, error) {
	if err := ctx.Err(); err != nil {
		return nil, orcherr.New(orcherr.Cancelled, err)
	}
	if maxTurns <= 0 {
		return nil, orcherr.Newf(orcherr.InvalidInput, "maxTurns must be > 0")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	list, ok := s.turns[sessionID]
	if !ok || isExpired(list.expires) {
		return nil, nil
	}
	if len(list.entries) > maxTurns {
		list.entries = list.entries[:maxTurns]
	}
	out := make([]contextstore.Turn, len(list.entries))
	copy(out, list.entries)
	return out, nil
}

// SaveItem JSON-encodes value and stores it under sessionID+key.
func (s *Store) SaveItem(ctx context.Context, sessionID, key string, value any, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return orcherr.New(orcherr.Cancelled, err)
	}
	if ttl < 0 {
		return orcherr.Newf(orcherr.InvalidInput, "ttl must be non-negative")
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return orcherr.New(orcherr.StorageUnavailable, err)
	}
	if ttl == 0 {
		ttl = s.defaultTTL
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[itemKey(sessionID, key)] = &item{raw: raw, expires: time.Now().Add(ttl)}
	return nil
}

// LoadItem decodes the value stored under sessionID+key into dst.
func (s *Store) LoadItem(ctx context.Context, sessionID, key string, dst any) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, orcherr.New(orcherr.Cancelled, err)
	}
	s.mu.Lock()
	it, ok := s.items[itemKey(sessionID, key)]
	s.mu.Unlock()
	if !ok || isExpired(it.expires) {
		return false, nil
	}
	if err := json.Unmarshal(it.raw, dst); err != nil {
		return false, orcherr.New(orcherr.StorageUnavailable, err)
	}
	return true, nil
}

// LoadItemString returns the raw string form of the value stored under
// sessionID+key.
func (s *Store) LoadItemString(ctx context.Context, sessionID, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, orcherr.New(orcherr.Cancelled, err)
	}
	s.mu.Lock()
	it, ok := s.items[itemKey(sessionID, key)]
	s.mu.Unlock()
	if !ok || isExpired(it.expires) {
		return "", false, nil
	}
	return rawToString(it.raw), true, nil
}

func itemKey(sessionID, key string) string { return sessionID + "\x00" + key }

func isExpired(t time.Time) bool { return !t.IsZero() && time.Now().After(t) }

// rawToString renders a JSON-encoded scalar as a plain string (unquoting
// JSON strings), or returns the raw JSON text for objects/arrays.
func rawToString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
