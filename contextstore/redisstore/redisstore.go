// Package redisstore implements contextstore.Store on top of a *redis.Client,
// giving context entries real cross-process TTL semantics. Turn lists use an
// LPUSH+LTRIM+EXPIRE pipeline so the prepend, window trim, and TTL reset
// commit as one atomic unit; items are plain GET/SET/EXPIRE.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/kairos-run/orchestrator/contextstore"
	"github.com/kairos-run/orchestrator/orcherr"
)

// Options configures the Redis-backed context store.
type Options struct {
	// KeyPrefix namespaces every key written by this store (non-empty).
	KeyPrefix string
	// DefaultTTL is used when SaveTurn/SaveItem is called with ttl == 0.
	DefaultTTL time.Duration
	// MaxWindow bounds how many turns LPUSH/LTRIM retains per session,
	// independent of any particular LoadTurns call's maxTurns. Defaults to
	// 256 when zero.
	MaxWindow int64
}

// Store is a Redis-backed contextstore.Store.
type Store struct {
	rdb        *redis.Client
	prefix     string
	defaultTTL time.Duration
	maxWindow  int64
}

var _ contextstore.Store = (*Store)(nil)

// New creates a Redis-backed context store. rdb must be non-nil and
// opts.KeyPrefix non-empty.
func New(rdb *redis.Client, opts Options) (*Store, error) {
	if rdb == nil {
		return nil, errors.New("redis client is required")
	}
	if opts.KeyPrefix == "" {
		return nil, errors.New("key prefix is required")
	}
	ttl := opts.DefaultTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	window := opts.MaxWindow
	if window <= 0 {
		window = 256
	}
	return &Store{rdb: rdb, prefix: opts.KeyPrefix, defaultTTL: ttl, maxWindow: window}, nil
}

// SaveTurn prepends turn to sessionID's list, trims it to the configured
// window, and resets the key's TTL — all inside one transaction pipeline.
func (s *Store) SaveTurn(ctx context.Context, sessionID string, turn contextstore.Turn, ttl time.Duration) error {
	if ttl < 0 {
		return orcherr.Newf(orcherr.InvalidInput, "ttl must be non-negative")
	}
	if ttl == 0 {
		ttl = s.defaultTTL
	}
	raw, err := json.Marshal(turn)
	if err != nil {
		return orcherr.New(orcherr.StorageUnavailable, err)
	}
	key := s.turnKey(sessionID)
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.LPush(ctx, key, raw)
		pipe.LTrim(ctx, key, 0, s.maxWindow-1)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	if err != nil {
		return orcherr.New(orcherr.StorageUnavailable, fmt.Errorf("save turn: %w", err))
	}
	return nil
}

// LoadTurns returns the newest maxTurns entries for sessionID.
func (s *Store) LoadTurns(ctx context.Context, sessionID string, maxTurns int) ([]contextstore.Turn, error) {
	if maxTurns <= 0 {
		return nil, orcherr.Newf(orcherr.InvalidInput, "maxTurns must be > 0")
	}
	raws, err := s.rdb.LRange(ctx, s.turnKey(sessionID), 0, int64(maxTurns)-1).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, orcherr.New(orcherr.StorageUnavailable, fmt.Errorf("load turns: %w", err))
	}
	out := make([]contextstore.Turn, 0, len(raws))
	for _, raw := range raws {
		var t contextstore.Turn
		if err := json.Unmarshal([]byte(raw), &t); err != nil {
			return nil, orcherr.New(orcherr.StorageUnavailable, err)
		}
		out = append(out, t)
	}
	return out, nil
}

// SaveItem JSON-encodes value and stores it under sessionID+key with a TTL.
func (s *Store) SaveItem(ctx context.Context, sessionID, key string, value any, ttl time.Duration) error {
	if ttl < 0 {
		return orcherr.Newf(orcherr.InvalidInput, "ttl must be non-negative")
	}
	if ttl == 0 {
		ttl = s.defaultTTL
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return orcherr.New(orcherr.StorageUnavailable, err)
	}
	if err := s.rdb.Set(ctx, s.itemKey(sessionID, key), raw, ttl).Err(); err != nil {
		return orcherr.New(orcherr.StorageUnavailable, fmt.Errorf("save item: %w", err))
	}
	return nil
}

// LoadItem decodes the value stored under sessionID+key into dst.
func (s *Store) LoadItem(ctx context.Context, sessionID, key string, dst any) (bool, error) {
	raw, err := s.rdb.Get(ctx, s.itemKey(sessionID, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, orcherr.New(orcherr.StorageUnavailable, fmt.Errorf("load item: %w", err))
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, orcherr.New(orcherr.StorageUnavailable, err)
	}
	return true, nil
}

// LoadItemString returns the raw string form of the value stored under
// sessionID+key.
func (s *Store) LoadItemString(ctx context.Context, sessionID, key string) (string, bool, error) {
	raw, err := s.rdb.Get(ctx, s.itemKey(sessionID, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, orcherr.New(orcherr.StorageUnavailable, fmt.Errorf("load item: %w", err))
	}
	var str string
	if json.Unmarshal(raw, &str) == nil {
		return str, true, nil
	}
	return string(raw), true, nil
}

func (s *Store) turnKey(sessionID string) string {
	return s.prefix + "turns:" + sessionID
}

func (s *Store) itemKey(sessionID, key string) string {
	return s.prefix + "items:" + sessionID + ":" + key
}
