package replicatedstore

import (
	"context"
	"sync"

	"github.com/redis/go-redis/v9"
)

var _ Map = (*RedisMap)(nil)

// RedisMap implements Map directly against a Redis hash (HGET/HSET/HDEL/
// HKEYS), giving every node in a deployment a shared view without requiring
// Pulse's rmap.Map. It keeps a local read cache refreshed on every mutating
// call and on-demand via Refresh, since Map.Get/Keys are synchronous and
// must not block on the network for every read.
type RedisMap struct {
	rdb     *redis.Client
	hashKey string

	mu    sync.RWMutex
	cache map[string]string
}

// NewRedisMap creates a RedisMap backed by the Redis hash named hashKey.
// Call Refresh after construction to pull any pre-existing entries.
func NewRedisMap(rdb *redis.Client, hashKey string) *RedisMap {
	return &RedisMap{rdb: rdb, hashKey: hashKey, cache: make(map[string]string)}
}

// Refresh reloads the entire hash into the local cache.
func (m *RedisMap) Refresh(ctx context.Context) error {
	all, err := m.rdb.HGetAll(ctx, m.hashKey).Result()
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.cache = all
	m.mu.Unlock()
	return nil
}

// Set stores value under key, updating both Redis and the local cache.
func (m *RedisMap) Set(ctx context.Context, key, value string) (string, error) {
	if err := m.rdb.HSet(ctx, m.hashKey, key, value).Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	m.cache[key] = value
	m.mu.Unlock()
	return value, nil
}

// Get reads key from the local cache.
func (m *RedisMap) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.cache[key]
	return v, ok
}

// Delete removes key from Redis and the local cache.
func (m *RedisMap) Delete(ctx context.Context, key string) (string, error) {
	m.mu.RLock()
	prev := m.cache[key]
	m.mu.RUnlock()
	if err := m.rdb.HDel(ctx, m.hashKey, key).Err(); err != nil {
		return "", err
	}
	m.mu.Lock()
	delete(m.cache, key)
	m.mu.Unlock()
	return prev, nil
}

// Keys returns every key currently in the local cache.
func (m *RedisMap) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.cache))
	for k := range m.cache {
		keys = append(keys, k)
	}
	return keys
}
