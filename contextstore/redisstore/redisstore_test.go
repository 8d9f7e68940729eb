package redisstore_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kairos-run/orchestrator/contextstore"
	"github.com/kairos-run/orchestrator/contextstore/redisstore"
)

// getRedis returns a client against REDIS_ADDR, flushed for test isolation.
// Skips the test when REDIS_ADDR is unset, mirroring the project's approach
// of gating real-backend tests behind an explicit opt-in rather than
// spinning up a container per run.
func getRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set, skipping redisstore integration test")
	}
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	require.NoError(t, rdb.FlushDB(context.Background()).Err())
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestSaveAndLoadTurnsNewestFirst(t *testing.T) {
	rdb := getRedis(t)
	ctx := context.Background()
	store, err := redisstore.New(rdb, redisstore.Options{KeyPrefix: "test:"})
	require.NoError(t, err)

	require.NoError(t, store.SaveTurn(ctx, "s1", contextstore.Turn{Role: "user", Content: "first"}, time.Minute))
	require.NoError(t, store.SaveTurn(ctx, "s1", contextstore.Turn{Role: "assistant", Content: "second"}, time.Minute))

	turns, err := store.LoadTurns(ctx, "s1", 10)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "second", turns[0].Content)
	assert.Equal(t, "first", turns[1].Content)
}

func TestLoadTurnsMissingSessionReturnsEmpty(t *testing.T) {
	rdb := getRedis(t)
	store, err := redisstore.New(rdb, redisstore.Options{KeyPrefix: "test:"})
	require.NoError(t, err)

	turns, err := store.LoadTurns(context.Background(), "missing", 5)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestSaveItemAndLoadItem(t *testing.T) {
	rdb := getRedis(t)
	ctx := context.Background()
	store, err := redisstore.New(rdb, redisstore.Options{KeyPrefix: "test:"})
	require.NoError(t, err)

	type payload struct {
		Count int `json:"count"`
	}
	require.NoError(t, store.SaveItem(ctx, "s1", "k1", payload{Count: 3}, time.Minute))

	var got payload
	ok, err := store.LoadItem(ctx, "s1", "k1", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, got.Count)

	missingOK, err := store.LoadItem(ctx, "s1", "nope", &got)
	require.NoError(t, err)
	assert.False(t, missingOK)
}

func TestLoadItemStringUnquotesScalars(t *testing.T) {
	rdb := getRedis(t)
	ctx := context.Background()
	store, err := redisstore.New(rdb, redisstore.Options{KeyPrefix: "test:"})
	require.NoError(t, err)

	require.NoError(t, store.SaveItem(ctx, "s1", "name", "hello", time.Minute))
	str, ok, err := store.LoadItemString(ctx, "s1", "name")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "hello", str)
}

func TestNewRejectsMissingPrefix(t *testing.T) {
	_, err := redisstore.New(redis.NewClient(&redis.Options{}), redisstore.Options{})
	assert.Error(t, err)
}
