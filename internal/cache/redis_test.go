package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/fintrack-gateway/internal/config"
)

func setupRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)

	t.Cleanup(func() { mr.Close() })

	cfg := config.RedisConnection{
		AddressRedis: mr.Addr(),
		Password:     "",
		DB:           0,
		User:         "",
		EntryTTL:     time.Minute,
	}

	store, err := InitServer(context.Background(), cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestRedisStore_SetAndGet(t *testing.T) {
	store, mr := setupRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "admin/users", []byte(`{"items":[]}`)))

	got, found, err := store.Get(ctx, "admin/users")
	require.NoError(t, err)
	require.True(t, found)
	assert.JSONEq(t, `{"items":[]}`, string(got))

	assert.True(t, mr.Exists(redisKeyPrefix+"admin/users"))
	assert.Equal(t, time.Minute, mr.TTL(redisKeyPrefix+"admin/users"))
}

func TestRedisStore_GetNotFound(t *testing.T) {
	store, _ := setupRedisStore(t)

	got, found, err := store.Get(context.Background(), "no_such_key")
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, got)
}

func TestRedisStore_Delete(t *testing.T) {
	store, _ := setupRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "key", []byte(`"value"`)))
	require.NoError(t, store.Delete(ctx, "key"))

	_, found, err := store.Get(ctx, "key")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisStore_ExpiredEntryIsMiss(t *testing.T) {
	store, mr := setupRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "key", []byte(`1`)))
	mr.FastForward(2 * time.Minute)

	_, found, err := store.Get(ctx, "key")
	require.NoError(t, err)
	assert.False(t, found)
}

func TestInitServerInvalidAddr(t *testing.T) {
	cfg := config.RedisConnection{
		AddressRedis: "127.0.0.1:9999",
		DialTimeout:  100 * time.Millisecond,
	}

	store, err := InitServer(context.Background(), cfg)
	assert.Nil(t, store)
	assert.Error(t, err)
}

func TestRedisStore_Ping(t *testing.T) {
	store, mr := setupRedisStore(t)
	require.NoError(t, store.Ping(context.Background()))

	mr.SetError("ERR store unavailable")
	assert.Error(t, store.Ping(context.Background()))
}
