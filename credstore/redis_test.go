package credstore

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hmacgate/auth"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	store, err := NewRedisStore(context.Background(), RedisConfig{Address: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	return store, mr
}

func TestRedisStore_Lookup(t *testing.T) {
	store, mr := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, mr.Set(DefaultRedisKeyPrefix+"alice", "s3cr3t"))

	t.Run("found", func(t *testing.T) {
		cred, err := store.Lookup(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, "alice", cred.Username)
		assert.Equal(t, []byte("s3cr3t"), []byte(cred.Secret))
	})

	t.Run("missing key", func(t *testing.T) {
		_, err := store.Lookup(ctx, "bob")
		assert.True(t, errors.Is(err, auth.ErrCredentialNotFound))
	})

	t.Run("empty value", func(t *testing.T) {
		require.NoError(t, mr.Set(DefaultRedisKeyPrefix+"carol", ""))
		_, err := store.Lookup(ctx, "carol")
		assert.True(t, errors.Is(err, auth.ErrCredentialNotFound))
	})

	t.Run("rotation is visible immediately", func(t *testing.T) {
		require.NoError(t, store.Put(ctx, "alice", []byte("rotated")))
		cred, err := store.Lookup(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, []byte("rotated"), []byte(cred.Secret))
	})
}

func TestRedisStore_ServerDown(t *testing.T) {
	store, mr := setupTestRedis(t)
	require.NoError(t, store.Ping(context.Background()))

	mr.Close()

	_, err := store.Lookup(context.Background(), "alice")
	require.Error(t, err)
	assert.False(t, errors.Is(err, auth.ErrCredentialNotFound))
	assert.Error(t, store.Ping(context.Background()))
}

func TestRedisStore_CustomPrefix(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewRedisStoreFromClient(rdb, "keys/", time.Second)
	defer store.Close()

	require.NoError(t, mr.Set("keys/alice", "s3cr3t"))
	assert.Equal(t, "keys/alice", store.Key("alice"))

	cred, err := store.Lookup(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, []byte("s3cr3t"), []byte(cred.Secret))
}

func TestNewRedisStore_Unreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	_, err := NewRedisStore(ctx, RedisConfig{Address: "127.0.0.1:1", Timeout: 200 * time.Millisecond})
	assert.Error(t, err)
}
