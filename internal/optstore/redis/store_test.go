package redis_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/layertree/internal/optstore"
	"github.com/dgallion1/layertree/internal/optstore/redis"
	"github.com/dgallion1/layertree/internal/walker"
)

func setup(t *testing.T) (*miniredis.Miniredis, *redis.Store) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	store := redis.NewFromClient(client, "")
	t.Cleanup(func() { store.Close() })
	return mr, store
}

func TestRedisStore_RoundTrip(t *testing.T) {
	ctx := context.Background()
	mr, store := setup(t)

	require.NoError(t, store.Ping(ctx))

	_, ok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.False(t, ok, "nothing saved yet")

	want := walker.Options{SimpleNamesOnly: true, IncludeText: false, HideHidden: true}
	require.NoError(t, store.Save(ctx, want))

	raw, err := mr.Get(redis.DefaultKey)
	require.NoError(t, err)
	assert.JSONEq(t, `{"simpleNamesOnly":true,"includeText":false,"hideHidden":true}`, raw)

	got, ok, err := store.Load(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)
}

func TestRedisStore_CorruptValue(t *testing.T) {
	mr, store := setup(t)
	require.NoError(t, mr.Set(redis.DefaultKey, "not json"))

	_, _, err := store.Load(context.Background())
	assert.Error(t, err)
}

func TestRedisStore_Unreachable(t *testing.T) {
	mr, store := setup(t)
	mr.Close()

	err := store.Save(context.Background(), walker.DefaultOptions())
	assert.Error(t, err)
}

var _ optstore.Store = (*redis.Store)(nil)
