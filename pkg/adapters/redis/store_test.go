package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/stepwise/pkg/adapters/redis"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := setup(t)
	ports.RunSnapshotStoreContract(t, redis.NewFromClient(client))
}

func TestRedisStore_TTL(t *testing.T) {
	mr, client := setup(t)
	store := redis.NewFromClient(client, redis.WithTTL(time.Minute), redis.WithPrefix("test:"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "r1", &domain.Snapshot{RunID: "r1", Status: domain.StatusStarted}))
	assert.True(t, mr.Exists("test:r1"))
	assert.Equal(t, time.Minute, mr.TTL("test:r1"))

	mr.FastForward(2 * time.Minute)

	_, err := store.Load(ctx, "r1")
	assert.ErrorIs(t, err, domain.ErrRunNotFound)
}

func TestRedisStore_ListPrunesExpired(t *testing.T) {
	_, client := setup(t)
	ctx := context.Background()

	// A negative TTL scores the entry in the past without writing an expiring key.
	expired := redis.NewFromClient(client, redis.WithTTL(-time.Hour))
	require.NoError(t, expired.Save(ctx, "old", &domain.Snapshot{RunID: "old"}))

	store := redis.NewFromClient(client)
	require.NoError(t, store.Save(ctx, "new", &domain.Snapshot{RunID: "new"}))

	runs, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"new"}, runs)
}
