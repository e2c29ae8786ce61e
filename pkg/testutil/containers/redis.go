//go:build integration

// Package containers starts throwaway dependencies for integration tests.
package containers

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"attendance/internal/platform/config"
	platformredis "attendance/internal/platform/redis"
)

const redisImage = "redis:7-alpine"

// Redis is a disposable Redis server and a client connected to it.
type Redis struct {
	URL    string
	Client *redis.Client
}

// StartRedis runs a Redis container for the calling test. The client is
// opened through the platform redis package, the same path enrollctl uses.
// Both are torn down when the test ends.
func StartRedis(t *testing.T) *Redis {
	t.Helper()
	ctx := context.Background()

	ctr, err := tcredis.Run(ctx, redisImage)
	require.NoError(t, err, "start redis container")
	t.Cleanup(func() {
		_ = testcontainers.TerminateContainer(ctr)
	})

	url, err := ctr.ConnectionString(ctx)
	require.NoError(t, err, "redis connection string")

	// room for the concurrent acquire tests
	client, err := platformredis.Open(ctx, config.RedisConfig{URL: url, PoolSize: 32}, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = client.Close()
	})

	return &Redis{URL: url, Client: client}
}

// Reset empties the database between tests sharing a server.
func (r *Redis) Reset(t *testing.T) {
	t.Helper()
	require.NoError(t, r.Client.FlushDB(context.Background()).Err())
}
