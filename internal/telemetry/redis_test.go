package telemetry

import (
	"bytes"
	"context"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisLog(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	var buf bytes.Buffer
	logger := zerolog.New(&buf).Level(zerolog.DebugLevel)
	ctx := logger.WithContext(context.Background())

	client.AddHook(RedisLog{})
	require.NoError(t, client.Set(ctx, "k", "v", 0).Err())
	_, err := client.Get(ctx, "missing").Result()
	require.ErrorIs(t, err, redis.Nil)

	out := buf.String()
	assert.Contains(t, out, `"cmd":"set"`)
	assert.Contains(t, out, `"cmd":"get"`)
	assert.NotContains(t, out, "redis: nil")
}

func TestMonitorRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	require.NoError(t, MonitorRedis(client))
	require.NoError(t, client.Ping(context.Background()).Err())
}
