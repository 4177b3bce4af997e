package queue

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRedis(t *testing.T) *redis.Client {
	t.Helper()
	rdb := redis.NewClient(&redis.Options{Addr: "localhost:6379", DB: 15})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		t.Skipf("redis not available: %v", err)
	}
	return rdb
}

func TestEnqueueImmediate(t *testing.T) {
	rdb := testRedis(t)
	defer rdb.Close()
	ctx := context.Background()
	const name = "test:queue:immediate"
	rdb.Del(ctx, name, name+":delayed")
	defer rdb.Del(ctx, name, name+":delayed")

	q := NewRedisQueue(rdb)
	require.NoError(t, q.Enqueue(ctx, name, map[string]string{"k": "v"}, nil))

	body, err := rdb.RPop(ctx, name).Result()
	require.NoError(t, err)

	var env envelope
	require.NoError(t, json.Unmarshal([]byte(body), &env))
	assert.JSONEq(t, `{"k":"v"}`, string(env.Payload))
	assert.False(t, env.EnqueuedAt.IsZero())
}

func TestEnqueueDelayedAndPromote(t *testing.T) {
	rdb := testRedis(t)
	defer rdb.Close()
	ctx := context.Background()
	const name = "test:queue:delayed"
	rdb.Del(ctx, name, name+":delayed")
	defer rdb.Del(ctx, name, name+":delayed")

	q := NewRedisQueue(rdb)

	t.Run("delayed entry is invisible until due", func(t *testing.T) {
		require.NoError(t, q.Enqueue(ctx, name, "later", &Options{Delay: time.Hour}))

		ready, err := rdb.LLen(ctx, name).Result()
		require.NoError(t, err)
		assert.Zero(t, ready)

		n, err := q.PromoteDue(ctx, name, 100)
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("due entry is promoted onto the ready list", func(t *testing.T) {
		require.NoError(t, q.Enqueue(ctx, name, "now", &Options{Delay: time.Millisecond}))
		time.Sleep(10 * time.Millisecond)

		n, err := q.PromoteDue(ctx, name, 100)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		ready, err := rdb.LLen(ctx, name).Result()
		require.NoError(t, err)
		assert.Equal(t, int64(1), ready)
	})
}

func TestNoopEnqueuer(t *testing.T) {
	assert.NoError(t, NoopEnqueuer{}.Enqueue(context.Background(), "anything", nil, nil))
}
