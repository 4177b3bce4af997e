package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisLiveness mirrors heartbeat timestamps into Redis with a TTL so
// read-side dashboards can show probe liveness without hitting Postgres.
// Flagging or disabling silent probes is not done here.
type RedisLiveness struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedisLiveness(rdb *redis.Client, ttl time.Duration) *RedisLiveness {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &RedisLiveness{rdb: rdb, ttl: ttl}
}

func (l *RedisLiveness) MarkAlive(ctx context.Context, probeID string, at time.Time) error {
	if l.rdb == nil {
		return nil
	}
	return l.rdb.Set(ctx, "probe:alive:"+probeID, at.Format(time.RFC3339), l.ttl).Err()
}
