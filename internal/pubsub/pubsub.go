package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Publisher is the best-effort pub/sub collaborator. No delivery guarantee;
// callers treat publish failures as log-and-continue.
type Publisher interface {
	Publish(ctx context.Context, channel string, event any) error
}

// OrgChannel and MonitorChannel are the two channel families the platform
// publishes on.
func OrgChannel(orgID string) string     { return "org:" + orgID }
func MonitorChannel(monID string) string { return "monitor:" + monID }

type RedisPublisher struct {
	rdb *redis.Client
}

func NewRedisPublisher(rdb *redis.Client) *RedisPublisher { return &RedisPublisher{rdb: rdb} }

func (p *RedisPublisher) Publish(ctx context.Context, channel string, event any) error {
	if p.rdb == nil {
		return fmt.Errorf("redis client not configured")
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event for %s: %w", channel, err)
	}
	return p.rdb.Publish(ctx, channel, string(body)).Err()
}

// NoopPublisher drops events.
type NoopPublisher struct{}

func (NoopPublisher) Publish(ctx context.Context, channel string, event any) error { return nil }
