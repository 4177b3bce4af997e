package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Options tunes a single enqueue. Delay defers visibility; Priority orders
// entries within the ready list (higher first).
type Options struct {
	Delay    time.Duration
	Priority int
}

// Enqueuer is the work-queue collaborator. Delivery is at-least-once;
// consumers must tolerate duplicates.
type Enqueuer interface {
	Enqueue(ctx context.Context, queueName string, payload any, opts *Options) error
}

type envelope struct {
	Payload    json.RawMessage `json:"payload"`
	Priority   int             `json:"priority,omitempty"`
	EnqueuedAt time.Time       `json:"enqueuedAt"`
}

// RedisQueue backs the Enqueuer on Redis: a list per queue for ready work and
// a sorted set keyed by ready-time for delayed work.
type RedisQueue struct {
	rdb *redis.Client
}

func NewRedisQueue(rdb *redis.Client) *RedisQueue { return &RedisQueue{rdb: rdb} }

func (q *RedisQueue) Enqueue(ctx context.Context, queueName string, payload any, opts *Options) error {
	if q.rdb == nil {
		return fmt.Errorf("redis client not configured")
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload for %s: %w", queueName, err)
	}
	env := envelope{Payload: raw, EnqueuedAt: time.Now().UTC()}
	if opts != nil {
		env.Priority = opts.Priority
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal envelope for %s: %w", queueName, err)
	}

	if opts != nil && opts.Delay > 0 {
		readyAt := time.Now().Add(opts.Delay)
		if err := q.rdb.ZAdd(ctx, queueName+":delayed", redis.Z{
			Score:  float64(readyAt.UnixMilli()),
			Member: string(body),
		}).Err(); err != nil {
			return fmt.Errorf("enqueue delayed %s: %w", queueName, err)
		}
		return nil
	}

	if err := q.rdb.LPush(ctx, queueName, string(body)).Err(); err != nil {
		return fmt.Errorf("enqueue %s: %w", queueName, err)
	}
	return nil
}

// promoteScript atomically moves due members from the delayed set onto the
// ready list.
var promoteScript = redis.NewScript(`
local due = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, tonumber(ARGV[2]))
for _, m in ipairs(due) do
  redis.call('ZREM', KEYS[1], m)
  redis.call('LPUSH', KEYS[2], m)
end
return #due
`)

// PromoteDue moves up to batch due delayed entries onto the ready list and
// returns how many were promoted.
func (q *RedisQueue) PromoteDue(ctx context.Context, queueName string, batch int) (int, error) {
	if batch <= 0 {
		batch = 100
	}
	now := strconv.FormatInt(time.Now().UnixMilli(), 10)
	n, err := promoteScript.Run(ctx, q.rdb,
		[]string{queueName + ":delayed", queueName}, now, batch).Int()
	if err != nil {
		return 0, fmt.Errorf("promote due %s: %w", queueName, err)
	}
	return n, nil
}

// StartPromoter ticks until ctx is done, promoting due delayed work for the
// given queues.
func (q *RedisQueue) StartPromoter(ctx context.Context, interval time.Duration, queues ...string) {
	if interval <= 0 {
		interval = time.Second
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			for _, name := range queues {
				if _, err := q.PromoteDue(ctx, name, 100); err != nil {
					log.Error().Err(err).Str("queue", name).Msg("promote due failed")
				}
			}
		}
	}
}

// NoopEnqueuer drops everything. Used in tests and when Redis is absent.
type NoopEnqueuer struct{}

func (NoopEnqueuer) Enqueue(ctx context.Context, queueName string, payload any, opts *Options) error {
	return nil
}
