package notify

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"github.com/guiwebcoder/shopify-order-timestamp-webhook/internal/stages"
)

const DefaultRedisChannel = "order_stage_events"

type RedisPublisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisSink publishes the event as JSON for in-house subscribers.
type RedisSink struct {
	rdb     RedisPublisher
	channel string
}

func NewRedisSink(rdb RedisPublisher, channel string) *RedisSink {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &RedisSink{rdb: rdb, channel: channel}
}

func (s *RedisSink) Name() string { return "redis" }

func (s *RedisSink) Send(ctx context.Context, ev stages.Event) error {
	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.rdb.Publish(ctx, s.channel, payload).Err()
}
