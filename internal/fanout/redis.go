package fanout

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/dkeye/LiveState/internal/config"
)

// RedisPublisher publishes events with Redis PUBLISH.
type RedisPublisher struct {
	client redis.UniversalClient
}

func NewRedisPublisher(ctx context.Context, cfg config.RedisConfig) (*RedisPublisher, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisPublisher{client: client}, nil
}

// NewRedisPublisherWithClient wraps an existing client, e.g. a cluster client.
func NewRedisPublisherWithClient(client redis.UniversalClient) *RedisPublisher {
	return &RedisPublisher{client: client}
}

func (r *RedisPublisher) Publish(ctx context.Context, channel string, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	return r.client.Publish(ctx, channel, data).Err()
}

func (r *RedisPublisher) Close() error { return r.client.Close() }
