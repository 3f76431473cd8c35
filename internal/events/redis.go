package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"videoforge/internal/config"
)

// statusTTL bounds how long per-task status hashes outlive their last update.
const statusTTL = 24 * time.Hour

// RedisPublisher publishes events on a pub/sub channel and mirrors the latest
// task state into a "<channel>:task:<id>" hash for pollers.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	now     func() time.Time
}

// NewRedisPublisher wraps an existing client.
func NewRedisPublisher(client *redis.Client, channel string) *RedisPublisher {
	return &RedisPublisher{client: client, channel: channel, now: time.Now}
}

// NewFromConfig returns a Redis publisher when events.redis_url is set and a
// Noop publisher otherwise. The connection is verified with PING.
func NewFromConfig(ctx context.Context, cfg *config.Config) (Publisher, error) {
	if cfg == nil || strings.TrimSpace(cfg.Events.RedisURL) == "" {
		return Noop{}, nil
	}
	opts, err := redis.ParseURL(cfg.Events.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse events.redis_url: %w", err)
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return NewRedisPublisher(client, cfg.Events.Channel), nil
}

// Publish sends event on the channel and updates the task status hash.
func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = p.now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	pipe := p.client.TxPipeline()
	pipe.Publish(ctx, p.channel, payload)
	if event.TaskID != "" {
		key := p.statusKey(event.TaskID)
		fields := []any{"type", string(event.Type), "updated_at", event.Timestamp.Format(time.RFC3339Nano)}
		if event.Status != "" {
			fields = append(fields, "status", event.Status)
		}
		if event.Progress != nil {
			fields = append(fields, "progress", *event.Progress)
		}
		if event.Error != "" {
			fields = append(fields, "error", event.Error)
		}
		pipe.HSet(ctx, key, fields...)
		pipe.Expire(ctx, key, statusTTL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}

func (p *RedisPublisher) statusKey(taskID string) string {
	return p.channel + ":task:" + taskID
}

// Close releases the Redis connection pool.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
