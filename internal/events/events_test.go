package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"videoforge/internal/config"
	"videoforge/internal/events"
)

func TestNewFromConfigWithoutURLIsNoop(t *testing.T) {
	cfg := config.Default()
	pub, err := events.NewFromConfig(context.Background(), &cfg)
	require.NoError(t, err)
	assert.IsType(t, events.Noop{}, pub)
	assert.NoError(t, pub.Publish(context.Background(), events.Event{Type: events.TaskClaimed}))
	assert.NoError(t, pub.Close())
}

func TestNewFromConfigRejectsInvalidURL(t *testing.T) {
	cfg := config.Default()
	cfg.Events.RedisURL = "http://not-redis"
	_, err := events.NewFromConfig(context.Background(), &cfg)
	assert.ErrorContains(t, err, "events.redis_url")
}

func TestNewFromConfigFailsWhenUnreachable(t *testing.T) {
	cfg := config.Default()
	cfg.Events.RedisURL = "redis://127.0.0.1:1/0"
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_, err := events.NewFromConfig(ctx, &cfg)
	assert.ErrorContains(t, err, "connect to redis")
}

func TestEventJSONUsesAPIFieldNames(t *testing.T) {
	progress := 0
	payload, err := json.Marshal(events.Event{
		Type:      events.TaskProgress,
		TaskID:    "t1",
		Progress:  &progress,
		Bitrate:   "900 kbps",
		Timestamp: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(payload, &decoded))
	assert.Equal(t, "task_progress", decoded["type"])
	assert.Equal(t, "t1", decoded["taskId"])
	assert.Equal(t, float64(0), decoded["progress"], "zero progress must be published")
	assert.Equal(t, "900 kbps", decoded["currentBitrate"])
	assert.NotContains(t, decoded, "error")
}
