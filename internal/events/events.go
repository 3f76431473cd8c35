// Package events publishes task lifecycle notifications for external
// consumers. Publishing is best-effort: failures are logged by the caller and
// never change task state.
package events

import (
	"context"
	"time"
)

// Type identifies a lifecycle event.
type Type string

const (
	TaskClaimed    Type = "task_claimed"
	TaskProgress   Type = "task_progress"
	TaskCompleted  Type = "task_completed"
	TaskRetrying   Type = "task_retrying"
	TaskFailed     Type = "task_failed"
	TasksRecovered Type = "tasks_recovered"
)

// Event is the JSON payload published for every lifecycle change.
type Event struct {
	Type       Type      `json:"type"`
	TaskID     string    `json:"taskId,omitempty"`
	VideoID    string    `json:"videoId,omitempty"`
	Variant    string    `json:"variant,omitempty"`
	Status     string    `json:"status,omitempty"`
	Progress   *int      `json:"progress,omitempty"`
	Bitrate    string    `json:"currentBitrate,omitempty"`
	Retries    int       `json:"retries,omitempty"`
	Error      string    `json:"error,omitempty"`
	OutputPath string    `json:"outputPath,omitempty"`
	OutputSize int64     `json:"outputSize,omitempty"`
	Count      int64     `json:"count,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Publisher delivers events to subscribers.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Noop discards every event.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

func (Noop) Close() error { return nil }
