package api

import (
	"context"

	"videoforge/internal/queue"
)

// QueueReader abstracts the task queries needed for listings.
type QueueReader interface {
	ListTasks(ctx context.Context, statuses ...queue.Status) ([]*queue.Task, error)
	Stats(ctx context.Context) (queue.Stats, error)
	TaskByID(ctx context.Context, id string) (*queue.Task, error)
}

// QueueService exposes read-only task operations returning API DTOs.
type QueueService struct {
	store QueueReader
}

// NewQueueService constructs a QueueService around the provided reader.
func NewQueueService(store QueueReader) *QueueService {
	if store == nil {
		return nil
	}
	return &QueueService{store: store}
}

// List returns tasks filtered by status, oldest first.
func (s *QueueService) List(ctx context.Context, statuses ...queue.Status) ([]Task, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	tasks, err := s.store.ListTasks(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromTasks(tasks), nil
}

// Stats returns task counts keyed by status string.
func (s *QueueService) Stats(ctx context.Context) (map[string]int, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return MergeQueueStats(stats.ByStatus), nil
}

// Describe fetches a single task, or nil when it does not exist.
func (s *QueueService) Describe(ctx context.Context, id string) (*Task, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	task, err := s.store.TaskByID(ctx, id)
	if err != nil || task == nil {
		return nil, err
	}
	dto := FromTask(task)
	return &dto, nil
}
