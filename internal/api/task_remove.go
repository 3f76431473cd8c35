package api

import (
	"context"
	"errors"

	"videoforge/internal/services"
)

// TaskDeleter captures the delete operation needed by bulk removal.
type TaskDeleter interface {
	DeleteTask(ctx context.Context, taskID string) error
}

type RemoveTaskOutcome string

const (
	RemoveTaskRemoved  RemoveTaskOutcome = "removed"
	RemoveTaskNotFound RemoveTaskOutcome = "not_found"
)

type RemoveTaskResult struct {
	ID      string            `json:"id"`
	Outcome RemoveTaskOutcome `json:"outcome"`
}

type RemoveTasksResult struct {
	RemovedCount int                `json:"removedCount"`
	Tasks        []RemoveTaskResult `json:"tasks"`
}

// RemoveTasksByID deletes tasks one by one so each ID reports removed or
// not_found. Any other error aborts.
func RemoveTasksByID(ctx context.Context, deleter TaskDeleter, ids []string) (RemoveTasksResult, error) {
	result := RemoveTasksResult{Tasks: make([]RemoveTaskResult, 0, len(ids))}
	for _, id := range ids {
		err := deleter.DeleteTask(ctx, id)
		switch {
		case err == nil:
			result.RemovedCount++
			result.Tasks = append(result.Tasks, RemoveTaskResult{ID: id, Outcome: RemoveTaskRemoved})
		case errors.Is(err, services.ErrNotFound):
			result.Tasks = append(result.Tasks, RemoveTaskResult{ID: id, Outcome: RemoveTaskNotFound})
		default:
			return RemoveTasksResult{}, err
		}
	}
	return result, nil
}
