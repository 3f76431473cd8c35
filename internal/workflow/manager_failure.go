package workflow

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"videoforge/internal/events"
	"videoforge/internal/logging"
	"videoforge/internal/queue"
)

const (
	retryMessagePrefix  = "Retrying... Last error: "
	failedMessagePrefix = queue.FailedMessagePrefix
)

// handleTaskFailure re-queues the task while retries remain and marks it
// FAILED otherwise. A failed write leaves the task in its last durable state.
func (m *Manager) handleTaskFailure(ctx context.Context, logger *slog.Logger, task *queue.Task, taskErr error) {
	m.setLastError(taskErr)
	message := failureMessage(taskErr)

	retries := task.Retries
	if current, err := m.repo.TaskByID(ctx, task.ID); err == nil && current != nil {
		retries = current.Retries
	}

	var (
		update queue.TaskUpdate
		event  events.Event
	)
	if retries < m.settings.maxRetries {
		status := queue.StatusQueued
		progress := 0
		errText := retryMessagePrefix + message
		update = queue.TaskUpdate{
			Status:              &status,
			Progress:            &progress,
			ClearCurrentBitrate: true,
			Error:               &errText,
			IncrementRetries:    true,
		}
		event = events.Event{Type: events.TaskRetrying, Status: string(status), Retries: retries + 1, Error: errText}
		logging.WarnWithContext(logger, "encode failed; task re-queued", "task_retrying",
			logging.Error(taskErr),
			logging.Int("attempt", retries+1),
			logging.Int("max_retries", m.settings.maxRetries),
			logging.String(logging.FieldErrorHint, "inspect the encoder error; the task will be retried"),
			logging.String(logging.FieldImpact, "encode restarts from the beginning"),
		)
	} else {
		status := queue.StatusFailed
		finished := m.now()
		errText := failedMessagePrefix + message
		update = queue.TaskUpdate{
			Status:     &status,
			FinishedAt: &finished,
			Error:      &errText,
		}
		event = events.Event{Type: events.TaskFailed, Status: string(status), Retries: retries, Error: errText}
		logging.ErrorWithContext(logger, "encode failed; retries exhausted", "task_failed",
			logging.Error(taskErr),
			logging.Int("retries", retries),
			logging.String(logging.FieldErrorHint, "check the source file and encoder output, then re-submit the variant"),
			logging.String(logging.FieldImpact, "variant will not be produced"),
		)
	}

	if err := m.repo.UpdateTask(ctx, task.ID, update); err != nil {
		if errors.Is(err, queue.ErrTaskNotFound) {
			logger.Info("task deleted during encode; failure not recorded")
			return
		}
		logging.ErrorWithContext(logger, "failed to persist task failure", "task_failure_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check task database access"),
			logging.String(logging.FieldImpact, "task stays PROCESSING until crash recovery"),
		)
		return
	}

	failed := *task
	failed.Status = *update.Status
	failed.Error = *update.Error
	if update.IncrementRetries {
		failed.Retries = retries + 1
	}
	m.setLastTask(&failed)

	event.TaskID = task.ID
	event.VideoID = task.VideoID
	event.Variant = task.Variant
	m.publish(ctx, event)
}

func failureMessage(err error) string {
	if err == nil {
		return "encode failed without error detail"
	}
	message := strings.TrimSpace(err.Error())
	if message == "" {
		return "encode failed without error detail"
	}
	return message
}
