package workflow

import (
	"context"
	"fmt"

	"videoforge/internal/events"
	"videoforge/internal/logging"
	"videoforge/internal/queue"
)

// Recover repairs every task a previous process left PROCESSING and returns
// how many rows changed. Tasks whose retries are already spent end FAILED
// instead of being requeued. It must run before Start; a second call finds
// nothing to do and returns 0.
func (m *Manager) Recover(ctx context.Context) (int64, error) {
	m.mu.RLock()
	running := m.running
	m.mu.RUnlock()
	if running {
		return 0, fmt.Errorf("crash recovery must run before the scheduler starts")
	}

	result, err := m.repo.RequeueAllProcessing(ctx, queue.RecoveredMessage, m.settings.maxRetries)
	if err != nil {
		return 0, fmt.Errorf("requeue processing tasks: %w", err)
	}
	if result.Total() == 0 {
		m.logger.Debug("no interrupted tasks to recover")
		return 0, nil
	}
	m.logger.Info("recovered interrupted tasks",
		logging.Int64("count", result.Total()),
		logging.Int64("requeued", result.Requeued),
		logging.Int64("failed", result.Failed),
		logging.String(logging.FieldEventType, "tasks_recovered"),
	)
	if result.Failed > 0 {
		logging.WarnWithContext(m.logger, "interrupted tasks exhausted their retries", "tasks_failed_on_recovery",
			logging.Int64("count", result.Failed),
			logging.Int("max_retries", m.settings.maxRetries),
			logging.String(logging.FieldErrorHint, "the source likely crashes the encoder; inspect it before requeueing"),
			logging.String(logging.FieldImpact, "tasks marked FAILED and not retried"),
		)
	}
	m.publish(ctx, events.Event{Type: events.TasksRecovered, Count: result.Total()})
	return result.Total(), nil
}
