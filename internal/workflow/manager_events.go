package workflow

import (
	"context"
	"errors"

	"videoforge/internal/events"
	"videoforge/internal/logging"
)

// publish sends a lifecycle event. Failures are logged and never affect task state.
func (m *Manager) publish(ctx context.Context, event events.Event) {
	if m.publisher == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = m.now().UTC()
	}
	if err := m.publisher.Publish(ctx, event); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		m.logger.Debug("event publish failed",
			logging.String("event", string(event.Type)),
			logging.String(logging.FieldTaskID, event.TaskID),
			logging.Error(err),
		)
	}
}
