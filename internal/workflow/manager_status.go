package workflow

import (
	"context"

	"videoforge/internal/logging"
	"videoforge/internal/queue"
)

// StatusSummary is a point-in-time view of the scheduler.
type StatusSummary struct {
	Running     bool
	InFlight    int
	Concurrency int
	LastError   string
	LastTask    *queue.Task
	QueueStats  queue.Stats
}

// Status returns the latest scheduler information. Queue stats are omitted
// when the repository cannot be read.
func (m *Manager) Status(ctx context.Context) StatusSummary {
	m.mu.RLock()
	summary := StatusSummary{
		Running:     m.running,
		InFlight:    m.InFlight(),
		Concurrency: m.settings.concurrency,
	}
	if m.lastErr != nil {
		summary.LastError = m.lastErr.Error()
	}
	if m.lastTask != nil {
		copy := *m.lastTask
		summary.LastTask = &copy
	}
	m.mu.RUnlock()

	stats, err := m.repo.Stats(ctx)
	if err != nil {
		m.logger.Warn("failed to read queue stats", logging.Error(err))
		return summary
	}
	summary.QueueStats = stats
	return summary
}

func (m *Manager) setLastError(err error) {
	m.mu.Lock()
	m.lastErr = err
	m.mu.Unlock()
}

func (m *Manager) setLastTask(task *queue.Task) {
	m.mu.Lock()
	if task != nil {
		copy := *task
		m.lastTask = &copy
	} else {
		m.lastTask = nil
	}
	m.mu.Unlock()
}
