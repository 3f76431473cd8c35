package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"videoforge/internal/events"
	"videoforge/internal/logging"
	"videoforge/internal/queue"
)

// Start begins claiming tasks. Encodes run under ctx, so cancelling it
// interrupts them; Stop only ends the claim loop.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return errors.New("scheduler already running")
	}
	loopCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	m.cancel = cancel
	m.loopDone = done
	m.running = true
	m.mu.Unlock()

	m.logger.Info("scheduler started",
		logging.Int("concurrency", m.settings.concurrency),
		logging.Duration("idle_poll_interval", m.settings.idlePollInterval),
		logging.String(logging.FieldEventType, "scheduler_started"),
	)
	go m.run(loopCtx, ctx, done)
	return nil
}

// Stop ends the claim loop and waits for it to exit. In-flight encodes are
// not interrupted.
func (m *Manager) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	cancel := m.cancel
	done := m.loopDone
	m.running = false
	m.cancel = nil
	m.mu.Unlock()

	cancel()
	<-done
	m.logger.Info("scheduler stopped",
		logging.Int("in_flight", m.InFlight()),
		logging.String(logging.FieldEventType, "scheduler_stopped"),
	)
}

// WaitIdle blocks until no encode is in flight or ctx ends.
func (m *Manager) WaitIdle(ctx context.Context) error {
	ticker := time.NewTicker(20 * time.Millisecond)
	defer ticker.Stop()
	for m.inFlight.Load() > 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

func (m *Manager) run(loopCtx, taskCtx context.Context, done chan struct{}) {
	defer close(done)
	for {
		if loopCtx.Err() != nil {
			return
		}
		wait, err := m.iterate(loopCtx, taskCtx)
		if err != nil {
			if loopCtx.Err() != nil {
				return
			}
			m.handleLoopError(err)
			wait = m.settings.errorRetryInterval
		}
		if !sleep(loopCtx, wait) {
			return
		}
	}
}

// iterate performs one scheduling step and returns how long to wait before
// the next one.
func (m *Manager) iterate(loopCtx, taskCtx context.Context) (time.Duration, error) {
	if m.inFlight.Load() >= int64(m.settings.concurrency) {
		return m.settings.busyPollInterval, nil
	}
	if !m.hasCapacity(loopCtx) {
		return m.settings.busyPollInterval, nil
	}

	task, err := m.repo.FindOldestQueued(loopCtx)
	if err != nil {
		return 0, fmt.Errorf("find queued task: %w", err)
	}
	if task == nil {
		return m.settings.idlePollInterval, nil
	}

	claimed, err := m.repo.ClaimTask(loopCtx, task.ID)
	if err != nil {
		return 0, fmt.Errorf("claim task %s: %w", task.ID, err)
	}
	if !claimed {
		m.logger.Debug("task claimed elsewhere; skipping",
			logging.String(logging.FieldTaskID, task.ID),
		)
		return 0, nil
	}

	m.inFlight.Add(1)
	m.publish(taskCtx, events.Event{
		Type:    events.TaskClaimed,
		TaskID:  task.ID,
		VideoID: task.VideoID,
		Variant: task.Variant,
		Status:  string(queue.StatusProcessing),
		Retries: task.Retries,
	})
	go m.runTask(taskCtx, task.ID)
	return 0, nil
}

func (m *Manager) hasCapacity(ctx context.Context) bool {
	if m.gate == nil {
		return true
	}
	err := m.gate.Check(ctx)
	m.mu.Lock()
	wasBlocked := m.gateBlocked
	m.gateBlocked = err != nil
	m.mu.Unlock()

	switch {
	case err != nil && !wasBlocked:
		m.logger.Info("host saturated; pausing claims",
			logging.String("reason", err.Error()),
			logging.String(logging.FieldEventType, "capacity_paused"),
		)
	case err == nil && wasBlocked:
		m.logger.Info("host capacity available; resuming claims",
			logging.String(logging.FieldEventType, "capacity_resumed"),
		)
	}
	return err == nil
}

func (m *Manager) handleLoopError(err error) {
	m.setLastError(err)
	logging.ErrorWithContext(m.logger, "scheduler iteration failed", "scheduler_iteration_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "check task database access"),
		logging.String(logging.FieldImpact, "claiming pauses until the next retry"),
		logging.Duration("retry_in", m.settings.errorRetryInterval),
	)
}

// sleep waits for d and reports false when ctx ended first.
func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
