package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"videoforge/internal/events"
	"videoforge/internal/logging"
	"videoforge/internal/media/ffmpeg"
	"videoforge/internal/queue"
	"videoforge/internal/services"
	"videoforge/internal/transcode"
)

const progressLogBucket = 5

// runTask executes one claimed task. The in-flight slot taken by the claim is
// released here exactly once, including when the encode panics.
func (m *Manager) runTask(ctx context.Context, taskID string) {
	defer m.inFlight.Add(-1)

	ctx = services.WithTaskID(ctx, taskID)
	ctx = services.WithRequestID(ctx, uuid.NewString())
	logger := logging.WithContext(ctx, m.logger)

	var task *queue.Task
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("encode panicked: %v", r)
			m.setLastError(err)
			logging.ErrorWithContext(logger, "task execution panicked", "task_panic",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "report the panic with the surrounding log lines"),
			)
			if task != nil {
				m.handleTaskFailure(ctx, logger, task, err)
			}
		}
	}()

	loaded, err := m.repo.TaskByID(ctx, taskID)
	if err != nil {
		m.setLastError(err)
		logging.ErrorWithContext(logger, "failed to load claimed task", "task_load_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check task database access"),
			logging.String(logging.FieldImpact, "task stays PROCESSING until crash recovery"),
		)
		return
	}
	if loaded == nil {
		logger.Warn("claimed task disappeared before execution",
			logging.String(logging.FieldEventType, "task_missing"),
		)
		return
	}
	task = loaded
	ctx = services.WithVideoID(ctx, task.VideoID)
	logger = logging.WithContext(ctx, m.logger).With(logging.String(logging.FieldVariant, task.Variant))

	err = m.executeTask(ctx, logger, task)
	if err == nil {
		return
	}
	if !services.IsRetryable(err) && ctx.Err() != nil {
		logger.Info("encode interrupted by shutdown; task left for crash recovery",
			logging.String(logging.FieldEventType, "task_interrupted"),
		)
		return
	}
	if errors.Is(err, queue.ErrTaskNotFound) {
		logger.Info("task deleted during encode; result discarded",
			logging.String(logging.FieldEventType, "task_deleted"),
		)
		return
	}
	m.handleTaskFailure(ctx, logger, task, err)
}

func (m *Manager) executeTask(ctx context.Context, logger *slog.Logger, task *queue.Task) error {
	if err := transcode.Validate(task.Variant); err != nil {
		logging.WarnWithContext(logger, "unrecognised variant; using fallback parameters", "variant_fallback",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "use one of "+strings.Join(transcode.KnownVariants(), ", ")),
			logging.String(logging.FieldImpact, "output uses MP4 and/or 480p defaults"),
		)
	}
	params := transcode.ParamsFor(task.Variant)
	outputPath := transcode.OutputPath(m.settings.outputDir, task.ID, task.Variant)

	duration, err := m.engine.ProbeDuration(ctx, task.VideoPath)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("probe interrupted: %w", ctx.Err())
		}
		logging.WarnWithContext(logger, "duration probe failed; percent depends on encoder reports", "duration_probe_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check that ffprobe is installed and the upload is readable"),
			logging.String(logging.FieldImpact, "progress may stay empty until the encode finishes"),
		)
		duration = 0
	}

	started := m.now()
	logger.Info("encode started",
		logging.String("source", task.VideoPath),
		logging.String("output", outputPath),
		logging.String("size", params.Size()),
		logging.String("video_bitrate", params.VideoBitrate),
		logging.Float64("duration_seconds", duration),
		logging.Int("retries", task.Retries),
		logging.String(logging.FieldEventType, "encode_started"),
	)

	throttle := newProgressThrottle(m.settings.progressInterval, m.now)
	sampler := logging.NewProgressSampler(progressLogBucket)
	job := ffmpeg.EncodeJob{InputPath: task.VideoPath, OutputPath: outputPath, Params: params}
	if err := m.engine.Encode(ctx, job, func(p ffmpeg.Progress) {
		m.recordProgress(ctx, logger, task, throttle, sampler, effectivePercent(p, duration), p.CurrentKbps)
	}); err != nil {
		return err
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return fmt.Errorf("stat encoded output: %w", err)
	}
	return m.completeTask(ctx, logger, task, outputPath, info.Size(), m.now().Sub(started))
}

// effectivePercent prefers the encoder's own percent and falls back to the
// encoded timemark over the probed duration. It returns -1 when neither is known.
func effectivePercent(p ffmpeg.Progress, duration float64) float64 {
	if p.Percent >= 0 && !math.IsNaN(p.Percent) {
		return p.Percent
	}
	if duration <= 0 {
		return -1
	}
	seconds, ok := ffmpeg.ParseTimemark(p.Timemark)
	if !ok {
		return -1
	}
	return seconds / duration * 100
}

func (m *Manager) recordProgress(ctx context.Context, logger *slog.Logger, task *queue.Task, throttle *progressThrottle, sampler *logging.ProgressSampler, percent, kbps float64) {
	if sampler.ShouldLog(percent, "encoding") {
		logger.Info("encode progress",
			logging.Float64("percent", math.Round(percent*10)/10),
			logging.Float64("kbps", math.Round(kbps)),
			logging.String(logging.FieldEventType, "encode_progress"),
		)
	}

	update, ok := throttle.next(percent, kbps)
	if !ok {
		return
	}
	if err := m.repo.UpdateTask(ctx, task.ID, update); err != nil {
		if ctx.Err() != nil {
			return
		}
		logging.WarnWithContext(logger, "progress write failed", "progress_write_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check task database access"),
			logging.String(logging.FieldImpact, "displayed progress lags behind the encode"),
		)
		return
	}

	event := events.Event{Type: events.TaskProgress, TaskID: task.ID, VideoID: task.VideoID, Variant: task.Variant, Progress: update.Progress}
	if update.CurrentBitrate != nil {
		event.Bitrate = *update.CurrentBitrate
	}
	m.publish(ctx, event)
}

func (m *Manager) completeTask(ctx context.Context, logger *slog.Logger, task *queue.Task, outputPath string, size int64, elapsed time.Duration) error {
	status := queue.StatusCompleted
	progress := 100
	finished := m.now()
	update := queue.TaskUpdate{
		Status:     &status,
		Progress:   &progress,
		FinishedAt: &finished,
		OutputPath: &outputPath,
		OutputSize: &size,
	}
	if err := m.repo.UpdateTask(ctx, task.ID, update); err != nil {
		return fmt.Errorf("record completion: %w", err)
	}

	logger.Info("encode completed",
		logging.String("output", outputPath),
		logging.String("output_size", humanize.Bytes(uint64(size))),
		logging.Duration("elapsed", elapsed.Round(time.Millisecond)),
		logging.String(logging.FieldEventType, "encode_completed"),
	)
	done := *task
	done.Status = status
	done.Progress = &progress
	done.FinishedAt = &finished
	done.OutputPath = outputPath
	done.OutputSize = size
	m.setLastTask(&done)
	m.publish(ctx, events.Event{
		Type:       events.TaskCompleted,
		TaskID:     task.ID,
		VideoID:    task.VideoID,
		Variant:    task.Variant,
		Status:     string(status),
		Progress:   &progress,
		OutputPath: outputPath,
		OutputSize: size,
	})
	return nil
}
