package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lithammer/shortuuid/v4"
)

// CreateTasks enqueues one QUEUED task per variant for an existing video.
func (s *Store) CreateTasks(ctx context.Context, videoID string, variants []string) ([]*Task, error) {
	ctx = ensureContext(ctx)
	if len(variants) == 0 {
		return nil, errors.New("create tasks: at least one variant is required")
	}

	var created []*Task
	err := retryOnBusy(ctx, func() error {
		created = created[:0]
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		var video Video
		var createdRaw string
		err = tx.QueryRowContext(ctx, "SELECT "+videoColumns+" FROM videos WHERE id = ?", videoID).
			Scan(&video.ID, &video.OriginalName, &video.Size, &video.Path, &createdRaw)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%w: %s", ErrVideoNotFound, videoID)
		}
		if err != nil {
			return err
		}

		for _, variant := range variants {
			task := &Task{
				ID:        shortuuid.New(),
				VideoID:   videoID,
				Variant:   strings.TrimSpace(variant),
				Status:    StatusQueued,
				CreatedAt: s.timestamp(),
				VideoPath: video.Path,
				VideoName: video.OriginalName,
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO tasks (id, video_id, variant, status, retries, created_at) VALUES (?, ?, ?, ?, 0, ?)",
				task.ID, task.VideoID, task.Variant, task.Status, formatTime(task.CreatedAt),
			); err != nil {
				return err
			}
			created = append(created, task)
		}
		return tx.Commit()
	})
	if err != nil {
		return nil, fmt.Errorf("create tasks: %w", err)
	}
	return created, nil
}

// FindOldestQueued returns the QUEUED task with the earliest creation time,
// ties broken by insertion order, or nil when none is queued.
func (s *Store) FindOldestQueued(ctx context.Context) (*Task, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx,
		"SELECT "+taskColumns+" "+taskFrom+" WHERE t.status = ? ORDER BY t.created_at ASC, t.rowid ASC LIMIT 1",
		StatusQueued,
	)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find oldest queued: %w", err)
	}
	return task, nil
}

// ClaimTask atomically moves a task from QUEUED to PROCESSING and stamps
// startedAt. It returns false when the task was no longer QUEUED.
func (s *Store) ClaimTask(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ctx,
		"UPDATE tasks SET status = ?, started_at = ? WHERE id = ? AND status = ?",
		StatusProcessing, formatTime(s.timestamp()), id, StatusQueued,
	)
	if err != nil {
		return false, fmt.Errorf("claim task %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("claim task %s: rows affected: %w", id, err)
	}
	return affected == 1, nil
}

// UpdateTask applies a partial update to one task.
func (s *Store) UpdateTask(ctx context.Context, id string, update TaskUpdate) error {
	if update.IsEmpty() {
		return nil
	}
	sets, args := updateAssignments(update)
	args = append(args, id)
	res, err := s.execWithRetry(ctx, "UPDATE tasks SET "+strings.Join(sets, ", ")+" WHERE id = ?", args...)
	if err != nil {
		return fmt.Errorf("update task %s: %w", id, err)
	}
	if affected, err := res.RowsAffected(); err == nil && affected == 0 {
		return fmt.Errorf("update task: %w: %s", ErrTaskNotFound, id)
	}
	return nil
}

func updateAssignments(update TaskUpdate) ([]string, []any) {
	sets := make([]string, 0, 10)
	args := make([]any, 0, 10)
	add := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}
	if update.Status != nil {
		add("status", string(*update.Status))
	}
	if update.Progress != nil {
		add("progress", min(max(*update.Progress, 0), 100))
	}
	switch {
	case update.ClearCurrentBitrate:
		sets = append(sets, "current_bitrate = NULL")
	case update.CurrentBitrate != nil:
		add("current_bitrate", *update.CurrentBitrate)
	}
	if update.Error != nil {
		add("error", *update.Error)
	}
	if update.IncrementRetries {
		sets = append(sets, "retries = retries + 1")
	}
	if update.StartedAt != nil {
		add("started_at", nullableTime(update.StartedAt))
	}
	if update.FinishedAt != nil {
		add("finished_at", nullableTime(update.FinishedAt))
	}
	if update.OutputPath != nil {
		add("output_path", *update.OutputPath)
	}
	if update.OutputSize != nil {
		add("output_size", *update.OutputSize)
	}
	return sets, args
}

// TaskByID returns a task joined with its video, or nil when it does not exist.
func (s *Store) TaskByID(ctx context.Context, id string) (*Task, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, "SELECT "+taskColumns+" "+taskFrom+" WHERE t.id = ?", id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return task, nil
}

// ListTasks returns tasks in FIFO order, optionally filtered by status.
func (s *Store) ListTasks(ctx context.Context, statuses ...Status) ([]*Task, error) {
	query := "SELECT " + taskColumns + " " + taskFrom
	args := make([]any, 0, len(statuses))
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, status)
		}
		query += " WHERE t.status IN (" + strings.Join(placeholders, ", ") + ")"
	}
	query += " ORDER BY t.created_at ASC, t.rowid ASC"
	return s.queryTasks(ctx, query, args...)
}

// TasksForVideo returns the tasks of one video in creation order.
func (s *Store) TasksForVideo(ctx context.Context, videoID string) ([]*Task, error) {
	return s.queryTasks(ctx,
		"SELECT "+taskColumns+" "+taskFrom+" WHERE t.video_id = ? ORDER BY t.created_at ASC, t.rowid ASC",
		videoID,
	)
}

func (s *Store) queryTasks(ctx context.Context, query string, args ...any) ([]*Task, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return tasks, nil
}

// DeleteTask removes a task row. It returns false when no row matched.
func (s *Store) DeleteTask(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ctx, "DELETE FROM tasks WHERE id = ?", id)
	if err != nil {
		return false, fmt.Errorf("delete task %s: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete task %s: rows affected: %w", id, err)
	}
	return affected > 0, nil
}

// RequeueAllProcessing repairs every PROCESSING task in one statement. A
// task with retries left goes back to QUEUED with progress reset, the bitrate
// cleared, message as its error and the interruption counted as a retry. A
// task that already used maxRetries is marked FAILED instead, so repeated
// crashes cannot requeue it forever. Retries never exceed maxRetries.
func (s *Store) RequeueAllProcessing(ctx context.Context, message string, maxRetries int) (RecoveryResult, error) {
	ctx = ensureContext(ctx)
	maxRetries = max(maxRetries, 0)
	now := formatTime(s.timestamp())
	failedMessage := FailedMessagePrefix + message

	var result RecoveryResult
	err := retryOnBusy(ctx, func() error {
		result = RecoveryResult{}
		rows, err := s.db.QueryContext(ctx,
			`UPDATE tasks
                SET status = CASE WHEN retries >= ? THEN ? ELSE ? END,
                    progress = CASE WHEN retries >= ? THEN progress ELSE 0 END,
                    current_bitrate = NULL,
                    error = CASE WHEN retries >= ? THEN ? ELSE ? END,
                    finished_at = CASE WHEN retries >= ? THEN ? ELSE finished_at END,
                    retries = MIN(retries + 1, ?)
              WHERE status = ?
          RETURNING status`,
			maxRetries, StatusFailed, StatusQueued,
			maxRetries,
			maxRetries, failedMessage, message,
			maxRetries, now,
			maxRetries,
			StatusProcessing,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var status string
			if err := rows.Scan(&status); err != nil {
				return err
			}
			if Status(status) == StatusFailed {
				result.Failed++
			} else {
				result.Requeued++
			}
		}
		return rows.Err()
	})
	if err != nil {
		return RecoveryResult{}, fmt.Errorf("requeue processing tasks: %w", err)
	}
	return result, nil
}

// Stats returns video and per-status task counts.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	ctx = ensureContext(ctx)
	stats := Stats{ByStatus: make(map[Status]int, len(allStatuses))}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM videos").Scan(&stats.Videos); err != nil {
		return Stats{}, fmt.Errorf("count videos: %w", err)
	}
	rows, err := s.db.QueryContext(ctx, "SELECT status, COUNT(1) FROM tasks GROUP BY status")
	if err != nil {
		return Stats{}, fmt.Errorf("count tasks: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			status string
			count  int
		)
		if err := rows.Scan(&status, &count); err != nil {
			return Stats{}, fmt.Errorf("scan task count: %w", err)
		}
		stats.ByStatus[Status(status)] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("iterate task counts: %w", err)
	}
	return stats, nil
}
