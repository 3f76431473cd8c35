package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lithammer/shortuuid/v4"
)

// CreateVideo records an uploaded source file. ID and CreatedAt are assigned
// by the store.
func (s *Store) CreateVideo(ctx context.Context, originalName, path string, size int64) (*Video, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("create video: path is required")
	}
	video := &Video{
		ID:           shortuuid.New(),
		OriginalName: originalName,
		Size:         size,
		Path:         path,
		CreatedAt:    s.timestamp(),
	}
	if _, err := s.execWithRetry(ctx,
		"INSERT INTO videos (id, original_name, size, path, created_at) VALUES (?, ?, ?, ?, ?)",
		video.ID, video.OriginalName, video.Size, video.Path, formatTime(video.CreatedAt),
	); err != nil {
		return nil, fmt.Errorf("insert video: %w", err)
	}
	return video, nil
}

// Video returns a video with its tasks, or nil when it does not exist.
func (s *Store) Video(ctx context.Context, id string) (*Video, error) {
	ctx = ensureContext(ctx)
	row := s.db.QueryRowContext(ctx, "SELECT "+videoColumns+" FROM videos WHERE id = ?", id)
	video, err := scanVideo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get video: %w", err)
	}
	tasks, err := s.TasksForVideo(ctx, id)
	if err != nil {
		return nil, err
	}
	video.Tasks = tasks
	return video, nil
}

// ListVideos returns every video newest first, each with its tasks.
func (s *Store) ListVideos(ctx context.Context) ([]*Video, error) {
	ctx = ensureContext(ctx)
	rows, err := s.db.QueryContext(ctx, "SELECT "+videoColumns+" FROM videos ORDER BY created_at DESC, rowid DESC")
	if err != nil {
		return nil, fmt.Errorf("list videos: %w", err)
	}
	defer rows.Close()

	var videos []*Video
	byID := make(map[string]*Video)
	for rows.Next() {
		video, err := scanVideo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		videos = append(videos, video)
		byID[video.ID] = video
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate videos: %w", err)
	}
	if len(videos) == 0 {
		return videos, nil
	}

	tasks, err := s.ListTasks(ctx)
	if err != nil {
		return nil, err
	}
	for _, task := range tasks {
		if video, ok := byID[task.VideoID]; ok {
			video.Tasks = append(video.Tasks, task)
		}
	}
	return videos, nil
}

// ClearResult reports what Clear removed.
type ClearResult struct {
	Videos int64
	Tasks  int64
}

// Clear deletes every task and every video in one transaction.
func (s *Store) Clear(ctx context.Context) (ClearResult, error) {
	ctx = ensureContext(ctx)
	var result ClearResult
	err := retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		res, err := tx.ExecContext(ctx, "DELETE FROM tasks")
		if err != nil {
			return err
		}
		result.Tasks, _ = res.RowsAffected()
		res, err = tx.ExecContext(ctx, "DELETE FROM videos")
		if err != nil {
			return err
		}
		result.Videos, _ = res.RowsAffected()
		return tx.Commit()
	})
	if err != nil {
		return ClearResult{}, fmt.Errorf("clear queue: %w", err)
	}
	return result, nil
}
