package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"videoforge/internal/config"
	"videoforge/internal/fileutil"
	"videoforge/internal/logging"
	"videoforge/internal/queue"
	"videoforge/internal/services"
	"videoforge/internal/textutil"
	"videoforge/internal/transcode"
)

// MediaStore captures the persistence operations behind MediaService.
// queue.Store satisfies it.
type MediaStore interface {
	CreateVideo(ctx context.Context, originalName, path string, size int64) (*queue.Video, error)
	CreateTasks(ctx context.Context, videoID string, variants []string) ([]*queue.Task, error)
	ListVideos(ctx context.Context) ([]*queue.Video, error)
	Video(ctx context.Context, id string) (*queue.Video, error)
	TaskByID(ctx context.Context, id string) (*queue.Task, error)
	DeleteTask(ctx context.Context, id string) (bool, error)
	Clear(ctx context.Context) (queue.ClearResult, error)
}

// MediaService manages uploaded sources, their tasks and encoded outputs.
type MediaService struct {
	store        MediaStore
	uploadDir    string
	processedDir string
	maxSize      int64
	logger       *slog.Logger
	now          func() time.Time
}

// Download identifies an encoded file and the name to offer it under.
type Download struct {
	Path     string
	Filename string
	Size     int64
}

// NewMediaService constructs a MediaService over the configured directories.
func NewMediaService(cfg *config.Config, store MediaStore, logger *slog.Logger) *MediaService {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &MediaService{
		store:        store,
		uploadDir:    cfg.Paths.UploadDir,
		processedDir: cfg.Paths.ProcessedDir,
		maxSize:      int64(cfg.Upload.MaxSize.Bytes()),
		logger:       logging.NewComponentLogger(logger, "media-service"),
		now:          time.Now,
	}
}

// MaxUploadSize returns the upload limit in bytes.
func (s *MediaService) MaxUploadSize() int64 {
	return s.maxSize
}

// Upload stores r under the upload directory and records a Video. size is
// the declared length, or negative when unknown; the limit is enforced on the
// bytes actually read either way.
func (s *MediaService) Upload(ctx context.Context, originalName string, r io.Reader, size int64) (*Video, error) {
	name := strings.TrimSpace(originalName)
	if name == "" || r == nil {
		return nil, services.Wrap(services.ErrValidation, "upload", "read file", "No video file provided", nil)
	}
	if s.maxSize > 0 && size > s.maxSize {
		return nil, s.tooLarge()
	}

	path := filepath.Join(s.uploadDir, s.storedName(name))
	written, err := fileutil.WriteLimited(path, r, s.maxSize)
	if errors.Is(err, fileutil.ErrTooLarge) {
		return nil, s.tooLarge()
	}
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "upload", "store file", "Failed to upload video", err)
	}

	video, err := s.store.CreateVideo(ctx, name, path, written)
	if err != nil {
		_ = os.Remove(path)
		return nil, services.Wrap(services.ErrTransient, "upload", "record video", "Failed to upload video", err)
	}
	logging.WithContext(ctx, s.logger).Info("video uploaded",
		logging.String(logging.FieldVideoID, video.ID),
		logging.String("original_name", name),
		logging.String("size", humanize.Bytes(uint64(written))),
		logging.String(logging.FieldEventType, "video_uploaded"),
	)
	dto := FromVideo(video)
	return &dto, nil
}

// ImportFile uploads a local file, as used by the CLI.
func (s *MediaService) ImportFile(ctx context.Context, path string) (*Video, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "upload", "open file", fmt.Sprintf("cannot open %s", path), err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "upload", "stat file", fmt.Sprintf("cannot stat %s", path), err)
	}
	if info.IsDir() {
		return nil, services.Wrap(services.ErrValidation, "upload", "stat file", fmt.Sprintf("%s is a directory", path), nil)
	}
	return s.Upload(ctx, filepath.Base(path), f, info.Size())
}

func (s *MediaService) tooLarge() error {
	limit := humanize.Bytes(uint64(s.maxSize))
	return services.Wrap(services.ErrValidation, "upload", "store file",
		fmt.Sprintf("File exceeds the %s upload limit", limit), fileutil.ErrTooLarge)
}

// storedName builds "<unix-millis>-<random><ext>" so concurrent uploads of
// the same name never collide.
func (s *MediaService) storedName(originalName string) string {
	ext := textutil.SanitizeFileName(filepath.Ext(originalName))
	if ext != "" {
		ext = "." + ext
	}
	return fmt.Sprintf("%d-%d%s", s.now().UnixMilli(), rand.IntN(1_000_000_000), ext)
}

// CreateTasks queues one task per requested variant. Unknown variants are
// accepted and encoded with fallback parameters.
func (s *MediaService) CreateTasks(ctx context.Context, req ProcessRequest) ([]Task, error) {
	videoID := strings.TrimSpace(req.VideoID)
	if videoID == "" || len(req.Variants) == 0 {
		return nil, services.Wrap(services.ErrValidation, "process", "validate request", "Invalid request body", nil)
	}
	variants := make([]string, 0, len(req.Variants))
	for _, variant := range req.Variants {
		variant = strings.TrimSpace(variant)
		if variant == "" {
			return nil, services.Wrap(services.ErrValidation, "process", "validate request", "Invalid request body", nil)
		}
		if err := transcode.Validate(variant); err != nil {
			logging.WarnWithContext(s.logger, "unrecognised variant queued", "variant_fallback",
				logging.String(logging.FieldVideoID, videoID),
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "use Format-Resolution such as MP4-720p"),
				logging.String(logging.FieldImpact, "task encodes with MP4 and/or 480p defaults"),
			)
		}
		variants = append(variants, variant)
	}

	tasks, err := s.store.CreateTasks(ctx, videoID, variants)
	if errors.Is(err, queue.ErrVideoNotFound) {
		return nil, services.Wrap(services.ErrNotFound, "process", "create tasks", "Video not found", err)
	}
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "process", "create tasks", "Failed to create tasks", err)
	}
	logging.WithContext(ctx, s.logger).Info("tasks queued",
		logging.String(logging.FieldVideoID, videoID),
		logging.Int("count", len(tasks)),
		logging.String("variants", strings.Join(variants, ",")),
		logging.String(logging.FieldEventType, "tasks_queued"),
	)
	return FromTasks(tasks), nil
}

// ListVideos returns every video newest first, each with its tasks.
func (s *MediaService) ListVideos(ctx context.Context) ([]Video, error) {
	videos, err := s.store.ListVideos(ctx)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "videos", "list", "Failed to list videos", err)
	}
	return FromVideos(videos), nil
}

// Video returns one video with its tasks.
func (s *MediaService) Video(ctx context.Context, id string) (*Video, error) {
	video, err := s.store.Video(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "videos", "get", "Failed to load video", err)
	}
	if video == nil {
		return nil, services.Wrap(services.ErrNotFound, "videos", "get", "Video not found", nil)
	}
	dto := FromVideo(video)
	return &dto, nil
}

// DownloadPath resolves the encoded output of a task.
func (s *MediaService) DownloadPath(ctx context.Context, taskID string) (Download, error) {
	notFound := services.Wrap(services.ErrNotFound, "download", "resolve output", "File not found or task not completed", nil)

	task, err := s.store.TaskByID(ctx, strings.TrimSpace(taskID))
	if err != nil {
		return Download{}, services.Wrap(services.ErrTransient, "download", "load task", "Failed to load task", err)
	}
	if task == nil || task.OutputPath == "" {
		return Download{}, notFound
	}
	info, err := os.Stat(task.OutputPath)
	if err != nil || info.IsDir() {
		return Download{}, notFound
	}
	return Download{
		Path:     task.OutputPath,
		Filename: textutil.DownloadName(task.VideoName, task.Variant, filepath.Ext(task.OutputPath), task.ID),
		Size:     info.Size(),
	}, nil
}

// DeleteTask removes a task's output file, best effort, and then its row.
func (s *MediaService) DeleteTask(ctx context.Context, taskID string) error {
	taskID = strings.TrimSpace(taskID)
	task, err := s.store.TaskByID(ctx, taskID)
	if err != nil {
		return services.Wrap(services.ErrTransient, "tasks", "delete", "Failed to delete task", err)
	}
	if task == nil {
		return services.Wrap(services.ErrNotFound, "tasks", "delete", "Task not found", nil)
	}

	logger := logging.WithContext(ctx, s.logger).With(logging.String(logging.FieldTaskID, taskID))
	if _, err := fileutil.RemoveIfExists(task.OutputPath); err != nil {
		logging.WarnWithContext(logger, "failed to delete encoded output", "output_delete_failed",
			logging.String("path", task.OutputPath),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "remove the file manually"),
			logging.String(logging.FieldImpact, "orphaned file remains in the processed directory"),
		)
	}

	deleted, err := s.store.DeleteTask(ctx, taskID)
	if err != nil {
		return services.Wrap(services.ErrTransient, "tasks", "delete", "Failed to delete task", err)
	}
	if !deleted {
		return services.Wrap(services.ErrNotFound, "tasks", "delete", "Task not found", nil)
	}
	logger.Info("task deleted",
		logging.String("status", string(task.Status)),
		logging.String(logging.FieldEventType, "task_deleted"),
	)
	return nil
}

// Clear empties the upload and processed directories, then removes every
// task and video row.
func (s *MediaService) Clear(ctx context.Context) (ClearResponse, error) {
	files := 0
	for _, dir := range []string{s.processedDir, s.uploadDir} {
		removed, err := fileutil.EmptyDir(dir)
		files += removed
		if err != nil {
			return ClearResponse{}, services.Wrap(services.ErrTransient, "clear", "empty directory", "Failed to clear system", err)
		}
	}
	result, err := s.store.Clear(ctx)
	if err != nil {
		return ClearResponse{}, services.Wrap(services.ErrTransient, "clear", "delete rows", "Failed to clear system", err)
	}
	logging.WithContext(ctx, s.logger).Info("system cleared",
		logging.Int64("videos", result.Videos),
		logging.Int64("tasks", result.Tasks),
		logging.Int("files", files),
		logging.String(logging.FieldEventType, "system_cleared"),
	)
	return ClearResponse{
		Message: "System cleared successfully",
		Videos:  result.Videos,
		Tasks:   result.Tasks,
		Files:   files,
	}, nil
}
