package testsupport

import (
	"context"
	"path/filepath"
	"testing"

	"videoforge/internal/config"
	"videoforge/internal/queue"
)

// MustOpenStore opens a queue.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *queue.Store {
	t.Helper()

	store, err := queue.Open(cfg)
	if err != nil {
		t.Fatalf("queue.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// SeedVideo writes a small source file into the upload directory and records
// it as a video.
func SeedVideo(t testing.TB, store *queue.Store, cfg *config.Config, name string) *queue.Video {
	t.Helper()

	path := filepath.Join(cfg.Paths.UploadDir, name)
	WriteFile(t, path, 1024)
	video, err := store.CreateVideo(context.Background(), name, path, 1024)
	if err != nil {
		t.Fatalf("store.CreateVideo: %v", err)
	}
	return video
}

// SeedTasks enqueues one task per variant for video.
func SeedTasks(t testing.TB, store *queue.Store, video *queue.Video, variants ...string) []*queue.Task {
	t.Helper()

	tasks, err := store.CreateTasks(context.Background(), video.ID, variants)
	if err != nil {
		t.Fatalf("store.CreateTasks: %v", err)
	}
	return tasks
}

// MustTask loads a task and fails the test when it is missing.
func MustTask(t testing.TB, store *queue.Store, id string) *queue.Task {
	t.Helper()

	task, err := store.TaskByID(context.Background(), id)
	if err != nil {
		t.Fatalf("store.TaskByID: %v", err)
	}
	if task == nil {
		t.Fatalf("task %s not found", id)
	}
	return task
}
